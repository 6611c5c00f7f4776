package models

// SchemaNode is one node in the namespace tree shown to a tenant:
// namespace -> tables -> columns. IDs are stable strings of the form
// "schema-<s>", "table-<s>-<t>" and "column-<s>-<t>-<c>".
type SchemaNode struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Children []SchemaNode `json:"children,omitempty"`
}
