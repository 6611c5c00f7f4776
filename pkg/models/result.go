package models

const (
	ResultTypeTable   = "table"
	ResultTypeMessage = "message"
)

// StatementResult is the outcome of one statement in an executed batch.
// Row-returning statements produce a "table" result with column names and
// rows; everything else produces a "message" result.
type StatementResult struct {
	Type    string   `json:"type"`
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
	Content string   `json:"content,omitempty"`
}

// TableResult builds a table-typed result.
func TableResult(columns []string, rows [][]any) StatementResult {
	return StatementResult{Type: ResultTypeTable, Columns: columns, Rows: rows}
}

// MessageResult builds a message-typed result.
func MessageResult(content string) StatementResult {
	return StatementResult{Type: ResultTypeMessage, Content: content}
}
