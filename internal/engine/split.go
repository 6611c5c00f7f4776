package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/querydojo/querydojo/internal/ident"
)

// SplitStatements splits a SQL batch into individual statements on
// top-level semicolons, preserving source order and discarding empty
// fragments. Semicolons inside single or double quotes, dollar-quoted
// bodies, line comments and (nested) block comments do not split.
func SplitStatements(batch string) []string {
	var stmts []string
	var start int
	i := 0
	n := len(batch)

	flush := func(end int) {
		s := strings.TrimSpace(batch[start:end])
		// A fragment with no leading keyword is whitespace or comments
		// only; there is nothing to execute.
		if s != "" && firstKeyword(s) != "" {
			stmts = append(stmts, s)
		}
	}

	for i < n {
		switch c := batch[i]; {
		case c == '\'':
			i = skipQuoted(batch, i, '\'')
		case c == '"':
			i = skipQuoted(batch, i, '"')
		case c == '-' && i+1 < n && batch[i+1] == '-':
			for i < n && batch[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && batch[i+1] == '*':
			i = skipBlockComment(batch, i)
		case c == '$':
			if end, ok := skipDollarQuoted(batch, i); ok {
				i = end
			} else {
				i++
			}
		case c == ';':
			flush(i)
			i++
			start = i
		default:
			i++
		}
	}
	flush(n)
	return stmts
}

// skipQuoted advances past a quoted region starting at i. A doubled
// quote character is an escape, not a terminator.
func skipQuoted(s string, i int, quote byte) int {
	i++ // opening quote
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

// skipBlockComment advances past a /* ... */ comment, honoring nesting.
func skipBlockComment(s string, i int) int {
	depth := 0
	for i < len(s) {
		if i+1 < len(s) && s[i] == '/' && s[i+1] == '*' {
			depth++
			i += 2
			continue
		}
		if i+1 < len(s) && s[i] == '*' && s[i+1] == '/' {
			depth--
			i += 2
			if depth == 0 {
				return i
			}
			continue
		}
		i++
	}
	return i
}

// skipDollarQuoted advances past $tag$ ... $tag$ if i starts a valid
// dollar-quote opener, reporting whether it did.
func skipDollarQuoted(s string, i int) (int, bool) {
	j := i + 1
	for j < len(s) && (isIdentChar(s[j]) || s[j] == '_') {
		j++
	}
	if j >= len(s) || s[j] != '$' {
		return i, false
	}
	tag := s[i : j+1]
	end := strings.Index(s[j+1:], tag)
	if end < 0 {
		return len(s), true
	}
	return j + 1 + end + len(tag), true
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

var createTableRE = regexp.MustCompile(`(?is)^\s*CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([^\s(]+)`)

// IsCreateStatement reports whether the statement's leading keyword is
// CREATE, ignoring leading comments.
func IsCreateStatement(stmt string) bool {
	return strings.EqualFold(firstKeyword(stmt), "CREATE")
}

// firstKeyword returns the first SQL keyword of stmt, skipping leading
// whitespace and comments.
func firstKeyword(stmt string) string {
	i := 0
	n := len(stmt)
	for i < n {
		switch {
		case stmt[i] == ' ' || stmt[i] == '\t' || stmt[i] == '\n' || stmt[i] == '\r':
			i++
		case stmt[i] == '-' && i+1 < n && stmt[i+1] == '-':
			for i < n && stmt[i] != '\n' {
				i++
			}
		case stmt[i] == '/' && i+1 < n && stmt[i+1] == '*':
			i = skipBlockComment(stmt, i)
		default:
			j := i
			for j < n && (isIdentChar(stmt[j]) || stmt[j] == '_') {
				j++
			}
			return stmt[i:j]
		}
	}
	return ""
}

// ExtractCreateTableName pulls the target table name out of a CREATE
// TABLE statement. Only plain, unqualified names are permitted: a tenant
// must not address another namespace, and the extracted name still goes
// through ident.Validate before any rewrite.
func ExtractCreateTableName(stmt string) (string, error) {
	m := createTableRE.FindStringSubmatch(stmt)
	if m == nil {
		return "", fmt.Errorf("%w: only CREATE TABLE statements may create objects", ident.ErrInvalidIdentifier)
	}
	name := m[1]
	if strings.ContainsAny(name, `."`) {
		return "", fmt.Errorf("%w: table name %q must not be schema-qualified or quoted", ident.ErrInvalidIdentifier, name)
	}
	if err := ident.Validate(name); err != nil {
		return "", err
	}
	return name, nil
}

// RewriteCreateTable qualifies the table name of a CREATE TABLE
// statement with the given namespace. The name must already have been
// validated; quoting goes through pgx.Identifier, never string
// concatenation of raw input.
func RewriteCreateTable(stmt, schema, name string) string {
	loc := createTableRE.FindStringSubmatchIndex(stmt)
	if loc == nil {
		return stmt
	}
	qualified := pgx.Identifier{schema, name}.Sanitize()
	return stmt[:loc[2]] + qualified + stmt[loc[3]:]
}
