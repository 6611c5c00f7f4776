package models

import "time"

// QueryRecord is one executed batch in a tenant's bounded query history.
// Results are truncated to 100 entries before persisting.
type QueryRecord struct {
	ID              int64             `db:"id"               json:"id"`
	Tenant          string            `db:"tenant"           json:"tenant"`
	QueryDefinition string            `db:"query_definition" json:"query_definition"`
	Timestamp       time.Time         `db:"timestamp"        json:"timestamp"`
	Results         []StatementResult `db:"results"          json:"results"`
}

// Question is a generated practice question a tenant can attempt.
type Question struct {
	ID        int64     `db:"id"        json:"id"`
	Tenant    string    `db:"tenant"    json:"tenant"`
	Category  string    `db:"category"  json:"category"`
	Question  string    `db:"question"  json:"question"`
	Tables    string    `db:"tables"    json:"tables"`
	Hint      string    `db:"hint"      json:"hint"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// Submission records one graded solution attempt. QuestionID is nil for
// ad-hoc validations against the built-in warm-up question. Passed is
// derived from the three scores, never set independently.
type Submission struct {
	ID          int64     `db:"id"                json:"id"`
	Tenant      string    `db:"tenant"            json:"tenant"`
	QuestionID  *int64    `db:"question_id"       json:"question_id,omitempty"`
	Correctness int       `db:"correctness_score" json:"correctness_score"`
	Efficiency  int       `db:"efficiency_score"  json:"efficiency_score"`
	Style       int       `db:"style_score"       json:"style_score"`
	Feedback    string    `db:"overall_feedback"  json:"overall_feedback"`
	Passed      bool      `db:"pass_fail"         json:"pass_fail"`
	Timestamp   time.Time `db:"timestamp"         json:"timestamp"`
}

// SubmissionSummary is a submission joined with its originating question,
// as returned by recent-submission queries.
type SubmissionSummary struct {
	ID          int64     `json:"id"`
	QuestionID  int64     `json:"question_id"`
	Question    string    `json:"question"`
	Category    string    `json:"category"`
	Correctness int       `json:"correctness_score"`
	Efficiency  int       `json:"efficiency_score"`
	Style       int       `json:"style_score"`
	Passed      bool      `json:"pass_fail"`
	Timestamp   time.Time `json:"timestamp"`
}
