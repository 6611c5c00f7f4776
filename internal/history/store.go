// Package history records bounded, truncated history of executed
// queries, generated practice questions, and graded submissions.
package history

import (
	"context"
	"errors"

	"github.com/querydojo/querydojo/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Truncation bounds: result snapshots keep at most 100 entries, and at
// most 100 rows per table result.
const (
	maxStoredResults    = 100
	maxStoredResultRows = 100
)

// Default number of records returned by RecentQueries.
const DefaultRecentQueries = 5

// Store is the history access interface. All history operations go
// through here; implementations run every database call through the
// retry executor because history writes use elevated privileges.
type Store interface {
	// RecordQuery appends an executed batch with its result snapshot,
	// truncated to the bounds above.
	RecordQuery(ctx context.Context, tenant, statementText string, results []models.StatementResult) error

	// RecentQueries returns the tenant's most recent queries,
	// most-recent-first. limit <= 0 selects the default of 5.
	RecentQueries(ctx context.Context, tenant string, limit int) ([]models.QueryRecord, error)

	// RecordQuestion stores a generated practice question and returns
	// the stored record's id.
	RecordQuestion(ctx context.Context, q *models.Question) (int64, error)

	// GetQuestion fetches a question owned by the tenant.
	GetQuestion(ctx context.Context, id int64, tenant string) (*models.Question, error)

	// RecordSubmission stores a graded submission.
	RecordSubmission(ctx context.Context, s *models.Submission) error

	// RecentSubmissions returns up to the 9 most recent submissions per
	// question, joined with the originating question, most-recent-first.
	RecentSubmissions(ctx context.Context, tenant string) ([]models.SubmissionSummary, error)
}

// truncateResults bounds a result snapshot before persisting: the
// result list itself and each table result's rows.
func truncateResults(results []models.StatementResult) []models.StatementResult {
	if len(results) > maxStoredResults {
		results = results[:maxStoredResults]
	}
	out := make([]models.StatementResult, len(results))
	for i, r := range results {
		if r.Type == models.ResultTypeTable && len(r.Rows) > maxStoredResultRows {
			r.Rows = r.Rows[:maxStoredResultRows]
		}
		out[i] = r
	}
	return out
}
