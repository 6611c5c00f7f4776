package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/querydojo/querydojo/internal/retry"
	"github.com/querydojo/querydojo/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5 over the
// superuser pool, with every call wrapped by the retry executor.
type PostgresStore struct {
	pool *pgxpool.Pool
	exec *retry.Executor
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, exec *retry.Executor) *PostgresStore {
	return &PostgresStore{pool: pool, exec: exec}
}

func (s *PostgresStore) RecordQuery(ctx context.Context, tenant, statementText string, results []models.StatementResult) error {
	snapshot, err := json.Marshal(truncateResults(results))
	if err != nil {
		return fmt.Errorf("encode result snapshot: %w", err)
	}
	return s.exec.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO query_history (tenant, query_definition, timestamp, results)
			 VALUES ($1, $2, $3, $4)`,
			tenant, statementText, time.Now().UTC(), snapshot)
		if err != nil {
			return fmt.Errorf("record query: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) RecentQueries(ctx context.Context, tenant string, limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentQueries
	}
	var records []models.QueryRecord
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx,
			`SELECT id, tenant, query_definition, timestamp, results
			 FROM query_history
			 WHERE tenant = $1
			 ORDER BY timestamp DESC
			 LIMIT $2`, tenant, limit)
		if err != nil {
			return fmt.Errorf("recent queries: %w", err)
		}
		defer rows.Close()

		records = records[:0]
		for rows.Next() {
			var r models.QueryRecord
			var snapshot []byte
			if err := rows.Scan(&r.ID, &r.Tenant, &r.QueryDefinition, &r.Timestamp, &snapshot); err != nil {
				return fmt.Errorf("scan query record: %w", err)
			}
			if len(snapshot) > 0 {
				if err := json.Unmarshal(snapshot, &r.Results); err != nil {
					return fmt.Errorf("decode result snapshot: %w", err)
				}
			}
			records = append(records, r)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *PostgresStore) RecordQuestion(ctx context.Context, q *models.Question) (int64, error) {
	var id int64
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO question_history (tenant, category, question, tables, hint, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			q.Tenant, q.Category, q.Question, q.Tables, q.Hint, time.Now().UTC()).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("record question: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id int64, tenant string) (*models.Question, error) {
	var q models.Question
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`SELECT id, tenant, category, question, tables, hint, timestamp
			 FROM question_history
			 WHERE id = $1 AND tenant = $2`, id, tenant,
		).Scan(&q.ID, &q.Tenant, &q.Category, &q.Question, &q.Tables, &q.Hint, &q.Timestamp)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get question: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) RecordSubmission(ctx context.Context, sub *models.Submission) error {
	return s.exec.Do(ctx, func(ctx context.Context) error {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO submission_history
			 (tenant, question_id, correctness_score, efficiency_score, style_score, overall_feedback, pass_fail, timestamp)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			sub.Tenant, sub.QuestionID, sub.Correctness, sub.Efficiency, sub.Style,
			sub.Feedback, sub.Passed, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("record submission: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) RecentSubmissions(ctx context.Context, tenant string) ([]models.SubmissionSummary, error) {
	var summaries []models.SubmissionSummary
	err := s.exec.Do(ctx, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			WITH ranked_submissions AS (
				SELECT
					sh.id,
					sh.question_id,
					qh.question,
					qh.category,
					sh.correctness_score,
					sh.efficiency_score,
					sh.style_score,
					sh.pass_fail,
					sh.timestamp,
					ROW_NUMBER() OVER (PARTITION BY sh.question_id ORDER BY sh.timestamp DESC) AS rn
				FROM submission_history sh
				JOIN question_history qh ON sh.question_id = qh.id
				WHERE sh.tenant = $1
			)
			SELECT id, question_id, question, category, correctness_score,
			       efficiency_score, style_score, pass_fail, timestamp
			FROM ranked_submissions
			WHERE rn < 10
			ORDER BY timestamp DESC`, tenant)
		if err != nil {
			return fmt.Errorf("recent submissions: %w", err)
		}
		defer rows.Close()

		summaries = summaries[:0]
		for rows.Next() {
			var s models.SubmissionSummary
			if err := rows.Scan(&s.ID, &s.QuestionID, &s.Question, &s.Category,
				&s.Correctness, &s.Efficiency, &s.Style, &s.Passed, &s.Timestamp); err != nil {
				return fmt.Errorf("scan submission summary: %w", err)
			}
			summaries = append(summaries, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

var _ Store = (*PostgresStore)(nil)
