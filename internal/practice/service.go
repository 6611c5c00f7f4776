package practice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/querydojo/querydojo/internal/history"
	"github.com/querydojo/querydojo/internal/llm"
	"github.com/querydojo/querydojo/pkg/models"
)

// DefaultQuestionID selects the built-in warm-up question instead of a
// stored one.
const DefaultQuestionID int64 = -1

const (
	defaultQuestionCategory = "Basic SQL Syntax"
	defaultQuestionText     = "Select the top 5 rows from your schema's sample_users table."
)

// maxContextRows bounds how many result rows from history or a
// submission are embedded into a prompt.
const maxContextRows = 10

// SchemaSource provides the namespace tree embedded into prompts so the
// model only sees tables the tenant can actually use.
type SchemaSource interface {
	NamespaceTree(ctx context.Context, tenant string) ([]models.SchemaNode, error)
}

// Service generates practice questions, grades submitted solutions, and
// answers free-form questions about a tenant's recent queries.
type Service struct {
	provider llm.Provider
	history  history.Store
	schema   SchemaSource
	timeout  time.Duration
}

// NewService creates a Service. timeout bounds each model call.
func NewService(provider llm.Provider, hist history.Store, schema SchemaSource, timeout time.Duration) *Service {
	return &Service{provider: provider, history: hist, schema: schema, timeout: timeout}
}

// GenerateQuestion asks the model for a fresh practice question in the
// given category, parses it, and persists it to the question history.
func (s *Service) GenerateQuestion(ctx context.Context, tenant, category string) (*models.Question, error) {
	schemaStr, err := s.schemaString(ctx, tenant)
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(`You are an AI assistant that generates SQL practice questions.
Database schema: %s

Generate a unique SQL practice question for the category: %s
The question should be challenging but solvable using the provided schema.
Try to use a variety of tables in your questions.

Your response must strictly follow this format:

Question: [Your question here]

Category: %s

Tables: [Comma-separated list of relevant tables in the format user_schema.table_name]

Hint: [Provide a hint here]

Ensure that:
1. The "Question" section contains the full question text with SQL keywords in ALL CAPS.
2. The "Tables" section lists only the table names, separated by commas.
3. The "Hint" section provides a brief, helpful hint for solving the question.
4. Do not include any additional text or explanations outside of these sections.`, schemaStr, category, category)

	user := fmt.Sprintf("Generate a SQL practice question for the %s category.", category)

	response, err := s.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	parsed, err := parseQuestion(response, category)
	if err != nil {
		return nil, err
	}

	q := &models.Question{
		Tenant:   tenant,
		Category: parsed.Category,
		Question: parsed.Question,
		Tables:   parsed.Tables,
		Hint:     parsed.Hint,
	}
	id, err := s.history.RecordQuestion(ctx, q)
	if err != nil {
		return nil, err
	}
	q.ID = id
	slog.Info("generated practice question", "tenant", tenant, "question_id", id, "category", q.Category)
	return q, nil
}

// GetQuestion fetches a previously generated question owned by the
// tenant. DefaultQuestionID returns the built-in warm-up question.
func (s *Service) GetQuestion(ctx context.Context, tenant string, id int64) (*models.Question, error) {
	if id == DefaultQuestionID {
		return &models.Question{
			ID:       DefaultQuestionID,
			Tenant:   tenant,
			Category: defaultQuestionCategory,
			Question: defaultQuestionText,
		}, nil
	}
	return s.history.GetQuestion(ctx, id, tenant)
}

// ValidateSolution grades a submitted solution against its question,
// persists the graded submission, and returns the model's feedback with
// the pass/fail verdict appended.
func (s *Service) ValidateSolution(ctx context.Context, tenant string, questionID int64, sqlQuery string, results []map[string]any) (string, error) {
	question, err := s.GetQuestion(ctx, tenant, questionID)
	if err != nil {
		return "", err
	}

	schemaStr, err := s.schemaString(ctx, tenant)
	if err != nil {
		return "", err
	}

	if len(results) > maxContextRows {
		results = results[:maxContextRows]
	}
	resultJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	system := fmt.Sprintf(`You are an AI assistant that validates SQL solutions for practice questions.
Database schema: %s

Question Category: %s
Question: %s
Submitted SQL query: %s
Query results (top 10 records): %s

Analyze the submitted SQL query and its results. Provide concise feedback on:
1. Correctness (Score /10): Does the query correctly solve the problem? Briefly explain why or why not.
2. Efficiency (Score /10): Is the query optimized? Suggest improvements if needed.
3. Style (Score /10): Does the query follow good SQL practices? Offer specific style suggestions.

Format your response as follows:
Correctness (X/10): [Brief explanation]
Efficiency (X/10): [Brief explanation]
Style (X/10): [Brief explanation]

Overall feedback: [2-3 sentences summarizing the main points and offering encouragement]

Improvement suggestions:
- [Bullet point 1]
- [Bullet point 2]
- [Bullet point 3 (if needed)]

Keep your total response under 250 words.`,
		schemaStr, question.Category, question.Question, sqlQuery, resultJSON)

	feedback, err := s.complete(ctx, system, "Please validate this SQL solution and provide feedback.")
	if err != nil {
		return "", err
	}

	g, err := parseGrading(feedback)
	if err != nil {
		return "", err
	}

	sub := &models.Submission{
		Tenant:      tenant,
		Correctness: g.Correctness,
		Efficiency:  g.Efficiency,
		Style:       g.Style,
		Feedback:    g.Feedback,
		Passed:      g.Passed(),
	}
	if questionID != DefaultQuestionID {
		sub.QuestionID = &questionID
	}
	if err := s.history.RecordSubmission(ctx, sub); err != nil {
		return "", err
	}
	slog.Info("graded submission", "tenant", tenant, "question_id", questionID, "passed", sub.Passed)

	verdict := "Fail"
	if sub.Passed {
		verdict = "Pass"
	}
	return feedback + "\n\nOverall Result: " + verdict, nil
}

// SubmissionHistory returns the tenant's recent graded submissions
// joined with their questions.
func (s *Service) SubmissionHistory(ctx context.Context, tenant string) ([]models.SubmissionSummary, error) {
	return s.history.RecentSubmissions(ctx, tenant)
}

// Ask answers a free-form question grounded on the tenant's schema and
// its three most recent queries.
func (s *Service) Ask(ctx context.Context, tenant, question string) (string, error) {
	schemaStr, err := s.schemaString(ctx, tenant)
	if err != nil {
		return "", err
	}

	records, err := s.history.RecentQueries(ctx, tenant, 3)
	if err != nil {
		return "", err
	}

	var hist strings.Builder
	for _, rec := range records {
		total := 0
		top := make([]models.StatementResult, 0, len(rec.Results))
		for _, res := range rec.Results {
			total += len(res.Rows)
			if len(res.Rows) > maxContextRows {
				res.Rows = res.Rows[:maxContextRows]
			}
			top = append(top, res)
		}
		topJSON, err := json.MarshalIndent(top, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode history: %w", err)
		}
		fmt.Fprintf(&hist, "Query: %s\nTimestamp: %s\n", rec.QueryDefinition, rec.Timestamp)
		fmt.Fprintf(&hist, "Results summary: %d total results. Top 10 results:\n%s\n\n", total, topJSON)
	}

	system := fmt.Sprintf(`You are an AI assistant that provides information about SQL queries and their results based on the query history.
Database schema: %s

Recent query history:
%s

Answer the user's question based on the provided context. If you can't answer the question based on the given information, say so.`,
		schemaStr, hist.String())

	return s.complete(ctx, system, question)
}

func (s *Service) complete(ctx context.Context, system, user string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.provider.Complete(ctx, system, user)
}

// schemaString renders the namespace tree as the compact string embedded
// into prompts.
func (s *Service) schemaString(ctx context.Context, tenant string) (string, error) {
	tree, err := s.schema.NamespaceTree(ctx, tenant)
	if err != nil {
		return "", fmt.Errorf("load schema for prompt: %w", err)
	}

	var b strings.Builder
	for _, schemaNode := range tree {
		for _, table := range schemaNode.Children {
			if b.Len() > 0 {
				b.WriteString("; ")
			}
			fmt.Fprintf(&b, "%s.%s(", schemaNode.Label, table.Label)
			for i, col := range table.Children {
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(col.Label)
			}
			b.WriteString(")")
		}
	}
	if b.Len() == 0 {
		return "(no tables)", nil
	}
	return b.String(), nil
}
