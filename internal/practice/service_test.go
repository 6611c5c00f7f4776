package practice

import (
	"context"
	"testing"
	"time"

	"github.com/querydojo/querydojo/internal/llm/mock"
	"github.com/querydojo/querydojo/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	questions   map[int64]*models.Question
	nextID      int64
	submissions []*models.Submission
	recent      []models.QueryRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{questions: map[int64]*models.Question{}, nextID: 1}
}

func (f *fakeStore) RecordQuery(context.Context, string, string, []models.StatementResult) error {
	return nil
}

func (f *fakeStore) RecentQueries(context.Context, string, int) ([]models.QueryRecord, error) {
	return f.recent, nil
}

func (f *fakeStore) RecordQuestion(_ context.Context, q *models.Question) (int64, error) {
	id := f.nextID
	f.nextID++
	stored := *q
	stored.ID = id
	f.questions[id] = &stored
	return id, nil
}

func (f *fakeStore) GetQuestion(_ context.Context, id int64, tenant string) (*models.Question, error) {
	q, ok := f.questions[id]
	if !ok || q.Tenant != tenant {
		return nil, assert.AnError
	}
	return q, nil
}

func (f *fakeStore) RecordSubmission(_ context.Context, s *models.Submission) error {
	f.submissions = append(f.submissions, s)
	return nil
}

func (f *fakeStore) RecentSubmissions(context.Context, string) ([]models.SubmissionSummary, error) {
	return nil, nil
}

type fakeSchema struct{}

func (fakeSchema) NamespaceTree(context.Context, string) ([]models.SchemaNode, error) {
	return []models.SchemaNode{
		{
			ID: "schema-user_alice", Label: "user_alice",
			Children: []models.SchemaNode{
				{
					ID: "table-user_alice-sample_users", Label: "sample_users",
					Children: []models.SchemaNode{
						{ID: "column-user_alice-sample_users-id", Label: "id (integer)"},
					},
				},
			},
		},
	}, nil
}

func TestGenerateQuestionStoresParsedQuestion(t *testing.T) {
	provider := mock.NewProvider()
	provider.CompleteFunc = func(context.Context, string, string) (string, error) {
		return "Question: SELECT all users older than 30.\n\nCategory: Filtering\n\nTables: user_alice.sample_users\n\nHint: Use a WHERE clause.", nil
	}

	store := newFakeStore()
	svc := NewService(provider, store, fakeSchema{}, time.Minute)

	q, err := svc.GenerateQuestion(context.Background(), "alice", "Filtering")
	require.NoError(t, err)

	assert.Equal(t, int64(1), q.ID)
	assert.Equal(t, "Filtering", q.Category)
	assert.Equal(t, "SELECT all users older than 30.", q.Question)
	assert.Equal(t, "Use a WHERE clause.", q.Hint)
	require.Contains(t, store.questions, int64(1))
}

func TestGenerateQuestionRejectsMalformedResponse(t *testing.T) {
	provider := mock.NewProvider()
	provider.CompleteFunc = func(context.Context, string, string) (string, error) {
		return "Sorry, I cannot help with that.", nil
	}

	svc := NewService(provider, newFakeStore(), fakeSchema{}, time.Minute)

	_, err := svc.GenerateQuestion(context.Background(), "alice", "Joins")
	assert.ErrorIs(t, err, ErrParse)
}

func TestValidateSolutionPass(t *testing.T) {
	provider := mock.NewProvider()
	provider.CompleteFunc = func(context.Context, string, string) (string, error) {
		return "Correctness (8/10): Right rows.\nEfficiency (9/10): Fine.\nStyle (6/10): Avoid SELECT *.\n\nOverall feedback: Good work overall.", nil
	}

	store := newFakeStore()
	store.questions[7] = &models.Question{ID: 7, Tenant: "alice", Category: "Filtering", Question: "SELECT users older than 30."}

	svc := NewService(provider, store, fakeSchema{}, time.Minute)

	feedback, err := svc.ValidateSolution(context.Background(), "alice", 7,
		"SELECT * FROM sample_users WHERE age > 30", nil)
	require.NoError(t, err)

	assert.Contains(t, feedback, "Overall Result: Pass")
	require.Len(t, store.submissions, 1)
	sub := store.submissions[0]
	assert.True(t, sub.Passed)
	assert.Equal(t, 8, sub.Correctness)
	require.NotNil(t, sub.QuestionID)
	assert.Equal(t, int64(7), *sub.QuestionID)
}

func TestValidateSolutionFailOnLowFloor(t *testing.T) {
	provider := mock.NewProvider()
	provider.CompleteFunc = func(context.Context, string, string) (string, error) {
		return "Correctness (8/10): ok.\nEfficiency (9/10): ok.\nStyle (4/10): messy.\n\nOverall feedback: Tighten the style.", nil
	}

	store := newFakeStore()
	store.questions[7] = &models.Question{ID: 7, Tenant: "alice", Category: "Filtering", Question: "q"}

	svc := NewService(provider, store, fakeSchema{}, time.Minute)

	feedback, err := svc.ValidateSolution(context.Background(), "alice", 7, "SELECT 1", nil)
	require.NoError(t, err)

	assert.Contains(t, feedback, "Overall Result: Fail")
	require.Len(t, store.submissions, 1)
	assert.False(t, store.submissions[0].Passed)
}

func TestValidateSolutionDefaultQuestion(t *testing.T) {
	var seenSystem string
	provider := mock.NewProvider()
	provider.CompleteFunc = func(_ context.Context, system, _ string) (string, error) {
		seenSystem = system
		return "Correctness (9/10): ok.\nEfficiency (9/10): ok.\nStyle (9/10): ok.\n\nOverall feedback: Great.", nil
	}

	store := newFakeStore()
	svc := NewService(provider, store, fakeSchema{}, time.Minute)

	_, err := svc.ValidateSolution(context.Background(), "alice", DefaultQuestionID,
		"SELECT * FROM sample_users LIMIT 5", nil)
	require.NoError(t, err)

	assert.Contains(t, seenSystem, "Select the top 5 rows")
	require.Len(t, store.submissions, 1)
	// ad-hoc validations carry no question reference
	assert.Nil(t, store.submissions[0].QuestionID)
}

func TestAskEmbedsHistoryAndSchema(t *testing.T) {
	var seenSystem string
	provider := mock.NewProvider()
	provider.CompleteFunc = func(_ context.Context, system, _ string) (string, error) {
		seenSystem = system
		return "You ran one query against sample_users.", nil
	}

	store := newFakeStore()
	store.recent = []models.QueryRecord{
		{
			QueryDefinition: "SELECT name FROM sample_users",
			Results:         []models.StatementResult{models.TableResult([]string{"name"}, [][]any{{"Alice Smith"}})},
		},
	}

	svc := NewService(provider, store, fakeSchema{}, time.Minute)

	answer, err := svc.Ask(context.Background(), "alice", "What did my last query do?")
	require.NoError(t, err)

	assert.Equal(t, "You ran one query against sample_users.", answer)
	assert.Contains(t, seenSystem, "SELECT name FROM sample_users")
	assert.Contains(t, seenSystem, "user_alice.sample_users")
}
