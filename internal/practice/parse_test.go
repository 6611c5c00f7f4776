package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestion(t *testing.T) {
	response := `Question: SELECT the three oldest users FROM the sample_users table.

Category: Aggregation

Tables: user_alice.sample_users

Hint: ORDER BY with LIMIT gets you most of the way.`

	q, err := parseQuestion(response, "Basic SQL Syntax")
	require.NoError(t, err)

	assert.Equal(t, "SELECT the three oldest users FROM the sample_users table.", q.Question)
	assert.Equal(t, "Aggregation", q.Category)
	assert.Equal(t, "user_alice.sample_users", q.Tables)
	assert.Equal(t, "ORDER BY with LIMIT gets you most of the way.", q.Hint)
}

func TestParseQuestionMissingCategoryFallsBack(t *testing.T) {
	response := "Question: COUNT the users per city.\n\nTables: sample_users\n\nHint: GROUP BY city."

	q, err := parseQuestion(response, "Aggregation")
	require.NoError(t, err)
	assert.Equal(t, "Aggregation", q.Category)
	assert.Equal(t, "COUNT the users per city.", q.Question)
}

func TestParseQuestionWithoutQuestionSection(t *testing.T) {
	_, err := parseQuestion("Here is a fun exercise about JOINs.", "Joins")
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseGrading(t *testing.T) {
	response := `Correctness (8/10): The query returns the right rows.
Efficiency (9/10): Index-friendly filtering.
Style (6/10): Use explicit column lists instead of SELECT *.

Overall feedback: Solid solution with room for stylistic polish. Keep going!

Improvement suggestions:
- Name your columns explicitly.`

	g, err := parseGrading(response)
	require.NoError(t, err)

	assert.Equal(t, 8, g.Correctness)
	assert.Equal(t, 9, g.Efficiency)
	assert.Equal(t, 6, g.Style)
	assert.Equal(t, "Solid solution with room for stylistic polish. Keep going!", g.Feedback)
}

func TestParseGradingMissingScore(t *testing.T) {
	response := "Correctness (8/10): fine.\nStyle (7/10): fine.\n\nOverall feedback: incomplete."

	_, err := parseGrading(response)
	assert.ErrorIs(t, err, ErrParse)
}

func TestGradingPassed(t *testing.T) {
	tests := []struct {
		name   string
		g      grading
		passed bool
	}{
		{"high average, all above floor", grading{Correctness: 8, Efficiency: 9, Style: 6}, true},
		{"high average, one below floor", grading{Correctness: 8, Efficiency: 9, Style: 4}, false},
		{"average below seven", grading{Correctness: 7, Efficiency: 6, Style: 6}, false},
		{"exactly at thresholds", grading{Correctness: 7, Efficiency: 7, Style: 7}, true},
		{"boundary floor of five", grading{Correctness: 10, Efficiency: 10, Style: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.passed, tt.g.Passed())
		})
	}
}
