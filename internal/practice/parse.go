package practice

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrParse means the model's response did not follow the required
// response format closely enough to extract the structured parts.
var ErrParse = errors.New("unparseable model response")

var (
	categoryRE = regexp.MustCompile(`Category:\s*(.+?)\s*\n`)
	questionRE = regexp.MustCompile(`(?s)Question:\s*(.+?)\s*\n`)
	tablesRE   = regexp.MustCompile(`Tables:\s*(.+?)\s*\n`)
	hintRE     = regexp.MustCompile(`(?s)Hint:\s*(.+?)\s*$`)

	correctnessRE = regexp.MustCompile(`Correctness \((\d+)/10\)`)
	efficiencyRE  = regexp.MustCompile(`Efficiency \((\d+)/10\)`)
	styleRE       = regexp.MustCompile(`Style \((\d+)/10\)`)
	overallRE     = regexp.MustCompile(`(?s)Overall feedback: (.+?)(?:\n\n|$)`)
)

// parsedQuestion is the structured form of a generated question.
type parsedQuestion struct {
	Category string
	Question string
	Tables   string
	Hint     string
}

// parseQuestion extracts the labeled sections from a generated question.
// The question text is mandatory; a missing category falls back to the
// requested one, and tables/hint degrade to empty strings.
func parseQuestion(response, requestedCategory string) (parsedQuestion, error) {
	q := parsedQuestion{Category: requestedCategory}

	if m := questionRE.FindStringSubmatch(response); m != nil {
		q.Question = strings.TrimSpace(m[1])
	}
	if q.Question == "" {
		return parsedQuestion{}, fmt.Errorf("%w: no question section", ErrParse)
	}
	if m := categoryRE.FindStringSubmatch(response); m != nil {
		q.Category = strings.TrimSpace(m[1])
	}
	if m := tablesRE.FindStringSubmatch(response); m != nil {
		q.Tables = strings.TrimSpace(m[1])
	}
	if m := hintRE.FindStringSubmatch(response); m != nil {
		q.Hint = strings.TrimSpace(m[1])
	}
	return q, nil
}

// grading is the structured form of a graded submission.
type grading struct {
	Correctness int
	Efficiency  int
	Style       int
	Feedback    string
}

// Passed applies the grading rule: average of at least 7 with no single
// score below 5.
func (g grading) Passed() bool {
	avg := float64(g.Correctness+g.Efficiency+g.Style) / 3
	minScore := g.Correctness
	if g.Efficiency < minScore {
		minScore = g.Efficiency
	}
	if g.Style < minScore {
		minScore = g.Style
	}
	return avg >= 7 && minScore >= 5
}

// parseGrading extracts the three scores and the overall feedback from a
// grading response. All three scores are mandatory.
func parseGrading(response string) (grading, error) {
	var g grading
	var err error
	if g.Correctness, err = parseScore(correctnessRE, response, "correctness"); err != nil {
		return grading{}, err
	}
	if g.Efficiency, err = parseScore(efficiencyRE, response, "efficiency"); err != nil {
		return grading{}, err
	}
	if g.Style, err = parseScore(styleRE, response, "style"); err != nil {
		return grading{}, err
	}
	if m := overallRE.FindStringSubmatch(response); m != nil {
		g.Feedback = strings.TrimSpace(m[1])
	}
	return g, nil
}

func parseScore(re *regexp.Regexp, response, label string) (int, error) {
	m := re.FindStringSubmatch(response)
	if m == nil {
		return 0, fmt.Errorf("%w: no %s score", ErrParse, label)
	}
	score, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %s score %q", ErrParse, label, m[1])
	}
	return score, nil
}
