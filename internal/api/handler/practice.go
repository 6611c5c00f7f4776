package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	mw "github.com/querydojo/querydojo/internal/api/middleware"
	"github.com/querydojo/querydojo/internal/api/response"
	"github.com/querydojo/querydojo/internal/history"
	"github.com/querydojo/querydojo/internal/llm"
	"github.com/querydojo/querydojo/internal/practice"
	"github.com/querydojo/querydojo/pkg/models"
)

// Tutor is the practice-facing service surface.
type Tutor interface {
	GenerateQuestion(ctx context.Context, tenant, category string) (*models.Question, error)
	ValidateSolution(ctx context.Context, tenant string, questionID int64, sqlQuery string, results []map[string]any) (string, error)
	SubmissionHistory(ctx context.Context, tenant string) ([]models.SubmissionSummary, error)
	Ask(ctx context.Context, tenant, question string) (string, error)
}

// NewPracticeQuestionHandler returns an http.HandlerFunc for
// POST /api/v1/practice-question.
func NewPracticeQuestionHandler(svc Tutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Category == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "category is required", nil)
			return
		}

		q, err := svc.GenerateQuestion(r.Context(), tenant, req.Category)
		if err != nil {
			writeLLMError(w, err)
			return
		}
		response.JSON(w, q)
	}
}

// NewValidateSolutionHandler returns an http.HandlerFunc for
// POST /api/v1/validate-solution.
func NewValidateSolutionHandler(svc Tutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			QuestionID *int64           `json:"question_id"`
			SQL        string           `json:"sql"`
			Results    []map[string]any `json:"results"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.SQL == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "sql is required", nil)
			return
		}

		questionID := practice.DefaultQuestionID
		if req.QuestionID != nil {
			questionID = *req.QuestionID
		}

		feedback, err := svc.ValidateSolution(r.Context(), tenant, questionID, req.SQL, req.Results)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "QUESTION_NOT_FOUND", "No such practice question", nil)
				return
			}
			writeLLMError(w, err)
			return
		}
		response.JSON(w, map[string]string{"feedback": feedback})
	}
}

// NewSubmissionHistoryHandler returns an http.HandlerFunc for
// GET /api/v1/submission-history.
func NewSubmissionHistoryHandler(svc Tutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		summaries, err := svc.SubmissionHistory(r.Context(), tenant)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load submission history", nil)
			return
		}
		response.JSON(w, summaries)
	}
}

// NewAskHandler returns an http.HandlerFunc for POST /api/v1/ask.
func NewAskHandler(svc Tutor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := mw.GetTenant(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing tenant", nil)
			return
		}

		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Question == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "question is required", nil)
			return
		}

		answer, err := svc.Ask(r.Context(), tenant, req.Question)
		if err != nil {
			writeLLMError(w, err)
			return
		}
		response.JSON(w, map[string]string{"answer": answer})
	}
}

// writeLLMError maps model-collaborator failures onto HTTP responses.
func writeLLMError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, llm.ErrProviderUnavailable):
		response.Error(w, http.StatusBadGateway, "LLM_PROVIDER_UNAVAILABLE",
			"The model provider is not available", nil)
	case errors.Is(err, llm.ErrInferenceTimeout), errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, "LLM_TIMEOUT",
			"The model took too long to respond", nil)
	case errors.Is(err, llm.ErrInvalidResponse), errors.Is(err, practice.ErrParse):
		response.Error(w, http.StatusBadGateway, "LLM_INVALID_RESPONSE",
			"The model returned an unusable response, try again", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to complete the request", nil)
	}
}
