package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sellerforge/listingops-backend/internal/keywords"
	"github.com/sellerforge/listingops-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the typed pool lifecycle failures onto HTTP.
// Conflicts get their own status so clients can reload-and-retry; upstream
// generation failures are a bad gateway, not our 500.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		RespondError(c, http.StatusNotFound, "pool_not_found", err)
	case errors.Is(err, services.ErrConcurrentModification):
		RespondError(c, http.StatusConflict, "concurrent_modification", err)
	case errors.Is(err, services.ErrGenerationFailed):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, keywords.ErrTooFewKeywords):
		RespondError(c, http.StatusBadRequest, "too_few_keywords", err)
	case errors.Is(err, keywords.ErrTooManyKeywords):
		RespondError(c, http.StatusBadRequest, "too_many_keywords", err)
	case errors.Is(err, services.ErrInvalidTransition):
		RespondError(c, http.StatusBadRequest, "invalid_transition", err)
	case errors.Is(err, services.ErrEmptyCleanedSet):
		RespondError(c, http.StatusBadRequest, "empty_cleaned_set", err)
	case errors.Is(err, services.ErrIncompletePlan):
		RespondError(c, http.StatusBadRequest, "incomplete_plan", err)
	case errors.Is(err, services.ErrNoPlan):
		RespondError(c, http.StatusBadRequest, "no_plan", err)
	case errors.Is(err, services.ErrDuplicateAssignment):
		RespondError(c, http.StatusBadRequest, "duplicate_assignment", err)
	case errors.Is(err, services.ErrBadGroupIndex):
		RespondError(c, http.StatusBadRequest, "bad_group_index", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}
