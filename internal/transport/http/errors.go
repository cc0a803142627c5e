package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/retry"
)

const (
	codeInvalidRequestBody   = "invalid_request_body"
	codeMissingRequiredField = "missing_required_field"
	codeInvalidStartsAt      = "invalid_starts_at"
	codeInvalidID            = "invalid_id"
	codeTenantNameRequired   = "tenant_name_required"
	codeResourceNameRequired = "resource_name_required"
	codeTenantNotFound       = "tenant_not_found"
	codeResourceNotFound     = "resource_not_found"
	codeResourceUnavailable  = "resource_unavailable"
	codePastTime             = "past_time"
	codeSessionExpired       = "session_expired"
	codeSlotConflict         = "slot_conflict"
	codeRetryExhausted       = "retry_exhausted"
	codeSpaceExhausted       = "code_space_exhausted"
	codeNotFound             = "not_found"
	codeInternalError        = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: msg, Code: code})
}

// respondDomainError maps service errors onto HTTP statuses and stable
// machine-readable codes. Unknown errors become an opaque 500.
func respondDomainError(c *gin.Context, err error) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		respondError(c, http.StatusConflict, codeSlotConflict, conflict.Error())
	case errors.Is(err, domain.ErrSessionExpired):
		respondError(c, http.StatusGone, codeSessionExpired, err.Error())
	case errors.Is(err, domain.ErrPastTime):
		respondError(c, http.StatusUnprocessableEntity, codePastTime, err.Error())
	case errors.Is(err, domain.ErrResourceUnavailable):
		respondError(c, http.StatusUnprocessableEntity, codeResourceUnavailable, err.Error())
	case errors.Is(err, domain.ErrResourceNotFound):
		respondError(c, http.StatusNotFound, codeResourceNotFound, err.Error())
	case errors.Is(err, domain.ErrTenantNotFound):
		respondError(c, http.StatusNotFound, codeTenantNotFound, err.Error())
	case errors.Is(err, domain.ErrTenantNameRequired):
		respondError(c, http.StatusBadRequest, codeTenantNameRequired, err.Error())
	case errors.Is(err, domain.ErrResourceNameRequired):
		respondError(c, http.StatusBadRequest, codeResourceNameRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidID), errors.Is(err, domain.ErrInvalidCandidate):
		respondError(c, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		respondError(c, http.StatusServiceUnavailable, codeSpaceExhausted, err.Error())
	case retry.IsExhausted(err):
		respondError(c, http.StatusServiceUnavailable, codeRetryExhausted, "could not complete booking, try again")
	default:
		respondError(c, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
