package httpapi

import (
	"errors"
	"net/http"

	"telecall-platform/internal/agents"
	"telecall-platform/internal/automation"
	"telecall-platform/internal/compliance"
	"telecall-platform/internal/dispatch"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/sessions"
	"telecall-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// writeError maps internal error types onto the REST contract. Compliance
// blocks surface their reason verbatim; conflicts carry the existing session
// so the caller can reuse it.
func writeError(c *gin.Context, err error) {
	if v, ok := compliance.AsViolation(err); ok {
		if v.RateLimited() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"rate_limited": true, "compliance_reason": v.Reason})
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"compliance_reason": v.Reason})
		return
	}
	if ce, ok := sessions.AsConflict(err); ok {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"existing_session": ce.Existing})
		return
	}
	var uw *automation.UnknownWorkflowError
	if errors.As(err, &uw) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": uw.Error()})
		return
	}
	if pe, ok := telephony.AsProviderError(err); ok {
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "telephony provider failure", "reason": pe.Reason})
		return
	}
	switch {
	case errors.Is(err, sessions.ErrNotActive):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session is not active"})
	case errors.Is(err, sessions.ErrNotFound),
		errors.Is(err, leads.ErrNotFound),
		errors.Is(err, agents.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, dispatch.ErrNoAgents):
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "no agents available"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
