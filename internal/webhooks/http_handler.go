package webhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SignatureHeader carries the provider's hex HMAC of the request body.
const SignatureHeader = "X-Telephony-Signature"

type Handler struct {
	processor *Processor
}

func NewHandler(p *Processor) *Handler {
	return &Handler{processor: p}
}

func (h *Handler) Register(r gin.IRouter) {
	r.POST("/webhooks/telephony", h.receive)
}

func (h *Handler) receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	res, err := h.processor.Receive(c.Request.Context(), body, c.GetHeader(SignatureHeader))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}
	switch {
	case res.Rejected:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
	case res.Malformed:
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged", "log_id": res.LogID})
	}
}
