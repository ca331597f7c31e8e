package httpapi

import (
	"github.com/gin-gonic/gin"

	"telecall-platform/internal/webhooks"
)

// Register wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func Register(r *gin.Engine, h Handlers, wh *webhooks.Handler) {
	r.GET("/healthz", h.Healthz)

	// Provider webhooks are public; the HMAC signature is their
	// authentication.
	if wh != nil {
		wh.Register(r)
	}

	api := r.Group("/")
	api.Use(ClientIP())
	{
		calls := api.Group("/calls")
		{
			calls.POST("/initiate", h.InitiateCall)
			calls.POST("/:id/end", h.EndCall)
			calls.GET("/:id/status", h.CallStatus)
			calls.POST("/route", h.RouteCall)
			calls.POST("/distribute", h.DistributeCalls)
		}

		api.POST("/automation/trigger", h.TriggerAutomation)
	}
}
