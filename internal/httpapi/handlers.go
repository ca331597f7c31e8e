package httpapi

import (
	"net/http"

	"telecall-platform/internal/audit"
	"telecall-platform/internal/automation"
	"telecall-platform/internal/dispatch"
	"telecall-platform/internal/leads"
	"telecall-platform/internal/routing"
	"telecall-platform/internal/sessions"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Sessions   *sessions.Service
	Dispatcher *dispatch.Dispatcher
	Automation *automation.Engine
	Leads      leads.Repository
}

// ClientIP resolves the caller's address into the request context so the
// audit trail can stamp it on every entry.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// --- Calls ---

type initiateRequest struct {
	LeadID   string `json:"lead_id"`
	AgentID  string `json:"agent_id,omitempty"`
	CallType string `json:"call_type,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// InitiateCall places an outbound call. With agent_id set the agent is taken
// as pre-assigned; otherwise the routing engine picks one under the
// requested strategy (default skill_based).
func (h Handlers) InitiateCall(c *gin.Context) {
	if h.Sessions == nil || h.Dispatcher == nil || h.Leads == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	var req initiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LeadID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id required"})
		return
	}
	callType := sessions.CallTypeOutbound
	if req.CallType != "" {
		callType = sessions.CallType(req.CallType)
		if callType != sessions.CallTypeOutbound && callType != sessions.CallTypeFollowUp {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown call_type"})
			return
		}
	}
	ctx := c.Request.Context()

	if req.AgentID != "" {
		lead, err := h.Leads.Get(ctx, req.LeadID)
		if err != nil {
			writeError(c, err)
			return
		}
		session, err := h.Sessions.Initiate(ctx, lead, req.AgentID, callType, sessions.Metadata{
			RoutingReason: "pre-assigned agent",
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, sessionCreated(session))
		return
	}

	strategy := routing.StrategySkillBased
	if req.Strategy != "" {
		strategy = routing.Strategy(req.Strategy)
	}
	res, err := h.Dispatcher.Dispatch(ctx, req.LeadID, strategy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sessionCreated(res.Session))
}

func sessionCreated(s sessions.CallSession) gin.H {
	return gin.H{
		"session_id":       s.ID,
		"status":           s.Status,
		"bridge_reference": s.Metadata.BridgeReference,
	}
}

// EndCall hangs up an active session.
func (h Handlers) EndCall(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	id := c.Param("id")
	if id == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "session id required"})
		return
	}
	session, err := h.Sessions.End(c.Request.Context(), id, "api")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": session.Status, "session_id": session.ID})
}

// CallStatus returns the session snapshot.
func (h Handlers) CallStatus(c *gin.Context) {
	if h.Sessions == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	session, err := h.Sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

type routeRequest struct {
	LeadID   string `json:"lead_id"`
	Strategy string `json:"strategy"`
}

// RouteCall selects an agent for a lead and initiates the call.
func (h Handlers) RouteCall(c *gin.Context) {
	if h.Dispatcher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing not configured"})
		return
	}
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LeadID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id required"})
		return
	}
	strategy := routing.Strategy(req.Strategy)
	if req.Strategy == "" {
		strategy = routing.StrategySkillBased
	}

	res, err := h.Dispatcher.Dispatch(c.Request.Context(), req.LeadID, strategy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": res.AgentID, "session_id": res.Session.ID})
}

type distributeRequest struct {
	LeadIDs []string `json:"lead_ids"`
	Mode    string   `json:"mode"`
}

// DistributeCalls assigns a batch of leads across available agents.
func (h Handlers) DistributeCalls(c *gin.Context) {
	if h.Dispatcher == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "routing not configured"})
		return
	}
	var req distributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.LeadIDs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_ids required"})
		return
	}
	mode := req.Mode
	if mode == "" {
		mode = routing.DistributeBalanced
	}
	if mode != routing.DistributeBalanced && mode != routing.DistributePriority {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown mode"})
		return
	}

	results, err := h.Dispatcher.Distribute(c.Request.Context(), req.LeadIDs, mode)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		entry := gin.H{"lead_id": r.LeadID, "agent_id": r.AgentID}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		} else {
			entry["session_id"] = r.Session.ID
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

// --- Automation ---

type triggerRequest struct {
	LeadID       string `json:"lead_id"`
	WorkflowType string `json:"workflow_type"`
}

// TriggerAutomation runs a single workflow for a lead on demand.
func (h Handlers) TriggerAutomation(c *gin.Context) {
	if h.Automation == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "automation not configured"})
		return
	}
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LeadID == "" || req.WorkflowType == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "lead_id, workflow_type required"})
		return
	}

	res, err := h.Automation.ExecuteManual(c.Request.Context(), req.LeadID, automation.TriggerType(req.WorkflowType))
	if err != nil {
		writeError(c, err)
		return
	}
	body := gin.H{"result": gin.H{"type": res.Trigger.Type, "executed": !res.Failed()}}
	if res.Failed() {
		body["result"].(gin.H)["error"] = res.Err.Error()
	}
	c.JSON(http.StatusOK, body)
}

// Healthz reports liveness.
func (h Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
