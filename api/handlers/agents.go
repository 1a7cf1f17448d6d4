package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tinyclaw/gateway/internal/agent"
	"github.com/tinyclaw/gateway/internal/gateway"
)

// AgentHandler handles agent management requests.
type AgentHandler struct {
	gateway *gateway.Gateway
	logDir  string
}

// NewAgentHandler creates an AgentHandler. logDir enables transcript
// recording for agents created through the API.
func NewAgentHandler(gw *gateway.Gateway, logDir string) *AgentHandler {
	return &AgentHandler{gateway: gw, logDir: logDir}
}

// CreateAgentRequest is the body for POST /api/agents.
type CreateAgentRequest struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Shell string `json:"shell"`
	Cwd   string `json:"cwd"`
}

// List handles GET /api/agents.
func (h *AgentHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.gateway.ListAgents()})
}

// Create handles POST /api/agents. Any registry or spawn failure maps to a
// 400 so callers can fix the request and retry with a new declaration.
func (h *AgentHandler) Create(c *gin.Context) {
	var req CreateAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Type == "" {
		req.Type = agent.TypeTerminal
	}

	a, err := h.gateway.CreateAgent(c.Request.Context(), req.ID, req.Type, agent.Options{
		Shell:   req.Shell,
		Workdir: req.Cwd,
		LogDir:  h.logDir,
	})
	if err != nil {
		sendError(c, http.StatusBadRequest, "CREATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"agent": a.Status()})
}

// Delete handles DELETE /api/agents/:id.
func (h *AgentHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.gateway.RemoveAgent(c.Request.Context(), id) {
		sendError(c, http.StatusNotFound, "AGENT_NOT_FOUND", "Agent "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ResizeRequest is the body for POST /api/agents/:id/resize.
type ResizeRequest struct {
	Rows uint16 `json:"rows" binding:"required"`
	Cols uint16 `json:"cols" binding:"required"`
}

// Resize handles POST /api/agents/:id/resize.
func (h *AgentHandler) Resize(c *gin.Context) {
	id := c.Param("id")
	a, ok := h.gateway.GetAgent(id)
	if !ok {
		sendError(c, http.StatusNotFound, "AGENT_NOT_FOUND", "Agent "+id+" not found")
		return
	}

	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if err := a.Resize(req.Rows, req.Cols); err != nil {
		sendError(c, http.StatusBadRequest, "RESIZE_FAILED", err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the agent routes on a router group.
func (h *AgentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	agents := rg.Group("/agents")
	{
		agents.GET("", h.List)
		agents.POST("", h.Create)
		agents.DELETE("/:id", h.Delete)
		agents.POST("/:id/resize", h.Resize)
	}
}
