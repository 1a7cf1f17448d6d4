package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tinyclaw/gateway/internal/channel"
	"github.com/tinyclaw/gateway/internal/gateway"
)

// ChannelHandler handles channel management requests.
type ChannelHandler struct {
	gateway *gateway.Gateway
}

// NewChannelHandler creates a ChannelHandler.
func NewChannelHandler(gw *gateway.Gateway) *ChannelHandler {
	return &ChannelHandler{gateway: gw}
}

// CreateChannelRequest is the body for POST /api/channels.
type CreateChannelRequest struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	AgentID      string `json:"agent_id" binding:"required"`
	HistoryLimit int    `json:"history_limit"`
}

// List handles GET /api/channels.
func (h *ChannelHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": h.gateway.ListChannels()})
}

// Create handles POST /api/channels.
func (h *ChannelHandler) Create(c *gin.Context) {
	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Type == "" {
		req.Type = channel.TypeWebTerminal
	}

	ch, err := h.gateway.CreateChannel(c.Request.Context(), req.ID, req.Type, req.AgentID, channel.Options{
		HistoryLimit: req.HistoryLimit,
	})
	if err != nil {
		sendError(c, http.StatusBadRequest, "CREATE_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"channel": gin.H{
		"id":       ch.ID(),
		"agent_id": ch.AgentID(),
	}})
}

// Delete handles DELETE /api/channels/:id.
func (h *ChannelHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	if !h.gateway.RemoveChannel(c.Request.Context(), id) {
		sendError(c, http.StatusNotFound, "CHANNEL_NOT_FOUND", "Channel "+id+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// RegisterRoutes registers the channel routes on a router group.
func (h *ChannelHandler) RegisterRoutes(rg *gin.RouterGroup) {
	channels := rg.Group("/channels")
	{
		channels.GET("", h.List)
		channels.POST("", h.Create)
		channels.DELETE("/:id", h.Delete)
	}
}
