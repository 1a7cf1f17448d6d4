package handlers

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/tinyclaw/gateway/internal/channel"
	"github.com/tinyclaw/gateway/internal/gateway"
	"github.com/tinyclaw/gateway/internal/ws"
)

// transportServer is the subset of a channel that can serve a duplex
// transport connection.
type transportServer interface {
	HandleTransport(t channel.Transport) error
}

// TerminalHandler serves the duplex terminal WebSocket endpoints.
type TerminalHandler struct {
	gateway          *gateway.Gateway
	defaultChannelID string
}

// NewTerminalHandler creates a TerminalHandler. defaultChannelID backs the
// bare /ws/terminal endpoint.
func NewTerminalHandler(gw *gateway.Gateway, defaultChannelID string) *TerminalHandler {
	return &TerminalHandler{gateway: gw, defaultChannelID: defaultChannelID}
}

// AttachDefault handles GET /ws/terminal.
func (h *TerminalHandler) AttachDefault(c *gin.Context) {
	h.attach(c, h.defaultChannelID)
}

// Attach handles GET /ws/terminal/:id.
func (h *TerminalHandler) Attach(c *gin.Context) {
	h.attach(c, c.Param("id"))
}

func (h *TerminalHandler) attach(c *gin.Context, channelID string) {
	transport, err := ws.Upgrade(c.Writer, c.Request)
	if err != nil {
		log.Printf("terminal: websocket upgrade: %v", err)
		return
	}

	ch, ok := h.gateway.GetChannel(channelID)
	if !ok {
		transport.Close(channel.CloseChannelNotFound, "channel not found")
		return
	}
	server, ok := ch.(transportServer)
	if !ok {
		transport.Close(channel.CloseChannelNotFound, "channel not found")
		return
	}

	if err := server.HandleTransport(transport); err != nil {
		log.Printf("terminal: channel %s: %v", channelID, err)
	}
}

// RegisterRoutes registers the terminal endpoints on the router.
func (h *TerminalHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/terminal", h.AttachDefault)
	r.GET("/ws/terminal/:id", h.Attach)
}
