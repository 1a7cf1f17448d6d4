package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tinyclaw/gateway/internal/agent"
	"github.com/tinyclaw/gateway/internal/channel"
	"github.com/tinyclaw/gateway/internal/gateway"
	"github.com/tinyclaw/gateway/internal/model"
)

type apiAgent struct {
	id string
}

func (a *apiAgent) ID() string                  { return a.id }
func (a *apiAgent) Start(context.Context) error { return nil }
func (a *apiAgent) Stop() error                 { return nil }
func (a *apiAgent) SendInput([]byte) error      { return nil }
func (a *apiAgent) Resize(_, _ uint16) error    { return model.ErrResizeUnsupported }
func (a *apiAgent) Status() model.AgentStatus   { return model.AgentStatus{ID: a.id, Running: true} }

func (a *apiAgent) ReadOutput(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type apiChannel struct {
	id      string
	agentID string
}

func (c *apiChannel) ID() string                 { return c.id }
func (c *apiChannel) AgentID() string            { return c.agentID }
func (c *apiChannel) Bind(agent.Agent)           {}
func (c *apiChannel) Open(context.Context) error { return nil }
func (c *apiChannel) Close() error               { return nil }
func (c *apiChannel) OnClientData([]byte)        {}
func (c *apiChannel) OnAgentData([]byte)         {}

func newTestRouter(t *testing.T) (*gin.Engine, *gateway.Gateway) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := gateway.New(nil)
	gw.RegisterAgentType(agent.TypeTerminal, func(id string, _ agent.Options) agent.Agent {
		return &apiAgent{id: id}
	})
	gw.RegisterChannelType(channel.TypeWebTerminal, func(id, agentID string, _ channel.Options) channel.Channel {
		return &apiChannel{id: id, agentID: agentID}
	})

	r := gin.New()
	api := r.Group("/api")
	NewAgentHandler(gw, "").RegisterRoutes(api)
	NewChannelHandler(gw).RegisterRoutes(api)
	return r, gw
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAgentEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/agents", map[string]string{"id": "a1", "shell": "bash"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", w.Code, w.Body.String())
	}

	// Duplicate declaration is a client error.
	w = doJSON(t, r, http.MethodPost, "/api/agents", map[string]string{"id": "a1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate create: got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/agents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: got %d", w.Code)
	}
	var listResp struct {
		Agents []model.AgentStatus `json:"agents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(listResp.Agents) != 1 || listResp.Agents[0].ID != "a1" {
		t.Errorf("list: %+v", listResp.Agents)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/agents/a1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/agents/a1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d", w.Code)
	}
}

func TestAgentCreate_GeneratedID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/agents", map[string]string{"shell": "bash"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Agent model.AgentStatus `json:"agent"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if resp.Agent.ID == "" {
		t.Error("expected a generated id")
	}
}

func TestChannelEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/agents", map[string]string{"id": "a1"})

	// A channel needs a live agent.
	w := doJSON(t, r, http.MethodPost, "/api/channels", map[string]string{"id": "c1", "agent_id": "ghost"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("channel on missing agent: got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/channels", map[string]string{"id": "c1", "agent_id": "a1"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create channel: got %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/channels", nil)
	var listResp struct {
		Channels []model.ChannelInfo `json:"channels"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(listResp.Channels) != 1 || listResp.Channels[0].AgentID != "a1" {
		t.Errorf("list: %+v", listResp.Channels)
	}

	w = doJSON(t, r, http.MethodDelete, "/api/channels/c1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete: got %d", w.Code)
	}
	w = doJSON(t, r, http.MethodDelete, "/api/channels/c1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d", w.Code)
	}
}

func TestChannelCreate_MissingAgentID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/channels", map[string]string{"id": "c1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("got %d", w.Code)
	}
}

func TestAgentResize_Unsupported(t *testing.T) {
	r, _ := newTestRouter(t)

	doJSON(t, r, http.MethodPost, "/api/agents", map[string]string{"id": "a1"})

	w := doJSON(t, r, http.MethodPost, "/api/agents/a1/resize", map[string]int{"rows": 40, "cols": 120})
	if w.Code != http.StatusBadRequest {
		t.Errorf("resize on pipe agent: got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/agents/ghost/resize", map[string]int{"rows": 40, "cols": 120})
	if w.Code != http.StatusNotFound {
		t.Errorf("resize on missing agent: got %d", w.Code)
	}
}
