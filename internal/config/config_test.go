package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
[database]
path = "data/registry.db"

[logging]
dir = "data/logs"

[[agents]]
id = "main"
type = "terminal"
shell = "bash -l"
workdir = "/srv"

[[channels]]
id = "web"
type = "web_terminal"
agent_id = "main"
host = "127.0.0.1"
port = 9000
static_dir = "static"
history_limit = 4096
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Database.Path != "data/registry.db" {
		t.Errorf("database path: got %q", cfg.Database.Path)
	}
	if cfg.Logging.Dir != "data/logs" {
		t.Errorf("log dir: got %q", cfg.Logging.Dir)
	}

	if len(cfg.Agents) != 1 {
		t.Fatalf("agents: got %d", len(cfg.Agents))
	}
	a := cfg.Agents[0]
	if a.ID != "main" || a.Shell != "bash -l" || a.Workdir != "/srv" {
		t.Errorf("agent: got %+v", a)
	}

	if len(cfg.Channels) != 1 {
		t.Fatalf("channels: got %d", len(cfg.Channels))
	}
	ch := cfg.Channels[0]
	if ch.AgentID != "main" || ch.HistoryLimit != 4096 || ch.StaticDir != "static" {
		t.Errorf("channel: got %+v", ch)
	}
	if got := ch.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("addr: got %q", got)
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[[agents]]
id = "a"

[[channels]]
id = "c"
agent_id = "a"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := cfg.Agents[0].Type; got != "terminal" {
		t.Errorf("agent type default: got %q", got)
	}
	ch := cfg.Channels[0]
	if ch.Type != "web_terminal" {
		t.Errorf("channel type default: got %q", ch.Type)
	}
	if ch.Host != DefaultHost || ch.Port != DefaultPort {
		t.Errorf("serving defaults: got %s:%d", ch.Host, ch.Port)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "agent without id",
			content: "[[agents]]\nshell = \"bash\"\n",
			wantErr: "id is required",
		},
		{
			name:    "channel without id",
			content: "[[channels]]\nagent_id = \"a\"\n",
			wantErr: "id is required",
		},
		{
			name:    "channel without agent",
			content: "[[channels]]\nid = \"c\"\n",
			wantErr: "agent_id is required",
		},
		{
			name:    "malformed toml",
			content: "[[channels\n",
			wantErr: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("got %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil || !strings.Contains(err.Error(), "config not found") {
		t.Errorf("got %v", err)
	}
}
