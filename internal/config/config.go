// Package config loads the gateway's TOML configuration: declared agents,
// declared channels, and their serving parameters.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Defaults applied to channel declarations that omit serving parameters.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// Config is the top-level configuration file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
	Agents   []AgentDecl    `toml:"agents"`
	Channels []ChannelDecl  `toml:"channels"`
}

// DatabaseConfig holds registry persistence settings. An empty path disables
// persistence.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds transcript recording settings. An empty dir disables
// transcripts.
type LoggingConfig struct {
	Dir string `toml:"dir"`
}

// AgentDecl declares one agent to create at startup.
type AgentDecl struct {
	ID      string `toml:"id"`
	Type    string `toml:"type"`
	Shell   string `toml:"shell"`
	Workdir string `toml:"workdir"`
}

// ChannelDecl declares one channel to create at startup, plus the transport
// serving parameters for its HTTP server.
type ChannelDecl struct {
	ID           string `toml:"id"`
	Type         string `toml:"type"`
	AgentID      string `toml:"agent_id"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	StaticDir    string `toml:"static_dir"`
	HistoryLimit int    `toml:"history_limit"`
}

// Addr returns the listen address for the channel's server.
func (c ChannelDecl) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads and validates the configuration file at path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config not found: %s", path)
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	for i := range cfg.Agents {
		if cfg.Agents[i].ID == "" {
			return nil, fmt.Errorf("agents[%d]: id is required", i)
		}
		if cfg.Agents[i].Type == "" {
			cfg.Agents[i].Type = "terminal"
		}
	}

	for i := range cfg.Channels {
		ch := &cfg.Channels[i]
		if ch.ID == "" {
			return nil, fmt.Errorf("channels[%d]: id is required", i)
		}
		if ch.AgentID == "" {
			return nil, fmt.Errorf("channels[%d]: agent_id is required", i)
		}
		if ch.Type == "" {
			ch.Type = "web_terminal"
		}
		if ch.Host == "" {
			ch.Host = DefaultHost
		}
		if ch.Port == 0 {
			ch.Port = DefaultPort
		}
	}

	return &cfg, nil
}
