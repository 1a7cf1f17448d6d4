package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinyclaw/gateway/api/handlers"
	"github.com/tinyclaw/gateway/internal/agent"
	"github.com/tinyclaw/gateway/internal/channel"
	"github.com/tinyclaw/gateway/internal/config"
	"github.com/tinyclaw/gateway/internal/db"
	"github.com/tinyclaw/gateway/internal/gateway"
	"github.com/tinyclaw/gateway/internal/repository"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var store gateway.Store
	if cfg.Database.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
		database, err := db.Open(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer database.Close()
		store = repository.NewRegistryRepository(database)
	}

	if cfg.Logging.Dir != "" {
		if err := os.MkdirAll(cfg.Logging.Dir, 0755); err != nil {
			log.Fatalf("Failed to create log directory: %v", err)
		}
	}

	gw := gateway.New(store)
	gw.RegisterAgentType(agent.TypeTerminal, func(id string, opts agent.Options) agent.Agent {
		return agent.NewTerminal(id, opts)
	})
	gw.RegisterChannelType(channel.TypeWebTerminal, func(id, agentID string, opts channel.Options) channel.Channel {
		return channel.NewWebTerminal(id, agentID, opts)
	})

	ctx := context.Background()

	for _, decl := range cfg.Agents {
		_, err := gw.CreateAgent(ctx, decl.ID, decl.Type, agent.Options{
			Shell:   decl.Shell,
			Workdir: decl.Workdir,
			LogDir:  cfg.Logging.Dir,
		})
		if err != nil {
			log.Fatalf("Failed to start agent %s: %v", decl.ID, err)
		}
		log.Printf("Started agent %s", decl.ID)
	}

	for _, decl := range cfg.Channels {
		_, err := gw.CreateChannel(ctx, decl.ID, decl.Type, decl.AgentID, channel.Options{
			HistoryLimit: decl.HistoryLimit,
		})
		if err != nil {
			log.Fatalf("Failed to open channel %s: %v", decl.ID, err)
		}
		log.Printf("Opened channel %s -> agent %s", decl.ID, decl.AgentID)
	}

	// One HTTP server per distinct listen address. The first channel declared
	// on an address becomes that server's default terminal endpoint.
	servers := make(map[string]*http.Server)
	for _, decl := range cfg.Channels {
		addr := decl.Addr()
		if _, ok := servers[addr]; ok {
			continue
		}
		servers[addr] = &http.Server{
			Addr:    addr,
			Handler: buildRouter(gw, cfg, decl),
		}
	}
	if len(servers) == 0 {
		addr := config.ChannelDecl{Host: config.DefaultHost, Port: config.DefaultPort}.Addr()
		servers[addr] = &http.Server{
			Addr:    addr,
			Handler: buildRouter(gw, cfg, config.ChannelDecl{}),
		}
	}

	for addr, srv := range servers {
		go func(addr string, srv *http.Server) {
			log.Printf("Listening on %s", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server %s: %v", addr, err)
			}
		}(addr, srv)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown: %v", err)
		}
	}
	gw.Shutdown(shutdownCtx)
}

// buildRouter assembles the gin router for one listen address: management
// API, terminal endpoints, health check, and optional static assets.
func buildRouter(gw *gateway.Gateway, cfg *config.Config, defaultChannel config.ChannelDecl) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		handlers.NewAgentHandler(gw, cfg.Logging.Dir).RegisterRoutes(api)
		handlers.NewChannelHandler(gw).RegisterRoutes(api)
	}

	handlers.NewTerminalHandler(gw, defaultChannel.ID).RegisterRoutes(r)

	if defaultChannel.StaticDir != "" {
		r.NoRoute(func(c *gin.Context) {
			serveStatic(c, defaultChannel.StaticDir)
		})
	}

	return r
}

// serveStatic serves files from dir, falling back to index.html for paths
// that do not map to a file.
func serveStatic(c *gin.Context, dir string) {
	path := filepath.Join(dir, filepath.Clean("/"+c.Request.URL.Path))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		c.File(path)
		return
	}
	c.File(filepath.Join(dir, "index.html"))
}

// corsMiddleware returns a permissive CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
