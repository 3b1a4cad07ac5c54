package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimi-run/jimi-core/internal/domain/approval"
	domaintool "github.com/jimi-run/jimi-core/internal/domain/tool"
	"github.com/jimi-run/jimi-core/internal/domain/wire"
	infratool "github.com/jimi-run/jimi-core/internal/infrastructure/tool"
	jimiws "github.com/jimi-run/jimi-core/internal/interfaces/websocket"
	"go.uber.org/zap"
)

// Server is the Engine's control plane: approval decisions, tool/MCP
// inspection, and an SSE bridge onto the Wire. It does not itself run the
// agent loop — that stays with the REPL or a future chat-completions
// handler — it lets an external UI observe and steer a running turn.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config configures the HTTP control plane.
type Config struct {
	Host string
	Port int
	Mode string // "production" selects gin release mode; any other value selects debug mode
}

// Deps bundles the Engine components the control plane exposes.
type Deps struct {
	Wire     *wire.Wire
	Arbiter  *approval.Arbiter
	Registry domaintool.Registry
	MCP      *infratool.MCPManager
	WSHub    *jimiws.Hub
}

// NewServer builds the gin-based control plane.
func NewServer(cfg Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	setupRoutes(router, deps, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	return &Server{
		server: &http.Server{Addr: addr, Handler: router},
		logger: logger,
	}
}

// Start launches the server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http control plane", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping http control plane")
	return s.server.Shutdown(ctx)
}

func setupRoutes(router *gin.Engine, deps Deps, logger *zap.Logger) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().Unix()})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/events", sseHandler(deps.Wire, logger))

		v1.GET("/tools", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"tools": deps.Registry.List()})
		})

		approvals := v1.Group("/approvals")
		{
			approvals.POST("/:id/decide", func(c *gin.Context) {
				id := c.Param("id")
				var body struct {
					Decision string `json:"decision" binding:"required"`
				}
				if err := c.ShouldBindJSON(&body); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				if err := deps.Arbiter.Decide(id, approval.Decision(body.Decision)); err != nil {
					c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, gin.H{"status": "applied"})
			})
			approvals.POST("/mode", func(c *gin.Context) {
				var body struct {
					Mode string `json:"mode" binding:"required"`
				}
				if err := c.ShouldBindJSON(&body); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
				deps.Arbiter.SetMode(approval.Mode(body.Mode))
				c.JSON(http.StatusOK, gin.H{"status": "applied"})
			})
		}

		mcp := v1.Group("/mcp")
		{
			mcp.GET("/servers", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"servers": deps.MCP.ListServers()})
			})
		}
	}

	if deps.WSHub != nil {
		wsHandler := jimiws.NewHandler(deps.WSHub, logger)
		router.GET("/ws", func(c *gin.Context) {
			wsHandler.ServeWS(c.Writer, c.Request)
		})
	}
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// sseHandler streams every Wire event to the client as Server-Sent Events
// until the request is cancelled.
func sseHandler(w *wire.Wire, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ch, unsub := w.Subscribe()
		defer unsub()

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		c.Stream(func(_ io.Writer) bool {
			select {
			case ev, ok := <-ch:
				if !ok {
					return false
				}
				c.SSEvent(string(ev.Type), ev)
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}
