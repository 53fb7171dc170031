// Package server exposes the agent over HTTP: login, chat and order
// execution. The transport layer only shapes requests and responses; all turn
// logic lives in the engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"llm-trading-agent/internal/engine"
	"llm-trading-agent/internal/logger"
	"llm-trading-agent/internal/types"
)

// Server hosts the HTTP surface over one engine.
type Server struct {
	addr   string
	router *gin.Engine
	eng    *engine.Engine
}

// New builds the router and its routes.
func New(addr string, eng *engine.Engine) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	s := &Server{addr: addr, router: router, eng: eng}

	router.GET("/", s.handleRoot)
	router.POST("/login", s.handleLogin)
	router.POST("/chat", s.handleChat)
	router.POST("/execute_order", s.handleExecuteOrder)

	return s
}

// Router exposes the underlying router for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger tags every request with an id and logs method, path, status
// and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		logger.Info(c.Request.Context(), "HTTP request handled",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   "llm-trading-agent",
		"logged_in": s.eng.HasSession(),
	})
}

type loginRequest struct {
	ClientCode string `json:"client_code" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "client_code and password are required"})
		return
	}

	if err := s.eng.Login(c.Request.Context(), req.ClientCode, req.Password); err != nil {
		logger.ErrorWithErr(c.Request.Context(), "Login failed", err, "client_code", req.ClientCode)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "login failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "logged in"})
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "message is required"})
		return
	}

	// Cheap gate before any classification work happens.
	if !s.eng.HasSession() {
		c.JSON(http.StatusOK, types.Envelope{
			Status:  types.StatusError,
			Content: "Please log in first.",
			Type:    types.TypeError,
		})
		return
	}

	c.JSON(http.StatusOK, s.eng.Chat(c.Request.Context(), req.Message))
}

func (s *Server) handleExecuteOrder(c *gin.Context) {
	var params map[string]any
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid order payload"})
		return
	}

	if !s.eng.HasSession() {
		c.JSON(http.StatusUnauthorized, types.Envelope{
			Status:  types.StatusError,
			Content: "Please log in first.",
			Type:    types.TypeError,
		})
		return
	}

	env := s.eng.ExecuteOrder(c.Request.Context(), params)
	status := http.StatusOK
	if env.Status == types.StatusError {
		status = http.StatusBadRequest
	}
	c.JSON(status, env)
}
