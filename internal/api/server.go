// Package api exposes the message pipeline over HTTP: a JSON endpoint for
// complete turns and a websocket endpoint that pushes parsed-message
// snapshots as the streamed response grows.
package api

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/luminachat/msgpipe/internal/chat"
	"github.com/luminachat/msgpipe/internal/segment"
)

// Server routes pipeline requests. The orchestrator is swappable so a
// configuration reload can replace the provider chain without dropping
// the listener.
type Server struct {
	engine *gin.Engine
	orch   atomic.Pointer[chat.Orchestrator]
}

// New builds the HTTP server around an orchestrator.
func New(orch *chat.Orchestrator, debug bool) *Server {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{engine: gin.New()}
	s.orch.Store(orch)

	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.POST("/v1/messages", s.handleMessage)
	s.engine.GET("/v1/messages/ws", s.handleWebsocket)
	return s
}

// SetOrchestrator swaps the active orchestrator. In-flight turns keep the
// orchestrator they started with.
func (s *Server) SetOrchestrator(orch *chat.Orchestrator) {
	s.orch.Store(orch)
}

// Run serves until the listener fails.
func (s *Server) Run(addr string) error {
	log.WithField("addr", addr).Info("api server listening")
	return s.engine.Run(addr)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type messageResponse struct {
	ID      string                `json:"id"`
	Text    string                `json:"text"`
	Message segment.ParsedMessage `json:"message"`
	Refused bool                  `json:"refused,omitempty"`
	Usage   usagePayload          `json:"usage"`
}

type usagePayload struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	result, err := s.orch.Load().StartTurn(c.Request.Context(), req.Message, nil)
	if err != nil {
		log.Warnf("turn failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "the assistant is unavailable right now"})
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		ID:      result.ID,
		Text:    result.Text,
		Message: result.Message,
		Refused: result.Refused,
		Usage: usagePayload{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.PromptTokens + result.CompletionTokens,
		},
	})
}
