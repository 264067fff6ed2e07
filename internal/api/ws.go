package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/luminachat/msgpipe/internal/segment"
	"github.com/luminachat/msgpipe/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

type wsFrame struct {
	Type    string                 `json:"type"` // "update", "done", "error"
	Turn    string                 `json:"turn,omitempty"`
	Text    string                 `json:"text,omitempty"`
	Message *segment.ParsedMessage `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// handleWebsocket runs a conversation loop over one connection: each
// inbound {"message": ...} starts a turn, and every streamed delta pushes
// an "update" frame with the full re-parsed snapshot. Starting a new turn
// aborts the previous stream (the orchestrator enforces that).
func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	connID := uuid.NewString()
	logger := log.WithField("conn", connID)
	defer func() {
		if errClose := conn.Close(); errClose != nil {
			logger.Debugf("websocket close: %v", errClose)
		}
	}()

	for {
		var req messageRequest
		if err = conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("websocket read: %v", err)
			}
			return
		}
		if req.Message == "" {
			_ = conn.WriteJSON(wsFrame{Type: "error", Error: "message is required"})
			continue
		}

		orch := s.orch.Load()
		result, errTurn := orch.StartTurn(c.Request.Context(), req.Message, func(update stream.Update) {
			msg := update.Message
			frame := wsFrame{Type: "update", Text: update.Text, Message: &msg}
			if errWrite := conn.WriteJSON(frame); errWrite != nil {
				logger.Debugf("websocket write: %v", errWrite)
			}
		})
		if errTurn != nil {
			logger.Warnf("turn failed: %v", errTurn)
			_ = conn.WriteJSON(wsFrame{Type: "error", Error: "the assistant is unavailable right now"})
			continue
		}

		msg := result.Message
		_ = conn.WriteJSON(wsFrame{Type: "done", Turn: result.ID, Text: result.Text, Message: &msg})
	}
}
