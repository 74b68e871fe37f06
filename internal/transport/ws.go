package transport

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Consoles are served from a separate origin
	CheckOrigin: func(*http.Request) bool { return true },
}

var jsonFenceRe = regexp.MustCompile("(?m)^```json\\s*|\\s*```$")

const previewMarker = `{"type": "invoice_preview"`

// ExtractPreview strips assistant chatter around a reply so the consoles
// receive clean JSON: any leading thinking block, markdown code fences, and
// trailing prose after an embedded invoice_preview object.
func ExtractPreview(s string) string {
	if idx := strings.Index(s, "</thinking>"); idx >= 0 {
		s = s[idx+len("</thinking>"):]
	}
	s = strings.TrimSpace(jsonFenceRe.ReplaceAllString(s, ""))

	if idx := strings.Index(s, previewMarker); idx >= 0 {
		s = s[idx:]
		if last := strings.LastIndex(s, "}"); last >= 0 {
			s = s[:last+1]
		}
	}
	return s
}

// handleChat upgrades the connection and relays messages to the assistant
// until the peer disconnects. Each connection gets its own session id.
func (s *Server) handleChat(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			s.logger.Error("Websocket upgrade failed",
				zap.String("role", role),
				zap.Error(err))
			return
		}
		defer conn.Close()

		session := fmt.Sprintf("%s-%s", role, uuid.NewString())
		s.logger.Info("Chat session opened", zap.String("session", session))

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				s.logger.Info("Chat session closed",
					zap.String("session", session),
					zap.Error(err))
				return
			}

			reply := s.assistant.HandleMessage(c.Request.Context(), session, string(msg))
			reply = ExtractPreview(reply)

			if err := conn.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
				s.logger.Warn("Failed to write chat reply",
					zap.String("session", session),
					zap.Error(err))
				return
			}
		}
	}
}
