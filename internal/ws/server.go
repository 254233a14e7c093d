package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/codebridge/codebridge/internal/extension"
	"github.com/codebridge/codebridge/internal/router"
	"github.com/codebridge/codebridge/internal/session"
)

// Server owns the websocket endpoint: it ties a client connection to its
// session, its extension socket, and the router.
type Server struct {
	hub        *Hub
	sessions   *session.Table
	extensions *extension.Manager
	router     *router.Router
	events     router.EventSink
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

func NewServer(hub *Hub, sessions *session.Table, extensions *extension.Manager,
	rt *router.Router, events router.EventSink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		hub:        hub,
		sessions:   sessions,
		extensions: extensions,
		router:     rt,
		events:     events,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  8192,
			WriteBufferSize: 8192,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

// Handle serves GET /ws/:client_id.
func (s *Server) Handle(c *gin.Context) {
	clientID := c.Param("client_id")
	if clientID == "" {
		c.String(http.StatusBadRequest, "client_id required")
		return
	}

	wsConn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sess, err := s.sessions.Create(clientID)
	if err != nil {
		s.logger.Error("session create failed", "client_id", clientID, "err", err)
		_ = wsConn.Close()
		return
	}

	ctx := c.Request.Context()

	// The bridge stays useful without the editor side: connect the extension
	// socket if we can, and let the router report "no adapter connected"
	// per message otherwise.
	if err := s.extensions.Connect(ctx, clientID, func(msg router.Message) {
		s.router.RouteFromExtension(ctx, clientID, msg)
	}); err != nil {
		s.logger.Warn("client connected without adapter", "client_id", clientID, "err", err)
	}

	conn := s.hub.register(clientID, wsConn)
	s.logger.Info("client connected", "client_id", clientID, "session_id", sess.ID)

	defer func() {
		s.hub.unregister(clientID, conn)
		s.extensions.Disconnect(clientID)
		if closed, ok := s.sessions.CloseClient(clientID); ok {
			s.publishClosed(closed)
		}
		s.logger.Info("client disconnected", "client_id", clientID)
	}()

	wsConn.SetReadLimit(maxPayloadBytes)
	_ = wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := wsConn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg router.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			// Malformed envelope: report to this client only, keep the
			// connection up.
			_ = s.hub.SendToWeb(ctx, clientID, map[string]any{
				"type": "error",
				"data": map[string]any{"message": "invalid message envelope"},
			})
			continue
		}
		if msg.Data == nil {
			msg.Data = map[string]any{}
		}

		// Transport-level liveness check, answered without touching the router.
		if msg.Type == "ping" {
			_ = s.hub.SendToWeb(ctx, clientID, map[string]any{
				"type": "pong",
				"data": msg.Data,
			})
			continue
		}

		ack := s.router.RouteFromWeb(ctx, clientID, msg)
		if ack != nil {
			if err := s.hub.SendToWeb(ctx, clientID, ack); err != nil {
				s.logger.Warn("ack delivery failed", "client_id", clientID, "err", err)
			}
		}
	}
}

// publishClosed uses a fresh context: the request context is already torn
// down by the time the client disconnects.
func (s *Server) publishClosed(sess *session.Session) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.events.Publish(ctx, "session_closed", map[string]any{
		"session_id": sess.ID,
		"client_id":  sess.ClientID,
		"created_at": sess.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("audit publish failed", "event", "session_closed", "err", err)
	}
}
