package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxPayloadBytes = 1 << 20
	pongWait        = 45 * time.Second
	writeWait       = 10 * time.Second
	pingInterval    = 15 * time.Second
	sendBufferSize  = 64
)

// ErrClientGone reports that no live web connection exists for a client.
var ErrClientGone = errors.New("web client not connected")

type connection struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Hub tracks live web-client connections keyed by client id and implements
// the router's WebSender. Sends are at-most-once: a full buffer or a missing
// client is an error, never a retry.
type Hub struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[string]*connection
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{logger: logger, conns: make(map[string]*connection)}
}

func (h *Hub) register(clientID string, ws *websocket.Conn) *connection {
	c := &connection{
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if prev, ok := h.conns[clientID]; ok {
		prev.close()
	}
	h.conns[clientID] = c
	h.mu.Unlock()

	go c.writeLoop()
	return c
}

func (h *Hub) unregister(clientID string, c *connection) {
	h.mu.Lock()
	if cur, ok := h.conns[clientID]; ok && cur == c {
		delete(h.conns, clientID)
	}
	h.mu.Unlock()
	c.close()
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

// SendToWeb implements router.WebSender.
func (h *Hub) SendToWeb(_ context.Context, clientID string, msg map[string]any) error {
	h.mu.Lock()
	c, ok := h.conns[clientID]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientGone, clientID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	default:
		return fmt.Errorf("send buffer full for client %s", clientID)
	}
}

// ConnectedCount reports live web connections, for health reporting.
func (h *Hub) ConnectedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
