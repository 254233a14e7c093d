package extension

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/codebridge/codebridge/internal/router"
)

// ErrNoAdapter reports that the client has no live extension connection
// (the editor extension is not running or never attached).
var ErrNoAdapter = errors.New("no adapter connected")

// Manager multiplexes per-client extension connections. It implements
// router.ExtensionSender for the outbound direction; inbound messages flow
// through the handler supplied at Connect time.
type Manager struct {
	addr   string
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*Client
}

func NewManager(addr string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		addr:    addr,
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

// Connect dials the extension socket for clientID and starts its read loop.
// Every decoded inbound message is handed to onMessage until the connection
// drops. An existing connection for the same client is replaced.
func (m *Manager) Connect(ctx context.Context, clientID string, onMessage func(router.Message)) error {
	c, err := Dial(ctx, m.addr, m.logger)
	if err != nil {
		return err
	}
	m.attach(clientID, c, onMessage)
	return nil
}

// Attach registers an already-open connection for clientID; used by tests.
func (m *Manager) Attach(clientID string, c *Client, onMessage func(router.Message)) {
	m.attach(clientID, c, onMessage)
}

func (m *Manager) attach(clientID string, c *Client, onMessage func(router.Message)) {
	m.mu.Lock()
	if prev, ok := m.clients[clientID]; ok {
		_ = prev.Close()
	}
	m.clients[clientID] = c
	m.mu.Unlock()

	go func() {
		err := c.ReadLoop(func(raw map[string]any) {
			onMessage(decodeMessage(raw))
		})
		if err != nil {
			m.logger.Warn("extension read loop ended", "client_id", clientID, "err", err)
		}
		// Only unregister our own connection; a replacement may already
		// own the slot.
		m.disconnectIf(clientID, c)
	}()

	m.logger.Info("registered extension connection", "client_id", clientID)
}

// Disconnect closes and forgets the client's connection. Idempotent.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	if ok {
		delete(m.clients, clientID)
	}
	m.mu.Unlock()
	if ok {
		_ = c.Close()
		m.logger.Info("unregistered extension connection", "client_id", clientID)
	}
}

// disconnectIf removes the registration only if c still owns the slot.
func (m *Manager) disconnectIf(clientID string, c *Client) {
	m.mu.Lock()
	cur, ok := m.clients[clientID]
	if ok && cur == c {
		delete(m.clients, clientID)
	} else {
		ok = false
	}
	m.mu.Unlock()
	if ok {
		_ = c.Close()
		m.logger.Info("unregistered extension connection", "client_id", clientID)
	}
}

// Connected reports whether the client currently has a live connection.
func (m *Manager) Connected(clientID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.clients[clientID]
	return ok
}

// SendToExtension implements router.ExtensionSender.
func (m *Manager) SendToExtension(ctx context.Context, clientID string, msg map[string]any) error {
	m.mu.Lock()
	c, ok := m.clients[clientID]
	m.mu.Unlock()
	if !ok {
		return ErrNoAdapter
	}
	return c.Send(ctx, msg)
}

// CloseAll tears down every connection; used at shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()
	for _, c := range clients {
		_ = c.Close()
	}
}

func decodeMessage(raw map[string]any) router.Message {
	msg := router.Message{}
	if t, ok := raw["type"].(string); ok {
		msg.Type = t
	}
	if d, ok := raw["data"].(map[string]any); ok {
		msg.Data = d
	} else {
		msg.Data = map[string]any{}
	}
	return msg
}
