package session

import (
	"maps"
	"time"
)

// Session is the bookkeeping record for one connected web client.
type Session struct {
	ID           string         `json:"session_id"`
	ClientID     string         `json:"client_id"`
	CreatedAt    time.Time      `json:"created_at"`
	LastActivity time.Time      `json:"last_activity"`
	Active       bool           `json:"active"`
	Context      map[string]any `json:"context"`
	Provider     string         `json:"provider,omitempty"`
}

func (s *Session) clone() *Session {
	cp := *s
	cp.Context = maps.Clone(s.Context)
	return &cp
}
