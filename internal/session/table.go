package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/codebridge/codebridge/internal/common"
	"github.com/codebridge/codebridge/internal/provider"
)

// Table holds one live session per connected client plus that client's active
// provider configuration. All mutation is serialized under a single mutex so
// the timeout sweep cannot race a concurrent touch or create.
type Table struct {
	mu       sync.Mutex
	byID     map[string]*Session
	byClient map[string]*Session
	configs  map[string]provider.Config
	logger   *slog.Logger

	now func() time.Time
}

func NewTable(logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{
		byID:     make(map[string]*Session),
		byClient: make(map[string]*Session),
		configs:  make(map[string]provider.Config),
		logger:   logger,
		now:      time.Now,
	}
}

// Create makes a fresh session for clientID. Any existing session for the
// same client is dropped first: replacement, not merge, is the contract.
func (t *Table) Create(clientID string) (*Session, error) {
	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.byClient[clientID]; ok {
		prev.Active = false
		delete(t.byID, prev.ID)
	}

	now := t.now()
	s := &Session{
		ID:           id,
		ClientID:     clientID,
		CreatedAt:    now,
		LastActivity: now,
		Active:       true,
		Context:      make(map[string]any),
	}
	t.byID[id] = s
	t.byClient[clientID] = s
	return s.clone(), nil
}

// Get returns a snapshot of the session, if present.
func (t *Table) Get(sessionID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byID[sessionID]
	if !ok {
		return nil, false
	}
	return s.clone(), true
}

// Touch updates last-activity. Missing sessions are a no-op: touches race
// harmlessly with cleanup.
func (t *Table) Touch(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byID[sessionID]; ok {
		s.LastActivity = t.now()
	}
}

// TouchClient is Touch keyed by client id, used on every routed message.
func (t *Table) TouchClient(clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byClient[clientID]; ok {
		s.LastActivity = t.now()
	}
}

// Close clears the active flag. Idempotent.
func (t *Table) Close(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byID[sessionID]; ok {
		s.Active = false
	}
}

// CloseClient closes the client's session, if any, and returns its snapshot.
func (t *Table) CloseClient(clientID string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.byClient[clientID]
	if !ok {
		return nil, false
	}
	s.Active = false
	return s.clone(), true
}

// SetContext stores an ad hoc per-session value for the client.
func (t *Table) SetContext(clientID, key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.byClient[clientID]; ok {
		s.Context[key] = value
	}
}

// SetConfig replaces the client's active provider configuration wholesale.
func (t *Table) SetConfig(clientID string, cfg provider.Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.configs[clientID] = cfg
	if s, ok := t.byClient[clientID]; ok {
		s.Provider = cfg.Provider
	}
}

// Config returns the client's active provider configuration, if set.
func (t *Table) Config(clientID string) (provider.Config, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cfg, ok := t.configs[clientID]
	return cfg, ok
}

// CleanupInactive removes every session whose last activity is older than
// now-timeout and returns the removed snapshots. The scan and the deletes
// happen under one lock hold so a session touched after the cutoff cannot be
// removed.
func (t *Table) CleanupInactive(timeout time.Duration) []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-timeout)
	var removed []*Session
	for id, s := range t.byID {
		if s.LastActivity.Before(cutoff) {
			s.Active = false
			removed = append(removed, s.clone())
			delete(t.byID, id)
			delete(t.byClient, s.ClientID)
			delete(t.configs, s.ClientID)
		}
	}
	if len(removed) > 0 {
		t.logger.Info("swept inactive sessions", "count", len(removed))
	}
	return removed
}

// CleanupAll closes and removes every session. Used at shutdown.
func (t *Table) CleanupAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, s := range t.byID {
		s.Active = false
		delete(t.byID, id)
		delete(t.byClient, s.ClientID)
	}
	clear(t.configs)
}

// ListActive returns snapshots of sessions still flagged active.
func (t *Table) ListActive() []*Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Session, 0, len(t.byID))
	for _, s := range t.byID {
		if s.Active {
			out = append(out, s.clone())
		}
	}
	return out
}
