package approval

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnknownApproval reports a resolution for a never-registered id:
	// a stale, replayed, or spoofed identifier.
	ErrUnknownApproval = errors.New("unknown approval id")
	// ErrAlreadyResolved reports a second resolution attempt.
	ErrAlreadyResolved = errors.New("approval already resolved")
)

// Resolution is what Resolve hands back so the caller can forward the
// decision downstream.
type Resolution struct {
	ClientID string
	AskType  string
	Approved bool
}

// Registry tracks in-flight approval requests keyed by generated id.
// Resolved entries are retained for audit until the sweep evicts them.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Pending
	logger  *slog.Logger

	now func() time.Time
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*Pending),
		logger:  logger,
		now:     time.Now,
	}
}

// Register stores a new pending approval and returns the full record. The id
// is a fresh uuid so the web client can echo it back unambiguously.
func (r *Registry) Register(clientID, askType string, data map[string]any) *Pending {
	p := &Pending{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		AskType:   askType,
		Data:      maps.Clone(data),
		CreatedAt: r.now(),
		Status:    StatusPending,
	}

	r.mu.Lock()
	r.entries[p.ID] = p
	r.mu.Unlock()

	return p.clone()
}

// Get returns a snapshot of the approval, if known.
func (r *Registry) Get(approvalID string) (*Pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.entries[approvalID]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Resolve transitions a pending approval to approved or denied. The check and
// the transition happen under one lock hold: no two concurrent resolutions of
// the same id can both succeed.
func (r *Registry) Resolve(approvalID string, approved bool) (Resolution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[approvalID]
	if !ok {
		return Resolution{}, fmt.Errorf("%w: %s", ErrUnknownApproval, approvalID)
	}
	if p.Status != StatusPending {
		return Resolution{}, fmt.Errorf("%w: %s", ErrAlreadyResolved, approvalID)
	}

	if approved {
		p.Status = StatusApproved
	} else {
		p.Status = StatusDenied
	}
	t := r.now()
	p.RespondedAt = &t

	return Resolution{ClientID: p.ClientID, AskType: p.AskType, Approved: approved}, nil
}

// SweepResolved evicts resolved entries older than retention, and pending
// entries whose client is long gone (a departed client can never answer).
// Returns the evicted snapshots for audit mirroring.
func (r *Registry) SweepResolved(retention time.Duration) []*Pending {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-retention)
	var evicted []*Pending
	for id, p := range r.entries {
		stamp := p.CreatedAt
		if p.RespondedAt != nil {
			stamp = *p.RespondedAt
		} else if p.Status == StatusPending {
			// Pending entries get a much longer leash than resolved ones.
			stamp = p.CreatedAt.Add(retention)
		}
		if stamp.Before(cutoff) {
			evicted = append(evicted, p.clone())
			delete(r.entries, id)
		}
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted approvals past retention", "count", len(evicted))
	}
	return evicted
}

// PendingCount reports how many entries are still awaiting resolution.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, p := range r.entries {
		if p.Status == StatusPending {
			n++
		}
	}
	return n
}
