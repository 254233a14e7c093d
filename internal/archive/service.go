package archive

import (
	"context"
	"encoding/json"
	"time"

	"github.com/codebridge/codebridge/internal/store/rabbitmq"
)

// Service turns queue events into archive rows. Every event lands in
// bridge_events; session_closed and approval_resolved additionally get their
// typed rows.
type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) HandleEvent(ctx context.Context, m rabbitmq.EventMessage) error {
	payload, err := json.Marshal(m.Payload)
	if err != nil {
		return err
	}
	if err := s.repo.InsertEvent(ctx, &EventRecord{
		Event:      m.Event,
		Payload:    string(payload),
		OccurredAt: m.At,
	}); err != nil {
		return err
	}

	switch m.Event {
	case "session_closed":
		rec := &SessionRecord{
			SessionID: str(m.Payload, "session_id"),
			ClientID:  str(m.Payload, "client_id"),
			Provider:  str(m.Payload, "provider"),
			ClosedAt:  m.At,
		}
		if t, ok := m.Payload["created_at"].(string); ok {
			if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
				rec.OpenedAt = parsed
			}
		}
		return s.repo.InsertSession(ctx, rec)
	case "approval_resolved":
		approved, _ := m.Payload["approved"].(bool)
		return s.repo.InsertApproval(ctx, &ApprovalRecord{
			ApprovalID: str(m.Payload, "approval_id"),
			ClientID:   str(m.Payload, "client_id"),
			AskType:    str(m.Payload, "ask_type"),
			Approved:   approved,
			ResolvedAt: m.At,
		})
	}
	return nil
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}
