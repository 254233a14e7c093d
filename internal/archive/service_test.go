package archive

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codebridge/codebridge/internal/store/rabbitmq"
)

func testService(t *testing.T) (*Service, *Repo) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := NewRepo(db)
	return NewService(repo), repo
}

func TestHandleEvent_SessionClosed(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	opened := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	closed := opened.Add(20 * time.Minute)

	err := svc.HandleEvent(ctx, rabbitmq.EventMessage{
		Event: "session_closed",
		Payload: map[string]any{
			"session_id": "01J0000000000000000000XYZA",
			"client_id":  "client-a",
			"provider":   "anthropic",
			"created_at": opened.Format(time.RFC3339Nano),
		},
		At: closed,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	var rec SessionRecord
	if err := repo.db.First(&rec, "session_id = ?", "01J0000000000000000000XYZA").Error; err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.ClientID != "client-a" || rec.Provider != "anthropic" {
		t.Fatalf("record = %+v", rec)
	}
	if !rec.OpenedAt.Equal(opened) || !rec.ClosedAt.Equal(closed) {
		t.Fatalf("timestamps = opened %v closed %v", rec.OpenedAt, rec.ClosedAt)
	}

	events, err := repo.ListRecentEvents(ctx, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %v err = %v", events, err)
	}
}

func TestHandleEvent_ApprovalResolvedDuplicateIgnored(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	msg := rabbitmq.EventMessage{
		Event: "approval_resolved",
		Payload: map[string]any{
			"approval_id": "5f3a0c3e-0000-0000-0000-000000000001",
			"client_id":   "client-a",
			"ask_type":    "command",
			"approved":    true,
		},
		At: time.Now().UTC(),
	}

	// queue redelivery: the same event lands twice
	if err := svc.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := svc.HandleEvent(ctx, msg); err != nil {
		t.Fatalf("redelivery must not error: %v", err)
	}

	approvals, err := repo.ListApprovalsByClient(ctx, "client-a", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(approvals) != 1 {
		t.Fatalf("approvals = %d, want 1 (duplicate ignored)", len(approvals))
	}
	if !approvals[0].Approved || approvals[0].AskType != "command" {
		t.Fatalf("record = %+v", approvals[0])
	}

	// the raw event row is kept for both deliveries
	events, err := repo.ListRecentEvents(ctx, 10)
	if err != nil || len(events) != 2 {
		t.Fatalf("events = %d err = %v", len(events), err)
	}
}

func TestHandleEvent_GenericEventOnlyGetsRawRow(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	err := svc.HandleEvent(ctx, rabbitmq.EventMessage{
		Event:   "task_started",
		Payload: map[string]any{"client_id": "client-a"},
		At:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	events, err := repo.ListRecentEvents(ctx, 10)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %v err = %v", events, err)
	}
	if events[0].Event != "task_started" {
		t.Fatalf("event = %+v", events[0])
	}

	var count int64
	repo.db.Model(&SessionRecord{}).Count(&count)
	if count != 0 {
		t.Fatalf("generic event created a session row")
	}
}

func TestListRecentEvents_LimitAndOrder(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := svc.HandleEvent(ctx, rabbitmq.EventMessage{
			Event:   "task_started",
			Payload: map[string]any{"n": i},
			At:      time.Now().UTC(),
		}); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}

	events, err := repo.ListRecentEvents(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].ID < events[1].ID {
		t.Fatalf("not newest first: %v", events)
	}
}
