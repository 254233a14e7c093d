package session

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/codebridge/codebridge/internal/provider"
)

func testTable() *Table {
	return NewTable(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreate_ReplacesExisting(t *testing.T) {
	tbl := testTable()

	first, err := tbl.Create("client-a")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := tbl.Create("client-a")
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a fresh session id on replacement")
	}
	if _, ok := tbl.Get(first.ID); ok {
		t.Fatalf("replaced session still present")
	}
	if got, ok := tbl.Get(second.ID); !ok || got.ClientID != "client-a" || !got.Active {
		t.Fatalf("second session wrong: %+v ok=%v", got, ok)
	}
}

func TestTouch_MissingIsNoop(t *testing.T) {
	tbl := testTable()
	tbl.Touch("no-such-session") // must not panic or error
	tbl.TouchClient("no-such-client")
}

func TestClose_Idempotent(t *testing.T) {
	tbl := testTable()
	s, _ := tbl.Create("client-a")
	tbl.Close(s.ID)
	tbl.Close(s.ID)
	got, ok := tbl.Get(s.ID)
	if !ok || got.Active {
		t.Fatalf("expected inactive session, got %+v ok=%v", got, ok)
	}
}

func TestCleanupInactive_RemovesOnlyStale(t *testing.T) {
	tbl := testTable()

	base := time.Now()
	tbl.now = func() time.Time { return base }

	stale, _ := tbl.Create("stale-client")
	fresh, _ := tbl.Create("fresh-client")

	// stale goes quiet; fresh is touched just inside the window
	tbl.now = func() time.Time { return base.Add(25 * time.Minute) }
	tbl.TouchClient("fresh-client")

	tbl.now = func() time.Time { return base.Add(31 * time.Minute) }
	removed := tbl.CleanupInactive(30 * time.Minute)

	if len(removed) != 1 || removed[0].ID != stale.ID {
		t.Fatalf("removed = %+v, want only stale session", removed)
	}
	if _, ok := tbl.Get(stale.ID); ok {
		t.Fatalf("stale session still present")
	}
	if _, ok := tbl.Get(fresh.ID); !ok {
		t.Fatalf("fresh session was removed")
	}
}

func TestCleanupInactive_TouchBeatsSweep(t *testing.T) {
	tbl := testTable()

	base := time.Now()
	tbl.now = func() time.Time { return base }
	s, _ := tbl.Create("client-a")

	// A touch that happens before the sweep's scan must prevent removal.
	tbl.now = func() time.Time { return base.Add(time.Hour) }
	tbl.TouchClient("client-a")
	removed := tbl.CleanupInactive(30 * time.Minute)

	if len(removed) != 0 {
		t.Fatalf("touched session was swept: %+v", removed)
	}
	if _, ok := tbl.Get(s.ID); !ok {
		t.Fatalf("session missing after sweep")
	}
}

func TestCleanupAll(t *testing.T) {
	tbl := testTable()
	tbl.Create("a")
	tbl.Create("b")
	tbl.SetConfig("a", provider.Config{Provider: "openai"})

	tbl.CleanupAll()

	if got := tbl.ListActive(); len(got) != 0 {
		t.Fatalf("expected no active sessions, got %d", len(got))
	}
	if _, ok := tbl.Config("a"); ok {
		t.Fatalf("config survived CleanupAll")
	}
}

func TestListActive_ExcludesClosed(t *testing.T) {
	tbl := testTable()
	a, _ := tbl.Create("a")
	tbl.Create("b")
	tbl.Close(a.ID)

	active := tbl.ListActive()
	if len(active) != 1 || active[0].ClientID != "b" {
		t.Fatalf("active = %+v", active)
	}
}

func TestSetConfig_ReplacedWholesale(t *testing.T) {
	tbl := testTable()
	tbl.Create("a")

	tbl.SetConfig("a", provider.Config{Provider: "openai", Model: "gpt-4", APIKey: "k"})
	tbl.SetConfig("a", provider.Config{Provider: "anthropic", Model: "claude-3-opus"})

	cfg, ok := tbl.Config("a")
	if !ok {
		t.Fatalf("config missing")
	}
	if cfg.Provider != "anthropic" || cfg.APIKey != "" {
		t.Fatalf("config not replaced wholesale: %+v", cfg)
	}

	s, _ := tbl.Get(mustSessionID(t, tbl, "a"))
	if s.Provider != "anthropic" {
		t.Fatalf("session provider = %q", s.Provider)
	}
}

func mustSessionID(t *testing.T, tbl *Table, clientID string) string {
	t.Helper()
	for _, s := range tbl.ListActive() {
		if s.ClientID == clientID {
			return s.ID
		}
	}
	t.Fatalf("no active session for %s", clientID)
	return ""
}
