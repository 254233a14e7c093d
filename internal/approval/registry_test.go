package approval

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterAndResolve_Once(t *testing.T) {
	reg := testRegistry()

	p := reg.Register("client-a", AskCommand, map[string]any{"command": "ls"})
	if p.ID == "" || p.Status != StatusPending {
		t.Fatalf("bad pending record: %+v", p)
	}

	res, err := reg.Resolve(p.ID, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.ClientID != "client-a" || res.AskType != AskCommand || !res.Approved {
		t.Fatalf("resolution = %+v", res)
	}

	// second resolution must fail, not crash and not transition again
	if _, err := reg.Resolve(p.ID, false); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	got, ok := reg.Get(p.ID)
	if !ok || got.Status != StatusApproved || got.RespondedAt == nil {
		t.Fatalf("stored record = %+v ok=%v", got, ok)
	}
}

func TestResolve_UnknownID(t *testing.T) {
	reg := testRegistry()
	if _, err := reg.Resolve("never-issued", true); !errors.Is(err, ErrUnknownApproval) {
		t.Fatalf("expected ErrUnknownApproval, got %v", err)
	}
}

func TestResolve_Denied(t *testing.T) {
	reg := testRegistry()
	p := reg.Register("client-a", AskTool, map[string]any{"tool": "write_file"})
	res, err := reg.Resolve(p.ID, false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Approved {
		t.Fatalf("expected denied resolution")
	}
	got, _ := reg.Get(p.ID)
	if got.Status != StatusDenied {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestSweepResolved_EvictsPastRetention(t *testing.T) {
	reg := testRegistry()

	base := time.Now()
	reg.now = func() time.Time { return base }

	old := reg.Register("client-a", AskFollowup, nil)
	if _, err := reg.Resolve(old.ID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	reg.now = func() time.Time { return base.Add(30 * time.Minute) }
	recent := reg.Register("client-a", AskFollowup, nil)
	if _, err := reg.Resolve(recent.ID, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	stillPending := reg.Register("client-a", AskCommand, nil)

	reg.now = func() time.Time { return base.Add(70 * time.Minute) }
	evicted := reg.SweepResolved(time.Hour)

	if len(evicted) != 1 || evicted[0].ID != old.ID {
		t.Fatalf("evicted = %+v, want only the old resolved entry", evicted)
	}
	if _, ok := reg.Get(recent.ID); !ok {
		t.Fatalf("recently resolved entry evicted too early")
	}
	if _, ok := reg.Get(stillPending.ID); !ok {
		t.Fatalf("pending entry evicted")
	}
}

func TestFormatForDisplay(t *testing.T) {
	cmd := FormatForDisplay(AskCommand, map[string]any{"command": "rm -rf build", "cwd": "/src"})
	if cmd["command"] != "rm -rf build" || cmd["working_directory"] != "/src" {
		t.Fatalf("command format = %v", cmd)
	}
	if cmd["description"] != "Execute command: rm -rf build" {
		t.Fatalf("description = %v", cmd["description"])
	}

	tool := FormatForDisplay(AskTool, map[string]any{"tool": "apply_diff", "parameters": map[string]any{"path": "a.go"}})
	if tool["tool"] != "apply_diff" || tool["description"] != "Use tool: apply_diff" {
		t.Fatalf("tool format = %v", tool)
	}

	fu := FormatForDisplay(AskFollowup, map[string]any{"question": "which?", "context": "c", "options": []any{"A", "B"}})
	if fu["question"] != "which?" {
		t.Fatalf("followup format = %v", fu)
	}

	// unknown subtypes pass the raw payload through
	other := FormatForDisplay("browser_action_launch", map[string]any{"url": "http://x"})
	if other["url"] != "http://x" || other["type"] != "browser_action_launch" {
		t.Fatalf("passthrough format = %v", other)
	}
}
