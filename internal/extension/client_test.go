package extension

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/codebridge/codebridge/internal/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend_OneLinePerMessageWithIncreasingID(t *testing.T) {
	ours, theirs := net.Pipe()
	c := NewClient(ours, testLogger())
	defer c.Close()
	defer theirs.Close()

	lines := make(chan map[string]any, 2)
	go func() {
		scanner := bufio.NewScanner(theirs)
		for scanner.Scan() {
			var m map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
				t.Errorf("line not valid json: %v", err)
				return
			}
			lines <- m
		}
	}()

	ctx := context.Background()
	if err := c.Send(ctx, map[string]any{"type": "newTask", "data": map[string]any{"prompt": "hi"}}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := c.Send(ctx, map[string]any{"type": "cancelTask"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	first := recvLine(t, lines)
	second := recvLine(t, lines)
	if first["id"] != "1" || second["id"] != "2" {
		t.Fatalf("ids = %v, %v; want \"1\", \"2\"", first["id"], second["id"])
	}
	if first["type"] != "newTask" || second["type"] != "cancelTask" {
		t.Fatalf("types = %v, %v", first["type"], second["type"])
	}
}

func TestSend_AfterCloseFails(t *testing.T) {
	ours, theirs := net.Pipe()
	defer theirs.Close()
	c := NewClient(ours, testLogger())
	c.Close()

	if err := c.Send(context.Background(), map[string]any{"type": "x"}); err == nil {
		t.Fatalf("expected error sending on closed client")
	}
}

func TestReadLoop_SkipsGarbageLines(t *testing.T) {
	ours, theirs := net.Pipe()
	c := NewClient(ours, testLogger())

	got := make(chan map[string]any, 4)
	done := make(chan error, 1)
	go func() {
		done <- c.ReadLoop(func(m map[string]any) { got <- m })
	}()

	input := "{\"type\":\"say\",\"data\":{\"text\":\"a\"}}\n" +
		"this is not json\n" +
		"\n" +
		"{\"type\":\"event\"}\n"
	if _, err := theirs.Write([]byte(input)); err != nil {
		t.Fatalf("write: %v", err)
	}

	first := recvLine(t, got)
	second := recvLine(t, got)
	if first["type"] != "say" || second["type"] != "event" {
		t.Fatalf("decoded = %v, %v", first, second)
	}

	c.Close()
	theirs.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("read loop after close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("read loop did not exit")
	}
}

func TestManager_SendWithoutConnection(t *testing.T) {
	m := NewManager("127.0.0.1:1", testLogger())
	err := m.SendToExtension(context.Background(), "client-a", map[string]any{"type": "x"})
	if !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("expected ErrNoAdapter, got %v", err)
	}
}

func TestManager_AttachRouteDisconnect(t *testing.T) {
	m := NewManager("unused", testLogger())
	ours, theirs := net.Pipe()
	defer theirs.Close()

	inbound := make(chan router.Message, 1)
	m.Attach("client-a", NewClient(ours, testLogger()), func(msg router.Message) {
		inbound <- msg
	})

	if !m.Connected("client-a") {
		t.Fatalf("client not connected after attach")
	}

	// outbound reaches the peer
	go func() {
		_ = m.SendToExtension(context.Background(), "client-a", map[string]any{"type": "newTask"})
	}()
	scanner := bufio.NewScanner(theirs)
	if !scanner.Scan() {
		t.Fatalf("peer read: %v", scanner.Err())
	}
	var out map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &out); err != nil {
		t.Fatalf("peer decode: %v", err)
	}
	if out["type"] != "newTask" {
		t.Fatalf("peer got %v", out)
	}

	// inbound is decoded into the router envelope
	if _, err := theirs.Write([]byte("{\"type\":\"ask\",\"data\":{\"ask_type\":\"command\"}}\n")); err != nil {
		t.Fatalf("peer write: %v", err)
	}
	msg := recvMsg(t, inbound)
	if msg.Type != "ask" || msg.Data["ask_type"] != "command" {
		t.Fatalf("inbound = %+v", msg)
	}

	// peer hangup tears the registration down
	theirs.Close()
	waitFor(t, func() bool { return !m.Connected("client-a") })

	if err := m.SendToExtension(context.Background(), "client-a", nil); !errors.Is(err, ErrNoAdapter) {
		t.Fatalf("expected ErrNoAdapter after hangup, got %v", err)
	}
}

func TestManager_AttachReplacesPrevious(t *testing.T) {
	m := NewManager("unused", testLogger())

	firstOurs, firstTheirs := net.Pipe()
	defer firstTheirs.Close()
	first := NewClient(firstOurs, testLogger())
	m.Attach("client-a", first, func(router.Message) {})

	secondOurs, secondTheirs := net.Pipe()
	defer secondTheirs.Close()
	m.Attach("client-a", NewClient(secondOurs, testLogger()), func(router.Message) {})

	if !first.closed.Load() {
		t.Fatalf("previous connection left open on replacement")
	}
	if !m.Connected("client-a") {
		t.Fatalf("replacement connection not registered")
	}
}

func recvLine(t *testing.T, ch chan map[string]any) map[string]any {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

func recvMsg(t *testing.T, ch chan router.Message) router.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message")
		return router.Message{}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition never became true")
}
