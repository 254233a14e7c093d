package router

import "context"

// WebSender delivers one message to a connected web client. At-most-once,
// no retry.
type WebSender interface {
	SendToWeb(ctx context.Context, clientID string, msg map[string]any) error
}

// ExtensionSender delivers one message to the editor extension connection
// belonging to a client. At-most-once, no retry.
type ExtensionSender interface {
	SendToExtension(ctx context.Context, clientID string, msg map[string]any) error
}

// EventSink receives audit events (task_started, approval_resolved,
// session_closed). Implementations must not block the router for long; a
// failed publish is logged and dropped.
type EventSink interface {
	Publish(ctx context.Context, event string, payload map[string]any) error
}

type nopSink struct{}

func (nopSink) Publish(context.Context, string, map[string]any) error { return nil }
