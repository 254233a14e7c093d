package router

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/codebridge/codebridge/internal/approval"
	"github.com/codebridge/codebridge/internal/provider"
	"github.com/codebridge/codebridge/internal/session"
)

// Message is the wire envelope in both directions.
type Message struct {
	Type   string           `json:"type"`
	Data   map[string]any   `json:"data"`
	Images []map[string]any `json:"images,omitempty"`
}

// Router translates between the web-client vocabulary and the extension
// ask/say/event vocabulary, keeping session and approval state as it goes.
// It is a boundary: no inbound message, however malformed, escapes it as a
// panic or error — failures become error envelopes for the originating side.
type Router struct {
	providers *provider.Registry
	sessions  *session.Table
	approvals *approval.Registry
	web       WebSender
	ext       ExtensionSender
	events    EventSink
	logger    *slog.Logger
}

func New(providers *provider.Registry, sessions *session.Table, approvals *approval.Registry,
	web WebSender, ext ExtensionSender, events EventSink, logger *slog.Logger) *Router {
	if events == nil {
		events = nopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		providers: providers,
		sessions:  sessions,
		approvals: approvals,
		web:       web,
		ext:       ext,
		events:    events,
		logger:    logger,
	}
}

// RouteFromWeb dispatches one web-client message and returns the
// acknowledgement to send back to that client.
func (r *Router) RouteFromWeb(ctx context.Context, clientID string, msg Message) map[string]any {
	r.logger.Debug("routing from web", "client_id", clientID, "type", msg.Type)
	r.sessions.TouchClient(clientID)

	switch msg.Type {
	case "newTask":
		return r.handleNewTask(ctx, clientID, msg)
	case "askResponse":
		return r.handleAskResponse(ctx, clientID, msg)
	case "saveApiConfiguration":
		return r.handleSaveConfig(ctx, clientID, msg)
	case "cancelTask":
		return r.forwardTaskControl(ctx, clientID, msg, "task_cancelled")
	case "resumeTask":
		return r.forwardTaskControl(ctx, clientID, msg, "task_resumed")
	default:
		// The extension-side vocabulary evolves independently; unknown types
		// pass through untouched.
		if err := r.ext.SendToExtension(ctx, clientID, map[string]any{
			"type": msg.Type,
			"data": msg.Data,
		}); err != nil {
			return r.errorAck(msg.Type, err)
		}
		return map[string]any{"status": "forwarded", "type": msg.Type}
	}
}

func (r *Router) handleNewTask(ctx context.Context, clientID string, msg Message) map[string]any {
	prompt, _ := msg.Data["prompt"].(string)

	configuration := map[string]any{}
	if _, hasProv := msg.Data["provider"]; hasProv {
		cfg, err := r.applyConfig(clientID, msg.Data)
		if err != nil {
			return r.errorAck(msg.Type, err)
		}
		configuration = cfg.ExtensionPayload()
	} else if _, hasModel := msg.Data["model"]; hasModel {
		cfg, err := r.applyConfig(clientID, msg.Data)
		if err != nil {
			return r.errorAck(msg.Type, err)
		}
		configuration = cfg.ExtensionPayload()
	} else if cfg, ok := r.sessions.Config(clientID); ok {
		configuration = cfg.ExtensionPayload()
	}

	taskData := map[string]any{
		"prompt":        prompt,
		"configuration": configuration,
	}
	if len(msg.Images) > 0 {
		taskData["images"] = processImages(r.logger, msg.Images)
	}

	if err := r.ext.SendToExtension(ctx, clientID, map[string]any{
		"type": "newTask",
		"data": taskData,
	}); err != nil {
		return r.errorAck(msg.Type, err)
	}

	r.publish(ctx, "task_started", map[string]any{"client_id": clientID})
	return map[string]any{"status": "task_started", "client_id": clientID}
}

func (r *Router) handleAskResponse(ctx context.Context, clientID string, msg Message) map[string]any {
	approvalID, _ := msg.Data["approval_id"].(string)
	approved, _ := msg.Data["approved"].(bool)

	res, err := r.approvals.Resolve(approvalID, approved)
	if err != nil {
		// Never forward a decision for an approval that was never registered.
		r.logger.Warn("approval resolution rejected", "client_id", clientID,
			"approval_id", approvalID, "err", err)
		return r.errorAck(msg.Type, err)
	}

	if err := r.ext.SendToExtension(ctx, res.ClientID, map[string]any{
		"type": "askResponse",
		"data": map[string]any{
			"approved":      approved,
			"response":      msg.Data["response"],
			"modifications": msg.Data["modifications"],
			"ask_type":      res.AskType,
		},
	}); err != nil {
		return r.errorAck(msg.Type, err)
	}

	r.publish(ctx, "approval_resolved", map[string]any{
		"client_id":   res.ClientID,
		"approval_id": approvalID,
		"ask_type":    res.AskType,
		"approved":    approved,
	})
	return map[string]any{"status": "response_sent", "approval_id": approvalID}
}

func (r *Router) handleSaveConfig(ctx context.Context, clientID string, msg Message) map[string]any {
	cfg, err := r.applyConfig(clientID, msg.Data)
	if err != nil {
		return r.errorAck(msg.Type, err)
	}
	if err := r.ext.SendToExtension(ctx, clientID, map[string]any{
		"type": "saveApiConfiguration",
		"data": cfg.ExtensionPayload(),
	}); err != nil {
		return r.errorAck(msg.Type, err)
	}
	return map[string]any{"status": "config_updated", "provider": cfg.Provider}
}

func (r *Router) forwardTaskControl(ctx context.Context, clientID string, msg Message, status string) map[string]any {
	// Task identifiers are opaque to the router; no local state changes.
	if err := r.ext.SendToExtension(ctx, clientID, map[string]any{
		"type": msg.Type,
		"data": map[string]any{"taskId": msg.Data["taskId"]},
	}); err != nil {
		return r.errorAck(msg.Type, err)
	}
	return map[string]any{"status": status}
}

// applyConfig normalizes a raw config and makes it the client's active one.
// On any error the session table is left untouched.
func (r *Router) applyConfig(clientID string, data map[string]any) (provider.Config, error) {
	var raw provider.RawConfig
	if err := mapstructure.WeakDecode(data, &raw); err != nil {
		return provider.Config{}, err
	}
	cfg, err := r.providers.FillDefaults(clientID, raw)
	if err != nil {
		return provider.Config{}, err
	}
	r.sessions.SetConfig(clientID, cfg)
	return cfg, nil
}

// RouteFromExtension dispatches one extension message toward the web client.
func (r *Router) RouteFromExtension(ctx context.Context, clientID string, msg Message) {
	r.logger.Debug("routing from extension", "client_id", clientID, "type", msg.Type)
	r.sessions.TouchClient(clientID)

	var err error
	switch msg.Type {
	case "ask":
		err = r.handleAsk(ctx, clientID, msg.Data)
	case "say":
		sayType := stringField(msg.Data, "say_type", "type")
		err = r.web.SendToWeb(ctx, clientID, map[string]any{
			"type":     "status_update",
			"say_type": sayType,
			"data":     msg.Data,
		})
	case "event":
		name, _ := msg.Data["name"].(string)
		data, _ := msg.Data["data"].(map[string]any)
		err = r.web.SendToWeb(ctx, clientID, map[string]any{
			"type":       "event",
			"event_name": name,
			"data":       data,
		})
	default:
		err = r.web.SendToWeb(ctx, clientID, map[string]any{
			"type": msg.Type,
			"data": msg.Data,
		})
	}

	if err != nil {
		r.logger.Error("failed to deliver extension message", "client_id", clientID,
			"type", msg.Type, "err", err)
		// Report back to the originating (extension) side; best effort.
		if sendErr := r.ext.SendToExtension(ctx, clientID, r.errorAck(msg.Type, err)); sendErr != nil {
			r.logger.Warn("failed to report delivery error to extension",
				"client_id", clientID, "err", sendErr)
		}
	}
}

func (r *Router) handleAsk(ctx context.Context, clientID string, data map[string]any) error {
	askType := stringField(data, "ask_type", "type")

	p := r.approvals.Register(clientID, askType, data)

	payload := map[string]any{
		"approval_id": p.ID,
		"ask_type":    askType,
		"data":        approval.FormatForDisplay(askType, data),
	}
	if askType == approval.AskFollowup {
		if options, ok := data["options"]; ok {
			payload["options"] = options
			allowText := true
			if v, ok := data["allow_text_response"].(bool); ok {
				allowText = v
			}
			payload["allow_text_response"] = allowText
		}
	}

	return r.web.SendToWeb(ctx, clientID, map[string]any{
		"type": "approval_required",
		"data": payload,
	})
}

// errorAck builds the error envelope sent back to the originating side. It
// names the failing message type and a human-readable reason, nothing else.
func (r *Router) errorAck(msgType string, err error) map[string]any {
	return map[string]any{
		"type": "error",
		"data": map[string]any{
			"message": err.Error(),
			"request": msgType,
		},
	}
}

func (r *Router) publish(ctx context.Context, event string, payload map[string]any) {
	if err := r.events.Publish(ctx, event, payload); err != nil {
		r.logger.Warn("audit publish failed", "event", event, "err", err)
	}
}

// stringField returns the first non-empty string among the named keys.
func stringField(data map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := data[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// IsClientError reports whether err is a bad-request class failure rather
// than an infrastructure one.
func IsClientError(err error) bool {
	return errors.Is(err, provider.ErrUnknownProvider) ||
		errors.Is(err, approval.ErrUnknownApproval) ||
		errors.Is(err, approval.ErrAlreadyResolved)
}
