package approval

import (
	"maps"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
)

// Well-known ask subtypes. Anything else is carried through as-is.
const (
	AskFollowup = "followup"
	AskCommand  = "command"
	AskTool     = "tool"
)

// Pending correlates an outbound approval request with its eventual response.
type Pending struct {
	ID          string         `json:"approval_id"`
	ClientID    string         `json:"client_id"`
	AskType     string         `json:"ask_type"`
	Data        map[string]any `json:"data"`
	CreatedAt   time.Time      `json:"created_at"`
	Status      Status         `json:"status"`
	RespondedAt *time.Time     `json:"responded_at,omitempty"`
}

func (p *Pending) clone() *Pending {
	cp := *p
	cp.Data = maps.Clone(p.Data)
	if p.RespondedAt != nil {
		t := *p.RespondedAt
		cp.RespondedAt = &t
	}
	return &cp
}

// FormatForDisplay produces the human-facing payload for an ask. Pure
// formatting: unknown subtypes fall through to a raw passthrough.
func FormatForDisplay(askType string, data map[string]any) map[string]any {
	formatted := map[string]any{
		"type":      askType,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	switch askType {
	case AskCommand:
		command, _ := data["command"].(string)
		cwd, _ := data["cwd"].(string)
		formatted["command"] = command
		formatted["working_directory"] = cwd
		formatted["description"] = "Execute command: " + command
	case AskTool:
		tool, _ := data["tool"].(string)
		formatted["tool"] = tool
		formatted["parameters"] = data["parameters"]
		formatted["description"] = "Use tool: " + tool
	case AskFollowup:
		formatted["question"] = data["question"]
		formatted["context"] = data["context"]
		formatted["options"] = data["options"]
	default:
		maps.Copy(formatted, data)
	}
	return formatted
}
