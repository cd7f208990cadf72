package tools

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/sentry/internal/authbroker"
	"github.com/haasonsaas/sentry/internal/toolregistry"
)

// CheckAuthTool exposes the Auth Broker's detect-and-instruct contract
// to agents: it only reports whether a named identity's credentials
// are already available, never accepts or returns one. Read-only
// detection, so it defaults green.
type CheckAuthTool struct {
	Broker *authbroker.Broker
}

// NewCheckAuthTool builds a CheckAuthTool backed by broker.
func NewCheckAuthTool(broker *authbroker.Broker) *CheckAuthTool {
	return &CheckAuthTool{Broker: broker}
}

type checkAuthArgs struct {
	Identity string `json:"identity"`
}

// CheckAuthSchema is the argument schema for CheckAuthTool.
var CheckAuthSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"identity": {"type": "string", "description": "Named identity to check, as configured under identities."}},
	"required": ["identity"]
}`)

func (t *CheckAuthTool) Invoke(ctx context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a checkAuthArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	result, err := t.Broker.Require(ctx, a.Identity)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	body, _ := json.Marshal(result)
	return toolregistry.Outcome{
		Status:   "success",
		Data:     string(body),
		Metadata: map[string]any{"identity": a.Identity, "auth_status": string(result.Status)},
	}, nil
}
