package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"

	"github.com/haasonsaas/sentry/internal/toolregistry"
)

// ShellTool runs a single shell command. It is registered red: the
// runtime's per-invocation override (governance.ReclassifyShellRisk)
// is the only thing that can downgrade a given call, never the tool's
// registration.
type ShellTool struct {
	Shell string // defaults to "/bin/sh" when empty
}

type shellArgs struct {
	Command string `json:"command"`
}

// ShellSchema is the argument schema for ShellTool.
var ShellSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"command": {"type": "string", "description": "Shell command to run."}},
	"required": ["command"]
}`)

func (t *ShellTool) Invoke(ctx context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a shellArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	shell := t.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	cmd := exec.CommandContext(ctx, shell, "-c", a.Command)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	if err != nil {
		return toolregistry.Outcome{
			Status:   "error",
			Data:     strings.TrimSpace(errBuf.String() + "\n" + err.Error()),
			Metadata: map[string]any{"command": a.Command},
		}, nil
	}
	return toolregistry.Outcome{
		Status:   "success",
		Data:     out.String(),
		Metadata: map[string]any{"command": a.Command},
	}, nil
}
