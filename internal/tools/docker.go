package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/haasonsaas/sentry/internal/toolregistry"
)

// ContainerListTool lists running containers. Read-only, no writes or
// spawns beyond the inspection call itself, so it defaults green.
type ContainerListTool struct{}

// ContainerListSchema takes no required arguments.
var ContainerListSchema = json.RawMessage(`{"type": "object", "properties": {}}`)

func (t *ContainerListTool) Invoke(ctx context.Context, _ json.RawMessage) (toolregistry.Outcome, error) {
	out, err := runDocker(ctx, "ps", "-a", "--format", "{{.Names}}\t{{.Status}}\t{{.Image}}")
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	return toolregistry.Outcome{Status: "success", Data: out}, nil
}

// ContainerRestartTool restarts a named container: a service-impacting
// action that can interrupt whatever that container was doing. Always
// red; it is never downgradable by the shell re-classification, which
// only applies to the shell/exec tools.
type ContainerRestartTool struct{}

type containerRestartArgs struct {
	Name string `json:"name"`
}

// ContainerRestartSchema is the argument schema for ContainerRestartTool.
var ContainerRestartSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"name": {"type": "string", "description": "Container name or id."}},
	"required": ["name"]
}`)

func (t *ContainerRestartTool) Invoke(ctx context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a containerRestartArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	out, err := runDocker(ctx, "restart", a.Name)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	return toolregistry.Outcome{Status: "success", Data: out, Metadata: map[string]any{"container": a.Name}}, nil
}

func runDocker(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("docker %s: %w: %s", strings.Join(args, " "), err, errBuf.String())
	}
	return out.String(), nil
}
