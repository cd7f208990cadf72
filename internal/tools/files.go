package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/sentry/internal/toolregistry"
)

// WriteFileConfig scopes the write tool to a workspace root.
type WriteFileConfig struct {
	Workspace string
}

// WriteFileTool writes a file's full contents within the workspace.
// Writes are local-filesystem only, hence yellow by default: they
// mutate durable state but cannot restart services or run arbitrary
// code on their own.
type WriteFileTool struct {
	resolver Resolver
}

// NewWriteFileTool builds a WriteFileTool scoped to cfg.Workspace.
func NewWriteFileTool(cfg WriteFileConfig) *WriteFileTool {
	return &WriteFileTool{resolver: Resolver{Root: cfg.Workspace}}
}

type writeFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// WriteFileSchema is the JSON schema the registry validates arguments
// against before Governance ever sees the call.
var WriteFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"path": {"type": "string", "description": "Workspace-relative file path."},
		"content": {"type": "string", "description": "Full file contents."}
	},
	"required": ["path", "content"]
}`)

func (t *WriteFileTool) Invoke(_ context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a writeFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	abs, err := t.resolver.Resolve(a.Path)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	if err := os.WriteFile(abs, []byte(a.Content), 0o644); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	return toolregistry.Outcome{
		Status:   "success",
		Data:     fmt.Sprintf("wrote %d bytes to %s", len(a.Content), a.Path),
		Metadata: map[string]any{"path": a.Path, "bytes": len(a.Content)},
	}, nil
}

// ReadFileTool reads a file's contents within the workspace. Read-only
// filesystem access never writes or spawns, so it defaults green.
type ReadFileTool struct {
	resolver Resolver
}

// NewReadFileTool builds a ReadFileTool scoped to cfg.Workspace.
func NewReadFileTool(cfg WriteFileConfig) *ReadFileTool {
	return &ReadFileTool{resolver: Resolver{Root: cfg.Workspace}}
}

type readFileArgs struct {
	Path string `json:"path"`
}

// ReadFileSchema is the argument schema for ReadFileTool.
var ReadFileSchema = json.RawMessage(`{
	"type": "object",
	"properties": {"path": {"type": "string"}},
	"required": ["path"]
}`)

func (t *ReadFileTool) Invoke(_ context.Context, args json.RawMessage) (toolregistry.Outcome, error) {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	abs, err := t.resolver.Resolve(a.Path)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return toolregistry.Outcome{Status: "error", Data: err.Error()}, nil
	}
	return toolregistry.Outcome{Status: "success", Data: string(b)}, nil
}
