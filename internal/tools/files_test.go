package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileTool_WritesWithinWorkspace(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(WriteFileConfig{Workspace: dir})

	args, _ := json.Marshal(writeFileArgs{Path: "nested/out.txt", Content: "hello"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)

	b, err := os.ReadFile(filepath.Join(dir, "nested/out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))
}

func TestWriteFileTool_RejectsEscapingPath(t *testing.T) {
	dir := t.TempDir()
	tool := NewWriteFileTool(WriteFileConfig{Workspace: dir})

	args, _ := json.Marshal(writeFileArgs{Path: "../escape.txt", Content: "x"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
}

func TestReadFileTool_ReadsBackWrittenContent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("payload"), 0o644))

	tool := NewReadFileTool(WriteFileConfig{Workspace: dir})
	args, _ := json.Marshal(readFileArgs{Path: "in.txt"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "payload", out.Data)
}

func TestReadFileTool_MissingFileIsError(t *testing.T) {
	dir := t.TempDir()
	tool := NewReadFileTool(WriteFileConfig{Workspace: dir})
	args, _ := json.Marshal(readFileArgs{Path: "nope.txt"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
}
