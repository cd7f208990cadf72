package observability

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger_RedactsSecretsInMessageAndArgs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Output: &buf, Format: "json"})

	log.Info(context.Background(), "token=sk-12345678901234567890 received", "detail", "password=hunter2123")

	out := buf.String()
	assert.NotContains(t, out, "sk-12345678901234567890")
	assert.NotContains(t, out, "hunter2123")
	assert.True(t, strings.Contains(out, "REDACTED"))
}

func TestLogger_WithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(LogConfig{Output: &buf, Format: "json"})
	ctx := context.WithValue(context.Background(), TaskIDKey, "task-123")

	log.WithContext(ctx).Info(ctx, "hello")
	assert.Contains(t, buf.String(), "task-123")
}
