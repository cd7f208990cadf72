package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/internal/authbroker"
)

func TestCheckAuthTool_ReadyAndNeedAction(t *testing.T) {
	const key = "SENTRY_TOOLS_TEST_AUTH_VAR"
	t.Setenv(key, "")
	broker := authbroker.New()
	broker.Register("ci", authbroker.EnvVault{VarName: key})
	tool := NewCheckAuthTool(broker)

	args, _ := json.Marshal(checkAuthArgs{Identity: "ci"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "need_action", out.Metadata["auth_status"])

	t.Setenv(key, "value")
	out, err = tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "ready", out.Metadata["auth_status"])
}

func TestCheckAuthTool_UnknownIdentityIsError(t *testing.T) {
	tool := NewCheckAuthTool(authbroker.New())
	args, _ := json.Marshal(checkAuthArgs{Identity: "nope"})
	out, err := tool.Invoke(context.Background(), args)
	require.NoError(t, err)
	assert.Equal(t, "error", out.Status)
}
