package toolregistry

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

type echoHandler struct{}

func (echoHandler) Invoke(ctx context.Context, args json.RawMessage) (Outcome, error) {
	return Outcome{Status: "success", Data: string(args)}, nil
}

type blockingHandler struct{ delay time.Duration }

func (h blockingHandler) Invoke(ctx context.Context, args json.RawMessage) (Outcome, error) {
	select {
	case <-time.After(h.delay):
		return Outcome{Status: "success"}, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func TestRegisterAndLookup(t *testing.T) {
	r := New(time.Second)
	err := r.Register(orchtypes.ToolSpec{Name: "echo", Risk: orchtypes.RiskGreen}, echoHandler{}, false)
	require.NoError(t, err)

	spec, ok := r.Lookup("echo")
	require.True(t, ok)
	assert.Equal(t, orchtypes.RiskGreen, spec.Risk)
}

func TestRegister_DynamicForcesRed(t *testing.T) {
	r := New(time.Second)
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "bridged", Risk: orchtypes.RiskGreen}, echoHandler{}, true))

	spec, ok := r.Lookup("bridged")
	require.True(t, ok)
	assert.Equal(t, orchtypes.RiskRed, spec.Risk)
}

func TestValidate_SchemaPassAndFail(t *testing.T) {
	r := New(time.Second)
	schema := json.RawMessage(`{
		"type": "object",
		"properties": {"path": {"type": "string"}},
		"required": ["path"]
	}`)
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "read_file", InputSchema: schema}, echoHandler{}, false))

	_, err := r.Validate("read_file", json.RawMessage(`{"path": "a.txt"}`))
	assert.NoError(t, err)

	_, err = r.Validate("read_file", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestValidate_UnknownTool(t *testing.T) {
	r := New(time.Second)
	_, err := r.Validate("nope", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestInvoke_Success(t *testing.T) {
	r := New(time.Second)
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "echo"}, echoHandler{}, false))

	out, err := r.Invoke(context.Background(), "echo", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
}

func TestInvoke_Timeout(t *testing.T) {
	r := New(20 * time.Millisecond)
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "slow"}, blockingHandler{delay: time.Second}, false))

	out, err := r.Invoke(context.Background(), "slow", json.RawMessage(`{}`))
	assert.Error(t, err)
	assert.Equal(t, "error", out.Status)
}

func TestList_Filter(t *testing.T) {
	r := New(time.Second)
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "a", Risk: orchtypes.RiskGreen}, echoHandler{}, false))
	require.NoError(t, r.Register(orchtypes.ToolSpec{Name: "b", Risk: orchtypes.RiskRed}, echoHandler{}, false))

	red := r.List(func(s orchtypes.ToolSpec) bool { return s.Risk == orchtypes.RiskRed })
	require.Len(t, red, 1)
	assert.Equal(t, "b", red[0].Name)
}
