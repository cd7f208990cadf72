package governance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

func req(risk orchtypes.RiskTag) orchtypes.InvocationRequest {
	return orchtypes.InvocationRequest{Tool: orchtypes.ToolSpec{Name: "some_tool", Risk: risk}, Risk: risk}
}

func TestEvaluate_GreenExecutes(t *testing.T) {
	d, ok := Evaluate(DefaultRuleTable(), req(orchtypes.RiskGreen), orchtypes.EnvProduction)
	require.True(t, ok)
	assert.Equal(t, orchtypes.DecisionExecute, d.Decision)
}

func TestEvaluate_YellowNonProdAutoApproves(t *testing.T) {
	d, ok := Evaluate(DefaultRuleTable(), req(orchtypes.RiskYellow), orchtypes.EnvDev)
	require.True(t, ok)
	assert.Equal(t, orchtypes.DecisionAutoApprove, d.Decision)
}

func TestEvaluate_YellowProdRequiresApproval(t *testing.T) {
	d, ok := Evaluate(DefaultRuleTable(), req(orchtypes.RiskYellow), orchtypes.EnvProduction)
	require.True(t, ok)
	assert.Equal(t, orchtypes.DecisionRequireApproval, d.Decision)
}

func TestEvaluate_RedAlwaysRequiresApproval(t *testing.T) {
	for _, env := range []orchtypes.Environment{orchtypes.EnvDev, orchtypes.EnvProduction} {
		d, ok := Evaluate(DefaultRuleTable(), req(orchtypes.RiskRed), env)
		require.True(t, ok)
		assert.Equal(t, orchtypes.DecisionRequireApproval, d.Decision)
	}
}

func TestEvaluate_ContextRestrictionDenies(t *testing.T) {
	r := req(orchtypes.RiskGreen)
	r.Tool.AllowedContexts = []string{"dev"}
	d, ok := Evaluate(DefaultRuleTable(), r, orchtypes.EnvProduction)
	require.True(t, ok)
	assert.Equal(t, orchtypes.DecisionDeny, d.Decision)
}

func TestReclassifyShellRisk(t *testing.T) {
	assert.Equal(t, orchtypes.RiskGreen, ReclassifyShellRisk(orchtypes.RiskRed, "docker ps -a"))
	assert.Equal(t, orchtypes.RiskRed, ReclassifyShellRisk(orchtypes.RiskGreen, "rm -rf /data"))
	assert.Equal(t, orchtypes.RiskRed, ReclassifyShellRisk(orchtypes.RiskRed, "some-unrecognized-command"))
}

func TestReclassifyShellRisk_DestructiveNotDowngradable(t *testing.T) {
	// Even if it superficially also contains a safe verb token, a
	// destructive pattern wins.
	got := ReclassifyShellRisk(orchtypes.RiskGreen, "list; rm -rf /")
	assert.Equal(t, orchtypes.RiskRed, got)
}

func TestEngine_ApprovalLifecycle(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "approvals.json"))
	eng := New(store, nil, 0, nil)
	ctx := context.Background()

	r := req(orchtypes.RiskRed)
	d := eng.Decide(ctx, r, orchtypes.EnvDev)
	require.Equal(t, orchtypes.DecisionRequireApproval, d.Decision)

	a, err := eng.CreateApproval(ctx, "task-1", r, d.Reason)
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalPending, a.Status)

	pending, err := eng.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	approved, err := eng.Approve(ctx, a.ID, "operator@example.com", "looks safe")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalGranted, approved.Status)

	_, err = eng.Approve(ctx, a.ID, "operator@example.com", "again")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestEngine_NoStoreFailsClosed(t *testing.T) {
	eng := New(nil, nil, 0, nil)
	a, err := eng.CreateApproval(context.Background(), "task-1", req(orchtypes.RiskRed), "red")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalDenied, a.Status)
}
