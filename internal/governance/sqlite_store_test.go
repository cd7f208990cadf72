package governance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

func TestSQLiteStore_CreateGetListDecide(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	defer store.(*sqliteStore).Close()

	ctx := context.Background()
	a := orchtypes.Approval{
		ID:          "appr-1",
		TaskID:      "task-1",
		ToolName:    "shell",
		Request:     req(orchtypes.RiskRed),
		Status:      orchtypes.ApprovalPending,
		Reason:      "red tool",
		RequestedAt: time.Now(),
		ExpiresAt:   time.Now(),
	}
	require.NoError(t, store.Create(ctx, a))

	got, err := store.Get(ctx, "appr-1")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalPending, got.Status)
	assert.Equal(t, "shell", got.ToolName)
	assert.Equal(t, orchtypes.RiskRed, got.Request.Risk)

	pending, err := store.List(ctx, orchtypes.ApprovalPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	decided, err := store.Decide(ctx, "appr-1", orchtypes.ApprovalGranted, "operator@example.com", "looks safe")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalGranted, decided.Status)
	assert.Equal(t, "looks safe", decided.Reason)

	_, err = store.Decide(ctx, "appr-1", orchtypes.ApprovalGranted, "operator@example.com", "again")
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestSQLiteStore_GetMissingReturnsNotFound(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	defer store.(*sqliteStore).Close()

	_, err = store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_WithSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	defer store.(*sqliteStore).Close()

	eng := New(store, nil, 0, nil)
	ctx := context.Background()

	a, err := eng.CreateApproval(ctx, "task-1", req(orchtypes.RiskRed), "red tool")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalPending, a.Status)

	approved, err := eng.Approve(ctx, a.ID, "operator@example.com", "ok")
	require.NoError(t, err)
	assert.Equal(t, orchtypes.ApprovalGranted, approved.Status)
}
