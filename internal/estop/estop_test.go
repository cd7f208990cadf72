package estop

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwitch_TriggerAndCheck(t *testing.T) {
	s := New("", nil)
	defer s.Close()

	require.NoError(t, s.Check())
	s.Trigger("manual")
	assert.True(t, s.IsSet())
	assert.ErrorIs(t, s.Check(), ErrStopped)

	reason, at := s.Reason()
	assert.Equal(t, "manual", reason)
	assert.False(t, at.IsZero())
}

func TestSwitch_Reset(t *testing.T) {
	s := New("", nil)
	defer s.Close()

	s.Trigger("manual")
	require.True(t, s.IsSet())
	s.Reset()
	assert.False(t, s.IsSet())
	assert.NoError(t, s.Check())
}

func TestSwitch_TriggerIdempotent(t *testing.T) {
	s := New("", nil)
	defer s.Close()

	s.Trigger("first")
	s.Trigger("second")
	reason, _ := s.Reason()
	assert.Equal(t, "first", reason)
}

func TestSwitch_SentinelFilePoll(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, ".emergency_stop")
	s := New(sentinel, nil)
	defer s.Close()

	require.False(t, s.IsSet())

	require.NoError(t, os.WriteFile(sentinel, []byte("ops drill"), 0o600))
	assert.Eventually(t, func() bool {
		return s.IsSet()
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, errors.Is(s.Check(), ErrStopped))

	reason, _ := s.Reason()
	assert.Equal(t, "ops drill", reason)
}

func TestSwitch_SentinelPresentAtStartupUsesFileContents(t *testing.T) {
	dir := t.TempDir()
	sentinel := filepath.Join(dir, ".emergency_stop")
	require.NoError(t, os.WriteFile(sentinel, []byte("ops drill\n"), 0o600))

	s := New(sentinel, nil)
	defer s.Close()

	require.True(t, s.IsSet())
	reason, _ := s.Reason()
	assert.Equal(t, "ops drill", reason)
}
