package authbroker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvVault_NeedActionThenReady(t *testing.T) {
	const key = "SENTRY_TEST_VAULT_VAR"
	_ = os.Unsetenv(key)
	p := EnvVault{VarName: key}
	res := p.Probe(context.Background())
	assert.Equal(t, StatusNeedAction, res.Status)

	t.Setenv(key, "value")
	res = p.Probe(context.Background())
	assert.Equal(t, StatusReady, res.Status)
}

func TestOAuthFile_NeedActionWhenMissing(t *testing.T) {
	p := OAuthFile{TokenPath: filepath.Join(t.TempDir(), "missing.json"), AuthURL: "https://example.com/auth"}
	res := p.Probe(context.Background())
	assert.Equal(t, StatusNeedAction, res.Status)
	assert.Equal(t, "https://example.com/auth", res.Hint)
}

func TestBroker_RequireUnknownIdentity(t *testing.T) {
	b := New()
	_, err := b.Require(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrUnknownIdentity)
}

func TestBroker_RequireRegistered(t *testing.T) {
	b := New()
	b.Register("my-vault-var", EnvVault{VarName: "SENTRY_TEST_VAULT_VAR_2"})
	res, err := b.Require(context.Background(), "my-vault-var")
	require.NoError(t, err)
	assert.Equal(t, StatusNeedAction, res.Status)
}

func TestOperatorIdentity_IssueAndVerify(t *testing.T) {
	id := NewOperatorIdentity("test-secret", time.Minute)
	tok, err := id.Issue("operator@example.com")
	require.NoError(t, err)

	email, err := id.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "operator@example.com", email)
}

func TestOperatorIdentity_Disabled(t *testing.T) {
	id := NewOperatorIdentity("", 0)
	assert.False(t, id.Enabled())
	_, err := id.Issue("x@example.com")
	assert.ErrorIs(t, err, ErrInvalidOperatorToken)
}
