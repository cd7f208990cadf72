package tools

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/internal/toolregistry"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

func TestRegisterBuiltins_RegistersExpectedRisks(t *testing.T) {
	reg := toolregistry.New(time.Second)
	require.NoError(t, RegisterBuiltins(reg, Config{Workspace: t.TempDir()}))

	cases := map[string]orchtypes.RiskTag{
		"read_file":         orchtypes.RiskGreen,
		"write_file":        orchtypes.RiskYellow,
		"http_get":          orchtypes.RiskGreen,
		"container_list":    orchtypes.RiskGreen,
		"container_restart": orchtypes.RiskRed,
		"shell":             orchtypes.RiskRed,
	}
	for name, risk := range cases {
		spec, ok := reg.Lookup(name)
		require.Truef(t, ok, "expected %s to be registered", name)
		assert.Equalf(t, risk, spec.Risk, "tool %s", name)
	}
}
