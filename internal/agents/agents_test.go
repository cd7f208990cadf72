package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_ReturnsAllBuiltinKinds(t *testing.T) {
	specs, descs := Defaults("anthropic")

	ids := []string{General, Consulting, Docker, Config, Design}
	require.Len(t, specs, len(ids))
	require.Len(t, descs, len(ids))

	for _, id := range ids {
		spec, ok := specs[id]
		require.Truef(t, ok, "missing agent spec for %s", id)
		assert.Equal(t, id, spec.ID)
		assert.Equal(t, "anthropic", spec.Provider)
		assert.NotEmpty(t, spec.SystemPrompt)
	}
}

func TestDefaults_DescriptorsMatchSpecIDs(t *testing.T) {
	specs, descs := Defaults("")
	for _, d := range descs {
		_, ok := specs[d.ID]
		assert.Truef(t, ok, "descriptor %s has no matching spec", d.ID)
		assert.NotEmpty(t, d.Description)
	}
}

func TestDefaults_ConsultingHasNoMutatingTools(t *testing.T) {
	specs, _ := Defaults("")
	consulting := specs[Consulting]
	for _, tool := range consulting.PreferredTools {
		assert.NotEqual(t, "write_file", tool)
		assert.NotEqual(t, "container_restart", tool)
		assert.NotEqual(t, "shell", tool)
	}
}
