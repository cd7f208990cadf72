package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name string
}

func (f fakeProvider) Name() string         { return f.name }
func (f fakeProvider) DefaultModel() string { return "fake-model" }
func (f fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	return Response{Text: "ok from " + f.name}, nil
}

func TestRegistry_DefaultIsFirstRegistered(t *testing.T) {
	r := NewRegistry()
	r.Register("anthropic", fakeProvider{name: "anthropic"})
	r.Register("openai", fakeProvider{name: "openai"})

	p, err := r.Get("")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestRegistry_GetByName(t *testing.T) {
	r := NewRegistry()
	r.Register("anthropic", fakeProvider{name: "anthropic"})
	r.Register("openai", fakeProvider{name: "openai"})

	p, err := r.Get("openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
