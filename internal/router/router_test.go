package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/internal/llm"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

type stubProvider struct {
	resp llm.Response
	err  error
}

func (s stubProvider) Name() string         { return "stub" }
func (s stubProvider) DefaultModel() string { return "stub-model" }
func (s stubProvider) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return s.resp, s.err
}

func agents() []AgentDescriptor {
	return []AgentDescriptor{
		{ID: "docker", Description: "manages containers"},
		{ID: "config", Description: "edits configuration files"},
		{ID: "general", Description: "handles everything else"},
	}
}

func TestAnalyze_BlankSlateBuildRoutesToDesignWithClarification(t *testing.T) {
	r := New(Config{}, nil)
	d := r.Analyze(context.Background(), "build a system to process payments", agents(), nil)

	assert.Equal(t, designAgentDefault, d.TargetAgentID)
	assert.True(t, d.ClarificationNeeded)
	assert.NotEmpty(t, d.ClarificationPrompt)
	assert.Empty(t, d.SecondaryAgents)
}

func TestAnalyze_BlankSlateWithEssentialsSkipsClarification(t *testing.T) {
	r := New(Config{}, nil)
	d := r.Analyze(context.Background(), "design a system for 10k users with 99.9% availability and an auth budget of $500/mo", agents(), nil)
	assert.False(t, d.ClarificationNeeded)
}

func TestAnalyze_LLMStrategySucceeds(t *testing.T) {
	toolArgs, _ := json.Marshal(map[string]any{"target_agent_id": "docker", "confidence": 0.8})
	provider := stubProvider{resp: llm.Response{ToolCalls: []llm.ToolCall{{Name: "route", Input: toolArgs}}}}
	r := New(Config{Provider: provider}, nil)

	d := r.Analyze(context.Background(), "restart the failing container", agents(), nil)
	assert.Equal(t, "docker", d.TargetAgentID)
	assert.Equal(t, "llm_structured", d.Rule)
}

func TestAnalyze_LLMFailureDegradesToFallback(t *testing.T) {
	provider := stubProvider{err: assertErr{}}
	r := New(Config{Provider: provider}, nil)

	d := r.Analyze(context.Background(), "restart the failing container", agents(), nil)
	assert.Equal(t, generalAgentDefault, d.TargetAgentID)
	assert.Equal(t, "default_fallback", d.Rule)
}

func TestAnalyze_EmbeddingStrategyPicksNearest(t *testing.T) {
	descs := []AgentDescriptor{
		{ID: "docker", Embedding: []float32{1, 0, 0}},
		{ID: "config", Embedding: []float32{0, 1, 0}},
	}
	embedder := stubEmbedder{vec: []float32{0.9, 0.1, 0}}
	r := New(Config{Embedder: embedder}, nil)

	d := r.Analyze(context.Background(), "container networking issue", descs, nil)
	assert.Equal(t, "docker", d.TargetAgentID)
	assert.Equal(t, "embedding_similarity", d.Rule)
}

func TestAnalyze_EmbeddingTieBreaksOnSuccessRate(t *testing.T) {
	descs := []AgentDescriptor{
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{0.99, 0.01}},
	}
	embedder := stubEmbedder{vec: []float32{1, 0}}
	rates := map[string]float64{"a": 0.2, "b": 0.9}
	r := New(Config{Embedder: embedder, SuccessRate: func(id, pattern string) float64 { return rates[id] }}, nil)

	d := r.Analyze(context.Background(), "some ambiguous task", descs, nil)
	assert.Equal(t, "b", d.TargetAgentID)
}

func TestAnalyze_NoStrategiesAvailableFallsBack(t *testing.T) {
	r := New(Config{}, nil)
	d := r.Analyze(context.Background(), "unrelated request", agents(), nil)
	require.Equal(t, orchtypes.TriggerFallback, d.TriggerType)
}

type stubEmbedder struct{ vec []float32 }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) { return s.vec, nil }

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
