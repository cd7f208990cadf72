// Package router selects which agent should handle a task, using an
// LLM-structured strategy first and degrading through embedding
// similarity to a fixed default when that fails.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/haasonsaas/sentry/internal/llm"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// AgentDescriptor is one routable agent's identity and capability blurb.
type AgentDescriptor struct {
	ID          string
	Description string
	Embedding   []float32 // precomputed; nil disables this agent for the embedding strategy
}

// SuccessRateLookup resolves an agent's historical success rate on
// tasks resembling pattern, used to tie-break equally specific agents.
// Backed by the Fact Ledger.
type SuccessRateLookup func(agentID, pattern string) float64

// EmbeddingProvider embeds text for the similarity fallback strategy.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

const (
	designAgentDefault = "design"
	generalAgentDefault = "general"
)

// Config configures a Router.
type Config struct {
	DesignAgentID  string // routed to for blank-slate build requests
	GeneralAgentID string // default fallback target
	Provider       llm.Provider
	Embedder       EmbeddingProvider // optional; nil disables strategy 2
	SuccessRate    SuccessRateLookup // optional; nil disables tie-break
}

// Router implements the three-tier Analyze strategy.
type Router struct {
	cfg Config
	log *slog.Logger
}

// New builds a Router. A nil logger uses slog.Default.
func New(cfg Config, log *slog.Logger) *Router {
	if cfg.DesignAgentID == "" {
		cfg.DesignAgentID = designAgentDefault
	}
	if cfg.GeneralAgentID == "" {
		cfg.GeneralAgentID = generalAgentDefault
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{cfg: cfg, log: log}
}

type llmRouteOutput struct {
	TargetAgentID       string   `json:"target_agent_id"`
	Confidence          float64  `json:"confidence"`
	ClarificationNeeded bool     `json:"clarification_needed"`
	ClarificationPrompt string   `json:"clarification_prompt"`
	SecondaryAgents     []string `json:"secondary_agents"`
}

var routeOutputSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"target_agent_id": {"type": "string"},
		"confidence": {"type": "number"},
		"clarification_needed": {"type": "boolean"},
		"clarification_prompt": {"type": "string"},
		"secondary_agents": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["target_agent_id"]
}`)

// buildSlateVerbs names task phrasing that plausibly asks for a system
// built from nothing, triggering the design-agent + clarification rule
// even before the LLM strategy is consulted.
var buildSlateVerbs = []string{"build", "design", "architect", "stand up", "create a system", "spin up"}

func looksLikeBlankSlateBuild(text string) bool {
	lower := strings.ToLower(text)
	for _, v := range buildSlateVerbs {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// essentialsAnswered is a crude completeness check for the four
// essentials the clarification prompt asks about; a task description
// that already mentions enough of them skips clarification.
func essentialsAnswered(text string) bool {
	lower := strings.ToLower(text)
	hits := 0
	for _, kw := range []string{"users", "scale", "availability", "uptime", "budget", "auth", "sso", "region"} {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits >= 2
}

const clarificationPrompt = "Before I design this, I need a few essentials: expected scale (users/requests), availability target, resource envelope (budget/infra), and whether authentication is already available."

// Analyze picks a target agent for taskText given the routable agents
// and recent routing history. recentHistory is accepted but not read
// by any of the strategies implemented here.
func (r *Router) Analyze(ctx context.Context, taskText string, agents []AgentDescriptor, recentHistory []orchtypes.RouteDecision) orchtypes.RouteDecision {
	if looksLikeBlankSlateBuild(taskText) && !essentialsAnswered(taskText) {
		return orchtypes.RouteDecision{
			TargetAgentID:       r.cfg.DesignAgentID,
			TriggerType:         orchtypes.TriggerIntent,
			Confidence:          0.9,
			Rule:                "blank_slate_build",
			ClarificationNeeded: true,
			ClarificationPrompt: clarificationPrompt,
		}
	}

	if decision, ok := r.analyzeLLM(ctx, taskText, agents); ok {
		return decision
	}
	if decision, ok := r.analyzeEmbedding(ctx, taskText, agents); ok {
		return decision
	}
	return r.fallback()
}

func (r *Router) analyzeLLM(ctx context.Context, taskText string, agents []AgentDescriptor) (orchtypes.RouteDecision, bool) {
	if r.cfg.Provider == nil {
		return orchtypes.RouteDecision{}, false
	}

	var sb strings.Builder
	for _, a := range agents {
		fmt.Fprintf(&sb, "- %s: %s\n", a.ID, a.Description)
	}

	req := llm.Request{
		System: "You route tasks to the single best-fit agent. Respond only with the JSON object described by the schema.",
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Task: %s\n\nAvailable agents:\n%s\n\nReturn target_agent_id, confidence (0-1), and clarification fields if applicable.", taskText, sb.String()),
		}},
		Tools: []llm.ToolDef{{Name: "route", Description: "Report the routing decision.", InputSchema: routeOutputSchema}},
	}

	resp, err := r.cfg.Provider.Complete(ctx, req)
	if err != nil {
		r.log.Warn("router: llm strategy failed, degrading", "error", err)
		return orchtypes.RouteDecision{}, false
	}

	var raw json.RawMessage
	if len(resp.ToolCalls) > 0 {
		raw = resp.ToolCalls[0].Input
	} else if resp.Text != "" {
		raw = json.RawMessage(resp.Text)
	} else {
		return orchtypes.RouteDecision{}, false
	}

	var out llmRouteOutput
	if err := json.Unmarshal(raw, &out); err != nil || out.TargetAgentID == "" {
		r.log.Warn("router: llm output did not parse, degrading", "error", err)
		return orchtypes.RouteDecision{}, false
	}
	if out.ClarificationNeeded {
		out.SecondaryAgents = nil // contract: never both at once
	}

	return orchtypes.RouteDecision{
		TargetAgentID:       out.TargetAgentID,
		TriggerType:         orchtypes.TriggerIntent,
		Confidence:          out.Confidence,
		Rule:                "llm_structured",
		ClarificationNeeded: out.ClarificationNeeded,
		ClarificationPrompt: out.ClarificationPrompt,
		SecondaryAgents:     out.SecondaryAgents,
	}, true
}

func (r *Router) analyzeEmbedding(ctx context.Context, taskText string, agents []AgentDescriptor) (orchtypes.RouteDecision, bool) {
	if r.cfg.Embedder == nil {
		return orchtypes.RouteDecision{}, false
	}
	taskEmb, err := r.cfg.Embedder.Embed(ctx, taskText)
	if err != nil {
		r.log.Warn("router: embedding strategy failed, degrading", "error", err)
		return orchtypes.RouteDecision{}, false
	}

	type scored struct {
		id    string
		score float64
	}
	var ranked []scored
	bestScore := -1.0
	for _, a := range agents {
		if a.Embedding == nil {
			continue
		}
		score := cosineSimilarity(taskEmb, a.Embedding)
		ranked = append(ranked, scored{a.ID, score})
		if score > bestScore {
			bestScore = score
		}
	}
	if len(ranked) == 0 {
		return orchtypes.RouteDecision{}, false
	}

	// Tie-break near-equal top matches by Fact Ledger success rate,
	// since cosine similarity alone can't distinguish equally-specific
	// agents.
	const tieEpsilon = 0.02
	best := ranked[0].id
	bestRate := -1.0
	for _, s := range ranked {
		if bestScore-s.score > tieEpsilon {
			continue
		}
		rate := 0.0
		if r.cfg.SuccessRate != nil {
			rate = r.cfg.SuccessRate(s.id, taskText)
		}
		if rate > bestRate {
			bestRate = rate
			best = s.id
		}
	}

	return orchtypes.RouteDecision{
		TargetAgentID: best,
		TriggerType:   orchtypes.TriggerIntent,
		Confidence:    bestScore,
		Rule:          "embedding_similarity",
	}, true
}

func (r *Router) fallback() orchtypes.RouteDecision {
	return orchtypes.RouteDecision{
		TargetAgentID: r.cfg.GeneralAgentID,
		TriggerType:   orchtypes.TriggerFallback,
		Confidence:    0,
		Rule:          "default_fallback",
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
