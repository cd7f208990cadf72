// Package agentrt implements the cooperative agent run loop shared by
// every agent kind: Reasoning, ToolDispatch, and Final states,
// alternating LLM calls with governed tool invocations under budgets.
package agentrt

import (
	"github.com/haasonsaas/sentry/internal/llm"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// AgentSpec distinguishes agent kinds by prompt and tool preference
// only; the run loop itself is identical for every kind.
type AgentSpec struct {
	ID            string
	SystemPrompt  string
	PreferredTools []string // if non-empty, ToolDef list sent to the LLM is restricted to these
	Provider      string    // llm.Registry key; empty selects the default
	Model         string
}

// filterTools filters specs down to a kind's preferred subset. An
// empty PreferredTools means "no restriction."
func (s AgentSpec) filterTools(all []orchtypes.ToolSpec) []orchtypes.ToolSpec {
	if len(s.PreferredTools) == 0 {
		return all
	}
	allow := make(map[string]bool, len(s.PreferredTools))
	for _, n := range s.PreferredTools {
		allow[n] = true
	}
	out := make([]orchtypes.ToolSpec, 0, len(all))
	for _, t := range all {
		if allow[t.Name] {
			out = append(out, t)
		}
	}
	return out
}

func toToolDefs(specs []orchtypes.ToolSpec) []llm.ToolDef {
	out := make([]llm.ToolDef, len(specs))
	for i, s := range specs {
		out[i] = llm.ToolDef{Name: s.Name, Description: s.Description, InputSchema: s.InputSchema}
	}
	return out
}
