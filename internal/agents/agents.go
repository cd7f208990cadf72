// Package agents declares the concrete agent kinds run by the shared
// Agent Runtime: each is just a system prompt and a preferred tool
// subset, per spec.md §4.3 ("the runtime is shared; agent kinds differ
// only in prompt and tool preference").
package agents

import (
	"github.com/haasonsaas/sentry/internal/agentrt"
	"github.com/haasonsaas/sentry/internal/router"
)

// Built-in agent ids, used as Router targets and Orchestrator lookup keys.
const (
	General    = "general"
	Consulting = "consulting"
	Docker     = "docker"
	Config     = "config"
	Design     = "design"
)

// Defaults returns the built-in agent specs and the matching Router
// descriptors, in the shape Orchestrator.New expects: a map keyed by
// agent id and a parallel descriptor slice for routing.
func Defaults(provider string) (map[string]agentrt.AgentSpec, []router.AgentDescriptor) {
	type def struct {
		id, description, prompt string
		tools                   []string
	}
	defs := []def{
		{
			id:          General,
			description: "Handles any task that doesn't fit a more specific agent; broad-purpose reasoning and Q&A.",
			prompt:      "You are a general-purpose assistant. Answer directly; use tools only when the task requires a side effect you cannot reason your way to.",
		},
		{
			id:          Consulting,
			description: "Answers architecture, tradeoff, and best-practice questions without making changes to any system.",
			prompt:      "You are a technical consultant. Reason about the question and respond with a recommendation. Do not invoke any tool that changes state; prefer read_file and http_get for context-gathering only.",
			tools:       []string{"read_file", "http_get"},
		},
		{
			id:          Docker,
			description: "Manages container lifecycle: listing, inspecting, and restarting containers.",
			prompt:      "You manage containers. Prefer container_list to answer status questions. Only call container_restart when the task explicitly asks for a restart, and expect it to require operator approval.",
			tools:       []string{"container_list", "container_restart", "shell"},
		},
		{
			id:          Config,
			description: "Writes and edits configuration files (compose files, env files, service configs) in the workspace.",
			prompt:      "You write configuration files into the workspace. Always read the current file before editing it if it might already exist. Keep generated configs minimal and valid.",
			tools:       []string{"read_file", "write_file"},
		},
		{
			id:          Design,
			description: "Designs new systems from a blank slate: architecture, component boundaries, and scaling/availability tradeoffs.",
			prompt:      "You design systems from scratch. If the task is missing scale, availability, resource envelope, or auth essentials, say so instead of guessing. Produce a component breakdown, not running code.",
			tools:       []string{"read_file", "write_file", "http_get"},
		},
	}

	agentMap := make(map[string]agentrt.AgentSpec, len(defs))
	descs := make([]router.AgentDescriptor, 0, len(defs))
	for _, d := range defs {
		agentMap[d.id] = agentrt.AgentSpec{
			ID:             d.id,
			SystemPrompt:   d.prompt,
			PreferredTools: d.tools,
			Provider:       provider,
		}
		descs = append(descs, router.AgentDescriptor{ID: d.id, Description: d.description})
	}
	return agentMap, descs
}
