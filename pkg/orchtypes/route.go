package orchtypes

// TriggerType names why a RouteDecision matched.
type TriggerType string

const (
	TriggerKeyword   TriggerType = "keyword"
	TriggerIntent    TriggerType = "intent"
	TriggerFallback  TriggerType = "fallback"
)

// RouteDecision is the Router's choice of planner/agent for a Task,
// along with the rule that produced it.
//
// ClarificationNeeded and SecondaryAgents are mutually exclusive: a
// decision that asks the user for missing essentials never also lines
// up follow-on agents in the same response.
type RouteDecision struct {
	TargetAgentID        string      `json:"target_agent_id"`
	TriggerType          TriggerType `json:"trigger_type"`
	Priority             int         `json:"priority"`
	Confidence           float64     `json:"confidence"`
	Rule                 string      `json:"rule,omitempty"`
	ClarificationNeeded  bool        `json:"clarification_needed,omitempty"`
	ClarificationPrompt  string      `json:"clarification_prompt,omitempty"`
	SecondaryAgents      []string    `json:"secondary_agents,omitempty"`
}
