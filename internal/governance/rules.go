// Package governance evaluates risk-graded policy against tool
// invocations and persists the approvals it creates.
package governance

import (
	"regexp"
	"strings"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// shellSafePattern matches read-only operations: status/list/info/get/show
// verbs and their common flag forms. Tried after the destructive check, so
// a command that matches both (e.g. "kubectl get pods > /dev/null") stays red.
var shellSafePattern = regexp.MustCompile(`(?i)^\s*\S+\s+(status|list|ls|ps|info|get|show|describe|version|--version|-v|help|--help)\b`)

// shellDestructivePattern matches tokens indicative of irreversible or
// privilege-escalating operations. A match here is never downgradable by
// the safe-allowlist check, even if the command also contains a safe verb.
var shellDestructivePattern = regexp.MustCompile(`(?i)\b(rm\s+-rf|rm\s+-r|delete|drop\s+table|truncate|chmod\s+777|chown|sudo|su\s|mkfs|dd\s+if=|shutdown|reboot)\b|>\s*/dev/|[^<]>\s*\S`)

// ReclassifyShellRisk applies the spec's shell-command override: read-only
// commands downgrade to green, destructive patterns upgrade to red
// irreversibly, everything else retains its registered risk.
func ReclassifyShellRisk(registered orchtypes.RiskTag, command string) orchtypes.RiskTag {
	if shellDestructivePattern.MatchString(command) {
		return orchtypes.RiskRed
	}
	if shellSafePattern.MatchString(strings.TrimSpace(command)) {
		return orchtypes.RiskGreen
	}
	return registered
}

// Rule is a named predicate+outcome pair in the governance rule table,
// evaluated in order; the first match wins.
type Rule struct {
	Name    string
	Matches func(req orchtypes.InvocationRequest, env orchtypes.Environment) bool
	Decide  func(req orchtypes.InvocationRequest) orchtypes.Decision
}

// DefaultRuleTable is the complete rule table from the spec: explicit
// context restriction first, then risk-by-environment.
func DefaultRuleTable() []Rule {
	return []Rule{
		{
			Name: "context_restricted",
			Matches: func(req orchtypes.InvocationRequest, env orchtypes.Environment) bool {
				return len(req.Tool.AllowedContextsList()) > 0 && !req.Tool.AllowsContext(string(env))
			},
			Decide: func(orchtypes.InvocationRequest) orchtypes.Decision { return orchtypes.DecisionDeny },
		},
		{
			Name:    "green_execute",
			Matches: func(req orchtypes.InvocationRequest, _ orchtypes.Environment) bool { return req.Risk == orchtypes.RiskGreen },
			Decide:  func(orchtypes.InvocationRequest) orchtypes.Decision { return orchtypes.DecisionExecute },
		},
		{
			Name: "yellow_nonprod_autoapprove",
			Matches: func(req orchtypes.InvocationRequest, env orchtypes.Environment) bool {
				return req.Risk == orchtypes.RiskYellow && env.NonProduction()
			},
			Decide: func(orchtypes.InvocationRequest) orchtypes.Decision { return orchtypes.DecisionAutoApprove },
		},
		{
			Name: "yellow_prod_require_approval",
			Matches: func(req orchtypes.InvocationRequest, env orchtypes.Environment) bool {
				return req.Risk == orchtypes.RiskYellow && !env.NonProduction()
			},
			Decide: func(orchtypes.InvocationRequest) orchtypes.Decision { return orchtypes.DecisionRequireApproval },
		},
		{
			Name:    "red_require_approval",
			Matches: func(req orchtypes.InvocationRequest, _ orchtypes.Environment) bool { return req.Risk == orchtypes.RiskRed },
			Decide:  func(orchtypes.InvocationRequest) orchtypes.Decision { return orchtypes.DecisionRequireApproval },
		},
	}
}

// Evaluate runs req through the rule table, returning the first match. A
// rule table that matches nothing is a configuration defect; Decide
// treats that case as governance-unavailable and fails closed.
func Evaluate(rules []Rule, req orchtypes.InvocationRequest, env orchtypes.Environment) (orchtypes.GovernanceDecision, bool) {
	for _, r := range rules {
		if r.Matches(req, env) {
			return orchtypes.GovernanceDecision{
				Decision: r.Decide(req),
				Risk:     req.Risk,
				Rule:     r.Name,
				Reason:   r.Name,
			}, true
		}
	}
	return orchtypes.GovernanceDecision{}, false
}
