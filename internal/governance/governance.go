package governance

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// DefaultApprovalTTL sets a new Approval's ExpiresAt. Approval.Expired
// reports a pending approval past that time; nothing changes its stored
// status to expired, and the stores still accept a decision after it.
const DefaultApprovalTTL = 24 * time.Hour

// Engine evaluates InvocationRequests against a rule table and, for
// RequireApproval outcomes, creates and persists an Approval.
type Engine struct {
	rules []Rule
	store ApprovalStore
	ttl   time.Duration
	log   *slog.Logger
}

// New builds an Engine. A nil rule table uses DefaultRuleTable.
func New(store ApprovalStore, rules []Rule, ttl time.Duration, log *slog.Logger) *Engine {
	if rules == nil {
		rules = DefaultRuleTable()
	}
	if ttl <= 0 {
		ttl = DefaultApprovalTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{rules: rules, store: store, ttl: ttl, log: log}
}

// Decide evaluates req under env against the rule table. It does not
// persist anything: on RequireApproval the caller creates the pending
// Approval with CreateApproval.
//
// Decide never returns an error: when no rule matches it returns
// RequireApproval with reason "governance unavailable" so the system
// fails closed. Store failures are handled by CreateApproval, which
// then returns a denied Approval rather than an error.
func (e *Engine) Decide(ctx context.Context, req orchtypes.InvocationRequest, env orchtypes.Environment) orchtypes.GovernanceDecision {
	decision, matched := Evaluate(e.rules, req, env)
	if !matched {
		e.log.Warn("governance: no rule matched, failing closed", "tool", req.Tool.Name)
		return orchtypes.GovernanceDecision{
			Decision: orchtypes.DecisionRequireApproval,
			Risk:     req.Risk,
			Rule:     "no_rule_matched",
			Reason:   "governance unavailable",
		}
	}
	return decision
}

// CreateApproval persists a new pending Approval for req and returns
// it. Called by the Agent Runtime when Decide returns
// DecisionRequireApproval.
func (e *Engine) CreateApproval(ctx context.Context, taskID string, req orchtypes.InvocationRequest, reason string) (orchtypes.Approval, error) {
	now := time.Now()
	a := orchtypes.Approval{
		ID:          uuid.NewString(),
		TaskID:      taskID,
		ToolName:    req.Tool.Name,
		Request:     req,
		Status:      orchtypes.ApprovalPending,
		Reason:      reason,
		RequestedAt: now,
		ExpiresAt:   now.Add(e.ttl),
	}
	if e.store == nil {
		a.Status = orchtypes.ApprovalDenied
		a.Reason = "governance unavailable: no approval store configured"
		return a, nil
	}
	if err := e.store.Create(ctx, a); err != nil {
		e.log.Error("governance: failed to persist approval, failing closed", "error", err)
		a.Status = orchtypes.ApprovalDenied
		a.Reason = "governance unavailable: " + err.Error()
		return a, nil
	}
	return a, nil
}

// Resolve fetches the current state of a previously created Approval.
func (e *Engine) Resolve(ctx context.Context, id string) (orchtypes.Approval, error) {
	return e.store.Get(ctx, id)
}

// Approve and Deny are the Approval CLI's write path.
func (e *Engine) Approve(ctx context.Context, id, decidedBy, note string) (orchtypes.Approval, error) {
	return e.store.Decide(ctx, id, orchtypes.ApprovalGranted, decidedBy, note)
}

func (e *Engine) Deny(ctx context.Context, id, decidedBy, note string) (orchtypes.Approval, error) {
	return e.store.Decide(ctx, id, orchtypes.ApprovalDenied, decidedBy, note)
}

// Pending lists all approvals awaiting a human decision.
func (e *Engine) Pending(ctx context.Context) ([]orchtypes.Approval, error) {
	return e.store.List(ctx, orchtypes.ApprovalPending)
}
