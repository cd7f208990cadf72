// Package orchestrator exposes the single top-level operation the CLI
// and any embedding caller drive: submit task text under an
// environment, get back a terminal (or pausing) TaskResult.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/sentry/internal/agentrt"
	"github.com/haasonsaas/sentry/internal/estop"
	"github.com/haasonsaas/sentry/internal/factledger"
	"github.com/haasonsaas/sentry/internal/governance"
	"github.com/haasonsaas/sentry/internal/router"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// Config holds per-task defaults applied to every BudgetState the
// Orchestrator constructs.
type Config struct {
	GeneralAgentID string
	MaxIterations  int
	MaxWallClock   time.Duration
	MaxCostUSD     float64
}

// DefaultConfig matches the documented run ceilings.
func DefaultConfig() Config {
	return Config{GeneralAgentID: "general", MaxIterations: 5, MaxWallClock: 10 * time.Minute}
}

// Orchestrator wires the Router, the registered agent specs, a shared
// Agent Runtime, the Fact Ledger, and the Emergency Stop into the
// Execute operation.
type Orchestrator struct {
	cfg     Config
	router  *router.Router
	agents  map[string]agentrt.AgentSpec
	descs   []router.AgentDescriptor
	runtime *agentrt.Runtime
	ledger  *factledger.Ledger
	stop    *estop.Switch
	log     *slog.Logger
}

// New builds an Orchestrator. descs and agents must describe the same
// set of agent ids; descs feeds the Router, agents feeds the runtime.
func New(cfg Config, rt *router.Router, runtime *agentrt.Runtime, agents map[string]agentrt.AgentSpec, descs []router.AgentDescriptor, ledger *factledger.Ledger, stop *estop.Switch, log *slog.Logger) *Orchestrator {
	if cfg.GeneralAgentID == "" {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{cfg: cfg, router: rt, agents: agents, descs: descs, runtime: runtime, ledger: ledger, stop: stop, log: log}
}

// Execute runs one task to a terminal or pausing result. It never
// returns a non-nil error: every internal failure is classified into
// the returned TaskResult, per the orchestrator's fail-closed,
// never-propagate contract.
func (o *Orchestrator) Execute(ctx context.Context, taskText string, env orchtypes.Environment) orchtypes.TaskResult {
	if err := o.stop.Check(); err != nil {
		reason, _ := o.stop.Reason()
		if reason == "" {
			reason = err.Error()
		}
		return orchtypes.TaskResult{Status: orchtypes.TaskStopped, Reason: reason}
	}
	if taskText == "" {
		return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: "empty_task"}
	}

	task := orchtypes.Task{ID: uuid.NewString(), Text: taskText, Environment: env, SubmittedAt: time.Now()}

	decision := o.router.Analyze(ctx, taskText, o.descs, nil)
	if decision.ClarificationNeeded {
		return orchtypes.TaskResult{Status: orchtypes.TaskAwaitingHumanInput, Clarification: decision.ClarificationPrompt}
	}

	primary, ok := o.agents[decision.TargetAgentID]
	if !ok {
		primary, ok = o.agents[o.cfg.GeneralAgentID]
		if !ok {
			return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: "no_agent"}
		}
		o.log.Warn("orchestrator: router target unknown, fell back to general agent", "target", decision.TargetAgentID)
	}

	budget := orchtypes.BudgetState{
		TaskID: task.ID, MaxIterations: o.cfg.MaxIterations, MaxWallClock: o.cfg.MaxWallClock, MaxCostUSD: o.cfg.MaxCostUSD,
	}
	conv := &orchtypes.Conversation{
		TaskID:   task.ID,
		Messages: []orchtypes.Message{{ID: uuid.NewString(), Role: orchtypes.RoleUser, Content: taskText, CreatedAt: time.Now()}},
	}

	result, _ := o.runtime.Run(ctx, task, primary, conv, &budget)

	if result.Status == orchtypes.TaskSucceeded && len(decision.SecondaryAgents) > 0 {
		result = o.runSecondaries(ctx, task, decision.SecondaryAgents, result, &budget)
	}

	o.recordOutcome(decision.TargetAgentID, taskText, result)
	return result
}

// runSecondaries invokes each secondary agent sequentially, seeding
// its conversation with the primary's summarized result as context,
// and concatenates their summaries onto the primary's.
func (o *Orchestrator) runSecondaries(ctx context.Context, task orchtypes.Task, secondaryIDs []string, primary orchtypes.TaskResult, budget *orchtypes.BudgetState) orchtypes.TaskResult {
	summary := primary.Summary
	for _, id := range secondaryIDs {
		spec, ok := o.agents[id]
		if !ok {
			o.log.Warn("orchestrator: secondary agent unknown, skipping", "agent", id)
			continue
		}
		conv := &orchtypes.Conversation{
			TaskID: task.ID,
			Messages: []orchtypes.Message{
				{ID: uuid.NewString(), Role: orchtypes.RoleSystem, Content: "Prior result: " + primary.Summary, CreatedAt: time.Now()},
				{ID: uuid.NewString(), Role: orchtypes.RoleUser, Content: task.Text, CreatedAt: time.Now()},
			},
		}
		res, _ := o.runtime.Run(ctx, task, spec, conv, budget)
		if res.Status != orchtypes.TaskSucceeded {
			return res // a secondary's non-success takes over as the terminal result
		}
		summary = fmt.Sprintf("%s\n[%s]: %s", summary, id, res.Summary)
	}
	return orchtypes.TaskResult{Status: orchtypes.TaskSucceeded, Summary: summary}
}

func (o *Orchestrator) recordOutcome(agentID, taskText string, result orchtypes.TaskResult) {
	if o.ledger == nil {
		return
	}
	switch result.Status {
	case orchtypes.TaskSucceeded:
		if err := o.ledger.RecordSuccess(agentID, "execute", factledger.Fingerprint(taskText)); err != nil {
			o.log.Warn("orchestrator: failed to record success", "error", err)
		}
		if err := o.ledger.RecordSolution(taskText, result.Summary); err != nil {
			o.log.Warn("orchestrator: failed to record solution", "error", err)
		}
	case orchtypes.TaskFailed:
		if err := o.ledger.RecordFailure(agentID, "execute", orchtypes.ErrorSignature{ToolName: "task", Prefix: result.Reason}, nil); err != nil {
			o.log.Warn("orchestrator: failed to record failure", "error", err)
		}
	}
}

// Resume continues a parked Task after an operator has decided its
// pending Approval, re-entering ToolDispatch with the now-resolved
// request. Callers are responsible for reconstructing conv/budget from
// whatever they persisted when Execute first returned awaiting_approval.
func (o *Orchestrator) Resume(ctx context.Context, task orchtypes.Task, spec agentrt.AgentSpec, conv *orchtypes.Conversation, budget *orchtypes.BudgetState, approvalStore governance.ApprovalStore, approvalID string) orchtypes.TaskResult {
	if err := o.stop.Check(); err != nil {
		reason, _ := o.stop.Reason()
		if reason == "" {
			reason = err.Error()
		}
		return orchtypes.TaskResult{Status: orchtypes.TaskStopped, Reason: reason}
	}
	approval, err := approvalStore.Get(ctx, approvalID)
	if err != nil {
		return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: "approval_lookup_failed: " + err.Error()}
	}

	switch approval.Status {
	case orchtypes.ApprovalGranted:
		result, _ := o.runtime.ResumeApproved(ctx, task, spec, conv, budget, approval.Request)
		o.recordOutcome(spec.ID, task.Text, result)
		return result
	case orchtypes.ApprovalDenied:
		conv.Messages = append(conv.Messages, orchtypes.Message{
			ID: uuid.NewString(), Role: orchtypes.RoleTool, CreatedAt: time.Now(),
			ToolResults: []orchtypes.ToolResult{{ToolCallID: approval.Request.ToolCall.ID, Content: "rejected: " + approval.Reason, IsError: true}},
		})
		result, _ := o.runtime.Run(ctx, task, spec, conv, budget)
		o.recordOutcome(spec.ID, task.Text, result)
		return result
	default:
		return orchtypes.TaskResult{Status: orchtypes.TaskAwaitingApproval, ApprovalID: approvalID}
	}
}
