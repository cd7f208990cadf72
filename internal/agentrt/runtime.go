package agentrt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/sentry/internal/convctx"
	"github.com/haasonsaas/sentry/internal/costtrack"
	"github.com/haasonsaas/sentry/internal/estop"
	"github.com/haasonsaas/sentry/internal/governance"
	"github.com/haasonsaas/sentry/internal/llm"
	"github.com/haasonsaas/sentry/internal/sanitize"
	"github.com/haasonsaas/sentry/internal/toolregistry"
	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// Config bounds a single run. Zero values fall back to DefaultConfig.
type Config struct {
	MaxIterations int
	MaxWallClock  time.Duration
	LLMTimeout    time.Duration
	ContextOpts   convctx.Options
}

// DefaultConfig matches the run loop's documented ceilings: five
// tool-invoking turns, a ten minute run, sixty second LLM calls.
func DefaultConfig() Config {
	return Config{
		MaxIterations: 5,
		MaxWallClock:  10 * time.Minute,
		LLMTimeout:    60 * time.Second,
		ContextOpts:   convctx.DefaultOptions(),
	}
}

// PriceLookup resolves the per-token price for a provider/model pair,
// fed to the cost tracker after every LLM call.
type PriceLookup func(provider, model string) costtrack.Price

// state is the run loop's current phase.
type state int

const (
	stateReasoning state = iota
	stateToolDispatch
	stateFinal
)

// Runtime executes the cooperative Reasoning/ToolDispatch/Final loop
// shared by every agent kind.
type Runtime struct {
	llmReg   *llm.Registry
	tools    *toolregistry.Registry
	gov      *governance.Engine
	cost     *costtrack.Tracker
	stop     *estop.Switch
	san      *sanitize.Sanitizer
	prices   PriceLookup
	cfg      Config
	log      *slog.Logger
}

// New builds a Runtime. A nil PriceLookup prices every call at zero,
// which is only appropriate in tests.
func New(llmReg *llm.Registry, tools *toolregistry.Registry, gov *governance.Engine, cost *costtrack.Tracker, stop *estop.Switch, san *sanitize.Sanitizer, prices PriceLookup, cfg Config, log *slog.Logger) *Runtime {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxWallClock <= 0 {
		cfg.MaxWallClock = def.MaxWallClock
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = def.LLMTimeout
	}
	if prices == nil {
		prices = func(string, string) costtrack.Price { return costtrack.Price{} }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{llmReg: llmReg, tools: tools, gov: gov, cost: cost, stop: stop, san: san, prices: prices, cfg: cfg, log: log}
}

// ErrBudgetExhausted names the budget_exhausted outcome. Run reports
// that outcome through TaskResult.Status and does not return this error.
var ErrBudgetExhausted = fmt.Errorf("agentrt: budget exhausted")

// Run executes one agent run to completion, to an approval gate, or to
// a terminal failure. conv is mutated in place as the conversation
// proceeds; callers that need the pre-run conversation should copy it
// first.
func (r *Runtime) Run(ctx context.Context, task orchtypes.Task, spec AgentSpec, conv *orchtypes.Conversation, budget *orchtypes.BudgetState) (orchtypes.TaskResult, error) {
	if budget.StartedAt.IsZero() {
		budget.StartedAt = time.Now()
	}
	if budget.MaxIterations == 0 {
		budget.MaxIterations = r.cfg.MaxIterations
	}
	if budget.MaxWallClock == 0 {
		budget.MaxWallClock = r.cfg.MaxWallClock
	}

	detector := newLoopDetector()
	st := stateReasoning
	var pendingCall orchtypes.ToolCall
	var pendingSpec orchtypes.ToolSpec

	for {
		if err := r.stop.Check(); err != nil {
			reason, _ := r.stop.Reason()
			if reason == "" {
				reason = err.Error()
			}
			return orchtypes.TaskResult{Status: orchtypes.TaskStopped, Reason: reason}, nil
		}
		budget.Elapsed = time.Since(budget.StartedAt)
		if breach := budget.Check(); breach != orchtypes.BreachNone {
			// The iteration cap reports budget_exhausted/iterations here
			// rather than failed(iteration_cap): §7/§8 already group the
			// iteration cap under the budget-ceiling family alongside
			// wall-clock and cost, and giving it a distinct terminal
			// status would fork that family for no behavioral gain.
			return orchtypes.TaskResult{Status: orchtypes.TaskBudgetExhausted, Reason: string(breach)}, nil
		}

		switch st {
		case stateReasoning:
			conv.Messages = convctx.Prune(conv.Messages, r.cfg.ContextOpts)

			provider, err := r.llmReg.Get(spec.Provider)
			if err != nil {
				return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: err.Error()}, nil
			}

			llmCtx, cancel := context.WithTimeout(ctx, r.cfg.LLMTimeout)
			req := r.buildRequest(spec, conv)
			resp, err := provider.Complete(llmCtx, req)
			cancel()
			if err != nil {
				appendMessage(conv, orchtypes.Message{
					ID: uuid.NewString(), Role: orchtypes.RoleTool, CreatedAt: time.Now(),
					Content: fmt.Sprintf("llm call failed: %v", err),
				})
				return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: "llm_error: " + err.Error()}, nil
			}

			costUSD, ceilingExceeded := r.recordCost(task.ID, provider.Name(), spec.Model, resp.Usage)
			budget.CostUSD = costUSD
			if ceilingExceeded {
				return orchtypes.TaskResult{Status: orchtypes.TaskBudgetExhausted, Reason: string(orchtypes.BreachCost)}, nil
			}
			if r.cost != nil && r.cost.TaskCostWarning(task.ID) {
				r.log.Warn("agentrt: task approaching cost ceiling", "task_id", task.ID)
			}

			assistantMsg := orchtypes.Message{
				ID:        uuid.NewString(),
				Role:      orchtypes.RoleAssistant,
				Content:   resp.Text,
				CreatedAt: time.Now(),
			}
			for _, tc := range resp.ToolCalls {
				assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, orchtypes.ToolCall{ID: tc.ID, Name: tc.Name, Input: tc.Input})
			}
			appendMessage(conv, assistantMsg)

			if len(resp.ToolCalls) == 0 {
				st = stateFinal
				break
			}

			call := resp.ToolCalls[0]
			toolSpec, err := r.tools.Validate(call.Name, call.Input)
			if err != nil {
				appendMessage(conv, toolErrorResult(call.ID, err.Error()))
				st = stateReasoning
				break
			}
			pendingCall = orchtypes.ToolCall{ID: call.ID, Name: call.Name, Input: call.Input}
			pendingSpec = toolSpec
			budget.Iterations++
			st = stateToolDispatch

		case stateToolDispatch:
			if detector.AlreadyFailed(pendingCall.Name, pendingCall.Input) {
				appendMessage(conv, toolErrorResult(pendingCall.ID, "identical call already failed earlier in this run, not retrying"))
				st = stateReasoning
				break
			}

			invReq := orchtypes.InvocationRequest{
				TaskID:   task.ID,
				ToolCall: pendingCall,
				Tool:     pendingSpec,
				Risk:     shellAwareRisk(pendingSpec, pendingCall.Input),
				Args:     pendingCall.Input,
			}
			decision := r.gov.Decide(ctx, invReq, task.Environment)

			switch decision.Decision {
			case orchtypes.DecisionExecute, orchtypes.DecisionAutoApprove:
				// The registry applies its own timeout inside Invoke, so the
				// effective deadline is the smaller of that timeout and the
				// run's remaining wall-clock budget.
				toolCtx, cancel := context.WithTimeout(ctx, budget.MaxWallClock-budget.Elapsed)
				outcome, err := r.tools.Invoke(toolCtx, pendingCall.Name, pendingCall.Input)
				cancel()
				if err := r.appendSanitizedOutcome(conv, detector, pendingCall, outcome, err); err != nil {
					return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: err.Error()}, nil
				}
				st = stateReasoning

			case orchtypes.DecisionRequireApproval:
				approval, err := r.gov.CreateApproval(ctx, task.ID, invReq, decision.Reason)
				if err != nil {
					return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: err.Error()}, nil
				}
				return orchtypes.TaskResult{Status: orchtypes.TaskAwaitingApproval, ApprovalID: approval.ID}, nil

			case orchtypes.DecisionDeny:
				appendMessage(conv, toolErrorResult(pendingCall.ID, "denied: "+decision.Reason))
				st = stateReasoning

			default:
				appendMessage(conv, toolErrorResult(pendingCall.ID, "governance returned an unrecognized decision"))
				st = stateReasoning
			}

		case stateFinal:
			var summary string
			for i := len(conv.Messages) - 1; i >= 0; i-- {
				if conv.Messages[i].Role == orchtypes.RoleAssistant {
					summary = conv.Messages[i].Content
					break
				}
			}
			return orchtypes.TaskResult{Status: orchtypes.TaskSucceeded, Summary: summary}, nil
		}
	}
}

// ResumeApproved re-enters ToolDispatch with a previously-approved
// request, performing the call the runtime parked pending a human
// decision, then continues the loop from Reasoning.
func (r *Runtime) ResumeApproved(ctx context.Context, task orchtypes.Task, spec AgentSpec, conv *orchtypes.Conversation, budget *orchtypes.BudgetState, approved orchtypes.InvocationRequest) (orchtypes.TaskResult, error) {
	detector := newLoopDetector()
	outcome, err := r.tools.Invoke(ctx, approved.ToolCall.Name, approved.ToolCall.Input)
	if appendErr := r.appendSanitizedOutcome(conv, detector, approved.ToolCall, outcome, err); appendErr != nil {
		return orchtypes.TaskResult{Status: orchtypes.TaskFailed, Reason: appendErr.Error()}, nil
	}
	return r.Run(ctx, task, spec, conv, budget)
}

func (r *Runtime) appendSanitizedOutcome(conv *orchtypes.Conversation, detector *loopDetector, call orchtypes.ToolCall, outcome toolregistry.Outcome, invokeErr error) error {
	content := outcome.Data
	isError := outcome.Status == "error" || invokeErr != nil
	if invokeErr != nil && content == "" {
		content = invokeErr.Error()
	}

	result := r.san.Sanitize(content)
	if r.san.HasSecrets(content) {
		r.log.Warn("agentrt: tool result contained secrets, redacted before append", "tool", call.Name)
	}

	if isError {
		sig, abort := detector.RecordError(call.Name, call.Input, content)
		appendMessage(conv, orchtypes.Message{
			ID: uuid.NewString(), Role: orchtypes.RoleTool, CreatedAt: time.Now(),
			ToolResults: []orchtypes.ToolResult{{ToolCallID: call.ID, Content: result.Text, IsError: true, Redacted: len(result.Redactions) > 0}},
		})
		if abort {
			return fmt.Errorf("repeated_error: %s seen %d times", sig.ErrClass, sig.Count)
		}
		return nil
	}

	appendMessage(conv, orchtypes.Message{
		ID: uuid.NewString(), Role: orchtypes.RoleTool, CreatedAt: time.Now(),
		ToolResults: []orchtypes.ToolResult{{ToolCallID: call.ID, Content: result.Text, Redacted: len(result.Redactions) > 0}},
	})
	return nil
}

// recordCost bills usage against the cost tracker and returns the
// task's accrued cost so far plus whether a hard ceiling (per-task or
// hourly) has now been crossed. The caller must convert a crossed
// ceiling into a budget_exhausted result at the next yield (§4.9):
// recording the charge and then continuing the run would make the
// circuit breaker a no-op.
func (r *Runtime) recordCost(taskID, provider, model string, usage llm.Usage) (float64, bool) {
	if r.cost == nil {
		return 0, false
	}
	price := r.prices(provider, model)
	u := costtrack.Usage{
		InputTokens:      usage.InputTokens,
		OutputTokens:     usage.OutputTokens,
		CacheReadTokens:  usage.CacheReadTokens,
		CacheWriteTokens: usage.CacheWriteTokens,
	}
	rec := costtrack.Record{
		ID: uuid.NewString(), TaskID: taskID, Provider: provider, Model: model,
		Usage: u, CostUSD: price.Estimate(u), Timestamp: time.Now(),
	}
	err := r.cost.Record(rec)
	if err != nil && !errors.Is(err, costtrack.ErrCeilingExceeded) {
		r.log.Warn("agentrt: cost record failed", "task_id", taskID, "error", err)
	}
	return r.cost.TaskCost(taskID), errors.Is(err, costtrack.ErrCeilingExceeded)
}

func (r *Runtime) buildRequest(spec AgentSpec, conv *orchtypes.Conversation) llm.Request {
	allTools := r.tools.List(nil)
	toolSpecs := spec.filterTools(allTools)

	req := llm.Request{
		Model:  spec.Model,
		System: spec.SystemPrompt,
		Tools:  toToolDefs(toolSpecs),
	}
	for _, m := range conv.Messages {
		switch m.Role {
		case orchtypes.RoleSystem:
			continue // system prompt carried via req.System, not as a turn
		case orchtypes.RoleUser:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case orchtypes.RoleAssistant:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		case orchtypes.RoleTool:
			for _, tr := range m.ToolResults {
				req.Messages = append(req.Messages, llm.Message{
					Role: llm.RoleTool, ToolCallID: tr.ToolCallID, ToolResult: tr.Content, IsToolError: tr.IsError,
				})
			}
		}
	}
	return req
}

// shellToolNames lists the tool names subject to the per-invocation
// shell command re-classification override (§4.5): a read-only
// command downgrades to green, a destructive one upgrades to red
// irreversibly, anything else keeps its registered risk.
var shellToolNames = map[string]bool{"shell": true, "exec": true}

func shellAwareRisk(spec orchtypes.ToolSpec, args json.RawMessage) orchtypes.RiskTag {
	if !shellToolNames[spec.Name] {
		return spec.Risk
	}
	var parsed struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(args, &parsed); err != nil || parsed.Command == "" {
		return spec.Risk
	}
	return governance.ReclassifyShellRisk(spec.Risk, parsed.Command)
}

func appendMessage(conv *orchtypes.Conversation, m orchtypes.Message) {
	conv.Messages = append(conv.Messages, m)
	conv.UpdatedAt = time.Now()
}

func toolErrorResult(toolCallID, msg string) orchtypes.Message {
	return orchtypes.Message{
		ID: uuid.NewString(), Role: orchtypes.RoleTool, CreatedAt: time.Now(),
		ToolResults: []orchtypes.ToolResult{{ToolCallID: toolCallID, Content: msg, IsError: true}},
	}
}
