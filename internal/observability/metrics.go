package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus instrumentation for the orchestrator, the
// agent runtime, and governance.
type Metrics struct {
	TasksStarted    *prometheus.CounterVec   // status
	TaskDuration    *prometheus.HistogramVec // status
	LLMRequestDur   *prometheus.HistogramVec // provider, model
	LLMTokensUsed   *prometheus.CounterVec   // provider, model, kind
	ToolInvocations *prometheus.CounterVec   // tool, status
	ToolDuration    *prometheus.HistogramVec // tool
	ApprovalsPending prometheus.Gauge
	GovernanceDecisions *prometheus.CounterVec // decision, risk
	CostUSD         *prometheus.CounterVec   // provider, model
	EmergencyStops  prometheus.Counter
	LoopDetections  prometheus.Counter
}

// NewMetrics registers and returns a Metrics bound to reg. Pass
// prometheus.NewRegistry() in tests to avoid the global default
// registry's duplicate-registration panics across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TasksStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_tasks_total", Help: "Tasks completed by terminal status.",
		}, []string{"status"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentry_task_duration_seconds", Help: "Task wall-clock duration.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		LLMRequestDur: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentry_llm_request_duration_seconds", Help: "LLM call latency.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "model"}),
		LLMTokensUsed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_llm_tokens_total", Help: "Tokens consumed.",
		}, []string{"provider", "model", "kind"}),
		ToolInvocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_tool_invocations_total", Help: "Tool invocations by outcome.",
		}, []string{"tool", "status"}),
		ToolDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name: "sentry_tool_duration_seconds", Help: "Tool execution latency.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"tool"}),
		ApprovalsPending: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentry_approvals_pending", Help: "Approvals awaiting an operator decision.",
		}),
		GovernanceDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_governance_decisions_total", Help: "Governance decisions by outcome and risk.",
		}, []string{"decision", "risk"}),
		CostUSD: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentry_cost_usd_total", Help: "Estimated LLM spend.",
		}, []string{"provider", "model"}),
		EmergencyStops: f.NewCounter(prometheus.CounterOpts{
			Name: "sentry_emergency_stops_total", Help: "Emergency stop triggers observed.",
		}),
		LoopDetections: f.NewCounter(prometheus.CounterOpts{
			Name: "sentry_loop_detections_total", Help: "Tasks terminated by the loop detector.",
		}),
	}
}
