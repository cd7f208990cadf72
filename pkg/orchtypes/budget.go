package orchtypes

import "time"

// BudgetState tracks the resource ceilings a running Task is measured
// against: iteration count, wall-clock elapsed, and accrued cost.
type BudgetState struct {
	TaskID           string        `json:"task_id"`
	Iterations       int           `json:"iterations"`
	MaxIterations    int           `json:"max_iterations"`
	Elapsed          time.Duration `json:"elapsed"`
	MaxWallClock     time.Duration `json:"max_wall_clock"`
	CostUSD          float64       `json:"cost_usd"`
	MaxCostUSD       float64       `json:"max_cost_usd"`
	StartedAt        time.Time     `json:"started_at"`
}

// BudgetBreach names which ceiling, if any, has been crossed.
type BudgetBreach string

const (
	BreachNone        BudgetBreach = ""
	BreachIterations  BudgetBreach = "iterations"
	BreachWallClock   BudgetBreach = "wall_clock"
	BreachCost        BudgetBreach = "cost"
)

// Check returns the first ceiling the state has crossed, or BreachNone.
func (b BudgetState) Check() BudgetBreach {
	switch {
	case b.MaxIterations > 0 && b.Iterations >= b.MaxIterations:
		return BreachIterations
	case b.MaxWallClock > 0 && b.Elapsed >= b.MaxWallClock:
		return BreachWallClock
	case b.MaxCostUSD > 0 && b.CostUSD >= b.MaxCostUSD:
		return BreachCost
	default:
		return BreachNone
	}
}

// WarnThreshold is the fraction of a ceiling at which a soft warning
// should be surfaced to observability without stopping the task.
const WarnThreshold = 0.8

// Warnings lists which ceilings are at or above WarnThreshold but not
// yet breached.
func (b BudgetState) Warnings() []BudgetBreach {
	var w []BudgetBreach
	if b.MaxIterations > 0 && float64(b.Iterations) >= WarnThreshold*float64(b.MaxIterations) && b.Check() != BreachIterations {
		w = append(w, BreachIterations)
	}
	if b.MaxWallClock > 0 && float64(b.Elapsed) >= WarnThreshold*float64(b.MaxWallClock) && b.Check() != BreachWallClock {
		w = append(w, BreachWallClock)
	}
	if b.MaxCostUSD > 0 && b.CostUSD >= WarnThreshold*b.MaxCostUSD && b.Check() != BreachCost {
		w = append(w, BreachCost)
	}
	return w
}
