// Package convctx prunes a Conversation to fit within a token budget
// before each LLM invocation: pin the system message and recent
// messages, summarize the oldest block, then drop tool results as a
// last resort.
package convctx

import (
	"fmt"
	"time"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

// Options configures Prune. K is the number of trailing user and
// trailing assistant messages that are never evicted.
type Options struct {
	MaxTokens int
	K         int
}

// DefaultOptions matches the spec defaults: K=3, budget sized for a
// mid-size context window with headroom for the next completion.
func DefaultOptions() Options {
	return Options{MaxTokens: 8000, K: 3}
}

const summaryMarker = "__convctx_summary__"

func charsToTokens(n int) int { return n / 4 }

func estimateTokens(msgs []orchtypes.Message) int {
	total := 0
	for _, m := range msgs {
		total += charsToTokens(len(m.Content))
		for _, tr := range m.ToolResults {
			total += charsToTokens(len(tr.Content))
		}
	}
	return total
}

// Prune applies the four-step policy until estimated token usage is
// at or under opts.MaxTokens, or no further reduction is possible. It
// runs in O(n) over msgs: each message is visited a constant number of
// times across the summarize and drop passes.
func Prune(msgs []orchtypes.Message, opts Options) []orchtypes.Message {
	if opts.MaxTokens <= 0 {
		opts = DefaultOptions()
	}
	if opts.K <= 0 {
		opts.K = 3
	}
	if estimateTokens(msgs) <= opts.MaxTokens {
		return msgs
	}

	pinned := pinnedIndices(msgs, opts.K)
	out := summarizeOldest(msgs, pinned)
	if estimateTokens(out) <= opts.MaxTokens {
		return out
	}

	return dropToolResultsOldestFirst(out, pinned, opts.MaxTokens)
}

// pinnedIndices marks the system message (index 0 if role system) and
// the last K user and last K assistant messages as never-evict.
func pinnedIndices(msgs []orchtypes.Message, k int) map[int]bool {
	pinned := make(map[int]bool)
	for i, m := range msgs {
		if m.Role == orchtypes.RoleSystem && i == 0 {
			pinned[i] = true
		}
	}
	userSeen, assistantSeen := 0, 0
	for i := len(msgs) - 1; i >= 0; i-- {
		switch msgs[i].Role {
		case orchtypes.RoleUser:
			if userSeen < k {
				pinned[i] = true
				userSeen++
			}
		case orchtypes.RoleAssistant:
			if assistantSeen < k {
				pinned[i] = true
				assistantSeen++
			}
		}
	}
	return pinned
}

// summarizeOldest collapses the oldest contiguous run of non-pinned
// messages into one synthetic system message, preserving order.
func summarizeOldest(msgs []orchtypes.Message, pinned map[int]bool) []orchtypes.Message {
	start := -1
	end := -1
	for i, m := range msgs {
		if pinned[i] || m.Role == orchtypes.RoleSystem {
			if start >= 0 {
				break
			}
			continue
		}
		if start < 0 {
			start = i
		}
		end = i
	}
	if start < 0 || end < start {
		return msgs
	}

	var summaryText string
	for i := start; i <= end; i++ {
		summaryText += msgs[i].Content + " "
	}
	if len(summaryText) > 400 {
		summaryText = summaryText[:400]
	}

	summary := orchtypes.Message{
		ID:        "summary-" + fmt.Sprint(start) + "-" + fmt.Sprint(end),
		Role:      orchtypes.RoleSystem,
		Content:   "Earlier context: " + summaryText,
		CreatedAt: time.Now(),
	}

	out := make([]orchtypes.Message, 0, len(msgs)-(end-start))
	out = append(out, msgs[:start]...)
	out = append(out, summary)
	out = append(out, msgs[end+1:]...)
	return out
}

// dropToolResultsOldestFirst replaces ToolResult entries, oldest first,
// with a one-line marker until the budget is met or no ToolResults
// remain to drop.
func dropToolResultsOldestFirst(msgs []orchtypes.Message, pinned map[int]bool, maxTokens int) []orchtypes.Message {
	out := make([]orchtypes.Message, len(msgs))
	copy(out, msgs)

	total := estimateTokens(out)
	for i := range out {
		if total <= maxTokens {
			break
		}
		if pinned[i] || len(out[i].ToolResults) == 0 {
			continue
		}
		total -= estimateTokens(out[i : i+1])
		dropped := out[i]
		for j, tr := range dropped.ToolResults {
			dropped.Content += fmt.Sprintf("\n[omitted tool result: %s]", shortDigest(tr.Content))
			dropped.ToolResults[j] = orchtypes.ToolResult{ToolCallID: tr.ToolCallID, Content: "", Truncated: true}
		}
		out[i] = dropped
		total += estimateTokens(out[i : i+1])
	}
	return out
}

func shortDigest(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:12] + "…"
}
