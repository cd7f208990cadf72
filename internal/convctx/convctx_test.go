package convctx

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haasonsaas/sentry/pkg/orchtypes"
)

func msg(role orchtypes.Role, content string) orchtypes.Message {
	return orchtypes.Message{Role: role, Content: content, CreatedAt: time.Now()}
}

func TestPrune_UnderBudgetUnchanged(t *testing.T) {
	msgs := []orchtypes.Message{msg(orchtypes.RoleSystem, "sys"), msg(orchtypes.RoleUser, "hi")}
	out := Prune(msgs, Options{MaxTokens: 100000, K: 3})
	assert.Equal(t, msgs, out)
}

func TestPrune_NeverEvictsSystemMessage(t *testing.T) {
	msgs := []orchtypes.Message{msg(orchtypes.RoleSystem, "system role")}
	for i := 0; i < 50; i++ {
		msgs = append(msgs, msg(orchtypes.RoleUser, strings.Repeat("x", 500)))
		msgs = append(msgs, msg(orchtypes.RoleAssistant, strings.Repeat("y", 500)))
	}
	out := Prune(msgs, Options{MaxTokens: 200, K: 2})
	require.NotEmpty(t, out)
	assert.Equal(t, orchtypes.RoleSystem, out[0].Role)
	assert.Equal(t, "system role", out[0].Content)
}

func TestPrune_RetainsLastKUserAndAssistant(t *testing.T) {
	var msgs []orchtypes.Message
	msgs = append(msgs, msg(orchtypes.RoleSystem, "sys"))
	for i := 0; i < 20; i++ {
		msgs = append(msgs, msg(orchtypes.RoleUser, strings.Repeat("u", 400)))
		msgs = append(msgs, msg(orchtypes.RoleAssistant, strings.Repeat("a", 400)))
	}
	out := Prune(msgs, Options{MaxTokens: 150, K: 3})

	lastUsers, lastAssistants := 0, 0
	for _, m := range out[len(out)-6:] {
		if m.Role == orchtypes.RoleUser {
			lastUsers++
		}
		if m.Role == orchtypes.RoleAssistant {
			lastAssistants++
		}
	}
	assert.Equal(t, 3, lastUsers)
	assert.Equal(t, 3, lastAssistants)
}

func TestPrune_DropsToolResultsOldestFirst(t *testing.T) {
	var msgs []orchtypes.Message
	msgs = append(msgs, msg(orchtypes.RoleSystem, "sys"))
	for i := 0; i < 10; i++ {
		m := msg(orchtypes.RoleTool, "")
		m.ToolResults = []orchtypes.ToolResult{{ToolCallID: "c", Content: strings.Repeat("r", 2000)}}
		msgs = append(msgs, m)
		msgs = append(msgs, msg(orchtypes.RoleUser, "short"))
		msgs = append(msgs, msg(orchtypes.RoleAssistant, "short"))
	}
	out := Prune(msgs, Options{MaxTokens: 50, K: 1})
	assert.LessOrEqual(t, estimateTokens(out), 200)

	// Summarizing alone leaves two 500-token tool results over a budget of
	// 600; dropping the older one is enough, so the newer one survives.
	toolMsg := func(fill string) orchtypes.Message {
		m := msg(orchtypes.RoleTool, "")
		m.ToolResults = []orchtypes.ToolResult{{ToolCallID: "call-" + fill, Content: strings.Repeat(fill, 2000)}}
		return m
	}
	msgs = []orchtypes.Message{
		msg(orchtypes.RoleSystem, "sys"),
		toolMsg("a"),
		msg(orchtypes.RoleUser, "short"),
		toolMsg("b"),
		toolMsg("c"),
		msg(orchtypes.RoleAssistant, "short"),
	}
	out = Prune(msgs, Options{MaxTokens: 600, K: 1})
	require.Len(t, out, 6)
	assert.True(t, out[3].ToolResults[0].Truncated)
	assert.Contains(t, out[3].Content, "[omitted tool result:")
	assert.False(t, out[4].ToolResults[0].Truncated)
	assert.Len(t, out[4].ToolResults[0].Content, 2000)
	assert.LessOrEqual(t, estimateTokens(out), 600)
}
