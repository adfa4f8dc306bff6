package biz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/pkg/llm"
)

func historyBlock(prompt string) []string {
	start := strings.Index(prompt, "Conversation history:\n")
	if start < 0 {
		return nil
	}
	body := prompt[start+len("Conversation history:\n"):]
	body = body[:strings.Index(body, "\n\nUSER: ")]
	return strings.Split(body, "\n")
}

func TestPromptBuilderLayout(t *testing.T) {
	b := NewPromptBuilder(10)
	prompt := b.Build("- Fan (Cluster 2): 40.0W, THD: 3.0%", "Total power: 40.0W\nHighest consumer: Fan (40.0W)", nil, "How much?")

	assert.True(t, strings.HasPrefix(prompt, systemInstruction))
	assert.Contains(t, prompt, "\n\nCurrent device readings:\n- Fan (Cluster 2): 40.0W, THD: 3.0%")
	assert.Contains(t, prompt, "\n\nPower summary:\nTotal power: 40.0W\nHighest consumer: Fan (40.0W)\n\n")
	assert.NotContains(t, prompt, "Conversation history:")
	assert.True(t, strings.HasSuffix(prompt, "USER: How much?\nASSISTANT:"))

	// 相同输入输出一致
	assert.Equal(t, prompt, b.Build("- Fan (Cluster 2): 40.0W, THD: 3.0%", "Total power: 40.0W\nHighest consumer: Fan (40.0W)", nil, "How much?"))
}

func TestPromptBuilderTruncatesHistory(t *testing.T) {
	b := NewPromptBuilder(3)

	var history []model.Turn
	for i := 0; i < 8; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		history = append(history, model.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}

	lines := historyBlock(b.Build("l", "s", history, "next"))
	assert.Equal(t, []string{
		"assistant: turn 5",
		"user: turn 6",
		"assistant: turn 7",
	}, lines)
}

func TestPromptBuilderDropsRepeatedUserMessage(t *testing.T) {
	b := NewPromptBuilder(2)
	history := []model.Turn{
		{Role: model.RoleUser, Text: "first"},
		{Role: model.RoleAssistant, Text: "answer"},
		{Role: model.RoleUser, Text: "second"},
	}

	lines := historyBlock(b.Build("l", "s", history, "second"))
	assert.Equal(t, []string{"user: first", "assistant: answer"}, lines)

	// 不同消息时保留最后一轮
	lines = historyBlock(b.Build("l", "s", history, "third"))
	assert.Equal(t, []string{"assistant: answer", "user: second"}, lines)
}

func TestNewPromptBuilderDefault(t *testing.T) {
	assert.Equal(t, DefaultMaxHistory, NewPromptBuilder(0).MaxHistory())
}

func longHistory(turns, words int) []model.Turn {
	history := make([]model.Turn, 0, turns)
	for i := 0; i < turns; i++ {
		role := model.RoleUser
		if i%2 == 1 {
			role = model.RoleAssistant
		}
		text := fmt.Sprintf("turn-%d %s", i, strings.TrimSpace(strings.Repeat("word ", words-1)))
		history = append(history, model.Turn{Role: role, Text: text})
	}
	return history
}

func TestPromptFitDropsOldestHistory(t *testing.T) {
	tok := llm.NewWhitespaceTokenizer()
	b := NewPromptBuilder(10)
	const question = "Which device uses the most power?"

	p := b.Compose("- Fan (Cluster 2): 40.0W, THD: 3.0%", "Total power: 40.0W\nHighest consumer: Fan (40.0W)", longHistory(10, 150), question)
	assert.Greater(t, tok.Count(p.String()), DefaultMaxInputTokens)

	fitted := p.Fit(tok, DefaultMaxInputTokens)
	assert.LessOrEqual(t, tok.Count(fitted), DefaultMaxInputTokens)
	assert.True(t, strings.HasPrefix(fitted, systemInstruction))
	assert.Contains(t, fitted, "- Fan (Cluster 2): 40.0W, THD: 3.0%")
	assert.True(t, strings.HasSuffix(fitted, "USER: "+question+"\nASSISTANT:"))

	// 保留最新的若干轮，丢弃最旧的
	lines := historyBlock(fitted)
	require.NotEmpty(t, lines)
	assert.Less(t, len(lines), 10)
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "assistant: turn-9 "))
	assert.NotContains(t, fitted, "turn-0 ")
}

func TestPromptFitWithinBudgetIsUnchanged(t *testing.T) {
	tok := llm.NewWhitespaceTokenizer()
	p := NewPromptBuilder(10).Compose("l", "s", longHistory(2, 3), "next")
	assert.Equal(t, p.String(), p.Fit(tok, DefaultMaxInputTokens))
	assert.Equal(t, p.String(), p.Fit(tok, 0))
}

func TestPromptFitTruncatesOversizedMessage(t *testing.T) {
	tok := llm.NewWhitespaceTokenizer()
	p := NewPromptBuilder(10).Compose("l", "s", longHistory(4, 20), strings.Repeat("why ", 2000))

	fitted := p.Fit(tok, DefaultMaxInputTokens)
	assert.Equal(t, DefaultMaxInputTokens, tok.Count(fitted))
	assert.Nil(t, historyBlock(fitted))
	assert.True(t, strings.HasPrefix(fitted, systemInstruction))
	assert.True(t, strings.HasSuffix(fitted, "why\nASSISTANT:"))
}
