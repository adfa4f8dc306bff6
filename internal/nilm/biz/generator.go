package biz

import (
	"context"
	"strings"
	"time"

	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	"github.com/kart-io/nilm-chat/pkg/llm"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// DefaultMaxInputTokens 提示截断长度。
const DefaultMaxInputTokens = 1024

const assistantCue = "assistant:"

// ResponseGenerator 使用已加载的模型生成回复文本。
type ResponseGenerator struct {
	params         llm.GenerateParams
	maxInputTokens int
	metrics        *metrics.ChatMetrics
}

// NewResponseGenerator 创建回复生成器。
func NewResponseGenerator(params llm.GenerateParams, maxInputTokens int, m *metrics.ChatMetrics) *ResponseGenerator {
	if maxInputTokens <= 0 {
		maxInputTokens = DefaultMaxInputTokens
	}
	return &ResponseGenerator{
		params:         params,
		maxInputTokens: maxInputTokens,
		metrics:        m,
	}
}

// MaxInputTokens 返回输入 token 上限。
func (g *ResponseGenerator) MaxInputTokens() int {
	return g.maxInputTokens
}

// Generate 截断提示、调用模型，并清理特殊标记和开头回显的 "ASSISTANT:"。
// 失败统一包装为 ErrGeneration，原因可通过 errors.Is 检查。
func (g *ResponseGenerator) Generate(ctx context.Context, handle *ModelHandle, prompt string) (string, error) {
	input, _ := handle.Tokenizer.Truncate(prompt, g.maxInputTokens)

	start := time.Now()
	raw, err := handle.Generator.Generate(ctx, input, g.params)
	g.metrics.RecordGeneration(handle.Generator.Name(), time.Since(start), err)
	if err != nil {
		return "", errors.ErrGeneration.WithCause(err)
	}

	text := handle.Tokenizer.Clean(raw)
	if len(text) >= len(assistantCue) && strings.EqualFold(text[:len(assistantCue)], assistantCue) {
		text = text[len(assistantCue):]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.ErrGeneration.WithCause(llm.ErrEmptyOutput)
	}
	return text, nil
}
