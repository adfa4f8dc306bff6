package biz

import (
	"strings"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/pkg/llm"
)

// DefaultMaxHistory 提示中保留的历史轮数。
const DefaultMaxHistory = 10

// systemInstruction 固定的系统指令：身份、约束与 NILM 领域知识。
const systemInstruction = `You are an assistant specializing in electrical power monitoring and Non-Intrusive Load Monitoring (NILM).
Your task is to help users understand their electrical usage data and the devices detected by the NILM system.

Rules:
- Only discuss devices that are present in the data below.
- If you are unsure or the data does not answer the question, say so.
- Never invent devices, readings or numbers that are not in the data.

Domain notes:
- THD (Total Harmonic Distortion): below 5% indicates clean consumption such as resistive loads; 5-10% is typical for many electronic devices; above 10% suggests switch-mode power supplies or poor power quality.
- Power factor: close to 1.0 is ideal; 0.5-0.8 indicates reactive power that does no useful work; below 0.5 may indicate issues worth addressing.
- Device types: resistive loads (heaters, incandescent lights) have low THD and high power factor; electronics (computers, TVs) have moderate to high THD; motor-driven appliances (refrigerators, fans) may have lower power factors.`

// PromptBuilder 组装有数据约束的单段提示。输出对相同输入是确定的。
type PromptBuilder struct {
	maxHistory int
}

// NewPromptBuilder 创建提示构建器，maxHistory <= 0 时使用默认值。
func NewPromptBuilder(maxHistory int) *PromptBuilder {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &PromptBuilder{maxHistory: maxHistory}
}

// MaxHistory 返回保留的历史轮数。
func (b *PromptBuilder) MaxHistory() int {
	return b.maxHistory
}

// Build 依次拼接系统指令、设备列表、功率汇总、截断后的历史和当前消息。
func (b *PromptBuilder) Build(listing, summary string, history []model.Turn, message string) string {
	return b.Compose(listing, summary, history, message).String()
}

// Compose 返回可按 token 预算裁剪的提示。
func (b *PromptBuilder) Compose(listing, summary string, history []model.Turn, message string) *Prompt {
	var sb strings.Builder
	sb.WriteString(systemInstruction)
	sb.WriteString("\n\nCurrent device readings:\n")
	sb.WriteString(listing)
	sb.WriteString("\n\nPower summary:\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n")

	return &Prompt{
		head:    sb.String(),
		turns:   b.window(history, message),
		message: message,
	}
}

// Prompt 一次请求的提示：固定部分（指令与设备上下文）、历史和当前消息。
type Prompt struct {
	head    string
	turns   []model.Turn
	message string
}

// String 渲染完整提示。
func (p *Prompt) String() string {
	return renderPrompt(p.head, p.turns, p.message)
}

// Fit 渲染不超过 maxTokens 个 token 的提示。
// 先从最旧的历史开始丢弃；没有历史仍超出时截断用户消息，
// 指令、设备上下文和结尾的 "ASSISTANT:" 始终保留。
func (p *Prompt) Fit(tok llm.Tokenizer, maxTokens int) string {
	if maxTokens <= 0 {
		return p.String()
	}
	for turns := p.turns; ; turns = turns[1:] {
		text := renderPrompt(p.head, turns, p.message)
		if tok.Count(text) <= maxTokens {
			return text
		}
		if len(turns) == 0 {
			break
		}
	}

	room := maxTokens - tok.Count(renderPrompt(p.head, nil, ""))
	if room <= 0 {
		// 固定部分本身超出预算，交给生成器截断
		return renderPrompt(p.head, nil, p.message)
	}
	message, _ := tok.Truncate(p.message, room)
	return renderPrompt(p.head, nil, message)
}

func renderPrompt(head string, turns []model.Turn, message string) string {
	var sb strings.Builder
	sb.WriteString(head)
	if len(turns) > 0 {
		sb.WriteString("Conversation history:\n")
		for _, t := range turns {
			sb.WriteString(t.Role)
			sb.WriteString(": ")
			sb.WriteString(t.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("USER: ")
	sb.WriteString(message)
	sb.WriteString("\nASSISTANT:")
	return sb.String()
}

// window 返回最后 maxHistory 轮历史（按时间顺序）。
// 若最后一轮就是当前用户消息，先将其去掉，避免重复。
func (b *PromptBuilder) window(history []model.Turn, message string) []model.Turn {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == model.RoleUser && last.Text == message {
			history = history[:n-1]
		}
	}
	if len(history) > b.maxHistory {
		history = history[len(history)-b.maxHistory:]
	}
	return history
}
