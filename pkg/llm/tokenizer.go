package llm

import (
	"regexp"
	"strings"
	"unicode"
)

// Tokenizer 负责提示截断与输出清理。
// 远程推理服务自行分词，这里只需保证输入长度上限与输出格式一致。
type Tokenizer interface {
	// Count 返回文本的 token 数。
	Count(text string) int

	// Truncate 将文本截断到 maxTokens 个 token，返回截断后的文本与 token 数。
	Truncate(text string, maxTokens int) (string, int)

	// Clean 去除特殊 token 与控制 token。
	Clean(text string) string
}

// specialTokens 匹配 seq2seq 模型常见的特殊 token 以及 <|...|> 形式的控制 token。
var specialTokens = regexp.MustCompile(`<pad>|</s>|<s>|<unk>|<\|[^|>]*\|>`)

// WhitespaceTokenizer 以空白分词的近似实现。
type WhitespaceTokenizer struct{}

// NewWhitespaceTokenizer 创建分词器。
func NewWhitespaceTokenizer() *WhitespaceTokenizer {
	return &WhitespaceTokenizer{}
}

// Count 返回空白分隔的 token 数。
func (t *WhitespaceTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

// Truncate 保留前 maxTokens 个 token。
// 未超出上限时原样返回，保留原有换行。
func (t *WhitespaceTokenizer) Truncate(text string, maxTokens int) (string, int) {
	fields := strings.Fields(text)
	if maxTokens <= 0 || len(fields) <= maxTokens {
		return text, len(fields)
	}

	// 找到第 maxTokens 个 token 的结束位置，按原文切片以保留格式
	end, count, inToken := 0, 0, false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inToken {
			inToken = true
		}
		if space && inToken {
			inToken = false
			count++
			if count == maxTokens {
				end = i
				break
			}
		}
	}
	if end == 0 {
		end = len(text)
	}
	return text[:end], maxTokens
}

// Clean 去除特殊 token 并压缩首尾空白。
func (t *WhitespaceTokenizer) Clean(text string) string {
	return strings.TrimSpace(specialTokens.ReplaceAllString(text, ""))
}
