// Package anthropic 提供基于 Anthropic Messages API 的文本生成供应商实现。
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/nilm-chat/pkg/llm"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
	"github.com/kart-io/nilm-chat/pkg/utils/httpclient"
)

// ProviderName 是 Anthropic 供应商的名称标识符
const ProviderName = "anthropic"

// APIVersion anthropic-version 请求头取值。
const APIVersion = "2023-06-01"

// maxTemperature Messages API 接受的温度上限。
const maxTemperature = 1.0

func init() {
	llm.Register(ProviderName, NewProvider)
}

// Config Anthropic 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey API 密钥。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Model 模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.anthropic.com",
		Model:   "claude-3-5-haiku-latest",
		Timeout: 120 * time.Second,
	}
}

// Provider Anthropic 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Anthropic 供应商。
func NewProvider(configMap map[string]any) (llm.TextGenerator, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["model"].(string); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api_key 是必需的")
	}
	if err := llm.RequireAutoDevice(ProviderName, configMap); err != nil {
		return nil, err
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Anthropic 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// messagesRequest Messages API 请求体。
type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messagesResponse Messages API 响应体，只关心文本块。
type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Generate 根据提示生成文本。整段提示作为一条 user 消息发送。
func (p *Provider) Generate(ctx context.Context, prompt string, params llm.GenerateParams) (string, error) {
	reqBody := messagesRequest{
		Model:     p.config.Model,
		MaxTokens: params.MaxNewTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	}
	// 贪心解码对应温度 0
	if params.DoSample {
		reqBody.Temperature = min(params.Temperature, maxTemperature)
	}

	var resp messagesResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/v1/messages", p.headers(), reqBody, &resp); err != nil {
		return "", errors.ErrProviderRequest.WithCause(fmt.Errorf("anthropic: %w", err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", llm.ErrEmptyOutput
	}
	return sb.String(), nil
}

// Ping 检查配置的模型是否可访问。
func (p *Provider) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models/%s", p.config.BaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range p.headers() {
		req.Header.Set(k, v)
	}

	if err := p.client.DoJSON(req, nil); err != nil {
		return fmt.Errorf("anthropic: model %s unavailable: %w", p.config.Model, err)
	}
	return nil
}

// headers 返回鉴权与版本请求头。
func (p *Provider) headers() map[string]string {
	return map[string]string{
		"x-api-key":         p.config.APIKey,
		"anthropic-version": APIVersion,
	}
}
