// Package openai 提供基于 openai-go Responses API 的文本生成供应商实现。
// 兼容 OpenAI API 的服务可通过 base_url 接入。
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"github.com/kart-io/nilm-chat/pkg/llm"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// ProviderName 是 OpenAI 供应商的名称标识符
const ProviderName = "openai"

func init() {
	llm.Register(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址，为空时使用官方地址。
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
		Model:   "gpt-4o-mini",
		Timeout: 120 * time.Second,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *openai.Client
}

// NewProvider 从配置 map 创建 OpenAI 供应商。
func NewProvider(configMap map[string]any) (llm.TextGenerator, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
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
		return nil, fmt.Errorf("openai: api_key 是必需的")
	}
	if err := llm.RequireAutoDevice(ProviderName, configMap); err != nil {
		return nil, err
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	client := openai.NewClient(opts...)
	return &Provider{
		config: cfg,
		client: &client,
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, params llm.GenerateParams) (string, error) {
	req := responses.ResponseNewParams{
		Model: p.config.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
	}
	if params.MaxNewTokens > 0 {
		req.MaxOutputTokens = openai.Int(int64(params.MaxNewTokens))
	}
	// do_sample=false 对应贪心解码
	if params.DoSample {
		req.Temperature = openai.Float(params.Temperature)
		if params.TopP > 0 {
			req.TopP = openai.Float(params.TopP)
		}
	} else {
		req.Temperature = openai.Float(0)
	}

	resp, err := p.client.Responses.New(ctx, req)
	if err != nil {
		return "", errors.ErrProviderRequest.WithCause(fmt.Errorf("openai: %w", err))
	}

	text := resp.OutputText()
	if text == "" {
		return "", llm.ErrEmptyOutput
	}
	return text, nil
}

// Ping 检查配置的模型是否可访问。
func (p *Provider) Ping(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.config.Model); err != nil {
		return fmt.Errorf("openai: model %s unavailable: %w", p.config.Model, err)
	}
	return nil
}
