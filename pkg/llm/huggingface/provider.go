// Package huggingface 提供 HuggingFace Inference API 文本生成供应商实现。
// 支持 text2text-generation（如 flan-t5）与 text-generation 模型。
package huggingface

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

// ProviderName 是 HuggingFace 供应商的名称标识符
const ProviderName = "huggingface"

func init() {
	llm.Register(ProviderName, NewProvider)
}

// Config HuggingFace 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey HuggingFace API Token，匿名访问时可为空。
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Model 模型 ID。
	Model string `json:"model" mapstructure:"model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`

	// WaitForModel 如果模型正在加载，是否等待。
	WaitForModel bool `json:"wait_for_model" mapstructure:"wait_for_model"`

	// Device 推理设备，映射为 options.use_gpu。
	Device llm.Device `json:"device" mapstructure:"device"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api-inference.huggingface.co",
		Model:        "google/flan-t5-large",
		Timeout:      120 * time.Second,
		WaitForModel: true,
		Device:       llm.DeviceAuto,
	}
}

// Provider HuggingFace 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 HuggingFace 供应商。
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
	if v, ok := configMap["wait_for_model"].(bool); ok {
		cfg.WaitForModel = v
	}
	device, err := llm.DeviceFromConfig(configMap)
	if err != nil {
		return nil, fmt.Errorf("huggingface: %w", err)
	}
	cfg.Device = device

	if cfg.Model == "" {
		return nil, fmt.Errorf("huggingface: model 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 HuggingFace 供应商。
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

// generateRequest HuggingFace Text Generation API 请求体。
type generateRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters *generateParams `json:"parameters,omitempty"`
	Options    *requestOptions `json:"options,omitempty"`
}

type generateParams struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TopP           float64 `json:"top_p,omitempty"`
	DoSample       bool    `json:"do_sample"`
	ReturnFullText bool    `json:"return_full_text"`
}

type requestOptions struct {
	WaitForModel bool  `json:"wait_for_model,omitempty"`
	UseGPU       *bool `json:"use_gpu,omitempty"`
}

// generateResponse HuggingFace Text Generation API 响应体。
type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, params llm.GenerateParams) (string, error) {
	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: &generateParams{
			MaxNewTokens:   params.MaxNewTokens,
			Temperature:    params.Temperature,
			TopP:           params.TopP,
			DoSample:       params.DoSample,
			ReturnFullText: false,
		},
		Options: p.requestOptions(),
	}

	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, p.config.Model)

	var responses []generateResponse
	if err := p.client.PostJSON(ctx, url, p.headers(), reqBody, &responses); err != nil {
		return "", errors.ErrProviderRequest.WithCause(fmt.Errorf("huggingface: %w", err))
	}

	if len(responses) == 0 {
		return "", llm.ErrEmptyOutput
	}

	return responses[0].GeneratedText, nil
}

// requestOptions 生成请求选项，auto 时不设置 use_gpu，由服务端决定。
func (p *Provider) requestOptions() *requestOptions {
	opts := &requestOptions{WaitForModel: p.config.WaitForModel}
	switch p.config.Device {
	case llm.DeviceCPU:
		opts.UseGPU = new(bool)
	case llm.DeviceCUDA:
		useGPU := true
		opts.UseGPU = &useGPU
	}
	return opts
}

// modelStatus 模型状态接口响应体。
type modelStatus struct {
	Loaded bool   `json:"loaded"`
	State  string `json:"state"`
}

// Ping 查询模型状态，模型不存在或服务不可达时返回错误。
func (p *Provider) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/status/%s", p.config.BaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range p.headers() {
		req.Header.Set(k, v)
	}

	var status modelStatus
	if err := p.client.DoJSON(req, &status); err != nil {
		return fmt.Errorf("huggingface: model %s unavailable: %w", p.config.Model, err)
	}
	return nil
}

// headers 返回鉴权请求头。
func (p *Provider) headers() map[string]string {
	if p.config.APIKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + p.config.APIKey}
}
