// Package ollama 提供 Ollama 文本生成供应商实现。
package ollama

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

const ProviderName = "ollama"

func init() {
	llm.Register(ProviderName, NewProvider)
}

// Config Ollama 供应商配置。
type Config struct {
	BaseURL    string        `json:"base_url" mapstructure:"base_url"`
	Model      string        `json:"model" mapstructure:"model"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
	// Device 映射为 options.num_gpu：cpu 为 0 层，cuda 为全部层。
	Device llm.Device `json:"device" mapstructure:"device"`
}

// allGPULayers num_gpu 超过模型层数时 Ollama 将全部层卸载到 GPU。
const allGPULayers = 999

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "http://localhost:11434",
		Model:   "llama3",
		Timeout: 120 * time.Second,
		Device:  llm.DeviceAuto,
	}
}

// Provider Ollama 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider 从配置 map 创建 Ollama 供应商。
func NewProvider(configMap map[string]any) (llm.TextGenerator, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
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
	device, err := llm.DeviceFromConfig(configMap)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	cfg.Device = device

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 Ollama 供应商。
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

// generateRequest Ollama generate API 请求体。
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p,omitempty"`
	NumGPU      *int    `json:"num_gpu,omitempty"`
}

// generateResponse Ollama generate API 响应体。
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate 根据提示生成文本。
func (p *Provider) Generate(ctx context.Context, prompt string, params llm.GenerateParams) (string, error) {
	reqBody := generateRequest{
		Model:  p.config.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			NumPredict:  params.MaxNewTokens,
			Temperature: params.Temperature,
			TopP:        params.TopP,
		},
	}
	// 贪心解码
	if !params.DoSample {
		reqBody.Options.Temperature = 0
	}
	reqBody.Options.NumGPU = p.numGPU()

	var genResp generateResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/api/generate", nil, reqBody, &genResp); err != nil {
		return "", errors.ErrProviderRequest.WithCause(fmt.Errorf("ollama: %w", err))
	}
	if genResp.Response == "" {
		return "", llm.ErrEmptyOutput
	}

	return genResp.Response, nil
}

// numGPU auto 时返回 nil，由 Ollama 按显存自行分配。
func (p *Provider) numGPU() *int {
	var layers int
	switch p.config.Device {
	case llm.DeviceCPU:
		layers = 0
	case llm.DeviceCUDA:
		layers = allGPULayers
	default:
		return nil
	}
	return &layers
}

// Ping 检查 Ollama 服务可用且已拉取配置的模型。
func (p *Provider) Ping(ctx context.Context) error {
	models, err := p.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		if m == p.config.Model || strings.TrimSuffix(m, ":latest") == p.config.Model {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %s not found", p.config.Model)
}

// ListModels 列出可用模型。
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := p.client.DoJSON(req, &result); err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}

	models := make([]string, len(result.Models))
	for i, m := range result.Models {
		models[i] = m.Name
	}

	return models, nil
}
