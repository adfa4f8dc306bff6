// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	textgen "github.com/kart-io/nilm-chat/pkg/llm"
	"github.com/kart-io/nilm-chat/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options 定义文本生成模型配置。
type Options struct {
	// Provider 供应商名称（huggingface, ollama, openai, anthropic）。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址，为空时使用供应商默认值。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey API 密钥。
	APIKey string `json:"-" mapstructure:"api-key"`

	// Model 模型名称。
	Model string `json:"model" mapstructure:"model"`

	// Device 推理设备（auto, cpu, cuda）。huggingface 映射为 use_gpu，
	// ollama 映射为 num_gpu，托管供应商只接受 auto。
	Device string `json:"device" mapstructure:"device"`

	// Preload 启动时加载模型，失败只记录告警。
	Preload bool `json:"preload" mapstructure:"preload"`

	// MaxNewTokens 最大生成 token 数。
	MaxNewTokens int `json:"max-new-tokens" mapstructure:"max-new-tokens"`

	// Temperature 采样温度。
	Temperature float64 `json:"temperature" mapstructure:"temperature"`

	// MaxInputTokens 输入截断长度。
	MaxInputTokens int `json:"max-input-tokens" mapstructure:"max-input-tokens"`

	// CacheTTL 模型句柄缓存时间。
	CacheTTL time.Duration `json:"cache-ttl" mapstructure:"cache-ttl"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 最大重试次数。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`
}

// NewOptions 创建默认配置。
func NewOptions() *Options {
	return &Options{
		Provider:       "huggingface",
		Model:          "google/flan-t5-large",
		Device:         string(textgen.DeviceAuto),
		MaxNewTokens:   512,
		Temperature:    0.7,
		MaxInputTokens: 1024,
		CacheTTL:       3600 * time.Second,
		Timeout:        120 * time.Second,
		MaxRetries:     0,
	}
}

// AddFlags adds flags for LLM options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "llm."
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "Text generation provider (huggingface, ollama, openai, anthropic).")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "Provider API base URL, empty for the provider default.")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Provider API key (prefer LLM_API_KEY env var).")
	fs.StringVar(&o.Model, p+"model", o.Model, "Model name.")
	fs.StringVar(&o.Device, p+"device", o.Device, "Inference device (auto, cpu, cuda). Hosted providers accept only auto.")
	fs.BoolVar(&o.Preload, p+"preload", o.Preload, "Load the model at startup instead of on the first chat request.")
	fs.IntVar(&o.MaxNewTokens, p+"max-new-tokens", o.MaxNewTokens, "Maximum number of generated tokens.")
	fs.Float64Var(&o.Temperature, p+"temperature", o.Temperature, "Sampling temperature.")
	fs.IntVar(&o.MaxInputTokens, p+"max-input-tokens", o.MaxInputTokens, "Prompt truncation length in tokens.")
	fs.DurationVar(&o.CacheTTL, p+"cache-ttl", o.CacheTTL, "How long a loaded model handle is reused.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Provider request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Provider retries on 5xx.")
}

// Validate validates the LLM options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Provider {
	case "huggingface", "ollama", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", o.Provider))
	}
	if device, err := textgen.ParseDevice(o.Device); err != nil {
		errs = append(errs, fmt.Errorf("llm.device: %w", err))
	} else if o.hosted() && device != textgen.DeviceAuto {
		errs = append(errs, fmt.Errorf("llm.device %q cannot be honoured by hosted provider %s, use auto", o.Device, o.Provider))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("llm.model is required"))
	}
	if o.MaxNewTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max-new-tokens must be positive"))
	}
	if o.Temperature < 0 || o.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be in [0, 2]"))
	}
	if o.MaxInputTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max-input-tokens must be positive"))
	}
	if o.CacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("llm.cache-ttl must be positive"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	// 托管供应商需要 API key
	if o.hosted() && o.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.api-key is required for %s provider", o.Provider))
	}
	return errs
}

// hosted 报告供应商是否为托管 API，设备由服务端决定。
func (o *Options) hosted() bool {
	return o.Provider == "openai" || o.Provider == "anthropic"
}

// Complete 从环境变量补全密钥。
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("LLM_API_KEY")
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return nil
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *Options) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":    o.BaseURL,
		"api_key":     o.APIKey,
		"model":       o.Model,
		"device":      o.Device,
		"timeout":     o.Timeout,
		"max_retries": o.MaxRetries,
	}
}
