// Package llm 提供统一的文本生成模型抽象层。
// 供应商通过 Register 注册工厂，调用方按名称创建 TextGenerator。
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrEmptyOutput 表示模型未返回任何文本。
var ErrEmptyOutput = errors.New("llm: empty generation output")

// GenerateParams 解码参数。
type GenerateParams struct {
	MaxNewTokens int
	Temperature  float64
	TopP         float64
	DoSample     bool
}

// DefaultGenerateParams 返回对话使用的解码参数。
func DefaultGenerateParams(maxNewTokens int, temperature float64) GenerateParams {
	return GenerateParams{
		MaxNewTokens: maxNewTokens,
		Temperature:  temperature,
		TopP:         0.95,
		DoSample:     true,
	}
}

// TextGenerator 定义文本生成接口（单轮，输入为完整提示）。
type TextGenerator interface {
	// Generate 根据提示生成文本。
	Generate(ctx context.Context, prompt string, params GenerateParams) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Pinger 由能够探测模型可用性的供应商实现。
// 模型加载时调用，失败则视为模型不可用。
type Pinger interface {
	Ping(ctx context.Context) error
}

// Factory 供应商工厂函数类型。
type Factory func(config map[string]any) (TextGenerator, error)

// registry 供应商注册表。
var registry = &providerRegistry{
	factories: make(map[string]Factory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// Register 注册供应商工厂，同名覆盖。
func Register(name string, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.factories[name] = factory
}

// NewTextGenerator 根据名称创建供应商实例。
func NewTextGenerator(name string, config map[string]any) (TextGenerator, error) {
	registry.mu.RLock()
	factory, ok := registry.factories[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称（有序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.factories))
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
