package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockGenerator 模拟供应商实现，用于测试。
type mockGenerator struct {
	name string
}

func (m *mockGenerator) Name() string {
	return m.name
}

func (m *mockGenerator) Generate(_ context.Context, prompt string, _ GenerateParams) (string, error) {
	return "echo: " + prompt, nil
}

func TestRegisterAndNewTextGenerator(t *testing.T) {
	Register("test-provider", func(config map[string]any) (TextGenerator, error) {
		name, _ := config["model"].(string)
		return &mockGenerator{name: name}, nil
	})

	gen, err := NewTextGenerator("test-provider", map[string]any{"model": "tiny"})
	require.NoError(t, err)
	assert.Equal(t, "tiny", gen.Name())

	out, err := gen.Generate(context.Background(), "hi", DefaultGenerateParams(16, 0.7))
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)

	assert.Contains(t, ListProviders(), "test-provider")
}

func TestNewTextGeneratorUnknown(t *testing.T) {
	_, err := NewTextGenerator("does-not-exist", nil)
	assert.Error(t, err)
}

func TestDefaultGenerateParams(t *testing.T) {
	p := DefaultGenerateParams(512, 0.7)
	assert.Equal(t, 512, p.MaxNewTokens)
	assert.Equal(t, 0.7, p.Temperature)
	assert.Equal(t, 0.95, p.TopP)
	assert.True(t, p.DoSample)
}
