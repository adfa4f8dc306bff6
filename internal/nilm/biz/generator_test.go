package biz

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nilm-chat/pkg/llm"
	errs "github.com/kart-io/nilm-chat/pkg/utils/errors"
)

func newHandle(gen llm.TextGenerator) *ModelHandle {
	return &ModelHandle{Generator: gen, Tokenizer: llm.NewWhitespaceTokenizer(), LoadedAt: testBase}
}

func TestResponseGeneratorCleansOutput(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "The fridge uses 120W.", "The fridge uses 120W."},
		{"special tokens", "<pad> The fridge uses 120W.</s>", "The fridge uses 120W."},
		{"assistant echo", "ASSISTANT: Lighting is on.", "Lighting is on."},
		{"lowercase echo", "  assistant:Lighting is on.  ", "Lighting is on."},
		{"chat markers", "<|im_start|>Heater<|im_end|>", "Heater"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewResponseGenerator(llm.DefaultGenerateParams(64, 0.7), 16, nil)
			got, err := g.Generate(context.Background(), newHandle(&fakeGenerator{output: tt.raw}), "prompt")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseGeneratorPassesParamsAndTruncates(t *testing.T) {
	gen := &fakeGenerator{output: "fine"}
	g := NewResponseGenerator(llm.DefaultGenerateParams(64, 0.5), 4, nil)

	_, err := g.Generate(context.Background(), newHandle(gen), "one two three four five six")
	require.NoError(t, err)

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, "one two three four", gen.prompts[0])
	assert.Equal(t, llm.GenerateParams{MaxNewTokens: 64, Temperature: 0.5, TopP: 0.95, DoSample: true}, gen.params[0])
}

func TestResponseGeneratorErrors(t *testing.T) {
	g := NewResponseGenerator(llm.DefaultGenerateParams(64, 0.7), 0, nil)

	_, err := g.Generate(context.Background(), newHandle(&fakeGenerator{output: "<pad></s>  "}), "p")
	assert.ErrorIs(t, err, llm.ErrEmptyOutput)
	assert.True(t, errs.Is(err, errs.ErrGeneration))

	boom := errors.New("inference failed")
	_, err = g.Generate(context.Background(), newHandle(&fakeGenerator{err: boom}), "p")
	assert.ErrorIs(t, err, boom)
	assert.True(t, errs.Is(err, errs.ErrGeneration))
	assert.Equal(t, 500, errs.FromError(err).HTTPStatus())
}

func TestResponseGeneratorDefaultInputLimit(t *testing.T) {
	gen := &fakeGenerator{output: "ok"}
	g := NewResponseGenerator(llm.DefaultGenerateParams(8, 0.7), 0, nil)

	long := strings.Repeat("w ", 2000)
	_, err := g.Generate(context.Background(), newHandle(gen), long)
	require.NoError(t, err)
	assert.Len(t, strings.Fields(gen.prompts[0]), DefaultMaxInputTokens)
}
