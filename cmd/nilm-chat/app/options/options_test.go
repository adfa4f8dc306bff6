package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	opts := NewServerOptions()
	require.NoError(t, opts.Complete())
	require.NoError(t, opts.Validate())

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, "/api", cfg.HTTPOptions.APIPrefix)
	assert.Equal(t, "sqlite", cfg.DatabaseOptions.Driver)
	assert.Equal(t, "./nilm_chat.db", cfg.DatabaseOptions.DSN)
	assert.Equal(t, "huggingface", cfg.LLMOptions.Provider)
	assert.Equal(t, "google/flan-t5-large", cfg.LLMOptions.Model)
	assert.Equal(t, 512, cfg.LLMOptions.MaxNewTokens)
	assert.InDelta(t, 0.7, cfg.LLMOptions.Temperature, 1e-9)
	assert.Equal(t, time.Hour, cfg.LLMOptions.CacheTTL)
	assert.Equal(t, 10, cfg.ChatOptions.MaxHistory)
	assert.ElementsMatch(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOptions.AllowOrigins)
}

func TestFlagsCoverEverySection(t *testing.T) {
	fss := NewServerOptions().Flags()
	assert.Equal(t, []string{"server", "log", "database", "redis", "llm", "chat", "cors", "tracing", "import"}, fss.Order)
	assert.NotNil(t, fss.FlagSets["llm"].Lookup("llm.provider"))
	assert.NotNil(t, fss.FlagSets["import"].Lookup("import.batch-size"))
}

func TestValidateAggregatesErrors(t *testing.T) {
	opts := NewServerOptions()
	opts.ChatOptions.MaxHistory = -1
	opts.ImportOptions.Workers = 0
	opts.LLMOptions.Temperature = 5

	err := opts.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import.workers")
	assert.Contains(t, err.Error(), "llm.temperature")
}
