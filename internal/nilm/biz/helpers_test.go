package biz

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/llm"
)

// 辅助函数：创建内存 SQLite 存储
func setupTestStore(t *testing.T) store.Factory {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := store.NewFactory(db)
	require.NoError(t, f.AutoMigrate(context.Background()))
	return f
}

var testBase = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func seedReadings(t *testing.T, f store.Factory, readings ...*model.ElectricalData) {
	t.Helper()
	require.NoError(t, f.Measurements().CreateBatch(context.Background(), readings))
}

func reading(ts time.Time, cluster int, state string, watt, thd float64) *model.ElectricalData {
	return &model.ElectricalData{
		Timestamp:     ts,
		Voltage:       230,
		Current:       watt / 230,
		RealPower:     watt / 1000,
		ApparentPower: watt / 900,
		PowerFactor:   0.9,
		THD:           thd,
		RealPowerWatt: watt,
		Cluster:       cluster,
		DeviceState:   state,
	}
}

// fakeGenerator 记录收到的提示并返回预设结果
type fakeGenerator struct {
	mu      sync.Mutex
	output  string
	err     error
	prompts []string
	params  []llm.GenerateParams
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string, params llm.GenerateParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.params = append(g.params, params)
	return g.output, g.err
}

func (g *fakeGenerator) Name() string { return "fake" }

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

func staticLoad(gen llm.TextGenerator) LoadFunc {
	return func(context.Context) (llm.TextGenerator, llm.Tokenizer, error) {
		return gen, llm.NewWhitespaceTokenizer(), nil
	}
}

func newTestChatService(f store.Factory, load LoadFunc) *ChatService {
	return NewChatService(
		NewDeviceAggregator(f.Measurements(), DefaultDeviceWindow),
		NewPromptBuilder(DefaultMaxHistory),
		NewModelLoader(load, time.Hour),
		NewResponseGenerator(llm.DefaultGenerateParams(512, 0.7), DefaultMaxInputTokens, nil),
		nil,
	)
}
