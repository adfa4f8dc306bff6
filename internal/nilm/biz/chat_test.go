package biz

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/llm"
	errs "github.com/kart-io/nilm-chat/pkg/utils/errors"
)

func TestChatServiceNoDevices(t *testing.T) {
	f := setupTestStore(t)
	gen := &fakeGenerator{output: "unused"}
	svc := newTestChatService(f, staticLoad(gen))

	for _, msg := range []string{"hello", "what is using power?"} {
		res, err := svc.Generate(context.Background(), msg, nil)
		require.NoError(t, err)
		assert.Equal(t, NoDevicesMessage, res.Response)
		assert.Empty(t, res.Devices)
		assert.NotNil(t, res.Devices)
		assert.Equal(t, 0.9, res.Confidence)
	}
	// 无设备时不加载模型
	assert.Equal(t, ModelUnloaded, svc.Loader().State())
	assert.Empty(t, gen.prompts)
}

func TestChatServiceAnswered(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f,
		reading(testBase.Add(-time.Hour), 1, "Refrigerator", 120, 4),
		reading(testBase, 1, "Refrigerator", 121, 4.4),
		reading(testBase, 5, "HVAC", 1800, 6),
	)
	gen := &fakeGenerator{output: "ASSISTANT: The refrigerator draws about 120W."}
	svc := newTestChatService(f, staticLoad(gen))

	history := []model.Turn{
		{Role: model.RoleUser, Text: "hi"},
		{Role: model.RoleAssistant, Text: "hello"},
		{Role: model.RoleUser, Text: "What uses power?"},
	}
	res, err := svc.Generate(context.Background(), "What uses power?", history)
	require.NoError(t, err)

	assert.Equal(t, "The refrigerator draws about 120W.", res.Response)
	assert.Equal(t, []model.DeviceSummary{
		{ClusterID: 1, Name: "Refrigerator", AvgPower: 120.5, AvgTHD: 4.2},
		{ClusterID: 5, Name: "HVAC", AvgPower: 1800, AvgTHD: 6},
	}, res.Devices)
	assert.InDelta(t, 0.6, res.Confidence, 1e-9)

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "- Refrigerator (Cluster 1): 120.5W, THD: 4.2%")
	assert.Contains(t, prompt, "Highest consumer: HVAC (1800.0W)")
	assert.Contains(t, prompt, "Conversation history:\nuser: hi\nassistant: hello\n\n")
	assert.Equal(t, 1, strings.Count(prompt, "What uses power?"))
	assert.True(t, strings.HasSuffix(prompt, "USER: What uses power?\nASSISTANT:"))
}

func TestChatServiceModelUnavailable(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f, reading(testBase, 2, "Lighting", 60, 12))

	svc := newTestChatService(f, func(context.Context) (llm.TextGenerator, llm.Tokenizer, error) {
		return nil, nil, errors.New("weights missing")
	})

	_, err := svc.Generate(context.Background(), "status?", nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrModelUnavailable))
	assert.Equal(t, 503, errs.FromError(err).HTTPStatus())
}

func TestChatServiceGenerationFailureDegrades(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f, reading(testBase, 2, "Lighting", 60, 12))

	for name, gen := range map[string]*fakeGenerator{
		"error": {err: errors.New("timeout")},
		"empty":  {output: "</s>"},
	} {
		t.Run(name, func(t *testing.T) {
			svc := newTestChatService(f, staticLoad(gen))
			res, err := svc.Generate(context.Background(), "status?", nil)
			require.NoError(t, err)
			assert.Equal(t, &ChatResult{Response: DegradedMessage, Devices: []model.DeviceSummary{}, Confidence: 0}, res)
		})
	}
}

type failingMeasurements struct {
	store.MeasurementStore
}

func (failingMeasurements) DeviceSummaries(context.Context, time.Duration) ([]model.DeviceSummary, error) {
	return nil, errors.New("no such table: electrical_data")
}

func TestChatServiceDeviceQueryFailure(t *testing.T) {
	gen := &fakeGenerator{output: "unused"}
	svc := NewChatService(
		NewDeviceAggregator(failingMeasurements{}, 0),
		NewPromptBuilder(0),
		NewModelLoader(staticLoad(gen), time.Hour),
		NewResponseGenerator(llm.DefaultGenerateParams(16, 0.7), 0, nil),
		nil,
	)

	_, err := svc.Generate(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrDeviceQuery))
	assert.False(t, errs.Is(err, errs.ErrModelUnavailable))
	assert.Equal(t, 500, errs.FromError(err).HTTPStatus())
}

func TestDeviceAggregatorUsesWindow(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f,
		reading(testBase.Add(-48*time.Hour), 3, "Electronics", 90, 20),
		reading(testBase, 1, "Refrigerator", 100, 5),
	)

	a := NewDeviceAggregator(f.Measurements(), 0)
	assert.Equal(t, DefaultDeviceWindow, a.Window())

	got, err := a.Aggregate(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Refrigerator", got[0].Name)

	wide := NewDeviceAggregator(f.Measurements(), 72*time.Hour)
	got, err = wide.Aggregate(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestChatServiceLongHistoryKeepsQuestion(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f, reading(testBase, 1, "Refrigerator", 120.5, 4.2))
	gen := &fakeGenerator{output: "The Refrigerator draws 120.5W."}
	svc := newTestChatService(f, staticLoad(gen))

	const question = "Which device uses the most power?"
	_, err := svc.Generate(context.Background(), question, longHistory(10, 150))
	require.NoError(t, err)

	prompt := gen.lastPrompt()
	assert.LessOrEqual(t, len(strings.Fields(prompt)), DefaultMaxInputTokens)
	assert.Contains(t, prompt, "- Refrigerator (Cluster 1): 120.5W, THD: 4.2%")
	assert.True(t, strings.HasSuffix(prompt, "USER: "+question+"\nASSISTANT:"))
}

func TestChatServiceProviderFailureInvalidatesModel(t *testing.T) {
	f := setupTestStore(t)
	seedReadings(t, f, reading(testBase, 1, "Refrigerator", 120, 4))

	gen := &fakeGenerator{err: errs.ErrProviderRequest.WithCause(errors.New("connection refused"))}
	svc := newTestChatService(f, staticLoad(gen))

	res, err := svc.Generate(context.Background(), "status?", nil)
	require.NoError(t, err)
	assert.Equal(t, DegradedMessage, res.Response)
	assert.Equal(t, ModelUnloaded, svc.Loader().State())

	// 其他生成失败保留已加载的句柄
	gen.err = nil
	gen.output = ""
	_, err = svc.Generate(context.Background(), "status?", nil)
	require.NoError(t, err)
	assert.Equal(t, ModelLoaded, svc.Loader().State())
}
