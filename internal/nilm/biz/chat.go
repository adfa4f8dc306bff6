package biz

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/nilm-chat/internal/model"
	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	ctxlog "github.com/kart-io/nilm-chat/pkg/infra/logger"
	"github.com/kart-io/nilm-chat/pkg/infra/tracing"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

const (
	// NoDevicesMessage 窗口内没有设备时的固定回复。
	NoDevicesMessage = "No active devices detected in the system."
	// DegradedMessage 生成失败时的降级回复。
	DegradedMessage = "I'm sorry, I encountered an error processing your request. Please try again later."
)

// ChatResult 一次生成的结构化结果。
type ChatResult struct {
	Response   string                `json:"response"`
	Devices    []model.DeviceSummary `json:"devices"`
	Confidence float64               `json:"confidence"`
}

// ChatService 串联设备聚合、上下文格式化、提示构建、模型加载、生成与评分。
type ChatService struct {
	aggregator *DeviceAggregator
	prompts    *PromptBuilder
	loader     *ModelLoader
	generator  *ResponseGenerator
	metrics    *metrics.ChatMetrics
}

// NewChatService 创建对话生成服务。
func NewChatService(
	aggregator *DeviceAggregator,
	prompts *PromptBuilder,
	loader *ModelLoader,
	generator *ResponseGenerator,
	m *metrics.ChatMetrics,
) *ChatService {
	return &ChatService{
		aggregator: aggregator,
		prompts:    prompts,
		loader:     loader,
		generator:  generator,
		metrics:    m,
	}
}

// Prompts 返回提示构建器。
func (s *ChatService) Prompts() *PromptBuilder {
	return s.prompts
}

// Loader 返回模型加载器。
func (s *ChatService) Loader() *ModelLoader {
	return s.loader
}

// Generate 基于当前设备读数回答用户消息。
//
// 错误策略：
//   - 无活跃设备返回固定结果，置信度 0.9；
//   - 设备查询失败返回 ErrDeviceQuery；
//   - 模型加载失败返回 ErrModelUnavailable；
//   - 供应商请求失败时使模型句柄失效并返回降级结果；
//   - 其余失败记录日志并返回降级结果，不返回错误。
func (s *ChatService) Generate(ctx context.Context, message string, history []model.Turn) (*ChatResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ChatService.Generate")
	defer span.End()

	devices, err := s.aggregator.Aggregate(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.metrics.RecordChat(metrics.OutcomeDeviceQuery, 0, 0)
		ctxlog.GetLogger(ctx).Errorw("Device aggregation failed", "error", err.Error())
		return nil, errors.ErrDeviceQuery.WithCause(err)
	}
	tracing.AddSpanAttributes(ctx,
		attribute.Int("nilm.devices", len(devices)),
		attribute.String("nilm.device_window", s.aggregator.Window().String()),
	)

	if len(devices) == 0 {
		s.metrics.RecordChat(metrics.OutcomeNoDevices, 0, NoDevicesConfidence)
		return &ChatResult{
			Response:   NoDevicesMessage,
			Devices:    []model.DeviceSummary{},
			Confidence: NoDevicesConfidence,
		}, nil
	}

	listing, summary, err := FormatContext(devices)
	if err != nil {
		return s.degraded(ctx, "format context", err), nil
	}
	prompt := s.prompts.Compose(listing, summary, history, message)

	handle, err := s.loader.Acquire(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.metrics.RecordChat(metrics.OutcomeModelUnavailable, len(devices), 0)
		if errors.Is(err, errors.ErrModelUnavailable) {
			return nil, err
		}
		return nil, errors.ErrModelUnavailable.WithCause(err)
	}

	text, err := s.generator.Generate(ctx, handle, prompt.Fit(handle.Tokenizer, s.generator.MaxInputTokens()))
	if err != nil {
		// 供应商请求失败时丢弃句柄，下次请求重新检查可用性
		if errors.Is(err, errors.ErrProviderRequest) && ctx.Err() == nil {
			s.loader.Invalidate(handle)
		}
		return s.degraded(ctx, "generate response", err), nil
	}

	confidence := Confidence(text, devices)
	tracing.AddSpanAttributes(ctx, attribute.Float64("nilm.confidence", confidence))
	s.metrics.RecordChat(metrics.OutcomeAnswered, len(devices), confidence)

	return &ChatResult{
		Response:   text,
		Devices:    devices,
		Confidence: confidence,
	}, nil
}

func (s *ChatService) degraded(ctx context.Context, stage string, err error) *ChatResult {
	tracing.RecordError(ctx, err)
	s.metrics.RecordChat(metrics.OutcomeDegraded, 0, 0)
	ctxlog.GetLogger(ctx).Errorw("Chat generation degraded",
		"stage", stage,
		"error", err.Error(),
	)
	return &ChatResult{
		Response:   DegradedMessage,
		Devices:    []model.DeviceSummary{},
		Confidence: 0,
	}
}
