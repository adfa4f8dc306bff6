package biz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"
	"golang.org/x/sync/singleflight"

	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	"github.com/kart-io/nilm-chat/pkg/llm"
	llmopts "github.com/kart-io/nilm-chat/pkg/options/llm"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

// DefaultModelTTL 模型句柄默认缓存时间。
const DefaultModelTTL = time.Hour

// ModelState 模型缓存状态。STALE 由 loaded_at 与 TTL 计算得出，不单独存储。
type ModelState string

const (
	ModelUnloaded ModelState = "unloaded"
	ModelLoaded   ModelState = "loaded"
	ModelStale    ModelState = "stale"
)

// ModelHandle 已加载的模型与分词器。
type ModelHandle struct {
	Generator llm.TextGenerator
	Tokenizer llm.Tokenizer
	LoadedAt  time.Time
}

// LoadFunc 加载模型与分词器。
type LoadFunc func(ctx context.Context) (llm.TextGenerator, llm.Tokenizer, error)

// LoaderOption 配置 ModelLoader。
type LoaderOption func(*ModelLoader)

// WithClock 注入时钟，用于测试。
func WithClock(now func() time.Time) LoaderOption {
	return func(l *ModelLoader) {
		l.now = now
	}
}

// WithLoaderMetrics 设置加载指标。
func WithLoaderMetrics(m *metrics.ChatMetrics) LoaderOption {
	return func(l *ModelLoader) {
		l.metrics = m
	}
}

// ModelLoader 懒加载并按 TTL 缓存模型句柄。
// 并发访问缺失或过期句柄的调用方共享同一次加载，读者只能看到完整的句柄。
type ModelLoader struct {
	load    LoadFunc
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.ChatMetrics

	mu     sync.RWMutex
	handle *ModelHandle
	group  singleflight.Group
}

// NewModelLoader 创建模型加载器。
func NewModelLoader(load LoadFunc, ttl time.Duration, opts ...LoaderOption) *ModelLoader {
	if ttl <= 0 {
		ttl = DefaultModelTTL
	}
	l := &ModelLoader{
		load: load,
		ttl:  ttl,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire 返回可用的模型句柄，必要时加载或重新加载。
// 加载失败时保留原有状态并返回 ErrModelUnavailable。
func (l *ModelLoader) Acquire(ctx context.Context) (*ModelHandle, error) {
	if h := l.current(); h != nil && !l.isStale(h) {
		return h, nil
	}

	ch := l.group.DoChan("model", func() (any, error) {
		// 其他调用方可能已完成加载
		if h := l.current(); h != nil && !l.isStale(h) {
			return h, nil
		}
		return l.reload(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, errors.ErrModelUnavailable.WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ModelHandle), nil
	}
}

func (l *ModelLoader) reload(ctx context.Context) (*ModelHandle, error) {
	start := l.now()
	gen, tok, err := l.load(ctx)
	if err == nil && (gen == nil || tok == nil) {
		err = fmt.Errorf("loader returned an incomplete model handle")
	}
	l.metrics.RecordModelLoad(err)
	if err != nil {
		logger.Errorw("Model load failed", "error", err.Error())
		return nil, errors.ErrModelUnavailable.WithCause(err)
	}

	h := &ModelHandle{Generator: gen, Tokenizer: tok, LoadedAt: l.now()}
	l.mu.Lock()
	l.handle = h
	l.mu.Unlock()

	logger.Infow("Model loaded",
		"provider", gen.Name(),
		"duration", h.LoadedAt.Sub(start).String(),
	)
	return h, nil
}

// State 返回当前缓存状态。
func (l *ModelLoader) State() ModelState {
	h := l.current()
	switch {
	case h == nil:
		return ModelUnloaded
	case l.isStale(h):
		return ModelStale
	default:
		return ModelLoaded
	}
}

// LoadedAt 返回最近一次加载时间，未加载时为零值。
func (l *ModelLoader) LoadedAt() time.Time {
	if h := l.current(); h != nil {
		return h.LoadedAt
	}
	return time.Time{}
}

// Invalidate 丢弃句柄 h，下次访问重新加载。h 已被其他调用方替换时不做处理。
func (l *ModelLoader) Invalidate(h *ModelHandle) {
	l.mu.Lock()
	if l.handle == h {
		l.handle = nil
	}
	l.mu.Unlock()
}

// Preload 在启动时加载模型。失败只记录告警，首次对话请求会再次加载。
func (l *ModelLoader) Preload(ctx context.Context) bool {
	if _, err := l.Acquire(ctx); err != nil {
		logger.Warnw("Model preload failed, loading deferred to first chat request", "error", err.Error())
		return false
	}
	return true
}

func (l *ModelLoader) current() *ModelHandle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.handle
}

func (l *ModelLoader) isStale(h *ModelHandle) bool {
	return l.now().Sub(h.LoadedAt) > l.ttl
}

// NewProviderLoadFunc 返回按配置创建供应商并探测模型可用性的加载函数。
// 供应商需已通过 import 注册。
func NewProviderLoadFunc(opts *llmopts.Options) LoadFunc {
	return func(ctx context.Context) (llm.TextGenerator, llm.Tokenizer, error) {
		gen, err := llm.NewTextGenerator(opts.Provider, opts.ToConfigMap())
		if err != nil {
			return nil, nil, errors.ErrProviderNotFound.WithCause(err)
		}
		if p, ok := gen.(llm.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return nil, nil, err
			}
		}
		logger.Infow("Model provider ready",
			"provider", opts.Provider,
			"model", opts.Model,
			"device", opts.Device,
		)
		return gen, llm.NewWhitespaceTokenizer(), nil
	}
}
