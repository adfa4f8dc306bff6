// Package nilm provides the NILM chat service server implementation.
package nilm

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kart-io/nilm-chat/internal/nilm/biz"
	"github.com/kart-io/nilm-chat/internal/nilm/handler"
	"github.com/kart-io/nilm-chat/internal/nilm/metrics"
	"github.com/kart-io/nilm-chat/internal/nilm/router"
	"github.com/kart-io/nilm-chat/internal/nilm/store"
	"github.com/kart-io/nilm-chat/pkg/component/db"
	"github.com/kart-io/nilm-chat/pkg/component/redis"
	"github.com/kart-io/nilm-chat/pkg/component/storage"
	"github.com/kart-io/nilm-chat/pkg/infra/app"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/observability"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/resilience"
	"github.com/kart-io/nilm-chat/pkg/infra/middleware/security"
	"github.com/kart-io/nilm-chat/pkg/infra/server"
	httpserver "github.com/kart-io/nilm-chat/pkg/infra/server/transport/http"
	"github.com/kart-io/nilm-chat/pkg/infra/tracing"
	"github.com/kart-io/nilm-chat/pkg/llm"
	chatopts "github.com/kart-io/nilm-chat/pkg/options/chat"
	corsopts "github.com/kart-io/nilm-chat/pkg/options/cors"
	dbopts "github.com/kart-io/nilm-chat/pkg/options/database"
	httpopts "github.com/kart-io/nilm-chat/pkg/options/http"
	llmopts "github.com/kart-io/nilm-chat/pkg/options/llm"
	logopts "github.com/kart-io/nilm-chat/pkg/options/logger"
	redisopts "github.com/kart-io/nilm-chat/pkg/options/redis"
	tracingopts "github.com/kart-io/nilm-chat/pkg/options/tracing"
	"github.com/kart-io/nilm-chat/pkg/utils/validator"

	// 注册模型供应商
	_ "github.com/kart-io/nilm-chat/pkg/llm/anthropic"
	_ "github.com/kart-io/nilm-chat/pkg/llm/huggingface"
	_ "github.com/kart-io/nilm-chat/pkg/llm/ollama"
	_ "github.com/kart-io/nilm-chat/pkg/llm/openai"
)

const (
	// Name is the name of the application.
	Name = "nilm-chat"
	// Title is the human readable service name.
	Title = "NILM Chat API"
	// metricsNamespace prefixes every exported metric.
	metricsNamespace = "nilm_chat"
)

// healthPaths are kept out of request logs and traces.
var healthPaths = []string{"/health", "/ready", "/metrics"}

// Config contains application-related configurations.
type Config struct {
	HTTPOptions     *httpopts.Options
	LogOptions      *logopts.Options
	DatabaseOptions *dbopts.Options
	RedisOptions    *redisopts.Options
	LLMOptions      *llmopts.Options
	ChatOptions     *chatopts.Options
	CORSOptions     *corsopts.Options
	TracingOptions  *tracingopts.Options
}

// Server represents the NILM chat server.
type Server struct {
	srv     *server.Manager
	storage *storage.Manager
	tracer  *tracing.Provider
}

// InitLogger initializes the global logger with the service fields.
func InitLogger(opts *logopts.Options) error {
	if err := opts.Init("service.name", Name, "service.version", app.GetVersion()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// OpenDatabase connects to the configured database and returns the client
// together with the store factory built on it.
func OpenDatabase(ctx context.Context, opts *dbopts.Options) (*db.Client, store.Factory, error) {
	client, err := db.New(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return client, store.NewFactory(client.DB()), nil
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	if err := InitLogger(cfg.LogOptions); err != nil {
		return nil, err
	}
	logger.Infow("Starting NILM chat service...", "provider", cfg.LLMOptions.Provider, "model", cfg.LLMOptions.Model)

	// 2. 初始化链路追踪
	tracer, err := tracing.NewProvider(ctx, cfg.TracingOptions, Name, app.GetVersion())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	s := &Server{storage: storage.NewManager(), tracer: tracer}
	ok := false
	defer func() {
		if !ok {
			s.cleanup()
		}
	}()

	// 3. 初始化数据库
	dbClient, factory, err := OpenDatabase(ctx, cfg.DatabaseOptions)
	if err != nil {
		return nil, err
	}
	if err := s.storage.Register("database", dbClient); err != nil {
		_ = dbClient.Close()
		return nil, err
	}
	if cfg.DatabaseOptions.AutoMigrate {
		if err := factory.AutoMigrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("Database migration completed")
	}

	// 4. 初始化 Redis（可选，仅缓存设备列表）
	var deviceCache biz.DeviceCache
	if cfg.RedisOptions.Enabled {
		redisClient, err := redis.New(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		if err := s.storage.Register("redis", redisClient); err != nil {
			_ = redisClient.Close()
			return nil, err
		}
		deviceCache = redis.NewJSONCache(redisClient.Client(), Name+":")
		logger.Infow("Device cache enabled", "addr", cfg.RedisOptions.Addr(), "ttl", cfg.RedisOptions.CacheTTL)
	}

	// 5. 初始化指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.New(reg, metricsNamespace)
	httpMetrics := observability.NewMetricsCollector(reg, metricsNamespace)

	// 6. 初始化 Biz 层
	loader := biz.NewModelLoader(
		biz.NewProviderLoadFunc(cfg.LLMOptions),
		cfg.LLMOptions.CacheTTL,
		biz.WithLoaderMetrics(chatMetrics),
	)
	chat := biz.NewChatService(
		biz.NewDeviceAggregator(factory.Measurements(), cfg.ChatOptions.DeviceWindow),
		biz.NewPromptBuilder(cfg.ChatOptions.MaxHistory),
		loader,
		biz.NewResponseGenerator(
			llm.DefaultGenerateParams(cfg.LLMOptions.MaxNewTokens, cfg.LLMOptions.Temperature),
			cfg.LLMOptions.MaxInputTokens,
			chatMetrics,
		),
		chatMetrics,
	)
	if cfg.LLMOptions.Preload {
		loader.Preload(ctx)
	}
	conversations := biz.NewConversationService(factory, chat, cfg.ChatOptions.MaxMessageLength)
	measurements := biz.NewMeasurementService(factory.Measurements())
	devices := biz.NewDeviceService(factory.Measurements(), deviceCache, cfg.RedisOptions.CacheTTL)
	retention := biz.NewRetentionJob(
		factory.Sessions(),
		cfg.ChatOptions.SessionRetention,
		cfg.ChatOptions.RetentionSchedule,
		chatMetrics,
	)

	// 7. 初始化 HTTP 服务器
	cors, err := security.CORS(*cfg.CORSOptions)
	if err != nil {
		return nil, fmt.Errorf("invalid cors options: %w", err)
	}
	httpServer := httpserver.NewServer(cfg.HTTPOptions,
		resilience.Recovery(),
		middleware.RequestID(),
		observability.Tracing(healthPaths...),
		observability.Logger(observability.LoggerOptions{SkipPaths: healthPaths}),
		httpMetrics.Middleware(),
		cors,
		resilience.TimeoutWithConfig(resilience.TimeoutConfig{
			Timeout:   cfg.HTTPOptions.RequestTimeout,
			SkipPaths: []string{"/metrics"},
		}),
	)
	// 使用全局验证器，确保统一的验证规则和 i18n
	httpServer.SetValidator(validator.Global())

	// 8. 注册路由
	docs := ""
	if cfg.HTTPOptions.EnableSwagger {
		docs = router.SwaggerPath
	}
	router.Register(httpServer.Engine(), router.Handlers{
		Chat:        handler.NewChatHandler(conversations),
		Measurement: handler.NewMeasurementHandler(measurements),
		Device:      handler.NewDeviceHandler(devices),
		System:      handler.NewSystemHandler(Title, app.GetVersion(), docs, s.storage, loader),
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	}, router.Options{
		APIPrefix:     cfg.HTTPOptions.APIPrefix,
		EnableSwagger: cfg.HTTPOptions.EnableSwagger,
	})

	s.srv = server.NewManager(cfg.HTTPOptions.ShutdownTimeout)
	s.srv.AddServer(httpServer)
	s.srv.AddServer(retention)

	ok = true
	logger.Infow("NILM chat service is ready", "addr", cfg.HTTPOptions.Addr, "gin_mode", gin.Mode())
	return s, nil
}

// Run starts the servers and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()
	return s.srv.Run(ctx)
}

func (s *Server) cleanup() {
	if err := s.storage.CloseAll(); err != nil {
		logger.Warnw("Failed to close storage clients", "error", err.Error())
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := s.tracer.Shutdown(ctx); err != nil {
			logger.Warnw("Failed to shut down tracer provider", "error", err.Error())
		}
	}
}
