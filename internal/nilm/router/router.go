// Package router provides the NILM chat routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kart-io/nilm-chat/internal/nilm/docs"
	"github.com/kart-io/nilm-chat/internal/nilm/handler"
)

// SwaggerPath is the documentation path advertised by the root endpoint.
const SwaggerPath = "/swagger/index.html"

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Chat        *handler.ChatHandler
	Measurement *handler.MeasurementHandler
	Device      *handler.DeviceHandler
	System      *handler.SystemHandler
	// Metrics serves the Prometheus exposition, nil disables /metrics.
	Metrics http.Handler
}

// Options controls route registration.
type Options struct {
	APIPrefix     string
	EnableSwagger bool
}

// Register registers the NILM chat routes on the engine.
func Register(engine *gin.Engine, h Handlers, opts Options) {
	logger.Infow("Registering NILM chat routes", "prefix", opts.APIPrefix, "swagger", opts.EnableSwagger)

	engine.GET("/", h.System.Root)
	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)
	if h.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(h.Metrics))
	}
	if opts.EnableSwagger {
		docs.SwaggerInfo.BasePath = opts.APIPrefix
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(opts.APIPrefix)

	// Chat Routes
	chat := api.Group("/chat")
	{
		chat.POST("", h.Chat.Chat)
		chat.GET("/history/:session_id", h.Chat.History)
		chat.DELETE("/sessions/:session_id", h.Chat.DeleteSession)
	}

	// Metrics Routes
	metrics := api.Group("/metrics")
	{
		metrics.GET("/summary", h.Measurement.Summary)
		metrics.GET("/recent", h.Measurement.Recent)
		metrics.GET("/by-cluster/:cluster_id", h.Measurement.ByCluster)
	}

	// Device Routes
	devices := api.Group("/devices")
	{
		devices.GET("", h.Device.List)
		devices.GET("/:cluster_id", h.Device.Get)
	}

	// Data Routes
	data := api.Group("/data")
	{
		data.GET("", h.Measurement.ListData)
		data.POST("", h.Measurement.CreateData)
	}
}
