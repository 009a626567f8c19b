package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/gonasi-backend/internal/http/handlers"
	httpMW "github.com/yungbote/gonasi-backend/internal/http/middleware"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler      *httpH.HealthHandler
	RealtimeHandler    *httpH.RealtimeHandler
	LessonHandler      *httpH.LessonHandler
	LiveSessionHandler *httpH.LiveSessionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics, "/api/sse/stream"))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Realtime (SSE)
	if cfg.RealtimeHandler != nil {
		api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		api.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
		api.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
	}

	// Lessons
	if h := cfg.LessonHandler; h != nil {
		api.GET("/lessons/:id/blocks", h.ListBlocks)
		api.POST("/lessons/:id/blocks", h.CreateBlock)
		api.PUT("/lessons/:id/blocks/order", h.ReorderBlocks)
		api.DELETE("/lessons/:id/blocks/:blockId", h.DeleteBlock)
		api.GET("/lessons/:id/play", h.Play)
		api.POST("/lessons/:id/interactions", h.WriteInteraction)
		api.DELETE("/lessons/:id/interactions", h.ResetInteractions)
	}

	// Live sessions
	if h := cfg.LiveSessionHandler; h != nil {
		api.POST("/live-sessions", h.Create)
		api.GET("/live-sessions/:id", h.Get)
		api.PATCH("/live-sessions/:id/state", h.UpdateState)
		api.POST("/live-sessions/:id/lobby", h.OpenLobby)
		api.POST("/live-sessions/:id/start", h.Start)
		api.POST("/live-sessions/:id/pause", h.Pause)
		api.POST("/live-sessions/:id/resume", h.Resume)
		api.POST("/live-sessions/:id/end", h.End)
		api.PUT("/live-sessions/:id/control-mode", h.SetControlMode)
		api.PUT("/live-sessions/:id/chat-mode", h.SetChatMode)
		api.PUT("/live-sessions/:id/play-state", h.SetPlayState)
		api.POST("/live-sessions/:id/blocks", h.AddBlock)
		api.PUT("/live-sessions/:id/blocks/:blockId/status", h.SetBlockStatus)
	}

	return r
}
