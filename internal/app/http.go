package app

import (
	"gorm.io/gorm"

	apphttp "github.com/yungbote/gonasi-backend/internal/http"
	httpH "github.com/yungbote/gonasi-backend/internal/http/handlers"
	httpMW "github.com/yungbote/gonasi-backend/internal/http/middleware"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
	"github.com/yungbote/gonasi-backend/internal/realtime"
)

type Handlers struct {
	Health      *httpH.HealthHandler
	Realtime    *httpH.RealtimeHandler
	Lesson      *httpH.LessonHandler
	LiveSession *httpH.LiveSessionHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:      httpH.NewHealthHandler(db),
		Realtime:    httpH.NewRealtimeHandler(log, hub, svc.LiveSession),
		Lesson:      httpH.NewLessonHandler(svc.LessonPlay, svc.Block),
		LiveSession: httpH.NewLiveSessionHandler(svc.LiveSession),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, svc Services, h Handlers) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		ServiceName:        serviceName,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		AuthMiddleware:     httpMW.NewAuthMiddleware(log, svc.Auth),
		HealthHandler:      h.Health,
		RealtimeHandler:    h.Realtime,
		LessonHandler:      h.Lesson,
		LiveSessionHandler: h.LiveSession,
	})
}
