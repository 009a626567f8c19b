package app

import (
	"gorm.io/gorm"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	"github.com/yungbote/gonasi-backend/internal/modules/live/autoplay"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
	"github.com/yungbote/gonasi-backend/internal/realtime/bus"
	"github.com/yungbote/gonasi-backend/internal/services"
)

type Services struct {
	Auth        services.AuthService
	Authz       services.AuthzService
	Notifier    services.LiveNotifier
	LessonPlay  services.LessonPlayService
	Block       services.BlockService
	LiveSession services.LiveSessionService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, metrics *observability.Metrics, sseBus bus.Bus, scheduler *autoplay.Scheduler) Services {
	log.Info("Wiring services...")
	base := dataagg.BaseDeps{
		DB:    db,
		Log:   log,
		Hooks: dataagg.NewObservabilityHooks(metrics),
	}

	notifier := services.NewLiveNotifier(&services.BusEmitter{Bus: sseBus}, log, metrics)
	authz := services.NewAuthzService(log, r.Member, r.Course, r.Lesson, r.LiveSession)

	play := services.NewLessonPlayService(log, r.Lesson, r.Block, r.Interaction,
		dataagg.NewInteractionAggregate(dataagg.InteractionAggregateDeps{
			Base:         base,
			Blocks:       r.Block,
			Interactions: r.Interaction,
		}),
		notifier, metrics)

	block := services.NewBlockService(log, play, authz,
		dataagg.NewLessonBlocksAggregate(dataagg.LessonBlocksAggregateDeps{
			Base:         base,
			Lessons:      r.Lesson,
			Blocks:       r.Block,
			Interactions: r.Interaction,
		}))

	liveSvc := services.NewLiveSessionService(services.LiveSessionServiceDeps{
		Log:      log,
		Sessions: r.LiveSession,
		Blocks:   r.LiveSessionBlock,
		Aggregate: dataagg.NewLiveSessionAggregate(dataagg.LiveSessionAggregateDeps{
			Base:        base,
			Sessions:    r.LiveSession,
			Blocks:      r.LiveSessionBlock,
			Transitions: r.LiveSessionTransition,
		}),
		Authz:     authz,
		Notifier:  notifier,
		Scheduler: scheduler,
		Metrics:   metrics,
	})
	// The scheduler calls back into the service it was handed to.
	scheduler.SetAdvancer(liveSvc)

	return Services{
		Auth:        services.NewAuthService(log, cfg.JWTSecretKey),
		Authz:       authz,
		Notifier:    notifier,
		LessonPlay:  play,
		Block:       block,
		LiveSession: liveSvc,
	}
}
