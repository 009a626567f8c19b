package aggregates

import (
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/data/repos"
	"github.com/yungbote/gonasi-backend/internal/data/repos/testutil"
)

type fixture struct {
	db    *gorm.DB
	hooks *spyHooks
	base  BaseDeps

	lessons      repos.LessonRepo
	blocks       repos.BlockRepo
	interactions repos.InteractionRepo
	sessions     repos.LiveSessionRepo
	liveBlocks   repos.LiveSessionBlockRepo
	transitions  repos.LiveSessionTransitionRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	hooks := &spyHooks{}
	return &fixture{
		db:           gdb,
		hooks:        hooks,
		base:         BaseDeps{DB: gdb, Log: log, Hooks: hooks},
		lessons:      repos.NewLessonRepo(gdb, log),
		blocks:       repos.NewBlockRepo(gdb, log),
		interactions: repos.NewInteractionRepo(gdb, log),
		sessions:     repos.NewLiveSessionRepo(gdb, log),
		liveBlocks:   repos.NewLiveSessionBlockRepo(gdb, log),
		transitions:  repos.NewLiveSessionTransitionRepo(gdb, log),
	}
}
