package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	"github.com/yungbote/gonasi-backend/internal/data/repos"
	"github.com/yungbote/gonasi-backend/internal/data/repos/testutil"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/modules/live/autoplay"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
	err  error
}

func (e *recordingEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return e.err
}

func (e *recordingEmitter) events(channel string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, m := range e.msgs {
		if m.Channel == channel {
			out = append(out, string(m.Event))
		}
	}
	return out
}

func (e *recordingEmitter) last() realtime.SSEMessage {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.msgs) == 0 {
		return realtime.SSEMessage{}
	}
	return e.msgs[len(e.msgs)-1]
}

type scheduleCall struct {
	state live.PlayState
	in    time.Duration
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[uuid.UUID]scheduleCall
	cancelled map[uuid.UUID]int
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		scheduled: map[uuid.UUID]scheduleCall{},
		cancelled: map[uuid.UUID]int{},
	}
}

func (f *fakeScheduler) Schedule(id uuid.UUID, state live.PlayState, mode live.ControlMode) bool {
	if _, timed := autoplay.DefaultTiming().Hold(state); !timed || !mode.TimerDriven() {
		f.Cancel(id)
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[id] = scheduleCall{state: state}
	return true
}

func (f *fakeScheduler) ScheduleIn(id uuid.UUID, state live.PlayState, d time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[id] = scheduleCall{state: state, in: d}
	return true
}

func (f *fakeScheduler) Cancel(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scheduled, id)
	f.cancelled[id]++
}

func (f *fakeScheduler) pending(id uuid.UUID) (scheduleCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.scheduled[id]
	return c, ok
}

// hookLog records aggregate hook calls.
type hookLog struct {
	mu         sync.Mutex
	Operations []hookOp
	Conflicts  []string
	Retries    []string
}

type hookOp struct {
	Name   string
	Status string
}

func (h *hookLog) ObserveOperation(name, status string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Operations = append(h.Operations, hookOp{Name: name, Status: status})
}

func (h *hookLog) IncConflict(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Conflicts = append(h.Conflicts, name)
}

func (h *hookLog) IncRetry(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Retries = append(h.Retries, name)
}

type env struct {
	ctx       context.Context
	db        *gorm.DB
	hooks     *hookLog
	emitter   *recordingEmitter
	scheduler *fakeScheduler
	metrics   *observability.Metrics

	authz AuthzService
	play  LessonPlayService
	block BlockService
	live  LiveSessionService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithRunner(t, nil)
}

// newEnvWithRunner swaps the transaction runner of the interaction aggregate so
// tests can inject write failures.
func newEnvWithRunner(t *testing.T, interactionRunner dataagg.TxRunner) *env {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	e := &env{
		ctx:       context.Background(),
		db:        gdb,
		hooks:     &hookLog{},
		emitter:   &recordingEmitter{},
		scheduler: newFakeScheduler(),
		metrics:   observability.New(),
	}

	members := repos.NewMemberRepo(gdb, log)
	courses := repos.NewCourseRepo(gdb, log)
	lessons := repos.NewLessonRepo(gdb, log)
	blocks := repos.NewBlockRepo(gdb, log)
	interactions := repos.NewInteractionRepo(gdb, log)
	sessions := repos.NewLiveSessionRepo(gdb, log)
	liveBlocks := repos.NewLiveSessionBlockRepo(gdb, log)
	transitions := repos.NewLiveSessionTransitionRepo(gdb, log)

	base := dataagg.BaseDeps{DB: gdb, Log: log, Hooks: e.hooks}
	interactionBase := base
	interactionBase.Runner = interactionRunner

	notifier := NewLiveNotifier(e.emitter, log, e.metrics)
	e.authz = NewAuthzService(log, members, courses, lessons, sessions)
	e.play = NewLessonPlayService(log, lessons, blocks, interactions,
		dataagg.NewInteractionAggregate(dataagg.InteractionAggregateDeps{Base: interactionBase, Blocks: blocks, Interactions: interactions}),
		notifier, e.metrics)
	e.block = NewBlockService(log, e.play, e.authz,
		dataagg.NewLessonBlocksAggregate(dataagg.LessonBlocksAggregateDeps{Base: base, Lessons: lessons, Blocks: blocks, Interactions: interactions}))
	e.live = NewLiveSessionService(LiveSessionServiceDeps{
		Log:      log,
		Sessions: sessions,
		Blocks:   liveBlocks,
		Aggregate: dataagg.NewLiveSessionAggregate(dataagg.LiveSessionAggregateDeps{
			Base: base, Sessions: sessions, Blocks: liveBlocks, Transitions: transitions,
		}),
		Authz:     e.authz,
		Notifier:  notifier,
		Scheduler: e.scheduler,
		Metrics:   e.metrics,
	})
	return e
}

type lessonFixture struct {
	orgID    uuid.UUID
	editorID uuid.UUID
	lessonID uuid.UUID
	blockIDs []uuid.UUID
}

// seedLesson creates an organization with an editor and a lesson whose blocks
// carry the given weights at positions 1..n.
func (e *env) seedLesson(t *testing.T, weights ...float64) lessonFixture {
	t.Helper()
	o := testutil.SeedOrganization(t, e.ctx, e.db)
	editor := uuid.New()
	testutil.SeedMember(t, e.ctx, e.db, o.ID, editor, "editor")
	course := testutil.SeedCourse(t, e.ctx, e.db, o.ID)
	lesson := testutil.SeedLesson(t, e.ctx, e.db, course.ID)
	f := lessonFixture{orgID: o.ID, editorID: editor, lessonID: lesson.ID}
	for i, w := range weights {
		f.blockIDs = append(f.blockIDs, testutil.SeedBlock(t, e.ctx, e.db, lesson.ID, i+1, w).ID)
	}
	return f
}

type sessionFixture struct {
	orgID     uuid.UUID
	hostID    uuid.UUID
	sessionID uuid.UUID
}

func (e *env) seedSession(t *testing.T, status live.Status, mode live.ControlMode) sessionFixture {
	t.Helper()
	o := testutil.SeedOrganization(t, e.ctx, e.db)
	host := uuid.New()
	testutil.SeedMember(t, e.ctx, e.db, o.ID, host, "owner")
	s := testutil.SeedLiveSession(t, e.ctx, e.db, o.ID, host, status)
	if mode != live.ControlHostDriven {
		if err := e.db.Model(&live.Session{}).Where("id = ?", s.ID).Update("control_mode", mode).Error; err != nil {
			t.Fatalf("set control mode: %v", err)
		}
	}
	return sessionFixture{orgID: o.ID, hostID: host, sessionID: s.ID}
}

func boolPtr(v bool) *bool { return &v }
