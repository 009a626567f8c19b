// Package autoplay advances the play state of timer-driven live sessions.
package autoplay

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// Advancer moves a session one step forward if it is still in expected.
type Advancer interface {
	AdvanceAutoplay(ctx context.Context, sessionID uuid.UUID, expected live.PlayState) error
}

type entry struct {
	timer    *time.Timer
	seq      uint64
	expected live.PlayState
}

type Scheduler struct {
	log     *logger.Logger
	timing  Timing
	timeout time.Duration

	mu       sync.Mutex
	advancer Advancer
	timers   map[uuid.UUID]*entry
	seq      uint64
	stopped  bool
	wg       sync.WaitGroup
}

func NewScheduler(log *logger.Logger, timing Timing) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		log:     log.With("component", "AutoplayScheduler"),
		timing:  timing,
		timeout: 10 * time.Second,
		timers:  map[uuid.UUID]*entry{},
	}
}

// SetAdvancer wires the component that commits advancement. The live session
// service both schedules and advances, so it is injected after construction.
func (s *Scheduler) SetAdvancer(a Advancer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advancer = a
}

// Schedule arms the timer for a session sitting in state. Any prior timer for the
// session is replaced. Host-driven sessions and states without a hold are cancelled.
func (s *Scheduler) Schedule(sessionID uuid.UUID, state live.PlayState, mode live.ControlMode) bool {
	if !mode.TimerDriven() {
		s.Cancel(sessionID)
		return false
	}
	d, ok := s.timing.Hold(state)
	if !ok {
		s.Cancel(sessionID)
		return false
	}
	return s.ScheduleIn(sessionID, state, d)
}

// ScheduleIn arms the timer with an explicit delay (a block's own time limit).
func (s *Scheduler) ScheduleIn(sessionID uuid.UUID, state live.PlayState, d time.Duration) bool {
	if sessionID == uuid.Nil || d <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.timers[sessionID]; ok {
		prev.timer.Stop()
	}
	s.seq++
	e := &entry{seq: s.seq, expected: state}
	e.timer = time.AfterFunc(d, func() { s.fire(sessionID, e.seq) })
	s.timers[sessionID] = e
	s.log.Debug("autoplay timer armed", "session_id", sessionID.String(), "play_state", string(state), "after", d.String())
	return true
}

// Cancel stops the timer of a session, if any.
func (s *Scheduler) Cancel(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.timers[sessionID]; ok {
		e.timer.Stop()
		delete(s.timers, sessionID)
	}
}

// Pending reports the state a session's armed timer expects, if one is armed.
func (s *Scheduler) Pending(sessionID uuid.UUID) (live.PlayState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[sessionID]
	if !ok {
		return "", false
	}
	return e.expected, true
}

// Stop cancels every timer and waits for advancements already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) fire(sessionID uuid.UUID, seq uint64) {
	s.mu.Lock()
	e, ok := s.timers[sessionID]
	if !ok || e.seq != seq || s.stopped {
		s.mu.Unlock()
		return
	}
	delete(s.timers, sessionID)
	adv := s.advancer
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	if adv == nil {
		s.log.Warn("autoplay timer fired without advancer", "session_id", sessionID.String())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := adv.AdvanceAutoplay(ctx, sessionID, e.expected); err != nil {
		s.log.Warn("autoplay advance failed", "session_id", sessionID.String(), "play_state", string(e.expected), "error", err)
	}
}
