package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/modules/live/autoplay"
	"github.com/yungbote/gonasi-backend/internal/modules/live/statemachine"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// AutoplayScheduler arms per-session advancement timers.
type AutoplayScheduler interface {
	Schedule(sessionID uuid.UUID, state live.PlayState, mode live.ControlMode) bool
	ScheduleIn(sessionID uuid.UUID, state live.PlayState, d time.Duration) bool
	Cancel(sessionID uuid.UUID)
}

type CreateLiveSessionInput struct {
	OrganizationID uuid.UUID
	Name           string
	ControlMode    live.ControlMode
	ChatMode       live.ChatMode
	ScheduledAt    *time.Time
}

type AddLiveBlockInput struct {
	PluginType learning.PluginType
	Content    json.RawMessage
	TimeLimitS int
}

// LiveSessionService is the authority over live session state. Every mutation
// checks edit rights, applies a pure transition, commits it with a version and
// status guard, logs the transition and only then broadcasts.
type LiveSessionService interface {
	Create(ctx context.Context, actorID uuid.UUID, in CreateLiveSessionInput) (*live.Session, error)
	Get(ctx context.Context, sessionID uuid.UUID) (*live.Session, error)
	ListBlocks(ctx context.Context, sessionID uuid.UUID) ([]*live.SessionBlock, error)
	AddBlock(ctx context.Context, actorID, sessionID uuid.UUID, in AddLiveBlockInput) (*live.SessionBlock, error)

	OpenLobby(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error)
	Start(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error)
	Pause(ctx context.Context, actorID, sessionID uuid.UUID, reason live.PauseReason) (*live.Session, error)
	Resume(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error)
	End(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error)
	SetControlMode(ctx context.Context, actorID, sessionID uuid.UUID, mode live.ControlMode) (*live.Session, error)
	SetChatMode(ctx context.Context, actorID, sessionID uuid.UUID, mode live.ChatMode) (*live.Session, error)
	SetPlayState(ctx context.Context, actorID, sessionID uuid.UUID, state live.PlayState) (*live.Session, error)
	UpdateSessionState(ctx context.Context, actorID, sessionID uuid.UUID, patch statemachine.Patch) (*live.Session, error)
	SetBlockStatus(ctx context.Context, actorID, sessionID, blockID uuid.UUID, to live.BlockStatus) (*live.SessionBlock, error)

	AdvanceAutoplay(ctx context.Context, sessionID uuid.UUID, expected live.PlayState) error
	// RearmAutoplay arms timers for every active timer-driven session, as after a restart.
	RearmAutoplay(ctx context.Context) (int, error)
}

type LiveSessionServiceDeps struct {
	Log       *logger.Logger
	Sessions  repos.LiveSessionRepo
	Blocks    repos.LiveSessionBlockRepo
	Aggregate domainagg.LiveSessionAggregate
	Authz     AuthzService
	Notifier  LiveNotifier
	Scheduler AutoplayScheduler
	Metrics   *observability.Metrics
}

type liveSessionService struct {
	log       *logger.Logger
	sessions  repos.LiveSessionRepo
	blocks    repos.LiveSessionBlockRepo
	agg       domainagg.LiveSessionAggregate
	authz     AuthzService
	notifier  LiveNotifier
	scheduler AutoplayScheduler
	metrics   *observability.Metrics
}

func NewLiveSessionService(deps LiveSessionServiceDeps) LiveSessionService {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NewLiveNotifier(nil, log, deps.Metrics)
	}
	return &liveSessionService{
		log:       log.With("service", "LiveSessionService"),
		sessions:  deps.Sessions,
		blocks:    deps.Blocks,
		agg:       deps.Aggregate,
		authz:     deps.Authz,
		notifier:  notifier,
		scheduler: deps.Scheduler,
		metrics:   deps.Metrics,
	}
}

func (s *liveSessionService) Create(ctx context.Context, actorID uuid.UUID, in CreateLiveSessionInput) (*live.Session, error) {
	const op = "live_session.create"
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domainagg.Validation(op, "name is required")
	}
	if in.ControlMode == "" {
		in.ControlMode = live.ControlHostDriven
	}
	if in.ChatMode == "" {
		in.ChatMode = live.ChatOpen
	}
	if !in.ControlMode.Valid() || !in.ChatMode.Valid() {
		return nil, domainagg.Validation(op, "invalid control_mode or chat_mode")
	}
	ok, err := s.authz.CanEditOrganization(ctx, actorID, in.OrganizationID)
	if err := requireEdit(op, ok, err); err != nil {
		return nil, err
	}
	row := &live.Session{
		ID:             uuid.New(),
		OrganizationID: in.OrganizationID,
		Name:           name,
		Status:         live.StatusDraft,
		ControlMode:    in.ControlMode,
		ChatMode:       in.ChatMode,
		PlayState:      live.PlayLobby,
		ScheduledAt:    in.ScheduledAt,
		CreatedBy:      actorID,
	}
	if err := s.sessions.Create(dbctx.Context{Ctx: ctx}, row); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.log.Info("live session created", "session_id", row.ID.String(), "organization_id", row.OrganizationID.String())
	return row, nil
}

func (s *liveSessionService) Get(ctx context.Context, sessionID uuid.UUID) (*live.Session, error) {
	const op = "live_session.get"
	if sessionID == uuid.Nil {
		return nil, domainagg.Validation(op, "session_id is required")
	}
	row, err := s.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return row, nil
}

func (s *liveSessionService) ListBlocks(ctx context.Context, sessionID uuid.UUID) ([]*live.SessionBlock, error) {
	const op = "live_session.list_blocks"
	if _, err := s.Get(ctx, sessionID); err != nil {
		return nil, err
	}
	rows, err := s.blocks.ListBySession(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

func (s *liveSessionService) AddBlock(ctx context.Context, actorID, sessionID uuid.UUID, in AddLiveBlockInput) (*live.SessionBlock, error) {
	const op = "live_session.add_block"
	if !in.PluginType.Valid() {
		return nil, domainagg.Validation(op, "unknown plugin_type")
	}
	if in.TimeLimitS < 0 {
		return nil, domainagg.Validation(op, "time_limit_seconds must not be negative")
	}
	if len(in.Content) > 0 && !json.Valid(in.Content) {
		return nil, domainagg.Validation(op, "content must be valid JSON")
	}
	session, err := s.authorize(ctx, op, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domainagg.Conflict(op, "session has ended")
	}
	dbc := dbctx.Context{Ctx: ctx}
	maxPos, err := s.blocks.MaxPosition(dbc, sessionID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	row := &live.SessionBlock{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Position:   maxPos + 1,
		PluginType: string(in.PluginType),
		Content:    datatypes.JSON(in.Content),
		TimeLimitS: in.TimeLimitS,
		Status:     live.BlockPending,
	}
	if err := s.blocks.Create(dbc, row); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return row, nil
}

func (s *liveSessionService) OpenLobby(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
	return s.transition(ctx, "live_session.open_lobby", actorID, sessionID, statemachine.OpenLobby)
}

func (s *liveSessionService) Start(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
	return s.transition(ctx, "live_session.start", actorID, sessionID, statemachine.Start)
}

func (s *liveSessionService) Pause(ctx context.Context, actorID, sessionID uuid.UUID, reason live.PauseReason) (*live.Session, error) {
	return s.transition(ctx, "live_session.pause", actorID, sessionID, func(snap statemachine.Snapshot) (statemachine.Change, error) {
		return statemachine.Pause(snap, reason)
	})
}

func (s *liveSessionService) Resume(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
	return s.transition(ctx, "live_session.resume", actorID, sessionID, statemachine.Resume)
}

func (s *liveSessionService) End(ctx context.Context, actorID, sessionID uuid.UUID) (*live.Session, error) {
	return s.transition(ctx, "live_session.end", actorID, sessionID, statemachine.End)
}

func (s *liveSessionService) SetControlMode(ctx context.Context, actorID, sessionID uuid.UUID, mode live.ControlMode) (*live.Session, error) {
	return s.transition(ctx, "live_session.set_control_mode", actorID, sessionID, func(snap statemachine.Snapshot) (statemachine.Change, error) {
		return statemachine.SetControlMode(snap, mode)
	})
}

func (s *liveSessionService) SetChatMode(ctx context.Context, actorID, sessionID uuid.UUID, mode live.ChatMode) (*live.Session, error) {
	return s.transition(ctx, "live_session.set_chat_mode", actorID, sessionID, func(snap statemachine.Snapshot) (statemachine.Change, error) {
		return statemachine.SetChatMode(snap, mode)
	})
}

func (s *liveSessionService) SetPlayState(ctx context.Context, actorID, sessionID uuid.UUID, state live.PlayState) (*live.Session, error) {
	return s.transition(ctx, "live_session.set_play_state", actorID, sessionID, func(snap statemachine.Snapshot) (statemachine.Change, error) {
		return statemachine.SetPlayState(snap, state)
	})
}

func (s *liveSessionService) UpdateSessionState(ctx context.Context, actorID, sessionID uuid.UUID, patch statemachine.Patch) (*live.Session, error) {
	const op = "live_session.update_state"
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	session, err := s.authorize(ctx, op, actorID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	changes, err := statemachine.Plan(statemachine.FromSession(session), patch)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out, err := s.commit(ctx, &actorID, session, changes, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, err
	}
	return out, nil
}

func (s *liveSessionService) SetBlockStatus(ctx context.Context, actorID, sessionID, blockID uuid.UUID, to live.BlockStatus) (*live.SessionBlock, error) {
	const op = "live_session.set_block_status"
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID.String()),
		attribute.String("block_id", blockID.String()),
		attribute.String("to", string(to)),
	)
	if !to.Valid() {
		return nil, domainagg.Validation(op, "unknown block status")
	}
	session, err := s.authorize(ctx, op, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, domainagg.Conflict(op, "session has ended")
	}
	block, err := s.blocks.GetByID(dbctx.Context{Ctx: ctx}, sessionID, blockID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	if err := statemachine.BlockTransition(block.Status, to); err != nil {
		return nil, err
	}
	res, err := s.agg.SetBlockStatus(ctx, domainagg.SetBlockStatusInput{
		Event:     string(statemachine.EventBlockState),
		SessionID: sessionID,
		BlockID:   blockID,
		ActorID:   &actorID,
		From:      block.Status,
		To:        to,
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.IncTransition(statemachine.FieldBlockStatus, string(to))
	s.notifier.BlockChanged(ctx, sessionID, res.Block, block.Status, res.Closed)
	if to == live.BlockActive {
		if latest, err := s.Get(ctx, sessionID); err == nil {
			s.reschedule(ctx, latest)
		}
	}
	return res.Block, nil
}

// AdvanceAutoplay moves a timer-driven session one step along the autoplay
// successor table. It is a no-op when the session moved on since the timer was armed.
func (s *liveSessionService) AdvanceAutoplay(ctx context.Context, sessionID uuid.UUID, expected live.PlayState) error {
	const op = "live_session.advance_autoplay"
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("session_id", sessionID.String()),
		attribute.String("expected", string(expected)),
	)

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		s.metrics.IncAutoplayAdvance("error")
		return err
	}
	if session.Status != live.StatusActive || !session.ControlMode.TimerDriven() || session.PlayState != expected {
		s.metrics.IncAutoplayAdvance("stale")
		return nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	pending, err := s.blocks.ListByStatus(dbc, sessionID, []live.BlockStatus{live.BlockPending})
	if err != nil {
		s.metrics.IncAutoplayAdvance("error")
		return dataagg.MapError(op, err)
	}
	next, ok := autoplay.Next(session.PlayState, len(pending) > 0)
	if !ok {
		s.metrics.IncAutoplayAdvance("terminal")
		return nil
	}
	change, err := statemachine.SetPlayState(statemachine.FromSession(session), next)
	if err != nil {
		s.metrics.IncAutoplayAdvance("error")
		return err
	}

	var activate *uuid.UUID
	if next == live.PlayQuestionActive && len(pending) > 0 {
		active, err := s.blocks.ListByStatus(dbc, sessionID, []live.BlockStatus{live.BlockActive})
		if err != nil {
			s.metrics.IncAutoplayAdvance("error")
			return dataagg.MapError(op, err)
		}
		if session.PlayState == live.PlayIntermission || len(active) == 0 {
			id := firstByPosition(pending).ID
			activate = &id
		}
	}

	updated, err := s.commit(ctx, nil, session, []statemachine.Change{change}, activate)
	if err != nil {
		if domainagg.IsCode(err, domainagg.CodeConflict) {
			s.metrics.IncAutoplayAdvance("stale")
			return nil
		}
		s.metrics.IncAutoplayAdvance("error")
		span.RecordError(err)
		return err
	}
	if activate != nil {
		s.metrics.IncTransition(statemachine.FieldBlockStatus, string(live.BlockActive))
		if block, err := s.blocks.GetByID(dbc, sessionID, *activate); err == nil {
			s.notifier.BlockChanged(ctx, sessionID, block, live.BlockPending, nil)
		}
	}
	if next == live.PlayFinalResults {
		s.closeActiveBlocks(ctx, updated.ID)
	}
	s.metrics.IncAutoplayAdvance("advanced")
	return nil
}

func (s *liveSessionService) transition(ctx context.Context, op string, actorID, sessionID uuid.UUID, fn func(statemachine.Snapshot) (statemachine.Change, error)) (*live.Session, error) {
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	session, err := s.authorize(ctx, op, actorID, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	change, err := fn(statemachine.FromSession(session))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	out, err := s.commit(ctx, &actorID, session, []statemachine.Change{change}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, err
	}
	return out, nil
}

func (s *liveSessionService) authorize(ctx context.Context, op string, actorID, sessionID uuid.UUID) (*live.Session, error) {
	if sessionID == uuid.Nil {
		return nil, domainagg.Validation(op, "session_id is required")
	}
	ok, err := s.authz.CanEditSession(ctx, actorID, sessionID)
	if err := requireEdit(op, ok, err); err != nil {
		return nil, err
	}
	return s.Get(ctx, sessionID)
}

// commit persists the final snapshot of changes, then records metrics, re-arms
// the autoplay timer and broadcasts one event per change.
func (s *liveSessionService) commit(ctx context.Context, actorID *uuid.UUID, session *live.Session, changes []statemachine.Change, activate *uuid.UUID) (*live.Session, error) {
	final := statemachine.Final(statemachine.FromSession(session), changes)
	records := make([]domainagg.TransitionRecord, 0, len(changes))
	for _, c := range changes {
		payload := map[string]any{"from": c.From, "to": c.To}
		if c.Next.PauseReason != nil {
			payload["pause_reason"] = string(*c.Next.PauseReason)
		}
		records = append(records, domainagg.TransitionRecord{
			Event:   string(c.Event),
			Field:   c.Field,
			From:    c.From,
			To:      c.To,
			Payload: payload,
		})
	}
	updated, err := s.agg.CommitState(ctx, domainagg.CommitSessionStateInput{
		SessionID:       session.ID,
		ActorID:         actorID,
		ExpectedVersion: session.Version,
		ExpectedStatus:  session.Status,
		Next: domainagg.SessionState{
			Status:      final.Status,
			ControlMode: final.ControlMode,
			ChatMode:    final.ChatMode,
			PlayState:   final.PlayState,
			PauseReason: final.PauseReason,
		},
		Transitions:     records,
		ActivateBlockID: activate,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range changes {
		s.metrics.IncTransition(c.Field, c.To)
	}
	s.reschedule(ctx, updated)
	for _, c := range changes {
		s.notifier.SessionChanged(ctx, updated, c)
	}
	s.log.Debug("live session state committed",
		"session_id", updated.ID.String(),
		"version", updated.Version,
		"status", string(updated.Status),
		"play_state", string(updated.PlayState),
	)
	return updated, nil
}

func (s *liveSessionService) RearmAutoplay(ctx context.Context) (int, error) {
	if s.scheduler == nil {
		return 0, nil
	}
	rows, err := s.sessions.ListActiveTimerDriven(dbctx.Context{Ctx: ctx})
	if err != nil {
		return 0, domainagg.Wrap(domainagg.CodeInternal, "live_session.rearm_autoplay", err)
	}
	for _, row := range rows {
		s.reschedule(ctx, row)
	}
	if len(rows) > 0 {
		s.log.Info("autoplay timers re-armed", "sessions", len(rows))
	}
	return len(rows), nil
}

// reschedule keeps the autoplay timer in line with the committed session. While
// a question is open the active block's own time limit wins over the table.
func (s *liveSessionService) reschedule(ctx context.Context, session *live.Session) {
	if s.scheduler == nil || session == nil {
		return
	}
	if session.Status != live.StatusActive || !session.ControlMode.TimerDriven() {
		s.scheduler.Cancel(session.ID)
		return
	}
	if session.PlayState == live.PlayQuestionActive {
		active, err := s.blocks.ListByStatus(dbctx.Context{Ctx: ctx}, session.ID, []live.BlockStatus{live.BlockActive})
		if err != nil {
			s.log.Warn("autoplay reschedule: list active blocks", "session_id", session.ID.String(), "error", err)
		} else if len(active) > 0 && active[0].TimeLimitS > 0 {
			s.scheduler.ScheduleIn(session.ID, session.PlayState, time.Duration(active[0].TimeLimitS)*time.Second)
			return
		}
	}
	s.scheduler.Schedule(session.ID, session.PlayState, session.ControlMode)
}

func (s *liveSessionService) closeActiveBlocks(ctx context.Context, sessionID uuid.UUID) {
	active, err := s.blocks.ListByStatus(dbctx.Context{Ctx: ctx}, sessionID, []live.BlockStatus{live.BlockActive})
	if err != nil {
		s.log.Warn("close active blocks: list", "session_id", sessionID.String(), "error", err)
		return
	}
	for _, b := range active {
		res, err := s.agg.SetBlockStatus(ctx, domainagg.SetBlockStatusInput{
			Event:     string(statemachine.EventBlockState),
			SessionID: sessionID,
			BlockID:   b.ID,
			From:      live.BlockActive,
			To:        live.BlockClosed,
		})
		if err != nil {
			s.log.Warn("close active block", "session_id", sessionID.String(), "block_id", b.ID.String(), "error", err)
			continue
		}
		s.metrics.IncTransition(statemachine.FieldBlockStatus, string(live.BlockClosed))
		s.notifier.BlockChanged(ctx, sessionID, res.Block, live.BlockActive, res.Closed)
	}
}

func firstByPosition(rows []*live.SessionBlock) *live.SessionBlock {
	var out *live.SessionBlock
	for _, r := range rows {
		if out == nil || r.Position < out.Position {
			out = r
		}
	}
	return out
}
