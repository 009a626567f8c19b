package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/modules/learning/playflow"
	"github.com/yungbote/gonasi-backend/internal/modules/live/statemachine"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
	"github.com/yungbote/gonasi-backend/internal/realtime"
)

// Envelope is the body of every live session broadcast.
type Envelope struct {
	Type      string    `json:"type"`
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// LiveNotifier fans committed changes out to subscribers. Delivery is fire and
// forget: failures are logged and counted, never returned.
type LiveNotifier interface {
	SessionChanged(ctx context.Context, session *live.Session, change statemachine.Change)
	BlockChanged(ctx context.Context, sessionID uuid.UUID, block *live.SessionBlock, from live.BlockStatus, closed []uuid.UUID)
	LessonProgress(ctx context.Context, userID, lessonID uuid.UUID, state playflow.State)
}

type liveNotifier struct {
	emit    SSEEmitter
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewLiveNotifier(emit SSEEmitter, log *logger.Logger, metrics *observability.Metrics) LiveNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &liveNotifier{
		emit:    emit,
		log:     log.With("service", "LiveNotifier"),
		metrics: metrics,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (n *liveNotifier) SessionChanged(ctx context.Context, session *live.Session, change statemachine.Change) {
	if n == nil || session == nil {
		return
	}
	payload := map[string]any{
		"session_id":   session.ID,
		"field":        change.Field,
		"from":         change.From,
		"to":           change.To,
		"status":       session.Status,
		"control_mode": session.ControlMode,
		"chat_mode":    session.ChatMode,
		"play_state":   session.PlayState,
		"pause_reason": session.PauseReason,
		"version":      session.Version,
	}
	n.send(ctx, realtime.LiveSessionChannel(session.ID), realtime.SSEEvent(change.Event), payload)
}

func (n *liveNotifier) BlockChanged(ctx context.Context, sessionID uuid.UUID, block *live.SessionBlock, from live.BlockStatus, closed []uuid.UUID) {
	if n == nil || block == nil {
		return
	}
	if closed == nil {
		closed = []uuid.UUID{}
	}
	payload := map[string]any{
		"session_id":       sessionID,
		"block_id":         block.ID,
		"position":         block.Position,
		"from":             from,
		"to":               block.Status,
		"closed_block_ids": closed,
	}
	n.send(ctx, realtime.LiveSessionChannel(sessionID), realtime.SSEEventBlockStateChange, payload)
}

func (n *liveNotifier) LessonProgress(ctx context.Context, userID, lessonID uuid.UUID, state playflow.State) {
	if n == nil || userID == uuid.Nil {
		return
	}
	payload := map[string]any{
		"lesson_id":       lessonID,
		"lesson_progress": state.LessonProgress,
		"is_complete":     state.IsComplete,
		"active_block_id": state.ActiveBlockID,
	}
	n.send(ctx, realtime.UserChannel(userID), realtime.SSEEventLessonProgress, payload)
}

func (n *liveNotifier) send(ctx context.Context, channel string, event realtime.SSEEvent, payload any) {
	if n.emit == nil {
		return
	}
	msg := realtime.SSEMessage{
		Channel: channel,
		Event:   event,
		Data: Envelope{
			Type:      "broadcast",
			Event:     string(event),
			Payload:   payload,
			Timestamp: n.now(),
		},
	}
	err := n.emit.Emit(ctx, msg)
	n.metrics.IncBroadcast(string(event), err)
	if err != nil {
		n.log.Warn("broadcast failed", "channel", channel, "event", string(event), "error", err)
	}
}
