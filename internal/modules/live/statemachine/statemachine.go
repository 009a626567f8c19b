// Package statemachine holds the pure transition rules of a live session.
//
// Transitions never mutate their input. They either return a Change describing the
// next snapshot or a typed aggregates error explaining why the move is refused.
// Committing the change (and broadcasting it) is the caller's job.
package statemachine

import (
	"fmt"

	"github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

// Event names the broadcast emitted after a committed change.
type Event string

const (
	EventSessionState Event = "session_state_change"
	EventPlayState    Event = "play_state_change"
	EventBlockState   Event = "block_state_change"
)

// Field names the session column a change touches.
const (
	FieldStatus      = "status"
	FieldControlMode = "control_mode"
	FieldChatMode    = "chat_mode"
	FieldPlayState   = "play_state"
	FieldBlockStatus = "block_status"
)

// Snapshot is the mutable part of a live session.
type Snapshot struct {
	Status      live.Status       `json:"status"`
	ControlMode live.ControlMode  `json:"control_mode"`
	ChatMode    live.ChatMode     `json:"chat_mode"`
	PlayState   live.PlayState    `json:"play_state"`
	PauseReason *live.PauseReason `json:"pause_reason"`
}

// FromSession copies the state columns out of a session row.
func FromSession(s *live.Session) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	out := Snapshot{
		Status:      s.Status,
		ControlMode: s.ControlMode,
		ChatMode:    s.ChatMode,
		PlayState:   s.PlayState,
	}
	if s.PauseReason != nil {
		r := *s.PauseReason
		out.PauseReason = &r
	}
	return out
}

// Apply writes the snapshot back onto a session row.
func (s Snapshot) Apply(row *live.Session) {
	row.Status = s.Status
	row.ControlMode = s.ControlMode
	row.ChatMode = s.ChatMode
	row.PlayState = s.PlayState
	row.PauseReason = nil
	if s.PauseReason != nil {
		r := *s.PauseReason
		row.PauseReason = &r
	}
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.PauseReason != nil {
		r := *s.PauseReason
		out.PauseReason = &r
	}
	return out
}

// Change is an accepted transition.
type Change struct {
	Event Event    `json:"event"`
	Field string   `json:"field"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Prev  Snapshot `json:"prev"`
	Next  Snapshot `json:"next"`
}

// ExpectStatus is the status the stored row must still carry for the change to commit.
func (c Change) ExpectStatus() live.Status { return c.Prev.Status }

// CheckInvariants verifies the pause invariants of a snapshot.
func CheckInvariants(s Snapshot) error {
	const op = "statemachine.check"
	if s.Status == live.StatusPaused && s.PauseReason == nil {
		return aggregates.NewError(aggregates.CodeInvariantViolation, op, "paused session has no pause reason", nil)
	}
	if s.Status != live.StatusPaused && s.PauseReason != nil {
		return aggregates.NewError(aggregates.CodeInvariantViolation, op, "pause reason set on a session that is not paused", nil)
	}
	if s.Status == live.StatusPaused && *s.PauseReason == live.PauseModeration && s.ChatMode != live.ChatMuted {
		return aggregates.NewError(aggregates.CodeInvariantViolation, op, "moderation pause requires muted chat", nil)
	}
	return nil
}

func statusChange(prev Snapshot, next Snapshot) (Change, error) {
	if err := CheckInvariants(next); err != nil {
		return Change{}, err
	}
	return Change{
		Event: EventSessionState,
		Field: FieldStatus,
		From:  string(prev.Status),
		To:    string(next.Status),
		Prev:  prev.clone(),
		Next:  next,
	}, nil
}

func rejectEnded(op string, s Snapshot) error {
	if s.Status.Terminal() {
		return aggregates.Conflict(op, "session has ended")
	}
	return nil
}

// OpenLobby moves a draft session into the waiting lobby.
func OpenLobby(s Snapshot) (Change, error) {
	const op = "statemachine.open_lobby"
	if s.Status != live.StatusDraft {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("cannot open lobby from %s", s.Status))
	}
	next := s.clone()
	next.Status = live.StatusWaiting
	return statusChange(s, next)
}

// Start activates a draft or waiting session.
func Start(s Snapshot) (Change, error) {
	const op = "statemachine.start"
	switch s.Status {
	case live.StatusDraft, live.StatusWaiting:
	case live.StatusPaused:
		return Change{}, aggregates.Conflict(op, "session is paused; resume it instead")
	default:
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("cannot start from %s", s.Status))
	}
	next := s.clone()
	next.Status = live.StatusActive
	next.PauseReason = nil
	return statusChange(s, next)
}

// Pause holds an active session. The reason is mandatory; a moderation pause mutes chat.
func Pause(s Snapshot, reason live.PauseReason) (Change, error) {
	const op = "statemachine.pause"
	if reason == "" {
		return Change{}, aggregates.Validation(op, "a pause reason is required")
	}
	if !reason.Valid() {
		return Change{}, aggregates.Validation(op, fmt.Sprintf("unknown pause reason %q", reason))
	}
	if s.Status != live.StatusActive {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("cannot pause from %s", s.Status))
	}
	next := s.clone()
	next.Status = live.StatusPaused
	r := reason
	next.PauseReason = &r
	if reason == live.PauseModeration {
		next.ChatMode = live.ChatMuted
	}
	return statusChange(s, next)
}

// Resume returns a paused session to active and clears the pause reason.
// Chat mode is left as it was; it only becomes changeable again.
func Resume(s Snapshot) (Change, error) {
	const op = "statemachine.resume"
	if s.Status != live.StatusPaused {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("cannot resume from %s", s.Status))
	}
	next := s.clone()
	next.Status = live.StatusActive
	next.PauseReason = nil
	return statusChange(s, next)
}

// End terminates an active or paused session.
func End(s Snapshot) (Change, error) {
	const op = "statemachine.end"
	switch s.Status {
	case live.StatusActive, live.StatusPaused:
	default:
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("cannot end from %s", s.Status))
	}
	next := s.clone()
	next.Status = live.StatusEnded
	next.PauseReason = nil
	next.PlayState = live.PlayEnded
	return statusChange(s, next)
}

// SetControlMode switches between autoplay, host-driven and hybrid control.
func SetControlMode(s Snapshot, mode live.ControlMode) (Change, error) {
	const op = "statemachine.set_control_mode"
	if !mode.Valid() {
		return Change{}, aggregates.Validation(op, fmt.Sprintf("unknown control mode %q", mode))
	}
	switch s.Status {
	case live.StatusWaiting, live.StatusPaused:
	default:
		return Change{}, aggregates.Conflict(op, "can only change in waiting or paused status")
	}
	if s.ControlMode == mode {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("control mode is already %s", mode))
	}
	next := s.clone()
	next.ControlMode = mode
	return Change{
		Event: EventSessionState,
		Field: FieldControlMode,
		From:  string(s.ControlMode),
		To:    string(mode),
		Prev:  s.clone(),
		Next:  next,
	}, nil
}

// SetChatMode changes who may chat. A moderation pause pins chat to muted.
func SetChatMode(s Snapshot, mode live.ChatMode) (Change, error) {
	const op = "statemachine.set_chat_mode"
	if !mode.Valid() {
		return Change{}, aggregates.Validation(op, fmt.Sprintf("unknown chat mode %q", mode))
	}
	if err := rejectEnded(op, s); err != nil {
		return Change{}, err
	}
	if s.Status == live.StatusPaused && s.PauseReason != nil && *s.PauseReason == live.PauseModeration && mode != live.ChatMuted {
		return Change{}, aggregates.Conflict(op, "chat stays muted while paused for moderation")
	}
	if s.ChatMode == mode {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("chat mode is already %s", mode))
	}
	next := s.clone()
	next.ChatMode = mode
	return Change{
		Event: EventSessionState,
		Field: FieldChatMode,
		From:  string(s.ChatMode),
		To:    string(mode),
		Prev:  s.clone(),
		Next:  next,
	}, nil
}

// SetPlayState moves the session to another activity. Any valid state other than
// the current one is accepted.
func SetPlayState(s Snapshot, state live.PlayState) (Change, error) {
	const op = "statemachine.set_play_state"
	if !state.Valid() {
		return Change{}, aggregates.Validation(op, fmt.Sprintf("unknown play state %q", state))
	}
	if err := rejectEnded(op, s); err != nil {
		return Change{}, err
	}
	if s.PlayState == state {
		return Change{}, aggregates.Conflict(op, fmt.Sprintf("play state is already %s", state))
	}
	next := s.clone()
	next.PlayState = state
	return Change{
		Event: EventPlayState,
		Field: FieldPlayState,
		From:  string(s.PlayState),
		To:    string(state),
		Prev:  s.clone(),
		Next:  next,
	}, nil
}

// BlockTransition validates a live block status change.
func BlockTransition(from, to live.BlockStatus) error {
	const op = "statemachine.block_transition"
	if !to.Valid() {
		return aggregates.Validation(op, fmt.Sprintf("unknown block status %q", to))
	}
	switch from {
	case live.BlockPending:
		if to == live.BlockActive || to == live.BlockSkipped {
			return nil
		}
	case live.BlockActive:
		if to == live.BlockClosed || to == live.BlockSkipped {
			return nil
		}
	case live.BlockClosed, live.BlockSkipped:
		return aggregates.Conflict(op, fmt.Sprintf("block is already %s", from))
	default:
		return aggregates.Validation(op, fmt.Sprintf("unknown block status %q", from))
	}
	return aggregates.Conflict(op, fmt.Sprintf("cannot move block from %s to %s", from, to))
}
