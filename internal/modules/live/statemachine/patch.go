package statemachine

import (
	"fmt"

	"github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

// Patch is a partial update of session state. Nil fields are left alone.
type Patch struct {
	Status      *live.Status      `json:"status,omitempty"`
	PauseReason *live.PauseReason `json:"pause_reason,omitempty"`
	ControlMode *live.ControlMode `json:"control_mode,omitempty"`
	ChatMode    *live.ChatMode    `json:"chat_mode,omitempty"`
	PlayState   *live.PlayState   `json:"play_state,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.PauseReason == nil && p.ControlMode == nil && p.ChatMode == nil && p.PlayState == nil
}

// Plan resolves a patch into an ordered list of changes. Control mode is applied
// before status so that a paused session can be reconfigured and resumed in one
// request. Either every step is accepted or none is.
func Plan(s Snapshot, p Patch) ([]Change, error) {
	const op = "statemachine.plan"
	if p.Empty() {
		return nil, aggregates.Validation(op, "patch has no fields")
	}
	if p.PauseReason != nil && (p.Status == nil || *p.Status != live.StatusPaused) {
		return nil, aggregates.Validation(op, "pause_reason is only accepted together with status=paused")
	}

	var out []Change
	cur := s.clone()
	step := func(c Change, err error) error {
		if err != nil {
			return err
		}
		out = append(out, c)
		cur = c.Next
		return nil
	}

	if p.ControlMode != nil && *p.ControlMode != cur.ControlMode {
		if err := step(SetControlMode(cur, *p.ControlMode)); err != nil {
			return nil, err
		}
	}
	if p.Status != nil && *p.Status == live.StatusPaused && cur.Status == live.StatusPaused &&
		p.PauseReason != nil && (cur.PauseReason == nil || *cur.PauseReason != *p.PauseReason) {
		return nil, aggregates.Validation(op, "pause reason cannot change while paused")
	}
	if p.Status != nil && *p.Status != cur.Status {
		if err := step(statusStep(cur, *p.Status, p.PauseReason)); err != nil {
			return nil, err
		}
	}
	if p.ChatMode != nil && *p.ChatMode != cur.ChatMode {
		if err := step(SetChatMode(cur, *p.ChatMode)); err != nil {
			return nil, err
		}
	}
	if p.PlayState != nil {
		if err := step(SetPlayState(cur, *p.PlayState)); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, aggregates.Conflict(op, "patch does not change anything")
	}
	return out, nil
}

func statusStep(s Snapshot, to live.Status, reason *live.PauseReason) (Change, error) {
	switch to {
	case live.StatusWaiting:
		return OpenLobby(s)
	case live.StatusActive:
		if s.Status == live.StatusPaused {
			return Resume(s)
		}
		return Start(s)
	case live.StatusPaused:
		var r live.PauseReason
		if reason != nil {
			r = *reason
		}
		return Pause(s, r)
	case live.StatusEnded:
		return End(s)
	case live.StatusDraft:
		return Change{}, aggregates.Conflict("statemachine.plan", "a session cannot return to draft")
	default:
		return Change{}, aggregates.Validation("statemachine.plan", fmt.Sprintf("unknown status %q", to))
	}
}

// Final returns the snapshot after the last change, or s when there are none.
func Final(s Snapshot, changes []Change) Snapshot {
	if len(changes) == 0 {
		return s
	}
	return changes[len(changes)-1].Next
}
