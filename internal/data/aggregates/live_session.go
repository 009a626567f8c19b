package aggregates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

const (
	liveSessionTable      = "live_session"
	liveSessionBlockTable = "live_session_block"
)

type LiveSessionAggregateDeps struct {
	Base        BaseDeps
	Sessions    repos.LiveSessionRepo
	Blocks      repos.LiveSessionBlockRepo
	Transitions repos.LiveSessionTransitionRepo
}

type liveSessionAggregate struct {
	deps LiveSessionAggregateDeps
}

func NewLiveSessionAggregate(deps LiveSessionAggregateDeps) domainagg.LiveSessionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &liveSessionAggregate{deps: deps}
}

func (a *liveSessionAggregate) Contract() domainagg.Contract {
	return domainagg.LiveSessionAggregateContract
}

func validateSessionState(s domainagg.SessionState) error {
	switch {
	case !s.Status.Valid():
		return ValidationError(fmt.Sprintf("unknown status %q", s.Status))
	case !s.ControlMode.Valid():
		return ValidationError(fmt.Sprintf("unknown control mode %q", s.ControlMode))
	case !s.ChatMode.Valid():
		return ValidationError(fmt.Sprintf("unknown chat mode %q", s.ChatMode))
	case !s.PlayState.Valid():
		return ValidationError(fmt.Sprintf("unknown play state %q", s.PlayState))
	case s.PauseReason != nil && !s.PauseReason.Valid():
		return ValidationError(fmt.Sprintf("unknown pause reason %q", *s.PauseReason))
	case s.Status == live.StatusPaused && s.PauseReason == nil:
		return InvariantError("paused session requires a pause reason")
	case s.Status != live.StatusPaused && s.PauseReason != nil:
		return InvariantError("pause reason set on a session that is not paused")
	}
	return nil
}

func (a *liveSessionAggregate) CommitState(ctx context.Context, in domainagg.CommitSessionStateInput) (*live.Session, error) {
	const op = "live_session.commit_state"
	if in.SessionID == uuid.Nil {
		return nil, MapError(op, ValidationError("session_id is required"))
	}
	if err := validateSessionState(in.Next); err != nil {
		return nil, MapError(op, err)
	}
	at := a.deps.Base.at(in.At)

	var out *live.Session
	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		cur, err := a.deps.Sessions.GetByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if err := RequireVersionMatch(cur.Version, in.ExpectedVersion); err != nil {
			return ConflictError("session state changed concurrently")
		}
		if cur.Status != in.ExpectedStatus {
			return ConflictError("session state changed concurrently")
		}

		updates := map[string]any{
			"status":       string(in.Next.Status),
			"control_mode": string(in.Next.ControlMode),
			"chat_mode":    string(in.Next.ChatMode),
			"play_state":   string(in.Next.PlayState),
			"pause_reason": nil,
			"version":      in.ExpectedVersion + 1,
			"updated_at":   at,
		}
		if in.Next.PauseReason != nil {
			updates["pause_reason"] = string(*in.Next.PauseReason)
		}
		switch in.Next.Status {
		case live.StatusActive:
			if cur.StartedAt == nil {
				updates["started_at"] = at
			}
			updates["paused_at"] = nil
		case live.StatusPaused:
			if cur.Status != live.StatusPaused {
				updates["paused_at"] = at
			}
		case live.StatusEnded:
			updates["ended_at"] = at
			updates["paused_at"] = nil
		}
		ok, err := a.deps.Base.CASGuard.UpdateByVersionAndStatus(dbc, liveSessionTable, in.SessionID, in.ExpectedVersion, []string{string(in.ExpectedStatus)}, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "session state changed concurrently"); err != nil {
			return err
		}

		rows, err := transitionRows(in.SessionID, in.ActorID, in.Transitions, at)
		if err != nil {
			return err
		}
		if in.ActivateBlockID != nil {
			block, err := a.deps.Blocks.GetByID(dbc, in.SessionID, *in.ActivateBlockID)
			if err != nil {
				return err
			}
			if err := RequireStatusAllowed(string(block.Status), string(live.BlockPending)); err != nil {
				return err
			}
			closed, err := a.setBlockStatus(dbc, block, live.BlockActive, at)
			if err != nil {
				return err
			}
			rows = append(rows, blockTransitionRows(in.SessionID, in.ActorID, "block_state_change", block, live.BlockActive, closed, at)...)
		}
		if err := a.deps.Transitions.Create(dbc, rows); err != nil {
			return err
		}
		out, err = a.deps.Sessions.GetByID(dbc, in.SessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *liveSessionAggregate) SetBlockStatus(ctx context.Context, in domainagg.SetBlockStatusInput) (domainagg.SetBlockStatusResult, error) {
	const op = "live_session.set_block_status"
	var res domainagg.SetBlockStatusResult
	if in.SessionID == uuid.Nil || in.BlockID == uuid.Nil {
		return res, MapError(op, ValidationError("session_id and block_id are required"))
	}
	if !in.From.Valid() || !in.To.Valid() {
		return res, MapError(op, ValidationError("unknown block status"))
	}
	at := a.deps.Base.at(in.At)
	event := in.Event
	if event == "" {
		event = "block_state_change"
	}

	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		sess, err := a.deps.Sessions.GetByID(dbc, in.SessionID)
		if err != nil {
			return err
		}
		if sess.Status.Terminal() {
			return ConflictError("session has ended")
		}
		block, err := a.deps.Blocks.GetByID(dbc, in.SessionID, in.BlockID)
		if err != nil {
			return err
		}
		if err := RequireStatusAllowed(string(block.Status), string(in.From)); err != nil {
			return err
		}
		closed, err := a.setBlockStatus(dbc, block, in.To, at)
		if err != nil {
			return err
		}
		rows := blockTransitionRows(in.SessionID, in.ActorID, event, block, in.To, closed, at)
		if err := a.deps.Transitions.Create(dbc, rows); err != nil {
			return err
		}
		updated, err := a.deps.Blocks.GetByID(dbc, in.SessionID, in.BlockID)
		if err != nil {
			return err
		}
		res.Block = updated
		res.Closed = closed
		return nil
	})
	if err != nil {
		return domainagg.SetBlockStatusResult{}, err
	}
	return res, nil
}

// setBlockStatus moves block to `to` guarded on its current status. Activating a
// block closes any other active block of the session, whose ids are returned.
func (a *liveSessionAggregate) setBlockStatus(dbc dbctx.Context, block *live.SessionBlock, to live.BlockStatus, at time.Time) ([]uuid.UUID, error) {
	var closed []uuid.UUID
	if to == live.BlockActive {
		active, err := a.deps.Blocks.ListByStatus(dbc, block.SessionID, []live.BlockStatus{live.BlockActive})
		if err != nil {
			return nil, err
		}
		for _, other := range active {
			if other.ID == block.ID {
				continue
			}
			ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, liveSessionBlockTable, other.ID,
				[]string{string(live.BlockActive)},
				map[string]any{"session_id": block.SessionID},
				map[string]any{"status": string(live.BlockClosed), "closed_at": at, "updated_at": at})
			if err != nil {
				return nil, err
			}
			if err := RequireCASSuccess(ok, "block state changed concurrently"); err != nil {
				return nil, err
			}
			closed = append(closed, other.ID)
		}
	}

	updates := map[string]any{"status": string(to), "updated_at": at}
	switch to {
	case live.BlockActive:
		updates["activated_at"] = at
	case live.BlockClosed, live.BlockSkipped:
		updates["closed_at"] = at
	}
	ok, err := a.deps.Base.CASGuard.UpdateByStatus(dbc, liveSessionBlockTable, block.ID,
		[]string{string(block.Status)},
		map[string]any{"session_id": block.SessionID},
		updates)
	if err != nil {
		return nil, err
	}
	if err := RequireCASSuccess(ok, "block state changed concurrently"); err != nil {
		return nil, err
	}
	return closed, nil
}

func transitionRows(sessionID uuid.UUID, actorID *uuid.UUID, records []domainagg.TransitionRecord, at time.Time) ([]*live.SessionTransition, error) {
	rows := make([]*live.SessionTransition, 0, len(records))
	for _, rec := range records {
		var payload datatypes.JSON
		if len(rec.Payload) > 0 {
			raw, err := json.Marshal(rec.Payload)
			if err != nil {
				return nil, ValidationError("transition payload is not serializable")
			}
			payload = datatypes.JSON(raw)
		}
		rows = append(rows, &live.SessionTransition{
			SessionID:  sessionID,
			ActorID:    actorID,
			Event:      rec.Event,
			Field:      rec.Field,
			FromState:  rec.From,
			ToState:    rec.To,
			Payload:    payload,
			OccurredAt: at,
		})
	}
	return rows, nil
}

func blockTransitionRows(sessionID uuid.UUID, actorID *uuid.UUID, event string, block *live.SessionBlock, to live.BlockStatus, closed []uuid.UUID, at time.Time) []*live.SessionTransition {
	row := func(id uuid.UUID, from, to live.BlockStatus) *live.SessionTransition {
		raw, _ := json.Marshal(map[string]string{"block_id": id.String()})
		return &live.SessionTransition{
			SessionID:  sessionID,
			ActorID:    actorID,
			Event:      event,
			Field:      "block_status",
			FromState:  string(from),
			ToState:    string(to),
			Payload:    datatypes.JSON(raw),
			OccurredAt: at,
		}
	}
	out := []*live.SessionTransition{row(block.ID, block.Status, to)}
	for _, id := range closed {
		out = append(out, row(id, live.BlockActive, live.BlockClosed))
	}
	return out
}
