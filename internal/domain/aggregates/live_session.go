package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/live"
)

var LiveSessionAggregateContract = Contract{
	Name:             "Live.SessionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	MaxAttempts:      2,
}

// LiveSessionAggregate commits already-validated live session transitions.
//
// A commit fails with CodeConflict when the stored row no longer matches the
// expected version and status.
type LiveSessionAggregate interface {
	Aggregate

	CommitState(ctx context.Context, in CommitSessionStateInput) (*live.Session, error)
	SetBlockStatus(ctx context.Context, in SetBlockStatusInput) (SetBlockStatusResult, error)
}

type SessionState struct {
	Status      live.Status
	ControlMode live.ControlMode
	ChatMode    live.ChatMode
	PlayState   live.PlayState
	PauseReason *live.PauseReason
}

type TransitionRecord struct {
	Event   string
	Field   string
	From    string
	To      string
	Payload map[string]any
}

type CommitSessionStateInput struct {
	SessionID       uuid.UUID
	ActorID         *uuid.UUID
	ExpectedVersion int
	ExpectedStatus  live.Status
	Next            SessionState
	Transitions     []TransitionRecord
	// ActivateBlockID, when set, activates that pending block in the same commit.
	ActivateBlockID *uuid.UUID
	At              time.Time
}

type SetBlockStatusInput struct {
	// Event labels the transition rows written for the change.
	Event     string
	SessionID uuid.UUID
	BlockID   uuid.UUID
	ActorID   *uuid.UUID
	From      live.BlockStatus
	To        live.BlockStatus
	At        time.Time
}

type SetBlockStatusResult struct {
	Block *live.SessionBlock
	// Closed lists blocks that were closed because another block became active.
	Closed []uuid.UUID
}
