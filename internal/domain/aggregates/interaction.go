package aggregates

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
)

var InteractionAggregateContract = Contract{
	Name:             "Learning.InteractionAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	MaxAttempts:      3,
}

// InteractionAggregate persists learner interactions.
type InteractionAggregate interface {
	Aggregate

	// Record upserts the learner's row for the block and appends an attempt.
	Record(ctx context.Context, in RecordInteractionInput) (*learning.Interaction, error)

	// Reset hard-deletes every interaction of the learner in the lesson.
	Reset(ctx context.Context, lessonID, userID uuid.UUID) (int64, error)
}

type RecordInteractionInput struct {
	UserID     uuid.UUID
	LessonID   uuid.UUID
	BlockID    uuid.UUID
	IsComplete bool
	IsCorrect  *bool
	State      json.RawMessage
	At         time.Time
}
