package aggregates

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
)

var LessonBlocksAggregateContract = Contract{
	Name:             "Learning.LessonBlocksAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	MaxAttempts:      3,
}

// LessonBlocksAggregate owns block ordering within a lesson.
type LessonBlocksAggregate interface {
	Aggregate

	// Append creates a block at the next free position.
	Append(ctx context.Context, in AppendBlockInput) (*learning.Block, error)

	// Delete removes a block and its interactions, then closes the position gap.
	Delete(ctx context.Context, lessonID, blockID uuid.UUID) error

	// Reorder assigns positions 1..n following orderedIDs, which must be a
	// permutation of the lesson's blocks.
	Reorder(ctx context.Context, lessonID uuid.UUID, orderedIDs []uuid.UUID) ([]*learning.Block, error)
}

type AppendBlockInput struct {
	LessonID   uuid.UUID
	PluginType learning.PluginType
	Weight     float64
	Content    json.RawMessage
}
