package aggregates

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

type LessonBlocksAggregateDeps struct {
	Base         BaseDeps
	Lessons      repos.LessonRepo
	Blocks       repos.BlockRepo
	Interactions repos.InteractionRepo
}

type lessonBlocksAggregate struct {
	deps LessonBlocksAggregateDeps
}

func NewLessonBlocksAggregate(deps LessonBlocksAggregateDeps) domainagg.LessonBlocksAggregate {
	deps.Base = deps.Base.withDefaults()
	return &lessonBlocksAggregate{deps: deps}
}

func (a *lessonBlocksAggregate) Contract() domainagg.Contract {
	return domainagg.LessonBlocksAggregateContract
}

func (a *lessonBlocksAggregate) Append(ctx context.Context, in domainagg.AppendBlockInput) (*learning.Block, error) {
	const op = "lesson_blocks.append"
	if in.LessonID == uuid.Nil {
		return nil, MapError(op, ValidationError("lesson_id is required"))
	}
	if !in.PluginType.Valid() {
		return nil, MapError(op, ValidationError(fmt.Sprintf("unknown plugin type %q", in.PluginType)))
	}
	if in.Weight < 0 {
		return nil, MapError(op, ValidationError("weight must not be negative"))
	}
	weight := in.Weight
	if weight == 0 {
		weight = 1
	}

	var out *learning.Block
	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		if _, err := a.deps.Lessons.GetByID(dbc, in.LessonID); err != nil {
			return err
		}
		maxPos, err := a.deps.Blocks.MaxPosition(dbc, in.LessonID)
		if err != nil {
			return err
		}
		rows, err := a.deps.Blocks.Create(dbc, []*learning.Block{{
			LessonID:   in.LessonID,
			Position:   maxPos + 1,
			Weight:     weight,
			PluginType: in.PluginType,
			Content:    datatypes.JSON(in.Content),
		}})
		if err != nil {
			return err
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *lessonBlocksAggregate) Delete(ctx context.Context, lessonID, blockID uuid.UUID) error {
	const op = "lesson_blocks.delete"
	if lessonID == uuid.Nil || blockID == uuid.Nil {
		return MapError(op, ValidationError("lesson_id and block_id are required"))
	}
	return executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		block, err := a.deps.Blocks.GetByID(dbc, blockID)
		if err != nil {
			return err
		}
		if block.LessonID != lessonID {
			return NotFoundError("block does not belong to lesson")
		}
		if err := a.deps.Interactions.DeleteByBlockIDs(dbc, []uuid.UUID{blockID}); err != nil {
			return err
		}
		if err := a.deps.Blocks.FullDeleteByIDs(dbc, []uuid.UUID{blockID}); err != nil {
			return err
		}
		remaining, err := a.deps.Blocks.ListByLesson(dbc, lessonID)
		if err != nil {
			return err
		}
		return a.deps.Blocks.SetPositions(dbc, lessonID, compactPositions(remaining))
	})
}

func (a *lessonBlocksAggregate) Reorder(ctx context.Context, lessonID uuid.UUID, orderedIDs []uuid.UUID) ([]*learning.Block, error) {
	const op = "lesson_blocks.reorder"
	if lessonID == uuid.Nil {
		return nil, MapError(op, ValidationError("lesson_id is required"))
	}
	var out []*learning.Block
	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		current, err := a.deps.Blocks.ListByLesson(dbc, lessonID)
		if err != nil {
			return err
		}
		if err := requirePermutation(current, orderedIDs); err != nil {
			return err
		}
		positions := map[uuid.UUID]int{}
		byID := make(map[uuid.UUID]*learning.Block, len(current))
		for _, b := range current {
			byID[b.ID] = b
		}
		for i, id := range orderedIDs {
			if byID[id].Position != i+1 {
				positions[id] = i + 1
			}
		}
		if err := a.deps.Blocks.SetPositions(dbc, lessonID, positions); err != nil {
			return err
		}
		out, err = a.deps.Blocks.ListByLesson(dbc, lessonID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// compactPositions maps blocks (ordered by position) onto 1..n, returning only
// the rows whose position changes.
func compactPositions(ordered []*learning.Block) map[uuid.UUID]int {
	out := map[uuid.UUID]int{}
	for i, b := range ordered {
		if b.Position != i+1 {
			out[b.ID] = i + 1
		}
	}
	return out
}

func requirePermutation(current []*learning.Block, orderedIDs []uuid.UUID) error {
	if len(orderedIDs) != len(current) {
		return ValidationError(fmt.Sprintf("expected %d block ids, got %d", len(current), len(orderedIDs)))
	}
	known := make(map[uuid.UUID]bool, len(current))
	for _, b := range current {
		known[b.ID] = false
	}
	for _, id := range orderedIDs {
		seen, ok := known[id]
		if !ok {
			return ValidationError(fmt.Sprintf("block %s is not in the lesson", id))
		}
		if seen {
			return ValidationError(fmt.Sprintf("block %s listed twice", id))
		}
		known[id] = true
	}
	return nil
}
