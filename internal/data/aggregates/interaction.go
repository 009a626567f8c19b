package aggregates

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
)

type InteractionAggregateDeps struct {
	Base         BaseDeps
	Blocks       repos.BlockRepo
	Interactions repos.InteractionRepo
}

type interactionAggregate struct {
	deps InteractionAggregateDeps
}

func NewInteractionAggregate(deps InteractionAggregateDeps) domainagg.InteractionAggregate {
	deps.Base = deps.Base.withDefaults()
	return &interactionAggregate{deps: deps}
}

func (a *interactionAggregate) Contract() domainagg.Contract {
	return domainagg.InteractionAggregateContract
}

func (a *interactionAggregate) Record(ctx context.Context, in domainagg.RecordInteractionInput) (*learning.Interaction, error) {
	const op = "interaction.record"
	if in.UserID == uuid.Nil || in.LessonID == uuid.Nil || in.BlockID == uuid.Nil {
		return nil, MapError(op, ValidationError("user_id, lesson_id and block_id are required"))
	}
	at := a.deps.Base.at(in.At)

	var out *learning.Interaction
	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		block, err := a.deps.Blocks.GetByID(dbc, in.BlockID)
		if err != nil {
			return err
		}
		if block.LessonID != in.LessonID {
			return NotFoundError("block does not belong to lesson")
		}
		attempt := learning.Attempt{IsComplete: in.IsComplete, IsCorrect: in.IsCorrect, State: in.State, At: at}

		existing, err := a.deps.Interactions.GetByUserAndBlock(dbc, in.UserID, in.BlockID)
		if err != nil {
			return err
		}
		if existing == nil {
			row := &learning.Interaction{
				UserID:           in.UserID,
				LessonID:         in.LessonID,
				BlockID:          in.BlockID,
				IsComplete:       in.IsComplete,
				IsCorrect:        in.IsCorrect,
				State:            datatypes.JSON(in.State),
				LastInteractedAt: at,
			}
			if err := row.AppendAttempt(attempt); err != nil {
				return ValidationError("state is not valid json")
			}
			if err := a.deps.Interactions.Create(dbc, row); err != nil {
				return err
			}
			out = row
			return nil
		}

		if err := existing.AppendAttempt(attempt); err != nil {
			return ValidationError("state is not valid json")
		}
		existing.IsComplete = in.IsComplete
		existing.IsCorrect = in.IsCorrect
		existing.State = datatypes.JSON(in.State)
		existing.LastInteractedAt = at
		var isCorrect any
		if in.IsCorrect != nil {
			isCorrect = *in.IsCorrect
		}
		var state any
		if len(in.State) > 0 {
			state = existing.State
		}
		if err := a.deps.Interactions.UpdateFields(dbc, existing.ID, map[string]interface{}{
			"is_complete":        in.IsComplete,
			"is_correct":         isCorrect,
			"state":              state,
			"attempts":           existing.Attempts,
			"attempt_count":      existing.AttemptCount,
			"last_interacted_at": at,
		}); err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *interactionAggregate) Reset(ctx context.Context, lessonID, userID uuid.UUID) (int64, error) {
	const op = "interaction.reset"
	if lessonID == uuid.Nil || userID == uuid.Nil {
		return 0, MapError(op, ValidationError("lesson_id and user_id are required"))
	}
	var deleted int64
	err := executeWrite(ctx, a.deps.Base, a.Contract(), op, func(dbc dbctx.Context) error {
		n, err := a.deps.Interactions.DeleteByLessonAndUser(dbc, lessonID, userID)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	return deleted, err
}
