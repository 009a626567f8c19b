package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/modules/learning/playflow"
	"github.com/yungbote/gonasi-backend/internal/modules/learning/progress"
	"github.com/yungbote/gonasi-backend/internal/observability"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// PlaySnapshot is what a learner sees of a lesson: the unlocked blocks in order,
// their latest interactions and the derived progress.
type PlaySnapshot struct {
	LessonID     uuid.UUID               `json:"lesson_id"`
	TotalBlocks  int                     `json:"total_blocks"`
	Blocks       []*learning.Block       `json:"blocks"`
	Interactions []*learning.Interaction `json:"interactions"`
	State        playflow.State          `json:"state"`
	// ClearActiveBlock is set once every block is complete.
	ClearActiveBlock bool `json:"clear_active_block"`
}

type WriteInteractionInput struct {
	LessonID   uuid.UUID
	LearnerID  uuid.UUID
	BlockID    uuid.UUID
	IsComplete bool
	IsCorrect  *bool
	State      json.RawMessage
}

type LessonPlayService interface {
	FetchBlocks(ctx context.Context, lessonID uuid.UUID) ([]*learning.Block, error)
	FetchInteractions(ctx context.Context, lessonID, learnerID uuid.UUID) ([]*learning.Interaction, error)
	Snapshot(ctx context.Context, lessonID, learnerID uuid.UUID) (*PlaySnapshot, error)
	WriteInteraction(ctx context.Context, in WriteInteractionInput) (*PlaySnapshot, error)
	ResetInteractions(ctx context.Context, lessonID, learnerID uuid.UUID) (*PlaySnapshot, error)
}

type lessonPlayService struct {
	log          *logger.Logger
	lessons      repos.LessonRepo
	blocks       repos.BlockRepo
	interactions repos.InteractionRepo
	agg          domainagg.InteractionAggregate
	notifier     LiveNotifier
	metrics      *observability.Metrics
}

func NewLessonPlayService(
	log *logger.Logger,
	lessons repos.LessonRepo,
	blocks repos.BlockRepo,
	interactions repos.InteractionRepo,
	agg domainagg.InteractionAggregate,
	notifier LiveNotifier,
	metrics *observability.Metrics,
) LessonPlayService {
	if notifier == nil {
		notifier = NewLiveNotifier(nil, log, metrics)
	}
	return &lessonPlayService{
		log:          log.With("service", "LessonPlayService"),
		lessons:      lessons,
		blocks:       blocks,
		interactions: interactions,
		agg:          agg,
		notifier:     notifier,
		metrics:      metrics,
	}
}

func (s *lessonPlayService) FetchBlocks(ctx context.Context, lessonID uuid.UUID) ([]*learning.Block, error) {
	const op = "lesson_play.fetch_blocks"
	if lessonID == uuid.Nil {
		return nil, domainagg.Validation(op, "lesson_id is required")
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.lessons.GetByID(dbc, lessonID); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	rows, err := s.blocks.ListByLesson(dbc, lessonID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

func (s *lessonPlayService) FetchInteractions(ctx context.Context, lessonID, learnerID uuid.UUID) ([]*learning.Interaction, error) {
	const op = "lesson_play.fetch_interactions"
	if lessonID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domainagg.Validation(op, "lesson_id and learner_id are required")
	}
	rows, err := s.interactions.ListByLessonAndUser(dbctx.Context{Ctx: ctx}, lessonID, learnerID)
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	return rows, nil
}

func (s *lessonPlayService) Snapshot(ctx context.Context, lessonID, learnerID uuid.UUID) (*PlaySnapshot, error) {
	ctx, span := observability.Tracer().Start(ctx, "lesson_play.snapshot")
	defer span.End()
	span.SetAttributes(attribute.String("lesson_id", lessonID.String()))

	blocks, interactions, err := s.load(ctx, lessonID, learnerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		return nil, err
	}
	ctrl := playflow.NewController(s.log, nil)
	if err := ctrl.Initialize(toProgressBlocks(blocks), toProgressInteractions(interactions)); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return buildSnapshot(lessonID, blocks, interactions, ctrl.State()), nil
}

func (s *lessonPlayService) WriteInteraction(ctx context.Context, in WriteInteractionInput) (*PlaySnapshot, error) {
	const op = "lesson_play.write_interaction"
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("lesson_id", in.LessonID.String()),
		attribute.String("block_id", in.BlockID.String()),
		attribute.Bool("is_complete", in.IsComplete),
	)
	if in.BlockID == uuid.Nil {
		return nil, domainagg.Validation(op, "block_id is required")
	}
	if len(in.State) > 0 && !json.Valid(in.State) {
		return nil, domainagg.Validation(op, "state must be valid JSON")
	}

	blocks, interactions, err := s.load(ctx, in.LessonID, in.LearnerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var written *learning.Interaction
	writer := playflow.WriterFunc(func(ctx context.Context, pi progress.Interaction) (progress.Interaction, error) {
		row, err := s.agg.Record(ctx, domainagg.RecordInteractionInput{
			UserID:     in.LearnerID,
			LessonID:   in.LessonID,
			BlockID:    pi.BlockID,
			IsComplete: pi.IsComplete,
			IsCorrect:  pi.IsCorrect,
			State:      in.State,
			At:         pi.Timestamp,
		})
		if err != nil {
			return progress.Interaction{}, err
		}
		written = row
		return toProgressInteraction(row), nil
	})

	ctrl := playflow.NewController(s.log, writer)
	if err := ctrl.Initialize(toProgressBlocks(blocks), toProgressInteractions(interactions)); err != nil {
		span.RecordError(err)
		return nil, err
	}
	state, err := ctrl.RecordInteraction(ctx, progress.Interaction{
		BlockID:    in.BlockID,
		IsComplete: in.IsComplete,
		IsCorrect:  in.IsCorrect,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write rejected")
		return nil, err
	}
	s.metrics.IncInteraction(in.IsComplete)

	interactions = replaceInteractionRow(interactions, written)
	snap := buildSnapshot(in.LessonID, blocks, interactions, state)
	s.notifier.LessonProgress(ctx, in.LearnerID, in.LessonID, state)
	return snap, nil
}

func (s *lessonPlayService) ResetInteractions(ctx context.Context, lessonID, learnerID uuid.UUID) (*PlaySnapshot, error) {
	const op = "lesson_play.reset_interactions"
	ctx, span := observability.Tracer().Start(ctx, op)
	defer span.End()
	if lessonID == uuid.Nil || learnerID == uuid.Nil {
		return nil, domainagg.Validation(op, "lesson_id and learner_id are required")
	}
	if _, err := s.lessons.GetByID(dbctx.Context{Ctx: ctx}, lessonID); err != nil {
		return nil, dataagg.MapError(op, err)
	}
	removed, err := s.agg.Reset(ctx, lessonID, learnerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("removed", removed))
	s.log.Debug("lesson progress reset", "lesson_id", lessonID.String(), "user_id", learnerID.String(), "removed", removed)

	snap, err := s.Snapshot(ctx, lessonID, learnerID)
	if err != nil {
		return nil, err
	}
	s.notifier.LessonProgress(ctx, learnerID, lessonID, snap.State)
	return snap, nil
}

// load fetches blocks and interactions concurrently.
func (s *lessonPlayService) load(ctx context.Context, lessonID, learnerID uuid.UUID) ([]*learning.Block, []*learning.Interaction, error) {
	var (
		blocks       []*learning.Block
		interactions []*learning.Interaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		blocks, err = s.FetchBlocks(gctx, lessonID)
		return err
	})
	g.Go(func() error {
		var err error
		interactions, err = s.FetchInteractions(gctx, lessonID, learnerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return blocks, interactions, nil
}

func buildSnapshot(lessonID uuid.UUID, blocks []*learning.Block, interactions []*learning.Interaction, state playflow.State) *PlaySnapshot {
	byID := make(map[uuid.UUID]*learning.Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID] = b
	}
	visible := make([]*learning.Block, 0, len(state.VisibleBlocks))
	shown := make(map[uuid.UUID]struct{}, len(state.VisibleBlocks))
	for _, vb := range state.VisibleBlocks {
		if b, ok := byID[vb.ID]; ok {
			visible = append(visible, b)
			shown[b.ID] = struct{}{}
		}
	}
	seen := make([]*learning.Interaction, 0, len(interactions))
	for _, in := range interactions {
		if _, ok := shown[in.BlockID]; ok {
			seen = append(seen, in)
		}
	}
	return &PlaySnapshot{
		LessonID:         lessonID,
		TotalBlocks:      len(blocks),
		Blocks:           visible,
		Interactions:     seen,
		State:            state,
		ClearActiveBlock: state.IsComplete,
	}
}

func replaceInteractionRow(rows []*learning.Interaction, row *learning.Interaction) []*learning.Interaction {
	if row == nil {
		return rows
	}
	out := make([]*learning.Interaction, 0, len(rows)+1)
	for _, r := range rows {
		if r.BlockID != row.BlockID {
			out = append(out, r)
		}
	}
	return append(out, row)
}

func toProgressBlocks(rows []*learning.Block) []progress.Block {
	out := make([]progress.Block, 0, len(rows))
	for _, b := range rows {
		if b == nil {
			continue
		}
		out = append(out, progress.Block{ID: b.ID, Position: b.Position, Weight: b.Weight})
	}
	return out
}

func toProgressInteraction(row *learning.Interaction) progress.Interaction {
	return progress.Interaction{
		BlockID:    row.BlockID,
		IsComplete: row.IsComplete,
		IsCorrect:  row.IsCorrect,
		Timestamp:  row.LastInteractedAt,
	}
}

func toProgressInteractions(rows []*learning.Interaction) []progress.Interaction {
	out := make([]progress.Interaction, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out = append(out, toProgressInteraction(r))
	}
	return out
}
