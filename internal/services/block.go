package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type CreateBlockInput struct {
	LessonID   uuid.UUID
	PluginType learning.PluginType
	Weight     float64
	Content    json.RawMessage
}

// BlockService is the authoring side of lesson blocks. Every write requires edit
// rights on the lesson's organization.
type BlockService interface {
	ListBlocks(ctx context.Context, lessonID uuid.UUID) ([]*learning.Block, error)
	CreateBlock(ctx context.Context, actorID uuid.UUID, in CreateBlockInput) (*learning.Block, error)
	DeleteBlock(ctx context.Context, actorID, lessonID, blockID uuid.UUID) error
	ReorderBlocks(ctx context.Context, actorID, lessonID uuid.UUID, orderedIDs []uuid.UUID) ([]*learning.Block, error)
}

type blockService struct {
	log   *logger.Logger
	play  LessonPlayService
	authz AuthzService
	agg   domainagg.LessonBlocksAggregate
}

func NewBlockService(log *logger.Logger, play LessonPlayService, authz AuthzService, agg domainagg.LessonBlocksAggregate) BlockService {
	return &blockService{
		log:   log.With("service", "BlockService"),
		play:  play,
		authz: authz,
		agg:   agg,
	}
}

func (s *blockService) ListBlocks(ctx context.Context, lessonID uuid.UUID) ([]*learning.Block, error) {
	return s.play.FetchBlocks(ctx, lessonID)
}

func (s *blockService) CreateBlock(ctx context.Context, actorID uuid.UUID, in CreateBlockInput) (*learning.Block, error) {
	const op = "block.create"
	if len(in.Content) > 0 && !json.Valid(in.Content) {
		return nil, domainagg.Validation(op, "content must be valid JSON")
	}
	ok, err := s.authz.CanEditLesson(ctx, actorID, in.LessonID)
	if err := requireEdit(op, ok, err); err != nil {
		return nil, err
	}
	row, err := s.agg.Append(ctx, domainagg.AppendBlockInput{
		LessonID:   in.LessonID,
		PluginType: in.PluginType,
		Weight:     in.Weight,
		Content:    in.Content,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("block created", "lesson_id", in.LessonID.String(), "block_id", row.ID.String(), "position", row.Position)
	return row, nil
}

func (s *blockService) DeleteBlock(ctx context.Context, actorID, lessonID, blockID uuid.UUID) error {
	const op = "block.delete"
	ok, err := s.authz.CanEditLesson(ctx, actorID, lessonID)
	if err := requireEdit(op, ok, err); err != nil {
		return err
	}
	if err := s.agg.Delete(ctx, lessonID, blockID); err != nil {
		return err
	}
	s.log.Info("block deleted", "lesson_id", lessonID.String(), "block_id", blockID.String())
	return nil
}

func (s *blockService) ReorderBlocks(ctx context.Context, actorID, lessonID uuid.UUID, orderedIDs []uuid.UUID) ([]*learning.Block, error) {
	const op = "block.reorder"
	ok, err := s.authz.CanEditLesson(ctx, actorID, lessonID)
	if err := requireEdit(op, ok, err); err != nil {
		return nil, err
	}
	return s.agg.Reorder(ctx, lessonID, orderedIDs)
}
