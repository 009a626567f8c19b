package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type InteractionRepo interface {
	Create(dbc dbctx.Context, row *domain.Interaction) error
	GetByUserAndBlock(dbc dbctx.Context, userID, blockID uuid.UUID) (*domain.Interaction, error)
	ListByLessonAndUser(dbc dbctx.Context, lessonID, userID uuid.UUID) ([]*domain.Interaction, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteByLessonAndUser(dbc dbctx.Context, lessonID, userID uuid.UUID) (int64, error)
	DeleteByBlockIDs(dbc dbctx.Context, blockIDs []uuid.UUID) error
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (r *interactionRepo) Create(dbc dbctx.Context, row *domain.Interaction) error {
	if row == nil {
		return fmt.Errorf("missing interaction")
	}
	return dbc.DB(r.db).Create(row).Error
}

// GetByUserAndBlock returns nil without error when the learner has not touched the block.
func (r *interactionRepo) GetByUserAndBlock(dbc dbctx.Context, userID, blockID uuid.UUID) (*domain.Interaction, error) {
	if userID == uuid.Nil || blockID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id or block_id")
	}
	var out []*domain.Interaction
	if err := dbc.DB(r.db).
		Where("user_id = ? AND block_id = ?", userID, blockID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *interactionRepo) ListByLessonAndUser(dbc dbctx.Context, lessonID, userID uuid.UUID) ([]*domain.Interaction, error) {
	if lessonID == uuid.Nil || userID == uuid.Nil {
		return nil, fmt.Errorf("missing lesson_id or user_id")
	}
	var out []*domain.Interaction
	if err := dbc.DB(r.db).
		Where("lesson_id = ? AND user_id = ?", lessonID, userID).
		Order("last_interacted_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *interactionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now().UTC()
	return dbc.DB(r.db).
		Model(&domain.Interaction{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *interactionRepo) DeleteByLessonAndUser(dbc dbctx.Context, lessonID, userID uuid.UUID) (int64, error) {
	if lessonID == uuid.Nil || userID == uuid.Nil {
		return 0, fmt.Errorf("missing lesson_id or user_id")
	}
	res := dbc.DB(r.db).
		Where("lesson_id = ? AND user_id = ?", lessonID, userID).
		Delete(&domain.Interaction{})
	return res.RowsAffected, res.Error
}

func (r *interactionRepo) DeleteByBlockIDs(dbc dbctx.Context, blockIDs []uuid.UUID) error {
	if len(blockIDs) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("block_id IN ?", blockIDs).
		Delete(&domain.Interaction{}).Error
}
