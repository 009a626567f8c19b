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

type BlockRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Block) ([]*domain.Block, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Block, error)
	ListByLesson(dbc dbctx.Context, lessonID uuid.UUID) ([]*domain.Block, error)
	MaxPosition(dbc dbctx.Context, lessonID uuid.UUID) (int, error)
	SetPositions(dbc dbctx.Context, lessonID uuid.UUID, positions map[uuid.UUID]int) error
	FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error
}

type blockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return &blockRepo{db: db, log: baseLog.With("repo", "BlockRepo")}
}

func (r *blockRepo) Create(dbc dbctx.Context, rows []*domain.Block) ([]*domain.Block, error) {
	if len(rows) == 0 {
		return []*domain.Block{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *blockRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Block, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing block_id")
	}
	var out domain.Block
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByLesson returns the lesson's blocks ordered by position.
func (r *blockRepo) ListByLesson(dbc dbctx.Context, lessonID uuid.UUID) ([]*domain.Block, error) {
	if lessonID == uuid.Nil {
		return nil, fmt.Errorf("missing lesson_id")
	}
	var out []*domain.Block
	if err := dbc.DB(r.db).
		Where("lesson_id = ?", lessonID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MaxPosition returns the highest position in the lesson, or 0 when it has no blocks.
func (r *blockRepo) MaxPosition(dbc dbctx.Context, lessonID uuid.UUID) (int, error) {
	var max int
	if err := dbc.DB(r.db).
		Model(&domain.Block{}).
		Where("lesson_id = ?", lessonID).
		Select("COALESCE(MAX(position), 0)").
		Row().
		Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// SetPositions rewrites positions in two phases: every row is first parked on a
// negative slot so the (lesson_id, position) unique index never sees a collision.
// Run it inside a transaction.
func (r *blockRepo) SetPositions(dbc dbctx.Context, lessonID uuid.UUID, positions map[uuid.UUID]int) error {
	if len(positions) == 0 {
		return nil
	}
	if dbc.Tx == nil {
		return fmt.Errorf("SetPositions requires dbc.Tx")
	}
	now := time.Now().UTC()
	i := 0
	for id := range positions {
		i++
		if err := dbc.DB(r.db).
			Model(&domain.Block{}).
			Where("id = ? AND lesson_id = ?", id, lessonID).
			Updates(map[string]interface{}{"position": -i, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	for id, pos := range positions {
		res := dbc.DB(r.db).
			Model(&domain.Block{}).
			Where("id = ? AND lesson_id = ?", id, lessonID).
			Updates(map[string]interface{}{"position": pos, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("block %s not in lesson %s", id, lessonID)
		}
	}
	return nil
}

func (r *blockRepo) FullDeleteByIDs(dbc dbctx.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return dbc.DB(r.db).
		Where("id IN ?", ids).
		Delete(&domain.Block{}).Error
}
