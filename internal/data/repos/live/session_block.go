package live

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type SessionBlockRepo interface {
	Create(dbc dbctx.Context, row *domain.SessionBlock) error
	GetByID(dbc dbctx.Context, sessionID, blockID uuid.UUID) (*domain.SessionBlock, error)
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*domain.SessionBlock, error)
	ListByStatus(dbc dbctx.Context, sessionID uuid.UUID, statuses []domain.BlockStatus) ([]*domain.SessionBlock, error)
	MaxPosition(dbc dbctx.Context, sessionID uuid.UUID) (int, error)
}

type sessionBlockRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionBlockRepo(db *gorm.DB, baseLog *logger.Logger) SessionBlockRepo {
	return &sessionBlockRepo{db: db, log: baseLog.With("repo", "LiveSessionBlockRepo")}
}

func (r *sessionBlockRepo) Create(dbc dbctx.Context, row *domain.SessionBlock) error {
	if row == nil {
		return fmt.Errorf("missing session block")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *sessionBlockRepo) GetByID(dbc dbctx.Context, sessionID, blockID uuid.UUID) (*domain.SessionBlock, error) {
	if sessionID == uuid.Nil || blockID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id or block_id")
	}
	var out domain.SessionBlock
	if err := dbc.DB(r.db).
		Where("id = ? AND session_id = ?", blockID, sessionID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionBlockRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*domain.SessionBlock, error) {
	return r.ListByStatus(dbc, sessionID, nil)
}

// ListByStatus returns blocks in position order; an empty status list means all.
func (r *sessionBlockRepo) ListByStatus(dbc dbctx.Context, sessionID uuid.UUID, statuses []domain.BlockStatus) ([]*domain.SessionBlock, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	q := dbc.DB(r.db).Where("session_id = ?", sessionID)
	if len(statuses) > 0 {
		raw := make([]string, 0, len(statuses))
		for _, s := range statuses {
			raw = append(raw, string(s))
		}
		q = q.Where("status IN ?", raw)
	}
	var out []*domain.SessionBlock
	if err := q.Order("position ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionBlockRepo) MaxPosition(dbc dbctx.Context, sessionID uuid.UUID) (int, error) {
	var max int
	if err := dbc.DB(r.db).
		Model(&domain.SessionBlock{}).
		Where("session_id = ?", sessionID).
		Select("COALESCE(MAX(position), 0)").
		Row().
		Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}
