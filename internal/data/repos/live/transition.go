package live

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// TransitionRepo is append-only.
type TransitionRepo interface {
	Create(dbc dbctx.Context, rows []*domain.SessionTransition) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*domain.SessionTransition, error)
}

type transitionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransitionRepo(db *gorm.DB, baseLog *logger.Logger) TransitionRepo {
	return &transitionRepo{db: db, log: baseLog.With("repo", "LiveSessionTransitionRepo")}
}

func (r *transitionRepo) Create(dbc dbctx.Context, rows []*domain.SessionTransition) error {
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *transitionRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*domain.SessionTransition, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*domain.SessionTransition
	if err := dbc.DB(r.db).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC, created_at ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
