package live

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, row *domain.Session) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Session, error)
	ListByOrganization(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*domain.Session, error)
	ListActiveTimerDriven(dbc dbctx.Context) ([]*domain.Session, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "LiveSessionRepo")}
}

func (r *sessionRepo) Create(dbc dbctx.Context, row *domain.Session) error {
	if row == nil {
		return fmt.Errorf("missing session")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Session, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing session_id")
	}
	var out domain.Session
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) ListByOrganization(dbc dbctx.Context, orgID uuid.UUID, limit int) ([]*domain.Session, error) {
	if orgID == uuid.Nil {
		return nil, fmt.Errorf("missing organization_id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.Session
	if err := dbc.DB(r.db).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveTimerDriven returns active sessions whose play state advances on a timer.
func (r *sessionRepo) ListActiveTimerDriven(dbc dbctx.Context) ([]*domain.Session, error) {
	var out []*domain.Session
	if err := dbc.DB(r.db).
		Where("status = ? AND control_mode IN ?", string(domain.StatusActive),
			[]string{string(domain.ControlAutoplay), string(domain.ControlHybrid)}).
		Order("updated_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
