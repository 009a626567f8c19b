package org

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/org"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type OrganizationRepo interface {
	Create(dbc dbctx.Context, row *domain.Organization) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Organization, error)
}

type organizationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return &organizationRepo{db: db, log: baseLog.With("repo", "OrganizationRepo")}
}

func (r *organizationRepo) Create(dbc dbctx.Context, row *domain.Organization) error {
	if row == nil {
		return fmt.Errorf("missing organization")
	}
	return dbc.DB(r.db).Create(row).Error
}

func (r *organizationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Organization, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing organization_id")
	}
	var out domain.Organization
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
