package org

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/yungbote/gonasi-backend/internal/domain/org"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type MemberRepo interface {
	Upsert(dbc dbctx.Context, row *domain.OrganizationMember) error
	// RoleOf returns the user's role in the organization, or "" when not a member.
	RoleOf(dbc dbctx.Context, orgID, userID uuid.UUID) (domain.Role, error)
}

type memberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return &memberRepo{db: db, log: baseLog.With("repo", "OrganizationMemberRepo")}
}

func (r *memberRepo) Upsert(dbc dbctx.Context, row *domain.OrganizationMember) error {
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(row).Error
}

func (r *memberRepo) RoleOf(dbc dbctx.Context, orgID, userID uuid.UUID) (domain.Role, error) {
	if orgID == uuid.Nil || userID == uuid.Nil {
		return "", nil
	}
	var rows []domain.OrganizationMember
	if err := dbc.DB(r.db).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Role, nil
}
