package learning

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type LessonRepo interface {
	Create(dbc dbctx.Context, rows []*domain.Lesson) ([]*domain.Lesson, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.Lesson, error)
}

type lessonRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return &lessonRepo{db: db, log: baseLog.With("repo", "LessonRepo")}
}

func (r *lessonRepo) Create(dbc dbctx.Context, rows []*domain.Lesson) ([]*domain.Lesson, error) {
	if len(rows) == 0 {
		return []*domain.Lesson{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *lessonRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domain.Lesson, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing lesson_id")
	}
	var out domain.Lesson
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *lessonRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*domain.Lesson, error) {
	if courseID == uuid.Nil {
		return nil, fmt.Errorf("missing course_id")
	}
	var out []*domain.Lesson
	if err := dbc.DB(r.db).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
