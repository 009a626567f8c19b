package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/data/repos/learning"
	"github.com/yungbote/gonasi-backend/internal/data/repos/live"
	"github.com/yungbote/gonasi-backend/internal/data/repos/org"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type OrganizationRepo = org.OrganizationRepo
type MemberRepo = org.MemberRepo

type CourseRepo = learning.CourseRepo
type LessonRepo = learning.LessonRepo
type BlockRepo = learning.BlockRepo
type InteractionRepo = learning.InteractionRepo

type LiveSessionRepo = live.SessionRepo
type LiveSessionBlockRepo = live.SessionBlockRepo
type LiveSessionTransitionRepo = live.TransitionRepo

func NewOrganizationRepo(db *gorm.DB, baseLog *logger.Logger) OrganizationRepo {
	return org.NewOrganizationRepo(db, baseLog)
}
func NewMemberRepo(db *gorm.DB, baseLog *logger.Logger) MemberRepo {
	return org.NewMemberRepo(db, baseLog)
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return learning.NewCourseRepo(db, baseLog)
}
func NewLessonRepo(db *gorm.DB, baseLog *logger.Logger) LessonRepo {
	return learning.NewLessonRepo(db, baseLog)
}
func NewBlockRepo(db *gorm.DB, baseLog *logger.Logger) BlockRepo {
	return learning.NewBlockRepo(db, baseLog)
}
func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return learning.NewInteractionRepo(db, baseLog)
}

func NewLiveSessionRepo(db *gorm.DB, baseLog *logger.Logger) LiveSessionRepo {
	return live.NewSessionRepo(db, baseLog)
}
func NewLiveSessionBlockRepo(db *gorm.DB, baseLog *logger.Logger) LiveSessionBlockRepo {
	return live.NewSessionBlockRepo(db, baseLog)
}
func NewLiveSessionTransitionRepo(db *gorm.DB, baseLog *logger.Logger) LiveSessionTransitionRepo {
	return live.NewTransitionRepo(db, baseLog)
}
