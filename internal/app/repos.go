package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/data/repos"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

type Repos struct {
	Organization          repos.OrganizationRepo
	Member                repos.MemberRepo
	Course                repos.CourseRepo
	Lesson                repos.LessonRepo
	Block                 repos.BlockRepo
	Interaction           repos.InteractionRepo
	LiveSession           repos.LiveSessionRepo
	LiveSessionBlock      repos.LiveSessionBlockRepo
	LiveSessionTransition repos.LiveSessionTransitionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Organization:          repos.NewOrganizationRepo(db, log),
		Member:                repos.NewMemberRepo(db, log),
		Course:                repos.NewCourseRepo(db, log),
		Lesson:                repos.NewLessonRepo(db, log),
		Block:                 repos.NewBlockRepo(db, log),
		Interaction:           repos.NewInteractionRepo(db, log),
		LiveSession:           repos.NewLiveSessionRepo(db, log),
		LiveSessionBlock:      repos.NewLiveSessionBlockRepo(db, log),
		LiveSessionTransition: repos.NewLiveSessionTransitionRepo(db, log),
	}
}
