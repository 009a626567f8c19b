package services

import (
	"context"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/gonasi-backend/internal/data/aggregates"
	"github.com/yungbote/gonasi-backend/internal/data/repos"
	domainagg "github.com/yungbote/gonasi-backend/internal/domain/aggregates"
	"github.com/yungbote/gonasi-backend/internal/platform/dbctx"
	"github.com/yungbote/gonasi-backend/internal/platform/logger"
)

// AuthzService answers whether a user may author content of an organization.
// Editing requires an owner, admin or editor membership.
type AuthzService interface {
	CanEditOrganization(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
	CanEditCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	CanEditLesson(ctx context.Context, userID, lessonID uuid.UUID) (bool, error)
	CanEditSession(ctx context.Context, userID, sessionID uuid.UUID) (bool, error)
}

type authzService struct {
	log      *logger.Logger
	members  repos.MemberRepo
	courses  repos.CourseRepo
	lessons  repos.LessonRepo
	sessions repos.LiveSessionRepo
}

func NewAuthzService(
	log *logger.Logger,
	members repos.MemberRepo,
	courses repos.CourseRepo,
	lessons repos.LessonRepo,
	sessions repos.LiveSessionRepo,
) AuthzService {
	return &authzService{
		log:      log.With("service", "AuthzService"),
		members:  members,
		courses:  courses,
		lessons:  lessons,
		sessions: sessions,
	}
}

func (s *authzService) CanEditOrganization(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	if userID == uuid.Nil || orgID == uuid.Nil {
		return false, nil
	}
	role, err := s.members.RoleOf(dbctx.Context{Ctx: ctx}, orgID, userID)
	if err != nil {
		return false, dataagg.MapError("authz.role_of", err)
	}
	return role.CanEdit(), nil
}

func (s *authzService) CanEditCourse(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	course, err := s.courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return false, dataagg.MapError("authz.course", err)
	}
	return s.CanEditOrganization(ctx, userID, course.OrganizationID)
}

func (s *authzService) CanEditLesson(ctx context.Context, userID, lessonID uuid.UUID) (bool, error) {
	lesson, err := s.lessons.GetByID(dbctx.Context{Ctx: ctx}, lessonID)
	if err != nil {
		return false, dataagg.MapError("authz.lesson", err)
	}
	return s.CanEditCourse(ctx, userID, lesson.CourseID)
}

func (s *authzService) CanEditSession(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	session, err := s.sessions.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return false, dataagg.MapError("authz.live_session", err)
	}
	return s.CanEditOrganization(ctx, userID, session.OrganizationID)
}

// requireEdit turns a negative or failed check into a typed error.
func requireEdit(op string, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return domainagg.Forbidden(op, "not allowed to edit this resource")
	}
	return nil
}
