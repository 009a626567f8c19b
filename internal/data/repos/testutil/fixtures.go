package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/domain/org"
)

func SeedOrganization(tb testing.TB, ctx context.Context, tx *gorm.DB) *org.Organization {
	tb.Helper()
	o := &org.Organization{
		ID:     uuid.New(),
		Name:   "org",
		Handle: "org-" + uuid.NewString()[:8],
	}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed organization: %v", err)
	}
	return o
}

func SeedMember(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, userID uuid.UUID, role org.Role) *org.OrganizationMember {
	tb.Helper()
	m := &org.OrganizationMember{
		ID:             uuid.New(),
		OrganizationID: orgID,
		UserID:         userID,
		Role:           role,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed member: %v", err)
	}
	return m
}

func SeedCourse(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID uuid.UUID) *learning.Course {
	tb.Helper()
	c := &learning.Course{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Title:          "course",
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return c
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID) *learning.Lesson {
	tb.Helper()
	l := &learning.Lesson{
		ID:       uuid.New(),
		CourseID: courseID,
		Title:    "lesson",
		Position: 1,
	}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedBlock(tb testing.TB, ctx context.Context, tx *gorm.DB, lessonID uuid.UUID, position int, weight float64) *learning.Block {
	tb.Helper()
	b := &learning.Block{
		ID:         uuid.New(),
		LessonID:   lessonID,
		Position:   position,
		Weight:     weight,
		PluginType: learning.PluginRichText,
		Content:    datatypes.JSON([]byte(`{"text":"block"}`)),
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed block: %v", err)
	}
	return b
}

func SeedLiveSession(tb testing.TB, ctx context.Context, tx *gorm.DB, orgID, createdBy uuid.UUID, status live.Status) *live.Session {
	tb.Helper()
	s := &live.Session{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "session",
		Status:         status,
		ControlMode:    live.ControlHostDriven,
		ChatMode:       live.ChatOpen,
		PlayState:      live.PlayLobby,
		CreatedBy:      createdBy,
	}
	if status == live.StatusPaused {
		r := live.PauseHostHold
		s.PauseReason = &r
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed live session: %v", err)
	}
	return s
}

func SeedLiveBlock(tb testing.TB, ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, position int, status live.BlockStatus) *live.SessionBlock {
	tb.Helper()
	b := &live.SessionBlock{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Position:   position,
		PluginType: string(learning.PluginMultipleChoice),
		Content:    datatypes.JSON([]byte(`{"question":"?"}`)),
		TimeLimitS: 20,
		Status:     status,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed live block: %v", err)
	}
	return b
}
