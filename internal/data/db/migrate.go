package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/gonasi-backend/internal/domain/learning"
	"github.com/yungbote/gonasi-backend/internal/domain/live"
	"github.com/yungbote/gonasi-backend/internal/domain/org"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Organizations + staff
		&org.Organization{},
		&org.OrganizationMember{},

		// Lessons + progressive reveal
		&learning.Course{},
		&learning.Lesson{},
		&learning.Block{},
		&learning.Interaction{},

		// Live sessions
		&live.Session{},
		&live.SessionBlock{},
		&live.SessionTransition{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
