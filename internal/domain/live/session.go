package live

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session is a real-time, host-moderated activity owned by an organization.
type Session struct {
	ID             uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name           string       `gorm:"column:name;not null" json:"name"`
	Status         Status       `gorm:"column:status;type:text;not null;index" json:"status"`
	ControlMode    ControlMode  `gorm:"column:control_mode;type:text;not null" json:"control_mode"`
	ChatMode       ChatMode     `gorm:"column:chat_mode;type:text;not null" json:"chat_mode"`
	PlayState      PlayState    `gorm:"column:play_state;type:text;not null" json:"play_state"`
	PauseReason    *PauseReason `gorm:"column:pause_reason;type:text" json:"pause_reason"`
	ScheduledAt    *time.Time   `gorm:"column:scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt      *time.Time   `gorm:"column:started_at" json:"started_at,omitempty"`
	PausedAt       *time.Time   `gorm:"column:paused_at" json:"paused_at,omitempty"`
	EndedAt        *time.Time   `gorm:"column:ended_at" json:"ended_at,omitempty"`
	// Version increases on every committed state change.
	Version   int            `gorm:"column:version;not null;default:0" json:"version"`
	CreatedBy uuid.UUID      `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "live_session" }

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SessionBlock is an ordered activity within a live session.
type SessionBlock struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_live_block_position,unique,priority:1" json:"session_id"`
	Position    int            `gorm:"column:position;not null;index:idx_live_block_position,unique,priority:2" json:"position"`
	PluginType  string         `gorm:"column:plugin_type;type:text;not null" json:"plugin_type"`
	Content     datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	TimeLimitS  int            `gorm:"column:time_limit_seconds;not null;default:0" json:"time_limit_seconds"`
	Status      BlockStatus    `gorm:"column:status;type:text;not null" json:"status"`
	ActivatedAt *time.Time     `gorm:"column:activated_at" json:"activated_at,omitempty"`
	ClosedAt    *time.Time     `gorm:"column:closed_at" json:"closed_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (SessionBlock) TableName() string { return "live_session_block" }

func (b *SessionBlock) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// SessionTransition is an append-only log of committed session changes.
type SessionTransition struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	ActorID    *uuid.UUID     `gorm:"type:uuid" json:"actor_id,omitempty"`
	Event      string         `gorm:"column:event;type:text;not null;index" json:"event"`
	Field      string         `gorm:"column:field;type:text;not null" json:"field"`
	FromState  string         `gorm:"column:from_state;type:text" json:"from_state,omitempty"`
	ToState    string         `gorm:"column:to_state;type:text" json:"to_state,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	OccurredAt time.Time      `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
}

func (SessionTransition) TableName() string { return "live_session_transition" }

func (t *SessionTransition) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
