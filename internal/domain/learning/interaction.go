package learning

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Interaction is the latest recorded state of one learner on one block.
// Retries update the row; only Attempts grows.
type Interaction struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID      `gorm:"type:uuid;not null;index:idx_interaction_user_block,unique,priority:1;index:idx_interaction_user_lesson,priority:1" json:"user_id"`
	LessonID         uuid.UUID      `gorm:"type:uuid;not null;index:idx_interaction_user_lesson,priority:2" json:"lesson_id"`
	BlockID          uuid.UUID      `gorm:"type:uuid;not null;index:idx_interaction_user_block,unique,priority:2" json:"block_id"`
	Block            *Block         `gorm:"constraint:OnDelete:CASCADE;foreignKey:BlockID;references:ID" json:"-"`
	IsComplete       bool           `gorm:"column:is_complete;not null;default:false" json:"is_complete"`
	IsCorrect        *bool          `gorm:"column:is_correct" json:"is_correct,omitempty"`
	State            datatypes.JSON `gorm:"column:state;type:jsonb" json:"state,omitempty"`
	Attempts         datatypes.JSON `gorm:"column:attempts;type:jsonb" json:"attempts,omitempty"`
	AttemptCount     int            `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	LastInteractedAt time.Time      `gorm:"column:last_interacted_at;not null" json:"last_interacted_at"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Interaction) TableName() string { return "block_interaction" }

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Attempt is one entry of the embedded attempts history.
type Attempt struct {
	IsComplete bool            `json:"is_complete"`
	IsCorrect  *bool           `json:"is_correct,omitempty"`
	State      json.RawMessage `json:"state,omitempty"`
	At         time.Time       `json:"at"`
}

// DecodeAttempts returns the attempts list; malformed or empty payloads yield nil.
func (i *Interaction) DecodeAttempts() []Attempt {
	if i == nil || len(i.Attempts) == 0 {
		return nil
	}
	var out []Attempt
	if err := json.Unmarshal(i.Attempts, &out); err != nil {
		return nil
	}
	return out
}

// AppendAttempt appends a to the attempts history and bumps AttemptCount.
func (i *Interaction) AppendAttempt(a Attempt) error {
	attempts := append(i.DecodeAttempts(), a)
	raw, err := json.Marshal(attempts)
	if err != nil {
		return err
	}
	i.Attempts = datatypes.JSON(raw)
	i.AttemptCount = len(attempts)
	return nil
}
