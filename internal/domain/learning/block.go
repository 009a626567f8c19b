package learning

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PluginType discriminates the content kind carried by a block.
type PluginType string

const (
	PluginTrueFalse        PluginType = "true_false"
	PluginMultipleChoice   PluginType = "multiple_choice_single"
	PluginMultipleSelect   PluginType = "multiple_choice_multiple"
	PluginRichText         PluginType = "rich_text"
	PluginTapToReveal      PluginType = "tap_to_reveal"
	PluginStepByStepReveal PluginType = "step_by_step_reveal"
	PluginVideoPlayer      PluginType = "video_player"
	PluginAudioPlayer      PluginType = "audio_player"
	PluginImageFocus       PluginType = "image_focus"
)

var pluginTypes = []PluginType{
	PluginTrueFalse,
	PluginMultipleChoice,
	PluginMultipleSelect,
	PluginRichText,
	PluginTapToReveal,
	PluginStepByStepReveal,
	PluginVideoPlayer,
	PluginAudioPlayer,
	PluginImageFocus,
}

func PluginTypes() []PluginType {
	out := make([]PluginType, len(pluginTypes))
	copy(out, pluginTypes)
	return out
}

func (p PluginType) Valid() bool {
	for _, v := range pluginTypes {
		if p == v {
			return true
		}
	}
	return false
}

// Graded reports whether interactions with this kind carry an is_correct verdict.
func (p PluginType) Graded() bool {
	switch p {
	case PluginTrueFalse, PluginMultipleChoice, PluginMultipleSelect:
		return true
	case PluginRichText, PluginTapToReveal, PluginStepByStepReveal, PluginVideoPlayer, PluginAudioPlayer, PluginImageFocus:
		return false
	default:
		return false
	}
}

func ParsePluginType(raw string) (PluginType, error) {
	p := PluginType(strings.TrimSpace(strings.ToLower(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown plugin type %q", raw)
	}
	return p, nil
}

// Block is one positioned unit of lesson content.
type Block struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID   uuid.UUID      `gorm:"type:uuid;not null;index:idx_block_lesson_position,unique,priority:1" json:"lesson_id"`
	Lesson     *Lesson        `gorm:"constraint:OnDelete:CASCADE;foreignKey:LessonID;references:ID" json:"-"`
	Position   int            `gorm:"column:position;not null;index:idx_block_lesson_position,unique,priority:2" json:"position"`
	Weight     float64        `gorm:"column:weight;not null;default:1" json:"weight"`
	PluginType PluginType     `gorm:"column:plugin_type;type:text;not null" json:"plugin_type"`
	Content    datatypes.JSON `gorm:"column:content;type:jsonb" json:"content"`
	CreatedAt  time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (Block) TableName() string { return "lesson_block" }

func (b *Block) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
