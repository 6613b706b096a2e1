package models

import (
	"time"

	"gorm.io/gorm"
)

// BriefingRun is one generation run of the paid briefing digest. Each run
// owns an ordered set of section items.
type BriefingRun struct {
	gorm.Model
	RunDate     time.Time `gorm:"not null;index"`
	Edition     string    `gorm:"not null;default:'morning'"`
	Published   bool      `gorm:"not null;default:false"`
	PublishedAt *time.Time

	Items []BriefingRunItem `gorm:"constraint:OnDelete:CASCADE;"`
}

// BriefingRunItem is a single section of a paid briefing. Content holds the
// full markdown body; that body (not the title) is the narration source.
type BriefingRunItem struct {
	gorm.Model
	BriefingRunID uint   `gorm:"not null;index"`
	Title         string `gorm:"not null"`
	Content       string `gorm:"type:text;not null;default:''"`
	Position      int    `gorm:"not null;default:0"`

	// Audio fields are set and cleared together, same contract as BriefItem.
	AudioURL         *string
	AudioVoiceID     *string
	AudioGeneratedAt *time.Time
}

// HasCurrentAudio reports whether the item already has audio generated
// with the given voice.
func (i *BriefingRunItem) HasCurrentAudio(voiceID string) bool {
	return i.AudioURL != nil && i.AudioVoiceID != nil && *i.AudioVoiceID == voiceID
}
