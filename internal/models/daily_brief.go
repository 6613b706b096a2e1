package models

import (
	"time"

	"gorm.io/gorm"
)

// DailyBrief is one day's free brief: an ordered set of story items
// published together.
type DailyBrief struct {
	gorm.Model
	BriefDate   time.Time `gorm:"not null;uniqueIndex:idx_daily_briefs_date,where:deleted_at IS NULL"`
	Title       string    `gorm:"not null;default:''"`
	Published   bool      `gorm:"not null;default:false"`
	PublishedAt *time.Time

	Items []BriefItem `gorm:"constraint:OnDelete:CASCADE;"`
}

// BriefItem is a single story in a daily brief. Narrative is the short
// spoken-word text used for audio narration.
type BriefItem struct {
	gorm.Model
	DailyBriefID uint   `gorm:"not null;index"`
	Headline     string `gorm:"not null"`
	Narrative    string `gorm:"type:text;not null;default:''"`
	SourceURL    string
	Position     int `gorm:"not null;default:0"`

	// Audio fields are set and cleared together: AudioURL is non-null
	// exactly when AudioGeneratedAt is non-null.
	AudioURL         *string
	AudioVoiceID     *string
	AudioGeneratedAt *time.Time
}

// HasCurrentAudio reports whether the item already has audio generated
// with the given voice.
func (i *BriefItem) HasCurrentAudio(voiceID string) bool {
	return i.AudioURL != nil && i.AudioVoiceID != nil && *i.AudioVoiceID == voiceID
}
