package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AudioGenerationJob status constants
const (
	AudioJobStatusPending   = "pending"
	AudioJobStatusRunning   = "running"
	AudioJobStatusCompleted = "completed"
	AudioJobStatusFailed    = "failed"
)

// Content type tags discriminating which collection a job operates over.
// Polymorphic association: the job references the owning collection, never
// individual items.
const (
	ContentTypeDailyBrief  = "daily_brief"
	ContentTypeBriefingRun = "briefing_run"
)

// AudioGenerationJob tracks batch audio narration for one content collection
// at one voice. Status moves pending -> running -> completed/failed; the
// staleness sweep may move running back to pending when a worker dies.
type AudioGenerationJob struct {
	gorm.Model
	ContentType  string `gorm:"not null;index:idx_audio_jobs_content"`
	CollectionID uint   `gorm:"not null;index:idx_audio_jobs_content"`
	VoiceID      string `gorm:"not null"`
	Status       string `gorm:"not null;default:'pending';index"`

	TotalItems     int `gorm:"not null;default:0"`
	CompletedItems int `gorm:"not null;default:0"`
	FailedItems    int `gorm:"not null;default:0"`

	// ItemFailures records per-item failure reasons as
	// [{"item_id": 3, "error": "..."}]. Surfaced to the polling UI.
	ItemFailures datatypes.JSON `gorm:"type:jsonb"`

	ErrorSummary string `gorm:"column:error_summary;type:text"`

	// UpdatedAt (from gorm.Model) doubles as the heartbeat: refreshed on
	// every per-item progress write, keyed off for staleness detection.
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// Active reports whether the job still occupies the one-active-job-per-
// collection slot.
func (j *AudioGenerationJob) Active() bool {
	return j.Status == AudioJobStatusPending || j.Status == AudioJobStatusRunning
}

// ItemFailure is one entry of AudioGenerationJob.ItemFailures.
type ItemFailure struct {
	ItemID uint   `json:"item_id"`
	Error  string `json:"error"`
}
