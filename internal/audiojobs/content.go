package audiojobs

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/societyspeaks/narrator/internal/models"
	"gorm.io/gorm"
)

// ContentItem is the capability set the job processor needs from an item.
// The processor never sees concrete item types; daily brief items and
// briefing run items each get a thin adapter.
type ContentItem interface {
	ItemID() uint
	// SynthesisText is the narration input. Which field it comes from is
	// the one thing that differs between variants.
	SynthesisText() string
	// HasCurrentAudio reports whether audio already exists for voiceID.
	// Items for which this is true are skipped; this predicate is what
	// makes processing resumable and idempotent.
	HasCurrentAudio(voiceID string) bool
	// SetAudioResult records url/voice/timestamp together on the item row.
	SetAudioResult(db *gorm.DB, url, voiceID string, generatedAt time.Time) error
}

// ContentSource lists the items of one collection type in creation order.
type ContentSource interface {
	Items(db *gorm.DB, collectionID uint) ([]ContentItem, error)
	Exists(db *gorm.DB, collectionID uint) (bool, error)
}

// contentSources maps content type tags to their sources. Adding a third
// content type means one new adapter and one new entry here.
var contentSources = map[string]ContentSource{
	models.ContentTypeDailyBrief:  dailyBriefSource{},
	models.ContentTypeBriefingRun: briefingRunSource{},
}

func sourceFor(contentType string) (ContentSource, error) {
	src, ok := contentSources[contentType]
	if !ok {
		return nil, fmt.Errorf("unknown content type %q", contentType)
	}
	return src, nil
}

// ---- daily brief adapter ----

type dailyBriefSource struct{}

func (dailyBriefSource) Items(db *gorm.DB, collectionID uint) ([]ContentItem, error) {
	var rows []models.BriefItem
	if err := db.Where("daily_brief_id = ?", collectionID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list brief items: %w", err)
	}
	items := make([]ContentItem, len(rows))
	for i := range rows {
		items[i] = &briefItem{row: &rows[i]}
	}
	return items, nil
}

func (dailyBriefSource) Exists(db *gorm.DB, collectionID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.DailyBrief{}).Where("id = ?", collectionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up daily brief: %w", err)
	}
	return count > 0, nil
}

type briefItem struct {
	row *models.BriefItem
}

func (b *briefItem) ItemID() uint { return b.row.ID }

// SynthesisText narrates the short spoken-word field written for audio.
func (b *briefItem) SynthesisText() string {
	return strings.TrimSpace(b.row.Narrative)
}

func (b *briefItem) HasCurrentAudio(voiceID string) bool {
	return b.row.HasCurrentAudio(voiceID)
}

func (b *briefItem) SetAudioResult(db *gorm.DB, url, voiceID string, generatedAt time.Time) error {
	if err := db.Model(b.row).Updates(map[string]interface{}{
		"audio_url":          url,
		"audio_voice_id":     voiceID,
		"audio_generated_at": generatedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update brief item %d: %w", b.row.ID, err)
	}
	return nil
}

// ---- briefing run adapter ----

type briefingRunSource struct{}

func (briefingRunSource) Items(db *gorm.DB, collectionID uint) ([]ContentItem, error) {
	var rows []models.BriefingRunItem
	if err := db.Where("briefing_run_id = ?", collectionID).
		Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list briefing run items: %w", err)
	}
	items := make([]ContentItem, len(rows))
	for i := range rows {
		items[i] = &briefingRunItem{row: &rows[i]}
	}
	return items, nil
}

func (briefingRunSource) Exists(db *gorm.DB, collectionID uint) (bool, error) {
	var count int64
	if err := db.Model(&models.BriefingRun{}).Where("id = ?", collectionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up briefing run: %w", err)
	}
	return count > 0, nil
}

type briefingRunItem struct {
	row *models.BriefingRunItem
}

func (b *briefingRunItem) ItemID() uint { return b.row.ID }

// SynthesisText narrates the markdown body, stripped of formatting.
func (b *briefingRunItem) SynthesisText() string {
	return markdownToSpeechText(b.row.Content)
}

func (b *briefingRunItem) HasCurrentAudio(voiceID string) bool {
	return b.row.HasCurrentAudio(voiceID)
}

func (b *briefingRunItem) SetAudioResult(db *gorm.DB, url, voiceID string, generatedAt time.Time) error {
	if err := db.Model(b.row).Updates(map[string]interface{}{
		"audio_url":          url,
		"audio_voice_id":     voiceID,
		"audio_generated_at": generatedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update briefing run item %d: %w", b.row.ID, err)
	}
	return nil
}

// ---- markdown stripping ----

var (
	mdHeading = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdLink    = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEmph    = regexp.MustCompile(`[*_]{1,3}([^*_]+)[*_]{1,3}`)
	mdCode    = regexp.MustCompile("`([^`]*)`")
)

// markdownToSpeechText reduces markdown to plain prose suitable for
// narration. Formatting markers read badly aloud; link targets read worse.
func markdownToSpeechText(md string) string {
	text := mdHeading.ReplaceAllString(md, "")
	text = mdLink.ReplaceAllString(text, "$1")
	text = mdEmph.ReplaceAllString(text, "$1")
	text = mdCode.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
