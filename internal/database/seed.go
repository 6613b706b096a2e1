package database

import (
	"log"
	"time"

	"github.com/societyspeaks/narrator/internal/models"
	"gorm.io/gorm"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	// Check if seed data already exists
	var existingBrief models.DailyBrief
	result := db.Where("title = ?", "Dev Daily Brief").First(&existingBrief)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)

	// Create a sample daily brief with narration-ready items
	brief := models.DailyBrief{
		BriefDate: today,
		Title:     "Dev Daily Brief",
		Published: true,
	}

	if err := db.Create(&brief).Error; err != nil {
		return err
	}

	briefItems := []models.BriefItem{
		{
			DailyBriefID: brief.ID,
			Headline:     "Council approves cycling infrastructure plan",
			Narrative:    "The city council voted seven to two to approve a five-year cycling infrastructure plan, adding protected lanes to four major corridors.",
			SourceURL:    "https://example.com/cycling-plan",
			Position:     1,
		},
		{
			DailyBriefID: brief.ID,
			Headline:     "Housing consultation opens next week",
			Narrative:    "A public consultation on the draft housing strategy opens Monday and runs for six weeks, with in-person sessions at three libraries.",
			SourceURL:    "https://example.com/housing-consultation",
			Position:     2,
		},
	}

	if err := db.Create(&briefItems).Error; err != nil {
		return err
	}

	// Create a sample paid briefing run with one markdown section
	run := models.BriefingRun{
		RunDate: today,
		Edition: "morning",
	}

	if err := db.Create(&run).Error; err != nil {
		return err
	}

	runItem := models.BriefingRunItem{
		BriefingRunID: run.ID,
		Title:         "What the cycling vote means",
		Content:       "## What the cycling vote means\n\nThe plan commits **£4.2m** over five years. The contested section is the Brook Road corridor, where two councillors argued the loss of parking outweighs the safety gains.",
		Position:      1,
	}

	if err := db.Create(&runItem).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 1 daily brief (2 items), 1 briefing run (1 item)")
	return nil
}
