// Package audiojobs implements the background audio-generation pipeline:
// a database-backed queue of polymorphic jobs that synthesize narration for
// every item of a content collection, checkpointing per item so abandoned
// jobs resume where they left off.
package audiojobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/societyspeaks/narrator/internal/events"
	"github.com/societyspeaks/narrator/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultStaleThreshold is how long a running job may go without a heartbeat
// before the recovery sweep assumes its worker died.
const DefaultStaleThreshold = 30 * time.Minute

// ErrNoPendingJobs is returned by ClaimNextJob when the queue is empty.
var ErrNoPendingJobs = errors.New("no pending audio jobs")

// ErrInvalidJobRequest marks CreateJob failures caused by the request itself
// rather than by infrastructure. Handlers map it to a client error.
var ErrInvalidJobRequest = errors.New("invalid audio job request")

// Synthesizer is the slice of the TTS client the service depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	Health(ctx context.Context) error
}

// AudioStore is the slice of the storage backend the service depends on.
type AudioStore interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
}

// EventPublisher publishes job progress to the event stream. May be absent.
type EventPublisher interface {
	PublishJobEvent(ctx context.Context, ev events.AudioJobEvent) (string, error)
}

// Service creates, claims, processes, and recovers audio generation jobs.
type Service struct {
	db             *gorm.DB
	synth          Synthesizer
	store          AudioStore
	publisher      EventPublisher // nil when the event stream is not configured
	logger         *slog.Logger
	staleThreshold time.Duration
}

// NewService wires the job service. publisher may be nil.
func NewService(db *gorm.DB, synth Synthesizer, store AudioStore, publisher EventPublisher, logger *slog.Logger, staleThreshold time.Duration) *Service {
	if staleThreshold <= 0 {
		staleThreshold = DefaultStaleThreshold
	}
	return &Service{
		db:             db,
		synth:          synth,
		store:          store,
		publisher:      publisher,
		logger:         logger,
		staleThreshold: staleThreshold,
	}
}

// CreateJob creates a pending job for the collection, or returns the
// existing active one. At most one pending/running job exists per
// (content type, collection); concurrent requests converge on it.
// The returned bool is true when a new job was created.
func (s *Service) CreateJob(ctx context.Context, contentType string, collectionID uint, voiceID string) (*models.AudioGenerationJob, bool, error) {
	src, err := sourceFor(contentType)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrInvalidJobRequest, err)
	}
	if voiceID == "" {
		return nil, false, fmt.Errorf("%w: voice id is required", ErrInvalidJobRequest)
	}

	exists, err := src.Exists(s.db.WithContext(ctx), collectionID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, fmt.Errorf("%w: %s %d not found", ErrInvalidJobRequest, contentType, collectionID)
	}

	if job, err := s.findActiveJob(ctx, contentType, collectionID); err != nil {
		return nil, false, err
	} else if job != nil {
		return job, false, nil
	}

	items, err := src.Items(s.db.WithContext(ctx), collectionID)
	if err != nil {
		return nil, false, err
	}
	total := 0
	for _, item := range items {
		if !item.HasCurrentAudio(voiceID) {
			total++
		}
	}

	job := &models.AudioGenerationJob{
		ContentType:  contentType,
		CollectionID: collectionID,
		VoiceID:      voiceID,
		Status:       models.AudioJobStatusPending,
		TotalItems:   total,
	}
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		// A concurrent request may have won the partial unique index race;
		// return the job it created.
		if existing, findErr := s.findActiveJob(ctx, contentType, collectionID); findErr == nil && existing != nil {
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("failed to create audio job: %w", err)
	}

	s.logger.Info("Audio job created",
		"job_id", job.ID, "content_type", contentType,
		"collection_id", collectionID, "voice_id", voiceID, "total_items", total)
	return job, true, nil
}

// ClaimNextJob claims the oldest pending job. The claim is a single
// conditional UPDATE gated on status still being pending, so exactly one
// claimant wins even if scheduler ticks overlap.
func (s *Service) ClaimNextJob(ctx context.Context) (*models.AudioGenerationJob, error) {
	for {
		var job models.AudioGenerationJob
		err := s.db.WithContext(ctx).
			Where("status = ?", models.AudioJobStatusPending).
			Order("id ASC").
			First(&job).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingJobs
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query pending jobs: %w", err)
		}

		now := time.Now().UTC()
		res := s.db.WithContext(ctx).
			Model(&models.AudioGenerationJob{}).
			Where("id = ? AND status = ?", job.ID, models.AudioJobStatusPending).
			Updates(map[string]interface{}{
				"status":     models.AudioJobStatusRunning,
				"started_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to claim job %d: %w", job.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Lost the race for this job; try the next oldest.
			continue
		}

		job.Status = models.AudioJobStatusRunning
		job.StartedAt = &now
		return &job, nil
	}
}

// ProcessJob synthesizes audio for every item of the job's collection that
// lacks current-voice audio, in creation order. Item failures are recorded
// and counted but never abort the job; the job completes once every
// discoverable item has been attempted. Only a dead synthesis backend fails
// the whole job.
func (s *Service) ProcessJob(ctx context.Context, job *models.AudioGenerationJob) error {
	if err := s.synth.Health(ctx); err != nil {
		return s.failJob(ctx, job, fmt.Sprintf("synthesis backend unavailable: %v", err))
	}

	src, err := sourceFor(job.ContentType)
	if err != nil {
		return s.failJob(ctx, job, err.Error())
	}

	// Items are discovered now, not snapshotted at creation: anything added
	// to the collection since then is picked up too.
	items, err := src.Items(s.db.WithContext(ctx), job.CollectionID)
	if err != nil {
		return s.failJob(ctx, job, fmt.Sprintf("failed to load collection items: %v", err))
	}

	// Items without current audio are retried, including ones that failed on
	// an earlier attempt. Their old failure records are dropped first so the
	// counters reflect only this attempt's outcome.
	s.resetRetriedFailures(ctx, job, items)

	pending := 0
	for _, item := range items {
		if !item.HasCurrentAudio(job.VoiceID) {
			pending++
		}
	}
	total := job.CompletedItems + job.FailedItems + pending
	if total != job.TotalItems {
		s.updateJob(ctx, job, map[string]interface{}{"total_items": total})
		job.TotalItems = total
	}

	s.publish(ctx, events.KindStarted, job)

	for _, item := range items {
		// Already-narrated items are skipped, which is what makes a job
		// resumed after stale recovery idempotent.
		if item.HasCurrentAudio(job.VoiceID) {
			continue
		}

		if err := s.processItem(ctx, job, item); err != nil {
			s.recordItemFailure(ctx, job, item.ItemID(), err)
			s.logger.Warn("Audio item failed",
				"job_id", job.ID, "item_id", item.ItemID(), "error", err.Error())
		} else {
			job.CompletedItems++
			s.updateJob(ctx, job, map[string]interface{}{"completed_items": job.CompletedItems})
		}
		s.publish(ctx, events.KindProgress, job)
	}

	now := time.Now().UTC()
	s.updateJob(ctx, job, map[string]interface{}{
		"status":      models.AudioJobStatusCompleted,
		"finished_at": now,
	})
	job.Status = models.AudioJobStatusCompleted
	job.FinishedAt = &now
	s.publish(ctx, events.KindCompleted, job)

	s.logger.Info("Audio job completed",
		"job_id", job.ID,
		"completed_items", job.CompletedItems,
		"failed_items", job.FailedItems)
	return nil
}

// processItem synthesizes and stores audio for one item and records the
// result on the item row.
func (s *Service) processItem(ctx context.Context, job *models.AudioGenerationJob, item ContentItem) error {
	text := item.SynthesisText()

	audio, err := s.synth.Synthesize(ctx, text, job.VoiceID)
	if err != nil {
		return fmt.Errorf("synthesis failed: %w", err)
	}

	key := audioStorageKey(job, item.ItemID())
	url, err := s.store.Store(ctx, key, audio)
	if err != nil {
		return fmt.Errorf("storage failed: %w", err)
	}

	if err := item.SetAudioResult(s.db.WithContext(ctx), url, job.VoiceID, time.Now().UTC()); err != nil {
		return err
	}
	return nil
}

// RecoverStaleJobs resets running jobs whose heartbeat is older than the
// staleness threshold back to pending. Progress counters are kept; the
// has-current-audio predicate makes resumption skip finished items.
func (s *Service) RecoverStaleJobs(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.staleThreshold)
	res := s.db.WithContext(ctx).
		Model(&models.AudioGenerationJob{}).
		Where("status = ? AND updated_at < ?", models.AudioJobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":     models.AudioJobStatusPending,
			"started_at": nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to recover stale jobs: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Warn("Recovered stale audio jobs", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}

// RunPass executes one scheduler pass: sweep stale jobs, then claim and
// process at most one job. Safe to call when the queue is empty.
func (s *Service) RunPass(ctx context.Context) error {
	if _, err := s.RecoverStaleJobs(ctx); err != nil {
		return err
	}

	job, err := s.ClaimNextJob(ctx)
	if errors.Is(err, ErrNoPendingJobs) {
		return nil
	}
	if err != nil {
		return err
	}

	s.logger.Info("Audio job claimed",
		"job_id", job.ID, "content_type", job.ContentType,
		"collection_id", job.CollectionID, "voice_id", job.VoiceID)
	return s.ProcessJob(ctx, job)
}

// GetJob returns one job row.
func (s *Service) GetJob(ctx context.Context, id uint) (*models.AudioGenerationJob, error) {
	var job models.AudioGenerationJob
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// ---- internals ----

func (s *Service) findActiveJob(ctx context.Context, contentType string, collectionID uint) (*models.AudioGenerationJob, error) {
	var job models.AudioGenerationJob
	err := s.db.WithContext(ctx).
		Where("content_type = ? AND collection_id = ? AND status IN ?",
			contentType, collectionID,
			[]string{models.AudioJobStatusPending, models.AudioJobStatusRunning}).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active jobs: %w", err)
	}
	return &job, nil
}

// updateJob writes progress columns. Every call refreshes updated_at, which
// is the heartbeat the staleness sweep keys off.
func (s *Service) updateJob(ctx context.Context, job *models.AudioGenerationJob, fields map[string]interface{}) {
	if err := s.db.WithContext(ctx).
		Model(&models.AudioGenerationJob{}).
		Where("id = ?", job.ID).
		Updates(fields).Error; err != nil {
		s.logger.Error("Failed to update audio job", "job_id", job.ID, "error", err.Error())
	}
}

func (s *Service) recordItemFailure(ctx context.Context, job *models.AudioGenerationJob, itemID uint, cause error) {
	var failures []models.ItemFailure
	if len(job.ItemFailures) > 0 {
		// Corrupt JSON loses prior entries but never blocks progress.
		_ = json.Unmarshal(job.ItemFailures, &failures)
	}
	failures = append(failures, models.ItemFailure{ItemID: itemID, Error: cause.Error()})

	payload, err := json.Marshal(failures)
	if err != nil {
		s.logger.Error("Failed to marshal item failures", "job_id", job.ID, "error", err.Error())
		payload = job.ItemFailures
	}

	job.FailedItems++
	job.ItemFailures = datatypes.JSON(payload)
	s.updateJob(ctx, job, map[string]interface{}{
		"failed_items":  job.FailedItems,
		"item_failures": job.ItemFailures,
	})
}

// resetRetriedFailures drops failure records for items that are about to be
// attempted again. A failed item never has current audio, so without the
// reset a resumed job would count it both as failed and as pending, and a
// repeat failure would be recorded twice.
func (s *Service) resetRetriedFailures(ctx context.Context, job *models.AudioGenerationJob, items []ContentItem) {
	if job.FailedItems == 0 && len(job.ItemFailures) == 0 {
		return
	}

	retrying := make(map[uint]bool, len(items))
	for _, item := range items {
		if !item.HasCurrentAudio(job.VoiceID) {
			retrying[item.ItemID()] = true
		}
	}

	var failures []models.ItemFailure
	if len(job.ItemFailures) > 0 {
		_ = json.Unmarshal(job.ItemFailures, &failures)
	}
	kept := make([]models.ItemFailure, 0, len(failures))
	for _, f := range failures {
		if !retrying[f.ItemID] {
			kept = append(kept, f)
		}
	}
	if len(kept) == len(failures) && job.FailedItems == len(failures) {
		return
	}

	payload, err := json.Marshal(kept)
	if err != nil {
		payload = []byte("[]")
	}
	job.FailedItems = len(kept)
	job.ItemFailures = datatypes.JSON(payload)
	s.updateJob(ctx, job, map[string]interface{}{
		"failed_items":  job.FailedItems,
		"item_failures": job.ItemFailures,
	})
}

// failJob marks the job terminally failed without touching unattempted items.
func (s *Service) failJob(ctx context.Context, job *models.AudioGenerationJob, summary string) error {
	now := time.Now().UTC()
	s.updateJob(ctx, job, map[string]interface{}{
		"status":        models.AudioJobStatusFailed,
		"error_summary": summary,
		"finished_at":   now,
	})
	job.Status = models.AudioJobStatusFailed
	job.ErrorSummary = summary
	job.FinishedAt = &now
	s.publish(ctx, events.KindFailed, job)

	s.logger.Error("Audio job failed", "job_id", job.ID, "error_summary", summary)
	return fmt.Errorf("audio job %d failed: %s", job.ID, summary)
}

func (s *Service) publish(ctx context.Context, kind string, job *models.AudioGenerationJob) {
	if s.publisher == nil {
		return
	}
	_, err := s.publisher.PublishJobEvent(ctx, events.AudioJobEvent{
		Kind:           kind,
		JobID:          job.ID,
		ContentType:    job.ContentType,
		CollectionID:   job.CollectionID,
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		CompletedItems: job.CompletedItems,
		FailedItems:    job.FailedItems,
	})
	if err != nil {
		// The job table is the source of truth; a missed event is only a
		// delayed UI update.
		s.logger.Warn("Failed to publish audio job event", "job_id", job.ID, "error", err.Error())
	}
}

// audioStorageKey is deterministic per (job collection, item, voice) so a
// retried attempt overwrites rather than duplicates.
func audioStorageKey(job *models.AudioGenerationJob, itemID uint) string {
	return fmt.Sprintf("%s/%d/%d-%s.mp3", job.ContentType, job.CollectionID, itemID, job.VoiceID)
}
