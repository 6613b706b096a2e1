package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/societyspeaks/narrator/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler that triggers an
// audio processing pass on a fixed interval (10 seconds by default).
// Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	// Register the periodic audio pass. Uniqueness prevents ticks from
	// stacking up behind a long-running job.
	task := asynq.NewTask(
		TaskAudioRunPass,
		nil,
		asynq.MaxRetry(0),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(cfg.PassInterval),
	)

	spec := fmt.Sprintf("@every %s", cfg.PassInterval)
	entryID, err := scheduler.Register(spec, task)
	if err != nil {
		return nil, fmt.Errorf("failed to register audio pass schedule: %w", err)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info(
		"Scheduler started",
		"schedule", spec,
		"entry_id", entryID,
	)

	// Return shutdown function
	return func() { scheduler.Shutdown() }, nil
}
