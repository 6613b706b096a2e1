package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/societyspeaks/narrator/internal/audiojobs"
	"github.com/societyspeaks/narrator/internal/config"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

// Implement asynq.Logger interface methods
func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, svc *audiojobs.Service) error {
	srv, mux, err := newServer(cfg, svc)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, svc *audiojobs.Service) (stop func(), err error) {
	srv, mux, err := newServer(cfg, svc)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, svc *audiojobs.Service) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	// Concurrency 1: a pass claims one job and processes its items serially,
	// which is the contract the shared TTS engine assumes.
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     1,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAudioRunPass, handleRunPass(logger, svc))

	logger.Info("Worker starting", "concurrency", 1, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleRunPass executes one audio processing pass: recover stale jobs, then
// claim and process at most one. Empty queue is a successful no-op.
func handleRunPass(logger *slog.Logger, svc *audiojobs.Service) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		if err := svc.RunPass(ctx); err != nil {
			// A failed job is already terminal in the database; retrying the
			// pass would only reprocess the queue head, so don't.
			logger.Error("Audio pass finished with error", "error", err.Error())
			return fmt.Errorf("audio pass: %v: %w", err, asynq.SkipRetry)
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)
	}
}
