package worker

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TaskAudioRunPass = "audio:run_pass"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// EnqueueRunPass enqueues an immediate audio processing pass, so a freshly
// created job starts without waiting for the next scheduler tick. The pass
// claims at most one job, so the payload is empty. Uniqueness collapses
// bursts of admin triggers into one pass; the pass itself is a no-op when
// the queue is empty, so over-enqueueing is harmless.
func EnqueueRunPass() error {
	task := asynq.NewTask(
		TaskAudioRunPass,
		nil,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Retention(24*time.Hour),
		asynq.Unique(30*time.Second),
	)

	_, err := client.Enqueue(task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	return err
}
