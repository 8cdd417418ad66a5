package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobTranscribe is the job name for transcription jobs
const JobTranscribe = "transcribe"

// ErrNonRetryable marks a handler failure that must go straight to the dead
// list regardless of remaining attempts. Wrap it with fmt.Errorf and %w.
var ErrNonRetryable = errors.New("non-retryable job failure")

// TranscriptionJob is the payload carried by a transcription job. It holds
// only identifiers; the worker reloads current state from the database.
type TranscriptionJob struct {
	RecordingID     uuid.UUID `json:"recording_id"`
	TranscriptionID uuid.UUID `json:"transcription_id"`
	Language        string    `json:"language,omitempty"`
	ModelID         string    `json:"model_id,omitempty"`
	Diarize         bool      `json:"diarize"`
}

// Validate checks that the payload identifies a pipeline pair
func (p TranscriptionJob) Validate() error {
	if p.RecordingID == uuid.Nil {
		return fmt.Errorf("recording_id is required")
	}
	if p.TranscriptionID == uuid.Nil {
		return fmt.Errorf("transcription_id is required")
	}
	return nil
}

// Job is the envelope stored on the queue
type Job struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Payload     TranscriptionJob `json:"payload"`
	Attempt     int              `json:"attempt"`
	MaxAttempts int              `json:"max_attempts"`
	EnqueuedAt  time.Time        `json:"enqueued_at"`
	LastError   string           `json:"last_error,omitempty"`
}

// Handler processes one job. Returning nil acknowledges the job. Returning an
// error schedules a retry unless the error wraps ErrNonRetryable or attempts
// are exhausted, in which case the job moves to the dead list.
type Handler func(ctx context.Context, job *Job) error

// Stats is a point-in-time snapshot of queue depths
type Stats struct {
	Ready     int64 `json:"ready"`
	Delayed   int64 `json:"delayed"`
	Dead      int64 `json:"dead"`
	Completed int64 `json:"completed"`
}

// Queue is a durable job queue with retry, backoff and a dead list
type Queue interface {
	// Enqueue adds a job and returns its ID
	Enqueue(ctx context.Context, name string, payload TranscriptionJob) (string, error)

	// Run consumes jobs with the handler until ctx is cancelled
	Run(ctx context.Context, handler Handler) error

	// Stats reports current queue depths
	Stats(ctx context.Context) (Stats, error)
}

// newJob builds the envelope for a fresh enqueue
func newJob(name string, payload TranscriptionJob, maxAttempts int) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Name:        name,
		Payload:     payload,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}
}
