package transcription

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	"github.com/callvault-team/callvault/internal/infrastructure/queue"
	"github.com/callvault-team/callvault/internal/infrastructure/storage"
	"github.com/callvault-team/callvault/pkg/ai"
	"github.com/callvault-team/callvault/pkg/jobcontext"
)

// Worker consumes transcription jobs. It reloads all state from the database
// so a redelivered job observes current reality instead of the payload's.
type Worker struct {
	recordingRepo     repositories.RecordingRepository
	transcriptionRepo repositories.TranscriptionRepository
	pipeline          repositories.PipelineStateRepository
	store             storage.FileStore
	provider          ai.Provider
	logger            *zap.Logger
}

// NewWorker creates a transcription worker
func NewWorker(
	recordingRepo repositories.RecordingRepository,
	transcriptionRepo repositories.TranscriptionRepository,
	pipeline repositories.PipelineStateRepository,
	store storage.FileStore,
	provider ai.Provider,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		recordingRepo:     recordingRepo,
		transcriptionRepo: transcriptionRepo,
		pipeline:          pipeline,
		store:             store,
		provider:          provider,
		logger:            logger,
	}
}

// Run consumes jobs from the queue until ctx is cancelled
func (w *Worker) Run(ctx context.Context, jobs queue.Queue) error {
	return jobs.Run(ctx, w.Handle)
}

// Handle processes one transcription job. A returned error tells the queue to
// retry; errors wrapping queue.ErrNonRetryable bury the job immediately.
func (w *Worker) Handle(ctx context.Context, job *queue.Job) error {
	payload := job.Payload
	meta := jobcontext.GetJobMetadata(ctx)

	recording, err := w.recordingRepo.FindByID(ctx, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("failed to load recording: %w", err)
	}
	if recording == nil {
		// The recording was deleted while the job waited. Nothing to do and
		// nothing a retry could fix.
		return fmt.Errorf("recording %s no longer exists: %w", payload.RecordingID, queue.ErrNonRetryable)
	}

	transcription, err := w.transcriptionRepo.FindByRecordingID(ctx, payload.RecordingID)
	if err != nil {
		return fmt.Errorf("failed to load transcription: %w", err)
	}
	if transcription == nil || transcription.ID != payload.TranscriptionID {
		return fmt.Errorf("transcription %s no longer current for recording %s: %w",
			payload.TranscriptionID, payload.RecordingID, queue.ErrNonRetryable)
	}

	// Redelivery after a crash between completion and ack. The work is done.
	if transcription.Status == entities.TranscriptionStatusCompleted && recording.IsCompleted() {
		return nil
	}

	if err := w.pipeline.MarkInProgress(ctx, recording.ID, transcription.ID); err != nil {
		return fmt.Errorf("failed to mark transcription in progress: %w", err)
	}

	if w.logger != nil {
		w.logger.Info("transcription started",
			zap.String("recording_id", recording.ID.String()),
			zap.String("filename", recording.Filename),
			zap.Int("attempt", meta.RetryAttempt),
			zap.Int("worker_id", meta.WorkerID))
	}

	audio, err := w.store.OpenReadStream(ctx, recording.Filepath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			msg := fmt.Sprintf("stored audio missing for locator %s", recording.Filepath)
			if markErr := w.pipeline.MarkFailed(ctx, recording.ID, transcription.ID, msg); markErr != nil {
				return fmt.Errorf("failed to mark transcription failed: %w", markErr)
			}
			return fmt.Errorf("%s: %w", msg, queue.ErrNonRetryable)
		}
		return fmt.Errorf("failed to open audio stream: %w", err)
	}
	defer audio.Close()

	result := w.provider.Transcribe(ctx, audio, ai.Options{
		Filename: recording.Filename,
		Language: payload.Language,
		ModelID:  payload.ModelID,
		Diarize:  payload.Diarize,
	})

	if !result.OK {
		if markErr := w.pipeline.MarkFailed(ctx, recording.ID, transcription.ID, result.Error); markErr != nil {
			return fmt.Errorf("failed to mark transcription failed: %w", markErr)
		}
		if w.logger != nil {
			w.logger.Warn("transcription failed",
				zap.String("recording_id", recording.ID.String()),
				zap.String("error", result.Error),
				zap.Int("attempt", meta.RetryAttempt))
		}
		// Surface the provider message so the queue applies its retry policy.
		providerErr := fmt.Errorf("provider failed: %s", result.Error)
		if jobcontext.IsNonRetryableError(providerErr) {
			return fmt.Errorf("%w: %w", queue.ErrNonRetryable, providerErr)
		}
		return providerErr
	}

	outcome := repositories.TranscriptionOutcome{
		Text:             result.Text,
		Segments:         result.Segments,
		Speakers:         entities.SpeakerCount(result.Segments),
		Language:         result.Language,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}
	if err := w.pipeline.MarkCompleted(ctx, recording.ID, transcription.ID, outcome); err != nil {
		return fmt.Errorf("failed to mark transcription completed: %w", err)
	}

	if w.logger != nil {
		w.logger.Info("transcription completed",
			zap.String("recording_id", recording.ID.String()),
			zap.Int("segments", len(result.Segments)),
			zap.Int64("processing_time_ms", result.ProcessingTimeMs))
	}
	return nil
}
