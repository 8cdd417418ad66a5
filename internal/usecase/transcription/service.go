package transcription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	"github.com/callvault-team/callvault/internal/infrastructure/queue"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
)

// Service defines the interface for the transcription request use case
type Service interface {
	// RequestTranscription queues a transcription job for a recording. A
	// recording whose transcription is already running is rejected; failed or
	// completed recordings can be re-queued.
	RequestTranscription(ctx context.Context, recordingID uuid.UUID, opts RequestOptions) (*entities.Transcription, error)

	// GetTranscription retrieves the transcription for a recording
	GetTranscription(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error)
}

// Ensure TranscriptionService implements Service interface
var _ Service = (*TranscriptionService)(nil)

// TranscriptionService handles transcription request business logic
type TranscriptionService struct {
	recordingRepo     repositories.RecordingRepository
	transcriptionRepo repositories.TranscriptionRepository
	pipeline          repositories.PipelineStateRepository
	jobs              queue.Queue
	defaultLanguage   string
	defaultModelID    string
	logger            *zap.Logger
}

// NewTranscriptionService creates a new transcription service
func NewTranscriptionService(
	recordingRepo repositories.RecordingRepository,
	transcriptionRepo repositories.TranscriptionRepository,
	pipeline repositories.PipelineStateRepository,
	jobs queue.Queue,
	defaultLanguage, defaultModelID string,
	logger *zap.Logger,
) *TranscriptionService {
	return &TranscriptionService{
		recordingRepo:     recordingRepo,
		transcriptionRepo: transcriptionRepo,
		pipeline:          pipeline,
		jobs:              jobs,
		defaultLanguage:   defaultLanguage,
		defaultModelID:    defaultModelID,
		logger:            logger,
	}
}

// RequestOptions are the caller-tunable transcription parameters. Empty
// strings select the configured defaults.
type RequestOptions struct {
	Language string
	ModelID  string
	Diarize  bool
}

// RequestTranscription moves the pair to PENDING_TRANSCRIPTION/PENDING and
// enqueues the job
func (s *TranscriptionService) RequestTranscription(ctx context.Context, recordingID uuid.UUID, opts RequestOptions) (*entities.Transcription, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return nil, usecaseErrors.ErrRecordingNotFound
	}

	existing, err := s.transcriptionRepo.FindByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	if existing != nil && existing.IsInProgress() {
		return nil, usecaseErrors.ErrTranscriptionInProgress
	}

	language := opts.Language
	if language == "" {
		language = s.defaultLanguage
	}
	modelID := opts.ModelID
	if modelID == "" {
		modelID = s.defaultModelID
	}

	transcription, err := s.pipeline.MarkRequested(ctx, recordingID, language, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark transcription requested: %w", err)
	}

	jobID, err := s.jobs.Enqueue(ctx, queue.JobTranscribe, queue.TranscriptionJob{
		RecordingID:     recordingID,
		TranscriptionID: transcription.ID,
		Language:        language,
		ModelID:         modelID,
		Diarize:         opts.Diarize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue transcription job: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("transcription requested",
			zap.String("recording_id", recordingID.String()),
			zap.String("transcription_id", transcription.ID.String()),
			zap.String("job_id", jobID))
	}

	return transcription, nil
}

// GetTranscription retrieves the transcription for a recording
func (s *TranscriptionService) GetTranscription(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error) {
	recording, err := s.recordingRepo.FindByID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return nil, usecaseErrors.ErrRecordingNotFound
	}

	transcription, err := s.transcriptionRepo.FindByRecordingID(ctx, recordingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transcription: %w", err)
	}
	if transcription == nil {
		return nil, usecaseErrors.ErrTranscriptionNotFound
	}
	return transcription, nil
}
