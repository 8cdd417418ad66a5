package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// TranscriptionOutcome carries the provider results persisted on success
type TranscriptionOutcome struct {
	Text             string
	Segments         []entities.Segment
	Speakers         int
	Language         string
	ProcessingTimeMs int64
}

// PipelineStateRepository is the single writer for the joint
// Recording/Transcription status state machine. Every transition updates both
// rows inside one transaction so their statuses stay in lock-step.
type PipelineStateRepository interface {
	// MarkRequested transitions Recording to PENDING_TRANSCRIPTION and creates
	// or resets the transcription to PENDING with the error cleared. This is
	// also the retry entry point for previously failed recordings.
	MarkRequested(ctx context.Context, recordingID uuid.UUID, language, modelID string) (*entities.Transcription, error)

	// MarkInProgress transitions Recording to TRANSCRIBING and the
	// transcription to IN_PROGRESS.
	MarkInProgress(ctx context.Context, recordingID, transcriptionID uuid.UUID) error

	// MarkCompleted persists the outcome, overwriting any previous results,
	// and transitions both rows to COMPLETED.
	MarkCompleted(ctx context.Context, recordingID, transcriptionID uuid.UUID, outcome TranscriptionOutcome) error

	// MarkFailed persists the error message and transitions Recording to
	// FAILED_TRANSCRIPTION and the transcription to FAILED.
	MarkFailed(ctx context.Context, recordingID, transcriptionID uuid.UUID, errMsg string) error
}
