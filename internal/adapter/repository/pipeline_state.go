package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
)

// PipelineStateRepository moves the recording/transcription pair through the
// pipeline. Each transition updates both rows in a single transaction.
type PipelineStateRepository struct {
	db *gorm.DB
}

// NewPipelineStateRepository creates a new pipeline state repository
func NewPipelineStateRepository(db *gorm.DB) *PipelineStateRepository {
	return &PipelineStateRepository{db: db}
}

// MarkRequested moves the recording to PENDING_TRANSCRIPTION and creates or
// resets its transcription to PENDING with any previous error cleared.
func (r *PipelineStateRepository) MarkRequested(ctx context.Context, recordingID uuid.UUID, language, modelID string) (*entities.Transcription, error) {
	var transcription *entities.Transcription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Recording{}).
			Where("id = ?", recordingID).
			Update("status", entities.RecordingStatusPendingTranscription).Error; err != nil {
			return err
		}
		fields := map[string]interface{}{
			"status":   entities.TranscriptionStatusPending,
			"language": language,
			"model_id": modelID,
			"error":    nil,
		}
		return upsertTranscription(tx, recordingID, fields, &transcription)
	})
	if err != nil {
		return nil, err
	}
	return transcription, nil
}

// MarkInProgress moves the recording to TRANSCRIBING and the transcription to
// IN_PROGRESS.
func (r *PipelineStateRepository) MarkInProgress(ctx context.Context, recordingID, transcriptionID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Recording{}).
			Where("id = ?", recordingID).
			Update("status", entities.RecordingStatusTranscribing).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Transcription{}).
			Where("id = ?", transcriptionID).
			Updates(map[string]interface{}{
				"status": entities.TranscriptionStatusInProgress,
				"error":  nil,
			}).Error
	})
}

// MarkCompleted persists the outcome and moves both rows to COMPLETED.
// Previous results are overwritten so a retranscription fully replaces them.
func (r *PipelineStateRepository) MarkCompleted(ctx context.Context, recordingID, transcriptionID uuid.UUID, outcome repositories.TranscriptionOutcome) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Recording{}).
			Where("id = ?", recordingID).
			Update("status", entities.RecordingStatusCompleted).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Transcription{}).
			Where("id = ?", transcriptionID).
			Updates(map[string]interface{}{
				"status":             entities.TranscriptionStatusCompleted,
				"text":               outcome.Text,
				"segments":           outcome.Segments,
				"speakers":           outcome.Speakers,
				"language":           outcome.Language,
				"processing_time_ms": outcome.ProcessingTimeMs,
				"error":              nil,
				"updated_at":         time.Now(),
			}).Error
	})
}

// MarkFailed records the error and moves the recording to
// FAILED_TRANSCRIPTION and the transcription to FAILED.
func (r *PipelineStateRepository) MarkFailed(ctx context.Context, recordingID, transcriptionID uuid.UUID, errMsg string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.Recording{}).
			Where("id = ?", recordingID).
			Update("status", entities.RecordingStatusFailedTranscription).Error; err != nil {
			return err
		}
		return tx.Model(&entities.Transcription{}).
			Where("id = ?", transcriptionID).
			Updates(map[string]interface{}{
				"status": entities.TranscriptionStatusFailed,
				"error":  errMsg,
			}).Error
	})
}
