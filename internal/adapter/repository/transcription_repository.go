package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// TranscriptionRepository handles transcription data operations
type TranscriptionRepository struct {
	db *gorm.DB
}

// NewTranscriptionRepository creates a new transcription repository
func NewTranscriptionRepository(db *gorm.DB) *TranscriptionRepository {
	return &TranscriptionRepository{db: db}
}

// FindByRecordingID retrieves the transcription for a recording
func (r *TranscriptionRepository) FindByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error) {
	var transcription entities.Transcription
	if err := r.db.WithContext(ctx).
		Where("recording_id = ?", recordingID).
		First(&transcription).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &transcription, nil
}

// Upsert creates the transcription for a recording or resets the existing one
func (r *TranscriptionRepository) Upsert(ctx context.Context, recordingID uuid.UUID, fields map[string]interface{}) (*entities.Transcription, error) {
	var result *entities.Transcription
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertTranscription(tx, recordingID, fields, &result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Update applies a partial update to a transcription
func (r *TranscriptionRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "id", "recording_id", "created_at", "updated_at":
			continue
		}
		sanitized[k] = v
	}
	if len(sanitized) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entities.Transcription{}).
		Where("id = ?", id).
		Updates(sanitized).Error
}

// upsertTranscription is shared with the pipeline state repository so the
// PENDING reset can run inside a larger transaction.
func upsertTranscription(tx *gorm.DB, recordingID uuid.UUID, fields map[string]interface{}, out **entities.Transcription) error {
	var existing entities.Transcription
	err := tx.Where("recording_id = ?", recordingID).First(&existing).Error
	switch {
	case err == nil:
		if err := tx.Model(&existing).Updates(fields).Error; err != nil {
			return err
		}
		var refreshed entities.Transcription
		if err := tx.Where("id = ?", existing.ID).First(&refreshed).Error; err != nil {
			return err
		}
		*out = &refreshed
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		created := entities.Transcription{
			ID:          uuid.New(),
			RecordingID: recordingID,
			Status:      entities.TranscriptionStatusPending,
		}
		if lang, ok := fields["language"].(string); ok {
			created.Language = lang
		}
		if model, ok := fields["model_id"].(string); ok {
			created.ModelID = model
		}
		if status, ok := fields["status"].(entities.TranscriptionStatus); ok {
			created.Status = status
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		*out = &created
		return nil
	default:
		return err
	}
}
