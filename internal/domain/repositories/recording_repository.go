package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// RecordingFilters holds filtering and pagination options for recording queries
type RecordingFilters struct {
	Status    *entities.RecordingStatus
	Source    *entities.RecordingSource
	Agent     string
	Search    string // matched against filename
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// RecordingRepository defines recording persistence operations
type RecordingRepository interface {
	Create(ctx context.Context, recording *entities.Recording) error
	FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	// FindByIDWithTranscription preloads the 1:1 transcription, if any.
	FindByIDWithTranscription(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	FindByContentHash(ctx context.Context, hash string) (*entities.Recording, error)
	FindAll(ctx context.Context, filters RecordingFilters) ([]*entities.Recording, int64, error)
	// Update applies a partial update. Immutable columns (id, created_at) and
	// updated_at are stripped from fields before the update is issued.
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// TranscriptionRepository defines transcription persistence operations
type TranscriptionRepository interface {
	FindByRecordingID(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error)
	// Upsert creates the transcription row for a recording or resets the
	// existing one with the given fields. Returns the resulting row.
	Upsert(ctx context.Context, recordingID uuid.UUID, fields map[string]interface{}) (*entities.Transcription, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}
