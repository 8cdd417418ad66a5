package ingest

import (
	"context"

	"github.com/google/uuid"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
)

// Service defines the interface for the recording ingestion use case
type Service interface {
	// Ingest stores an uploaded recording, rejecting byte-identical content
	Ingest(ctx context.Context, input IngestInput) (*entities.Recording, error)

	// ImportRemote registers a recording whose bytes already live in the
	// storage backend under the supplied remote key
	ImportRemote(ctx context.Context, input ImportInput) (*entities.Recording, error)

	// CheckDuplicate reports whether content with the given hash already exists
	CheckDuplicate(ctx context.Context, contentHash string) (*DuplicateCheck, error)

	// GetRecording retrieves a recording with its transcription
	GetRecording(ctx context.Context, id uuid.UUID) (*entities.Recording, error)

	// ListRecordings retrieves recordings with filters
	ListRecordings(ctx context.Context, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error)

	// DeleteRecording removes the recording row and its stored audio
	DeleteRecording(ctx context.Context, id uuid.UUID) error

	// DownloadURL returns an address the recording's audio can be fetched from
	DownloadURL(ctx context.Context, id uuid.UUID) (string, error)
}

// DuplicateCheck is the outcome of a content-hash lookup
type DuplicateCheck struct {
	Duplicate bool
	Existing  *entities.Recording
}

// DuplicateError reports a rejected upload whose content already exists.
// Existing carries the recording the content collided with.
type DuplicateError struct {
	Existing *entities.Recording
}

func (e *DuplicateError) Error() string {
	return "identical content already exists"
}

func (e *DuplicateError) Unwrap() error {
	return usecaseErrors.ErrDuplicateContent
}

// Ensure IngestService implements Service interface
var _ Service = (*IngestService)(nil)
