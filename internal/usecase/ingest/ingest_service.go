package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	"github.com/callvault-team/callvault/internal/infrastructure/cache"
	"github.com/callvault-team/callvault/internal/infrastructure/storage"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
	"github.com/callvault-team/callvault/pkg/hash"
)

const duplicateCacheTTL = 30 * time.Second

var hexHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IngestService handles recording ingestion business logic
type IngestService struct {
	recordingRepo repositories.RecordingRepository
	store         storage.FileStore
	cache         *cache.MemoryStore
	logger        *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	recordingRepo repositories.RecordingRepository,
	store storage.FileStore,
	memCache *cache.MemoryStore,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		recordingRepo: recordingRepo,
		store:         store,
		cache:         memCache,
		logger:        logger,
	}
}

// IngestInput represents input for ingesting an uploaded recording
type IngestInput struct {
	Filename string
	Content  []byte
	Duration *int
	Agent    *string
	CallType *string
	Metadata map[string]interface{}
	Source   entities.RecordingSource
}

// ImportInput represents input for registering a recording that already lives
// in the storage backend
type ImportInput struct {
	RemoteKey string // opaque locator inside the configured FileStore
	Filename  string
	Filesize  int64
	Duration  *int
	Agent     *string
	CallType  *string
	Metadata  map[string]interface{}
}

// Ingest stores the content and creates the recording row. Content whose
// SHA-256 matches an existing recording is rejected with a DuplicateError and
// nothing is written to storage.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*entities.Recording, error) {
	if input.Filename == "" {
		return nil, usecaseErrors.ErrMissingFilename
	}
	if len(input.Content) == 0 {
		return nil, usecaseErrors.ErrEmptyUpload
	}
	if input.Source == "" {
		input.Source = entities.RecordingSourceUpload
	}

	contentHash := hash.Sum(input.Content)

	// Fast path. The unique index below remains the authoritative guard.
	existing, err := s.recordingRepo.FindByContentHash(ctx, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check content hash: %w", err)
	}
	if existing != nil {
		return nil, &DuplicateError{Existing: existing}
	}

	locator, err := s.store.Save(ctx, input.Filename, bytes.NewReader(input.Content), int64(len(input.Content)))
	if err != nil {
		return nil, fmt.Errorf("failed to store recording: %w", err)
	}

	recording := entities.NewRecording(input.Filename, locator, int64(len(input.Content)), &contentHash, input.Source)
	recording.Duration = input.Duration
	recording.Agent = input.Agent
	recording.CallType = input.CallType
	if input.Metadata != nil {
		recording.Metadata = datatypes.JSONMap(input.Metadata)
	}

	if err := s.recordingRepo.Create(ctx, recording); err != nil {
		// Lost a race with a concurrent upload of the same bytes. Remove the
		// orphaned object and report the winner.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if delErr := s.store.Delete(ctx, locator); delErr != nil && s.logger != nil {
				s.logger.Warn("failed to remove orphaned object after duplicate race",
					zap.String("locator", locator), zap.Error(delErr))
			}
			winner, findErr := s.recordingRepo.FindByContentHash(ctx, contentHash)
			if findErr != nil || winner == nil {
				return nil, fmt.Errorf("failed to resolve duplicate upload: %w", err)
			}
			return nil, &DuplicateError{Existing: winner}
		}
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	s.cache.Delete(duplicateCacheKey(contentHash))

	if s.logger != nil {
		s.logger.Info("recording ingested",
			zap.String("recording_id", recording.ID.String()),
			zap.String("filename", recording.Filename),
			zap.Int64("filesize", recording.Filesize),
			zap.String("source", string(recording.Source)))
	}

	return recording, nil
}

// ImportRemote registers a recording whose bytes already live in the storage
// backend. The remote key becomes the locator as-is; no bytes are copied and,
// since the content never passes through here, no content hash is recorded.
func (s *IngestService) ImportRemote(ctx context.Context, input ImportInput) (*entities.Recording, error) {
	if input.Filename == "" {
		return nil, usecaseErrors.ErrMissingFilename
	}
	if input.RemoteKey == "" {
		return nil, fmt.Errorf("%w: remote key is required", usecaseErrors.ErrInvalidInput)
	}
	if input.Filesize <= 0 {
		return nil, fmt.Errorf("%w: filesize must be positive", usecaseErrors.ErrInvalidInput)
	}

	// Confirm the key resolves before creating a row that points at nothing.
	probe, err := s.store.OpenReadStream(ctx, input.RemoteKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", usecaseErrors.ErrRemoteObjectMissing, input.RemoteKey)
		}
		return nil, fmt.Errorf("failed to probe remote object: %w", err)
	}
	probe.Close()

	recording := entities.NewRecording(input.Filename, input.RemoteKey, input.Filesize, nil, entities.RecordingSourceRemoteImport)
	recording.Duration = input.Duration
	recording.Agent = input.Agent
	recording.CallType = input.CallType
	if input.Metadata != nil {
		recording.Metadata = datatypes.JSONMap(input.Metadata)
	}

	if err := s.recordingRepo.Create(ctx, recording); err != nil {
		return nil, fmt.Errorf("failed to create recording: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("remote recording imported",
			zap.String("recording_id", recording.ID.String()),
			zap.String("remote_key", input.RemoteKey),
			zap.String("filename", recording.Filename))
	}

	return recording, nil
}

// CheckDuplicate looks up a content hash, consulting a short-lived cache so
// clients probing before large uploads do not hammer the database.
func (s *IngestService) CheckDuplicate(ctx context.Context, contentHash string) (*DuplicateCheck, error) {
	if !hexHashPattern.MatchString(contentHash) {
		return nil, fmt.Errorf("%w: content hash must be 64 lowercase hex characters", usecaseErrors.ErrInvalidInput)
	}

	key := duplicateCacheKey(contentHash)
	if cached, ok := s.cache.Get(key); ok {
		if cached == "" {
			return &DuplicateCheck{Duplicate: false}, nil
		}
		id, err := uuid.Parse(cached)
		if err == nil {
			if existing, err := s.recordingRepo.FindByID(ctx, id); err == nil && existing != nil {
				return &DuplicateCheck{Duplicate: true, Existing: existing}, nil
			}
		}
		// stale cache entry, fall through to the database
	}

	existing, err := s.recordingRepo.FindByContentHash(ctx, contentHash)
	if err != nil {
		return nil, fmt.Errorf("failed to check content hash: %w", err)
	}
	if existing == nil {
		s.cache.Set(key, "", duplicateCacheTTL)
		return &DuplicateCheck{Duplicate: false}, nil
	}

	s.cache.Set(key, existing.ID.String(), duplicateCacheTTL)
	return &DuplicateCheck{Duplicate: true, Existing: existing}, nil
}

// GetRecording retrieves a recording with its transcription
func (s *IngestService) GetRecording(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	recording, err := s.recordingRepo.FindByIDWithTranscription(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return nil, usecaseErrors.ErrRecordingNotFound
	}
	return recording, nil
}

// ListRecordings retrieves recordings with filters
func (s *IngestService) ListRecordings(ctx context.Context, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	recordings, total, err := s.recordingRepo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recordings, total, nil
}

// DeleteRecording removes the row and then the stored audio
func (s *IngestService) DeleteRecording(ctx context.Context, id uuid.UUID) error {
	recording, err := s.recordingRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return usecaseErrors.ErrRecordingNotFound
	}

	if err := s.recordingRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	if recording.ContentHash != nil {
		s.cache.Delete(duplicateCacheKey(*recording.ContentHash))
	}

	// Row first, object second. A dangling object is recoverable, a row
	// pointing at nothing is not.
	if err := s.store.Delete(ctx, recording.Filepath); err != nil && s.logger != nil {
		s.logger.Warn("failed to delete stored audio",
			zap.String("recording_id", id.String()), zap.Error(err))
	}
	return nil
}

// DownloadURL returns an address the audio can be fetched from
func (s *IngestService) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	recording, err := s.recordingRepo.FindByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get recording: %w", err)
	}
	if recording == nil {
		return "", usecaseErrors.ErrRecordingNotFound
	}

	url, err := s.store.URL(ctx, recording.Filepath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", usecaseErrors.ErrAudioMissing
		}
		return "", fmt.Errorf("failed to build download url: %w", err)
	}
	return url, nil
}

func duplicateCacheKey(contentHash string) string {
	return "duplicate:" + contentHash
}
