package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
)

// RecordingRepository handles recording data operations
type RecordingRepository struct {
	db *gorm.DB
}

// NewRecordingRepository creates a new recording repository
func NewRecordingRepository(db *gorm.DB) *RecordingRepository {
	return &RecordingRepository{db: db}
}

// Create creates a new recording
func (r *RecordingRepository) Create(ctx context.Context, recording *entities.Recording) error {
	if recording == nil {
		return errors.New("recording cannot be nil")
	}
	return r.db.WithContext(ctx).Create(recording).Error
}

// FindByID retrieves a recording by ID
func (r *RecordingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// FindByIDWithTranscription retrieves a recording with its transcription preloaded
func (r *RecordingRepository) FindByIDWithTranscription(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).
		Preload("Transcription").
		Where("id = ?", id).
		First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// FindByContentHash retrieves a recording by its content hash
func (r *RecordingRepository) FindByContentHash(ctx context.Context, hash string) (*entities.Recording, error) {
	var recording entities.Recording
	if err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		First(&recording).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &recording, nil
}

// FindAll retrieves recordings matching the filters, plus the unpaginated total
func (r *RecordingRepository) FindAll(ctx context.Context, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	query := r.db.WithContext(ctx).Model(&entities.Recording{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Source != nil {
		query = query.Where("source = ?", *filters.Source)
	}
	if filters.Agent != "" {
		query = query.Where("agent = ?", filters.Agent)
	}
	if filters.Search != "" {
		query = query.Where("filename ILIKE ?", "%"+filters.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filters.SortBy
	switch sortBy {
	case "filename", "filesize", "status", "created_at", "updated_at":
	default:
		sortBy = "created_at"
	}
	order := "DESC"
	if filters.SortOrder == "asc" {
		order = "ASC"
	}

	var recordings []*entities.Recording
	q := query.Order(sortBy + " " + order)
	if filters.Limit > 0 {
		q = q.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		q = q.Offset(filters.Offset)
	}
	if err := q.Find(&recordings).Error; err != nil {
		return nil, 0, err
	}
	return recordings, total, nil
}

// Update applies a partial update, stripping immutable columns
func (r *RecordingRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	sanitized := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		switch k {
		case "id", "created_at", "updated_at":
			continue
		}
		sanitized[k] = v
	}
	if len(sanitized) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&entities.Recording{}).
		Where("id = ?", id).
		Updates(sanitized).Error
}

// Delete deletes a recording
func (r *RecordingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&entities.Recording{}, id).Error
}
