package entities

import (
	"time"

	"github.com/google/uuid"
)

// TranscriptionStatus represents the status of a transcription
type TranscriptionStatus string

const (
	TranscriptionStatusPending    TranscriptionStatus = "PENDING"
	TranscriptionStatusInProgress TranscriptionStatus = "IN_PROGRESS"
	TranscriptionStatusCompleted  TranscriptionStatus = "COMPLETED"
	TranscriptionStatusFailed     TranscriptionStatus = "FAILED"
)

// Segment represents a contiguous speech segment attributed to one speaker
type Segment struct {
	Speaker      string  `json:"speaker"`
	StartSeconds float64 `json:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds"`
	Text         string  `json:"text"`
}

// Transcription is the stored transcription model, keyed 1:1 with a recording
type Transcription struct {
	ID               uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RecordingID      uuid.UUID           `json:"recording_id" gorm:"type:uuid;not null;uniqueIndex"`
	Status           TranscriptionStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	Text             *string             `json:"text,omitempty" gorm:"type:text"`
	Language         string              `json:"language,omitempty" gorm:"type:varchar(20)"`
	ModelID          string              `json:"model_id,omitempty" gorm:"type:varchar(100)"`
	Speakers         int                 `json:"speakers,omitempty"`
	Segments         []Segment           `json:"segments,omitempty" gorm:"type:jsonb;serializer:json"`
	ProcessingTimeMs int64               `json:"processing_time_ms,omitempty"`
	Error            *string             `json:"error,omitempty" gorm:"type:text"`
	CreatedAt        time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Transcription) TableName() string {
	return "transcriptions"
}

// NewTranscription creates a new pending transcription for a recording
func NewTranscription(recordingID uuid.UUID, language, modelID string) *Transcription {
	now := time.Now()
	return &Transcription{
		ID:          uuid.New(),
		RecordingID: recordingID,
		Status:      TranscriptionStatusPending,
		Language:    language,
		ModelID:     modelID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsInProgress reports whether a worker currently owns this transcription
func (t *Transcription) IsInProgress() bool {
	return t.Status == TranscriptionStatusInProgress
}

// SpeakerCount returns the number of distinct speaker labels in segments
func SpeakerCount(segments []Segment) int {
	speakers := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		speakers[s.Speaker] = struct{}{}
	}
	return len(speakers)
}
