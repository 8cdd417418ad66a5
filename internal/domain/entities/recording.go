package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// RecordingStatus represents the status of a recording
type RecordingStatus string

const (
	RecordingStatusUploaded             RecordingStatus = "UPLOADED"
	RecordingStatusPendingTranscription RecordingStatus = "PENDING_TRANSCRIPTION"
	RecordingStatusTranscribing         RecordingStatus = "TRANSCRIBING"
	RecordingStatusCompleted            RecordingStatus = "COMPLETED"
	RecordingStatusFailedTranscription  RecordingStatus = "FAILED_TRANSCRIPTION"
	// RecordingStatusDuplicate exists for API compatibility with clients that
	// render it. Duplicate uploads are rejected before a row is created, so it
	// is never persisted.
	RecordingStatusDuplicate RecordingStatus = "DUPLICATE"
)

// RecordingSource represents where a recording's bytes came from
type RecordingSource string

const (
	RecordingSourceUpload       RecordingSource = "UPLOAD"
	RecordingSourceRemoteImport RecordingSource = "REMOTE_IMPORT"
)

// Recording represents one uploaded audio asset
type Recording struct {
	ID          uuid.UUID         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Filename    string            `json:"filename" gorm:"type:varchar(512);not null"`
	Filepath    string            `json:"filepath" gorm:"type:text;not null"` // opaque storage locator
	Filesize    int64             `json:"filesize" gorm:"not null"`
	ContentHash *string           `json:"content_hash,omitempty" gorm:"type:varchar(64);uniqueIndex:idx_recordings_content_hash"`
	Duration    *int              `json:"duration,omitempty"` // seconds
	Agent       *string           `json:"agent,omitempty" gorm:"type:varchar(255)"`
	CallType    *string           `json:"call_type,omitempty" gorm:"type:varchar(100)"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	Status      RecordingStatus   `json:"status" gorm:"type:varchar(30);not null;default:'UPLOADED';index"`
	Source      RecordingSource   `json:"source" gorm:"type:varchar(20);not null;default:'UPLOAD'"`
	CreatedAt   time.Time         `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `json:"updated_at" gorm:"autoUpdateTime"`

	Transcription *Transcription `json:"transcription,omitempty" gorm:"foreignKey:RecordingID"`
}

// TableName specifies the table name for GORM
func (Recording) TableName() string {
	return "recordings"
}

// NewRecording creates a new recording at UPLOADED
func NewRecording(filename, filepath string, filesize int64, contentHash *string, source RecordingSource) *Recording {
	now := time.Now()
	return &Recording{
		ID:          uuid.New(),
		Filename:    filename,
		Filepath:    filepath,
		Filesize:    filesize,
		ContentHash: contentHash,
		Status:      RecordingStatusUploaded,
		Source:      source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsTerminal reports whether the recording is in a terminal pipeline state
func (r *Recording) IsTerminal() bool {
	return r.Status == RecordingStatusCompleted || r.Status == RecordingStatusFailedTranscription
}

// IsCompleted checks if transcription completed
func (r *Recording) IsCompleted() bool {
	return r.Status == RecordingStatusCompleted
}

// MarkAsPendingTranscription marks the recording as awaiting a worker
func (r *Recording) MarkAsPendingTranscription() {
	r.Status = RecordingStatusPendingTranscription
	r.UpdatedAt = time.Now()
}

// MarkAsTranscribing marks the recording as being worked on
func (r *Recording) MarkAsTranscribing() {
	r.Status = RecordingStatusTranscribing
	r.UpdatedAt = time.Now()
}

// MarkAsCompleted marks transcription as finished
func (r *Recording) MarkAsCompleted() {
	r.Status = RecordingStatusCompleted
	r.UpdatedAt = time.Now()
}

// MarkAsFailed marks transcription as failed
func (r *Recording) MarkAsFailed() {
	r.Status = RecordingStatusFailedTranscription
	r.UpdatedAt = time.Now()
}
