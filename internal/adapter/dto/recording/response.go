package recording

import (
	"time"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// RecordingResponse is the API shape of a recording
type RecordingResponse struct {
	ID            string                 `json:"id"`
	Filename      string                 `json:"filename"`
	Filesize      int64                  `json:"filesize"`
	ContentHash   *string                `json:"content_hash,omitempty"`
	Duration      *int                   `json:"duration,omitempty"`
	Agent         *string                `json:"agent,omitempty"`
	CallType      *string                `json:"call_type,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Status        string                 `json:"status"`
	Source        string                 `json:"source"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Transcription *TranscriptionResponse `json:"transcription,omitempty"`
}

// TranscriptionResponse is the API shape of a transcription
type TranscriptionResponse struct {
	ID               string             `json:"id"`
	RecordingID      string             `json:"recording_id"`
	Status           string             `json:"status"`
	Text             *string            `json:"text,omitempty"`
	Language         string             `json:"language,omitempty"`
	ModelID          string             `json:"model_id,omitempty"`
	Speakers         int                `json:"speakers,omitempty"`
	Segments         []entities.Segment `json:"segments,omitempty"`
	ProcessingTimeMs int64              `json:"processing_time_ms,omitempty"`
	Error            *string            `json:"error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// DuplicateCheckResponse is the answer to a check-duplicate probe
type DuplicateCheckResponse struct {
	Duplicate bool               `json:"duplicate"`
	Existing  *RecordingResponse `json:"existing,omitempty"`
}

// DownloadResponse carries the audio download address
type DownloadResponse struct {
	URL string `json:"url"`
}

// FromEntity converts a recording entity to its API shape
func FromEntity(r *entities.Recording) *RecordingResponse {
	if r == nil {
		return nil
	}
	resp := &RecordingResponse{
		ID:          r.ID.String(),
		Filename:    r.Filename,
		Filesize:    r.Filesize,
		ContentHash: r.ContentHash,
		Duration:    r.Duration,
		Agent:       r.Agent,
		CallType:    r.CallType,
		Metadata:    r.Metadata,
		Status:      string(r.Status),
		Source:      string(r.Source),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Transcription != nil {
		resp.Transcription = TranscriptionFromEntity(r.Transcription)
	}
	return resp
}

// FromEntities converts a recording list
func FromEntities(recordings []*entities.Recording) []*RecordingResponse {
	out := make([]*RecordingResponse, 0, len(recordings))
	for _, r := range recordings {
		out = append(out, FromEntity(r))
	}
	return out
}

// TranscriptionFromEntity converts a transcription entity to its API shape
func TranscriptionFromEntity(t *entities.Transcription) *TranscriptionResponse {
	if t == nil {
		return nil
	}
	return &TranscriptionResponse{
		ID:               t.ID.String(),
		RecordingID:      t.RecordingID.String(),
		Status:           string(t.Status),
		Text:             t.Text,
		Language:         t.Language,
		ModelID:          t.ModelID,
		Speakers:         t.Speakers,
		Segments:         t.Segments,
		ProcessingTimeMs: t.ProcessingTimeMs,
		Error:            t.Error,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}
