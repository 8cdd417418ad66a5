package recording

// UploadRecordingRequest carries the optional metadata fields accompanying a
// multipart upload. The file itself arrives as the "file" form part.
type UploadRecordingRequest struct {
	Duration *int    `form:"duration" validate:"omitempty,min=0"`
	Agent    *string `form:"agent" validate:"omitempty,max=255"`
	CallType *string `form:"call_type" validate:"omitempty,max=100"`
}

// ImportRecordingRequest registers a recording already present in the storage
// backend under remote_key
type ImportRecordingRequest struct {
	RemoteKey string                 `json:"remote_key" validate:"required,max=1024"`
	Filename  string                 `json:"filename" validate:"required,max=512"`
	Filesize  int64                  `json:"filesize" validate:"required,min=1"`
	Duration  *int                   `json:"duration" validate:"omitempty,min=0"`
	Agent     *string                `json:"agent" validate:"omitempty,max=255"`
	CallType  *string                `json:"call_type" validate:"omitempty,max=100"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ListRecordingsRequest holds list filters bound from query parameters
type ListRecordingsRequest struct {
	Status    *string `query:"status"`
	Source    *string `query:"source"`
	Agent     string  `query:"agent"`
	Search    string  `query:"search"`
	Page      int     `query:"page"`
	PageSize  int     `query:"page_size"`
	SortBy    string  `query:"sort_by"`
	SortOrder string  `query:"sort_order"`
}

// Normalize applies list defaults and bounds
func (r *ListRecordingsRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = 20
	}
	if r.PageSize > 100 {
		r.PageSize = 100
	}
}

// TranscribeRequest holds optional per-request transcription parameters.
// Diarization is on unless explicitly disabled.
type TranscribeRequest struct {
	Language string `json:"language" validate:"omitempty,max=20"`
	ModelID  string `json:"model_id" validate:"omitempty,max=100"`
	Diarize  *bool  `json:"diarize"`
}

// CheckDuplicateRequest probes whether content with this hash already exists
type CheckDuplicateRequest struct {
	ContentHash string `json:"content_hash" validate:"required,len=64,hexadecimal,lowercase"`
}
