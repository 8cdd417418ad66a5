package errors

// ErrorCode identifies an application error category
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_ALREADY_EXISTS   ErrorCode = 1003

	// Recording / ingestion
	ErrorCode_RECORDING_NOT_FOUND ErrorCode = 2000
	ErrorCode_DUPLICATE_CONTENT   ErrorCode = 2001
	ErrorCode_INVALID_UPLOAD      ErrorCode = 2002

	// Transcription pipeline
	ErrorCode_TRANSCRIPTION_NOT_FOUND   ErrorCode = 3000
	ErrorCode_TRANSCRIPTION_IN_PROGRESS ErrorCode = 3001
	ErrorCode_PROVIDER_FAILED           ErrorCode = 3002

	// Integrations
	ErrorCode_STORAGE_FAILED ErrorCode = 4000
	ErrorCode_QUEUE_FAILED   ErrorCode = 4001
	ErrorCode_DB_FAILED      ErrorCode = 4002
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                   "OK",
	ErrorCode_INTERNAL:                  "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:          "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:                 "NOT_FOUND",
	ErrorCode_ALREADY_EXISTS:            "ALREADY_EXISTS",
	ErrorCode_RECORDING_NOT_FOUND:       "RECORDING_NOT_FOUND",
	ErrorCode_DUPLICATE_CONTENT:         "DUPLICATE_CONTENT",
	ErrorCode_INVALID_UPLOAD:            "INVALID_UPLOAD",
	ErrorCode_TRANSCRIPTION_NOT_FOUND:   "TRANSCRIPTION_NOT_FOUND",
	ErrorCode_TRANSCRIPTION_IN_PROGRESS: "TRANSCRIPTION_IN_PROGRESS",
	ErrorCode_PROVIDER_FAILED:           "PROVIDER_FAILED",
	ErrorCode_STORAGE_FAILED:            "STORAGE_FAILED",
	ErrorCode_QUEUE_FAILED:              "QUEUE_FAILED",
	ErrorCode_DB_FAILED:                 "DB_FAILED",
}

// String returns the symbolic name for the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
