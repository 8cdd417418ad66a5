package errors

import "errors"

// Common errors
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("resource not found")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrInternalError = errors.New("internal server error")
)

// Recording errors
var (
	ErrRecordingNotFound = errors.New("recording not found")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
	ErrMissingFilename   = errors.New("filename is required")
	ErrDuplicateContent  = errors.New("identical content already exists")
	ErrRemoteObjectMissing = errors.New("remote object does not exist in storage")
)

// Transcription errors
var (
	ErrTranscriptionNotFound   = errors.New("transcription not found")
	ErrTranscriptionInProgress = errors.New("transcription already in progress")
	ErrAudioMissing            = errors.New("stored audio is missing")
)
