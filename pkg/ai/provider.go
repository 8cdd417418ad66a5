package ai

import (
	"context"
	"io"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// Options carries per-request transcription parameters
type Options struct {
	Filename string
	Language string
	ModelID  string
	Diarize  bool
}

// Result is the outcome of a transcription attempt. API failures are reported
// through OK and Error rather than a Go error, so callers can persist the
// provider's message verbatim and decide retry behavior themselves.
type Result struct {
	OK               bool
	Text             string
	Segments         []entities.Segment
	Language         string
	ProcessingTimeMs int64
	Error            string
}

// Provider turns recorded audio into text
type Provider interface {
	// Transcribe reads the full audio stream and returns the transcription
	// outcome. A failed Result has OK false and Error set.
	Transcribe(ctx context.Context, audio io.Reader, opts Options) Result
}
