package ai

import (
	"context"
	"io"
	"time"

	"github.com/callvault-team/callvault/internal/domain/entities"
)

// MockText is the fixed transcript returned by the mock provider
const MockText = "This is a mock transcription. The real service is not connected yet."

// MockProvider is the development stand-in for a real transcription service.
// It drains the audio stream, waits a configurable delay and returns a fixed
// two-speaker transcript.
type MockProvider struct {
	Delay time.Duration
}

// NewMockProvider creates a mock provider with the given simulated delay
func NewMockProvider(delay time.Duration) *MockProvider {
	return &MockProvider{Delay: delay}
}

// Transcribe returns the canned transcript after the configured delay
func (m *MockProvider) Transcribe(ctx context.Context, audio io.Reader, opts Options) Result {
	started := time.Now()

	// Drain the stream so callers see the same read behavior as with a real
	// provider.
	if _, err := io.Copy(io.Discard, audio); err != nil {
		return failedResult(started, err.Error())
	}

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return failedResult(started, ctx.Err().Error())
		}
	}

	language := opts.Language
	if language == "" {
		language = "en"
	}

	return Result{
		OK:   true,
		Text: MockText,
		Segments: []entities.Segment{
			{Speaker: "speaker_1", StartSeconds: 0, EndSeconds: 2.5, Text: "This is a mock transcription."},
			{Speaker: "speaker_2", StartSeconds: 2.5, EndSeconds: 5, Text: "The real service is not connected yet."},
		},
		Language:         language,
		ProcessingTimeMs: 1000,
	}
}
