package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/pkg/config"
)

const defaultElevenLabsBaseURL = "https://api.elevenlabs.io"

// ElevenLabsClient calls the ElevenLabs speech-to-text API
type ElevenLabsClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewElevenLabsClient creates an ElevenLabs client. The API key is required.
func NewElevenLabsClient(cfg *config.ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsClient, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("elevenlabs api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Minute},
		logger:  logger,
	}, nil
}

// speechToTextResponse is the subset of the API response we consume
type speechToTextResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Words        []struct {
		Text      string  `json:"text"`
		Type      string  `json:"type"`
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
		SpeakerID string  `json:"speaker_id"`
	} `json:"words"`
}

// Transcribe uploads the audio as multipart form data and returns the outcome
func (c *ElevenLabsClient) Transcribe(ctx context.Context, audio io.Reader, opts Options) Result {
	started := time.Now()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeSpeechToTextForm(mw, audio, opts)
		mw.Close()
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", pr)
	if err != nil {
		return failedResult(started, err.Error())
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return failedResult(started, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("elevenlabs error (%d): %s", resp.StatusCode, body)
		if c.logger != nil {
			c.logger.Warn("elevenlabs request failed",
				zap.Int("status", resp.StatusCode),
				zap.String("filename", opts.Filename))
		}
		return failedResult(started, msg)
	}

	var parsed speechToTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return failedResult(started, fmt.Sprintf("failed to parse elevenlabs response: %v", err))
	}

	return Result{
		OK:               true,
		Text:             parsed.Text,
		Segments:         segmentsFromWords(parsed),
		Language:         parsed.LanguageCode,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	}
}

func writeSpeechToTextForm(mw *multipart.Writer, audio io.Reader, opts Options) error {
	filename := opts.Filename
	if filename == "" {
		filename = "audio"
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}

	modelID := opts.ModelID
	if modelID == "" {
		modelID = "scribe_v1"
	}
	if err := mw.WriteField("model_id", modelID); err != nil {
		return err
	}
	if opts.Language != "" {
		if err := mw.WriteField("language_code", opts.Language); err != nil {
			return err
		}
	}
	return mw.WriteField("diarize", strconv.FormatBool(opts.Diarize))
}

// segmentsFromWords folds the word stream into per-speaker segments. A new
// segment starts whenever the speaker label changes.
func segmentsFromWords(resp speechToTextResponse) []entities.Segment {
	var segments []entities.Segment
	for _, w := range resp.Words {
		if w.Type == "spacing" {
			if n := len(segments); n > 0 {
				segments[n-1].Text += w.Text
			}
			continue
		}
		speaker := w.SpeakerID
		if speaker == "" {
			speaker = "speaker_1"
		}
		if n := len(segments); n > 0 && segments[n-1].Speaker == speaker {
			segments[n-1].Text += w.Text
			segments[n-1].EndSeconds = w.End
			continue
		}
		segments = append(segments, entities.Segment{
			Speaker:      speaker,
			StartSeconds: w.Start,
			EndSeconds:   w.End,
			Text:         w.Text,
		})
	}
	return segments
}

func failedResult(started time.Time, msg string) Result {
	return Result{
		OK:               false,
		Error:            msg,
		ProcessingTimeMs: time.Since(started).Milliseconds(),
	}
}
