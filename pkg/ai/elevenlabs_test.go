package ai

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/callvault-team/callvault/pkg/config"
)

func newTestClient(t *testing.T, ts *httptest.Server) *ElevenLabsClient {
	t.Helper()
	client, err := NewElevenLabsClient(&config.ElevenLabsConfig{
		APIKey:  "test-key",
		BaseURL: ts.URL,
	}, nil)
	if err != nil {
		t.Fatalf("NewElevenLabsClient failed: %v", err)
	}
	return client
}

func TestNewElevenLabsClientRequiresAPIKey(t *testing.T) {
	if _, err := NewElevenLabsClient(&config.ElevenLabsConfig{}, nil); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewElevenLabsClient(nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestElevenLabsTranscribeSuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech-to-text" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("xi-api-key") != "test-key" {
			t.Errorf("missing xi-api-key header")
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart form: %v", err)
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("model_id = %q, want scribe_v1", got)
		}
		if got := r.FormValue("diarize"); got != "true" {
			t.Errorf("diarize = %q, want true", got)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello there general",
			"language_code": "en",
			"words": [
				{"text": "hello", "type": "word", "start": 0, "end": 0.4, "speaker_id": "speaker_1"},
				{"text": " ", "type": "spacing", "start": 0.4, "end": 0.5},
				{"text": "there", "type": "word", "start": 0.5, "end": 0.9, "speaker_id": "speaker_1"},
				{"text": "general", "type": "word", "start": 1.2, "end": 1.8, "speaker_id": "speaker_2"}
			]
		}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	result := client.Transcribe(context.Background(), bytes.NewReader([]byte("audio")), Options{
		Filename: "call.mp3",
		ModelID:  "scribe_v1",
		Language: "en",
		Diarize:  true,
	})

	if !result.OK {
		t.Fatalf("expected success, got error %q", result.Error)
	}
	if result.Text != "hello there general" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Language != "en" {
		t.Errorf("language = %q, want en", result.Language)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Speaker != "speaker_1" || result.Segments[0].Text != "hello there" {
		t.Errorf("first segment = %+v", result.Segments[0])
	}
	if result.Segments[1].Speaker != "speaker_2" || result.Segments[1].Text != "general" {
		t.Errorf("second segment = %+v", result.Segments[1])
	}
	if result.ProcessingTimeMs < 0 {
		t.Errorf("negative processing time")
	}
}

func TestElevenLabsTranscribeAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"invalid api key"}`))
	}))
	defer ts.Close()

	client := newTestClient(t, ts)
	result := client.Transcribe(context.Background(), strings.NewReader("audio"), Options{Filename: "call.mp3"})

	if result.OK {
		t.Fatal("expected failure")
	}
	want := `elevenlabs error (401): {"detail":"invalid api key"}`
	if result.Error != want {
		t.Errorf("error = %q, want %q", result.Error, want)
	}
}

func TestElevenLabsTranscribeNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // server already down

	client := newTestClient(t, ts)
	result := client.Transcribe(context.Background(), strings.NewReader("audio"), Options{})

	if result.OK {
		t.Fatal("expected failure when server is unreachable")
	}
	if result.Error == "" {
		t.Error("expected error message")
	}
}
