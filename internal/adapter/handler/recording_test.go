package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
	"github.com/callvault-team/callvault/internal/usecase/ingest"
	"github.com/callvault-team/callvault/internal/usecase/transcription"
	"github.com/callvault-team/callvault/pkg/validator"
)

// stubIngest scripts the ingest service for handler tests
type stubIngest struct {
	ingestFn    func(ctx context.Context, input ingest.IngestInput) (*entities.Recording, error)
	importFn    func(ctx context.Context, input ingest.ImportInput) (*entities.Recording, error)
	checkFn     func(ctx context.Context, contentHash string) (*ingest.DuplicateCheck, error)
	getFn       func(ctx context.Context, id uuid.UUID) (*entities.Recording, error)
	downloadFn  func(ctx context.Context, id uuid.UUID) (string, error)
	deleteErr   error
	listResults []*entities.Recording
}

func (s *stubIngest) Ingest(ctx context.Context, input ingest.IngestInput) (*entities.Recording, error) {
	return s.ingestFn(ctx, input)
}

func (s *stubIngest) ImportRemote(ctx context.Context, input ingest.ImportInput) (*entities.Recording, error) {
	return s.importFn(ctx, input)
}

func (s *stubIngest) CheckDuplicate(ctx context.Context, contentHash string) (*ingest.DuplicateCheck, error) {
	return s.checkFn(ctx, contentHash)
}

func (s *stubIngest) GetRecording(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	return s.getFn(ctx, id)
}

func (s *stubIngest) ListRecordings(ctx context.Context, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	return s.listResults, int64(len(s.listResults)), nil
}

func (s *stubIngest) DeleteRecording(ctx context.Context, id uuid.UUID) error {
	return s.deleteErr
}

func (s *stubIngest) DownloadURL(ctx context.Context, id uuid.UUID) (string, error) {
	return s.downloadFn(ctx, id)
}

// stubTranscription scripts the transcription service for handler tests
type stubTranscription struct {
	requestFn func(ctx context.Context, recordingID uuid.UUID, opts transcription.RequestOptions) (*entities.Transcription, error)
	getFn     func(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error)
}

func (s *stubTranscription) RequestTranscription(ctx context.Context, recordingID uuid.UUID, opts transcription.RequestOptions) (*entities.Transcription, error) {
	return s.requestFn(ctx, recordingID, opts)
}

func (s *stubTranscription) GetTranscription(ctx context.Context, recordingID uuid.UUID) (*entities.Transcription, error) {
	return s.getFn(ctx, recordingID)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = validator.New()
	return e
}

func sampleRecording() *entities.Recording {
	hash := "cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"
	return entities.NewRecording("call.mp3", "locator-1", 11, &hash, entities.RecordingSourceUpload)
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestUploadCreatesRecording(t *testing.T) {
	rec := sampleRecording()
	h := NewRecording(&stubIngest{
		ingestFn: func(ctx context.Context, input ingest.IngestInput) (*entities.Recording, error) {
			if input.Filename != "call.mp3" {
				t.Errorf("filename = %q", input.Filename)
			}
			if string(input.Content) != "audio bytes" {
				t.Errorf("content = %q", input.Content)
			}
			return rec, nil
		},
	}, nil)

	e := newEcho()
	body, contentType := multipartUpload(t, "call.mp3", []byte("audio bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	resp := httptest.NewRecorder()

	if err := h.Upload(e.NewContext(req, resp)); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), rec.ID.String()) {
		t.Error("response missing recording id")
	}
}

func TestUploadDuplicateReturnsConflict(t *testing.T) {
	existing := sampleRecording()
	h := NewRecording(&stubIngest{
		ingestFn: func(ctx context.Context, input ingest.IngestInput) (*entities.Recording, error) {
			return nil, &ingest.DuplicateError{Existing: existing}
		},
	}, nil)

	e := newEcho()
	body, contentType := multipartUpload(t, "copy.mp3", []byte("same bytes"))
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	resp := httptest.NewRecorder()

	if err := h.Upload(e.NewContext(req, resp)); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.Code)
	}

	var parsed struct {
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if parsed.Details["existing_recording_id"] != existing.ID.String() {
		t.Errorf("details missing existing recording id: %v", parsed.Details)
	}
	if parsed.Details["existing_filename"] != "call.mp3" {
		t.Errorf("details missing existing filename: %v", parsed.Details)
	}
}

func TestUploadWithoutFilePart(t *testing.T) {
	h := NewRecording(&stubIngest{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings", strings.NewReader(""))
	req.Header.Set(echo.HeaderContentType, "multipart/form-data; boundary=x")
	resp := httptest.NewRecorder()

	if err := h.Upload(e.NewContext(req, resp)); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.Code)
	}
}

func TestImportRegistersRemoteRecording(t *testing.T) {
	rec := entities.NewRecording("sales.mp3", "calls/sales.mp3", 1024, nil, entities.RecordingSourceRemoteImport)
	h := NewRecording(&stubIngest{
		importFn: func(ctx context.Context, input ingest.ImportInput) (*entities.Recording, error) {
			if input.RemoteKey != "calls/sales.mp3" {
				t.Errorf("remote key = %q", input.RemoteKey)
			}
			if input.Filesize != 1024 {
				t.Errorf("filesize = %d", input.Filesize)
			}
			return rec, nil
		},
	}, nil)

	e := newEcho()
	payload := `{"remote_key":"calls/sales.mp3","filename":"sales.mp3","filesize":1024}`
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/import", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()

	if err := h.Import(e.NewContext(req, resp)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if resp.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"source":"REMOTE_IMPORT"`) {
		t.Error("response missing REMOTE_IMPORT source")
	}
}

func TestImportMissingRemoteObject(t *testing.T) {
	h := NewRecording(&stubIngest{
		importFn: func(ctx context.Context, input ingest.ImportInput) (*entities.Recording, error) {
			return nil, usecaseErrors.ErrRemoteObjectMissing
		},
	}, nil)

	e := newEcho()
	payload := `{"remote_key":"calls/gone.mp3","filename":"gone.mp3","filesize":10}`
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/import", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()

	if err := h.Import(e.NewContext(req, resp)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if resp.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.Code)
	}
}

func TestCheckDuplicateEndpoint(t *testing.T) {
	existing := sampleRecording()
	h := NewRecording(&stubIngest{
		checkFn: func(ctx context.Context, contentHash string) (*ingest.DuplicateCheck, error) {
			return &ingest.DuplicateCheck{Duplicate: true, Existing: existing}, nil
		},
	}, nil)

	e := newEcho()
	payload := `{"content_hash":"` + *existing.ContentHash + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/check-duplicate", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()

	if err := h.CheckDuplicate(e.NewContext(req, resp)); err != nil {
		t.Fatalf("CheckDuplicate failed: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"duplicate":true`) {
		t.Error("response missing duplicate flag")
	}
}

func TestCheckDuplicateRejectsBadHash(t *testing.T) {
	h := NewRecording(&stubIngest{}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/check-duplicate", strings.NewReader(`{"content_hash":"xyz"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()

	if err := h.CheckDuplicate(e.NewContext(req, resp)); err != nil {
		t.Fatalf("CheckDuplicate failed: %v", err)
	}
	if resp.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.Code)
	}
}

func TestGetRecordingNotFound(t *testing.T) {
	h := NewRecording(&stubIngest{
		getFn: func(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
			return nil, usecaseErrors.ErrRecordingNotFound
		},
	}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodGet, "/v1/recordings/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	if err := h.Get(c); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if resp.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.Code)
	}
}

func TestRequestTranscriptionAccepted(t *testing.T) {
	rec := sampleRecording()
	tr := entities.NewTranscription(rec.ID, "en", "scribe_v1")
	h := NewTranscription(&stubTranscription{
		requestFn: func(ctx context.Context, recordingID uuid.UUID, opts transcription.RequestOptions) (*entities.Transcription, error) {
			if !opts.Diarize {
				t.Error("diarize must default to true")
			}
			return tr, nil
		},
	}, nil)

	e := newEcho()
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/"+rec.ID.String()+"/transcribe", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)
	c.SetParamNames("id")
	c.SetParamValues(rec.ID.String())

	if err := h.Request(c); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"status":"PENDING"`) {
		t.Error("response missing PENDING status")
	}
}

func TestRequestTranscriptionConflictWhenInProgress(t *testing.T) {
	h := NewTranscription(&stubTranscription{
		requestFn: func(ctx context.Context, recordingID uuid.UUID, opts transcription.RequestOptions) (*entities.Transcription, error) {
			return nil, usecaseErrors.ErrTranscriptionInProgress
		},
	}, nil)

	e := newEcho()
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/v1/recordings/"+id+"/transcribe", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	resp := httptest.NewRecorder()
	c := e.NewContext(req, resp)
	c.SetParamNames("id")
	c.SetParamValues(id)

	if err := h.Request(c); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", resp.Code)
	}
}

var _ ingest.Service = (*stubIngest)(nil)
var _ transcription.Service = (*stubTranscription)(nil)
