package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/callvault-team/callvault/internal/domain/entities"
	"github.com/callvault-team/callvault/internal/domain/repositories"
	"github.com/callvault-team/callvault/internal/infrastructure/cache"
	"github.com/callvault-team/callvault/internal/infrastructure/storage"
	usecaseErrors "github.com/callvault-team/callvault/internal/usecase/errors"
)

// fakeRecordingRepo is an in-memory RecordingRepository
type fakeRecordingRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*entities.Recording
	createErr  error
	createCall int
}

func newFakeRecordingRepo() *fakeRecordingRepo {
	return &fakeRecordingRepo{byID: map[uuid.UUID]*entities.Recording{}}
}

func (f *fakeRecordingRepo) Create(ctx context.Context, r *entities.Recording) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCall++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.byID {
		if existing.ContentHash != nil && r.ContentHash != nil && *existing.ContentHash == *r.ContentHash {
			return gorm.ErrDuplicatedKey
		}
	}
	clone := *r
	f.byID[r.ID] = &clone
	return nil
}

func (f *fakeRecordingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *r
	return &clone, nil
}

func (f *fakeRecordingRepo) FindByIDWithTranscription(ctx context.Context, id uuid.UUID) (*entities.Recording, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeRecordingRepo) FindByContentHash(ctx context.Context, hash string) (*entities.Recording, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byID {
		if r.ContentHash != nil && *r.ContentHash == hash {
			clone := *r
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordingRepo) FindAll(ctx context.Context, filters repositories.RecordingFilters) ([]*entities.Recording, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*entities.Recording
	for _, r := range f.byID {
		clone := *r
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecordingRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return nil
}

func (f *fakeRecordingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

// fakeStore records Save and Delete calls
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	saves   int
	deletes []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) Save(ctx context.Context, filename string, r io.Reader, size int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	locator := "obj-" + filename
	f.objects[locator] = content
	return locator, nil
}

func (f *fakeStore) OpenReadStream(ctx context.Context, locator string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.objects[locator]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *fakeStore) URL(ctx context.Context, locator string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[locator]; !ok {
		return "", storage.ErrObjectNotFound
	}
	return "http://store.test/" + locator, nil
}

func (f *fakeStore) Delete(ctx context.Context, locator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, locator)
	delete(f.objects, locator)
	return nil
}

func newTestService() (*IngestService, *fakeRecordingRepo, *fakeStore) {
	repo := newFakeRecordingRepo()
	store := newFakeStore()
	svc := NewIngestService(repo, store, cache.NewMemoryStore(), nil)
	return svc, repo, store
}

func TestIngestStoresNewRecording(t *testing.T) {
	svc, _, store := newTestService()

	rec, err := svc.Ingest(context.Background(), IngestInput{
		Filename: "call.mp3",
		Content:  []byte("audio bytes"),
	})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if rec.Status != entities.RecordingStatusUploaded {
		t.Errorf("status = %q, want UPLOADED", rec.Status)
	}
	if rec.Source != entities.RecordingSourceUpload {
		t.Errorf("source = %q, want UPLOAD", rec.Source)
	}
	if rec.ContentHash == nil || len(*rec.ContentHash) != 64 {
		t.Error("expected 64-char content hash")
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1", store.saves)
	}
}

func TestIngestRejectsDuplicateWithoutStoring(t *testing.T) {
	svc, _, store := newTestService()

	content := []byte("the same audio twice")
	first, err := svc.Ingest(context.Background(), IngestInput{Filename: "a.mp3", Content: content})
	if err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	_, err = svc.Ingest(context.Background(), IngestInput{Filename: "b.mp3", Content: content})
	var dup *DuplicateError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateError, got %v", err)
	}
	if !errors.Is(err, usecaseErrors.ErrDuplicateContent) {
		t.Error("DuplicateError should unwrap to ErrDuplicateContent")
	}
	if dup.Existing.ID != first.ID {
		t.Errorf("duplicate points at %s, want %s", dup.Existing.ID, first.ID)
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, duplicate must not be stored", store.saves)
	}
}

func TestIngestSameNameDifferentContentBothKept(t *testing.T) {
	svc, repo, _ := newTestService()

	if _, err := svc.Ingest(context.Background(), IngestInput{Filename: "call.mp3", Content: []byte("take one")}); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	if _, err := svc.Ingest(context.Background(), IngestInput{Filename: "call.mp3", Content: []byte("take two")}); err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if len(repo.byID) != 2 {
		t.Errorf("expected 2 recordings, got %d", len(repo.byID))
	}
}

func TestIngestValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Ingest(context.Background(), IngestInput{Filename: "", Content: []byte("x")})
	if !errors.Is(err, usecaseErrors.ErrMissingFilename) {
		t.Errorf("expected ErrMissingFilename, got %v", err)
	}

	_, err = svc.Ingest(context.Background(), IngestInput{Filename: "a.mp3", Content: nil})
	if !errors.Is(err, usecaseErrors.ErrEmptyUpload) {
		t.Errorf("expected ErrEmptyUpload, got %v", err)
	}
}

func TestIngestDuplicateRaceCleansUpObject(t *testing.T) {
	svc, repo, store := newTestService()

	content := []byte("raced content")
	winner, err := svc.Ingest(context.Background(), IngestInput{Filename: "w.mp3", Content: content})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	// Simulate losing the pre-check race: hide the winner from the hash
	// lookup, then let Create hit the unique index.
	repo.mu.Lock()
	delete(repo.byID, winner.ID)
	repo.mu.Unlock()
	repo.createErr = gorm.ErrDuplicatedKey

	_, err = svc.Ingest(context.Background(), IngestInput{Filename: "l.mp3", Content: content})
	if err == nil {
		t.Fatal("expected error when create hits the unique index")
	}
	if len(store.deletes) != 1 {
		t.Errorf("expected 1 orphan cleanup delete, got %d", len(store.deletes))
	}
}

func TestCheckDuplicate(t *testing.T) {
	svc, _, _ := newTestService()

	rec, err := svc.Ingest(context.Background(), IngestInput{Filename: "a.mp3", Content: []byte("known bytes")})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	check, err := svc.CheckDuplicate(context.Background(), *rec.ContentHash)
	if err != nil {
		t.Fatalf("CheckDuplicate failed: %v", err)
	}
	if !check.Duplicate || check.Existing == nil || check.Existing.ID != rec.ID {
		t.Errorf("expected duplicate hit for %s", rec.ID)
	}

	// Repeated check should be served from cache with the same answer.
	check2, err := svc.CheckDuplicate(context.Background(), *rec.ContentHash)
	if err != nil {
		t.Fatalf("cached CheckDuplicate failed: %v", err)
	}
	if !check2.Duplicate {
		t.Error("cached answer flipped to non-duplicate")
	}

	miss, err := svc.CheckDuplicate(context.Background(), "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855")
	if err != nil {
		t.Fatalf("CheckDuplicate miss failed: %v", err)
	}
	if miss.Duplicate {
		t.Error("expected no duplicate for unknown hash")
	}

	if _, err := svc.CheckDuplicate(context.Background(), "not-a-hash"); !errors.Is(err, usecaseErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for malformed hash, got %v", err)
	}
}

func TestImportRemote(t *testing.T) {
	svc, _, store := newTestService()
	store.objects["calls/sales-call.mp3"] = []byte("remote audio")

	rec, err := svc.ImportRemote(context.Background(), ImportInput{
		RemoteKey: "calls/sales-call.mp3",
		Filename:  "sales-call.mp3",
		Filesize:  12,
	})
	if err != nil {
		t.Fatalf("ImportRemote failed: %v", err)
	}
	if rec.Source != entities.RecordingSourceRemoteImport {
		t.Errorf("source = %q, want REMOTE_IMPORT", rec.Source)
	}
	if rec.Filepath != "calls/sales-call.mp3" {
		t.Errorf("locator = %q, want the remote key as-is", rec.Filepath)
	}
	if rec.ContentHash != nil {
		t.Error("imported recordings must not carry a content hash")
	}
	if store.saves != 0 {
		t.Errorf("store saves = %d, want 0 for remote imports", store.saves)
	}
}

func TestImportRemoteMissingObject(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ImportRemote(context.Background(), ImportInput{
		RemoteKey: "calls/gone.mp3",
		Filename:  "gone.mp3",
		Filesize:  12,
	})
	if !errors.Is(err, usecaseErrors.ErrRemoteObjectMissing) {
		t.Errorf("expected ErrRemoteObjectMissing, got %v", err)
	}
}

func TestImportRemoteValidation(t *testing.T) {
	svc, _, store := newTestService()
	store.objects["calls/a.mp3"] = []byte("audio")

	if _, err := svc.ImportRemote(context.Background(), ImportInput{RemoteKey: "calls/a.mp3", Filesize: 5}); !errors.Is(err, usecaseErrors.ErrMissingFilename) {
		t.Errorf("expected ErrMissingFilename, got %v", err)
	}
	if _, err := svc.ImportRemote(context.Background(), ImportInput{Filename: "a.mp3", Filesize: 5}); !errors.Is(err, usecaseErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing key, got %v", err)
	}
	if _, err := svc.ImportRemote(context.Background(), ImportInput{RemoteKey: "calls/a.mp3", Filename: "a.mp3"}); !errors.Is(err, usecaseErrors.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing filesize, got %v", err)
	}
}

func TestDeleteRecordingRemovesObject(t *testing.T) {
	svc, _, store := newTestService()

	rec, err := svc.Ingest(context.Background(), IngestInput{Filename: "a.mp3", Content: []byte("bytes")})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if err := svc.DeleteRecording(context.Background(), rec.ID); err != nil {
		t.Fatalf("DeleteRecording failed: %v", err)
	}
	if len(store.deletes) != 1 {
		t.Errorf("expected stored object deleted, deletes = %d", len(store.deletes))
	}

	if err := svc.DeleteRecording(context.Background(), rec.ID); !errors.Is(err, usecaseErrors.ErrRecordingNotFound) {
		t.Errorf("expected ErrRecordingNotFound for repeat delete, got %v", err)
	}
}

func TestDownloadURL(t *testing.T) {
	svc, _, _ := newTestService()

	rec, err := svc.Ingest(context.Background(), IngestInput{Filename: "a.mp3", Content: []byte("bytes")})
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	url, err := svc.DownloadURL(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("DownloadURL failed: %v", err)
	}
	if url == "" {
		t.Error("expected non-empty url")
	}

	if _, err := svc.DownloadURL(context.Background(), uuid.New()); !errors.Is(err, usecaseErrors.ErrRecordingNotFound) {
		t.Errorf("expected ErrRecordingNotFound, got %v", err)
	}
}
