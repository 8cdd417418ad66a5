package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testPayload() TranscriptionJob {
	return TranscriptionJob{
		RecordingID:     uuid.New(),
		TranscriptionID: uuid.New(),
		Language:        "en",
		ModelID:         "scribe_v1",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestMemoryQueueDeliversJob(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled atomic.Int32
	go q.Run(ctx, func(ctx context.Context, job *Job) error {
		handled.Add(1)
		return nil
	})

	payload := testPayload()
	id, err := q.Enqueue(ctx, JobTranscribe, payload)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty job ID")
	}

	waitFor(t, 2*time.Second, func() bool { return handled.Load() == 1 })

	completed := q.Completed()
	if len(completed) != 1 {
		t.Fatalf("expected 1 completed job, got %d", len(completed))
	}
	if completed[0].Payload.RecordingID != payload.RecordingID {
		t.Errorf("completed job carries wrong recording ID")
	}
}

func TestMemoryQueueRetriesThenSucceeds(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go q.Run(ctx, func(ctx context.Context, job *Job) error {
		if calls.Add(1) < 3 {
			return fmt.Errorf("transient failure")
		}
		return nil
	})

	if _, err := q.Enqueue(ctx, JobTranscribe, testPayload()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(q.Completed()) == 1 })

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(q.Dead()) != 0 {
		t.Errorf("expected empty dead list, got %d jobs", len(q.Dead()))
	}
}

func TestMemoryQueueBuriesAfterMaxAttempts(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go q.Run(ctx, func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return fmt.Errorf("provider down")
	})

	if _, err := q.Enqueue(ctx, JobTranscribe, testPayload()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(q.Dead()) == 1 })

	if got := calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts before burial, got %d", got)
	}
	dead := q.Dead()
	if dead[0].Attempt != 3 {
		t.Errorf("dead job attempt = %d, want 3", dead[0].Attempt)
	}
	if dead[0].LastError != "provider down" {
		t.Errorf("dead job last error = %q, want %q", dead[0].LastError, "provider down")
	}
}

func TestMemoryQueueNonRetryableGoesStraightToDead(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go q.Run(ctx, func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return fmt.Errorf("recording gone: %w", ErrNonRetryable)
	})

	if _, err := q.Enqueue(ctx, JobTranscribe, testPayload()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return len(q.Dead()) == 1 })

	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single attempt, got %d", got)
	}
}

func TestMemoryQueueRejectsInvalidPayload(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)

	_, err := q.Enqueue(context.Background(), JobTranscribe, TranscriptionJob{})
	if err == nil {
		t.Fatal("expected validation error for empty payload")
	}

	_, err = q.Enqueue(context.Background(), JobTranscribe, TranscriptionJob{RecordingID: uuid.New()})
	if err == nil {
		t.Fatal("expected validation error for missing transcription_id")
	}
}

func TestMemoryQueueStats(t *testing.T) {
	q := NewMemoryQueue(3, time.Millisecond, 1)

	if _, err := q.Enqueue(context.Background(), JobTranscribe, testPayload()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	stats, err := q.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Ready != 1 {
		t.Errorf("stats.Ready = %d, want 1", stats.Ready)
	}
}
