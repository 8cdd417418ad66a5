package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/callvault-team/callvault/pkg/jobcontext"
)

// MemoryQueue is an in-process Queue with the same retry semantics as the
// Redis queue. It backs the memory driver and the test suites. Jobs do not
// survive a restart.
type MemoryQueue struct {
	mu          sync.Mutex
	ready       chan *Job
	delayed     int64
	dead        []*Job
	completed   []*Job
	maxAttempts int
	backoffBase time.Duration
	concurrency int
}

// NewMemoryQueue creates an in-process queue
func NewMemoryQueue(maxAttempts int, backoffBase time.Duration, concurrency int) *MemoryQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &MemoryQueue{
		ready:       make(chan *Job, 1024),
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		concurrency: concurrency,
	}
}

// Enqueue validates the payload and queues the job
func (q *MemoryQueue) Enqueue(ctx context.Context, name string, payload TranscriptionJob) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", fmt.Errorf("invalid job payload: %w", err)
	}

	job := newJob(name, payload, q.maxAttempts)
	select {
	case q.ready <- job:
		return job.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Run consumes jobs until ctx is cancelled
func (q *MemoryQueue) Run(ctx context.Context, handler Handler) error {
	var wg sync.WaitGroup
	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-q.ready:
					q.dispatch(ctx, workerID, job, handler)
				}
			}
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (q *MemoryQueue) dispatch(ctx context.Context, workerID int, job *Job, handler Handler) {
	jobCtx, cancel := jobcontext.JobBegin(ctx, job.Payload.RecordingID, job.Name, workerID, job.Attempt)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		q.mu.Lock()
		q.completed = append(q.completed, job)
		if len(q.completed) > completedKeep {
			q.completed = q.completed[len(q.completed)-completedKeep:]
		}
		q.mu.Unlock()
		return
	}

	job.Attempt++
	job.LastError = err.Error()

	if job.Attempt >= job.MaxAttempts || errors.Is(err, ErrNonRetryable) {
		q.mu.Lock()
		q.dead = append(q.dead, job)
		q.mu.Unlock()
		return
	}

	delay := jobcontext.CalculateBackoff(job.Attempt-1, q.backoffBase)
	q.mu.Lock()
	q.delayed++
	q.mu.Unlock()
	time.AfterFunc(delay, func() {
		q.mu.Lock()
		q.delayed--
		q.mu.Unlock()
		select {
		case q.ready <- job:
		case <-ctx.Done():
		}
	})
}

// Stats reports current queue depths
func (q *MemoryQueue) Stats(ctx context.Context) (Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Ready:     int64(len(q.ready)),
		Delayed:   q.delayed,
		Dead:      int64(len(q.dead)),
		Completed: int64(len(q.completed)),
	}, nil
}

// Dead returns a snapshot of the dead list
func (q *MemoryQueue) Dead() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.dead))
	copy(out, q.dead)
	return out
}

// Completed returns a snapshot of the completed list
func (q *MemoryQueue) Completed() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*Job, len(q.completed))
	copy(out, q.completed)
	return out
}
