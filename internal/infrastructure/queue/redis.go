package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/callvault-team/callvault/pkg/config"
	"github.com/callvault-team/callvault/pkg/jobcontext"
)

const (
	// completed jobs are kept for inspection, capped and expiring
	completedKeep   = 100
	completedExpiry = 24 * time.Hour
	deadExpiry      = 7 * 24 * time.Hour
	promoteInterval = time.Second
	popTimeout      = 5 * time.Second
)

// RedisQueue is the durable Queue backed by Redis. Ready jobs live on a list,
// retries wait in a sorted set scored by their ready time, dead and completed
// jobs land on capped lists.
type RedisQueue struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
	backoffBase time.Duration
	concurrency int
}

// NewRedisQueue connects to Redis and returns the queue. The initial ping is
// retried with exponential backoff so the service survives Redis starting up
// after it.
func NewRedisQueue(cfg *config.Config) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Ping(ctx).Err()
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5)
	if err := backoff.Retry(ping, policy); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Println("✅ Redis connected successfully")

	return &RedisQueue{
		client:      client,
		prefix:      "callvault:queue",
		maxAttempts: cfg.Queue.MaxAttempts,
		backoffBase: cfg.Queue.BackoffBase,
		concurrency: cfg.Queue.Concurrency,
	}, nil
}

func (q *RedisQueue) readyKey() string { return q.prefix + ":ready" }

func (q *RedisQueue) processingKey() string { return q.prefix + ":processing" }

func (q *RedisQueue) delayedKey() string { return q.prefix + ":delayed" }

func (q *RedisQueue) deadKey() string { return q.prefix + ":dead" }

func (q *RedisQueue) completedKey() string { return q.prefix + ":completed" }

// Enqueue validates the payload and pushes the job onto the ready list
func (q *RedisQueue) Enqueue(ctx context.Context, name string, payload TranscriptionJob) (string, error) {
	if err := payload.Validate(); err != nil {
		return "", fmt.Errorf("invalid job payload: %w", err)
	}

	job := newJob(name, payload, q.maxAttempts)
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.readyKey(), raw).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// Run starts the promoter and the configured number of consumers, then blocks
// until ctx is cancelled. Jobs left on the processing list by a crashed
// consumer are pushed back to ready first, so delivery stays at-least-once.
func (q *RedisQueue) Run(ctx context.Context, handler Handler) error {
	if n, err := q.requeueOrphans(ctx); err != nil {
		return fmt.Errorf("failed to requeue in-flight jobs: %w", err)
	} else if n > 0 {
		log.Printf("queue: requeued %d jobs left in flight by a previous run", n)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		q.promoteLoop(ctx)
	}()

	for i := 0; i < q.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			q.consumeLoop(ctx, workerID, handler)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}

// promoteLoop moves delayed jobs whose ready time has passed onto the ready list
func (q *RedisQueue) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(promoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := q.promoteDue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("queue: failed to promote delayed jobs: %v", err)
			}
		}
	}
}

func (q *RedisQueue) promoteDue(ctx context.Context) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return err
	}

	for _, raw := range due {
		// ZRem first so two promoters cannot both push the same job
		removed, err := q.client.ZRem(ctx, q.delayedKey(), raw).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.readyKey(), raw).Err(); err != nil {
			return err
		}
	}
	return nil
}

// requeueOrphans moves every job on the processing list back to ready. Run on
// startup only; a job being re-run after a crash is the at-least-once contract
// the worker's idempotency already covers.
func (q *RedisQueue) requeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	for {
		err := q.client.LMove(ctx, q.processingKey(), q.readyKey(), "RIGHT", "LEFT").Err()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, err
		}
		moved++
	}
}

// consumeLoop pops ready jobs onto the processing list, dispatches them, and
// acks by removing the processing entry once the outcome is recorded
func (q *RedisQueue) consumeLoop(ctx context.Context, workerID int, handler Handler) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := q.client.BLMove(ctx, q.readyKey(), q.processingKey(), "RIGHT", "LEFT", popTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Printf("queue: worker %d failed to pop job: %v", workerID, err)
			time.Sleep(time.Second)
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			log.Printf("queue: worker %d dropped malformed job: %v", workerID, err)
			q.ack(ctx, raw)
			continue
		}

		q.dispatch(ctx, workerID, &job, handler)
		q.ack(ctx, raw)
	}
}

// ack removes the delivered entry from the processing list. By this point the
// job's outcome already lives on the completed, delayed or dead structure.
func (q *RedisQueue) ack(ctx context.Context, raw string) {
	if err := q.client.LRem(ctx, q.processingKey(), 1, raw).Err(); err != nil {
		log.Printf("queue: failed to ack job: %v", err)
	}
}

func (q *RedisQueue) dispatch(ctx context.Context, workerID int, job *Job, handler Handler) {
	jobCtx, cancel := jobcontext.JobBegin(ctx, job.Payload.RecordingID, job.Name, workerID, job.Attempt)
	defer cancel()

	err := handler(jobCtx, job)
	if err == nil {
		q.complete(ctx, job)
		return
	}
	q.retryOrBury(ctx, job, err)
}

// complete records the job on the capped completed list
func (q *RedisQueue) complete(ctx context.Context, job *Job) {
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.completedKey(), raw)
	pipe.LTrim(ctx, q.completedKey(), 0, completedKeep-1)
	pipe.Expire(ctx, q.completedKey(), completedExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("queue: failed to record completed job %s: %v", job.ID, err)
	}
}

// retryOrBury schedules a retry with exponential backoff, or moves the job to
// the dead list when attempts are exhausted or the failure is non-retryable.
func (q *RedisQueue) retryOrBury(ctx context.Context, job *Job, jobErr error) {
	job.Attempt++
	job.LastError = jobErr.Error()

	exhausted := job.Attempt >= job.MaxAttempts
	if exhausted || errors.Is(jobErr, ErrNonRetryable) {
		q.bury(ctx, job)
		return
	}

	delay := jobcontext.CalculateBackoff(job.Attempt-1, q.backoffBase)
	raw, err := json.Marshal(job)
	if err != nil {
		log.Printf("queue: failed to marshal job %s for retry: %v", job.ID, err)
		return
	}
	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, q.delayedKey(), redis.Z{Score: readyAt, Member: raw}).Err(); err != nil {
		log.Printf("queue: failed to schedule retry for job %s: %v", job.ID, err)
	}
}

func (q *RedisQueue) bury(ctx context.Context, job *Job) {
	raw, err := json.Marshal(job)
	if err != nil {
		return
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.deadKey(), raw)
	pipe.Expire(ctx, q.deadKey(), deadExpiry)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("queue: failed to bury job %s: %v", job.ID, err)
	}
}

// Stats reports current queue depths
func (q *RedisQueue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	dead := pipe.LLen(ctx, q.deadKey())
	completed := pipe.LLen(ctx, q.completedKey())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return Stats{
		Ready:     ready.Val(),
		Delayed:   delayed.Val(),
		Dead:      dead.Val(),
		Completed: completed.Val(),
	}, nil
}

// Close releases the Redis connection
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
