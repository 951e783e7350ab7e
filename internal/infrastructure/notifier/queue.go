package notifier

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fredericlb/BespokeSynthPatches/internal/config"
	domain "github.com/fredericlb/BespokeSynthPatches/internal/domain/patch"
	"github.com/fredericlb/BespokeSynthPatches/internal/infrastructure/metrics"
)

var (
	ErrQueueFull   = errors.New("notification queue is full")
	ErrQueueClosed = errors.New("notification queue is closed")
)

// Queue buffers notifications and delivers them from a fixed worker pool so
// callers never wait on the webhook.
type Queue struct {
	sender  Sender
	jobs    chan Payload
	workers int
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewQueue(cfg *config.Config, sender Sender, log zerolog.Logger) *Queue {
	size := cfg.NotifyQueueSize
	if size <= 0 {
		size = 1
	}
	workers := cfg.NotifyWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		sender:  sender,
		jobs:    make(chan Payload, size),
		workers: workers,
		log:     log.With().Str("component", "notifier").Logger(),
	}
}

// Start launches the workers. They stop once Close drains the queue.
func (q *Queue) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for payload := range q.jobs {
				q.deliver(ctx, payload)
			}
		}()
	}
	q.log.Info().Int("workers", q.workers).Int("queue_size", cap(q.jobs)).Msg("notifier started")
}

func (q *Queue) deliver(ctx context.Context, payload Payload) {
	if err := q.sender.Send(ctx, payload); err != nil {
		metrics.RecordNotification(payload.Event, "error")
		q.log.Warn().Err(err).Str("event", payload.Event).Str("patch_uuid", payload.Patch.UUID).Msg("notification delivery failed")
		return
	}
	metrics.RecordNotification(payload.Event, "delivered")
}

func (q *Queue) NotifySubmitted(ctx context.Context, notice domain.SubmissionNotice) error {
	return q.enqueue(submittedPayload(notice))
}

func (q *Queue) NotifyModerated(ctx context.Context, notice domain.ModerationNotice) error {
	return q.enqueue(moderatedPayload(notice))
}

func (q *Queue) enqueue(payload Payload) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.RecordNotification(payload.Event, "dropped")
		return ErrQueueClosed
	}
	select {
	case q.jobs <- payload:
		metrics.RecordNotification(payload.Event, "queued")
		return nil
	default:
		metrics.RecordNotification(payload.Event, "dropped")
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones until ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
