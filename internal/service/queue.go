package service

import (
	"context"
	"errors"

	"water_monitor/internal/metrics"
)

const defaultQueueSize = 128

// ErrQueueClosed is returned by Submit once the queue stopped accepting readings.
var ErrQueueClosed = errors.New("reading queue closed")

// Ingester is the evaluation entry point the queue feeds.
type Ingester interface {
	Ingest(ctx context.Context, in ReadingInput) (IngestResult, error)
}

// Queue decouples reading sources from the evaluation pipeline. Readings are
// ingested one at a time in submission order.
type Queue struct {
	ch     chan ReadingInput
	done   chan struct{}
	ingest Ingester
	runtime
}

func NewQueue(ingest Ingester, size int, opts ...Option) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{
		ch:      make(chan ReadingInput, size),
		done:    make(chan struct{}),
		ingest:  ingest,
		runtime: newRuntime(opts),
	}
}

// Submit blocks until the reading is queued, ctx ends, or the queue stops.
func (q *Queue) Submit(ctx context.Context, in ReadingInput) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- in:
		metrics.IngestQueueDepth.Set(float64(len(q.ch)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Run drains the queue until ctx is canceled.
func (q *Queue) Run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-q.ch:
			metrics.IngestQueueDepth.Set(float64(len(q.ch)))
			if _, err := q.ingest.Ingest(ctx, in); err != nil {
				q.log.Warnw("queued_reading_failed", "source", in.Source, "kind", in.Kind.String(), "err", err)
			}
		}
	}
}
