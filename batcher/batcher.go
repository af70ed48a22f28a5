// Package batcher implements the bounded queue that accumulates parsed
// records until a size or time threshold triggers a flush to the active
// storage backend. Grounded in brandtall-Siphon's logger/pipeline.go
// batchProcessor (channel + time.Ticker select loop), generalized with
// drop-on-full backpressure, partition-aware flush splitting, and a
// shutdown/drain sequence.
package batcher

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"syslogd/errs"
	"syslogd/models"
	"syslogd/storage"
)

// Counters exposes the single-writer atomic counters spec.md §5 and §9
// require: incremented by at most one goroutine each, read without
// blocking I/O.
type Counters struct {
	Submitted      atomic.Int64
	DroppedQueue   atomic.Int64
	BatchesFlushed atomic.Int64
	BatchErrors    atomic.Int64
	RecordsWritten atomic.Int64
}

// Batcher owns the current batch buffer and the single consumer goroutine
// that drains it. Only the consumer goroutine touches the buffer or the
// backend; the receiver communicates solely through the bounded queue.
type Batcher struct {
	backend       storage.Backend
	batchSize     int
	batchTimeout  time.Duration
	queue         chan *models.LogRecord
	flushNow      chan chan struct{}
	shutdownCh    chan chan struct{}
	debug         bool
	retry         storage.RetryConfig
	openPartition map[models.PartitionKey]bool

	Counters Counters
}

// Config bundles the batcher's tunable parameters (spec.md §4.2).
type Config struct {
	BatchSize     int
	BatchTimeout  time.Duration
	QueueCapacity int
	Debug         bool
	Retry         storage.RetryConfig
}

// New constructs a Batcher bound to backend. Call Run in its own goroutine
// to start the consumer loop.
func New(backend storage.Backend, cfg Config) *Batcher {
	if cfg.Retry == (storage.RetryConfig{}) {
		cfg.Retry = storage.DefaultRetryConfig
	}
	return &Batcher{
		backend:       backend,
		batchSize:     cfg.BatchSize,
		batchTimeout:  cfg.BatchTimeout,
		queue:         make(chan *models.LogRecord, cfg.QueueCapacity),
		flushNow:      make(chan chan struct{}),
		shutdownCh:    make(chan chan struct{}),
		debug:         cfg.Debug,
		retry:         cfg.Retry,
		openPartition: make(map[models.PartitionKey]bool),
	}
}

// Submit enqueues a record without blocking the caller. When the queue is
// at capacity, the record is dropped and DroppedQueue is incremented;
// ErrQueueFull is returned so the receiver can log it in debug mode.
// Submit never blocks the receiver, per spec.md §4.2 and §5.
func (b *Batcher) Submit(rec *models.LogRecord) error {
	select {
	case b.queue <- rec:
		b.Counters.Submitted.Add(1)
		return nil
	default:
		b.Counters.DroppedQueue.Add(1)
		if b.debug {
			log.Printf("batcher: queue full, dropping record from %s", rec.Hostname)
		}
		return errs.ErrQueueFull
	}
}

// FlushNow forces an out-of-band flush of whatever is currently buffered
// and blocks until it completes.
func (b *Batcher) FlushNow() {
	done := make(chan struct{})
	b.flushNow <- done
	<-done
}

// Shutdown signals the consumer to drain the queue, perform a final flush,
// and exit. It blocks until the consumer has stopped or timeout elapses,
// per spec.md §5's bounded shutdown wall-clock cap.
func (b *Batcher) Shutdown(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	select {
	case b.shutdownCh <- done:
	case <-timer.C:
		return errs.ErrShutdownTimeout
	}
	select {
	case <-done:
		return nil
	case <-timer.C:
		return errs.ErrShutdownTimeout
	}
}

// Run is the single consumer goroutine. It owns the batch buffer and is the
// only goroutine that calls into the backend.
func (b *Batcher) Run(ctx context.Context) {
	buf := make([]*models.LogRecord, 0, b.batchSize)
	var timer *time.Timer
	var timerC <-chan time.Time

	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	armTimer := func() {
		if timer == nil {
			timer = time.NewTimer(b.batchTimeout)
			timerC = timer.C
		}
	}

	flush := func() {
		if len(buf) == 0 {
			return
		}
		b.flush(ctx, buf)
		buf = buf[:0]
		stopTimer()
	}

	for {
		select {
		case rec := <-b.queue:
			buf = append(buf, rec)
			if len(buf) == 1 {
				armTimer()
			}
			if len(buf) >= b.batchSize {
				flush()
			}

		case <-timerC:
			flush()

		case done := <-b.flushNow:
			flush()
			close(done)

		case done := <-b.shutdownCh:
			b.drain(ctx, &buf)
			flush()
			close(done)
			return

		case <-ctx.Done():
			b.drain(ctx, &buf)
			flush()
			return
		}
	}
}

// drain pulls whatever is immediately available off the queue (without
// blocking) into buf, so a shutdown flush captures work already enqueued.
func (b *Batcher) drain(ctx context.Context, buf *[]*models.LogRecord) {
	for {
		select {
		case rec := <-b.queue:
			*buf = append(*buf, rec)
		default:
			return
		}
	}
}

// flush groups buf by partition (splitting any batch that straddles a
// month boundary, per spec.md §4.3) and writes each group to the backend
// with bounded retry. A group that exhausts retry is logged at error level
// and dropped; the batcher continues with the next group.
func (b *Batcher) flush(ctx context.Context, buf []*models.LogRecord) {
	groups := storage.GroupByPartition(buf)
	for _, g := range groups {
		if !b.openPartition[g.Key] {
			if err := b.backend.EnsurePartition(ctx, g.Key); err != nil {
				log.Printf("batcher: ensure partition %s failed: %v", g.Key, err)
				b.Counters.BatchErrors.Add(1)
				continue
			}
			b.openPartition[g.Key] = true
		}

		var written int
		err := storage.WithRetry(ctx, b.retry, func() error {
			n, err := b.backend.WriteBatch(ctx, g.Key, g.Records)
			written = n
			return err
		})
		if err != nil {
			log.Printf("batcher: write_batch failed for partition %s, dropping %d records: %v",
				g.Key, len(g.Records), errs.NewBackendFatal(err, len(g.Records)))
			b.Counters.BatchErrors.Add(1)
			continue
		}

		b.Counters.BatchesFlushed.Add(1)
		b.Counters.RecordsWritten.Add(int64(written))
	}
}
