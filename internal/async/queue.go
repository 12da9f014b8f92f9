// Package async runs contract imports on a bounded pool of workers.
package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
	"github.com/joseph-ayodele/leases-tracker/internal/pipeline"
)

var ErrQueueClosed = errors.New("import queue is shutting down")

// Job is one contract document waiting to be imported.
type Job struct {
	Request     pipeline.ContractRequest
	Source      string // where the document came from, for logs
	SubmittedAt time.Time
	TraceID     string
}

// Importer is satisfied by *pipeline.ContractImporter.
type Importer interface {
	Import(ctx context.Context, req pipeline.ContractRequest) (pipeline.ContractResult, error)
}

// DoneFunc receives every finished job. It is called from worker goroutines.
type DoneFunc func(job Job, res pipeline.ContractResult, err error)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

type ImportQueue struct {
	importer Importer
	onDone   DoneFunc
	logger   *slog.Logger
	workers  int
	timeout  time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ImportQueue)

func WithWorkers(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ImportQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithDoneFunc(fn DoneFunc) Option {
	return func(q *ImportQueue) { q.onDone = fn }
}

func NewImportQueue(importer Importer, logger *slog.Logger, opts ...Option) *ImportQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ImportQueue{
		importer: importer,
		logger:   logger,
		workers:  4,
		timeout:  3 * time.Minute,
		ch:       make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ImportQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)
				for job := range q.ch {
					q.process(workerID, job)
				}
				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ImportQueue) process(workerID int, job Job) {
	ctx := context.Background()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}
	ctx, cancel := common.WithTimeout(ctx, q.timeout)
	defer cancel()

	res, err := q.importer.Import(ctx, job.Request)
	logger := common.LoggerFromContext(ctx, q.logger).With("worker_id", workerID, "source", job.Source)
	if err != nil {
		logger.Error("async.import.failed", "error", err)
	} else {
		logger.Info("async.import.ok", "contract_id", res.Contract.ID,
			"waited_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.onDone != nil {
		q.onDone(job, res, err)
	}
}

// Enqueue blocks while the buffer is full.
func (q *ImportQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("async.enqueue.closed", "source", job.Source)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.enqueue.ok", "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("async.enqueue.backpressure", "source", job.Source)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queued ones to finish or
// for ctx to end.
func (q *ImportQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("async.shutdown.interrupted")
	case <-done:
		q.logger.Info("async.shutdown.drained")
	}
}
