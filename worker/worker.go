// Package worker runs the background ingestion pool: a fixed number of
// goroutines each pulling jobs off the queue and processing one document at
// a time. Documents are independent; there is no cross-run coordination.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docingest/config"
	"docingest/internal/ingest"
	"docingest/pkg/logger"
	"docingest/pkg/metrics"
)

// JobQueue is the source of pending ingestion jobs. A nil job with a nil
// error means the poll timed out.
type JobQueue interface {
	Dequeue(ctx context.Context) (*ingest.Job, error)
	Depth(ctx context.Context) (int64, error)
}

type Worker struct {
	id           string
	queue        JobQueue
	runner       *ingest.Runner
	concurrency  int
	log          *logger.Logger
	metrics      *metrics.Metrics
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	isRunning    bool
	runningMutex sync.RWMutex
}

func NewWorker(queue JobQueue, runner *ingest.Runner, cfg *config.WorkerConfig, log *logger.Logger, m *metrics.Metrics) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		id:          uuid.New().String(),
		queue:       queue,
		runner:      runner,
		concurrency: cfg.Concurrency,
		log:         log,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (w *Worker) Start() {
	w.runningMutex.Lock()
	defer w.runningMutex.Unlock()

	if w.isRunning {
		return
	}
	w.isRunning = true

	w.log.Info().Str("worker_id", w.id).Int("concurrency", w.concurrency).Msg("Worker starting")
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.routine(i)
	}
}

func (w *Worker) Stop() {
	w.runningMutex.Lock()
	if !w.isRunning {
		w.runningMutex.Unlock()
		return
	}
	w.isRunning = false
	w.runningMutex.Unlock()

	w.log.Info().Str("worker_id", w.id).Msg("Worker stopping")
	w.cancel()
	w.wg.Wait()
	w.log.Info().Str("worker_id", w.id).Msg("Worker stopped")
}

func (w *Worker) IsRunning() bool {
	w.runningMutex.RLock()
	defer w.runningMutex.RUnlock()
	return w.isRunning
}

func (w *Worker) routine(slot int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(w.ctx)
		if err != nil {
			if w.ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Int("slot", slot).Msg("Failed to dequeue job")
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			w.observeDepth()
			continue
		}

		// Run failures end on the document's status; the error here is
		// already logged by the runner.
		_ = w.runner.Run(w.ctx, *job)
		w.observeDepth()
	}
}

func (w *Worker) observeDepth() {
	if w.metrics == nil {
		return
	}
	if depth, err := w.queue.Depth(w.ctx); err == nil {
		w.metrics.QueueDepth.Set(float64(depth))
	}
}
