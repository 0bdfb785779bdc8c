package services

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/repositories"
)

var (
	ErrExecutorStopped = errors.New("worker is stopped")
	ErrQueueFull       = errors.New("processing queue is full")
)

const staleJobMessage = "processing timed out"

// Task is one unit of background work. Abort is called instead of Run when the
// task can no longer run (shutdown) or when Run panics.
type Task struct {
	Name  string
	Run   func(ctx context.Context) error
	Abort func(err error)
}

type Worker interface {
	Start(ctx context.Context)
	Stop()
	Submit(task Task) error
	// Reap fails processing jobs that have been running longer than the stale threshold.
	Reap(ctx context.Context) (int, error)
}

type WorkerOptions struct {
	Concurrency    int
	QueueSize      int
	ReaperInterval time.Duration
	StaleAfter     time.Duration
}

type worker struct {
	cvRepo   repositories.CVRepository
	opts     WorkerOptions
	metrics  *Metrics
	jobQueue chan Task
	log      *zap.SugaredLogger

	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	stopChan chan struct{}
	stopOnce sync.Once
	cancel   context.CancelFunc
}

func NewWorker(cvRepo repositories.CVRepository, opts WorkerOptions, metrics *Metrics) Worker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 100
	}
	return &worker{
		cvRepo:   cvRepo,
		opts:     opts,
		metrics:  metrics,
		jobQueue: make(chan Task, opts.QueueSize),
		stopChan: make(chan struct{}),
		log:      zap.S().Named("worker"),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.log.Infof("🚀 Starting worker with %d concurrent workers", w.opts.Concurrency)

	for i := 0; i < w.opts.Concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	if w.opts.ReaperInterval > 0 && w.opts.StaleAfter > 0 {
		w.wg.Add(1)
		go w.reapStaleJobs(ctx)
	}
}

// Stop implements Worker. In-flight tasks see their context cancelled; queued
// tasks are aborted.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("🛑 Stopping worker...")

		w.mu.Lock()
		w.stopped = true
		close(w.stopChan)
		w.mu.Unlock()

		if w.cancel != nil {
			w.cancel()
		}
		w.wg.Wait()

		dropped := 0
		for {
			select {
			case task := <-w.jobQueue:
				dropped++
				w.abort(task, ErrExecutorStopped)
			default:
				if dropped > 0 {
					w.log.Warnf("⚠️  %d queued jobs aborted on shutdown", dropped)
				}
				w.log.Info("✅ Worker stopped")
				return
			}
		}
	})
}

// Submit implements Worker.
func (w *worker) Submit(task Task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return ErrExecutorStopped
	}

	select {
	case w.jobQueue <- task:
		w.log.Debugw("📥 Job enqueued", "task", task.Name)
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.log.Debugf("👷 Worker #%d stopped", workerID)
			return
		case task := <-w.jobQueue:
			w.runTask(ctx, workerID, task)
		}
	}
}

func (w *worker) runTask(ctx context.Context, workerID int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.WorkerPanic()
			w.log.Errorw("❌ Task panicked", "worker", workerID, "task", task.Name, "panic", r, "stack", string(debug.Stack()))
			w.abort(task, fmt.Errorf("internal error: %v", r))
		}
	}()

	w.log.Debugw("👷 Processing job", "worker", workerID, "task", task.Name)
	if err := task.Run(ctx); err != nil {
		w.log.Errorw("❌ Job failed", "worker", workerID, "task", task.Name, "error", err)
		return
	}
	w.log.Debugw("✅ Job completed", "worker", workerID, "task", task.Name)
}

func (w *worker) abort(task Task, err error) {
	if task.Abort == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("❌ Task abort panicked", "task", task.Name, "panic", r)
		}
	}()
	task.Abort(err)
}

func (w *worker) reapStaleJobs(ctx context.Context) {
	defer w.wg.Done()

	ticker := jitterbug.New(w.opts.ReaperInterval, &jitterbug.Norm{Stdev: w.opts.ReaperInterval / 10})
	defer ticker.Stop()

	w.log.Infow("🔄 Starting stale job reaper", "interval", w.opts.ReaperInterval, "stale_after", w.opts.StaleAfter)

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			if _, err := w.Reap(ctx); err != nil {
				w.log.Warnw("⚠️  Stale job sweep failed", "error", err)
			}
		}
	}
}

// Reap implements Worker.
func (w *worker) Reap(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-w.opts.StaleAfter)
	stale, err := w.cvRepo.FindStaleProcessing(ctx, cutoff, 50)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, cv := range stale {
		ok, err := w.cvRepo.FailStale(ctx, cv.ID, cutoff, staleJobMessage)
		if err != nil {
			w.log.Errorw("❌ Failed to reap stale job", "cv_id", cv.ID, "error", err)
			continue
		}
		if ok {
			reaped++
			w.log.Warnw("⚠️  Reaped stale job", "cv_id", cv.ID, "started_at", cv.ProcessingStartedAt)
		}
	}

	w.metrics.JobsReaped(reaped)
	return reaped, nil
}
