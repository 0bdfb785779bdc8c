package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/testutil"
)

func TestWorker_RunsTasks(t *testing.T) {
	w := NewWorker(nil, WorkerOptions{Concurrency: 2}, nil)
	w.Start(context.Background())
	defer w.Stop()

	done := make(chan string, 3)
	for _, name := range []string{"a", "b", "c"} {
		name := name
		require.NoError(t, w.Submit(Task{Name: name, Run: func(ctx context.Context) error {
			done <- name
			return nil
		}}))
	}

	got := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case name := <-done:
			got[name] = true
		case <-time.After(2 * time.Second):
			t.Fatal("task did not run")
		}
	}
	assert.Len(t, got, 3)
}

func TestWorker_RecoversFromPanic(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	w := NewWorker(nil, WorkerOptions{Concurrency: 1}, metrics)
	w.Start(context.Background())
	defer w.Stop()

	aborted := make(chan error, 1)
	require.NoError(t, w.Submit(Task{
		Name:  "panics",
		Run:   func(ctx context.Context) error { panic("boom") },
		Abort: func(err error) { aborted <- err },
	}))

	select {
	case err := <-aborted:
		assert.EqualError(t, err, "internal error: boom")
	case <-time.After(2 * time.Second):
		t.Fatal("abort was not called")
	}

	// the same goroutine keeps serving
	ran := make(chan struct{})
	require.NoError(t, w.Submit(Task{Name: "after", Run: func(ctx context.Context) error {
		close(ran)
		return nil
	}}))
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after panic")
	}

	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.workerPanics))
}

func TestWorker_QueueFullAndStop(t *testing.T) {
	w := NewWorker(nil, WorkerOptions{Concurrency: 1, QueueSize: 1}, nil)

	aborted := make(chan error, 1)
	require.NoError(t, w.Submit(Task{
		Name:  "queued",
		Run:   func(ctx context.Context) error { return nil },
		Abort: func(err error) { aborted <- err },
	}))
	assert.ErrorIs(t, w.Submit(Task{Name: "overflow"}), ErrQueueFull)

	w.Stop()
	w.Stop()

	select {
	case err := <-aborted:
		assert.ErrorIs(t, err, ErrExecutorStopped)
	default:
		t.Fatal("queued task was not aborted on stop")
	}
	assert.ErrorIs(t, w.Submit(Task{Name: "late"}), ErrExecutorStopped)
}

func TestWorker_StopCancelsRunningTask(t *testing.T) {
	w := NewWorker(nil, WorkerOptions{Concurrency: 1}, nil)
	w.Start(context.Background())

	started := make(chan struct{})
	result := make(chan error, 1)
	require.NoError(t, w.Submit(Task{Name: "long", Run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		result <- ctx.Err()
		return ctx.Err()
	}}))

	<-started
	w.Stop()
	assert.ErrorIs(t, <-result, context.Canceled)
}

func TestWorker_ReapFailsStaleJobs(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	ctx := context.Background()

	stuck := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	idle := &models.CV{OwnerID: owner, RawText: "John Roe"}
	require.NoError(t, repo.Create(ctx, stuck))
	require.NoError(t, repo.Create(ctx, idle))
	_, err := repo.MarkProcessing(ctx, stuck.ID, owner)
	require.NoError(t, err)

	metrics := NewMetrics(prometheus.NewRegistry())
	// a negative threshold makes every processing job stale
	w := NewWorker(repo, WorkerOptions{StaleAfter: -time.Minute}, metrics)

	n, err := w.Reap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.FindByID(ctx, stuck.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ProcessingError)
	assert.Equal(t, "processing timed out", *got.ProcessingError)

	got, err = repo.FindByID(ctx, idle.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	n, err = w.Reap(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1.0, promtest.ToFloat64(metrics.reapedJobs))
}

func TestWorker_ReapLeavesFreshJobs(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	ctx := context.Background()

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(ctx, cv))
	_, err := repo.MarkProcessing(ctx, cv.ID, owner)
	require.NoError(t, err)

	w := NewWorker(repo, WorkerOptions{StaleAfter: time.Hour}, nil)
	n, err := w.Reap(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorker_ReaperRunsOnTicker(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	ctx := context.Background()

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(ctx, cv))
	_, err := repo.MarkProcessing(ctx, cv.ID, owner)
	require.NoError(t, err)

	w := NewWorker(repo, WorkerOptions{ReaperInterval: 10 * time.Millisecond, StaleAfter: 30 * time.Millisecond}, nil)
	w.Start(ctx)
	defer w.Stop()

	require.Eventually(t, func() bool {
		got, err := repo.FindByID(ctx, cv.ID, owner)
		return err == nil && got.Status == models.StatusFailed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorker_AbortPanicIsContained(t *testing.T) {
	w := NewWorker(nil, WorkerOptions{QueueSize: 1}, nil)
	require.NoError(t, w.Submit(Task{
		Name:  "bad-abort",
		Run:   func(ctx context.Context) error { return errors.New("unused") },
		Abort: func(err error) { panic("abort boom") },
	}))
	assert.NotPanics(t, w.Stop)
}
