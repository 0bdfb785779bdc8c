package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
	"alfredoptarigan/cv-formatter/internal/testutil"
)

const owner = "owner-1"

type processorFixture struct {
	processor Processor
	repo      repositories.CVRepository
	worker    Worker
	status    StatusService
}

func newProcessorFixture(t *testing.T, adapter ModelAdapter) *processorFixture {
	t.Helper()

	repo := repositories.NewCVRepository(testutil.NewDB(t))
	w := NewWorker(repo, WorkerOptions{Concurrency: 2, QueueSize: 10}, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	adapters := NewAdapters(map[ModelName]ModelAdapter{
		ModelGPT4:   adapter,
		ModelClaude: adapter,
		ModelGemini: adapter,
	})

	return &processorFixture{
		processor: NewProcessor(repo, adapters, w, nil, nil, ProcessorOptions{JobTimeout: 5 * time.Second}),
		repo:      repo,
		worker:    w,
		status:    NewStatusService(repo),
	}
}

func (f *processorFixture) createCV(t *testing.T, rawText string) *models.CV {
	t.Helper()
	cv := &models.CV{OwnerID: owner, OriginalFilename: "jane.pdf", FileType: FileTypePDF, RawText: rawText}
	require.NoError(t, f.repo.Create(context.Background(), cv))
	return cv
}

func (f *processorFixture) waitFor(t *testing.T, id uuid.UUID, want models.ProcessingStatus) *models.StatusResponse {
	t.Helper()
	var last *models.StatusResponse
	require.Eventually(t, func() bool {
		st, err := f.status.GetStatus(context.Background(), id.String(), owner)
		if err != nil {
			return false
		}
		last = st
		return st.Status == want
	}, 5*time.Second, 5*time.Millisecond)
	return last
}

func (f *processorFixture) submit(id uuid.UUID, model string) (*models.ProcessResponse, error) {
	return f.processor.Submit(context.Background(), SubmitRequest{DocumentID: id.String(), ModelName: model, OwnerID: owner})
}

func TestProcessor_Completes(t *testing.T) {
	gotText := make(chan string, 1)
	f := newProcessorFixture(t, adapterFunc(func(ctx context.Context, rawText string) (*Artifacts, error) {
		gotText <- rawText
		return okArtifacts(), nil
	}))
	cv := f.createCV(t, "Jane Doe\nSenior Nurse")

	resp, err := f.submit(cv.ID, "gpt4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, resp.Status)
	assert.Equal(t, cv.ID.String(), resp.DocumentID)

	st := f.waitFor(t, cv.ID, models.StatusCompleted)
	assert.JSONEq(t, validCVJSON, string(st.StructuredCV))
	assert.JSONEq(t, validRegistrationJSON, string(st.StructuredRegistration))
	require.NotNil(t, st.PreviewMarkup)
	assert.Equal(t, validPreview, *st.PreviewMarkup)
	assert.Nil(t, st.ProcessingError)
	require.NotNil(t, st.ModelUsed)
	assert.Equal(t, "gpt4", *st.ModelUsed)
	assert.Equal(t, "Jane Doe\nSenior Nurse", <-gotText)
}

func TestProcessor_EmptyRawTextIsRejected(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) {
		t.Fatal("adapter must not run")
		return nil, nil
	}))
	cv := f.createCV(t, "")

	_, err := f.submit(cv.ID, "gpt4")

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "CV has no content to process", vErr.Message)

	got, err := f.repo.FindByID(context.Background(), cv.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestProcessor_RequestValidation(t *testing.T) {
	var calls atomic.Int32
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) {
		calls.Add(1)
		return okArtifacts(), nil
	}))
	cv := f.createCV(t, "Jane Doe")

	cases := map[string]struct {
		req  SubmitRequest
		want string
	}{
		"unknown model": {
			req:  SubmitRequest{DocumentID: cv.ID.String(), ModelName: "unknown", OwnerID: owner},
			want: "Invalid model selected. Supported models: gpt4, claude, gemini",
		},
		"missing model": {
			req:  SubmitRequest{DocumentID: cv.ID.String(), OwnerID: owner},
			want: "CV ID and model are required",
		},
		"missing id": {
			req:  SubmitRequest{ModelName: "gpt4", OwnerID: owner},
			want: "CV ID and model are required",
		},
		"malformed id": {
			req:  SubmitRequest{DocumentID: "abc123", ModelName: "gpt4", OwnerID: owner},
			want: "Invalid CV ID format",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.processor.Submit(context.Background(), tc.req)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tc.want, vErr.Message)
		})
	}

	got, err := f.repo.FindByID(context.Background(), cv.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.ProcessingStartedAt)
	assert.Zero(t, calls.Load())
}

func TestProcessor_OtherOwnerGetsNotFound(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) { return okArtifacts(), nil }))
	cv := f.createCV(t, "Jane Doe")

	_, err := f.processor.Submit(context.Background(), SubmitRequest{DocumentID: cv.ID.String(), ModelName: "gpt4", OwnerID: "owner-2"})
	assert.ErrorIs(t, err, repositories.ErrCVNotFound)

	_, err = f.submit(uuid.New(), "gpt4")
	assert.ErrorIs(t, err, repositories.ErrCVNotFound)
}

func TestProcessor_AdapterFailureKeepsArtifacts(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) {
		return nil, &AdapterError{Model: ModelClaude, Stage: StageCV, Err: errBackendDown}
	}))
	cv := f.createCV(t, "Jane Doe")

	// a previous successful run
	ctx := context.Background()
	attempt, err := f.repo.MarkProcessing(ctx, cv.ID, owner)
	require.NoError(t, err)
	require.NoError(t, f.repo.UpdateResult(ctx, cv.ID, attempt, &repositories.ResultData{
		Model:                  "gpt4",
		StructuredCV:           []byte(`{"fullName":"Old"}`),
		StructuredRegistration: []byte(`{"fullName":"Old"}`),
		PreviewMarkup:          "<p>old</p>",
	}))

	_, err = f.submit(cv.ID, "claude")
	require.NoError(t, err)

	f.waitFor(t, cv.ID, models.StatusFailed)

	got, err := f.repo.FindByID(ctx, cv.ID, owner)
	require.NoError(t, err)
	require.NotNil(t, got.ProcessingError)
	assert.Equal(t, "claude processing failed: cv extraction: backend unavailable", *got.ProcessingError)
	assert.JSONEq(t, `{"fullName":"Old"}`, string(got.StructuredCV))
	assert.JSONEq(t, `{"fullName":"Old"}`, string(got.StructuredRegistration))
	require.NotNil(t, got.PreviewMarkup)
	assert.Equal(t, "<p>old</p>", *got.PreviewMarkup)
	assert.Equal(t, "claude", *got.ModelUsed)

	// artifacts of a failed record are not exposed while polling
	st := StatusFromCV(got)
	assert.Nil(t, st.StructuredCV)
	assert.Nil(t, st.PreviewMarkup)
}

func TestProcessor_IncompleteArtifactsFail(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) {
		a := okArtifacts()
		a.PreviewMarkup = "  "
		return a, nil
	}))
	cv := f.createCV(t, "Jane Doe")

	_, err := f.submit(cv.ID, "gemini")
	require.NoError(t, err)

	st := f.waitFor(t, cv.ID, models.StatusFailed)
	require.NotNil(t, st.ProcessingError)
	assert.Equal(t, "AI service returned incomplete data", *st.ProcessingError)
}

func TestProcessor_SecondSubmitWhileProcessingConflicts(t *testing.T) {
	release := make(chan struct{})
	f := newProcessorFixture(t, adapterFunc(func(ctx context.Context, _ string) (*Artifacts, error) {
		select {
		case <-release:
			return okArtifacts(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}))
	cv := f.createCV(t, "Jane Doe")

	_, err := f.submit(cv.ID, "gpt4")
	require.NoError(t, err)

	_, err = f.submit(cv.ID, "claude")
	assert.ErrorIs(t, err, repositories.ErrCVAlreadyProcessing)

	close(release)
	st := f.waitFor(t, cv.ID, models.StatusCompleted)
	assert.Equal(t, "gpt4", *st.ModelUsed)

	// a finished record can be processed again
	_, err = f.submit(cv.ID, "claude")
	require.NoError(t, err)
	st = f.waitFor(t, cv.ID, models.StatusCompleted)
	assert.Equal(t, "claude", *st.ModelUsed)
}

func TestProcessor_AdapterPanicFailsJob(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) {
		panic("boom")
	}))
	cv := f.createCV(t, "Jane Doe")

	_, err := f.submit(cv.ID, "gpt4")
	require.NoError(t, err)

	st := f.waitFor(t, cv.ID, models.StatusFailed)
	require.NotNil(t, st.ProcessingError)
	assert.Equal(t, "processing aborted: internal error: boom", *st.ProcessingError)
}

func TestProcessor_StoppedWorkerFailsJob(t *testing.T) {
	f := newProcessorFixture(t, adapterFunc(func(context.Context, string) (*Artifacts, error) { return okArtifacts(), nil }))
	cv := f.createCV(t, "Jane Doe")
	f.worker.Stop()

	_, err := f.submit(cv.ID, "gpt4")
	assert.ErrorIs(t, err, ErrExecutorStopped)

	got, err := f.repo.FindByID(context.Background(), cv.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ProcessingError)
	assert.Contains(t, *got.ProcessingError, "processing could not be scheduled")
}

func TestProcessor_JobTimeout(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	w := NewWorker(repo, WorkerOptions{Concurrency: 1}, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	slow := adapterFunc(func(ctx context.Context, _ string) (*Artifacts, error) {
		<-ctx.Done()
		return nil, &AdapterError{Model: ModelGPT4, Stage: StageCV, Err: ctx.Err()}
	})
	p := NewProcessor(repo, NewAdapters(map[ModelName]ModelAdapter{ModelGPT4: slow}), w, nil, nil,
		ProcessorOptions{JobTimeout: 20 * time.Millisecond})

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(context.Background(), cv))

	_, err := p.Submit(context.Background(), SubmitRequest{DocumentID: cv.ID.String(), ModelName: "gpt4", OwnerID: owner})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := repo.FindByID(context.Background(), cv.ID, owner)
		return err == nil && got.Status == models.StatusFailed &&
			got.ProcessingError != nil && *got.ProcessingError == "gpt4 processing failed: cv extraction: context deadline exceeded"
	}, 5*time.Second, 5*time.Millisecond)
}

type recordingIndex struct {
	NoopTalentIndex
	indexed chan uuid.UUID
}

func (r *recordingIndex) IndexCV(ctx context.Context, cvID uuid.UUID, ownerID string, structuredCV []byte) error {
	r.indexed <- cvID
	return errors.New("qdrant down")
}

func TestProcessor_IndexFailureDoesNotFailJob(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	w := NewWorker(repo, WorkerOptions{Concurrency: 1}, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	index := &recordingIndex{indexed: make(chan uuid.UUID, 1)}
	ok := adapterFunc(func(context.Context, string) (*Artifacts, error) { return okArtifacts(), nil })
	p := NewProcessor(repo, NewAdapters(map[ModelName]ModelAdapter{ModelGemini: ok}), w, index, nil, ProcessorOptions{})

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(context.Background(), cv))

	_, err := p.Submit(context.Background(), SubmitRequest{DocumentID: cv.ID.String(), ModelName: "gemini", OwnerID: owner})
	require.NoError(t, err)

	select {
	case id := <-index.indexed:
		assert.Equal(t, cv.ID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("completed CV was not indexed")
	}

	got, err := repo.FindByID(context.Background(), cv.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
}

type panickingIndex struct {
	NoopTalentIndex
	indexed chan uuid.UUID
}

func (p *panickingIndex) IndexCV(ctx context.Context, cvID uuid.UUID, ownerID string, structuredCV []byte) error {
	p.indexed <- cvID
	panic("index bug")
}

func TestProcessor_IndexPanicKeepsCompletedResult(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	w := NewWorker(repo, WorkerOptions{Concurrency: 1}, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	index := &panickingIndex{indexed: make(chan uuid.UUID, 1)}
	ok := adapterFunc(func(context.Context, string) (*Artifacts, error) { return okArtifacts(), nil })
	p := NewProcessor(repo, NewAdapters(map[ModelName]ModelAdapter{ModelGPT4: ok}), w, index, nil, ProcessorOptions{})

	cv := &models.CV{OwnerID: owner, RawText: "Jane Doe"}
	require.NoError(t, repo.Create(context.Background(), cv))

	_, err := p.Submit(context.Background(), SubmitRequest{DocumentID: cv.ID.String(), ModelName: "gpt4", OwnerID: owner})
	require.NoError(t, err)

	select {
	case <-index.indexed:
	case <-time.After(5 * time.Second):
		t.Fatal("completed CV was not indexed")
	}
	// Stop waits for the task to unwind
	w.Stop()

	got, err := repo.FindByID(context.Background(), cv.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Nil(t, got.ProcessingError)
}

func TestProcessor_ReapedQueuedAttemptIsSkipped(t *testing.T) {
	repo := repositories.NewCVRepository(testutil.NewDB(t))
	w := NewWorker(repo, WorkerOptions{Concurrency: 1, QueueSize: 10}, nil)
	w.Start(context.Background())
	t.Cleanup(w.Stop)

	aEntered := make(chan struct{})
	releaseA := make(chan struct{})
	bEntered := make(chan struct{}, 2)
	releaseB := make(chan struct{})
	var bRuns atomic.Int32

	adapter := adapterFunc(func(ctx context.Context, rawText string) (*Artifacts, error) {
		if rawText == "A" {
			close(aEntered)
			<-releaseA
			return okArtifacts(), nil
		}
		bRuns.Add(1)
		bEntered <- struct{}{}
		<-releaseB
		return okArtifacts(), nil
	})
	p := NewProcessor(repo, NewAdapters(map[ModelName]ModelAdapter{ModelGPT4: adapter}), w, nil, nil, ProcessorOptions{})
	ctx := context.Background()

	a := &models.CV{OwnerID: owner, RawText: "A"}
	b := &models.CV{OwnerID: owner, RawText: "B"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))
	submit := func(id uuid.UUID) error {
		_, err := p.Submit(ctx, SubmitRequest{DocumentID: id.String(), ModelName: "gpt4", OwnerID: owner})
		return err
	}

	// A occupies the only worker, B waits in the queue
	require.NoError(t, submit(a.ID))
	<-aEntered
	require.NoError(t, submit(b.ID))

	// the reaper gives up on the queued attempt and the client resubmits
	reaped, err := repo.FailStale(ctx, b.ID, time.Now().Add(time.Minute), staleJobMessage)
	require.NoError(t, err)
	require.True(t, reaped)
	require.NoError(t, submit(b.ID))

	close(releaseA)

	select {
	case <-bEntered:
	case <-time.After(5 * time.Second):
		t.Fatal("resubmitted attempt never ran")
	}

	// the first attempt was dequeued before this one and must not have touched the record
	got, err := repo.FindByID(ctx, b.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessing, got.Status)
	assert.Nil(t, got.ProcessingError)

	close(releaseB)
	require.Eventually(t, func() bool {
		got, err := repo.FindByID(ctx, b.ID, owner)
		return err == nil && got.Status == models.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), bRuns.Load())
}
