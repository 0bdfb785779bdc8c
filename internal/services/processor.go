package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/models"
	"alfredoptarigan/cv-formatter/internal/repositories"
)

// ValidationError is a rejected request that did not change any state.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

type SubmitRequest struct {
	DocumentID string
	ModelName  string
	OwnerID    string
}

type Processor interface {
	// Submit validates the request, persists the processing state and schedules
	// the model run. It returns once the processing state is durable.
	Submit(ctx context.Context, req SubmitRequest) (*models.ProcessResponse, error)
}

type ProcessorOptions struct {
	JobTimeout time.Duration
}

type processor struct {
	cvRepo   repositories.CVRepository
	adapters *Adapters
	worker   Worker
	index    TalentIndex
	metrics  *Metrics
	opts     ProcessorOptions
	log      *zap.SugaredLogger
}

func NewProcessor(
	cvRepo repositories.CVRepository,
	adapters *Adapters,
	worker Worker,
	index TalentIndex,
	metrics *Metrics,
	opts ProcessorOptions,
) Processor {
	if index == nil {
		index = NoopTalentIndex{}
	}
	return &processor{
		cvRepo:   cvRepo,
		adapters: adapters,
		worker:   worker,
		index:    index,
		metrics:  metrics,
		opts:     opts,
		log:      zap.S().Named("processor"),
	}
}

func (p *processor) Submit(ctx context.Context, req SubmitRequest) (*models.ProcessResponse, error) {
	if strings.TrimSpace(req.DocumentID) == "" || strings.TrimSpace(req.ModelName) == "" {
		return nil, newValidationError("CV ID and model are required")
	}

	id, err := uuid.Parse(req.DocumentID)
	if err != nil {
		return nil, newValidationError("Invalid CV ID format")
	}

	model, err := ParseModelName(req.ModelName)
	if err != nil {
		return nil, newValidationError("Invalid model selected. Supported models: " + supportedModelList())
	}

	cv, err := p.cvRepo.FindByID(ctx, id, req.OwnerID)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cv.RawText) == "" {
		return nil, newValidationError("CV has no content to process")
	}

	attempt, err := p.cvRepo.MarkProcessing(ctx, id, req.OwnerID)
	if err != nil {
		return nil, err
	}

	p.metrics.JobSubmitted(model)
	p.log.Infow("📥 Processing accepted", "cv_id", id, "model", model)

	acceptedAt := time.Now()
	rawText := cv.RawText
	ownerID := req.OwnerID

	err = p.worker.Submit(Task{
		Name: id.String(),
		Run: func(ctx context.Context) error {
			return p.run(ctx, id, attempt, ownerID, model, rawText)
		},
		Abort: func(err error) {
			p.recordFailure(id, attempt, model, fmt.Sprintf("processing aborted: %v", err), acceptedAt)
		},
	})
	if err != nil {
		p.recordFailure(id, attempt, model, fmt.Sprintf("processing could not be scheduled: %v", err), acceptedAt)
		return nil, fmt.Errorf("failed to schedule processing: %w", err)
	}

	return &models.ProcessResponse{
		DocumentID: id.String(),
		Status:     models.StatusProcessing,
	}, nil
}

func (p *processor) run(ctx context.Context, id, attempt uuid.UUID, ownerID string, model ModelName, rawText string) error {
	start := time.Now()
	log := p.log.With("cv_id", id, "model", model, "attempt", attempt)

	if err := p.cvRepo.StartAttempt(ctx, id, attempt); err != nil {
		if errors.Is(err, repositories.ErrAttemptSuperseded) {
			log.Warnw("⚠️  Attempt superseded while queued, skipping")
			return nil
		}
		p.recordFailure(id, attempt, model, fmt.Sprintf("failed to start processing: %v", err), start)
		return err
	}
	log.Infow("🔄 Processing started")

	jobCtx := ctx
	if p.opts.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.opts.JobTimeout)
		defer cancel()
	}

	artifacts, err := p.adapters.Get(model).Process(jobCtx, rawText)
	if err == nil {
		err = checkComplete(artifacts)
	}
	if err != nil {
		p.recordFailure(id, attempt, model, err.Error(), start)
		return err
	}

	// The outcome must be recorded even when the worker is shutting down.
	persistCtx := context.WithoutCancel(ctx)

	err = p.cvRepo.UpdateResult(persistCtx, id, attempt, &repositories.ResultData{
		Model:                  string(model),
		StructuredCV:           artifacts.StructuredCV,
		StructuredRegistration: artifacts.StructuredRegistration,
		PreviewMarkup:          artifacts.PreviewMarkup,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrAttemptSuperseded) {
			log.Warnw("⚠️  CV deleted or attempt superseded, result discarded")
			return nil
		}
		p.recordFailure(id, attempt, model, fmt.Sprintf("failed to save processing result: %v", err), start)
		return err
	}

	p.metrics.JobFinished(model, string(models.StatusCompleted), time.Since(start))
	log.Infow("✅ Processing completed", "status", models.StatusCompleted, "duration_ms", time.Since(start).Milliseconds())

	p.indexCompleted(persistCtx, log, id, ownerID, artifacts.StructuredCV)
	return nil
}

// indexCompleted runs after the result is committed, so nothing it does may
// turn the run into a failure.
func (p *processor) indexCompleted(ctx context.Context, log *zap.SugaredLogger, id uuid.UUID, ownerID string, structuredCV []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("❌ Indexing panicked", "panic", r)
		}
	}()

	if err := p.index.IndexCV(ctx, id, ownerID, structuredCV); err != nil {
		log.Warnw("⚠️  Failed to index CV", "error", err)
	}
}

// recordFailure writes the failed state for attempt. If that write fails too
// the record stays in processing until the reaper picks it up.
func (p *processor) recordFailure(id, attempt uuid.UUID, model ModelName, msg string, start time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := p.log.With("cv_id", id, "model", model, "attempt", attempt)

	if err := p.cvRepo.UpdateError(ctx, id, attempt, string(model), msg); err != nil {
		if errors.Is(err, repositories.ErrAttemptSuperseded) {
			log.Debugw("Attempt no longer current, failure not recorded", "processing_error", msg)
			return
		}
		p.metrics.JobStuck()
		log.Errorw("❌ Failed to record processing failure, job left in processing", "processing_error", msg, "error", err)
		return
	}

	p.metrics.JobFinished(model, string(models.StatusFailed), time.Since(start))
	log.Warnw("❌ Processing failed", "status", models.StatusFailed, "processing_error", msg, "duration_ms", time.Since(start).Milliseconds())
}

func checkComplete(a *Artifacts) error {
	if a == nil || len(a.StructuredCV) == 0 || len(a.StructuredRegistration) == 0 || strings.TrimSpace(a.PreviewMarkup) == "" {
		return errors.New("AI service returned incomplete data")
	}
	return nil
}
