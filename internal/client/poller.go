package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/cv-formatter/internal/models"
)

const (
	DefaultInterval    = 3 * time.Second
	DefaultMaxAttempts = 100
)

type OutcomeKind string

const (
	OutcomeCompleted    OutcomeKind = "completed"
	OutcomeFailed       OutcomeKind = "failed"
	OutcomeTimedOut     OutcomeKind = "timed_out"
	OutcomeNotFound     OutcomeKind = "not_found"
	OutcomeUnauthorized OutcomeKind = "unauthorized"
	OutcomeRejected     OutcomeKind = "rejected"
	OutcomeCancelled    OutcomeKind = "cancelled"
)

// Outcome is how a process-and-wait ended. Status is the last status seen,
// Err the error that ended the loop, if any.
type Outcome struct {
	Kind   OutcomeKind
	Status *models.StatusResponse
	Err    error
}

func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeCompleted:
		return "processing completed"
	case OutcomeFailed:
		if o.Status != nil && o.Status.ProcessingError != nil {
			return "processing failed: " + *o.Status.ProcessingError
		}
		return "processing failed"
	case OutcomeTimedOut:
		return "gave up waiting, the job may still be running"
	case OutcomeCancelled:
		return "cancelled"
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return string(o.Kind)
	}
}

type Poller struct {
	api         API
	Interval    time.Duration
	MaxAttempts int
	log         *zap.SugaredLogger
}

func NewPoller(api API) *Poller {
	return &Poller{
		api:         api,
		Interval:    DefaultInterval,
		MaxAttempts: DefaultMaxAttempts,
		log:         zap.S().Named("poller"),
	}
}

// Run submits the document for processing and waits for a terminal state.
func (p *Poller) Run(ctx context.Context, documentID, model string) Outcome {
	if _, err := p.api.Process(ctx, documentID, model); err != nil {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeCancelled, Err: ctx.Err()}
		}
		if kind, ok := terminalKind(err); ok {
			return Outcome{Kind: kind, Err: err}
		}
		return Outcome{Kind: OutcomeRejected, Err: err}
	}

	p.log.Infow("Processing accepted, polling", "document_id", documentID, "model", model)
	return p.Wait(ctx, documentID)
}

// Wait polls the status every Interval for at most MaxAttempts×Interval of
// wall-clock time, and at most MaxAttempts queries. Query errors other than
// not found and unauthorized are logged and retried.
func (p *Poller) Wait(ctx context.Context, documentID string) Outcome {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	ceiling := time.Duration(maxAttempts) * interval

	waitCtx, cancel := context.WithTimeout(ctx, ceiling)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *models.StatusResponse
	stopped := func() Outcome {
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeCancelled, Status: last, Err: ctx.Err()}
		}
		return Outcome{
			Kind:   OutcomeTimedOut,
			Status: last,
			Err:    fmt.Errorf("no terminal status after %s", ceiling),
		}
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-waitCtx.Done():
			return stopped()
		case <-ticker.C:
		}

		status, err := p.api.Status(waitCtx, documentID)
		if err != nil {
			if waitCtx.Err() != nil {
				return stopped()
			}
			if kind, ok := terminalKind(err); ok {
				return Outcome{Kind: kind, Status: last, Err: err}
			}
			p.log.Warnw("Status check failed, retrying", "document_id", documentID, "attempt", attempt, "error", err)
			continue
		}
		last = status

		if status.Status.IsTerminal() {
			if status.Status == models.StatusCompleted {
				return Outcome{Kind: OutcomeCompleted, Status: status}
			}
			return Outcome{Kind: OutcomeFailed, Status: status}
		}
	}

	return Outcome{
		Kind:   OutcomeTimedOut,
		Status: last,
		Err:    fmt.Errorf("no terminal status after %d attempts", maxAttempts),
	}
}

func terminalKind(err error) (OutcomeKind, bool) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "", false
	}
	switch apiErr.StatusCode {
	case http.StatusNotFound:
		return OutcomeNotFound, true
	case http.StatusUnauthorized:
		return OutcomeUnauthorized, true
	}
	return "", false
}
