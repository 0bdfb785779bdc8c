package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// ModelName is the closed set of language-model backends a CV can be processed with.
type ModelName string

const (
	ModelGPT4   ModelName = "gpt4"
	ModelClaude ModelName = "claude"
	ModelGemini ModelName = "gemini"
)

// SupportedModels lists every ModelName in display order.
var SupportedModels = []ModelName{ModelGPT4, ModelClaude, ModelGemini}

func ParseModelName(s string) (ModelName, error) {
	for _, m := range SupportedModels {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported model %q", s)
}

func supportedModelList() string {
	names := make([]string, len(SupportedModels))
	for i, m := range SupportedModels {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Artifacts is the validated output of one adapter run.
type Artifacts struct {
	StructuredCV           json.RawMessage
	StructuredRegistration json.RawMessage
	PreviewMarkup          string
}

// AdapterError is the only error kind a ModelAdapter returns.
type AdapterError struct {
	Model ModelName
	Stage Stage
	Err   error
}

func (e *AdapterError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s processing failed: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("%s processing failed: %s: %v", e.Model, e.Stage, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

type ModelAdapter interface {
	Process(ctx context.Context, rawText string) (*Artifacts, error)
}

// CompletionRequest is a single backend call.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Completer is one language-model backend.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// permanentError marks backend failures that must not be retried.
type permanentError struct{ error }

func (e permanentError) Unwrap() error { return e.error }

func permanent(err error) error {
	return permanentError{err}
}

type AdapterOptions struct {
	CallTimeout       time.Duration
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	Temperature       float64
}

type pipelineAdapter struct {
	name      ModelName
	backend   Completer
	prompts   *PromptBuilder
	validator *SchemaValidator
	opts      AdapterOptions
	metrics   *Metrics
	log       *zap.SugaredLogger
}

// NewModelAdapter wires a backend into the three-stage extraction pipeline.
func NewModelAdapter(name ModelName, backend Completer, validator *SchemaValidator, opts AdapterOptions, metrics *Metrics) ModelAdapter {
	if opts.RetryMaxAttempts < 1 {
		opts.RetryMaxAttempts = 1
	}
	return &pipelineAdapter{
		name:      name,
		backend:   backend,
		prompts:   NewPromptBuilder(),
		validator: validator,
		opts:      opts,
		metrics:   metrics,
		log:       zap.S().Named("adapter").With("model", name),
	}
}

func (a *pipelineAdapter) Process(ctx context.Context, rawText string) (*Artifacts, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, &AdapterError{Model: a.name, Err: errors.New("no content to process")}
	}

	userContent := a.prompts.BuildUserContent(rawText)

	cvRaw, err := a.call(ctx, StageCV, CompletionRequest{
		System:    a.prompts.BuildCVExtractionPrompt(),
		User:      userContent,
		MaxTokens: 4000,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}
	cvJSON := []byte(extractJSON(cvRaw))
	if err := a.validator.ValidateCV(cvJSON); err != nil {
		return nil, &AdapterError{Model: a.name, Stage: StageCV, Err: err}
	}

	regRaw, err := a.call(ctx, StageRegistration, CompletionRequest{
		System:    a.prompts.BuildRegistrationPrompt(),
		User:      userContent,
		MaxTokens: 1500,
		JSON:      true,
	})
	if err != nil {
		return nil, err
	}
	regJSON := []byte(extractJSON(regRaw))
	if err := a.validator.ValidateRegistration(regJSON); err != nil {
		return nil, &AdapterError{Model: a.name, Stage: StageRegistration, Err: err}
	}

	previewRaw, err := a.call(ctx, StagePreview, CompletionRequest{
		System:    a.prompts.BuildPreviewPrompt(),
		User:      string(cvJSON),
		MaxTokens: 3000,
	})
	if err != nil {
		return nil, err
	}
	preview, err := sanitizePreview(previewRaw)
	if err != nil {
		return nil, &AdapterError{Model: a.name, Stage: StagePreview, Err: err}
	}

	return &Artifacts{
		StructuredCV:           json.RawMessage(cvJSON),
		StructuredRegistration: json.RawMessage(regJSON),
		PreviewMarkup:          preview,
	}, nil
}

// call runs one backend call with a per-attempt timeout and exponential backoff
// on retryable failures.
func (a *pipelineAdapter) call(ctx context.Context, stage Stage, req CompletionRequest) (string, error) {
	req.Temperature = a.opts.Temperature

	bo := backoff.NewExponentialBackOff()
	if a.opts.RetryInitialDelay > 0 {
		bo.InitialInterval = a.opts.RetryInitialDelay
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(a.opts.RetryMaxAttempts-1)), ctx)

	start := time.Now()
	attempt := 0
	var out string
	err := backoff.Retry(func() error {
		attempt++
		callCtx := ctx
		if a.opts.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, a.opts.CallTimeout)
			defer cancel()
		}

		text, err := a.backend.Complete(callCtx, req)
		if err != nil {
			var perm permanentError
			if errors.As(err, &perm) {
				return backoff.Permanent(err)
			}
			a.log.Warnw("LLM call failed, retrying", "stage", stage, "attempt", attempt, "error", err)
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("empty response")
		}
		out = text
		return nil
	}, policy)

	if err != nil {
		a.metrics.ObserveLLMCall(a.name, stage, "error")
		a.log.Errorw("LLM call failed", "stage", stage, "attempts", attempt, "error", err)
		return "", &AdapterError{Model: a.name, Stage: stage, Err: err}
	}

	a.metrics.ObserveLLMCall(a.name, stage, "ok")
	a.log.Debugw("LLM call completed", "stage", stage, "attempts", attempt, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

// unconfiguredAdapter stands in for a backend whose credentials are missing.
type unconfiguredAdapter struct {
	name ModelName
	err  error
}

func (a *unconfiguredAdapter) Process(ctx context.Context, rawText string) (*Artifacts, error) {
	return nil, &AdapterError{Model: a.name, Err: a.err}
}

// Adapters is the strategy table from model name to adapter.
type Adapters struct {
	byName map[ModelName]ModelAdapter
}

func NewAdapters(m map[ModelName]ModelAdapter) *Adapters {
	byName := make(map[ModelName]ModelAdapter, len(SupportedModels))
	for _, name := range SupportedModels {
		if a, ok := m[name]; ok && a != nil {
			byName[name] = a
			continue
		}
		byName[name] = &unconfiguredAdapter{name: name, err: errors.New("adapter not configured")}
	}
	return &Adapters{byName: byName}
}

func (a *Adapters) Get(name ModelName) ModelAdapter {
	return a.byName[name]
}

type BackendConfig struct {
	OpenAIAPIKey    string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
}

// BuildAdapters creates one adapter per supported model. Backends without an API
// key fail every Process call before any network request.
func BuildAdapters(ctx context.Context, cfg BackendConfig, opts AdapterOptions, metrics *Metrics) (*Adapters, error) {
	validator, err := NewSchemaValidator()
	if err != nil {
		return nil, err
	}

	table := make(map[ModelName]ModelAdapter, len(SupportedModels))

	if cfg.OpenAIAPIKey == "" {
		table[ModelGPT4] = &unconfiguredAdapter{name: ModelGPT4, err: errors.New("OpenAI API key not configured")}
	} else {
		table[ModelGPT4] = NewModelAdapter(ModelGPT4, NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel), validator, opts, metrics)
	}

	if cfg.AnthropicAPIKey == "" {
		table[ModelClaude] = &unconfiguredAdapter{name: ModelClaude, err: errors.New("Anthropic API key not configured")}
	} else {
		table[ModelClaude] = NewModelAdapter(ModelClaude, NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicModel), validator, opts, metrics)
	}

	if cfg.GeminiAPIKey == "" {
		table[ModelGemini] = &unconfiguredAdapter{name: ModelGemini, err: errors.New("Gemini API key not configured")}
	} else {
		gemini, err := NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, "")
		if err != nil {
			return nil, err
		}
		table[ModelGemini] = NewModelAdapter(ModelGemini, gemini, validator, opts, metrics)
	}

	return NewAdapters(table), nil
}
