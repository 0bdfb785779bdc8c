package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	jobsSubmitted *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	llmCalls      *prometheus.CounterVec
	stuckJobs     prometheus.Counter
	workerPanics  prometheus.Counter
	reapedJobs    prometheus.Counter
}

// NewMetrics registers the pipeline collectors on reg. A nil *Metrics is valid
// and records nothing.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_jobs_submitted_total",
			Help: "CV processing jobs accepted, by model.",
		}, []string{"model"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_jobs_finished_total",
			Help: "CV processing jobs that reached a terminal state.",
		}, []string{"model", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cv_job_duration_seconds",
			Help:    "Wall time of a CV processing job.",
			Buckets: []float64{1, 5, 10, 20, 40, 60, 120, 300, 600},
		}, []string{"model"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cv_llm_calls_total",
			Help: "Backend calls by model, stage and outcome.",
		}, []string{"model", "stage", "outcome"}),
		stuckJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cv_processing_stuck_total",
			Help: "Jobs whose failure could not be recorded and were left in processing.",
		}),
		workerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cv_worker_panics_total",
			Help: "Panics recovered inside worker tasks.",
		}),
		reapedJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cv_reaped_jobs_total",
			Help: "Stale processing jobs failed by the reaper.",
		}),
	}

	reg.MustRegister(
		m.jobsSubmitted,
		m.jobsFinished,
		m.jobDuration,
		m.llmCalls,
		m.stuckJobs,
		m.workerPanics,
		m.reapedJobs,
	)
	return m
}

func (m *Metrics) JobSubmitted(model ModelName) {
	if m == nil {
		return
	}
	m.jobsSubmitted.WithLabelValues(string(model)).Inc()
}

func (m *Metrics) JobFinished(model ModelName, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobsFinished.WithLabelValues(string(model), status).Inc()
	m.jobDuration.WithLabelValues(string(model)).Observe(d.Seconds())
}

func (m *Metrics) ObserveLLMCall(model ModelName, stage Stage, outcome string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(string(model), string(stage), outcome).Inc()
}

func (m *Metrics) JobStuck() {
	if m == nil {
		return
	}
	m.stuckJobs.Inc()
}

func (m *Metrics) WorkerPanic() {
	if m == nil {
		return
	}
	m.workerPanics.Inc()
}

func (m *Metrics) JobsReaped(n int) {
	if m == nil {
		return
	}
	m.reapedJobs.Add(float64(n))
}
