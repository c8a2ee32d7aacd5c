// Package metrics exposes Prometheus collectors for the encode pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stopmotion"

// Job outcomes recorded by JobFinished.
const (
	OutcomeDone     = "done"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Metrics groups the collectors updated by the session store and encode workflow.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	jobs             *prometheus.CounterVec
	jobDuration      prometheus.Histogram
	framesNormalized prometheus.Counter
	normalizeSeconds prometheus.Histogram
	encodeProgress   prometheus.Gauge
	sessionImages    prometheus.Gauge
}

// New creates the collectors and registers them with reg. Passing nil skips
// registration, which keeps tests independent of the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encode_jobs_total",
			Help:      "Encode jobs by terminal outcome.",
		}, []string{"outcome"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "encode_job_duration_seconds",
			Help:      "Wall time of encode jobs from start to cleanup.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		framesNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_normalized_total",
			Help:      "Frames normalized and written to the encoder.",
		}),
		normalizeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_normalize_duration_seconds",
			Help:      "Time spent normalizing one frame.",
			Buckets:   prometheus.DefBuckets,
		}),
		encodeProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "encode_progress_ratio",
			Help:      "Progress of the active encode job in [0,1].",
		}),
		sessionImages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_images",
			Help:      "Images currently held by the session store.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.jobDuration, m.framesNormalized, m.normalizeSeconds, m.encodeProgress, m.sessionImages)
	}
	return m
}

// JobFinished records a terminal job outcome and its duration.
func (m *Metrics) JobFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
	if outcome != OutcomeRejected {
		m.jobDuration.Observe(elapsed.Seconds())
	}
}

// FrameNormalized records one normalized frame.
func (m *Metrics) FrameNormalized(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.framesNormalized.Inc()
	m.normalizeSeconds.Observe(elapsed.Seconds())
}

// SetProgress publishes the active job's progress ratio.
func (m *Metrics) SetProgress(ratio float64) {
	if m == nil {
		return
	}
	m.encodeProgress.Set(ratio)
}

// SetSessionImages publishes the number of images in the session.
func (m *Metrics) SetSessionImages(n int) {
	if m == nil {
		return
	}
	m.sessionImages.Set(float64(n))
}
