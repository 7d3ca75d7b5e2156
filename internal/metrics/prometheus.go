package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice notes service
type Metrics struct {
	// Recording sessions
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	ActiveSessions    prometheus.Gauge
	SessionDuration   prometheus.Histogram
	AudioBytes        prometheus.Counter
	FinalizeErrors    prometheus.Counter

	// Transcription
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram
	PendingBytesDropped    prometheus.Counter

	// Live channel
	Subscribers       prometheus.Gauge
	EventsBroadcast   *prometheus.CounterVec
	SubscribersPruned prometheus.Counter

	// HTTP API
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_sessions_completed_total",
			Help: "Total number of recording sessions finalized",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicenotes_active_sessions",
			Help: "Number of sessions currently recording",
		}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicenotes_session_audio_seconds",
			Help:    "Audio length of finalized sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1h
		}),
		AudioBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_audio_bytes_total",
			Help: "PCM bytes appended to sessions",
		}),
		FinalizeErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_finalize_errors_total",
			Help: "Sessions whose final WAV could not be written",
		}),

		TranscriptionRequests: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_transcription_requests_total",
			Help: "Transcription attempts",
		}),
		TranscriptionSuccesses: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_transcription_successes_total",
			Help: "Successful transcription attempts",
		}),
		TranscriptionFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_transcription_failures_total",
			Help: "Failed transcription attempts",
		}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicenotes_transcription_duration_seconds",
			Help:    "Duration of transcription attempts",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1 minute
		}),
		PendingBytesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_pending_bytes_dropped_total",
			Help: "Untranscribed bytes discarded by the pending window cap",
		}),

		Subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "voicenotes_ws_subscribers",
			Help: "Live channel subscribers",
		}),
		EventsBroadcast: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicenotes_events_broadcast_total",
			Help: "Events broadcast to the live channel",
		}, []string{"type"}),
		SubscribersPruned: f.NewCounter(prometheus.CounterOpts{
			Name: "voicenotes_ws_subscribers_pruned_total",
			Help: "Subscribers removed after a failed delivery",
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "voicenotes_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicenotes_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

func (m *Metrics) RecordSessionCompleted(audioSeconds float64) {
	m.SessionsCompleted.Inc()
	m.ActiveSessions.Dec()
	m.SessionDuration.Observe(audioSeconds)
}

func (m *Metrics) RecordAudio(bytes int) {
	m.AudioBytes.Add(float64(bytes))
}

func (m *Metrics) RecordFinalizeError() {
	m.FinalizeErrors.Inc()
}

func (m *Metrics) RecordTranscription(ok bool, durationSeconds float64) {
	m.TranscriptionRequests.Inc()
	if ok {
		m.TranscriptionSuccesses.Inc()
	} else {
		m.TranscriptionFailures.Inc()
	}
	m.TranscriptionDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordPendingDropped(bytes int) {
	m.PendingBytesDropped.Add(float64(bytes))
}

func (m *Metrics) SetSubscribers(n int) {
	m.Subscribers.Set(float64(n))
}

func (m *Metrics) RecordBroadcast(eventType string) {
	m.EventsBroadcast.WithLabelValues(eventType).Inc()
}

func (m *Metrics) RecordSubscriberPruned() {
	m.SubscribersPruned.Inc()
}

func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
