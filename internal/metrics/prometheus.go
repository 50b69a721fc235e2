package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription pipeline
type Metrics struct {
	// Capture metrics
	FramesCaptured prometheus.Counter
	FramesVoiced   prometheus.Counter
	CaptureErrors  prometheus.Counter

	// Silence detection metrics
	Boundaries     prometheus.Counter
	LevelObserved  prometheus.Histogram

	// Segment metrics
	SegmentsFlushed   prometheus.Counter
	SegmentsDiscarded *prometheus.CounterVec
	SegmentDuration   prometheus.Histogram
	SegmentSize       prometheus.Histogram

	// Dispatch metrics
	DispatchesSent      prometheus.Counter
	DispatchesSucceeded prometheus.Counter
	DispatchesFailed    prometheus.Counter
	DispatchDuration    prometheus.Histogram

	// Session metrics
	SessionActive   prometheus.Gauge
	SessionDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the default registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer. Tests pass
// a fresh registry so repeated construction does not collide.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Capture metrics
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_frames_captured_total",
			Help: "Total number of audio frames captured",
		}),
		FramesVoiced: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_frames_voiced_total",
			Help: "Total number of frames at or above the silence threshold",
		}),
		CaptureErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_capture_errors_total",
			Help: "Total number of capture device errors",
		}),

		// Silence detection metrics
		Boundaries: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_silence_boundaries_total",
			Help: "Total number of silence boundaries detected",
		}),
		LevelObserved: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_frame_level",
			Help:    "Measured loudness level of captured frames",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 11), // 0.001 to ~1.0
		}),

		// Segment metrics
		SegmentsFlushed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_segments_flushed_total",
			Help: "Total number of segments flushed for dispatch",
		}),
		SegmentsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_segments_discarded_total",
			Help: "Total number of segments discarded at flush",
		}, []string{"reason"}),
		SegmentDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_segment_duration_seconds",
			Help:    "Duration of flushed segments",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 0.25s to ~1 minute
		}),
		SegmentSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_segment_size_bytes",
			Help:    "Encoded size of flushed segments in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Dispatch metrics
		DispatchesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_dispatches_sent_total",
			Help: "Total number of segments submitted for transcription",
		}),
		DispatchesSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_dispatches_succeeded_total",
			Help: "Total number of segments transcribed successfully",
		}),
		DispatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mic_dispatches_failed_total",
			Help: "Total number of segments whose transcription failed",
		}),
		DispatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_dispatch_duration_seconds",
			Help:    "Time from segment submission to its result",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Session metrics
		SessionActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mic_session_active",
			Help: "Whether a capture session is currently recording",
		}),
		SessionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_session_duration_seconds",
			Help:    "Duration of completed capture sessions",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~1 hour
		}),

		// HTTP API metrics
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mic_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrame records one captured frame and its measured level
func (m *Metrics) RecordFrame(level float64, voiced bool) {
	m.FramesCaptured.Inc()
	m.LevelObserved.Observe(level)
	if voiced {
		m.FramesVoiced.Inc()
	}
}

// RecordCaptureError increments the capture errors counter
func (m *Metrics) RecordCaptureError() {
	m.CaptureErrors.Inc()
}

// RecordBoundary increments the silence boundaries counter
func (m *Metrics) RecordBoundary() {
	m.Boundaries.Inc()
}

// RecordSegmentFlushed records a flushed segment
func (m *Metrics) RecordSegmentFlushed(durationSeconds float64, sizeBytes int) {
	m.SegmentsFlushed.Inc()
	m.SegmentDuration.Observe(durationSeconds)
	m.SegmentSize.Observe(float64(sizeBytes))
}

// RecordSegmentDiscarded records a discarded segment with its reason
func (m *Metrics) RecordSegmentDiscarded(reason string) {
	m.SegmentsDiscarded.WithLabelValues(reason).Inc()
}

// RecordDispatchSent increments the dispatches sent counter
func (m *Metrics) RecordDispatchSent() {
	m.DispatchesSent.Inc()
}

// RecordDispatchResult records a dispatch outcome and its round-trip time
func (m *Metrics) RecordDispatchResult(ok bool, durationSeconds float64) {
	if ok {
		m.DispatchesSucceeded.Inc()
	} else {
		m.DispatchesFailed.Inc()
	}
	m.DispatchDuration.Observe(durationSeconds)
}

// SetSessionActive sets the session activity gauge
func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.SessionActive.Set(1)
	} else {
		m.SessionActive.Set(0)
	}
}

// RecordSessionEnded records the duration of a completed session
func (m *Metrics) RecordSessionEnded(durationSeconds float64) {
	m.SessionDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
