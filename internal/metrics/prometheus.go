package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription pipeline
type Metrics struct {
	// Capture metrics
	ChunksCaptured prometheus.Counter
	SamplesDropped prometheus.Counter
	RingOccupancy  prometheus.Gauge

	// Classification metrics
	FramesClassified prometheus.Counter
	SpeechFrames     prometheus.Counter

	// Endpointing metrics
	UtterancesStarted    prometheus.Counter
	UtterancesDispatched prometheus.Counter
	UtterancesDiscarded  prometheus.Counter
	ForcedSplits         prometheus.Counter
	UtteranceDuration    prometheus.Histogram
	UtteranceSize        prometheus.Histogram

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		ChunksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_chunks_captured_total",
			Help: "Total number of audio chunks delivered by the capture source",
		}),
		SamplesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_samples_dropped_total",
			Help: "Total number of samples dropped because the utterance buffer was full",
		}),
		RingOccupancy: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wrt_ring_occupancy_samples",
			Help: "Current number of samples buffered in the utterance ring",
		}),

		// Classification metrics
		FramesClassified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_frames_classified_total",
			Help: "Total number of frames run through the voice activity classifier",
		}),
		SpeechFrames: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_speech_frames_total",
			Help: "Total number of frames classified as speech",
		}),

		// Endpointing metrics
		UtterancesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_utterances_started_total",
			Help: "Total number of speech windows opened",
		}),
		UtterancesDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_utterances_dispatched_total",
			Help: "Total number of utterances sent to transcription",
		}),
		UtterancesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_utterances_discarded_total",
			Help: "Total number of utterances discarded below the minimum duration",
		}),
		ForcedSplits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_forced_splits_total",
			Help: "Total number of utterances force-split at the capacity bound",
		}),
		UtteranceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wrt_utterance_duration_seconds",
			Help:    "Duration of dispatched utterances",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~1 minute
		}),
		UtteranceSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wrt_utterance_size_samples",
			Help:    "Size of dispatched utterances in samples",
			Buckets: prometheus.ExponentialBuckets(8000, 2, 8), // 0.5s to ~1 minute at 16 kHz
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wrt_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wrt_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wrt_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wrt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordChunkCaptured increments the captured chunk counter
func (m *Metrics) RecordChunkCaptured() {
	m.ChunksCaptured.Inc()
}

// RecordSamplesDropped adds to the dropped samples counter
func (m *Metrics) RecordSamplesDropped(count int) {
	m.SamplesDropped.Add(float64(count))
}

// SetRingOccupancy sets the current ring occupancy
func (m *Metrics) SetRingOccupancy(samples int) {
	m.RingOccupancy.Set(float64(samples))
}

// RecordFrameClassified increments frames classified and optionally speech frames
func (m *Metrics) RecordFrameClassified(isSpeech bool) {
	m.FramesClassified.Inc()
	if isSpeech {
		m.SpeechFrames.Inc()
	}
}

// RecordUtteranceStarted increments the speech windows opened counter
func (m *Metrics) RecordUtteranceStarted() {
	m.UtterancesStarted.Inc()
}

// RecordUtteranceDispatched records an utterance handed to transcription
func (m *Metrics) RecordUtteranceDispatched(durationSeconds float64, sizeSamples int) {
	m.UtterancesDispatched.Inc()
	m.UtteranceDuration.Observe(durationSeconds)
	m.UtteranceSize.Observe(float64(sizeSamples))
}

// RecordUtteranceDiscarded increments the below-minimum discard counter
func (m *Metrics) RecordUtteranceDiscarded() {
	m.UtterancesDiscarded.Inc()
}

// RecordForcedSplit increments the forced split counter
func (m *Metrics) RecordForcedSplit() {
	m.ForcedSplits.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
