package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the subtitle pipeline
type Metrics struct {
	// Chunk metrics
	ChunksProcessed prometheus.Counter
	ChunksSkipped   prometheus.Counter

	// VAD metrics
	VoiceRangesDetected prometheus.Counter

	// Recognition metrics
	RecognitionRequests prometheus.Counter
	RecognitionFailures prometheus.Counter
	RecognitionDropped  prometheus.Counter
	RecognitionDuration prometheus.Histogram

	// Segment metrics
	SegmentsProduced   prometheus.Counter
	GenerationDuration prometheus.Histogram

	// Speaker metrics
	SpeakersRegistered prometheus.Gauge

	// Real-time metrics
	RealtimeQueueDepth prometheus.Gauge
	RealtimeRejected   prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ChunksProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_chunks_processed_total",
			Help: "Total number of audio chunks fully processed",
		}),
		ChunksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_chunks_skipped_total",
			Help: "Total number of audio chunks skipped after failure or timeout",
		}),

		VoiceRangesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_voice_ranges_detected_total",
			Help: "Total number of voiced ranges found by VAD",
		}),

		RecognitionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_recognition_requests_total",
			Help: "Total number of recognition requests sent",
		}),
		RecognitionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_recognition_failures_total",
			Help: "Total number of failed recognition requests",
		}),
		RecognitionDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_recognition_dropped_total",
			Help: "Total number of recognition results dropped below the confidence threshold",
		}),
		RecognitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "subtitle_recognition_duration_seconds",
			Help:    "Time spent on recognition requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}),

		SegmentsProduced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_segments_produced_total",
			Help: "Total number of subtitle segments produced after post-processing",
		}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "subtitle_generation_duration_seconds",
			Help:    "End-to-end duration of subtitle generation calls",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8.5 minutes
		}),

		SpeakersRegistered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subtitle_speakers_registered",
			Help: "Current number of speaker profiles in the registry",
		}),

		RealtimeQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "subtitle_realtime_queue_depth",
			Help: "Current number of buffers waiting in the realtime queue",
		}),
		RealtimeRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "subtitle_realtime_rejected_total",
			Help: "Total number of realtime buffers rejected because the queue was full",
		}),
	}
}
