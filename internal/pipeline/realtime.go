package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/metrics"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/vad"
)

// ErrQueueFull is returned by Enqueue when the background queue cannot
// accept another buffer without blocking the caller.
var ErrQueueFull = errors.New("realtime queue full")

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("realtime processor closed")

// realtimeJob is one caller-supplied buffer positioned on the session
// timeline.
type realtimeJob struct {
	samples []float32
	startMs int64
}

// Realtime accepts one short audio buffer at a time from a low-latency
// caller. Enqueue never blocks: buffers are copied onto a bounded queue and
// processed by a background goroutine, and results are published on a
// channel in FIFO order.
type Realtime struct {
	detector   *vad.Detector
	assembler  *Assembler
	sampleRate int
	metrics    *metrics.Metrics // optional
	logger     *slog.Logger

	queue   chan realtimeJob
	results chan []subtitle.Segment
	done    chan struct{}

	mu       sync.Mutex
	offsetMs int64
	closed   bool

	// Statistics
	buffersAccepted uint64
	buffersRejected uint64
}

// RealtimeConfig contains configuration for the real-time entry point.
type RealtimeConfig struct {
	VAD       vad.DetectorConfig
	QueueSize int // Buffers held before Enqueue starts rejecting
}

// RealtimeStats represents real-time processor statistics.
type RealtimeStats struct {
	BuffersAccepted uint64 `json:"buffers_accepted"`
	BuffersRejected uint64 `json:"buffers_rejected"`
	QueueDepth      int    `json:"queue_depth"`
}

// NewRealtime creates a real-time processor sharing the pipeline's
// assembler and starts its background worker.
func (p *Pipeline) NewRealtime(config RealtimeConfig) (*Realtime, error) {
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}

	detector, err := vad.NewDetector(config.VAD)
	if err != nil {
		return nil, fmt.Errorf("invalid vad config: %w", err)
	}

	rt := &Realtime{
		detector:   detector,
		assembler:  p.assembler,
		sampleRate: config.VAD.SampleRate,
		metrics:    p.metrics,
		logger:     p.logger,
		queue:      make(chan realtimeJob, config.QueueSize),
		results:    make(chan []subtitle.Segment, config.QueueSize),
		done:       make(chan struct{}),
	}

	go rt.run()

	return rt, nil
}

// Enqueue hands one short buffer to the background processor. The buffer is
// copied, so the caller may reuse it immediately. Returns ErrQueueFull
// instead of blocking when the background path cannot keep up; the rejected
// buffer still advances the session timeline.
func (rt *Realtime) Enqueue(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return ErrClosed
	}

	job := realtimeJob{
		samples: append([]float32(nil), samples...),
		startMs: rt.offsetMs,
	}
	rt.offsetMs += audio.SamplesToMs(len(samples), rt.sampleRate)

	select {
	case rt.queue <- job:
		rt.buffersAccepted++
		if rt.metrics != nil {
			rt.metrics.RealtimeQueueDepth.Set(float64(len(rt.queue)))
		}
		return nil
	default:
		rt.buffersRejected++
		if rt.metrics != nil {
			rt.metrics.RealtimeRejected.Inc()
		}
		return ErrQueueFull
	}
}

// Results delivers segment batches in the order their buffers were
// enqueued. The channel is closed by Close once the queue drains.
func (rt *Realtime) Results() <-chan []subtitle.Segment {
	return rt.results
}

// GetStats returns current real-time processor statistics.
func (rt *Realtime) GetStats() RealtimeStats {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	return RealtimeStats{
		BuffersAccepted: rt.buffersAccepted,
		BuffersRejected: rt.buffersRejected,
		QueueDepth:      len(rt.queue),
	}
}

// Close stops accepting buffers, lets the worker drain the queue and closes
// the results channel.
func (rt *Realtime) Close() {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		<-rt.done
		return
	}
	rt.closed = true
	close(rt.queue)
	rt.mu.Unlock()

	<-rt.done
}

// run is the background processing loop.
func (rt *Realtime) run() {
	defer close(rt.done)
	defer close(rt.results)

	for job := range rt.queue {
		if rt.metrics != nil {
			rt.metrics.RealtimeQueueDepth.Set(float64(len(rt.queue)))
		}
		ranges := rt.detector.Detect(job.samples)
		if len(ranges) == 0 {
			continue
		}

		chunk := audio.AudioChunk{
			Samples:    job.samples,
			SampleRate: rt.sampleRate,
			StartMs:    job.startMs,
			EndMs:      job.startMs + audio.SamplesToMs(len(job.samples), rt.sampleRate),
		}

		segments, err := rt.assembler.AssembleChunk(context.Background(), chunk, ranges)
		if err != nil {
			rt.logger.Warn("realtime buffer skipped",
				slog.Int64("start_ms", job.startMs),
				slog.String("error", err.Error()),
			)
			continue
		}

		if len(segments) > 0 {
			rt.results <- segments
		}
	}
}
