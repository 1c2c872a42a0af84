package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Adapter forwards voiced audio to a Recognizer, discards results below the
// configured confidence threshold and rebases word timings onto the global
// millisecond timeline.
type Adapter struct {
	recognizer    Recognizer
	minConfidence float64
	logger        *slog.Logger

	// Statistics
	requests uint64
	dropped  uint64
	failed   uint64

	mu sync.RWMutex
}

// AdapterStats represents adapter statistics.
type AdapterStats struct {
	Requests uint64 `json:"requests"`
	Dropped  uint64 `json:"dropped"`
	Failed   uint64 `json:"failed"`
}

// NewAdapter creates a recognition adapter. logger may be nil.
func NewAdapter(recognizer Recognizer, minConfidence float64, logger *slog.Logger) (*Adapter, error) {
	if recognizer == nil {
		return nil, fmt.Errorf("recognizer cannot be nil")
	}

	if minConfidence < 0 || minConfidence > 1 {
		return nil, fmt.Errorf("min confidence must be between 0 and 1, got %f", minConfidence)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Adapter{
		recognizer:    recognizer,
		minConfidence: minConfidence,
		logger:        logger,
	}, nil
}

// Recognize runs the recognizer on one voiced range. globalStartMs is the
// range's position on the stream timeline; word timings in the returned
// result are global. A below-threshold result is dropped silently: (nil, nil).
func (a *Adapter) Recognize(ctx context.Context, pcm []float32, globalStartMs int64, languageHint string) (*Result, error) {
	a.increment(&a.requests)

	res, err := a.recognizer.Recognize(ctx, pcm, languageHint)
	if err != nil {
		a.increment(&a.failed)
		return nil, fmt.Errorf("recognition failed: %w", err)
	}

	if res == nil || res.Text == "" || res.Confidence < a.minConfidence {
		a.increment(&a.dropped)
		a.logger.Debug("recognition result dropped",
			slog.Int64("start_ms", globalStartMs),
			slog.Float64("confidence", resultConfidence(res)),
			slog.Float64("min_confidence", a.minConfidence),
		)
		return nil, nil
	}

	out := *res
	out.Words = make([]Word, len(res.Words))
	for i, w := range res.Words {
		w.StartMs += globalStartMs
		w.EndMs += globalStartMs
		out.Words[i] = w
	}

	return &out, nil
}

// GetStats returns current adapter statistics.
func (a *Adapter) GetStats() AdapterStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return AdapterStats{
		Requests: a.requests,
		Dropped:  a.dropped,
		Failed:   a.failed,
	}
}

func (a *Adapter) increment(counter *uint64) {
	a.mu.Lock()
	*counter++
	a.mu.Unlock()
}

func resultConfidence(res *Result) float64 {
	if res == nil {
		return 0
	}
	return res.Confidence
}
