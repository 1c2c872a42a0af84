package pipeline

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/recognition"
	"github.com/skypro1111/subtitle-pipeline/internal/speaker"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/vad"
)

const testSampleRate = 16000

type fakeRecognizer struct {
	mu         sync.Mutex
	calls      int
	text       string
	confidence float64
	err        error

	started chan struct{} // closed once on first call, may be nil
	block   chan struct{} // received from before returning, may be nil
}

func (f *fakeRecognizer) Recognize(ctx context.Context, pcm []float32, languageHint string) (*recognition.Result, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first && f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	return &recognition.Result{
		Text:       f.text,
		Language:   "en",
		Confidence: f.confidence,
	}, nil
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	embedding []float32
	err       error
}

func (f *fakeExtractor) Extract(ctx context.Context, pcm []float32) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.embedding, nil
}

func testPipelineConfig() Config {
	return Config{
		Chunker: audio.ChunkerConfig{
			SampleRate:      testSampleRate,
			ChunkDurationMs: 5000,
			OverlapMs:       0,
			MinSpeechMs:     0,
		},
		VAD: vad.DetectorConfig{
			SampleRate:      testSampleRate,
			WindowMs:        10,
			EnergyThreshold: 0.001,
			MinSpeechMs:     250,
		},
		Speaker: speaker.RegistryConfig{
			Dimension:      4,
			MatchThreshold: 0.8,
			Smoothing:      0.1,
		},
		PostProcessor: subtitle.PostProcessorConfig{
			MaxSegmentChars:       200,
			WordsPerMinute:        6000,
			MaxSubtitleDurationMs: 100000,
			MergeGapMs:            100,
		},
		MinConfidence: 0.5,
		Language:      "en",
		Workers:       2,
	}
}

// toneAt writes a 440 Hz sine into samples between the two millisecond marks.
func toneAt(samples []float32, fromMs, toMs int) {
	from := testSampleRate * fromMs / 1000
	to := testSampleRate * toMs / 1000
	for i := from; i < to && i < len(samples); i++ {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(testPipelineConfig(), Deps{}, nil, nil); err == nil {
		t.Error("Expected error for nil recognizer")
	}

	config := testPipelineConfig()
	config.Chunker.OverlapMs = config.Chunker.ChunkDurationMs
	if _, err := New(config, Deps{Recognizer: &fakeRecognizer{}}, nil, nil); err == nil {
		t.Error("Expected error for invalid chunker config")
	}
}

func TestGenerateSubtitles(t *testing.T) {
	rec := &fakeRecognizer{text: "hello world", confidence: 0.9}
	p, err := New(testPipelineConfig(), Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	// One 5-second chunk with two separated speech bursts.
	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)
	toneAt(samples, 3000, 4000)

	result := p.GenerateSubtitles(context.Background(), samples)

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if result.ChunksProcessed != 1 {
		t.Errorf("Expected 1 chunk processed, got %d", result.ChunksProcessed)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(result.Segments))
	}

	for i, seg := range result.Segments {
		if seg.Text != "Hello world." {
			t.Errorf("Segment %d: expected normalized text, got %q", i, seg.Text)
		}
		if seg.Confidence != 0.9 {
			t.Errorf("Segment %d: expected confidence 0.9, got %f", i, seg.Confidence)
		}
		if seg.Language != "en" {
			t.Errorf("Segment %d: expected language 'en', got %q", i, seg.Language)
		}
	}

	// Post-processing guarantees global time order.
	if result.Segments[0].StartMs >= result.Segments[1].StartMs {
		t.Error("Expected segments ordered by start time")
	}
	if result.Segments[0].EndMs > result.Segments[1].StartMs {
		t.Error("Expected segments non-overlapping")
	}
}

func TestGenerateSubtitlesMultipleChunksOrdered(t *testing.T) {
	rec := &fakeRecognizer{text: "chunk speech", confidence: 0.9}
	config := testPipelineConfig()
	config.Workers = 4

	p, err := New(config, Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	// Four chunks, each with one burst. Workers race but output is ordered.
	samples := make([]float32, testSampleRate*20)
	for chunk := 0; chunk < 4; chunk++ {
		base := chunk * 5000
		toneAt(samples, base+1000, base+2000)
	}

	result := p.GenerateSubtitles(context.Background(), samples)

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if result.ChunksProcessed != 4 {
		t.Errorf("Expected 4 chunks processed, got %d", result.ChunksProcessed)
	}
	if len(result.Segments) != 4 {
		t.Fatalf("Expected 4 segments, got %d", len(result.Segments))
	}

	for i := 1; i < len(result.Segments); i++ {
		if result.Segments[i].StartMs <= result.Segments[i-1].StartMs {
			t.Errorf("Segments %d/%d out of order: %d <= %d", i-1, i,
				result.Segments[i].StartMs, result.Segments[i-1].StartMs)
		}
	}
}

func TestGenerateSubtitlesSpeakerAttribution(t *testing.T) {
	rec := &fakeRecognizer{text: "same voice", confidence: 0.9}
	ext := &fakeExtractor{embedding: []float32{1, 0, 0, 0}}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec, Embeddings: ext}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)
	toneAt(samples, 3000, 4000)

	result := p.GenerateSubtitles(context.Background(), samples)

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(result.Segments))
	}

	if result.Segments[0].SpeakerID == "" {
		t.Fatal("Expected speaker attribution")
	}
	if result.Segments[0].SpeakerID != result.Segments[1].SpeakerID {
		t.Error("Expected identical embeddings to map to one speaker")
	}
	if len(result.Speakers) != 1 {
		t.Errorf("Expected 1 speaker profile, got %d", len(result.Speakers))
	}
}

func TestGenerateSubtitlesDimensionMismatchFatal(t *testing.T) {
	rec := &fakeRecognizer{text: "speech", confidence: 0.9}
	ext := &fakeExtractor{embedding: []float32{1, 0}} // registry expects 4

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec, Embeddings: ext}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)

	result := p.GenerateSubtitles(context.Background(), samples)

	if result.Success {
		t.Fatal("Expected failure for embedding dimension mismatch")
	}
	if !strings.Contains(result.Error, "dimension") {
		t.Errorf("Expected dimension mismatch error, got: %s", result.Error)
	}
}

func TestGenerateSubtitlesExtractionFailureKeepsSegment(t *testing.T) {
	rec := &fakeRecognizer{text: "speech", confidence: 0.9}
	ext := &fakeExtractor{err: context.DeadlineExceeded}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec, Embeddings: ext}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)

	result := p.GenerateSubtitles(context.Background(), samples)

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(result.Segments))
	}
	if result.Segments[0].SpeakerID != "" {
		t.Errorf("Expected no speaker attribution, got %q", result.Segments[0].SpeakerID)
	}
}

func TestGenerateSubtitlesRecognitionFailureSkipsRange(t *testing.T) {
	rec := &fakeRecognizer{err: context.DeadlineExceeded}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)

	result := p.GenerateSubtitles(context.Background(), samples)

	// A failed range loses its segment but does not fail the run.
	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Segments) != 0 {
		t.Errorf("Expected no segments, got %d", len(result.Segments))
	}
	if rec.callCount() == 0 {
		t.Error("Expected recognizer to be called")
	}
}

func TestGenerateSubtitlesLowConfidenceDropped(t *testing.T) {
	rec := &fakeRecognizer{text: "barely audible", confidence: 0.2}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*5)
	toneAt(samples, 500, 1500)

	result := p.GenerateSubtitles(context.Background(), samples)

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Segments) != 0 {
		t.Errorf("Expected low-confidence result dropped, got %d segments", len(result.Segments))
	}
}

func TestGenerateSubtitlesCancellation(t *testing.T) {
	rec := &fakeRecognizer{text: "speech", confidence: 0.9}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	samples := make([]float32, testSampleRate*10)
	toneAt(samples, 500, 1500)
	toneAt(samples, 6000, 7000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.GenerateSubtitles(ctx, samples)

	if result.Success {
		t.Fatal("Expected failure for cancelled context")
	}
	if result.Error == "" {
		t.Error("Expected error message")
	}
}

func TestGenerateSubtitlesSilentAudio(t *testing.T) {
	rec := &fakeRecognizer{text: "noise", confidence: 0.9}

	p, err := New(testPipelineConfig(), Deps{Recognizer: rec}, nil, nil)
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}

	result := p.GenerateSubtitles(context.Background(), make([]float32, testSampleRate*5))

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}
	if len(result.Segments) != 0 {
		t.Errorf("Expected no segments for silence, got %d", len(result.Segments))
	}
	if rec.callCount() != 0 {
		t.Errorf("Expected recognizer never called on silence, got %d calls", rec.callCount())
	}
}
