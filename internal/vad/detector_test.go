package vad

import (
	"math"
	"testing"
)

const testSampleRate = 16000

func testConfig() DetectorConfig {
	return DetectorConfig{
		SampleRate:      testSampleRate,
		WindowMs:        10,
		EnergyThreshold: 0.001,
		MinSpeechMs:     250,
	}
}

// tone writes a 440 Hz sine at the given amplitude into samples[from:to].
func tone(samples []float32, from, to int, amplitude float64) {
	for i := from; i < to; i++ {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*440*float64(i)/testSampleRate))
	}
}

func msToSamples(ms int) int {
	return testSampleRate * ms / 1000
}

func TestNewDetectorValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    DetectorConfig
		expectErr bool
	}{
		{name: "valid config", config: testConfig(), expectErr: false},
		{
			name:      "zero sample rate",
			config:    DetectorConfig{SampleRate: 0, WindowMs: 10, EnergyThreshold: 0.001},
			expectErr: true,
		},
		{
			name:      "zero window",
			config:    DetectorConfig{SampleRate: testSampleRate, WindowMs: 0, EnergyThreshold: 0.001},
			expectErr: true,
		},
		{
			name:      "negative threshold",
			config:    DetectorConfig{SampleRate: testSampleRate, WindowMs: 10, EnergyThreshold: -0.1},
			expectErr: true,
		},
		{
			name:      "window too small for sample rate",
			config:    DetectorConfig{SampleRate: 100, WindowMs: 10, EnergyThreshold: 0.001},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDetector(tt.config)
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDetectSilence(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// 10 seconds of silence.
	samples := make([]float32, msToSamples(10000))
	ranges := detector.Detect(samples)

	if len(ranges) != 0 {
		t.Errorf("Expected no voice ranges in silence, got %d", len(ranges))
	}
}

func TestDetectToneInSilence(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// 10 seconds of silence with a tone between 5.0s and 7.5s.
	samples := make([]float32, msToSamples(10000))
	tone(samples, msToSamples(5000), msToSamples(7500), 0.5)

	ranges := detector.Detect(samples)
	if len(ranges) != 1 {
		t.Fatalf("Expected 1 voice range, got %d", len(ranges))
	}

	r := ranges[0]
	tolerance := msToSamples(50)
	if abs(r.StartSample-msToSamples(5000)) > tolerance {
		t.Errorf("Expected range start near sample %d, got %d", msToSamples(5000), r.StartSample)
	}
	if abs(r.EndSample-msToSamples(7500)) > tolerance {
		t.Errorf("Expected range end near sample %d, got %d", msToSamples(7500), r.EndSample)
	}
}

func TestDetectZeroThresholdMarksEverything(t *testing.T) {
	config := testConfig()
	config.EnergyThreshold = 0

	detector, err := NewDetector(config)
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// Pure silence still counts as voiced at threshold zero.
	samples := make([]float32, msToSamples(2000))
	ranges := detector.Detect(samples)

	if len(ranges) != 1 {
		t.Fatalf("Expected 1 voice range, got %d", len(ranges))
	}
	if ranges[0].StartSample != 0 {
		t.Errorf("Expected range to start at 0, got %d", ranges[0].StartSample)
	}
	if ranges[0].EndSample != len(samples) {
		t.Errorf("Expected range to end at %d, got %d", len(samples), ranges[0].EndSample)
	}
}

func TestDetectDiscardsShortBursts(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// A 100 ms burst is below the 250 ms minimum speech duration.
	samples := make([]float32, msToSamples(3000))
	tone(samples, msToSamples(1000), msToSamples(1100), 0.5)

	ranges := detector.Detect(samples)
	if len(ranges) != 0 {
		t.Errorf("Expected short burst to be discarded, got %d ranges", len(ranges))
	}
}

func TestDetectMultipleRanges(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	samples := make([]float32, msToSamples(5000))
	tone(samples, msToSamples(500), msToSamples(1500), 0.5)
	tone(samples, msToSamples(3000), msToSamples(4000), 0.5)

	ranges := detector.Detect(samples)
	if len(ranges) != 2 {
		t.Fatalf("Expected 2 voice ranges, got %d", len(ranges))
	}

	if ranges[0].StartSample >= ranges[1].StartSample {
		t.Error("Expected ranges in chronological order")
	}
}

func TestDetectFlushesTrailingRun(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	// Tone runs to the end of the chunk; the open run must be flushed.
	samples := make([]float32, msToSamples(2000))
	tone(samples, msToSamples(1000), len(samples), 0.5)

	ranges := detector.Detect(samples)
	if len(ranges) != 1 {
		t.Fatalf("Expected 1 voice range, got %d", len(ranges))
	}
	if ranges[0].EndSample != len(samples) {
		t.Errorf("Expected trailing range to end at %d, got %d", len(samples), ranges[0].EndSample)
	}
}

func TestDetectInputShorterThanWindow(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	ranges := detector.Detect(make([]float32, 10))
	if len(ranges) != 0 {
		t.Errorf("Expected no ranges for input shorter than a window, got %d", len(ranges))
	}
}

func TestDetectorStats(t *testing.T) {
	detector, err := NewDetector(testConfig())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}

	samples := make([]float32, msToSamples(1000))
	tone(samples, 0, len(samples), 0.5)
	detector.Detect(samples)

	stats := detector.GetStats()
	if stats.TotalWindows == 0 {
		t.Error("Expected windows to be counted")
	}
	if stats.VoicedWindows != stats.TotalWindows {
		t.Errorf("Expected all %d windows voiced, got %d", stats.TotalWindows, stats.VoicedWindows)
	}
	if stats.VoicePercentage != 100 {
		t.Errorf("Expected 100%% voice, got %f", stats.VoicePercentage)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
