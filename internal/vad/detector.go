package vad

import (
	"fmt"
	"sync"
)

// VoiceRange represents a voiced sub-range of one chunk, expressed in
// chunk-local sample indexes [StartSample, EndSample).
type VoiceRange struct {
	StartSample int `json:"start_sample"`
	EndSample   int `json:"end_sample"`
}

// Samples returns the length of the range in samples.
func (r VoiceRange) Samples() int {
	return r.EndSample - r.StartSample
}

// DetectorConfig contains configuration for voice activity detection.
type DetectorConfig struct {
	SampleRate      int     // Samples per second
	WindowMs        int     // Analysis window size (typically 10 ms)
	EnergyThreshold float64 // Mean squared energy threshold; 0 marks everything voiced
	MinSpeechMs     int64   // Runs shorter than this are discarded
}

// Detector finds voiced sub-ranges inside a chunk via energy thresholding.
// Detection is a pure function of the samples and configuration; the
// Detector itself only keeps statistics.
type Detector struct {
	config     DetectorConfig
	windowSize int // Samples per analysis window
	stride     int // 50% of the window size

	// Statistics
	totalWindows  uint64
	voicedWindows uint64

	mu sync.RWMutex
}

// DetectorStats represents detector statistics.
type DetectorStats struct {
	TotalWindows    uint64  `json:"total_windows"`
	VoicedWindows   uint64  `json:"voiced_windows"`
	VoicePercentage float64 `json:"voice_percentage"`
	Threshold       float64 `json:"threshold"`
}

// NewDetector creates a new voice activity detector.
func NewDetector(config DetectorConfig) (*Detector, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if config.WindowMs <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d ms", config.WindowMs)
	}

	if config.EnergyThreshold < 0 {
		return nil, fmt.Errorf("energy threshold cannot be negative, got %f", config.EnergyThreshold)
	}

	if config.MinSpeechMs < 0 {
		return nil, fmt.Errorf("min speech duration cannot be negative, got %d ms", config.MinSpeechMs)
	}

	windowSize := config.SampleRate * config.WindowMs / 1000
	if windowSize < 2 {
		return nil, fmt.Errorf("window of %d ms at %d Hz is too small", config.WindowMs, config.SampleRate)
	}

	return &Detector{
		config:     config,
		windowSize: windowSize,
		stride:     windowSize / 2,
	}, nil
}

// Detect returns the voiced ranges of the chunk, in order. A run of
// consecutive voiced windows becomes a VoiceRange once it meets the minimum
// speech length; a run still active at the end of the chunk is flushed with
// its end extended to the end of the chunk.
func (d *Detector) Detect(samples []float32) []VoiceRange {
	if len(samples) < d.windowSize {
		return nil
	}

	minSpeechSamples := int(d.config.MinSpeechMs * int64(d.config.SampleRate) / 1000)

	var ranges []VoiceRange
	var windows, voiced uint64

	runStart := -1
	runEnd := 0

	for start := 0; start+d.windowSize <= len(samples); start += d.stride {
		windows++

		if d.windowEnergy(samples[start:start+d.windowSize]) >= d.config.EnergyThreshold {
			voiced++
			if runStart < 0 {
				runStart = start
			}
			runEnd = start + d.windowSize
			continue
		}

		if runStart >= 0 {
			if runEnd-runStart >= minSpeechSamples {
				ranges = append(ranges, VoiceRange{StartSample: runStart, EndSample: runEnd})
			}
			runStart = -1
		}
	}

	// Flush a run still active at the end of the chunk.
	if runStart >= 0 && len(samples)-runStart >= minSpeechSamples {
		ranges = append(ranges, VoiceRange{StartSample: runStart, EndSample: len(samples)})
	}

	d.mu.Lock()
	d.totalWindows += windows
	d.voicedWindows += voiced
	d.mu.Unlock()

	return ranges
}

// windowEnergy computes the mean squared energy of one analysis window.
func (d *Detector) windowEnergy(window []float32) float64 {
	var energy float64
	for _, s := range window {
		energy += float64(s) * float64(s)
	}
	return energy / float64(len(window))
}

// GetStats returns current detector statistics.
func (d *Detector) GetStats() DetectorStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	voicePercentage := float64(0)
	if d.totalWindows > 0 {
		voicePercentage = float64(d.voicedWindows) / float64(d.totalWindows) * 100
	}

	return DetectorStats{
		TotalWindows:    d.totalWindows,
		VoicedWindows:   d.voicedWindows,
		VoicePercentage: voicePercentage,
		Threshold:       d.config.EnergyThreshold,
	}
}

// GetWindowSize returns the analysis window size in samples.
func (d *Detector) GetWindowSize() int {
	return d.windowSize
}

// GetStride returns the window stride in samples.
func (d *Detector) GetStride() int {
	return d.stride
}
