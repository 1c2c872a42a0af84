package audio

import (
	"fmt"
	"sync"
)

// AudioChunk represents a contiguous window of PCM samples positioned on the
// global stream timeline. Chunks produced by the same Chunker overlap by the
// configured overlap duration.
type AudioChunk struct {
	Index      int       `json:"index"`
	Samples    []float32 `json:"-"` // Audio data (not serialized)
	SampleRate int       `json:"sample_rate"`
	StartMs    int64     `json:"start_ms"`
	EndMs      int64     `json:"end_ms"`
}

// DurationMs returns the chunk duration in milliseconds.
func (c AudioChunk) DurationMs() int64 {
	return c.EndMs - c.StartMs
}

// ChunkerConfig contains configuration for the chunking process.
type ChunkerConfig struct {
	SampleRate      int   // Samples per second (16000 for the recognition contract)
	ChunkDurationMs int64 // Duration of each analysis chunk
	OverlapMs       int64 // Overlap between consecutive chunks
	MinSpeechMs     int64 // Trailing chunks shorter than this are dropped
}

// Chunker splits a full sample buffer into overlapping fixed-size analysis
// chunks. Splitting is a pure transform; the Chunker itself only keeps
// statistics.
type Chunker struct {
	config ChunkerConfig

	// Statistics
	chunksCreated uint64
	samplesSeen   uint64

	mu sync.RWMutex
}

// ChunkerStats represents chunker statistics.
type ChunkerStats struct {
	ChunksCreated uint64 `json:"chunks_created"`
	SamplesSeen   uint64 `json:"samples_seen"`
}

// NewChunker creates a new audio chunker. An overlap greater than or equal
// to the chunk duration is a configuration error.
func NewChunker(config ChunkerConfig) (*Chunker, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}

	if config.ChunkDurationMs <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %d ms", config.ChunkDurationMs)
	}

	if config.OverlapMs < 0 || config.OverlapMs >= config.ChunkDurationMs {
		return nil, fmt.Errorf("overlap must be in [0, chunk duration), got overlap=%d ms chunk=%d ms",
			config.OverlapMs, config.ChunkDurationMs)
	}

	if config.MinSpeechMs < 0 {
		return nil, fmt.Errorf("min speech duration cannot be negative, got %d ms", config.MinSpeechMs)
	}

	return &Chunker{config: config}, nil
}

// Split divides the sample buffer into ordered overlapping chunks. Each chunk
// advances by (chunk duration - overlap) from the previous chunk's start. A
// trailing chunk shorter than the configured minimum speech duration is
// dropped.
func (c *Chunker) Split(samples []float32) []AudioChunk {
	if len(samples) == 0 {
		return nil
	}

	chunkSamples := c.msToSamples(c.config.ChunkDurationMs)
	stepSamples := chunkSamples - c.msToSamples(c.config.OverlapMs)
	minSamples := c.msToSamples(c.config.MinSpeechMs)

	chunks := make([]AudioChunk, 0, len(samples)/stepSamples+1)

	for start := 0; start < len(samples); start += stepSamples {
		end := start + chunkSamples
		if end > len(samples) {
			end = len(samples)
		}

		if end-start < minSamples {
			break
		}

		chunks = append(chunks, AudioChunk{
			Index:      len(chunks),
			Samples:    samples[start:end],
			SampleRate: c.config.SampleRate,
			StartMs:    c.samplesToMs(start),
			EndMs:      c.samplesToMs(end),
		})

		if end == len(samples) {
			break
		}
	}

	c.mu.Lock()
	c.chunksCreated += uint64(len(chunks))
	c.samplesSeen += uint64(len(samples))
	c.mu.Unlock()

	return chunks
}

// GetStats returns current chunker statistics.
func (c *Chunker) GetStats() ChunkerStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return ChunkerStats{
		ChunksCreated: c.chunksCreated,
		SamplesSeen:   c.samplesSeen,
	}
}

func (c *Chunker) msToSamples(ms int64) int {
	return int(ms * int64(c.config.SampleRate) / 1000)
}

func (c *Chunker) samplesToMs(samples int) int64 {
	return int64(samples) * 1000 / int64(c.config.SampleRate)
}

// SamplesToMs converts a sample count to milliseconds at the given rate.
func SamplesToMs(samples, sampleRate int) int64 {
	return int64(samples) * 1000 / int64(sampleRate)
}
