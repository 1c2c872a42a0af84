package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/pipeline"
	"github.com/skypro1111/subtitle-pipeline/internal/speaker"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/vad"
)

// Config represents the complete pipeline configuration
type Config struct {
	Audio       AudioConfig       `yaml:"audio"`
	VAD         VADConfig         `yaml:"vad"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Speaker     SpeakerConfig     `yaml:"speaker"`
	Subtitle    SubtitleConfig    `yaml:"subtitle"`
	Translation TranslationConfig `yaml:"translation"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// AudioConfig contains audio chunking parameters
type AudioConfig struct {
	SampleRate      int     `yaml:"sample_rate"`
	ChunkDuration   float64 `yaml:"chunk_duration"`   // seconds
	OverlapDuration float64 `yaml:"overlap_duration"` // seconds
	MinSpeech       float64 `yaml:"min_speech"`       // seconds
}

// VADConfig contains Voice Activity Detection configuration
type VADConfig struct {
	WindowMs        int     `yaml:"window_ms"`
	EnergyThreshold float64 `yaml:"energy_threshold"`
	MinSpeech       float64 `yaml:"min_speech"` // seconds
}

// RecognitionConfig contains the recognition API configuration
type RecognitionConfig struct {
	Endpoint      string  `yaml:"endpoint"`
	APIKey        string  `yaml:"api_key"`
	Timeout       int     `yaml:"timeout"` // seconds
	MaxRetries    int     `yaml:"max_retries"`
	MaxConcurrent int     `yaml:"max_concurrent"`
	MinConfidence float64 `yaml:"min_confidence"`
	Language      string  `yaml:"language"`
	Model         string  `yaml:"model"`
}

// SpeakerConfig contains speaker clustering configuration
type SpeakerConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Dimension      int     `yaml:"dimension"`
	MatchThreshold float64 `yaml:"match_threshold"`
	Smoothing      float64 `yaml:"smoothing"`
}

// SubtitleConfig contains segment post-processing configuration
type SubtitleConfig struct {
	MaxSegmentChars int     `yaml:"max_segment_chars"`
	WordsPerMinute  int     `yaml:"words_per_minute"`
	MaxDuration     float64 `yaml:"max_duration"` // seconds
	MergeGap        float64 `yaml:"merge_gap"`    // seconds
}

// TranslationConfig contains optional translation configuration
type TranslationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	TargetLanguage string `yaml:"target_language"`
}

// PipelineConfig contains worker pool and budget configuration
type PipelineConfig struct {
	Workers         int `yaml:"workers"`
	ChunkTimeout    int `yaml:"chunk_timeout"`      // seconds
	MaxProcessing   int `yaml:"max_processing"`     // seconds, 0 disables
	RateLimitPerMin int `yaml:"rate_limit_per_min"` // 0 disables
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.VAD.Validate(); err != nil {
		return fmt.Errorf("vad config: %w", err)
	}

	if err := c.Recognition.Validate(); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}

	if err := c.Speaker.Validate(); err != nil {
		return fmt.Errorf("speaker config: %w", err)
	}

	if err := c.Subtitle.Validate(); err != nil {
		return fmt.Errorf("subtitle config: %w", err)
	}

	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate != 16000 {
		return fmt.Errorf("sample_rate must be 16000 Hz for the recognition contract, got %d", a.SampleRate)
	}

	if a.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", a.ChunkDuration)
	}

	if a.OverlapDuration < 0 || a.OverlapDuration >= a.ChunkDuration {
		return fmt.Errorf("overlap_duration (%f) must be in [0, chunk_duration %f)",
			a.OverlapDuration, a.ChunkDuration)
	}

	if a.MinSpeech < 0 {
		return fmt.Errorf("min_speech cannot be negative, got %f", a.MinSpeech)
	}

	return nil
}

// Validate validates VAD configuration
func (v *VADConfig) Validate() error {
	if v.WindowMs < 1 || v.WindowMs > 100 {
		return fmt.Errorf("window_ms must be between 1 and 100, got %d", v.WindowMs)
	}

	if v.EnergyThreshold < 0 {
		return fmt.Errorf("energy_threshold cannot be negative, got %f", v.EnergyThreshold)
	}

	if v.MinSpeech < 0 {
		return fmt.Errorf("min_speech cannot be negative, got %f", v.MinSpeech)
	}

	return nil
}

// Validate validates recognition configuration
func (r *RecognitionConfig) Validate() error {
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	if r.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", r.MaxRetries)
	}

	if r.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", r.MaxConcurrent)
	}

	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be between 0 and 1, got %f", r.MinConfidence)
	}

	return nil
}

// Validate validates speaker configuration
func (s *SpeakerConfig) Validate() error {
	if !s.Enabled {
		return nil
	}

	if s.Dimension < 1 {
		return fmt.Errorf("dimension must be at least 1, got %d", s.Dimension)
	}

	if s.MatchThreshold < 0 || s.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be between 0 and 1, got %f", s.MatchThreshold)
	}

	if s.Smoothing <= 0 || s.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in (0, 1], got %f", s.Smoothing)
	}

	return nil
}

// Validate validates subtitle configuration
func (s *SubtitleConfig) Validate() error {
	if s.MaxSegmentChars < 1 {
		return fmt.Errorf("max_segment_chars must be at least 1, got %d", s.MaxSegmentChars)
	}

	if s.WordsPerMinute < 1 {
		return fmt.Errorf("words_per_minute must be at least 1, got %d", s.WordsPerMinute)
	}

	if s.MaxDuration <= 0 {
		return fmt.Errorf("max_duration must be positive, got %f", s.MaxDuration)
	}

	if s.MergeGap < 0 {
		return fmt.Errorf("merge_gap cannot be negative, got %f", s.MergeGap)
	}

	return nil
}

// Validate validates pipeline configuration
func (p *PipelineConfig) Validate() error {
	if p.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", p.Workers)
	}

	if p.ChunkTimeout < 0 {
		return fmt.Errorf("chunk_timeout cannot be negative, got %d", p.ChunkTimeout)
	}

	if p.MaxProcessing < 0 {
		return fmt.Errorf("max_processing cannot be negative, got %d", p.MaxProcessing)
	}

	if p.RateLimitPerMin < 0 {
		return fmt.Errorf("rate_limit_per_min cannot be negative, got %d", p.RateLimitPerMin)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeoutDuration returns the recognition timeout as a time.Duration
func (r *RecognitionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// PipelineConfig assembles the full pipeline.Config from the file sections.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Chunker: audio.ChunkerConfig{
			SampleRate:      c.Audio.SampleRate,
			ChunkDurationMs: secondsToMs(c.Audio.ChunkDuration),
			OverlapMs:       secondsToMs(c.Audio.OverlapDuration),
			MinSpeechMs:     secondsToMs(c.Audio.MinSpeech),
		},
		VAD: vad.DetectorConfig{
			SampleRate:      c.Audio.SampleRate,
			WindowMs:        c.VAD.WindowMs,
			EnergyThreshold: c.VAD.EnergyThreshold,
			MinSpeechMs:     secondsToMs(c.VAD.MinSpeech),
		},
		Speaker: speaker.RegistryConfig{
			Dimension:      c.Speaker.Dimension,
			MatchThreshold: c.Speaker.MatchThreshold,
			Smoothing:      c.Speaker.Smoothing,
		},
		PostProcessor: subtitle.PostProcessorConfig{
			MaxSegmentChars:       c.Subtitle.MaxSegmentChars,
			WordsPerMinute:        c.Subtitle.WordsPerMinute,
			MaxSubtitleDurationMs: secondsToMs(c.Subtitle.MaxDuration),
			MergeGapMs:            secondsToMs(c.Subtitle.MergeGap),
		},
		Translation: pipeline.TranslationConfig{
			Enabled:        c.Translation.Enabled,
			TargetLanguage: c.Translation.TargetLanguage,
		},
		MinConfidence:   c.Recognition.MinConfidence,
		Language:        c.Recognition.Language,
		Workers:         c.Pipeline.Workers,
		ChunkTimeout:    time.Duration(c.Pipeline.ChunkTimeout) * time.Second,
		MaxProcessing:   time.Duration(c.Pipeline.MaxProcessing) * time.Second,
		RateLimitPerMin: c.Pipeline.RateLimitPerMin,
	}
}

func secondsToMs(seconds float64) int64 {
	return int64(seconds * 1000)
}
