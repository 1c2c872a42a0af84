package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/metrics"
	"github.com/skypro1111/subtitle-pipeline/internal/recognition"
	"github.com/skypro1111/subtitle-pipeline/internal/speaker"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/textnorm"
	"github.com/skypro1111/subtitle-pipeline/internal/vad"
)

// Config contains the full pipeline configuration.
type Config struct {
	Chunker       audio.ChunkerConfig
	VAD           vad.DetectorConfig
	Speaker       speaker.RegistryConfig
	PostProcessor subtitle.PostProcessorConfig
	Translation   TranslationConfig

	MinConfidence   float64       // Recognition results below this are dropped
	Language        string        // Language hint passed to the recognizer
	Workers         int           // Concurrent chunk workers
	ChunkTimeout    time.Duration // Budget per chunk; a timed-out chunk is skipped
	MaxProcessing   time.Duration // Overall budget for one GenerateSubtitles call (0 = none)
	RateLimitPerMin int           // Recognition requests per minute (0 = unlimited)
}

// Deps bundles the external collaborators of the pipeline.
type Deps struct {
	Recognizer  recognition.Recognizer
	Embeddings  recognition.EmbeddingExtractor // optional; enables speaker attribution
	Translator  recognition.Translator         // optional
	Punctuation recognition.PunctuationModel   // optional
}

// Result is what every GenerateSubtitles call returns: a success flag, an
// optional error message and whatever segments were produced. Partial
// results are preferred over losing work.
type Result struct {
	Success  bool               `json:"success"`
	Error    string             `json:"error,omitempty"`
	Segments []subtitle.Segment `json:"segments"`
	Speakers []speaker.Profile  `json:"speakers,omitempty"`

	ChunksProcessed int `json:"chunks_processed"`
	ChunksSkipped   int `json:"chunks_skipped"`
}

// Pipeline turns a PCM sample buffer into a normalized subtitle segment
// list. Chunks are independent analysis units processed by a bounded worker
// pool; completion order does not matter because segments are sorted by
// start time before post-processing.
type Pipeline struct {
	config    Config
	chunker   *audio.Chunker
	detector  *vad.Detector
	registry  *speaker.Registry
	assembler *Assembler
	post      *subtitle.PostProcessor
	metrics   *metrics.Metrics // optional
	logger    *slog.Logger
}

// New creates a subtitle generation pipeline. m may be nil to disable
// instrumentation.
func New(config Config, deps Deps, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if deps.Recognizer == nil {
		return nil, fmt.Errorf("recognizer cannot be nil")
	}

	if config.Workers <= 0 {
		config.Workers = 4
	}

	if logger == nil {
		logger = slog.Default()
	}

	chunker, err := audio.NewChunker(config.Chunker)
	if err != nil {
		return nil, fmt.Errorf("invalid chunker config: %w", err)
	}

	detector, err := vad.NewDetector(config.VAD)
	if err != nil {
		return nil, fmt.Errorf("invalid vad config: %w", err)
	}

	post, err := subtitle.NewPostProcessor(config.PostProcessor)
	if err != nil {
		return nil, fmt.Errorf("invalid post-processor config: %w", err)
	}

	adapter, err := recognition.NewAdapter(deps.Recognizer, config.MinConfidence, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid recognition config: %w", err)
	}

	var registry *speaker.Registry
	if deps.Embeddings != nil {
		registry, err = speaker.NewRegistry(config.Speaker)
		if err != nil {
			return nil, fmt.Errorf("invalid speaker config: %w", err)
		}
	}

	var limiter *rate.Limiter
	if config.RateLimitPerMin > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(config.RateLimitPerMin)/60.0), 1)
	}

	assembler := NewAssembler(AssemblerDeps{
		Recognition: adapter,
		Embeddings:  deps.Embeddings,
		Speakers:    registry,
		Normalizer:  textnorm.NewNormalizer(deps.Punctuation, logger),
		Translator:  deps.Translator,
		Translation: config.Translation,
		Limiter:     limiter,
		Metrics:     m,
		Language:    config.Language,
		Logger:      logger,
	})

	return &Pipeline{
		config:    config,
		chunker:   chunker,
		detector:  detector,
		registry:  registry,
		assembler: assembler,
		post:      post,
		metrics:   m,
		logger:    logger,
	}, nil
}

// Registry exposes the pipeline's speaker registry for renaming speakers.
// Returns nil when speaker attribution is disabled.
func (p *Pipeline) Registry() *speaker.Registry {
	return p.registry
}

// chunkSegments pairs one chunk's draft segments with its index so the
// fan-in can restore deterministic order.
type chunkSegments struct {
	index    int
	segments []subtitle.Segment
}

// GenerateSubtitles processes the full sample buffer and returns the
// normalized, speaker-attributed segment list. On cancellation or overall
// timeout the segments of already-completed chunks are still returned, with
// Success set to false.
func (p *Pipeline) GenerateSubtitles(ctx context.Context, samples []float32) *Result {
	started := time.Now()

	if p.config.MaxProcessing > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.MaxProcessing)
		defer cancel()
	}

	chunks := p.chunker.Split(samples)
	p.logger.Info("starting subtitle generation",
		slog.Int("samples", len(samples)),
		slog.Int("chunks", len(chunks)),
		slog.Int("workers", p.config.Workers),
	)

	var (
		mu      sync.Mutex
		results []chunkSegments
		skipped int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for _, chunk := range chunks {
		chunk := chunk
		g.Go(func() error {
			segs, err := p.processChunk(gctx, chunk)
			if err != nil {
				// Speaker dimension mismatch is a programming error and
				// aborts the run; everything else skips the chunk.
				if errors.Is(err, speaker.ErrDimensionMismatch) {
					return err
				}
				if gctx.Err() != nil {
					// Overall cancellation: keep what this chunk produced.
					mu.Lock()
					if len(segs) > 0 {
						results = append(results, chunkSegments{index: chunk.Index, segments: segs})
					}
					mu.Unlock()
					return gctx.Err()
				}

				p.logger.Warn("chunk skipped",
					slog.Int("chunk", chunk.Index),
					slog.Int64("start_ms", chunk.StartMs),
					slog.String("error", err.Error()),
				)
				mu.Lock()
				skipped++
				mu.Unlock()
				if p.metrics != nil {
					p.metrics.ChunksSkipped.Inc()
				}
				return nil
			}

			mu.Lock()
			results = append(results, chunkSegments{index: chunk.Index, segments: segs})
			mu.Unlock()
			if p.metrics != nil {
				p.metrics.ChunksProcessed.Inc()
			}
			return nil
		})
	}

	err := g.Wait()

	// Deterministic fan-in: chunk order first, then global time order.
	sort.Slice(results, func(i, j int) bool {
		return results[i].index < results[j].index
	})

	var drafts []subtitle.Segment
	for _, r := range results {
		drafts = append(drafts, r.segments...)
	}

	segments := p.post.Process(drafts)

	result := &Result{
		Success:         err == nil,
		Segments:        segments,
		ChunksProcessed: len(results),
		ChunksSkipped:   skipped,
	}
	if err != nil {
		result.Error = err.Error()
	}
	if p.registry != nil {
		result.Speakers = p.registry.Profiles()
	}
	if p.metrics != nil {
		p.metrics.SegmentsProduced.Add(float64(len(segments)))
		p.metrics.GenerationDuration.Observe(time.Since(started).Seconds())
		if p.registry != nil {
			p.metrics.SpeakersRegistered.Set(float64(len(result.Speakers)))
		}
	}

	p.logger.Info("subtitle generation finished",
		slog.Bool("success", result.Success),
		slog.Int("segments", len(segments)),
		slog.Int("chunks_processed", result.ChunksProcessed),
		slog.Int("chunks_skipped", skipped),
		slog.Duration("elapsed", time.Since(started)),
	)

	return result
}

// processChunk runs detection and assembly for one chunk under the
// per-chunk timeout.
func (p *Pipeline) processChunk(ctx context.Context, chunk audio.AudioChunk) ([]subtitle.Segment, error) {
	if p.config.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ChunkTimeout)
		defer cancel()
	}

	ranges := p.detector.Detect(chunk.Samples)
	if p.metrics != nil {
		p.metrics.VoiceRangesDetected.Add(float64(len(ranges)))
	}
	if len(ranges) == 0 {
		return nil, nil
	}

	return p.assembler.AssembleChunk(ctx, chunk, ranges)
}
