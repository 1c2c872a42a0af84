package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/skypro1111/subtitle-pipeline/internal/audio"
	"github.com/skypro1111/subtitle-pipeline/internal/metrics"
	"github.com/skypro1111/subtitle-pipeline/internal/recognition"
	"github.com/skypro1111/subtitle-pipeline/internal/speaker"
	"github.com/skypro1111/subtitle-pipeline/internal/subtitle"
	"github.com/skypro1111/subtitle-pipeline/internal/textnorm"
	"github.com/skypro1111/subtitle-pipeline/internal/vad"
)

// TranslationConfig controls optional segment translation.
type TranslationConfig struct {
	Enabled        bool
	TargetLanguage string
}

// Assembler builds subtitle segments from the voiced ranges of one chunk.
// It combines recognition, speaker identification, text normalization and
// translation; segments come out in chunk-local time order.
type Assembler struct {
	recognition *recognition.Adapter
	embeddings  recognition.EmbeddingExtractor // optional
	speakers    *speaker.Registry              // required when embeddings is set
	normalizer  *textnorm.Normalizer
	translator  recognition.Translator // optional
	translation TranslationConfig
	limiter     *rate.Limiter    // optional, shared across workers
	metrics     *metrics.Metrics // optional
	language    string
	logger      *slog.Logger
}

// AssemblerDeps bundles the collaborators of an Assembler.
type AssemblerDeps struct {
	Recognition *recognition.Adapter
	Embeddings  recognition.EmbeddingExtractor
	Speakers    *speaker.Registry
	Normalizer  *textnorm.Normalizer
	Translator  recognition.Translator
	Translation TranslationConfig
	Limiter     *rate.Limiter
	Metrics     *metrics.Metrics
	Language    string
	Logger      *slog.Logger
}

// NewAssembler creates a segment assembler.
func NewAssembler(deps AssemblerDeps) *Assembler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Assembler{
		recognition: deps.Recognition,
		embeddings:  deps.Embeddings,
		speakers:    deps.Speakers,
		normalizer:  deps.Normalizer,
		translator:  deps.Translator,
		translation: deps.Translation,
		limiter:     deps.Limiter,
		metrics:     deps.Metrics,
		language:    deps.Language,
		logger:      logger,
	}
}

// AssembleChunk produces subtitle segments for the voiced ranges of one
// chunk. Recognition failures and dropped results skip the range; a speaker
// registry dimension mismatch is a programming error and aborts the chunk.
func (a *Assembler) AssembleChunk(ctx context.Context, chunk audio.AudioChunk, ranges []vad.VoiceRange) ([]subtitle.Segment, error) {
	var segments []subtitle.Segment

	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return segments, err
		}

		seg, err := a.assembleRange(ctx, chunk, r)
		if err != nil {
			return segments, err
		}
		if seg != nil {
			segments = append(segments, *seg)
		}
	}

	return segments, nil
}

func (a *Assembler) assembleRange(ctx context.Context, chunk audio.AudioChunk, r vad.VoiceRange) (*subtitle.Segment, error) {
	pcm := chunk.Samples[r.StartSample:r.EndSample]
	startMs := chunk.StartMs + audio.SamplesToMs(r.StartSample, chunk.SampleRate)
	endMs := chunk.StartMs + audio.SamplesToMs(r.EndSample, chunk.SampleRate)

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	recognitionStart := time.Now()
	res, err := a.recognition.Recognize(ctx, pcm, startMs, a.language)
	if a.metrics != nil {
		a.metrics.RecognitionRequests.Inc()
		a.metrics.RecognitionDuration.Observe(time.Since(recognitionStart).Seconds())
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecognitionFailures.Inc()
		}
		a.logger.Warn("skipping voice range, recognition failed",
			slog.Int("chunk", chunk.Index),
			slog.Int64("start_ms", startMs),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	if res == nil {
		// Below the confidence threshold, dropped silently.
		if a.metrics != nil {
			a.metrics.RecognitionDropped.Inc()
		}
		return nil, nil
	}

	text := a.normalizer.NormalizeContext(ctx, res.Text)
	if text == "" {
		return nil, nil
	}

	speakerID, err := a.identifySpeaker(ctx, pcm, startMs, chunk.Index)
	if err != nil {
		return nil, err
	}

	language := res.Language
	if language == "" {
		language = a.language
	}

	seg := subtitle.Segment{
		ID:             uuid.NewString(),
		Text:           text,
		StartMs:        startMs,
		EndMs:          endMs,
		SpeakerID:      speakerID,
		Confidence:     res.Confidence,
		Language:       language,
		TranslatedText: a.translate(ctx, text, language),
		WordTimings:    clampWordTimings(res.Words, startMs, endMs),
	}

	return &seg, nil
}

// identifySpeaker attributes the range to a speaker profile. Extraction
// failure loses the attribution, not the segment; a registry dimension
// mismatch propagates as a hard error.
func (a *Assembler) identifySpeaker(ctx context.Context, pcm []float32, startMs int64, chunkIndex int) (string, error) {
	if a.embeddings == nil || a.speakers == nil {
		return "", nil
	}

	embedding, err := a.embeddings.Extract(ctx, pcm)
	if err != nil {
		a.logger.Warn("embedding extraction failed, segment keeps no speaker",
			slog.Int("chunk", chunkIndex),
			slog.Int64("start_ms", startMs),
			slog.String("error", err.Error()),
		)
		return "", nil
	}

	speakerID, err := a.speakers.Identify(embedding, startMs)
	if err != nil {
		return "", err
	}

	return speakerID, nil
}

// translate returns the translated text, or empty when translation is
// disabled, unnecessary or failed. Translator failure never fails the
// segment.
func (a *Assembler) translate(ctx context.Context, text, sourceLang string) string {
	if !a.translation.Enabled || a.translator == nil {
		return ""
	}
	if a.translation.TargetLanguage == "" || a.translation.TargetLanguage == sourceLang {
		return ""
	}

	translated, err := a.translator.Translate(ctx, text, sourceLang, a.translation.TargetLanguage)
	if err != nil {
		a.logger.Warn("translation failed, segment keeps original text only",
			slog.String("source_lang", sourceLang),
			slog.String("target_lang", a.translation.TargetLanguage),
			slog.String("error", err.Error()),
		)
		return ""
	}

	return translated
}

// clampWordTimings nests word timings inside the segment range and converts
// them to the subtitle model.
func clampWordTimings(words []recognition.Word, startMs, endMs int64) []subtitle.WordTiming {
	if len(words) == 0 {
		return nil
	}

	out := make([]subtitle.WordTiming, 0, len(words))
	for _, w := range words {
		if w.StartMs < startMs {
			w.StartMs = startMs
		}
		if w.EndMs > endMs {
			w.EndMs = endMs
		}
		out = append(out, subtitle.WordTiming{
			Word:       w.Text,
			StartMs:    w.StartMs,
			EndMs:      w.EndMs,
			Confidence: w.Confidence,
		})
	}

	return out
}
