package recognition

import "context"

// Word is the timing of one recognized word, in milliseconds relative to
// the start of the recognized audio.
type Word struct {
	Text       string  `json:"text"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// Result is the outcome of recognizing one stretch of voiced audio.
type Result struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`
}

// Recognizer converts voiced PCM audio into text. Implementations are
// external; audio is mono float PCM in [-1, 1] at a fixed sample rate.
type Recognizer interface {
	Recognize(ctx context.Context, pcm []float32, languageHint string) (*Result, error)
}

// EmbeddingExtractor derives a fixed-dimension voice embedding from PCM
// audio for speaker identification.
type EmbeddingExtractor interface {
	Extract(ctx context.Context, pcm []float32) ([]float32, error)
}

// Translator translates normalized text between languages. An empty result
// with nil error means no translation was produced.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// PunctuationModel restores punctuation on raw recognized text.
type PunctuationModel interface {
	Punctuate(ctx context.Context, text string) (string, error)
}
