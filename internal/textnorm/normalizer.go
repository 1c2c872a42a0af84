package textnorm

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PunctuationModel is an optional external model that restores punctuation
// on raw text. Same contract shape as the recognizer, text to text.
type PunctuationModel interface {
	Punctuate(ctx context.Context, text string) (string, error)
}

// conjunctions that take a comma on the preceding word. "and", "or" and
// "for" are excluded: they appear inside noun phrases far too often for an
// energy-free heuristic to place commas correctly.
var conjunctions = map[string]struct{}{
	"but": {},
	"so":  {},
	"yet": {},
	"nor": {},
}

// sentenceTerminators end a sentence for capitalization purposes.
var sentenceTerminators = map[rune]struct{}{
	'.': {}, '!': {}, '?': {},
}

// Normalizer restores punctuation and capitalization on recognized text.
// An optional PunctuationModel refines the heuristic result; model failure
// falls back to the heuristic output.
type Normalizer struct {
	model  PunctuationModel
	logger *slog.Logger
}

// NewNormalizer creates a text normalizer. model may be nil.
func NewNormalizer(model PunctuationModel, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Normalizer{model: model, logger: logger}
}

// Normalize collapses whitespace, inserts commas at conjunction boundaries,
// ensures terminal sentence punctuation and capitalizes sentence starts.
// Normalizing already-normalized text yields the same text.
func (n *Normalizer) Normalize(text string) string {
	text = collapseWhitespace(text)
	if text == "" {
		return ""
	}

	text = insertConjunctionCommas(text)
	text = ensureTerminalPunctuation(text)
	text = capitalizeSentences(text)

	return text
}

// NormalizeContext runs the punctuation model before the deterministic
// passes. The model is advisory: on error the heuristic path is used alone.
func (n *Normalizer) NormalizeContext(ctx context.Context, text string) string {
	if n.model != nil {
		restored, err := n.model.Punctuate(ctx, collapseWhitespace(text))
		if err != nil {
			n.logger.Warn("punctuation model failed, using heuristics",
				slog.String("error", err.Error()),
			)
		} else {
			text = restored
		}
	}

	return n.Normalize(text)
}

// collapseWhitespace replaces any whitespace run with a single space and
// trims the ends.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// insertConjunctionCommas appends a comma to the word preceding a
// coordinating conjunction, unless it already ends with punctuation.
func insertConjunctionCommas(text string) string {
	words := strings.Split(text, " ")

	for i := 1; i < len(words); i++ {
		if _, ok := conjunctions[strings.ToLower(words[i])]; !ok {
			continue
		}

		prev := words[i-1]
		last, _ := utf8.DecodeLastRuneInString(prev)
		if last == utf8.RuneError || unicode.IsPunct(last) {
			continue
		}

		words[i-1] = prev + ","
	}

	return strings.Join(words, " ")
}

// ensureTerminalPunctuation appends a period when the text does not already
// end with sentence punctuation.
func ensureTerminalPunctuation(text string) string {
	last, _ := utf8.DecodeLastRuneInString(text)
	if _, ok := sentenceTerminators[last]; ok {
		return text
	}
	if last == '…' {
		return text
	}
	return text + "."
}

// capitalizeSentences upper-cases the first letter of each sentence.
func capitalizeSentences(text string) string {
	runes := []rune(text)
	atSentenceStart := true

	for i, r := range runes {
		if atSentenceStart && unicode.IsLetter(r) {
			runes[i] = unicode.ToUpper(r)
			atSentenceStart = false
			continue
		}

		if _, ok := sentenceTerminators[r]; ok {
			atSentenceStart = true
		} else if !unicode.IsSpace(r) {
			atSentenceStart = false
		}
	}

	return string(runes)
}
