package subtitle

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PostProcessorConfig contains configuration for segment normalization.
type PostProcessorConfig struct {
	MaxSegmentChars       int   // Segments with longer text are split
	WordsPerMinute        int   // Reading speed used for minimum display duration
	MaxSubtitleDurationMs int64 // Hard cap on segment display duration
	MergeGapMs            int64 // Segments closer than this are merged
}

// PostProcessor normalizes a raw segment list with three deterministic
// passes applied in order: split overlong segments, reconcile display
// duration against reading speed, merge near-adjacent segments. After
// processing, segments are strictly ordered by start time and pairwise
// non-overlapping.
type PostProcessor struct {
	config PostProcessorConfig
}

// NewPostProcessor creates a segment post-processor.
func NewPostProcessor(config PostProcessorConfig) (*PostProcessor, error) {
	if config.MaxSegmentChars <= 0 {
		return nil, fmt.Errorf("max segment chars must be positive, got %d", config.MaxSegmentChars)
	}

	if config.WordsPerMinute <= 0 {
		return nil, fmt.Errorf("words per minute must be positive, got %d", config.WordsPerMinute)
	}

	if config.MaxSubtitleDurationMs <= 0 {
		return nil, fmt.Errorf("max subtitle duration must be positive, got %d ms", config.MaxSubtitleDurationMs)
	}

	if config.MergeGapMs < 0 {
		return nil, fmt.Errorf("merge gap cannot be negative, got %d ms", config.MergeGapMs)
	}

	return &PostProcessor{config: config}, nil
}

// Process returns the normalized segment list. The input is not modified.
func (p *PostProcessor) Process(segments []Segment) []Segment {
	if len(segments) == 0 {
		return nil
	}

	out := append([]Segment(nil), segments...)
	SortByStart(out)

	out = p.splitLong(out)
	out = p.reconcileReadingTime(out)
	out = p.mergeAdjacent(out)

	return out
}

// splitLong splits any segment whose text exceeds the character budget,
// greedily packing words left to right. Each part receives a time slice
// proportional to its share of the word count, so parts stay contiguous.
func (p *PostProcessor) splitLong(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))

	for _, seg := range segments {
		if len(seg.Text) <= p.config.MaxSegmentChars {
			out = append(out, seg)
			continue
		}

		words := strings.Fields(seg.Text)
		parts := packWords(words, p.config.MaxSegmentChars)
		duration := seg.DurationMs()

		wordsBefore := 0
		for _, part := range parts {
			start := seg.StartMs + duration*int64(wordsBefore)/int64(len(words))
			end := seg.StartMs + duration*int64(wordsBefore+len(part))/int64(len(words))

			sub := seg
			sub.ID = uuid.NewString()
			sub.Text = strings.Join(part, " ")
			sub.StartMs = start
			sub.EndMs = end
			sub.WordTimings = sliceWordTimings(seg.WordTimings, wordsBefore, len(part), start, end)

			out = append(out, sub)
			wordsBefore += len(part)
		}
	}

	return out
}

// packWords groups words into runs whose joined text does not exceed
// maxChars. A single word longer than the budget becomes its own part.
func packWords(words []string, maxChars int) [][]string {
	var parts [][]string
	var current []string
	length := 0

	for _, w := range words {
		joined := length + len(w)
		if len(current) > 0 {
			joined++ // separating space
		}

		if len(current) > 0 && joined > maxChars {
			parts = append(parts, current)
			current = nil
			joined = len(w)
		}

		current = append(current, w)
		length = joined
	}

	if len(current) > 0 {
		parts = append(parts, current)
	}

	return parts
}

// sliceWordTimings takes the word timings for one split part and clamps
// them into the part's range.
func sliceWordTimings(timings []WordTiming, offset, count int, startMs, endMs int64) []WordTiming {
	if len(timings) == 0 || offset >= len(timings) {
		return nil
	}

	end := offset + count
	if end > len(timings) {
		end = len(timings)
	}

	out := make([]WordTiming, 0, end-offset)
	for _, w := range timings[offset:end] {
		if w.StartMs < startMs {
			w.StartMs = startMs
		}
		if w.EndMs > endMs {
			w.EndMs = endMs
		}
		out = append(out, w)
	}
	return out
}

// reconcileReadingTime extends segments too short to read at the configured
// words-per-minute rate, then caps display duration at the maximum. The cap
// runs after the extension, so a segment already exceeding it is truncated
// even when its reading time was not satisfied either.
func (p *PostProcessor) reconcileReadingTime(segments []Segment) []Segment {
	out := make([]Segment, 0, len(segments))

	for _, seg := range segments {
		readingTime := int64(len(strings.Fields(seg.Text))) * 60000 / int64(p.config.WordsPerMinute)
		if extension := readingTime - seg.DurationMs(); extension > 0 {
			seg.EndMs += extension
		}

		if seg.DurationMs() > p.config.MaxSubtitleDurationMs {
			seg.EndMs = seg.StartMs + p.config.MaxSubtitleDurationMs
			seg.WordTimings = clampWordTimings(seg.WordTimings, seg.StartMs, seg.EndMs)
		}

		out = append(out, seg)
	}

	return out
}

// clampWordTimings returns a copy with every word range clamped into
// [startMs, endMs].
func clampWordTimings(timings []WordTiming, startMs, endMs int64) []WordTiming {
	if len(timings) == 0 {
		return timings
	}

	out := make([]WordTiming, 0, len(timings))
	for _, w := range timings {
		if w.StartMs < startMs {
			w.StartMs = startMs
		}
		if w.StartMs > endMs {
			w.StartMs = endMs
		}
		if w.EndMs > endMs {
			w.EndMs = endMs
		}
		out = append(out, w)
	}
	return out
}

// mergeAdjacent merges segments whose start falls within the merge gap of
// the previous segment's end. Text is joined with a single space,
// confidence averaged pairwise.
func (p *PostProcessor) mergeAdjacent(segments []Segment) []Segment {
	if len(segments) == 0 {
		return nil
	}

	sorted := append([]Segment(nil), segments...)
	SortByStart(sorted)

	out := make([]Segment, 0, len(sorted))
	current := sorted[0]

	for _, next := range sorted[1:] {
		if next.StartMs > current.EndMs+p.config.MergeGapMs {
			out = append(out, current)
			current = next
			continue
		}

		merged := current
		merged.Text = current.Text + " " + next.Text
		if next.EndMs > merged.EndMs {
			merged.EndMs = next.EndMs
		}
		merged.Confidence = (current.Confidence + next.Confidence) / 2
		merged.WordTimings = append(append([]WordTiming(nil), current.WordTimings...), next.WordTimings...)
		if current.SpeakerID != next.SpeakerID {
			merged.SpeakerID = ""
		}
		if next.TranslatedText != "" {
			if merged.TranslatedText != "" {
				merged.TranslatedText += " "
			}
			merged.TranslatedText += next.TranslatedText
		}

		current = merged
	}

	return append(out, current)
}
