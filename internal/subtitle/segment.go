package subtitle

import (
	"fmt"
	"sort"
)

// WordTiming is the timing of a single word within a segment. Word ranges
// nest within the owning segment's own range.
type WordTiming struct {
	Word       string  `json:"word"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// Segment is the durable subtitle unit. Segments are treated as immutable
// values: every transform constructs new records instead of mutating in
// place.
type Segment struct {
	ID             string       `json:"id"`
	Text           string       `json:"text"`
	StartMs        int64        `json:"start_ms"`
	EndMs          int64        `json:"end_ms"`
	SpeakerID      string       `json:"speaker_id,omitempty"`
	Confidence     float64      `json:"confidence"`
	Language       string       `json:"language,omitempty"`
	TranslatedText string       `json:"translated_text,omitempty"`
	WordTimings    []WordTiming `json:"word_timings,omitempty"`
}

// DurationMs returns the display duration in milliseconds.
func (s Segment) DurationMs() int64 {
	return s.EndMs - s.StartMs
}

// Validate checks the segment invariants.
func (s Segment) Validate() error {
	if s.Text == "" {
		return fmt.Errorf("segment %s: text cannot be empty", s.ID)
	}

	if s.StartMs >= s.EndMs {
		return fmt.Errorf("segment %s: start %d ms must precede end %d ms", s.ID, s.StartMs, s.EndMs)
	}

	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("segment %s: confidence must be between 0 and 1, got %f", s.ID, s.Confidence)
	}

	for _, w := range s.WordTimings {
		if w.StartMs < s.StartMs || w.EndMs > s.EndMs {
			return fmt.Errorf("segment %s: word %q range [%d, %d) escapes segment range [%d, %d)",
				s.ID, w.Word, w.StartMs, w.EndMs, s.StartMs, s.EndMs)
		}
	}

	return nil
}

// SortByStart sorts segments by start time in place, preserving the
// relative order of segments with equal starts.
func SortByStart(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].StartMs < segments[j].StartMs
	})
}
