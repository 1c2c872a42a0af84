package subtitle

import (
	"testing"
)

func TestSegmentValidate(t *testing.T) {
	tests := []struct {
		name      string
		segment   Segment
		expectErr bool
	}{
		{
			name:      "valid segment",
			segment:   Segment{ID: "a", Text: "hi", StartMs: 0, EndMs: 100, Confidence: 0.9},
			expectErr: false,
		},
		{
			name:      "empty text",
			segment:   Segment{ID: "a", StartMs: 0, EndMs: 100},
			expectErr: true,
		},
		{
			name:      "start equals end",
			segment:   Segment{ID: "a", Text: "hi", StartMs: 100, EndMs: 100},
			expectErr: true,
		},
		{
			name:      "start after end",
			segment:   Segment{ID: "a", Text: "hi", StartMs: 200, EndMs: 100},
			expectErr: true,
		},
		{
			name:      "confidence above one",
			segment:   Segment{ID: "a", Text: "hi", StartMs: 0, EndMs: 100, Confidence: 1.5},
			expectErr: true,
		},
		{
			name: "word timing escapes segment",
			segment: Segment{
				ID: "a", Text: "hi", StartMs: 100, EndMs: 200, Confidence: 1,
				WordTimings: []WordTiming{{Word: "hi", StartMs: 50, EndMs: 150}},
			},
			expectErr: true,
		},
		{
			name: "nested word timing",
			segment: Segment{
				ID: "a", Text: "hi", StartMs: 100, EndMs: 200, Confidence: 1,
				WordTimings: []WordTiming{{Word: "hi", StartMs: 120, EndMs: 180}},
			},
			expectErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.segment.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestSortByStartStable(t *testing.T) {
	segments := []Segment{
		{ID: "c", Text: "c", StartMs: 500, EndMs: 600},
		{ID: "a", Text: "a", StartMs: 100, EndMs: 200},
		{ID: "b", Text: "b", StartMs: 100, EndMs: 300},
	}

	SortByStart(segments)

	if segments[0].ID != "a" || segments[1].ID != "b" || segments[2].ID != "c" {
		t.Errorf("Expected stable order a, b, c; got %s, %s, %s",
			segments[0].ID, segments[1].ID, segments[2].ID)
	}
}
