package subtitle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Format identifies a subtitle interchange format.
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatASS  Format = "ass"
	FormatJSON Format = "json"
)

// assPreamble is the fixed ASS script header with one default style.
const assPreamble = `[Script Info]
Title: Generated Subtitles
ScriptType: v4.00+
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default,Arial,48,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,1,2,10,10,20,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`

// jsonSegment is the wire shape of one segment in JSON exports.
type jsonSegment struct {
	ID         string  `json:"id"`
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Speaker    string  `json:"speaker,omitempty"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language,omitempty"`
}

// Export serializes segments to the requested format. Serialization is
// all-or-nothing: on error no partial output is returned.
func Export(segments []Segment, format Format) ([]byte, error) {
	switch format {
	case FormatSRT:
		return []byte(ExportSRT(segments)), nil
	case FormatVTT:
		return []byte(ExportVTT(segments)), nil
	case FormatASS:
		return []byte(ExportASS(segments)), nil
	case FormatJSON:
		return ExportJSON(segments)
	default:
		return nil, fmt.Errorf("unsupported subtitle format: %q", format)
	}
}

// ExportSRT serializes segments as SubRip text: 1-indexed sequence numbers,
// HH:MM:SS,mmm timestamps, blank line between entries.
func ExportSRT(segments []Segment) string {
	var sb strings.Builder

	for i, seg := range segments {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, formatSRTTimestamp(seg.StartMs), formatSRTTimestamp(seg.EndMs), seg.Text)
	}

	return sb.String()
}

// ExportVTT serializes segments as WebVTT: header literal, blank line, one
// cue per segment with HH:MM:SS.mmm timestamps.
func ExportVTT(segments []Segment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for _, seg := range segments {
		fmt.Fprintf(&sb, "%s --> %s\n%s\n\n",
			formatVTTTimestamp(seg.StartMs), formatVTTTimestamp(seg.EndMs), seg.Text)
	}

	return sb.String()
}

// ExportASS serializes segments as an Advanced SubStation script with the
// fixed preamble and H:MM:SS.cc centisecond timestamps. The speaker ID is
// carried in the dialogue Name field.
func ExportASS(segments []Segment) string {
	var sb strings.Builder
	sb.WriteString(assPreamble)

	for _, seg := range segments {
		text := strings.ReplaceAll(seg.Text, "\n", `\N`)
		fmt.Fprintf(&sb, "Dialogue: 0,%s,%s,Default,%s,0,0,0,,%s\n",
			formatASSTimestamp(seg.StartMs), formatASSTimestamp(seg.EndMs), seg.SpeakerID, text)
	}

	return sb.String()
}

// ExportJSON serializes segments as a JSON array of
// {id, text, start, end, speaker, confidence, language} objects.
func ExportJSON(segments []Segment) ([]byte, error) {
	out := make([]jsonSegment, 0, len(segments))
	for _, seg := range segments {
		out = append(out, jsonSegment{
			ID:         seg.ID,
			Text:       seg.Text,
			Start:      seg.StartMs,
			End:        seg.EndMs,
			Speaker:    seg.SpeakerID,
			Confidence: seg.Confidence,
			Language:   seg.Language,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal segments: %w", err)
	}

	return data, nil
}

// formatSRTTimestamp renders milliseconds as HH:MM:SS,mmm.
func formatSRTTimestamp(ms int64) string {
	h, m, s, frac := splitTimestamp(ms)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, frac)
}

// formatVTTTimestamp renders milliseconds as HH:MM:SS.mmm.
func formatVTTTimestamp(ms int64) string {
	h, m, s, frac := splitTimestamp(ms)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, frac)
}

// formatASSTimestamp renders milliseconds as H:MM:SS.cc (centiseconds).
func formatASSTimestamp(ms int64) string {
	h, m, s, frac := splitTimestamp(ms)
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, frac/10)
}

func splitTimestamp(ms int64) (h, m, s, frac int64) {
	if ms < 0 {
		ms = 0
	}
	return ms / 3600000, ms / 60000 % 60, ms / 1000 % 60, ms % 1000
}
