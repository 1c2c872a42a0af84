package subtitle

import (
	"encoding/json"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	srtTimestampRe = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)
	assTimestampRe = regexp.MustCompile(`(\d+):(\d{2}):(\d{2})\.(\d{2})`)
)

// Importer parses subtitle files in SRT, VTT, ASS or JSON format. Malformed
// or unrecognized content yields an empty list plus a logged warning, never
// an error.
type Importer struct {
	logger *slog.Logger
}

// NewImporter creates a subtitle importer. logger may be nil.
func NewImporter(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{logger: logger}
}

// Import detects the format of the given file content and parses it into
// segments. filename is only consulted for its extension and may be empty.
func (im *Importer) Import(data []byte, filename string) []Segment {
	format, ok := im.DetectFormat(data, filename)
	if !ok {
		im.logger.Warn("unrecognized subtitle content, returning no segments",
			slog.String("filename", filename),
			slog.Int("bytes", len(data)),
		)
		return []Segment{}
	}

	var segments []Segment
	switch format {
	case FormatSRT:
		segments = im.parseSRT(string(data))
	case FormatVTT:
		segments = im.parseVTT(string(data))
	case FormatASS:
		segments = im.parseASS(string(data))
	case FormatJSON:
		segments = im.parseJSON(data)
	}

	if len(segments) == 0 {
		im.logger.Warn("subtitle content yielded no segments",
			slog.String("filename", filename),
			slog.String("format", string(format)),
		)
		return []Segment{}
	}

	return segments
}

// DetectFormat identifies the subtitle format from the file extension or,
// failing that, from content signatures.
func (im *Importer) DetectFormat(data []byte, filename string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".srt":
		return FormatSRT, true
	case ".vtt":
		return FormatVTT, true
	case ".ass", ".ssa":
		return FormatASS, true
	case ".json":
		return FormatJSON, true
	}

	content := string(data)
	trimmed := strings.TrimSpace(content)

	switch {
	case strings.Contains(content, "[Script Info]") || strings.Contains(content, "Dialogue:"):
		return FormatASS, true
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT, true
	case srtTimestampRe.MatchString(content):
		return FormatSRT, true
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		return FormatJSON, true
	}

	return "", false
}

// parseSRT parses SubRip text. Blocks are separated by blank lines; the
// sequence number line is optional.
func (im *Importer) parseSRT(content string) []Segment {
	var segments []Segment

	for _, block := range splitBlocks(content) {
		lines := strings.Split(block, "\n")

		cueIdx := -1
		var match []string
		for i, line := range lines {
			if m := srtTimestampRe.FindStringSubmatch(line); m != nil {
				cueIdx = i
				match = m
				break
			}
		}
		if cueIdx < 0 {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[cueIdx+1:], "\n"))
		if text == "" {
			continue
		}

		segments = append(segments, Segment{
			ID:         uuid.NewString(),
			Text:       text,
			StartMs:    srtMatchToMs(match[1:5]),
			EndMs:      srtMatchToMs(match[5:9]),
			Confidence: 1,
		})
	}

	return segments
}

// parseVTT parses WebVTT cues. Header and NOTE blocks carry no timestamp
// line and are skipped by the same block scan used for SRT.
func (im *Importer) parseVTT(content string) []Segment {
	return im.parseSRT(content)
}

// parseASS parses Dialogue lines of an Advanced SubStation script. The
// default event field order is assumed; the Name field maps to the speaker.
func (im *Importer) parseASS(content string) []Segment {
	var segments []Segment

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Dialogue:") {
			continue
		}

		// Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
		fields := strings.SplitN(strings.TrimPrefix(line, "Dialogue:"), ",", 10)
		if len(fields) < 10 {
			continue
		}

		start, okStart := assToMs(strings.TrimSpace(fields[1]))
		end, okEnd := assToMs(strings.TrimSpace(fields[2]))
		text := strings.TrimSpace(strings.ReplaceAll(fields[9], `\N`, "\n"))
		if !okStart || !okEnd || text == "" {
			continue
		}

		segments = append(segments, Segment{
			ID:         uuid.NewString(),
			Text:       text,
			StartMs:    start,
			EndMs:      end,
			SpeakerID:  strings.TrimSpace(fields[4]),
			Confidence: 1,
		})
	}

	return segments
}

// parseJSON parses the JSON export shape.
func (im *Importer) parseJSON(data []byte) []Segment {
	var raw []jsonSegment
	if err := json.Unmarshal(data, &raw); err != nil {
		im.logger.Warn("failed to parse subtitle JSON", slog.String("error", err.Error()))
		return nil
	}

	segments := make([]Segment, 0, len(raw))
	for _, r := range raw {
		if r.Text == "" {
			continue
		}

		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}

		segments = append(segments, Segment{
			ID:         id,
			Text:       r.Text,
			StartMs:    r.Start,
			EndMs:      r.End,
			SpeakerID:  r.Speaker,
			Confidence: r.Confidence,
			Language:   r.Language,
		})
	}

	return segments
}

// splitBlocks splits subtitle text into blank-line separated blocks.
func splitBlocks(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.Split(content, "\n\n")
}

// srtMatchToMs converts the four captured groups of one timestamp to
// milliseconds.
func srtMatchToMs(groups []string) int64 {
	h, _ := strconv.ParseInt(groups[0], 10, 64)
	m, _ := strconv.ParseInt(groups[1], 10, 64)
	s, _ := strconv.ParseInt(groups[2], 10, 64)
	ms, _ := strconv.ParseInt(groups[3], 10, 64)
	return ((h*60+m)*60+s)*1000 + ms
}

// assToMs converts an H:MM:SS.cc timestamp to milliseconds.
func assToMs(ts string) (int64, bool) {
	m := assTimestampRe.FindStringSubmatch(ts)
	if m == nil {
		return 0, false
	}

	h, _ := strconv.ParseInt(m[1], 10, 64)
	mi, _ := strconv.ParseInt(m[2], 10, 64)
	s, _ := strconv.ParseInt(m[3], 10, 64)
	cs, _ := strconv.ParseInt(m[4], 10, 64)
	return ((h*60+mi)*60+s)*1000 + cs*10, true
}
