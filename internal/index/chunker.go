package index

import (
	"strings"

	"vidsage/internal/transcript"
)

// Piece is one grouped span of transcript text before it is embedded
// and stored.
type Piece struct {
	Text  string
	Start float64
	End   float64
}

// GroupSegments groups raw caption segments into sentence-bounded
// chunks. A chunk closes when the accumulated text ends with sentence
// punctuation, or when it exceeds the duration or character caps.
func GroupSegments(segments []transcript.Segment, maxDuration float64, maxChars int) []Piece {
	if len(segments) == 0 {
		return nil
	}
	if maxDuration <= 0 {
		maxDuration = 30
	}
	if maxChars <= 0 {
		maxChars = 500
	}

	var pieces []Piece
	var text strings.Builder
	start := -1.0

	flush := func(end float64) {
		if text.Len() == 0 {
			return
		}
		pieces = append(pieces, Piece{
			Text:  strings.TrimSpace(text.String()),
			Start: start,
			End:   end,
		})
		text.Reset()
		start = -1
	}

	for _, seg := range segments {
		if start < 0 {
			start = seg.Start
		}
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(seg.Text)

		duration := seg.Start - start
		trimmed := strings.TrimRight(text.String(), " ")
		endsSentence := strings.HasSuffix(trimmed, ".") ||
			strings.HasSuffix(trimmed, "!") ||
			strings.HasSuffix(trimmed, "?")

		if endsSentence || duration >= maxDuration || text.Len() >= maxChars {
			flush(seg.Start + seg.Duration)
		}
	}
	// Whatever is left closes at the last segment's end.
	last := segments[len(segments)-1]
	flush(last.Start + last.Duration)

	return pieces
}
