// Package typeset lays out strophes as chord lines above lyric lines,
// measuring text by terminal display width.
package typeset

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/c360studio/songbook/model"
)

// Line is one lyric line with the chords to be printed above it.
type Line struct {
	Chords string
	Lyrics string
}

// HasChords reports whether any chord is placed on the line.
func (l Line) HasChords() bool {
	return strings.TrimSpace(l.Chords) != ""
}

// Width returns the display width of the wider of the two rows.
func (l Line) Width() int {
	return max(runewidth.StringWidth(l.Chords), runewidth.StringWidth(l.Lyrics))
}

// Layout places every chord at the display column where its text begins.
// A chord whose text runs onto the next line is printed once, where it is
// struck. Chords on one line are kept at least one column apart; when two
// chords would collide the lyrics are padded with spaces to make room.
func Layout(st *model.Strophe) []Line {
	var lines []Line
	var chords, lyrics strings.Builder
	var cw, lw int
	open := false

	flush := func() {
		lines = append(lines, Line{
			Chords: strings.TrimRight(chords.String(), " "),
			Lyrics: lyrics.String(),
		})
		chords.Reset()
		lyrics.Reset()
		cw, lw = 0, 0
		open = false
	}

	for _, seg := range st.Segments {
		for i, piece := range seg.SplitLines() {
			open = true
			if cs, ok := piece.(model.ChordedSegment); ok && i == 0 {
				need := cw
				if cw > 0 {
					need++
				}
				if lw < need {
					lyrics.WriteString(strings.Repeat(" ", need-lw))
					lw = need
				}
				chords.WriteString(strings.Repeat(" ", lw-cw))
				name := cs.Chord.String()
				chords.WriteString(name)
				cw = lw + runewidth.StringWidth(name)
			}
			text, eol := strings.CutSuffix(piece.Text(), "\n")
			lyrics.WriteString(text)
			lw += runewidth.StringWidth(text)
			if eol {
				flush()
			}
		}
	}
	if open {
		flush()
	}
	return lines
}

// Merge is the inverse of Layout for one line: it returns the lyrics with
// each chord of the chord row inserted, wrapped in start and end marks, at
// the column it is printed above. Lyrics shorter than a chord's column are
// padded with spaces.
func Merge(chordRow, lyrics, start, end string) string {
	var sb strings.Builder
	w := 0
	runes := []rune(lyrics)
	i := 0
	for _, m := range splitColumns(chordRow) {
		for i < len(runes) && w < m.col {
			sb.WriteRune(runes[i])
			w += runewidth.RuneWidth(runes[i])
			i++
		}
		if w < m.col {
			sb.WriteString(strings.Repeat(" ", m.col-w))
			w = m.col
		}
		sb.WriteString(start + m.text + end)
	}
	sb.WriteString(string(runes[i:]))
	return sb.String()
}

type column struct {
	col  int
	text string
}

// splitColumns returns the whitespace-separated fields of s with the
// display column each starts at.
func splitColumns(s string) []column {
	var out []column
	w := 0
	start := -1
	var field strings.Builder
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if start >= 0 {
				out = append(out, column{col: start, text: field.String()})
				field.Reset()
				start = -1
			}
			w++
			continue
		}
		if start < 0 {
			start = w
		}
		field.WriteRune(r)
		w += runewidth.RuneWidth(r)
	}
	if start >= 0 {
		out = append(out, column{col: start, text: field.String()})
	}
	return out
}
