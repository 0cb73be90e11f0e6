package model

import "strings"

// Segment is a run of strophe text. A chorded segment carries the chord
// that is played where its text begins.
type Segment interface {
	// Text returns the lyric text of the segment, possibly spanning lines.
	Text() string

	// Append returns a copy of the segment with s appended to its text.
	Append(s string) Segment

	// TrimSuffix returns a copy of the segment with suffix removed from its text.
	TrimSuffix(suffix string) Segment

	// SplitLines splits the segment into single-line segments.
	SplitLines() []Segment
}

// PlainSegment is lyric text without a chord.
type PlainSegment struct {
	Content string
}

// Text returns the segment text.
func (s PlainSegment) Text() string { return s.Content }

// Append returns the segment with extra text.
func (s PlainSegment) Append(text string) Segment {
	return PlainSegment{Content: s.Content + text}
}

// TrimSuffix returns the segment without the given suffix.
func (s PlainSegment) TrimSuffix(suffix string) Segment {
	return PlainSegment{Content: strings.TrimSuffix(s.Content, suffix)}
}

// SplitLines splits on newlines. Every chunk except the last keeps its
// newline; the last chunk is dropped when empty.
func (s PlainSegment) SplitLines() []Segment {
	chunks := strings.Split(s.Content, "\n")
	segments := make([]Segment, 0, len(chunks))
	for _, chunk := range chunks[:len(chunks)-1] {
		segments = append(segments, PlainSegment{Content: chunk + "\n"})
	}
	if last := chunks[len(chunks)-1]; last != "" {
		segments = append(segments, PlainSegment{Content: last})
	}
	return segments
}

// ChordedSegment is lyric text starting with a chord.
type ChordedSegment struct {
	Chord   Chord
	Content string
}

// Text returns the segment text.
func (s ChordedSegment) Text() string { return s.Content }

// Append returns the segment with extra text.
func (s ChordedSegment) Append(text string) Segment {
	return ChordedSegment{Chord: s.Chord, Content: s.Content + text}
}

// TrimSuffix returns the segment without the given suffix.
func (s ChordedSegment) TrimSuffix(suffix string) Segment {
	return ChordedSegment{Chord: s.Chord, Content: strings.TrimSuffix(s.Content, suffix)}
}

// SplitLines splits the text like a plain segment and keeps the chord on
// every resulting line.
func (s ChordedSegment) SplitLines() []Segment {
	plain := PlainSegment{Content: s.Content}.SplitLines()
	if len(plain) == 0 {
		return []Segment{s}
	}
	segments := make([]Segment, len(plain))
	for i, p := range plain {
		segments[i] = ChordedSegment{Chord: s.Chord, Content: p.Text()}
	}
	return segments
}
