package model

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalized returns a canonical copy of the song. The receiver is not
// modified.
//
// Text is converted to NFC, annotation keys and values are trimmed,
// repeated author/title annotations are dropped, chord modifiers written
// as free text are interpreted where possible, and adjacent plain
// segments are merged.
func (s *Song) Normalized() *Song {
	out := &Song{
		Annotations: make([]Annotation, 0, len(s.Annotations)),
		Items:       make([]Item, 0, len(s.Items)),
	}

	seen := make(map[Annotation]bool)
	for _, a := range s.Annotations {
		a = normalizeAnnotation(a)
		if IsHeading(a) {
			if seen[a] {
				continue
			}
			seen[a] = true
		}
		out.Annotations = append(out.Annotations, a)
	}

	for _, item := range s.Items {
		switch v := item.(type) {
		case *Strophe:
			out.Items = append(out.Items, normalizeStrophe(v))
		case Annotation:
			out.Items = append(out.Items, normalizeAnnotation(v))
		default:
			out.Items = append(out.Items, item)
		}
	}
	return out
}

func normalizeText(s string) string {
	return norm.NFC.String(s)
}

func normalizeAnnotation(a Annotation) Annotation {
	switch v := a.(type) {
	case AuthorAnnotation:
		return AuthorAnnotation{Name: strings.TrimSpace(normalizeText(v.Name))}
	case TitleAnnotation:
		return TitleAnnotation{Title: strings.TrimSpace(normalizeText(v.Title))}
	case GenericAnnotation:
		return GenericAnnotation{
			Key:   strings.TrimSpace(normalizeText(v.Key)),
			Value: strings.TrimSpace(normalizeText(v.Value)),
		}
	default:
		return a
	}
}

func normalizeStrophe(st *Strophe) *Strophe {
	out := &Strophe{Mark: st.Mark}
	for _, seg := range st.Segments {
		switch v := seg.(type) {
		case PlainSegment:
			text := normalizeText(v.Content)
			if text == "" {
				continue
			}
			if n := len(out.Segments); n > 0 {
				if prev, ok := out.Segments[n-1].(PlainSegment); ok {
					out.Segments[n-1] = prev.Append(text)
					continue
				}
			}
			out.Segments = append(out.Segments, PlainSegment{Content: text})
		case ChordedSegment:
			out.Segments = append(out.Segments, ChordedSegment{
				Chord:   normalizeChord(v.Chord),
				Content: normalizeText(v.Content),
			})
		default:
			out.Segments = append(out.Segments, seg)
		}
	}
	return out
}

// normalizeChord replaces generic modifiers with typed ones when the
// whole modifier text is understood.
func normalizeChord(c Chord) Chord {
	if !c.IsGeneric() {
		return c
	}
	var text strings.Builder
	for _, m := range c.Modifiers {
		text.WriteString(m.String())
	}
	mods, ok := ParseModifiers(text.String())
	if !ok {
		return c
	}
	return Chord{Root: c.Root, Modifiers: mods}
}
