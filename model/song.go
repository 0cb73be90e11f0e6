package model

import (
	"strings"

	"github.com/google/uuid"
)

// songNamespace scopes the name-based song IDs.
var songNamespace = uuid.MustParse("3f1c2b8e-5d0a-4c7e-9a61-8b2f4e6d7c10")

// Item is an element of the song body: a *Strophe or an Annotation.
type Item interface {
	isItem()
}

// Strophe is a verse, chorus or other block of lyrics.
type Strophe struct {
	Mark     StropheMark
	Segments []Segment
}

func (*Strophe) isItem() {}

// SingleLineSegments returns the segments split so that none spans a line break.
func (s *Strophe) SingleLineSegments() []Segment {
	var out []Segment
	for _, seg := range s.Segments {
		out = append(out, seg.SplitLines()...)
	}
	return out
}

// Text returns the strophe lyrics without chords.
func (s *Strophe) Text() string {
	var sb strings.Builder
	for _, seg := range s.Segments {
		sb.WriteString(seg.Text())
	}
	return sb.String()
}

// Song is a parsed song: heading annotations followed by strophes and
// interleaved annotations.
type Song struct {
	Annotations []Annotation
	Items       []Item
}

// Authors returns the names of all author annotations in order.
func (s *Song) Authors() []string {
	var names []string
	for _, a := range s.Annotations {
		if author, ok := a.(AuthorAnnotation); ok {
			names = append(names, author.Name)
		}
	}
	return names
}

// Title returns the first title annotation.
func (s *Song) Title() (string, bool) {
	for _, a := range s.Annotations {
		if title, ok := a.(TitleAnnotation); ok {
			return title.Title, true
		}
	}
	return "", false
}

// AnnotationsOfKind returns the song annotations for which keep is true.
func (s *Song) AnnotationsOfKind(keep func(Annotation) bool) []Annotation {
	var out []Annotation
	for _, a := range s.Annotations {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// IsHeading reports whether a is an author or title annotation.
func IsHeading(a Annotation) bool {
	switch a.(type) {
	case AuthorAnnotation, TitleAnnotation:
		return true
	default:
		return false
	}
}

// Strophes returns the strophes of the song body.
func (s *Song) Strophes() []*Strophe {
	var out []*Strophe
	for _, item := range s.Items {
		if st, ok := item.(*Strophe); ok {
			out = append(out, st)
		}
	}
	return out
}

// ID returns a stable identifier derived from the authors and title.
// Songs without either share the ID of the empty name.
func (s *Song) ID() string {
	title, _ := s.Title()
	name := strings.Join(s.Authors(), ", ") + "\x00" + title
	return uuid.NewSHA1(songNamespace, []byte(name)).String()
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
