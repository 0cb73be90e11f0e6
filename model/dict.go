package model

import (
	"fmt"
)

// SongDict is the structured, serialisable form of a Song. Every kind of
// annotation, mark, segment and chord modifier is tagged with a "type"
// field so that the conversion is lossless.
type SongDict struct {
	ID          string           `json:"id,omitempty" yaml:"id,omitempty"`
	Annotations []AnnotationDict `json:"annotations" yaml:"annotations"`
	Items       []ItemDict       `json:"items" yaml:"items"`
}

// AnnotationDict is the serialisable form of an Annotation.
type AnnotationDict struct {
	Type  string `json:"type" yaml:"type"`
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Key   string `json:"key,omitempty" yaml:"key,omitempty"`
	Value string `json:"value,omitempty" yaml:"value,omitempty"`
}

// ItemDict is either a strophe (type "strophe") or an annotation.
type ItemDict struct {
	AnnotationDict `yaml:",inline"`

	Mark     *MarkDict     `json:"mark,omitempty" yaml:"mark,omitempty"`
	Segments []SegmentDict `json:"segments,omitempty" yaml:"segments,omitempty"`
}

// MarkDict is the serialisable form of a StropheMark.
type MarkDict struct {
	Type   string `json:"type" yaml:"type"`
	Number int    `json:"number,omitempty" yaml:"number,omitempty"`
	Letter string `json:"letter,omitempty" yaml:"letter,omitempty"`
}

// SegmentDict is the serialisable form of a Segment.
type SegmentDict struct {
	Type  string     `json:"type" yaml:"type"`
	Chord *ChordDict `json:"chord,omitempty" yaml:"chord,omitempty"`
	Text  string     `json:"text" yaml:"text"`
}

// ChordDict is the serialisable form of a Chord.
type ChordDict struct {
	Root      string         `json:"root" yaml:"root"`
	Modifiers []ModifierDict `json:"modifiers,omitempty" yaml:"modifiers,omitempty"`
}

// ModifierDict is the serialisable form of a ChordModifier.
type ModifierDict struct {
	Type      string `json:"type" yaml:"type"`
	Factor    int    `json:"factor,omitempty" yaml:"factor,omitempty"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Note      string `json:"note,omitempty" yaml:"note,omitempty"`
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Type tags used in the dict representation.
const (
	TypeAuthor  = "author"
	TypeTitle   = "title"
	TypeGeneric = "generic"
	TypeStrophe = "strophe"

	TypeNumbered = "numbered"
	TypeLettered = "lettered"
	TypeChorus   = "chorus"
	TypeCoda     = "coda"
	TypeEmpty    = "empty"

	TypePlain   = "plain"
	TypeChorded = "chorded"

	TypeMinor           = "minor"
	TypeDominantSeventh = "dominant_seventh"
	TypeMajorSeventh    = "major_seventh"
	TypeAddedNote       = "added_note"
	TypeSuspended       = "suspended"
	TypeAltered         = "altered"
	TypeBassNote        = "bass_note"
)

// ToDict converts the song into its serialisable form.
func (s *Song) ToDict() SongDict {
	d := SongDict{
		ID:          s.ID(),
		Annotations: make([]AnnotationDict, 0, len(s.Annotations)),
		Items:       make([]ItemDict, 0, len(s.Items)),
	}
	for _, a := range s.Annotations {
		d.Annotations = append(d.Annotations, annotationToDict(a))
	}
	for _, item := range s.Items {
		switch v := item.(type) {
		case *Strophe:
			d.Items = append(d.Items, stropheToDict(v))
		case Annotation:
			d.Items = append(d.Items, ItemDict{AnnotationDict: annotationToDict(v)})
		}
	}
	return d
}

// FromDict rebuilds a song from its serialisable form. The ID field is
// ignored; it is always derived from the annotations.
func FromDict(d SongDict) (*Song, error) {
	song := &Song{
		Annotations: make([]Annotation, 0, len(d.Annotations)),
		Items:       make([]Item, 0, len(d.Items)),
	}
	for i, ad := range d.Annotations {
		a, err := annotationFromDict(ad)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		song.Annotations = append(song.Annotations, a)
	}
	for i, id := range d.Items {
		if id.Type == TypeStrophe {
			st, err := stropheFromDict(id)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			song.Items = append(song.Items, st)
			continue
		}
		a, err := annotationFromDict(id.AnnotationDict)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		song.Items = append(song.Items, a)
	}
	return song, nil
}

func annotationToDict(a Annotation) AnnotationDict {
	switch v := a.(type) {
	case AuthorAnnotation:
		return AnnotationDict{Type: TypeAuthor, Name: v.Name}
	case TitleAnnotation:
		return AnnotationDict{Type: TypeTitle, Title: v.Title}
	case GenericAnnotation:
		return AnnotationDict{Type: TypeGeneric, Key: v.Key, Value: v.Value}
	default:
		return AnnotationDict{Type: TypeGeneric, Value: a.Format("")}
	}
}

func annotationFromDict(d AnnotationDict) (Annotation, error) {
	switch d.Type {
	case TypeAuthor:
		return AuthorAnnotation{Name: d.Name}, nil
	case TypeTitle:
		return TitleAnnotation{Title: d.Title}, nil
	case TypeGeneric:
		return GenericAnnotation{Key: d.Key, Value: d.Value}, nil
	default:
		return nil, fmt.Errorf("unknown annotation type %q", d.Type)
	}
}

func stropheToDict(st *Strophe) ItemDict {
	d := ItemDict{
		AnnotationDict: AnnotationDict{Type: TypeStrophe},
		Mark:           markToDict(st.Mark),
		Segments:       make([]SegmentDict, 0, len(st.Segments)),
	}
	for _, seg := range st.Segments {
		switch v := seg.(type) {
		case ChordedSegment:
			cd := chordToDict(v.Chord)
			d.Segments = append(d.Segments, SegmentDict{Type: TypeChorded, Chord: &cd, Text: v.Content})
		default:
			d.Segments = append(d.Segments, SegmentDict{Type: TypePlain, Text: seg.Text()})
		}
	}
	return d
}

func stropheFromDict(d ItemDict) (*Strophe, error) {
	mark, err := markFromDict(d.Mark)
	if err != nil {
		return nil, err
	}
	st := &Strophe{Mark: mark}
	for i, sd := range d.Segments {
		switch sd.Type {
		case TypePlain:
			st.Segments = append(st.Segments, PlainSegment{Content: sd.Text})
		case TypeChorded:
			if sd.Chord == nil {
				return nil, fmt.Errorf("segment %d: chorded segment without chord", i)
			}
			chord, err := chordFromDict(*sd.Chord)
			if err != nil {
				return nil, fmt.Errorf("segment %d: %w", i, err)
			}
			st.Segments = append(st.Segments, ChordedSegment{Chord: chord, Content: sd.Text})
		default:
			return nil, fmt.Errorf("segment %d: unknown segment type %q", i, sd.Type)
		}
	}
	return st, nil
}

func markToDict(m StropheMark) *MarkDict {
	switch v := m.(type) {
	case NumberedMark:
		return &MarkDict{Type: TypeNumbered, Number: v.Number}
	case LetteredMark:
		return &MarkDict{Type: TypeLettered, Letter: v.Letter}
	case ChorusMark:
		return &MarkDict{Type: TypeChorus}
	case CodaMark:
		return &MarkDict{Type: TypeCoda}
	default:
		return &MarkDict{Type: TypeEmpty}
	}
}

func markFromDict(d *MarkDict) (StropheMark, error) {
	if d == nil {
		return EmptyMark{}, nil
	}
	switch d.Type {
	case TypeNumbered:
		return NumberedMark{Number: d.Number}, nil
	case TypeLettered:
		return ParseLetteredMark(d.Letter)
	case TypeChorus:
		return ChorusMark{}, nil
	case TypeCoda:
		return CodaMark{}, nil
	case TypeEmpty, "":
		return EmptyMark{}, nil
	default:
		return nil, fmt.Errorf("unknown strophe mark type %q", d.Type)
	}
}

func chordToDict(c Chord) ChordDict {
	d := ChordDict{Root: string(c.Root)}
	for _, m := range c.Modifiers {
		d.Modifiers = append(d.Modifiers, modifierToDict(m))
	}
	return d
}

func chordFromDict(d ChordDict) (Chord, error) {
	if !ValidNote(d.Root) {
		return Chord{}, fmt.Errorf("invalid chord root %q", d.Root)
	}
	c := Chord{Root: Note(d.Root)}
	for _, md := range d.Modifiers {
		m, err := modifierFromDict(md)
		if err != nil {
			return Chord{}, err
		}
		c.Modifiers = append(c.Modifiers, m)
	}
	return c, nil
}

func modifierToDict(m ChordModifier) ModifierDict {
	switch v := m.(type) {
	case Minor:
		return ModifierDict{Type: TypeMinor}
	case DominantSeventh:
		return ModifierDict{Type: TypeDominantSeventh}
	case MajorSeventh:
		return ModifierDict{Type: TypeMajorSeventh}
	case AddedNote:
		return ModifierDict{Type: TypeAddedNote, Factor: v.Factor}
	case Suspended:
		return ModifierDict{Type: TypeSuspended, Factor: v.Factor}
	case Altered:
		return ModifierDict{Type: TypeAltered, Direction: v.Direction, Factor: v.Factor}
	case BassNote:
		return ModifierDict{Type: TypeBassNote, Note: string(v.Note)}
	default:
		return ModifierDict{Type: TypeGeneric, Text: m.String()}
	}
}

func modifierFromDict(d ModifierDict) (ChordModifier, error) {
	switch d.Type {
	case TypeMinor:
		return Minor{}, nil
	case TypeDominantSeventh:
		return DominantSeventh{}, nil
	case TypeMajorSeventh:
		return MajorSeventh{}, nil
	case TypeAddedNote:
		return AddedNote{Factor: d.Factor}, nil
	case TypeSuspended:
		return Suspended{Factor: d.Factor}, nil
	case TypeAltered:
		if d.Direction != Augmented && d.Direction != Diminished {
			return nil, fmt.Errorf("invalid alteration direction %q", d.Direction)
		}
		return Altered{Direction: d.Direction, Factor: d.Factor}, nil
	case TypeBassNote:
		if !ValidNote(d.Note) {
			return nil, fmt.Errorf("invalid bass note %q", d.Note)
		}
		return BassNote{Note: Note(d.Note)}, nil
	case TypeGeneric:
		return GenericModifier{Text: d.Text}, nil
	default:
		return nil, fmt.Errorf("unknown chord modifier type %q", d.Type)
	}
}
