package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainSegment_SplitLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Segment
	}{
		{
			name: "single line",
			text: "hello",
			want: []Segment{PlainSegment{Content: "hello"}},
		},
		{
			name: "keeps newlines on all but last",
			text: "one\ntwo\nthree",
			want: []Segment{
				PlainSegment{Content: "one\n"},
				PlainSegment{Content: "two\n"},
				PlainSegment{Content: "three"},
			},
		},
		{
			name: "trailing newline drops empty last chunk",
			text: "one\n",
			want: []Segment{PlainSegment{Content: "one\n"}},
		},
		{
			name: "empty text",
			text: "",
			want: []Segment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PlainSegment{Content: tt.text}.SplitLines()
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChordedSegment_SplitLines(t *testing.T) {
	chord := Chord{Root: NoteA, Modifiers: []ChordModifier{Minor{}}}

	t.Run("chord repeated on every line", func(t *testing.T) {
		got := ChordedSegment{Chord: chord, Content: "la\nli"}.SplitLines()
		assert.Equal(t, []Segment{
			ChordedSegment{Chord: chord, Content: "la\n"},
			ChordedSegment{Chord: chord, Content: "li"},
		}, got)
	})

	t.Run("empty text keeps the segment", func(t *testing.T) {
		seg := ChordedSegment{Chord: chord}
		assert.Equal(t, []Segment{seg}, seg.SplitLines())
	})
}

func TestSegment_AppendTrimSuffix(t *testing.T) {
	plain := PlainSegment{Content: "la"}
	assert.Equal(t, PlainSegment{Content: "la la"}, plain.Append(" la"))
	assert.Equal(t, PlainSegment{Content: "l"}, plain.TrimSuffix("a"))
	assert.Equal(t, plain, plain.TrimSuffix("x"), "missing suffix leaves text unchanged")

	chorded := ChordedSegment{Chord: Chord{Root: NoteG}, Content: "sun "}
	assert.Equal(t, ChordedSegment{Chord: Chord{Root: NoteG}, Content: "sun shine"}, chorded.Append("shine"))
	assert.Equal(t, ChordedSegment{Chord: Chord{Root: NoteG}, Content: "sun"}, chorded.TrimSuffix(" "))
}

func TestChord_String(t *testing.T) {
	tests := []struct {
		chord Chord
		want  string
	}{
		{Chord{Root: NoteC}, "C"},
		{Chord{Root: NoteA, Modifiers: []ChordModifier{Minor{}, DominantSeventh{}}}, "Am7"},
		{Chord{Root: NoteF, Modifiers: []ChordModifier{MajorSeventh{}}}, "Fmaj7"},
		{Chord{Root: NoteD, Modifiers: []ChordModifier{Suspended{Factor: 4}}}, "Dsus4"},
		{Chord{Root: NoteG, Modifiers: []ChordModifier{AddedNote{Factor: 9}}}, "G9"},
		{Chord{Root: NoteH, Modifiers: []ChordModifier{Altered{Direction: Diminished, Factor: 5}}}, "Hdim"},
		{Chord{Root: NoteE, Modifiers: []ChordModifier{Altered{Direction: Augmented, Factor: 7}}}, "E+7"},
		{Chord{Root: NoteD, Modifiers: []ChordModifier{BassNote{Note: NoteFSharp}}}, "D/F#"},
		{Chord{Root: NoteC, Modifiers: []ChordModifier{GenericModifier{Text: "weird"}}}, "Cweird"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.chord.String())
		})
	}
}

func TestParseModifiers(t *testing.T) {
	tests := []struct {
		text   string
		want   []ChordModifier
		wantOK bool
	}{
		{"", nil, true},
		{"m", []ChordModifier{Minor{}}, true},
		{"m7", []ChordModifier{Minor{}, DominantSeventh{}}, true},
		{"maj7", []ChordModifier{MajorSeventh{}}, true},
		{"mmaj7", []ChordModifier{Minor{}, MajorSeventh{}}, true},
		{"sus4", []ChordModifier{Suspended{Factor: 4}}, true},
		{"dim", []ChordModifier{Altered{Direction: Diminished, Factor: 5}}, true},
		{"+", []ChordModifier{Altered{Direction: Augmented, Factor: 5}}, true},
		{"6", []ChordModifier{AddedNote{Factor: 6}}, true},
		{"/G", []ChordModifier{BassNote{Note: NoteG}}, true},
		{"m/F#", []ChordModifier{Minor{}, BassNote{Note: NoteFSharp}}, true},
		{"sus", nil, false},
		{"/X", nil, false},
		{"add9", nil, false},
		{"mi", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ParseModifiers(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNote_IsValid(t *testing.T) {
	for _, n := range []string{"C", "C#", "Db", "H", "Ab", "B", "Bb"} {
		assert.True(t, ValidNote(n), n)
	}
	for _, n := range []string{"", "c", "X", "C##", "Hx", "Am"} {
		assert.False(t, ValidNote(n), n)
	}
}

func TestStropheMarks(t *testing.T) {
	t.Run("numbered", func(t *testing.T) {
		m, err := ParseNumberedMark("12")
		require.NoError(t, err)
		assert.Equal(t, "12", m.String(true))
		assert.Equal(t, "12", m.String(false))

		_, err = ParseNumberedMark("x")
		assert.Error(t, err)
	})

	t.Run("lettered", func(t *testing.T) {
		m, err := ParseLetteredMark("B")
		require.NoError(t, err)
		assert.Equal(t, "B", m.String(true))

		_, err = ParseLetteredMark("F")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid lettered strophe mark")

		_, err = ParseLetteredMark("AB")
		assert.Error(t, err)
	})

	t.Run("invariant marks", func(t *testing.T) {
		assert.Equal(t, "R", ChorusMark{}.String(true))
		assert.Equal(t, "Chorus", ChorusMark{}.String(false))
		assert.Equal(t, "C", CodaMark{}.String(true))
		assert.Equal(t, "Coda", CodaMark{}.String(false))
		assert.Equal(t, "", EmptyMark{}.String(true))
		assert.Equal(t, "", EmptyMark{}.String(false))
	})
}

func TestAnnotations(t *testing.T) {
	assert.Equal(t, "Author: Jan", AuthorAnnotation{Name: "Jan"}.Format(": "))
	assert.Equal(t, "Title - Song", TitleAnnotation{Title: "Song"}.Format(" - "))
	assert.Equal(t, "Capo: 2", GenericAnnotation{Key: "Capo", Value: "2"}.Format(": "))
	assert.False(t, GenericAnnotation{}.IsChordAnnotation())

	assert.Equal(t, AuthorAnnotation{Name: "x"}, AnnotationFor(" AUTHOR ", "x"))
	assert.Equal(t, TitleAnnotation{Title: "x"}, AnnotationFor("title", "x"))
	assert.Equal(t, GenericAnnotation{Key: "Capo", Value: "x"}, AnnotationFor("Capo", "x"))
}

func TestSong_Accessors(t *testing.T) {
	chorus := &Strophe{Mark: ChorusMark{}, Segments: []Segment{PlainSegment{Content: "la la"}}}
	song := &Song{
		Annotations: []Annotation{
			AuthorAnnotation{Name: "A"},
			TitleAnnotation{Title: "First"},
			AuthorAnnotation{Name: "B"},
			TitleAnnotation{Title: "Second"},
			GenericAnnotation{Key: "Capo", Value: "2"},
		},
		Items: []Item{chorus, GenericAnnotation{Key: "Note", Value: "slowly"}},
	}

	assert.Equal(t, []string{"A", "B"}, song.Authors())
	title, ok := song.Title()
	assert.True(t, ok)
	assert.Equal(t, "First", title)
	assert.Len(t, song.AnnotationsOfKind(IsHeading), 4)
	assert.Equal(t, []*Strophe{chorus}, song.Strophes())
	assert.Equal(t, "la la", chorus.Text())

	_, ok = (&Song{}).Title()
	assert.False(t, ok)
}

func TestSong_ID(t *testing.T) {
	a := &Song{Annotations: []Annotation{AuthorAnnotation{Name: "X"}, TitleAnnotation{Title: "Y"}}}
	b := &Song{Annotations: []Annotation{TitleAnnotation{Title: "Y"}, AuthorAnnotation{Name: "X"}}}
	c := &Song{Annotations: []Annotation{TitleAnnotation{Title: "Z"}}}

	assert.Equal(t, a.ID(), b.ID(), "ID depends on names, not annotation order")
	assert.NotEqual(t, a.ID(), c.ID())
	assert.Len(t, a.ID(), 36)
}

func TestStrophe_SingleLineSegments(t *testing.T) {
	g := Chord{Root: NoteG}
	st := &Strophe{
		Mark: NumberedMark{Number: 1},
		Segments: []Segment{
			PlainSegment{Content: "Walk "},
			ChordedSegment{Chord: g, Content: "on\nand "},
			PlainSegment{Content: "on"},
		},
	}
	assert.Equal(t, []Segment{
		PlainSegment{Content: "Walk "},
		ChordedSegment{Chord: g, Content: "on\n"},
		ChordedSegment{Chord: g, Content: "and "},
		PlainSegment{Content: "on"},
	}, st.SingleLineSegments())
}
