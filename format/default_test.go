package format

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/songbook/model"
)

const louka = `
        Jan Novák - Na louce

     Capo: 2

1.  [Am]Šel jsem [G]loukou
    k [C]řece

R.  [F]Hej, hej
    [G]hou

     Note: slowly

1.`

func chordOf(root model.Note, mods ...string) model.Chord {
	c := model.Chord{Root: root}
	for _, m := range mods {
		c.Modifiers = append(c.Modifiers, model.GenericModifier{Text: m})
	}
	return c
}

func loukaSong() *model.Song {
	return &model.Song{
		Annotations: []model.Annotation{
			model.AuthorAnnotation{Name: "Jan Novák"},
			model.TitleAnnotation{Title: "Na louce"},
			model.GenericAnnotation{Key: "Capo", Value: "2"},
		},
		Items: []model.Item{
			&model.Strophe{Mark: model.NumberedMark{Number: 1}, Segments: []model.Segment{
				model.ChordedSegment{Chord: chordOf(model.NoteA, "m"), Content: "Šel jsem "},
				model.ChordedSegment{Chord: chordOf(model.NoteG), Content: "loukou\nk "},
				model.ChordedSegment{Chord: chordOf(model.NoteC), Content: "řece"},
			}},
			&model.Strophe{Mark: model.ChorusMark{}, Segments: []model.Segment{
				model.ChordedSegment{Chord: chordOf(model.NoteF), Content: "Hej, hej\n"},
				model.ChordedSegment{Chord: chordOf(model.NoteG), Content: "hou"},
			}},
			model.GenericAnnotation{Key: "Note", Value: "slowly"},
			&model.Strophe{Mark: model.NumberedMark{Number: 1}},
		},
	}
}

func newTestDefault(t *testing.T, params Params) *Default {
	t.Helper()
	f, err := NewDefault(params)
	require.NoError(t, err)
	return f
}

func TestDefault_Load(t *testing.T) {
	f := newTestDefault(t, nil)

	song, err := f.Load(louka)
	require.NoError(t, err)
	if diff := cmp.Diff(loukaSong(), song); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestDefault_Dump(t *testing.T) {
	f := newTestDefault(t, nil)

	text, err := f.Dump(loukaSong())
	require.NoError(t, err)
	assert.Equal(t, louka, text)
}

func TestDefault_RoundTripNormalized(t *testing.T) {
	f := newTestDefault(t, nil)

	song, err := f.Load(louka)
	require.NoError(t, err)
	text, err := f.Dump(song.Normalized())
	require.NoError(t, err)
	assert.Equal(t, louka, text)
}

func TestDefault_LoadVariants(t *testing.T) {
	f := newTestDefault(t, nil)

	tests := []struct {
		name string
		text string
		want *model.Song
	}{
		{
			name: "colon heading and colon marks",
			text: "Folk: Song\n\nR: la [D]la\n\n2:\n   li",
			want: &model.Song{
				Annotations: []model.Annotation{
					model.AuthorAnnotation{Name: "Folk"},
					model.TitleAnnotation{Title: "Song"},
				},
				Items: []model.Item{
					&model.Strophe{Mark: model.ChorusMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "la "},
						model.ChordedSegment{Chord: chordOf(model.NoteD), Content: "la"},
					}},
					&model.Strophe{Mark: model.NumberedMark{Number: 2}, Segments: []model.Segment{
						model.PlainSegment{Content: "li"},
					}},
				},
			},
		},
		{
			name: "title only heading",
			text: "        Lonely\n\nla la",
			want: &model.Song{
				Annotations: []model.Annotation{model.TitleAnnotation{Title: "Lonely"}},
				Items: []model.Item{
					&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "la la"},
					}},
				},
			},
		},
		{
			name: "untitled heading yields no annotation",
			text: "        <Untitled>\n\nla",
			want: &model.Song{
				Annotations: []model.Annotation{},
				Items: []model.Item{
					&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "la"},
					}},
				},
			},
		},
		{
			name: "lyrics starting with a letter are not a mark",
			text: "A - B\n\nA day in [E]May",
			want: &model.Song{
				Annotations: []model.Annotation{
					model.AuthorAnnotation{Name: "A"},
					model.TitleAnnotation{Title: "B"},
				},
				Items: []model.Item{
					&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "A day in "},
						model.ChordedSegment{Chord: chordOf(model.NoteE), Content: "May"},
					}},
				},
			},
		},
		{
			name: "chorus line is not a heading",
			text: "R: la la",
			want: &model.Song{
				Items: []model.Item{
					&model.Strophe{Mark: model.ChorusMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "la la"},
					}},
				},
			},
		},
		{
			name: "whitespace is collapsed",
			text: "X - Y\n\n  B.   one   two  \n   three",
			want: &model.Song{
				Annotations: []model.Annotation{
					model.AuthorAnnotation{Name: "X"},
					model.TitleAnnotation{Title: "Y"},
				},
				Items: []model.Item{
					&model.Strophe{Mark: model.LetteredMark{Letter: "B"}, Segments: []model.Segment{
						model.PlainSegment{Content: "one two\nthree"},
					}},
				},
			},
		},
		{
			name: "author and title annotations",
			text: "Author: Someone\nTitle: Something\n\nla",
			want: &model.Song{
				Annotations: []model.Annotation{
					model.AuthorAnnotation{Name: "Someone"},
					model.TitleAnnotation{Title: "Something"},
				},
				Items: []model.Item{
					&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{
						model.PlainSegment{Content: "la"},
					}},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Load(tt.text)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefault_LoadErrors(t *testing.T) {
	f := newTestDefault(t, nil)

	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{"empty", "", "empty song"},
		{"whitespace only", " \n\n \n", "empty song"},
		{"heading only", "A - B\n", "empty song: no song body found"},
		{"unclosed chord", "1. [Am la", "mismatched chord start/end marks"},
		{"bad chord root", "1. [x]la", "invalid chord root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.Load(tt.text)
			require.Error(t, err)
			assert.True(t, IsParseError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefault_Params(t *testing.T) {
	t.Run("custom chord marks and indents", func(t *testing.T) {
		f := newTestDefault(t, Params{
			"chord_start":       "<",
			"chord_end":         ">",
			"heading_indent":    "0",
			"strophe_indent":    "6",
			"heading_marker":    " / ",
			"untitled_title":    "?",
			"annotation_indent": "0",
		})

		song, err := f.Load("X / Y\n\n1. <C>la")
		require.NoError(t, err)
		title, _ := song.Title()
		assert.Equal(t, "Y", title)

		text, err := f.Dump(song)
		require.NoError(t, err)
		assert.Equal(t, "\nX / Y\n\n1.    <C>la", text)

		text, err = f.Dump(&model.Song{Items: []model.Item{
			&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{model.PlainSegment{Content: "a"}}},
		}})
		require.NoError(t, err)
		assert.Equal(t, "\n?\n\n      a", text)
	})

	t.Run("invalid params", func(t *testing.T) {
		tests := []struct {
			params Params
			key    string
		}{
			{Params{"bogus": "1"}, "bogus"},
			{Params{"heading_indent": "-1"}, "heading_indent"},
			{Params{"strophe_indent": "wide"}, "strophe_indent"},
			{Params{"chord_start": ""}, "chord_start"},
			{Params{"annotation_delimiter": " "}, "annotation_delimiter"},
			{Params{"heading_marker": ""}, "heading_marker"},
			{Params{"heading_marker": "  "}, "heading_marker"},
			{Params{"strophe_mark_delimiter": ""}, "strophe_mark_delimiter"},
			{Params{"bare_marks": "maybe"}, "bare_marks"},
		}
		for _, tt := range tests {
			_, err := NewDefault(tt.params)
			var pe *ParamError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.key, pe.Key)
		}
	})
}

func TestDefault_BareMarks(t *testing.T) {
	tests := []struct {
		text      string
		wantMark  model.StropheMark
		wantLyric string
		delimited bool
	}{
		{"1 Hello world", model.NumberedMark{Number: 1}, "Hello world", false},
		{"R la la la", model.ChorusMark{}, "la la la", false},
		{"A lonely road", model.LetteredMark{Letter: "A"}, "lonely road", false},
		{"2. with delimiter", model.NumberedMark{Number: 2}, "with delimiter", true},
		{"Hello world", model.EmptyMark{}, "Hello world", true},
	}

	strict := newTestDefault(t, nil)
	bare := newTestDefault(t, Params{"bare_marks": "true"})

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			song, err := bare.Load(tt.text)
			require.NoError(t, err)
			require.Len(t, song.Strophes(), 1)
			st := song.Strophes()[0]
			assert.Equal(t, tt.wantMark, st.Mark)
			assert.Equal(t, []model.Segment{model.PlainSegment{Content: tt.wantLyric}}, st.Segments)

			// Without bare marks only delimited marks are recognised.
			song, err = strict.Load(tt.text)
			require.NoError(t, err)
			require.Len(t, song.Strophes(), 1)
			st = song.Strophes()[0]
			if tt.delimited {
				assert.Equal(t, tt.wantMark, st.Mark)
				assert.Equal(t, []model.Segment{model.PlainSegment{Content: tt.wantLyric}}, st.Segments)
				return
			}
			assert.Equal(t, model.EmptyMark{}, st.Mark)
			assert.Equal(t, []model.Segment{model.PlainSegment{Content: tt.text}}, st.Segments)
		})
	}
}

func TestDefault_StropheIndentGrowsWithMarks(t *testing.T) {
	f := newTestDefault(t, nil)
	song := &model.Song{Items: []model.Item{
		&model.Strophe{Mark: model.NumberedMark{Number: 100}, Segments: []model.Segment{model.PlainSegment{Content: "a\nb"}}},
		&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{model.PlainSegment{Content: "c"}}},
	}}

	text, err := f.Dump(song)
	require.NoError(t, err)
	assert.Equal(t, "\n        <Untitled>\n\n100. a\n     b\n\n     c", text)
}

func TestDefault_Book(t *testing.T) {
	f := newTestDefault(t, nil)
	second := &model.Song{
		Annotations: []model.Annotation{model.TitleAnnotation{Title: "Second"}},
		Items: []model.Item{
			&model.Strophe{Mark: model.EmptyMark{}, Segments: []model.Segment{model.PlainSegment{Content: "la"}}},
		},
	}

	text, err := f.DumpBook([]*model.Song{loukaSong(), second})
	require.NoError(t, err)
	assert.Contains(t, text, "\n\f\n")

	songs, err := f.LoadBook(text)
	require.NoError(t, err)
	require.Len(t, songs, 2)
	if diff := cmp.Diff([]*model.Song{loukaSong(), second}, songs); diff != "" {
		t.Errorf("LoadBook() mismatch (-want +got):\n%s", diff)
	}

	_, err = f.LoadBook("\f \f")
	assert.True(t, IsParseError(err))
}
