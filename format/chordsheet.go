package format

import (
	"strings"

	"github.com/c360studio/songbook/model"
	"github.com/c360studio/songbook/typeset"
)

// ChordSheetName is the registry name of the chords-above-lyrics format.
const ChordSheetName = "chordsheet"

// ChordSheet prints chords on their own line above the lyrics:
//
//	        Author - Title
//
//	    Am          G
//	1.  Down by the river
//	       C
//	    we sing
//
// It shares the heading, annotation and separator conventions and the
// params of the default format.
type ChordSheet struct {
	*Default
}

// NewChordSheet creates the chord sheet format.
func NewChordSheet(params Params) (*ChordSheet, error) {
	r := newParamReader(params)
	f := &ChordSheet{Default: newDefault(r)}
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

// Name returns the registry name.
func (f *ChordSheet) Name() string { return ChordSheetName }

// Load parses one song.
func (f *ChordSheet) Load(text string) (*model.Song, error) {
	return f.Default.Load(f.inlineChords(text))
}

// LoadBook parses songs separated by the song separator.
func (f *ChordSheet) LoadBook(text string) ([]*model.Song, error) {
	return f.loadBook(text, f.Load)
}

// inlineChords rewrites chord lines into inline chord marks on the lyric
// line below them.
func (f *ChordSheet) inlineChords(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if !isChordLine(line) {
			out = append(out, line)
			continue
		}
		lyrics := ""
		if i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != "" && !isChordLine(lines[i+1]) {
			lyrics = lines[i+1]
			i++
		}
		out = append(out, typeset.Merge(line, lyrics, f.ChordStart, f.ChordEnd))
	}
	return strings.Join(out, "\n")
}

// isChordLine reports whether every token of line is a chord.
func isChordLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	for _, field := range fields {
		if !IsChordToken(field) {
			return false
		}
	}
	return true
}

// Dump serialises one song.
func (f *ChordSheet) Dump(song *model.Song) (string, error) {
	return f.dumpSong(song, f.dumpStrophe), nil
}

// DumpBook serialises songs separated by the song separator.
func (f *ChordSheet) DumpBook(songs []*model.Song) (string, error) {
	return f.dumpBook(songs, f.Dump)
}

func (f *ChordSheet) dumpStrophe(st *model.Strophe, indent int) string {
	mark := f.markPrefix(st.Mark)
	lines := typeset.Layout(st)
	if len(lines) == 0 {
		return mark
	}

	pad := strings.Repeat(" ", indent)
	var out []string
	for i, line := range lines {
		if line.HasChords() {
			out = append(out, pad+line.Chords)
		}
		prefix := pad
		if i == 0 {
			prefix = mark + strings.Repeat(" ", max(0, indent-len(mark)))
		}
		out = append(out, strings.TrimRight(prefix+line.Lyrics, " "))
	}
	return strings.Join(out, "\n")
}
