package format

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/c360studio/songbook/model"
)

// DefaultName is the registry name of the plain-text format.
const DefaultName = "default"

var (
	partSeparator  = regexp.MustCompile(`\n\s*\n`)
	spaceAroundEOL = regexp.MustCompile(`\s*\n\s*`)
	innerSpace     = regexp.MustCompile(`[^\S\r\n]+`)
	digitsPattern  = regexp.MustCompile(`^\d+$`)
	lettersPattern = regexp.MustCompile(`^[A-E]+$`)
	annotationKey  = regexp.MustCompile(`^\pL[\pL\pN_-]*$`)
)

// Default is the plain-text song format:
//
//	        Author - Title
//
//	     Capo: 2
//
//	1.  [Am]Down by the [G]river
//	    we [C]sing
//
// A heading line is followed by optional annotations and blank-line
// separated strophes. Chords are written inline in brackets before the
// syllable they belong to.
type Default struct {
	HeadingMarkers        []string
	StropheMarkDelimiters []string
	AnnotationDelimiter   string
	ChordStart            string
	ChordEnd              string
	UntitledTitle         string
	HeadingIndent         int
	AnnotationIndent      int
	StropheIndent         int
	SongSeparator         string

	// BareMarks accepts a strophe mark without a delimiter ("1 la la"),
	// so lyrics whose first word looks like a mark lose that word.
	BareMarks bool
}

// NewDefault creates the plain-text format. Recognised params:
// heading_marker, strophe_mark_delimiter, annotation_delimiter,
// chord_start, chord_end, untitled_title, bare_marks, heading_indent,
// annotation_indent, strophe_indent and song_separator.
func NewDefault(params Params) (*Default, error) {
	r := newParamReader(params)
	f := newDefault(r)
	if err := r.Done(); err != nil {
		return nil, err
	}
	return f, nil
}

func newDefault(r *paramReader) *Default {
	heading := r.String("heading_marker", " - ")
	delimiter := r.String("strophe_mark_delimiter", ".")
	f := &Default{
		HeadingMarkers:        uniq(heading, ": "),
		StropheMarkDelimiters: uniq(delimiter, ":"),
		AnnotationDelimiter:   r.String("annotation_delimiter", ": "),
		ChordStart:            r.String("chord_start", "["),
		ChordEnd:              r.String("chord_end", "]"),
		UntitledTitle:         r.String("untitled_title", "<Untitled>"),
		BareMarks:             r.Bool("bare_marks", false),
		HeadingIndent:         r.Int("heading_indent", 8),
		AnnotationIndent:      r.Int("annotation_indent", 5),
		StropheIndent:         r.Int("strophe_indent", 4),
		SongSeparator:         r.String("song_separator", "\f"),
	}
	if strings.TrimSpace(heading) == "" {
		r.fail(&ParamError{Key: "heading_marker", Reason: "must contain a non-space character"})
	}
	if delimiter == "" {
		r.fail(&ParamError{Key: "strophe_mark_delimiter", Reason: "must not be empty"})
	}
	if f.ChordStart == "" {
		r.fail(&ParamError{Key: "chord_start", Reason: "must not be empty"})
	}
	if f.ChordEnd == "" {
		r.fail(&ParamError{Key: "chord_end", Reason: "must not be empty"})
	}
	if strings.TrimSpace(f.AnnotationDelimiter) == "" {
		r.fail(&ParamError{Key: "annotation_delimiter", Reason: "must contain a non-space character"})
	}
	return f
}

func uniq(values ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// Name returns the registry name.
func (f *Default) Name() string { return DefaultName }

// CanRead returns true.
func (f *Default) CanRead() bool { return true }

// CanWrite returns true.
func (f *Default) CanWrite() bool { return true }

// Load parses one song.
func (f *Default) Load(text string) (*model.Song, error) {
	parts := splitParts(text)
	if len(parts) == 0 {
		return nil, NewParseError("empty song", "")
	}

	song := &model.Song{}
	first := 0
	if !strings.Contains(parts[0], "\n") {
		if heading := f.parseHeading(parts[0]); heading != nil {
			song.Annotations = heading
			first = 1
		}
	}
	if len(parts) <= first {
		return nil, NewParseError("empty song: no song body found", "")
	}

	if annotations := f.parseAnnotations(parts[first]); annotations != nil {
		song.Annotations = append(song.Annotations, annotations...)
		first++
	}

	for _, part := range parts[first:] {
		if annotations := f.parseAnnotations(part); annotations != nil {
			for _, a := range annotations {
				song.Items = append(song.Items, a)
			}
			continue
		}
		strophe, err := f.parseStrophe(part)
		if err != nil {
			return nil, err
		}
		song.Items = append(song.Items, strophe)
	}
	return song, nil
}

// LoadBook parses songs separated by the song separator.
func (f *Default) LoadBook(text string) ([]*model.Song, error) {
	return f.loadBook(text, f.Load)
}

func (f *Default) loadBook(text string, load func(string) (*model.Song, error)) ([]*model.Song, error) {
	var songs []*model.Song
	for _, chunk := range f.splitBook(text) {
		song, err := load(chunk)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	if len(songs) == 0 {
		return nil, NewParseError("empty song", "")
	}
	return songs, nil
}

func (f *Default) splitBook(text string) []string {
	if f.SongSeparator == "" {
		return []string{text}
	}
	var chunks []string
	for _, chunk := range strings.Split(text, f.SongSeparator) {
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// splitParts splits song text on blank lines, dropping empty parts. Leading
// spaces of a part are kept because they mark a title-only heading.
func splitParts(text string) []string {
	var parts []string
	for _, part := range partSeparator.Split(text, -1) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		parts = append(parts, strings.TrimLeft(strings.TrimRight(part, " \t\r\n\f\v"), "\n"))
	}
	return parts
}

// parseHeading reads "Author<marker>Title". A line without a marker that is
// indented at least HeadingIndent spaces is a title on its own. "R: la"
// is a chorus, not a heading.
func (f *Default) parseHeading(line string) []model.Annotation {
	trimmed := strings.TrimSpace(line)
	for _, marker := range f.HeadingMarkers {
		if strings.Count(trimmed, marker) != 1 {
			continue
		}
		author, title, _ := strings.Cut(trimmed, marker)
		if f.isMarkDelimiter(strings.TrimSpace(marker)) && f.isMark(strings.TrimSpace(author)) {
			continue
		}
		return []model.Annotation{
			model.AuthorAnnotation{Name: strings.TrimSpace(author)},
			model.TitleAnnotation{Title: strings.TrimSpace(title)},
		}
	}
	if f.HeadingIndent > 0 && strings.HasPrefix(line, strings.Repeat(" ", f.HeadingIndent)) {
		if trimmed == f.UntitledTitle {
			return []model.Annotation{}
		}
		return []model.Annotation{model.TitleAnnotation{Title: trimmed}}
	}
	return nil
}

// parseAnnotations returns the annotations of a part in which every line
// is "Key<delimiter>Value", or nil if the part is not such a block.
func (f *Default) parseAnnotations(part string) []model.Annotation {
	var annotations []model.Annotation
	for _, line := range strings.Split(part, "\n") {
		line = strings.TrimSpace(line)
		key, value, ok := strings.Cut(line, f.AnnotationDelimiter)
		if !ok {
			key, value, ok = strings.Cut(line, strings.TrimSpace(f.AnnotationDelimiter))
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !ok || value == "" || !annotationKey.MatchString(key) || f.isMark(key) {
			return nil
		}
		annotations = append(annotations, model.AnnotationFor(key, value))
	}
	return annotations
}

func (f *Default) isMark(token string) bool {
	_, ok := f.markFor(token)
	return ok
}

func (f *Default) isMarkDelimiter(s string) bool {
	for _, delim := range f.StropheMarkDelimiters {
		if s == delim {
			return true
		}
	}
	return false
}

// markFor interprets a bare mark token (without delimiter).
func (f *Default) markFor(token string) (model.StropheMark, bool) {
	switch {
	case token == "R":
		return model.ChorusMark{}, true
	case token == "C":
		return model.CodaMark{}, true
	case digitsPattern.MatchString(token):
		m, err := model.ParseNumberedMark(token)
		if err != nil {
			return nil, false
		}
		return m, true
	case lettersPattern.MatchString(token):
		m, err := model.ParseLetteredMark(token)
		if err != nil {
			return nil, false
		}
		return m, true
	}
	return nil, false
}

// parseStropheMark splits the mark off the start of a part. Unless
// BareMarks is set, the first token is a mark only if it ends with a
// strophe mark delimiter or is the whole part, so that lyrics starting
// with "A" are not mistaken for marks.
func (f *Default) parseStropheMark(part string) (model.StropheMark, string) {
	stripped := strings.TrimSpace(part)
	init, rest := stripped, ""
	if i := strings.IndexFunc(stripped, unicode.IsSpace); i >= 0 {
		init, rest = stripped[:i], strings.TrimSpace(stripped[i:])
	}

	token := init
	for _, delim := range f.StropheMarkDelimiters {
		token = strings.TrimSuffix(token, delim)
	}
	if token == init && rest != "" && !f.BareMarks {
		return model.EmptyMark{}, part
	}
	if mark, ok := f.markFor(token); ok {
		return mark, rest
	}
	return model.EmptyMark{}, part
}

func normalizeStropheWhitespace(body string) string {
	body = spaceAroundEOL.ReplaceAllString(body, "\n")
	body = innerSpace.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}

func (f *Default) parseStrophe(part string) (*model.Strophe, error) {
	mark, body := f.parseStropheMark(part)
	pieces := strings.Split(normalizeStropheWhitespace(body), f.ChordStart)

	strophe := &model.Strophe{Mark: mark}
	if pieces[0] != "" {
		strophe.Segments = append(strophe.Segments, model.PlainSegment{Content: pieces[0]})
	}
	for _, piece := range pieces[1:] {
		chordText, text, ok := strings.Cut(piece, f.ChordEnd)
		if !ok {
			return nil, NewParseError("mismatched chord start/end marks", f.ChordStart+piece)
		}
		chord, err := ParseChord(strings.TrimSpace(chordText))
		if err != nil {
			return nil, err
		}
		strophe.Segments = append(strophe.Segments, model.ChordedSegment{Chord: chord, Content: text})
	}
	return strophe, nil
}

// Dump serialises one song.
func (f *Default) Dump(song *model.Song) (string, error) {
	return f.dumpSong(song, f.dumpStrophe), nil
}

// DumpBook serialises songs separated by the song separator.
func (f *Default) DumpBook(songs []*model.Song) (string, error) {
	return f.dumpBook(songs, f.Dump)
}

func (f *Default) dumpSong(song *model.Song, strophe func(*model.Strophe, int) string) string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(f.headingLine(song))
	sb.WriteString("\n\n")
	if annotations := f.dumpAnnotations(song); annotations != "" {
		sb.WriteString(annotations)
		sb.WriteString("\n\n")
	}

	indent := f.stropheIndent(song)
	items := make([]string, 0, len(song.Items))
	for _, item := range song.Items {
		switch v := item.(type) {
		case *model.Strophe:
			items = append(items, strophe(v, indent))
		case model.Annotation:
			items = append(items, f.dumpAnnotation(v))
		}
	}
	sb.WriteString(strings.Join(items, "\n\n"))
	return sb.String()
}

func (f *Default) dumpBook(songs []*model.Song, dump func(*model.Song) (string, error)) (string, error) {
	dumped := make([]string, 0, len(songs))
	for _, song := range songs {
		text, err := dump(song)
		if err != nil {
			return "", err
		}
		dumped = append(dumped, text)
	}
	sep := f.SongSeparator
	if sep == "" {
		sep = "\n"
	}
	return strings.Join(dumped, "\n"+sep), nil
}

func (f *Default) headingLine(song *model.Song) string {
	title, ok := song.Title()
	if !ok {
		title = f.UntitledTitle
	}
	indent := strings.Repeat(" ", f.HeadingIndent)
	if authors := song.Authors(); len(authors) > 0 {
		return indent + strings.Join(authors, ", ") + f.HeadingMarkers[0] + title
	}
	return indent + title
}

func (f *Default) dumpAnnotations(song *model.Song) string {
	var lines []string
	for _, a := range song.Annotations {
		if model.IsHeading(a) {
			continue
		}
		lines = append(lines, f.dumpAnnotation(a))
	}
	return strings.Join(lines, "\n")
}

func (f *Default) dumpAnnotation(a model.Annotation) string {
	return strings.Repeat(" ", f.AnnotationIndent) + a.Format(f.AnnotationDelimiter)
}

// stropheIndent is wide enough for the longest mark and its delimiter
// followed by a space, and at least StropheIndent.
func (f *Default) stropheIndent(song *model.Song) int {
	indent := f.StropheIndent
	for _, st := range song.Strophes() {
		if w := len(f.markPrefix(st.Mark)) + 1; w > 1 && w > indent {
			indent = w
		}
	}
	return indent
}

func (f *Default) markPrefix(mark model.StropheMark) string {
	if mark == nil {
		return ""
	}
	m := mark.String(true)
	if m == "" {
		return ""
	}
	return m + f.StropheMarkDelimiters[0]
}

func (f *Default) dumpStrophe(st *model.Strophe, indent int) string {
	mark := f.markPrefix(st.Mark)
	var body strings.Builder
	for _, seg := range st.Segments {
		if cs, ok := seg.(model.ChordedSegment); ok {
			body.WriteString(f.ChordStart + cs.Chord.String() + f.ChordEnd)
		}
		body.WriteString(seg.Text())
	}
	padding := strings.Repeat(" ", max(0, indent-len(mark)))
	if body.Len() == 0 {
		return mark
	}
	indenter := "\n" + strings.Repeat(" ", indent)
	return mark + padding + strings.ReplaceAll(body.String(), "\n", indenter)
}
