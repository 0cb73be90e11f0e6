package songbook

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/model"
	"github.com/c360studio/songbook/source"
)

const (
	loukaText = `
        Jan Novák - Na louce

1.  [Am]Šel jsem [G]loukou
    k [C]řece

R.  [F]Hej, hej`

	vodaText = `
        Voda

1.  [D]Teče voda, [A]teče`
)

func newFormat(t *testing.T, name string) format.Format {
	t.Helper()
	f, err := format.DefaultRegistry.New(name, nil)
	require.NoError(t, err)
	return f
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T, out string) *Pipeline {
	t.Helper()
	return &Pipeline{
		In:      newFormat(t, format.DefaultName),
		Out:     newFormat(t, out),
		Workers: 4,
		Logger:  quietLogger(),
		Metrics: NewMetrics(nil),
	}
}

func titles(songs []*model.Song) []string {
	var out []string
	for _, s := range songs {
		title, _ := s.Title()
		out = append(out, title)
	}
	return out
}

func readBook(t *testing.T, f format.Format, text string) []*model.Song {
	t.Helper()
	songs, err := format.LoadAll(f, text)
	require.NoError(t, err)
	return songs
}

func TestPipeline_ParseKeepsInputOrder(t *testing.T) {
	p := newTestPipeline(t, format.DictName)

	var inputs []source.Input
	for i := 0; i < 20; i++ {
		text := loukaText
		if i%2 == 1 {
			text = vodaText
		}
		inputs = append(inputs, source.Input{Name: "song", Text: text})
	}

	songs, err := p.Parse(context.Background(), inputs)
	require.NoError(t, err)
	require.Len(t, songs, 20)
	for i, song := range songs {
		want := "Na louce"
		if i%2 == 1 {
			want = "Voda"
		}
		title, _ := song.Title()
		assert.Equal(t, want, title, "song %d", i)
	}
	assert.Equal(t, 20.0, testutil.ToFloat64(p.Metrics.SongsParsed))
}

func TestPipeline_ParseError(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	p.In = newFormat(t, format.DictName)

	_, err := p.Parse(context.Background(), []source.Input{
		{Name: "good.json", Text: `{"annotations": [], "items": []}`},
		{Name: "bad.json", Text: "not json"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.json")
	assert.True(t, format.IsParseError(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.Metrics.ParseErrors))
}

type readOnly struct{ format.Format }

func (readOnly) CanWrite() bool { return false }

type writeOnly struct{ format.Format }

func (writeOnly) CanRead() bool { return false }

func TestPipeline_Capabilities(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	p.In = writeOnly{p.In}
	_, err := p.Parse(context.Background(), nil)
	assert.ErrorIs(t, err, format.ErrCannotRead)

	p = newTestPipeline(t, format.DictName)
	p.Out = readOnly{p.Out}
	err = p.Run(context.Background(), nil, "-")
	assert.ErrorIs(t, err, format.ErrCannotWrite)
}

func TestPipeline_RunStdout(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	var buf bytes.Buffer
	p.Writer = NewWriter(p.Out)
	p.Writer.Stdout = &buf

	err := p.Run(context.Background(), []source.Input{
		{Name: "a", Text: loukaText},
		{Name: "b", Text: vodaText},
	}, "-")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
	songs := readBook(t, p.Out, buf.String())
	assert.Equal(t, []string{"Na louce", "Voda"}, titles(songs))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.Metrics.SongsWritten))
	assert.Equal(t, 1, testutil.CollectAndCount(p.Metrics.RunDuration))
}

func TestPipeline_RunNormalizes(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	p.Normalize = true
	var buf bytes.Buffer
	p.Writer = NewWriter(p.Out)
	p.Writer.Stdout = &buf

	require.NoError(t, p.Run(context.Background(), []source.Input{{Name: "a", Text: loukaText}}, ""))

	songs := readBook(t, p.Out, buf.String())
	require.Len(t, songs, 1)
	seg, ok := songs[0].Strophes()[0].Segments[0].(model.ChordedSegment)
	require.True(t, ok)
	assert.Equal(t, []model.ChordModifier{model.Minor{}}, seg.Chord.Modifiers)
}

func TestPipeline_RunBookFile(t *testing.T) {
	p := newTestPipeline(t, format.YAMLName)
	dest := filepath.Join(t.TempDir(), "out", "book.yaml")

	inputs := []source.Input{{Name: "a", Text: loukaText}, {Name: "b", Text: vodaText}}
	require.NoError(t, p.Run(context.Background(), inputs, dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"Na louce", "Voda"}, titles(readBook(t, p.Out, string(data))))

	// A second run replaces the book.
	require.NoError(t, p.Run(context.Background(), inputs[1:], dest))
	data, err = os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"Voda"}, titles(readBook(t, p.Out, string(data))))
}

func TestPipeline_RunDirectory(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	dest := filepath.Join(t.TempDir(), "songs") + string(filepath.Separator)

	inputs := []source.Input{{Name: "a", Text: loukaText}, {Name: "b", Text: vodaText}}
	require.NoError(t, p.Run(context.Background(), inputs, dest))

	matches, err := filepath.Glob(filepath.Join(dest, "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.True(t, strings.HasPrefix(filepath.Base(matches[0]), "jan-novak-na-louce-"))
	assert.True(t, strings.HasPrefix(filepath.Base(matches[1]), "voda-"))

	data, err := os.ReadFile(matches[1])
	require.NoError(t, err)
	assert.Equal(t, []string{"Voda"}, titles(readBook(t, p.Out, string(data))))
}

func TestPipeline_RunDirectoryKeepsSongsWithEqualNames(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	dest := t.TempDir()

	inputs := []source.Input{
		{Name: "a", Text: "1.  [C]la la"},
		{Name: "b", Text: "R.  [G]li li"},
		{Name: "c", Text: vodaText},
		{Name: "d", Text: "\n        Voda\n\n1.  [E]jiná voda"},
	}
	require.NoError(t, p.Run(context.Background(), inputs, dest))
	assert.Equal(t, 4.0, testutil.ToFloat64(p.Metrics.SongsWritten))

	untitled := FileName(&model.Song{}, ".json")
	voda := FileName(readBook(t, p.In, vodaText)[0], ".json")
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{
		untitled,
		strings.TrimSuffix(untitled, ".json") + "-2.json",
		voda,
		strings.TrimSuffix(voda, ".json") + "-2.json",
	}, names)

	data, err := os.ReadFile(filepath.Join(dest, strings.TrimSuffix(voda, ".json")+"-2.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "jiná voda")
}

func TestUniqueFileName(t *testing.T) {
	song := &model.Song{Annotations: []model.Annotation{model.TitleAnnotation{Title: "Voda"}}}
	base := FileName(song, ".txt")

	taken := map[string]bool{}
	assert.Equal(t, base, UniqueFileName(song, ".txt", taken))
	assert.Equal(t, strings.TrimSuffix(base, ".txt")+"-2.txt", UniqueFileName(song, ".txt", taken))
	assert.Equal(t, strings.TrimSuffix(base, ".txt")+"-3.txt", UniqueFileName(song, ".txt", taken))
	assert.Len(t, taken, 3)

	assert.Equal(t, base, UniqueFileName(song, ".txt", nil))
}

func TestWriter_BookToStdout(t *testing.T) {
	w := NewWriter(newFormat(t, format.DefaultName))
	w.Stdout = io.Discard

	song := &model.Song{Annotations: []model.Annotation{model.TitleAnnotation{Title: "X"}}}
	n, err := w.Write([]*model.Song{song, song}, "-")
	require.NoError(t, err, "default format supports books")
	assert.Equal(t, 2, n)
}

func TestNewWriter_Extension(t *testing.T) {
	assert.Equal(t, ".json", NewWriter(newFormat(t, format.DictName)).Extension)
	assert.Equal(t, ".chords.txt", NewWriter(newFormat(t, format.ChordSheetName)).Extension)
	assert.Equal(t, ".txt", NewWriter(writeOnly{newFormat(t, format.DefaultName)}).Extension)
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jan Novák Na louce", "jan-novak-na-louce"},
		{"Žluťoučký kůň", "zlutoucky-kun"},
		{"  Ça va?! ", "ca-va"},
		{"AC/DC - T.N.T.", "ac-dc-t-n-t"},
		{"", ""},
		{"???", ""},
		{strings.Repeat("ab ", 40), strings.TrimRight(strings.Repeat("ab-", 20), "-")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.in))
		})
	}
}

func TestFileName(t *testing.T) {
	song := &model.Song{Annotations: []model.Annotation{
		model.AuthorAnnotation{Name: "Jan Novák"},
		model.TitleAnnotation{Title: "Na louce"},
	}}
	assert.Equal(t, "jan-novak-na-louce-"+song.ID()[:8]+".txt", FileName(song, ".txt"))

	untitled := &model.Song{}
	assert.Equal(t, "untitled-"+untitled.ID()[:8], FileName(untitled, ""))
}

func TestMetrics(t *testing.T) {
	t.Run("nil metrics record nothing", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.parseError()
			m.songsParsed(3)
			m.songsWritten(3)
			m.observeRun(0)
			m.watchEvent("create")
		})
	})

	t.Run("handler serves registered metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		m := NewMetrics(reg)
		m.songsParsed(3)
		m.watchEvent(string(source.OpModify))

		assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchEvents.WithLabelValues("modify")))

		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		assert.Equal(t, 200, rec.Code)
		assert.Contains(t, rec.Body.String(), "songbook_songs_parsed_total 3")
		assert.Contains(t, rec.Body.String(), `songbook_watch_events_total{op="modify"} 1`)
	})
}
