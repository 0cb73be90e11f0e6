package songbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/source"
)

// runWatch runs Pipeline.Watch until the test ends.
func runWatch(t *testing.T, p *Pipeline, dir, dest string) {
	t.Helper()
	ignore := goleak.IgnoreCurrent()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, dir, dest, WatchOptions{
			Source:   source.Options{Extensions: []string{".txt"}},
			Debounce: 50 * time.Millisecond,
		})
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watch did not stop")
		}
		goleak.VerifyNone(t, ignore)
	})
}

func outputs(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	require.NoError(t, err)
	for i, m := range matches {
		matches[i] = filepath.Base(m)
	}
	return matches
}

func hasOutput(t *testing.T, dir, prefix string) func() bool {
	return func() bool {
		for _, name := range outputs(t, dir) {
			if len(name) > len(prefix) && name[:len(prefix)] == prefix {
				return true
			}
		}
		return false
	}
}

func TestPipeline_WatchDirectory(t *testing.T) {
	dir := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "louka.txt"), []byte(loukaText), 0o644))

	p := newTestPipeline(t, format.DictName)
	runWatch(t, p, dir, dest)

	require.Eventually(t, hasOutput(t, dest, "jan-novak-na-louce-"), 3*time.Second, 20*time.Millisecond,
		"existing songs are converted on start")

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "voda.txt"), []byte(vodaText), 0o644))
	require.Eventually(t, hasOutput(t, dest, "voda-"), 3*time.Second, 20*time.Millisecond,
		"new songs are converted")

	// Retitling a song replaces its output.
	retitled := []byte("\n        Jan Novák - Na poli\n\n1.  [Am]Šel jsem polem")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "louka.txt"), retitled, 0o644))
	require.Eventually(t, hasOutput(t, dest, "jan-novak-na-poli-"), 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return !hasOutput(t, dest, "jan-novak-na-louce-")() },
		3*time.Second, 20*time.Millisecond, "stale output is removed")

	require.NoError(t, os.Remove(filepath.Join(dir, "voda.txt")))
	require.Eventually(t, func() bool { return !hasOutput(t, dest, "voda-")() },
		3*time.Second, 20*time.Millisecond, "outputs of deleted songs are removed")

	assert.Eventually(t, func() bool {
		return len(outputs(t, dest)) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPipeline_WatchBook(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(loukaText), 0o644))

	p := newTestPipeline(t, format.DictName)
	runWatch(t, p, dir, dest)

	bookTitles := func() []string {
		data, err := os.ReadFile(dest)
		if err != nil {
			return nil
		}
		songs, err := format.LoadAll(p.Out, string(data))
		if err != nil {
			return nil
		}
		return titles(songs)
	}

	require.Eventually(t, func() bool { return len(bookTitles()) == 1 }, 3*time.Second, 20*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte(vodaText), 0o644))
	require.Eventually(t, func() bool {
		got := bookTitles()
		return len(got) == 2 && got[0] == "Na louce" && got[1] == "Voda"
	}, 3*time.Second, 20*time.Millisecond)

	// A broken song is logged and counted; watching goes on.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte(" \n \n"), 0o644))
	require.Eventually(t, func() bool { return testutil.ToFloat64(p.Metrics.ParseErrors) >= 1 },
		3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "c.txt")))
	require.NoError(t, os.Remove(filepath.Join(dir, "b.txt")))
	require.Eventually(t, func() bool { return len(bookTitles()) == 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestPipeline_WatchDirectoryEqualTitles(t *testing.T) {
	dir := t.TempDir()
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(vodaText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("\n        Voda\n\n1.  [E]jiná voda"), 0o644))

	p := newTestPipeline(t, format.DictName)
	runWatch(t, p, dir, dest)

	require.Eventually(t, func() bool { return len(outputs(t, dest)) == 2 }, 3*time.Second, 20*time.Millisecond,
		"songs with the same title get their own files")
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	require.Eventually(t, func() bool { return len(outputs(t, dest)) == 1 }, 3*time.Second, 20*time.Millisecond)

	remaining := outputs(t, dest)
	require.Len(t, remaining, 1)
	data, err := os.ReadFile(filepath.Join(dest, remaining[0]))
	require.NoError(t, err)
	assert.Contains(t, string(data), "jiná voda", "the other song's output survives")
}

func TestPipeline_WatchRejectsOutputInsideDir(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(t, format.DictName)

	for _, dest := range []string{
		filepath.Join(dir, "book.json"),
		filepath.Join(dir, "out") + string(filepath.Separator),
		dir + string(filepath.Separator),
	} {
		err := p.Watch(context.Background(), dir, dest, WatchOptions{})
		assert.ErrorIs(t, err, ErrOutputInsideWatch, dest)
	}
	_, err := os.Stat(filepath.Join(dir, "book.json"))
	assert.True(t, os.IsNotExist(err), "nothing is written")
}

func TestIsWithin(t *testing.T) {
	tests := []struct {
		dir, path string
		want      bool
	}{
		{"/songs", "/songs", true},
		{"/songs", "/songs/book.txt", true},
		{"/songs", "/songs/a/b/", true},
		{"/songs", "/songs-out/book.txt", false},
		{"/songs", "/book.txt", false},
		{"songs", "songs/../book.txt", false},
		{"songs", "./songs/book.txt", true},
	}
	for _, tt := range tests {
		got, err := isWithin(tt.dir, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s in %s", tt.path, tt.dir)
	}
}

func TestPipeline_WatchRejectsStdout(t *testing.T) {
	p := newTestPipeline(t, format.DictName)
	err := p.Watch(context.Background(), t.TempDir(), "-", WatchOptions{})
	assert.Error(t, err)
}
