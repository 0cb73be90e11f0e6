package songbook

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/renameio/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/model"
)

// Writer writes songs to standard output, a book file or a directory.
type Writer struct {
	Format format.Format

	// Extension is appended to per-song file names.
	Extension string

	// Stdout receives output for the "-" destination.
	Stdout io.Writer

	Logger *slog.Logger
}

// NewWriter creates a writer for f using the extension registered for it.
func NewWriter(f format.Format) *Writer {
	ext := ".txt"
	if info, ok := format.DefaultRegistry.Lookup(f.Name()); ok && info.Extension != "" {
		ext = info.Extension
	}
	return &Writer{Format: f, Extension: ext, Stdout: os.Stdout}
}

func (w *Writer) logger() *slog.Logger {
	if w.Logger == nil {
		return slog.Default()
	}
	return w.Logger
}

func isStdout(dest string) bool {
	return dest == "" || dest == "-"
}

// Write writes songs to dest and returns how many songs were written:
//
//   - "" or "-" writes the whole book to standard output
//   - an existing directory, or a path ending in a separator, receives one
//     file per song named "<slug>-<short id><ext>"
//   - any other path receives the whole book, replaced atomically
func (w *Writer) Write(songs []*model.Song, dest string) (int, error) {
	switch {
	case isStdout(dest):
		text, err := w.dumpBook(songs)
		if err != nil {
			return 0, err
		}
		if _, err := io.WriteString(w.Stdout, text); err != nil {
			return 0, fmt.Errorf("write stdout: %w", err)
		}
		return len(songs), nil

	case isDirDest(dest):
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return 0, fmt.Errorf("create output directory: %w", err)
		}
		taken := make(map[string]bool, len(songs))
		for i, song := range songs {
			if _, err := w.writeSong(song, dest, taken); err != nil {
				return i, err
			}
		}
		return len(songs), nil

	default:
		text, err := w.dumpBook(songs)
		if err != nil {
			return 0, err
		}
		if err := writeAtomic(dest, text); err != nil {
			return 0, err
		}
		w.logger().Debug("Wrote book", "path", dest, "songs", len(songs))
		return len(songs), nil
	}
}

// WriteSong writes one song into dir and returns the file path.
func (w *Writer) WriteSong(song *model.Song, dir string) (string, error) {
	return w.writeSong(song, dir, nil)
}

// writeSong writes song under a name not yet in taken and records the name
// there.
func (w *Writer) writeSong(song *model.Song, dir string, taken map[string]bool) (string, error) {
	text, err := w.Format.Dump(song)
	if err != nil {
		return "", fmt.Errorf("dump %s: %w", FileName(song, ""), err)
	}
	path := filepath.Join(dir, UniqueFileName(song, w.Extension, taken))
	if err := renameio.WriteFile(path, []byte(withNewline(text)), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	w.logger().Debug("Wrote song", "path", path)
	return path, nil
}

func (w *Writer) dumpBook(songs []*model.Song) (string, error) {
	text, err := format.DumpAll(w.Format, songs)
	if err != nil {
		return "", err
	}
	return withNewline(text), nil
}

func isDirDest(dest string) bool {
	if strings.HasSuffix(dest, string(filepath.Separator)) || strings.HasSuffix(dest, "/") {
		return true
	}
	info, err := os.Stat(dest)
	return err == nil && info.IsDir()
}

func withNewline(text string) string {
	if strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}

// writeAtomic replaces path with text so that readers never see a
// partially written book.
func writeAtomic(path, text string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	pf, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644), renameio.WithExistingPermissions())
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() { _ = pf.Cleanup() }()

	if _, err := io.WriteString(pf, text); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// FileName returns "<slug>-<short id><ext>" for a song. The slug is the
// authors and title folded to lower-case ASCII; the short id is the first
// eight characters of the song ID, which keeps distinct songs with equal
// slugs apart. Songs with the same authors and title get the same name;
// see UniqueFileName.
func FileName(song *model.Song, ext string) string {
	title, ok := song.Title()
	parts := append([]string{}, song.Authors()...)
	if ok {
		parts = append(parts, title)
	}
	slug := Slug(strings.Join(parts, " "))
	if slug == "" {
		slug = "untitled"
	}
	return slug + "-" + song.ID()[:8] + ext
}

// UniqueFileName returns FileName(song, ext), or that name with a counter
// ("-2", "-3", ...) before the extension when it is already in taken.
// Songs with equal authors and title share an ID, so the counter keeps
// their files apart. The chosen name is added to taken; a nil taken
// accepts every name.
func UniqueFileName(song *model.Song, ext string, taken map[string]bool) string {
	name := FileName(song, ext)
	if taken == nil {
		return name
	}
	base := strings.TrimSuffix(name, ext)
	for n := 2; taken[name]; n++ {
		name = base + "-" + strconv.Itoa(n) + ext
	}
	taken[name] = true
	return name
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug folds s to lower-case ASCII words joined by hyphens.
func Slug(s string) string {
	folded, _, err := transform.String(foldDiacritics, s)
	if err != nil {
		folded = s
	}

	var sb strings.Builder
	hyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if hyphen && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			hyphen = false
		default:
			hyphen = true
		}
	}
	slug := sb.String()
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	return slug
}
