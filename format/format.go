// Package format defines song formats: readers and writers that convert
// between text and the song model, and the registry that names them.
package format

import (
	"errors"
	"fmt"

	"github.com/c360studio/songbook/model"
)

// Format converts songs to and from one textual representation.
type Format interface {
	// Name is the registry name of the format.
	Name() string

	// CanRead reports whether Load is supported.
	CanRead() bool

	// CanWrite reports whether Dump is supported.
	CanWrite() bool

	// Load parses a single song.
	Load(text string) (*model.Song, error)

	// Dump serialises a single song.
	Dump(song *model.Song) (string, error)
}

// BookFormat is implemented by formats that can hold several songs in one
// document.
type BookFormat interface {
	Format

	// LoadBook parses every song in the document.
	LoadBook(text string) ([]*model.Song, error)

	// DumpBook serialises the songs into one document.
	DumpBook(songs []*model.Song) (string, error)
}

// Common format errors.
var (
	// ErrCannotRead is returned by Load on write-only formats.
	ErrCannotRead = errors.New("format has no read capability")

	// ErrCannotWrite is returned by Dump on read-only formats.
	ErrCannotWrite = errors.New("format has no write capability")

	// ErrUnknownFormat is returned when a format name is not registered.
	ErrUnknownFormat = errors.New("unknown format")
)

// ParseError reports song text that could not be parsed.
type ParseError struct {
	Reason   string
	Fragment string
}

func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %q", e.Reason, truncate(e.Fragment, 60))
}

// NewParseError creates a parse error with the offending fragment.
func NewParseError(reason, fragment string) error {
	return &ParseError{Reason: reason, Fragment: fragment}
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// LoadAll parses every song in text: through LoadBook when the format
// supports books, otherwise as a single song.
func LoadAll(f Format, text string) ([]*model.Song, error) {
	if !f.CanRead() {
		return nil, fmt.Errorf("%s: %w", f.Name(), ErrCannotRead)
	}
	if bf, ok := f.(BookFormat); ok {
		return bf.LoadBook(text)
	}
	song, err := f.Load(text)
	if err != nil {
		return nil, err
	}
	return []*model.Song{song}, nil
}

// DumpAll serialises songs into one document. Formats without book
// support may only dump a single song.
func DumpAll(f Format, songs []*model.Song) (string, error) {
	if !f.CanWrite() {
		return "", fmt.Errorf("%s: %w", f.Name(), ErrCannotWrite)
	}
	if bf, ok := f.(BookFormat); ok {
		return bf.DumpBook(songs)
	}
	if len(songs) != 1 {
		return "", fmt.Errorf("%s: cannot write %d songs into one document", f.Name(), len(songs))
	}
	return f.Dump(songs[0])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
