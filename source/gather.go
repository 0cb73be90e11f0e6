// Package source gathers song texts from the places a songbook is built
// from: standard input, files, directories, glob patterns and HTTPS URLs.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/songbook/source/weburl"
)

// StdinName is the input name used for standard input.
const StdinName = "stdin"

// ErrNotFound is returned when an input path does not exist or a pattern
// matches nothing.
var ErrNotFound = errors.New("input not found")

// Input is one song document.
type Input struct {
	// Name identifies the input in logs and errors: a path, a URL name or
	// "stdin".
	Name string

	// Text is the UTF-8 content.
	Text string
}

// Options controls how inputs are gathered and decoded.
type Options struct {
	// Encoding names the character encoding of local inputs (WHATWG or
	// IANA name). Empty means UTF-8.
	Encoding string

	// Extensions restricts directory and glob inputs to these file
	// extensions. Empty accepts every regular file.
	Extensions []string

	// Recursive descends into subdirectories of directory inputs.
	Recursive bool

	// Stdin replaces os.Stdin.
	Stdin io.Reader

	// Fetcher retrieves URL inputs. A default fetcher is used when nil.
	Fetcher *Fetcher
}

// Gather resolves spec into inputs:
//
//   - "" or "-" reads standard input
//   - an https:// URL is fetched
//   - an existing directory yields its files in name order
//   - a pattern containing "*", "?" or "[" yields every matching file
//   - anything else is read as a single file
func Gather(ctx context.Context, spec string, opts Options) ([]Input, error) {
	switch {
	case spec == "" || spec == "-":
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		text, err := Decode(data, opts.Encoding)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", StdinName, err)
		}
		return []Input{{Name: StdinName, Text: text}}, nil

	case weburl.IsURL(spec):
		fetcher := opts.Fetcher
		if fetcher == nil {
			fetcher = NewFetcher(FetchOptions{})
		}
		in, err := fetcher.Fetch(ctx, spec)
		if err != nil {
			return nil, err
		}
		return []Input{*in}, nil
	}

	info, err := os.Stat(spec)
	switch {
	case err == nil && info.IsDir():
		paths, err := listDir(spec, opts)
		if err != nil {
			return nil, err
		}
		return readFiles(ctx, paths, opts)
	case err == nil:
		return readFiles(ctx, []string{spec}, opts)
	case errors.Is(err, fs.ErrNotExist) && isPattern(spec):
		paths, err := glob(spec, opts)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("%w: no files match %s", ErrNotFound, spec)
		}
		return readFiles(ctx, paths, opts)
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, spec)
	default:
		return nil, err
	}
}

// GatherAll gathers every spec in order.
func GatherAll(ctx context.Context, specs []string, opts Options) ([]Input, error) {
	if len(specs) == 0 {
		specs = []string{"-"}
	}
	var inputs []Input
	for _, spec := range specs {
		found, err := Gather(ctx, spec, opts)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, found...)
	}
	return inputs, nil
}

// ReadFile reads and decodes one file.
func ReadFile(path, encoding string) (Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Input{}, err
	}
	text, err := Decode(data, encoding)
	if err != nil {
		return Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return Input{Name: path, Text: text}, nil
}

func isPattern(spec string) bool {
	return strings.ContainsAny(spec, "*?[{")
}

func listDir(dir string, opts Options) ([]string, error) {
	if opts.Recursive {
		return glob(filepath.Join(dir, "**", "*"), opts)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || hidden(e.Name()) || !hasExtension(e.Name(), opts.Extensions) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

func glob(pattern string, opts Options) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	var paths []string
	for _, m := range matches {
		if hasExtension(m, opts.Extensions) && !hidden(m) {
			paths = append(paths, m)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func hasExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	lower := strings.ToLower(name)
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func readFiles(ctx context.Context, paths []string, opts Options) ([]Input, error) {
	inputs := make([]Input, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		in, err := ReadFile(path, opts.Encoding)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
