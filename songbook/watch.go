package songbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/source"
)

// ErrOutputInsideWatch is returned by Watch when the output lies inside
// the watched directory, where every write would trigger another rebuild.
var ErrOutputInsideWatch = errors.New("output must not lie inside the watched directory")

// WatchOptions configures Pipeline.Watch.
type WatchOptions struct {
	// Source controls how song files are decoded and which are picked up.
	Source source.Options

	// Debounce is how long changes are collected before a rebuild.
	Debounce time.Duration

	// ExcludeDirs lists directory names that are not watched.
	ExcludeDirs []string
}

// Watch converts every song file below dir to dest, then keeps dest up to
// date until ctx is done. When dest is a directory only the changed file is
// converted again and the outputs of deleted files are removed; otherwise
// the whole book is rebuilt. Conversion errors are logged and counted but
// do not stop watching. A dest inside dir is rejected with
// ErrOutputInsideWatch.
func (p *Pipeline) Watch(ctx context.Context, dir, dest string, opts WatchOptions) error {
	if isStdout(dest) {
		return fmt.Errorf("watch needs an output file or directory")
	}
	inside, err := isWithin(dir, dest)
	if err != nil {
		return err
	}
	if inside {
		return fmt.Errorf("%w: %s is in %s", ErrOutputInsideWatch, dest, dir)
	}
	if !p.Out.CanWrite() {
		return fmt.Errorf("output format %s: %w", p.Out.Name(), format.ErrCannotWrite)
	}

	w, err := source.NewWatcher(dir, source.WatchOptions{
		Debounce:    opts.Debounce,
		Extensions:  opts.Source.Extensions,
		ExcludeDirs: opts.ExcludeDirs,
	}, p.logger())
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	defer func() { _ = w.Stop() }()

	srcOpts := opts.Source
	srcOpts.Recursive = true

	perSong := isDirDest(dest)
	outputs := make(map[string][]string)
	rebuild := func() {
		if perSong {
			p.convertAll(ctx, dir, dest, srcOpts, outputs)
			return
		}
		inputs, err := source.GatherAll(ctx, []string{dir}, srcOpts)
		if err == nil {
			err = p.Run(ctx, inputs, dest)
		}
		if err != nil {
			p.logger().Error("Rebuild failed", "dir", dir, "error", err)
		}
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	rebuild()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events():
			if !ok {
				return nil
			}
			p.Metrics.watchEvent(string(event.Op))
			p.logger().Info("Song changed", "path", event.Path, "op", event.Op)
			if !perSong {
				rebuild()
				continue
			}
			if event.Op == source.OpDelete {
				p.removeOutputs(outputs, event.AbsPath)
				continue
			}
			if err := p.convertFile(ctx, event.AbsPath, dest, srcOpts.Encoding, outputs); err != nil {
				p.logger().Error("Conversion failed", "path", event.Path, "error", err)
			}
		}
	}
}

// convertAll converts every song file below dir into dest, one file per
// song.
func (p *Pipeline) convertAll(ctx context.Context, dir, dest string, opts source.Options, outputs map[string][]string) {
	inputs, err := source.Gather(ctx, dir, opts)
	if err != nil {
		p.logger().Error("Scan failed", "dir", dir, "error", err)
		return
	}
	for _, in := range inputs {
		if err := p.convertFile(ctx, in.Name, dest, opts.Encoding, outputs); err != nil {
			p.logger().Error("Conversion failed", "path", in.Name, "error", err)
		}
	}
}

// convertFile converts one song file into per-song outputs in dest,
// replacing the outputs it produced before.
func (p *Pipeline) convertFile(ctx context.Context, path, dest, encoding string, outputs map[string][]string) error {
	in, err := source.ReadFile(path, encoding)
	if err != nil {
		return err
	}
	songs, err := p.Parse(ctx, []source.Input{in})
	if err != nil {
		return err
	}

	w := p.Writer
	if w == nil {
		w = NewWriter(p.Out)
		w.Logger = p.logger()
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// Names held by other sources stay theirs, so songs sharing a title
	// never overwrite each other.
	key := filepath.Clean(path)
	taken := make(map[string]bool)
	for src, outs := range outputs {
		if src == key {
			continue
		}
		for _, out := range outs {
			taken[filepath.Base(out)] = true
		}
	}

	written := make([]string, 0, len(songs))
	for _, song := range songs {
		if p.Normalize {
			song = song.Normalized()
		}
		out, err := w.writeSong(song, dest, taken)
		if err != nil {
			return err
		}
		written = append(written, out)
	}
	p.Metrics.songsWritten(len(written))

	for _, old := range outputs[key] {
		if !contains(written, old) {
			_ = os.Remove(old)
		}
	}
	outputs[key] = written
	return nil
}

func (p *Pipeline) removeOutputs(outputs map[string][]string, path string) {
	path = filepath.Clean(path)
	for _, out := range outputs[path] {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			p.logger().Warn("Failed to remove output", "path", out, "error", err)
			continue
		}
		p.logger().Info("Removed output", "path", out)
	}
	delete(outputs, path)
}

// isWithin reports whether path is dir or lies below it.
func isWithin(dir, path string) (bool, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", dir, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false, nil
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
