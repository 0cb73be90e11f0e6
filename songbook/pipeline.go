// Package songbook converts collections of songs between formats: it
// parses inputs concurrently, optionally normalizes the songs and writes
// them to standard output, a single book file or one file per song.
package songbook

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/model"
	"github.com/c360studio/songbook/source"
)

// Pipeline reads songs in one format and writes them in another.
type Pipeline struct {
	In  format.Format
	Out format.Format

	// Normalize runs every song through model.Song.Normalized before it
	// is written.
	Normalize bool

	// Workers bounds the number of inputs parsed at once. Zero means the
	// number of CPUs.
	Workers int

	Logger  *slog.Logger
	Metrics *Metrics

	// Writer overrides the default writer for Out.
	Writer *Writer
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) workers() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Parse parses every input. The songs are returned in input order; a book
// input contributes all of its songs in place. The first error cancels
// the remaining work.
func (p *Pipeline) Parse(ctx context.Context, inputs []source.Input) ([]*model.Song, error) {
	if !p.In.CanRead() {
		return nil, fmt.Errorf("input format %s: %w", p.In.Name(), format.ErrCannotRead)
	}

	results := make([][]*model.Song, len(inputs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers())

	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.logger().Info("Parsing", "input", in.Name)
			songs, err := format.LoadAll(p.In, in.Text)
			if err != nil {
				p.Metrics.parseError()
				return fmt.Errorf("%s: %w", in.Name, err)
			}
			p.Metrics.songsParsed(len(songs))
			results[i] = songs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var songs []*model.Song
	for _, r := range results {
		songs = append(songs, r...)
	}
	return songs, nil
}

// Run parses inputs, normalizes the songs unless disabled and writes them
// to dest (see Writer.Write).
func (p *Pipeline) Run(ctx context.Context, inputs []source.Input, dest string) error {
	start := time.Now()
	defer func() { p.Metrics.observeRun(time.Since(start)) }()

	if !p.Out.CanWrite() {
		return fmt.Errorf("output format %s: %w", p.Out.Name(), format.ErrCannotWrite)
	}

	songs, err := p.Parse(ctx, inputs)
	if err != nil {
		return err
	}
	if p.Normalize {
		for i, song := range songs {
			songs[i] = song.Normalized()
		}
	}

	w := p.Writer
	if w == nil {
		w = NewWriter(p.Out)
		w.Logger = p.logger()
	}
	n, err := w.Write(songs, dest)
	p.Metrics.songsWritten(n)
	if err != nil {
		return err
	}

	p.logger().Info("Songbook written",
		"songs", len(songs),
		"dest", destName(dest),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func destName(dest string) string {
	if isStdout(dest) {
		return "stdout"
	}
	return dest
}
