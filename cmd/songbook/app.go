package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/songbook/config"
	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/songbook"
	"github.com/c360studio/songbook/source"
	"github.com/c360studio/songbook/source/weburl"
)

// newLogger creates a text logger on w at the named level.
func newLogger(logLevel string, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the layered configuration and applies the flags given
// on the command line. input and output name the files being converted;
// their extensions pick formats that neither a flag nor a config file set.
func loadConfig(cmd *cobra.Command, opts *options, logger *slog.Logger, input, output string) (*config.Config, error) {
	cfg, err := config.NewLoader(logger).Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("in-format") {
		cfg.Input.Format = opts.inFormat
	} else if cfg.Input.Format == format.DefaultName {
		cfg.Input.Format = detectFormat(input, cfg.Input.Format, func(i format.Info) bool { return i.CanRead })
	}
	if flags.Changed("out-format") {
		cfg.Output.Format = opts.outFormat
	} else if cfg.Output.Format == format.DefaultName {
		cfg.Output.Format = detectFormat(output, cfg.Output.Format, func(i format.Info) bool { return i.CanWrite })
	}
	if flags.Changed("encoding") {
		cfg.Input.Encoding = opts.encoding
	}
	if flags.Changed("no-normalize") {
		normalize := !opts.noNormalize
		cfg.Normalize = &normalize
	}
	if flags.Changed("recursive") {
		cfg.Input.Recursive = opts.recursive
	}
	if f := flags.Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.Metrics.Addr = opts.metricsAddr
	}

	inParams, err := format.ParseParams(opts.inParams)
	if err != nil {
		return nil, err
	}
	outParams, err := format.ParseParams(opts.outParams)
	if err != nil {
		return nil, err
	}
	cfg.Input.Params = cfg.Input.Params.Merge(inParams)
	cfg.Output.Params = cfg.Output.Params.Merge(outParams)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// detectFormat returns the format registered for the extension of name, or
// current when no usable format matches.
func detectFormat(name, current string, usable func(format.Info) bool) string {
	if name == "" || name == "-" || weburl.IsURL(name) {
		return current
	}
	if info, ok := format.DefaultRegistry.ForExtension(name); ok && usable(info) {
		return info.Name
	}
	return current
}

// newPipeline creates the formats named by cfg and a pipeline around them.
func newPipeline(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger, metrics *songbook.Metrics) (*songbook.Pipeline, error) {
	in, err := format.DefaultRegistry.New(cfg.Input.Format, cfg.Input.Params)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	out, err := format.DefaultRegistry.New(cfg.Output.Format, cfg.Output.Params)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	w := songbook.NewWriter(out)
	w.Stdout = cmd.OutOrStdout()
	w.Logger = logger

	return &songbook.Pipeline{
		In:        in,
		Out:       out,
		Normalize: cfg.NormalizeEnabled(),
		Workers:   cfg.Workers,
		Logger:    logger,
		Metrics:   metrics,
		Writer:    w,
	}, nil
}

func sourceOptions(cmd *cobra.Command, cfg *config.Config) source.Options {
	return source.Options{
		Encoding:   cfg.Input.Encoding,
		Extensions: cfg.Input.Extensions,
		Recursive:  cfg.Input.Recursive,
		Stdin:      cmd.InOrStdin(),
		Fetcher: source.NewFetcher(source.FetchOptions{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
			MaxSize:   cfg.Fetch.MaxSize,
			Encoding:  cfg.Input.Encoding,
		}),
	}
}

func runConvert(cmd *cobra.Command, opts *options, input, output string) error {
	logger := newLogger(opts.logLevel, cmd.ErrOrStderr())

	cfg, err := loadConfig(cmd, opts, logger, input, output)
	if err != nil {
		return err
	}
	p, err := newPipeline(cmd, cfg, logger, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	inputs, err := source.Gather(ctx, input, sourceOptions(cmd, cfg))
	if err != nil {
		return err
	}
	return p.Run(ctx, inputs, output)
}

func watchCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir> <output>",
		Short: "Convert a directory of songs and keep the output up to date",
		Long: `Watch converts every song file below dir, then converts songs again
whenever they change. When output is a directory each song gets its own
file; otherwise the whole songbook is rebuilt on every change.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runWatch(cmd *cobra.Command, opts *options, dir, output string) error {
	logger := newLogger(opts.logLevel, cmd.ErrOrStderr())

	// Songs are looked up by directory, so only the output names a format.
	cfg, err := loadConfig(cmd, opts, logger, "", output)
	if err != nil {
		return err
	}
	if len(cfg.Input.Extensions) == 0 {
		if info, ok := format.DefaultRegistry.Lookup(cfg.Input.Format); ok {
			cfg.Input.Extensions = []string{info.Extension}
		}
	}

	metrics := songbook.NewMetrics(prometheus.NewRegistry())
	p, err := newPipeline(cmd, cfg, logger, metrics)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		stop, err := serveMetrics(ctx, cfg.Metrics.Addr, metrics, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	logger.Info("Watching songs", "dir", dir, "output", output)
	return p.Watch(ctx, dir, output, songbook.WatchOptions{
		Source:   sourceOptions(cmd, cfg),
		Debounce: cfg.Watch.Debounce,
	})
}

// serveMetrics serves /metrics on addr until the returned stop function is
// called.
func serveMetrics(ctx context.Context, addr string, metrics *songbook.Metrics, logger *slog.Logger) (func(), error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Report an immediate bind failure instead of watching without metrics.
	select {
	case err, ok := <-errCh:
		if ok {
			return nil, fmt.Errorf("metrics server: %w", err)
		}
	case <-time.After(50 * time.Millisecond):
	}
	logger.Info("Serving metrics", "addr", addr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", "error", err)
		}
	}, nil
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported formats",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEXTENSION\tACCESS\tDESCRIPTION")
			for _, info := range format.DefaultRegistry.List() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", info.Name, info.Extension, access(info), info.Description)
			}
			_ = tw.Flush()
		},
	}
}

func access(info format.Info) string {
	switch {
	case info.CanRead && info.CanWrite:
		return "rw"
	case info.CanRead:
		return "r"
	case info.CanWrite:
		return "w"
	}
	return "-"
}

func configCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the songbook configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.logLevel, cmd.ErrOrStderr())
			path, err := config.NewLoader(logger).EnsureUserConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(opts.logLevel, cmd.ErrOrStderr())
			cfg, err := loadConfig(cmd, opts, logger, "", "")
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	})

	return cmd
}
