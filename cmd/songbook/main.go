// Package main provides the songbook binary entry point.
// Songbook converts chorded songs and songbooks between text formats.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "songbook"
)

// BuildTime is set at link time.
var BuildTime = "dev"

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// options holds the flags shared by the conversion commands.
type options struct {
	configPath string
	logLevel   string

	inFormat    string
	outFormat   string
	inParams    []string
	outParams   []string
	encoding    string
	noNormalize bool
	recursive   bool
	metricsAddr string
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "songbook [input] [output]",
		Short: "Convert chorded songs between formats",
		Long: `Songbook reads songs with chords in one format and writes them in another.

The input is a file, a directory, a glob pattern (** matches any depth),
an https:// URL or "-" for standard input. The output is "-" for standard
output, a directory (one file per song) or a file (the whole songbook).
Both default to "-".

Formats are chosen with -f and -F, or from the file extensions. Run
"songbook formats" to list them.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, output := "-", "-"
			if len(args) > 0 {
				input = args[0]
			}
			if len(args) > 1 {
				output = args[1]
			}
			return runConvert(cmd, opts, input, output)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file path (YAML)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	pf.StringVarP(&opts.inFormat, "in-format", "f", "", "Input format")
	pf.StringVarP(&opts.outFormat, "out-format", "F", "", "Output format")
	pf.StringArrayVarP(&opts.inParams, "in-param", "p", nil, "Input format parameter key=value (repeatable)")
	pf.StringArrayVarP(&opts.outParams, "out-param", "P", nil, "Output format parameter key=value (repeatable)")
	pf.StringVarP(&opts.encoding, "encoding", "c", "", "Input character encoding (default utf8)")
	pf.BoolVarP(&opts.noNormalize, "no-normalize", "N", false, "Write songs as parsed, without normalization")
	pf.BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories of directory inputs")

	cmd.AddCommand(formatsCmd())
	cmd.AddCommand(watchCmd(opts))
	cmd.AddCommand(configCmd(opts))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}
