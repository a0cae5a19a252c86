package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/ecoscope"
	"github.com/jward/ecoscope/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code. Usage errors print
// the offending command's usage and are detected before any dataset loads.
func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}
	var uerr usageError
	if errors.As(err, &uerr) || strings.HasPrefix(err.Error(), "unknown command") {
		fmt.Fprintf(stderr, "Error: %s\n\n%s", err, cmd.UsageString())
		return 1
	}
	var handled handledError
	if !errors.As(err, &handled) {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return 1
}

// usageError marks a bad invocation: missing arguments or invalid flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// handledError is returned once the error has already been reported in the
// selected output format.
type handledError struct {
	err error
}

func (e handledError) Error() string { return e.err.Error() }
func (e handledError) Unwrap() error { return e.err }

// app carries the persistent flags and the state derived from them.
type app struct {
	configPath string
	dataDir    string
	taxonomy   string
	format     string
	color      string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ecoscope",
		Short: "Query a multi-repository ecosystem",
		Long: "Ecoscope joins the capability catalog, infrastructure inventory, and product map\n" +
			"produced by the ecosystem scanners and answers structural questions about them.",
		SilenceErrors: true,
		SilenceUsage:  true,
		// Args runs before PersistentPreRunE, so a bare invocation fails
		// without reading the config.
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErrorf("a command is required")
			}
			return usageErrorf("unknown command %q for %q", args[0], cmd.CommandPath())
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageErrorf("a command is required")
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: "+config.DefaultFile+" if present)")
	pf.StringVar(&a.dataDir, "data-dir", "", "directory holding the scanner documents (default: data)")
	pf.StringVar(&a.taxonomy, "taxonomy", "", "product taxonomy file (.yaml, .yml, or .toml)")
	pf.StringVar(&a.format, "format", "", "output format: text|json (default: text)")
	pf.StringVar(&a.color, "color", "", "color headings: auto|always|never (default: auto)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error (default: warn)")

	root.AddCommand(
		newCapabilityCmd(a),
		newImpactCmd(a),
		newInfraCmd(a),
		newGraphCmd(a),
		newProductCmd(a),
		newRepoCmd(a),
		newStatusCmd(a),
		newSurfaceCmd(a),
		newScriptCmd(a),
	)
	return root
}

// setup loads the config file, applies flag overrides, and builds the
// logger. Invalid flag values are usage errors.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadOptional(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Data.Dir = a.dataDir
	}
	if flags.Changed("taxonomy") {
		cfg.Taxonomy.Path = strings.TrimSpace(a.taxonomy)
	}
	if flags.Changed("format") {
		cfg.Output.Format = strings.ToLower(a.format)
	}
	if flags.Changed("color") {
		cfg.Output.Color = strings.ToLower(a.color)
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err: err}
	}

	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	return nil
}

// openEngine loads the datasets named by the config.
func (a *app) openEngine(ctx context.Context) (*ecoscope.Engine, error) {
	opts := []ecoscope.Option{
		ecoscope.WithDataDir(a.cfg.Data.Dir),
		ecoscope.WithDocuments(a.cfg.Data.APISurface, a.cfg.Data.Infrastructure, a.cfg.Data.Product),
		ecoscope.WithIgnore(a.cfg.Data.IgnoreRepos...),
		ecoscope.WithLogger(a.logger),
	}
	if a.cfg.Taxonomy.Path != "" {
		tax, err := config.LoadTaxonomy(a.cfg.Taxonomy.Path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ecoscope.WithTaxonomy(tax))
	}
	e, err := ecoscope.New(ctx, opts...)
	if err != nil {
		if errors.Is(err, ecoscope.ErrNoDatasets) {
			return nil, fmt.Errorf("no datasets found in %s: %w", a.cfg.Data.Dir, err)
		}
		return nil, err
	}
	return e, nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("%s requires %s", cmd.Name(), what)
		}
		return nil
	}
}

// minArgs is cobra.MinimumNArgs reporting a usage error.
func minArgs(n int, what string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("%s requires %s", cmd.Name(), what)
		}
		return nil
	}
}
