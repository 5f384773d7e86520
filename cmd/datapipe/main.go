// Command datapipe cleans and standardizes tabular datasets between files and PostgreSQL.
//
// Usage:
//
//	datapipe load data/raw.csv
//	datapipe process [--load data/raw.csv] [--export data/cleaned.csv]
//	datapipe export data/cleaned.csv
//	datapipe full data/raw.csv data/cleaned.csv [IN OUT ...]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/data-cleaning/pkg/config"
	"github.com/David-Botos/data-cleaning/pkg/logging"
	"github.com/David-Botos/data-cleaning/pkg/model"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
	exitConfig = 3
)

// paramsInDatabase selects the scaler_parameters table instead of a directory
const paramsInDatabase = "db"

type options struct {
	configPath   string
	params       string
	table        string
	cleanedTable string
	schema       string
	fit          bool
	metricsAddr  string

	// process only
	load   string
	export string
}

// exitError carries the exit code of a command that got past argument parsing
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	rootCmd := newRootCmd(&options{})
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stderr)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(stderr, "datapipe: %v\nRun 'datapipe --help' for usage.\n", err)
	return exitUsage
}

func newRootCmd(opts *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "datapipe",
		Short:         "Clean and standardize tabular datasets",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errors.New("a command is required: load, process, export or full")
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "pipeline options file (.json or .toml); overrides PIPELINE_CONFIG")
	flags.StringVar(&opts.params, "params", "", "scaler parameter directory, or \"db\" for the scaler_parameters table; overrides PARAMS_PATH")
	flags.StringVar(&opts.table, "table", "", "raw table name; overrides database.raw_table")
	flags.StringVar(&opts.cleanedTable, "cleaned-table", "", "cleaned table name; overrides database.cleaned_table")
	flags.StringVar(&opts.schema, "schema", "", "database schema; overrides database.schema")
	flags.BoolVar(&opts.fit, "fit", false, "fit new scaler parameters even when stored ones exist")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	rootCmd.AddCommand(
		newLoadCmd(opts),
		newProcessCmd(opts),
		newExportCmd(opts),
		newFullCmd(opts),
	)
	return rootCmd
}

func newLoadCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load FILE",
		Short: "Load a raw file into the raw table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, func(ctx context.Context, a *app) error {
				return a.load(ctx, args[0])
			})
		},
	}
}

func newProcessCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Clean and standardize the raw table into the cleaned table",
		Long: `Clean and standardize the raw table into the cleaned table.

With --load the raw table is first replaced by a file; with --export the cleaned table is
written to a file afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, func(ctx context.Context, a *app) error {
				if opts.load != "" {
					if err := a.load(ctx, opts.load); err != nil {
						return err
					}
				}
				if err := a.process(ctx); err != nil {
					return err
				}
				if opts.export != "" {
					return a.export(ctx, opts.export)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.load, "load", "", "load this raw file before processing")
	cmd.Flags().StringVar(&opts.export, "export", "", "export the cleaned table to this file after processing")
	return cmd
}

func newExportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export the cleaned table to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, func(ctx context.Context, a *app) error {
				return a.export(ctx, args[0])
			})
		},
	}
}

func newFullCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "full IN OUT [IN OUT ...]",
		Short: "Run load, process and export for each IN OUT pair",
		Long: `Run load, process and export for each IN OUT pair.

Without a configured PostgreSQL every pair is processed file to file, concurrently.`,
		Args: pairArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, func(ctx context.Context, a *app) error {
				return a.full(ctx, args[0], args[1:])
			})
		},
	}
}

// pairArgs accepts one or more IN OUT pairs
func pairArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return fmt.Errorf("%s needs IN OUT file pairs, got %d argument(s)", cmd.Name(), len(args))
	}
	return nil
}

// execute sets up configuration, logging and the app, then runs steps
func execute(cmd *cobra.Command, opts *options, steps func(ctx context.Context, a *app) error) error {
	stderr := cmd.ErrOrStderr()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "datapipe: failed to load configuration: %v\n", err)
		return &exitError{code: exitConfig, err: err}
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(stderr, "datapipe: %v\n", err)
		return &exitError{code: exitConfig, err: err}
	}
	defer logger.Sync()

	a, err := newApp(cfg, *opts, logger)
	if err != nil {
		logger.Error("Invalid pipeline configuration", zap.Error(err))
		return &exitError{code: exitConfig, err: err}
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.metricsAddr != "" {
		srv := &http.Server{Addr: opts.metricsAddr, Handler: metricsMux(a), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("Metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("Serving metrics", zap.String("addr", opts.metricsAddr))
	}

	err = steps(ctx, a)

	a.metrics.Complete()
	if a.ran {
		fmt.Fprint(stderr, a.metrics.GenerateReport())
		if summary, jerr := a.metrics.ToJSON(); jerr == nil {
			logger.Debug("Run metrics", zap.ByteString("summary", summary))
		}
	}

	if err != nil {
		logger.Error("Pipeline failed", zap.Error(err))
		if errors.Is(err, model.ErrConfiguration) {
			return &exitError{code: exitConfig, err: err}
		}
		return &exitError{code: exitFailed, err: err}
	}
	logger.Info("Pipeline completed")
	return nil
}

func metricsMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	return mux
}
