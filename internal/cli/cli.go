package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vk/slurmcodec/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

// options are the persistent flags shared by every command.
type options struct {
	catalogs    []string
	mode        string
	apiVersion  string
	logFormat   string
	logLevel    string
	metricsFile string
}

// Execute runs the command line args against a fresh command tree. Documents
// named "-" are read from in, command output goes to outW, logs and
// diagnostics to errW.
func Execute(ctx context.Context, args []string, in io.Reader, outW, errW io.Writer) error {
	root := NewRootCommand(in, outW, errW)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	// Anything cobra reports itself is a usage problem.
	return &ExitError{Code: exitUsage, Message: err.Error()}
}

// NewRootCommand builds the slurmcodec command tree. Persistent flags left
// unset default to their SLURMCODEC_* environment variable.
func NewRootCommand(in io.Reader, outW, errW io.Writer) *cobra.Command {
	return newRootCommand(in, outW, errW, os.LookupEnv)
}

func newRootCommand(in io.Reader, outW, errW io.Writer, lookupEnv lookupEnvFunc) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "slurmcodec",
		Short: "Convert cluster and job records to and from JSON or YAML",
		Long: `slurmcodec converts documents to and from the scheduler's records using the
registered type descriptors. QOS, TRES and association names are resolved
against catalogs declared in HCL files:

  tres "gres/gpu" { id = 1001 }
  qos "normal" { priority = 10 }
  assoc "cluster" "account" "user" { default = { qos = "normal" } }

Every global flag can also be set through the environment, e.g.
SLURMCODEC_CATALOG=/etc/slurmcodec or SLURMCODEC_LOG_LEVEL=debug.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return applyEnv(cmd.Flags(), cmd.Root().PersistentFlags(), lookupEnv)
	}
	root.SetIn(in)
	root.SetOut(outW)
	root.SetErr(errW)

	flags := root.PersistentFlags()
	flags.StringSliceVarP(&opts.catalogs, "catalog", "c", nil, "Catalog .hcl file or directory. May be repeated.")
	flags.StringVar(&opts.mode, "mode", "compact", "Sentinel rendering. Options: 'compact' or 'verbose'.")
	flags.StringVar(&opts.apiVersion, "api-version", "", "API version the documents follow, e.g. v0.0.41. Empty accepts deprecated fields.")
	flags.StringVar(&opts.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write conversion metrics to this file in the Prometheus text format.")

	root.AddCommand(
		newTypesCommand(opts),
		newValidateCommand(opts),
		newParseCommand(opts),
		newDumpCommand(opts),
		newOpenAPICommand(opts),
	)
	return root
}

// newApp validates the flags and builds the application. Catalog and
// registry failures panic inside app.NewApp and are recovered by main.
func newApp(cmd *cobra.Command, opts *options) (*app.App, error) {
	slog.Debug("CLI flags parsed.", "command", cmd.Name())
	cfg, err := app.NewConfig(app.Config{
		CatalogPaths: opts.catalogs,
		Mode:         opts.mode,
		APIVersion:   opts.apiVersion,
		LogFormat:    opts.logFormat,
		LogLevel:     opts.logLevel,
		MetricsFile:  opts.metricsFile,
	})
	if err != nil {
		return nil, &ExitError{Code: exitUsage, Message: err.Error()}
	}
	return app.NewApp(cmd.ErrOrStderr(), cfg), nil
}

// withApp adapts fn into a cobra RunE that builds the App first and writes
// the metrics file after fn, whatever its outcome.
func withApp(opts *options, fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}
		runErr := fn(cmd, a, args)
		if err := a.WriteMetrics(); err != nil {
			return errors.Join(runErr, &ExitError{Code: exitFailure, Message: err.Error()})
		}
		return runErr
	}
}
