// Package cli implements the chemindex command line: index administration,
// record lookup, batch ingestion, snapshots and the long-running serve and
// worker processes.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/chemindex/internal/config"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// annotationNoInit marks commands that run without config or backend.
const annotationNoInit = "chemindex/no-init"

type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	EnvFiles     []string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	Backend      Backend
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand creates the root command with every subcommand. A nil
// factory connects to the infrastructure named by the loaded config.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	if factory == nil {
		factory = NewBackend
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "chemindex",
		Short: "Index chemical structures for search",
		Long: "chemindex turns molecules, reactions and reaction templates into flat search\n" +
			"records, stores them in OpenSearch and serves them over HTTP and Kafka.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, factory)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPostRun(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (environment only when empty)")
	pf.StringSliceVar(&opts.EnvFiles, "env-file", nil, "dotenv files loaded before the config (default .env)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, yaml)")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "timeout of one-shot commands")

	cmd.AddCommand(
		newVersionCmd(),
		newIndexCmd(),
		newGetCmd(),
		newSearchCmd(),
		newIngestCmd(),
		newExportCmd(),
		newRestoreCmd(),
		newSnapshotsCmd(),
		newServeCmd(),
		newWorkerCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory BackendFactory) error {
	if cmd.Annotations[annotationNoInit] != "" {
		return nil
	}
	switch opts.OutputFormat {
	case OutputText, OutputJSON, OutputYAML:
	default:
		return errors.InvalidParam("unknown output format").WithDetail("output=" + opts.OutputFormat)
	}

	if err := config.LoadDotEnv(opts.EnvFiles...); err != nil {
		return err
	}
	cfg, err := config.LoadOrEnv(opts.ConfigPath)
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg, opts)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		Backend:      factory(cfg, logger),
		OutputFormat: opts.OutputFormat,
		Timeout:      opts.Timeout,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cliCtx))
	return nil
}

func persistentPostRun(cmd *cobra.Command) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil
	}
	_ = cliCtx.Logger.Sync()
	return cliCtx.Backend.Close()
}

// initLogger keeps the configured format but writes to stderr so that
// stdout carries only command output.
func initLogger(cfg *config.Config, opts *RootOptions) (logging.Logger, error) {
	logCfg := cfg.Log
	if opts.LogLevel != "" {
		if _, err := logging.ParseLevel(opts.LogLevel); err != nil {
			return nil, errors.InvalidParam("unknown log level").WithDetail("level=" + opts.LogLevel)
		}
		logCfg.Level = opts.LogLevel
	}
	logCfg.OutputPaths = []string{"stderr"}
	return logging.NewLogger(logCfg)
}

// GetCLIContext extracts CLIContext from a command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// withTimeout bounds a one-shot command.
func (c *CLIContext) withTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

// Execute runs the root command and prints any error to stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCommand(nil)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{annotationNoInit: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "chemindex %s\ncommit: %s\nbuilt: %s\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Output
// ─────────────────────────────────────────────────────────────────────────────

// tableProvider is rendered as an aligned table in text output.
type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data in the format selected by --output.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := OutputText
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}
	out := cmd.OutOrStdout()

	switch format {
	case OutputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case OutputYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode yaml output")
		}
		return enc.Close()
	default:
		return printText(out, data)
	}
}

func printText(out io.Writer, data interface{}) error {
	switch v := data.(type) {
	case string:
		fmt.Fprintln(out, v)
	case tableProvider:
		table, err := FormatTable(v.TableHeaders(), v.TableRows())
		if err != nil {
			return err
		}
		fmt.Fprint(out, table)
	case fmt.Stringer:
		fmt.Fprintln(out, v.String())
	default:
		fmt.Fprintf(out, "%+v\n", v)
	}
	return nil
}

// PrintError writes a formatted error message to stderr.
func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

// FormatTable renders headers and rows as a table. Rows shorter than the
// header are padded with empty cells.
func FormatTable(headers []string, rows [][]string) (string, error) {
	if len(headers) == 0 {
		return "", nil
	}

	var buf strings.Builder
	table := tablewriter.NewWriter(&buf)
	table.Header(headers)
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		if err := table.Append(cells); err != nil {
			return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to build table")
		}
	}
	if err := table.Render(); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeInternal, "failed to render table")
	}
	return buf.String(), nil
}

//Personal.AI order the ending
