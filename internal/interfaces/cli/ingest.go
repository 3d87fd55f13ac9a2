package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/chemindex/internal/application/indexing"
	"github.com/turtacn/chemindex/internal/domain/record"
	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/pkg/errors"
)

const maxLineBytes = 4 << 20

// IngestSummary is the output of ingest. Positions in Errors are 1-based
// input line numbers, or -1 for failures not tied to a line.
type IngestSummary struct {
	indexing.BatchReport `yaml:",inline"`
	Batches              int `json:"batches" yaml:"batches"`
}

func (s IngestSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d lines, %d built, %d indexed, %d failed in %d batch(es), took %s",
		s.Kind, s.Total, s.Built, s.Indexed, s.Failed, s.Batches, s.Took.Round(time.Millisecond))
	for _, e := range s.Errors {
		step := ""
		if e.Step != "" {
			step = " step=" + e.Step
		}
		fmt.Fprintf(&sb, "\n  line %d: [%s]%s %s", e.Position, e.Code, step, e.Message)
	}
	return sb.String()
}

type ingestOptions struct {
	format    string
	batchSize int
}

func newIngestCmd() *cobra.Command {
	opts := &ingestOptions{}
	cmd := &cobra.Command{
		Use:   "ingest <kind> [file]",
		Short: "Index one structure per input line",
		Long: "ingest reads structures from file, or from stdin when file is missing or \"-\",\n" +
			"one structure text per line. Blank lines and lines starting with # are skipped.\n" +
			"Lines are built concurrently and bulk indexed in batches; failures are\n" +
			"reported per line according to ingest.error_policy.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			return runIngest(cmd, args[0], path, opts)
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "", "input format (smiles, molfile, rxnfile, smarts); detected when empty")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "lines per bulk request (default ingest.batch_size)")
	return cmd
}

func runIngest(cmd *cobra.Command, kindArg, path string, opts *ingestOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	kind, err := record.ParseKind(kindArg)
	if err != nil {
		return err
	}
	if err := indexing.ValidateFormat(kind, opts.format); err != nil {
		return err
	}
	batchSize := opts.batchSize
	if batchSize <= 0 {
		batchSize = cliCtx.Config.Ingest.BatchSize
	}

	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalidParam, "failed to open input").WithDetail("path=" + path)
		}
		defer f.Close()
		in = f
	}

	svc, err := cliCtx.Backend.Service()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	summary := IngestSummary{BatchReport: indexing.BatchReport{Kind: kind}}
	toolkit := cliCtx.Config.Ingest.Toolkit
	var (
		loaders []indexing.StructureLoader
		lines   []int
	)
	flush := func() error {
		if len(loaders) == 0 {
			return nil
		}
		report, err := svc.IngestBatch(ctx, kind, loaders)
		if report != nil {
			mergeReport(&summary, report, lines)
		}
		summary.Batches++
		loaders, lines = loaders[:0], lines[:0]
		return err
	}

	err = scanLines(in, func(lineNo int, text string) error {
		loaders = append(loaders, indexing.TextLoader(toolkit, kind, opts.format, text))
		lines = append(lines, lineNo)
		if len(loaders) >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		cliCtx.Logger.Error("ingest aborted",
			logging.String(logging.FieldKind, kind.String()),
			logging.Int("indexed", summary.Indexed),
			logging.Err(err))
		_ = PrintResult(cmd, summary)
		return err
	}
	return PrintResult(cmd, summary)
}

// scanLines calls fn with the 1-based number and trimmed text of every
// line that is neither blank nor a comment.
func scanLines(r io.Reader, fn func(lineNo int, text string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := fn(lineNo, text); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidParam, "failed to read input")
	}
	return nil
}

// mergeReport adds a batch report to the summary, rewriting batch
// positions to input line numbers.
func mergeReport(summary *IngestSummary, report *indexing.BatchReport, lines []int) {
	summary.Total += report.Total
	summary.Built += report.Built
	summary.Indexed += report.Indexed
	summary.Failed += report.Failed
	summary.Took += report.Took
	for _, e := range report.Errors {
		if e.Position >= 0 && e.Position < len(lines) {
			e.Position = lines[e.Position]
		} else {
			e.Position = -1
		}
		summary.Errors = append(summary.Errors, e)
	}
}

//Personal.AI order the ending
