package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/compiler"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ingest"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/metrics"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/pipeline"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/report"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/store"
)

// EvaluateOptions holds flags for the evaluate command.
type EvaluateOptions struct {
	*RootOptions
	pipeline.Files

	Out             string // violations CSV
	AuditOut        string // audit notes CSV
	NDJSON          string
	Database        string
	MetricsOut      string
	MinSeverity     string
	Workers         int
	Timeout         time.Duration
	SkipConsistency bool
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvaluateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evaluate <records.csv>",
		Short: "Evaluate records against a rule set",
		Long: `Evaluate every record of a CSV file against the rule set, then check
critical fields for agreement across sources.

Invalid rules, context or input stop the command before any record is
evaluated (exit code 2). A rule that cannot evaluate a record only skips
that record for that rule.

Examples:
  vioverse evaluate tradelines.csv --rules rules/ --context config/context.yaml
  vioverse evaluate tradelines.csv --rules rules/ --reference-date 2024-01-15 --out violations.csv
  vioverse evaluate tradelines.csv --rules rules/ --context ctx.yaml --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Rules, "rules", "r", "", "rule file or directory (required)")
	cmd.Flags().StringVarP(&opts.Context, "context", "c", "", "run context YAML")
	cmd.Flags().StringVar(&opts.Aliases, "aliases", "", "entity alias YAML")
	cmd.Flags().StringVar(&opts.ReferenceDate, "reference-date", "", "override the reference date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write violations CSV")
	cmd.Flags().StringVar(&opts.AuditOut, "audit-out", "", "write audit notes CSV")
	cmd.Flags().StringVar(&opts.NDJSON, "ndjson", "", "write all findings as NDJSON")
	cmd.Flags().StringVar(&opts.Database, "db", "", "store the run in a SQLite database")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics textfile")
	cmd.Flags().StringVar(&opts.MinSeverity, "min-severity", "", "drop violations below this severity")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "evaluation workers (default: number of CPUs)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "abandon the run after this long")
	cmd.Flags().BoolVar(&opts.SkipConsistency, "skip-consistency", false, "skip the cross-source check")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runEvaluate(ctx context.Context, opts *EvaluateOptions, recordsPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var minSeverity ir.Severity
	if opts.MinSeverity != "" {
		sev, err := ir.ParseSeverity(opts.MinSeverity)
		if err != nil {
			return formatter.Fail(ExitCommandError, config.ErrSeverity, "invalid --min-severity", err)
		}
		minSeverity = sev
	}

	in, err := pipeline.LoadInputs(opts.Files)
	if err != nil {
		_ = formatter.Error(errorCode(err), "invalid run configuration", errorList(err))
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}
	formatter.VerboseLog("Loaded %d rule(s), reference date %s",
		len(in.Rules), in.Config.Context.ReferenceDate.Format(time.DateOnly))

	records, err := ingest.ReadCSVFile(recordsPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeLoadFailed, "cannot read records", err)
	}
	in.Records = records
	formatter.VerboseLog("Read %d record(s) from %s", len(records), recordsPath)

	var collector *metrics.Collector
	if opts.MetricsOut != "" {
		collector = metrics.New()
	}

	res, err := pipeline.Run(ctx, *in, pipeline.Options{
		Workers:         opts.Workers,
		MinSeverity:     minSeverity,
		SkipConsistency: opts.SkipConsistency,
		Timeout:         opts.Timeout,
		Metrics:         collector,
	})
	if err != nil {
		return formatter.Fail(ExitFailure, compiler.ErrCodeGeneric, "evaluation aborted", err)
	}

	if err := writeOutputs(ctx, opts, res, collector); err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, "cannot write results", err)
	}

	if opts.Format == "json" {
		return formatter.Success(res.Summary)
	}
	return report.WriteSummary(formatter.Writer, res.Summary)
}

func writeOutputs(ctx context.Context, opts *EvaluateOptions, res *pipeline.Result, collector *metrics.Collector) error {
	set := &res.Set
	if opts.Out != "" {
		if err := writeFile(opts.Out, func(w io.Writer) error {
			return report.WriteCSV(w, report.TableViolations, set.Findings())
		}); err != nil {
			return err
		}
	}
	if opts.AuditOut != "" {
		if err := writeFile(opts.AuditOut, func(w io.Writer) error {
			return report.WriteCSV(w, report.TableAudit, set.Notes())
		}); err != nil {
			return err
		}
	}
	if opts.NDJSON != "" {
		if err := writeFile(opts.NDJSON, func(w io.Writer) error {
			return report.WriteNDJSON(w, set)
		}); err != nil {
			return err
		}
	}
	if opts.Database != "" {
		if err := saveRun(ctx, opts.Database, res); err != nil {
			return err
		}
	}
	if collector != nil {
		if err := collector.WriteTextfile(opts.MetricsOut); err != nil {
			return err
		}
	}
	return nil
}

func saveRun(ctx context.Context, path string, res *pipeline.Result) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	if err := st.WriteRun(ctx, res.Run, res.Set.Violations, res.Set.AuditNotes); err != nil {
		return err
	}
	slog.Info("run stored", "path", path, "run_id", res.Run.ID)
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
