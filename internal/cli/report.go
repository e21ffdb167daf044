package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/compiler"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/queryir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/report"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	RunID    string // empty lists runs; "latest" selects the newest
	Audit    bool

	Rules       []string
	Sources     []string
	MinSeverity string
}

// RunReport is the JSON shape of one stored run.
type RunReport struct {
	Run        ir.RunRecord   `json:"run"`
	Violations []ir.Violation `json:"violations"`
	AuditNotes []ir.AuditNote `json:"audit_notes,omitempty"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "List stored runs or print the findings of one run",
		Long: `Read runs stored by evaluate --db.

Without --run, every stored run is listed oldest first. With --run, the
violations of that run are printed as CSV (text format) or as a JSON
document; --audit adds the audit notes. --rule, --source and
--min-severity narrow the findings printed.

Examples:
  vioverse report --db runs.db
  vioverse report --db runs.db --run latest
  vioverse report --db runs.db --run latest --rule SEV-001 --source Equifax
  vioverse report --db runs.db --run 0192f7c4-... --audit --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database path (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", `run id, or "latest"`)
	cmd.Flags().BoolVar(&opts.Audit, "audit", false, "include audit notes")
	cmd.Flags().StringSliceVar(&opts.Rules, "rule", nil, "only findings of these rule ids")
	cmd.Flags().StringSliceVar(&opts.Sources, "source", nil, "only findings from these sources")
	cmd.Flags().StringVar(&opts.MinSeverity, "min-severity", "", "only findings at or above this severity")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(ctx context.Context, opts *ReportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Open would create an empty database; a report needs an existing one.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeNotFound, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeLoadFailed, "cannot open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.RunID == "" {
		return listRuns(ctx, st, formatter)
	}

	filter, err := findingFilter(opts)
	if err != nil {
		return formatter.Fail(ExitCommandError, config.ErrSeverity, "invalid --min-severity", err)
	}

	var run ir.RunRecord
	if opts.RunID == "latest" {
		run, err = st.LatestRun(ctx)
	} else {
		run, err = st.ReadRun(ctx, opts.RunID)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitFailure, compiler.ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, "cannot read run", err)
	}

	rep := RunReport{Run: run, Violations: []ir.Violation{}}
	violations, err := st.QueryFindings(ctx, queryir.TableViolations, run.ID, filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, "cannot read violations", err)
	}
	for _, f := range violations {
		rep.Violations = append(rep.Violations, ir.Violation{Finding: f})
	}
	if opts.Audit {
		notes, err := st.QueryFindings(ctx, queryir.TableAuditNotes, run.ID, filter)
		if err != nil {
			return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, "cannot read audit notes", err)
		}
		for _, f := range notes {
			rep.AuditNotes = append(rep.AuditNotes, ir.AuditNote{Finding: f})
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(rep)
	}

	set := report.Set{RunID: run.ID, Violations: rep.Violations, AuditNotes: rep.AuditNotes}
	if err := report.WriteCSV(formatter.Writer, report.TableViolations, set.Findings()); err != nil {
		return err
	}
	if opts.Audit {
		fmt.Fprintln(formatter.Writer)
		return report.WriteCSV(formatter.Writer, report.TableAudit, set.Notes())
	}
	return nil
}

// findingFilter builds the stored-findings filter from the filter flags.
func findingFilter(opts *ReportOptions) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	if len(opts.Rules) > 0 {
		preds = append(preds, queryir.In{Field: "rule_id", Values: queryir.Strings(opts.Rules...)})
	}
	if len(opts.Sources) > 0 {
		preds = append(preds, queryir.In{Field: "source", Values: queryir.Strings(opts.Sources...)})
	}
	if opts.MinSeverity != "" {
		sev, err := ir.ParseSeverity(opts.MinSeverity)
		if err != nil {
			return nil, err
		}
		preds = append(preds, queryir.AtLeast(sev))
	}
	return queryir.Where(preds...), nil
}

func listRuns(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, compiler.ErrCodeGeneric, "cannot list runs", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tREFERENCE\tRECORDS\tVIOLATIONS\tAUDIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", r.ID, r.ReferenceDate, r.RecordCount, r.ViolationCount, r.AuditCount)
	}
	return tw.Flush()
}
