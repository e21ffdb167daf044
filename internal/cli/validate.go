package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/compiler"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/ir"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/pipeline"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Rules         string
	Context       string
	ReferenceDate string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Rules  int                        `json:"rules"`
	Files  int                        `json:"files"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Compile and check a rule set without evaluating records",
		Long: `Compile every rule file and check the rule set: ids, operators,
literals, and, when a context is given, every context date and keyword
list the rules reference. All problems are reported, not just the first.

Exit codes:
  0 - Rule set is valid
  1 - One or more rules are invalid
  2 - Rules path or context could not be read`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Rules, "rules", "r", "", "rule file or directory (required)")
	cmd.Flags().StringVarP(&opts.Context, "context", "c", "", "run context YAML")
	cmd.Flags().StringVar(&opts.ReferenceDate, "reference-date", "", "override the reference date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	res, loadErrs := compiler.LoadRules(opts.Rules, compiler.LoadModeCollectAll)
	if res == nil && len(loadErrs) > 0 {
		return outputValidateError(formatter, loadErrs[0])
	}
	formatter.VerboseLog("Found %d rule file(s) in %s", len(res.Files), opts.Rules)

	var ctx *ir.Context
	if opts.Context != "" || opts.ReferenceDate != "" {
		cfg, err := pipeline.LoadConfig(opts.Context, opts.ReferenceDate)
		if err != nil {
			return outputValidateError(formatter, err)
		}
		ctx = &cfg.Context
	}

	var errs []compiler.ValidationError
	for _, err := range loadErrs {
		errs = append(errs, loadValidationError(err))
	}
	for _, r := range res.Rules {
		formatter.VerboseLog("  %s: %s", r.ID, ir.DescribeCondition(r.When))
	}
	errs = append(errs, compiler.Validate(res.Rules, ctx)...)

	result := ValidationResult{
		Valid:  len(errs) == 0,
		Rules:  len(res.Rules),
		Files:  len(res.Files),
		Errors: errs,
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, result)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %d rule(s) valid\n", result.Rules)
	return nil
}

// loadValidationError converts a compile failure into a validation entry.
func loadValidationError(err error) compiler.ValidationError {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		field := "load"
		if loadErr.Pos.IsValid() {
			field = fmt.Sprintf("%s:%d", loadErr.Pos.Filename(), loadErr.Pos.Line())
		}
		return compiler.ValidationError{Field: field, Message: loadErr.Message, Code: loadErr.Code}
	}
	return compiler.ValidationError{Field: "load", Message: err.Error(), Code: compiler.ErrCodeGeneric}
}

// outputValidateError reports an unreadable rules path or context.
func outputValidateError(formatter *OutputFormatter, err error) error {
	code := errorCode(err)
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

// outputValidationErrors reports every rule problem; exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.Format == "json" {
		first := result.Errors[0]
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: first.Code, Message: first.Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  %s\n", e.Error())
	}
	return failure
}
