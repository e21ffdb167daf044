package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
)

// CanonicalizeOptions holds flags for the canonicalize command.
type CanonicalizeOptions struct {
	*RootOptions
	Aliases string
}

// CanonicalName pairs a reported name with its canonical form.
type CanonicalName struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
}

// NewCanonicalizeCommand creates the canonicalize command.
func NewCanonicalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CanonicalizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "canonicalize [names...]",
		Short: "Print the canonical form of entity names",
		Long: `Print the canonical form of each entity name, one per line, using the
same cleaning and alias table as evaluate. Names are read from standard
input, one per line, when none are given.

Examples:
  vioverse canonicalize "BANK OF AMERICA NA" "SEARS / CBNA 1234****"
  cut -d, -f3 tradelines.csv | vioverse canonicalize --aliases aliases.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCanonicalize(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Aliases, "aliases", "", "entity alias YAML (replaces the built-in table)")
	return cmd
}

func runCanonicalize(opts *CanonicalizeOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	aliases := entity.DefaultAliases()
	if opts.Aliases != "" {
		table, err := config.LoadAliases(opts.Aliases)
		if err != nil {
			return formatter.Fail(ExitCommandError, errorCode(err), "cannot load aliases", err)
		}
		aliases = table.Aliases
	}
	canon := entity.NewCanonicalizer(aliases)

	names := args
	if len(names) == 0 {
		var err error
		names, err = readLines(cmd.InOrStdin())
		if err != nil {
			return formatter.Fail(ExitCommandError, config.ErrUnreadable, "cannot read names", err)
		}
	}

	out := make([]CanonicalName, len(names))
	for i, n := range names {
		out[i] = CanonicalName{Input: n, Canonical: canon.Canonicalize(n)}
	}

	if formatter.Format == "json" {
		return formatter.Success(out)
	}
	for _, cn := range out {
		if formatter.Verbose {
			fmt.Fprintf(formatter.Writer, "%s\t%s\n", cn.Input, cn.Canonical)
			continue
		}
		fmt.Fprintln(formatter.Writer, cn.Canonical)
	}
	return nil
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
