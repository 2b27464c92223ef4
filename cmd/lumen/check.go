package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"lumen/internal/diag"
	"lumen/internal/diagfmt"
	"lumen/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file|directory>...",
	Short: "Type check, resolve ownership and validate IR of AST documents",
	Long:  `Check every AST document (.yaml, .yml, .msgpack, .mpk, .lmp) given directly or found under a directory`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	checkCmd.Flags().Bool("clear-cache", false, "drop every cached entry before checking")
	checkCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

type checkOutput struct {
	format           string
	withNotes        bool
	pathMode         diagfmt.PathMode
	noWarnings       bool
	warningsAsErrors bool
}

// fileReport is one element of the json output.
type fileReport struct {
	Path    string                    `json:"path"`
	Cached  bool                      `json:"cached"`
	Funcs   int                       `json:"funcs"`
	Skipped []string                  `json:"skipped,omitempty"`
	Valid   bool                      `json:"valid"`
	Output  diagfmt.DiagnosticsOutput `json:"output"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd, s)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := readCheckOutput(cmd)
	if err != nil {
		return err
	}
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return fmt.Errorf("failed to get clear-cache flag: %w", err)
	}

	opts, err := s.driverOptions(true)
	if err != nil {
		return err
	}
	if clearCache && opts.Cache != nil {
		if err := opts.Cache.DropAll(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}

	inputs, err := driver.CollectInputs(args)
	if err != nil {
		return err
	}
	results, err := driver.CheckFiles(cmd.Context(), inputs, opts)
	if err != nil {
		return err
	}

	if out.noWarnings {
		dropWarnings(results)
	}
	if err := renderResults(cmd.OutOrStdout(), results, s, out); err != nil {
		return err
	}
	if !s.quiet && out.format != "json" {
		fmt.Fprintln(cmd.ErrOrStderr(), checkSummary(results))
	}
	if checkFailed(results, out.warningsAsErrors) {
		return errHasErrors
	}
	return nil
}

func dropWarnings(results []*driver.FileResult) {
	for _, r := range results {
		r.Bag.Filter(func(d diag.Diagnostic) bool { return d.Severity != diag.SevWarning })
	}
}

func checkFailed(results []*driver.FileResult, warningsAsErrors bool) bool {
	for _, r := range results {
		if r.HasErrors() || (warningsAsErrors && r.Bag.HasWarnings()) {
			return true
		}
	}
	return false
}

func readCheckOutput(cmd *cobra.Command) (checkOutput, error) {
	var out checkOutput
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return out, fmt.Errorf("failed to get format flag: %w", err)
	}
	out.format = strings.ToLower(format)
	switch out.format {
	case "pretty", "short", "json":
	default:
		return out, fmt.Errorf("unknown format %q (must be pretty, short or json)", format)
	}
	if out.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return out, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if out.noWarnings, err = cmd.Flags().GetBool("no-warnings"); err != nil {
		return out, fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	if out.warningsAsErrors, err = cmd.Flags().GetBool("warnings-as-errors"); err != nil {
		return out, fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if out.noWarnings && out.warningsAsErrors {
		return out, fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return out, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	out.pathMode = diagfmt.PathModeAuto
	if fullPath {
		out.pathMode = diagfmt.PathModeAbsolute
	}
	return out, nil
}

func renderResults(w io.Writer, results []*driver.FileResult, s *settings, out checkOutput) error {
	switch out.format {
	case "json":
		reports := make([]fileReport, 0, len(results))
		for _, r := range results {
			sum := r.Summary()
			reports = append(reports, fileReport{
				Path:    r.Path,
				Cached:  r.Cached,
				Funcs:   sum.Funcs,
				Skipped: sum.Skipped,
				Valid:   sum.Valid,
				Output: diagfmt.BuildDiagnosticsOutput(r.Bag, r.Files, diagfmt.JSONOpts{
					IncludePositions: true,
					PathMode:         out.pathMode,
					BaseDir:          s.base,
					IncludeNotes:     out.withNotes,
				}),
			})
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	case "short":
		for _, r := range results {
			if _, err := io.WriteString(w, diag.FormatShort(r.Bag.Items(), r.Files, out.withNotes)); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, r := range results {
			if r.Bag.Len() == 0 {
				continue
			}
			err := diagfmt.Pretty(w, r.Bag, r.Files, diagfmt.PrettyOpts{
				Color:     s.color,
				PathMode:  out.pathMode,
				BaseDir:   s.base,
				ShowNotes: out.withNotes,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}
}

// checkSummary is the trailing status line, e.g.
// "checked 3 file(s): 1 error(s), 0 warning(s), 2 cached".
func checkSummary(results []*driver.FileResult) string {
	var errs, warns, cached int
	for _, r := range results {
		for _, d := range r.Bag.Items() {
			switch d.Severity {
			case diag.SevError:
				errs++
			case diag.SevWarning:
				warns++
			}
		}
		if r.Cached {
			cached++
		}
	}
	line := fmt.Sprintf("checked %d file(s): %d error(s), %d warning(s)", len(results), errs, warns)
	if cached > 0 {
		line += fmt.Sprintf(", %d cached", cached)
	}
	return line
}
