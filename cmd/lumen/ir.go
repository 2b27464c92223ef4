package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lumen/internal/diagfmt"
	"lumen/internal/driver"
	"lumen/internal/ir"
)

var irCmd = &cobra.Command{
	Use:   "ir [flags] <file>",
	Short: "Print the validated IR of an AST document",
	Long:  `Lower every function without errors to SSA IR and print it; functions with errors are listed as skipped`,
	Args:  cobra.ExactArgs(1),
	RunE:  runIR,
}

func runIR(cmd *cobra.Command, args []string) error {
	res, s, cleanup, err := checkOne(cmd, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	if res.Module != nil {
		if err := ir.Dump(cmd.OutOrStdout(), res.Module); err != nil {
			return err
		}
	}
	if res.HasErrors() {
		return errHasErrors
	}
	if !s.quiet {
		sum := res.Summary()
		fmt.Fprintf(cmd.ErrOrStderr(), "%d function(s), %d skipped, valid=%t\n", sum.Funcs, len(sum.Skipped), sum.Valid)
	}
	return nil
}

// checkOne runs the whole pipeline on a single document without the cache,
// so the artifacts are present, and prints its diagnostics to stderr.
func checkOne(cmd *cobra.Command, path string) (*driver.FileResult, *settings, func(), error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup, err := setupTracing(cmd, s)
	if err != nil {
		return nil, nil, nil, err
	}
	opts, err := s.driverOptions(false)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}

	// #nosec G304 -- path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	res := driver.CheckFile(cmd.Context(), driver.FileInput{Path: path, Data: data}, opts)
	if res.Bag.Len() > 0 {
		err = diagfmt.Pretty(cmd.ErrOrStderr(), res.Bag, res.Files, diagfmt.PrettyOpts{
			Color:     s.color && isTerminal(os.Stderr),
			BaseDir:   s.base,
			ShowNotes: true,
		})
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
	}
	if res.Err != nil {
		cleanup()
		return nil, nil, nil, errHasErrors
	}
	return res, s, cleanup, nil
}
