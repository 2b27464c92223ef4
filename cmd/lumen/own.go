package main

import (
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"lumen/internal/driver"
	"lumen/internal/types"
	"lumen/internal/ui"
)

var ownCmd = &cobra.Command{
	Use:   "own [flags] <file>",
	Short: "Show the ownership of every binding",
	Args:  cobra.ExactArgs(1),
	RunE:  runOwn,
}

var ownHeaders = []string{"fn", "binding", "kind", "type", "mut", "ownership"}

func runOwn(cmd *cobra.Command, args []string) error {
	res, s, cleanup, err := checkOne(cmd, args[0])
	if err != nil {
		return err
	}
	defer cleanup()

	width := 0
	if f, ok := cmd.OutOrStdout().(*os.File); ok {
		width = terminalWidth(f)
	}
	tbl := ui.Table{
		Title:   res.Path,
		Headers: ownHeaders,
		Rows:    ownershipRows(res),
		Status:  len(ownHeaders) - 1,
	}
	if _, err := io.WriteString(cmd.OutOrStdout(), tbl.Render(width, s.color)); err != nil {
		return err
	}
	if res.HasErrors() {
		return errHasErrors
	}
	return nil
}

// ownershipRows lists sema bindings in declaration order with their tags.
func ownershipRows(res *driver.FileResult) [][]string {
	if res.Sema == nil || res.Ownership == nil || res.Program == nil {
		return nil
	}
	b := res.Program.Builder
	rows := make([][]string, 0, len(res.Sema.Bindings))
	for _, bnd := range res.Sema.Bindings {
		fn := "?"
		if info := res.Sema.Func(bnd.Fn); info != nil {
			fn = info.Name
		}
		rows = append(rows, []string{
			fn,
			b.Lookup(bnd.Name),
			bnd.Kind.String(),
			types.Label(res.Sema.Types, bnd.Type),
			strconv.FormatBool(bnd.Mut),
			res.Ownership.Of(bnd.ID).String(),
		})
	}
	return rows
}
