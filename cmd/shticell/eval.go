package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/ryanbastic/go-shticell/internal/cell"
	"github.com/ryanbastic/go-shticell/internal/expr"
	"github.com/ryanbastic/go-shticell/internal/sheet"
	"github.com/ryanbastic/go-shticell/internal/sheetfile"
	"github.com/spf13/cobra"
)

// localOwner stamps cells evaluated outside a server.
const localOwner = "local"

var evalCmd = &cobra.Command{
	Use:   "eval <file.toml>",
	Short: "Evaluate a sheet file and print its cells",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

func init() {
	evalCmd.Flags().Bool("watch", false, "re-evaluate whenever the file changes")
	evalCmd.Flags().Bool("json", false, "print the evaluated sheet as JSON")
}

func runEval(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	asJSON, _ := cmd.Flags().GetBool("json")
	out := cmd.OutOrStdout()
	ev := expr.NewEvaluator(nil)

	def, err := sheetfile.Load(args[0])
	if err != nil {
		return err
	}
	if err := evaluate(out, def, ev, asJSON); err != nil && !watch {
		return err
	}
	if !watch {
		return nil
	}

	w, err := sheetfile.NewWatcher(args[0])
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return watchLoop(ctx, out, cmd.ErrOrStderr(), w.Changes, ev, asJSON)
}

// watchLoop re-evaluates every change until ctx ends or changes closes.
// Broken edits are reported and the loop keeps going.
func watchLoop(ctx context.Context, out, errOut io.Writer, changes <-chan sheetfile.Change, ev *expr.Evaluator, asJSON bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if c.Err != nil {
				fmt.Fprintf(errOut, "%s: %v\n", c.File, c.Err)
				continue
			}
			fmt.Fprintln(out)
			if err := evaluate(out, c.Def, ev, asJSON); err != nil {
				fmt.Fprintf(errOut, "%s: %v\n", c.File, err)
			}
		}
	}
}

// evaluate loads def into a fresh sheet and prints every stored cell.
func evaluate(out io.Writer, def sheet.Definition, ev *expr.Evaluator, asJSON bool) error {
	if def.Rows < 1 || def.Cols < 1 {
		def.Rows, def.Cols = cell.DefaultRows, cell.DefaultCols
	}
	s, err := sheet.Load(def, localOwner, ev)
	if err != nil {
		return err
	}
	cells := s.Cells()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cells)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s (%dx%d)\n", def.Name, def.Rows, def.Cols)
	fmt.Fprintln(tw, "CELL\tVALUE\tTEXT")
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Coord, c.Value, c.Text)
	}
	return tw.Flush()
}
