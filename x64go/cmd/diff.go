package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/trace"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

func Diff(ctx *cli.Context) error {
	if ctx.NArg() != 2 {
		return fmt.Errorf("expected two trace dumps, got %d arguments", ctx.NArg())
	}
	a, b := ctx.Args().Get(0), ctx.Args().Get(1)
	da, ra, err := trace.Load(Fs, a)
	if err != nil {
		return fmt.Errorf("invalid baseline trace: %w", err)
	}
	db, rb, err := trace.Load(Fs, b)
	if err != nil {
		return fmt.Errorf("invalid current trace: %w", err)
	}
	w := ctx.App.Writer
	_, _ = fmt.Fprintf(w, "%s window %d: %d instructions, %d accesses, digest %s\n", a, da.Window, ra.Steps(), len(ra.Mem), ra.Digest().Hex())
	_, _ = fmt.Fprintf(w, "%s window %d: %d instructions, %d accesses, digest %s\n", b, db.Window, rb.Steps(), len(rb.Mem), rb.Digest().Hex())
	if div := trace.Compare(ra, rb); div != nil {
		_, _ = fmt.Fprintln(w, div.Error())
		return fmt.Errorf("%w: %s", tracer.ErrLeak, div.Channel)
	}
	_, _ = fmt.Fprintln(w, "traces are equal")
	return nil
}

var DiffCommand = &cli.Command{
	Name:        "diff",
	Usage:       "Compare two trace dumps.",
	Description: "Compare two window traces written by run --dump-dir, instruction addresses first and memory addresses second. Exits with status 2 when they differ.",
	ArgsUsage:   "<baseline.json> <current.json>",
	Action:      Diff,
}
