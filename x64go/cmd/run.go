package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/profile"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/trace"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

// Fs is where trace dumps are written and read.
var Fs = afero.NewOsFs()

// traceFn runs the tracer; replaced in tests.
var traceFn = tracer.Run

func Run(ctx *cli.Context) error {
	// split CLI args after first '--'
	args := ctx.Args().Slice()
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) == 0 {
		return errors.New("missing tracee program, usage: run [flags] -- <program> [args]")
	}
	_, err := traceProgram(ctx, &tracer.Config{Path: args[0], Args: args[1:]})
	return err
}

// traceProgram applies the trace flags to cfg, runs it and turns a leak
// into an error wrapping tracer.ErrLeak.
func traceProgram(ctx *cli.Context, cfg *tracer.Config) (*tracer.Report, error) {
	if ctx.Bool(PProfCPUFlag.Name) {
		defer profile.Start(profile.NoShutdownHook, profile.ProfilePath("."), profile.CPUProfile).Stop()
	}
	lvl, err := ParseLevel(ctx.String(LogLevelFlag.Name))
	if err != nil {
		return nil, err
	}
	l := Logger(ctx.App.ErrWriter, lvl)
	cfg.Stdout = &LoggingWriter{Name: "tracee std-out", Log: l}
	cfg.Stderr = &LoggingWriter{Name: "tracee std-err", Log: l}
	cfg.Strict = ctx.Bool(StrictFlag.Name)
	cfg.Symbolize = ctx.Bool(SymbolizeFlag.Name)
	cfg.MaxWindows = ctx.Int(MaxWindowsFlag.Name)

	report, err := traceFn(ctx.Context, l, cfg)
	if err != nil {
		return report, err
	}
	l.Info("Trace finished",
		"windows", report.Windows,
		"instructions", report.Instructions,
		"exited", report.Exited,
		"status", report.ExitStatus,
		"limited", report.Limited,
	)
	leak := report.Leak
	if leak == nil {
		return report, nil
	}
	if dir := ctx.Path(DumpDirFlag.Name); dir != "" {
		if err := dumpLeak(l, &trace.Store{Fs: Fs, Dir: dir, Format: ctx.String(DumpFmtFlag.Name)}, leak); err != nil {
			return report, err
		}
	}
	return report, fmt.Errorf("%w in window %d: %s", tracer.ErrLeak, leak.Window, leak.Divergence.Error())
}

func dumpLeak(l log.Logger, store *trace.Store, leak *tracer.Leak) error {
	for _, w := range []struct {
		window int
		rec    *trace.Record
	}{
		{leak.Window - 1, leak.Baseline},
		{leak.Window, leak.Current},
	} {
		path, err := store.Write(w.window, w.rec)
		if err != nil {
			return fmt.Errorf("failed to write trace dump: %w", err)
		}
		l.Info("Wrote trace dump", "window", w.window, "path", path, "digest", w.rec.Digest())
	}
	return nil
}

var RunCommand = &cli.Command{
	Name:        "run",
	Usage:       "Trace a cooperative program and compare its windows.",
	Description: "Start the program after '--' under ptrace, single-step every window it opens with SIGUSR1 and closes with SIGSTOP, and compare consecutive windows. Exits with status 2 when two windows diverge.",
	Action:      Run,
	Flags:       traceFlags(),
}
