package cmd

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/scenarios"
	"github.com/sidestep-ct/sidestep/x64go/trace"
	"github.com/sidestep-ct/sidestep/x64go/tracee"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

func Demo(ctx *cli.Context) error {
	if ctx.Bool(ListFlag.Name) || ctx.NArg() == 0 {
		for _, s := range scenarios.All {
			_, _ = fmt.Fprintf(ctx.App.Writer, "%-14s %-16s %s\n", s.Name, s.Expect, s.Usage)
		}
		return nil
	}
	name := ctx.Args().First()
	s, ok := scenarios.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown scenario %q, see demo --list", name)
	}
	path, args, env, err := tracee.Command(s.Name)
	if err != nil {
		return err
	}
	report, err := traceProgram(ctx, &tracer.Config{Path: path, Args: args, Env: env})
	got := outcome(report, err)
	_, _ = fmt.Fprintf(ctx.App.Writer, "scenario %s: %s (expected %s)\n", s.Name, got, s.Expect)
	return err
}

func outcome(report *tracer.Report, err error) string {
	switch {
	case errors.Is(err, tracer.ErrLeak) && report != nil && report.Leak != nil:
		return scenarioOutcome(report.Leak).String()
	case errors.Is(err, tracer.ErrProtocol):
		return scenarios.ProtocolFault.String()
	case err != nil:
		return "error"
	}
	return scenarios.Pass.String()
}

func scenarioOutcome(leak *tracer.Leak) scenarios.Outcome {
	if leak.Divergence.Channel == trace.ChannelMem {
		return scenarios.LeakMem
	}
	return scenarios.LeakIP
}

var DemoCommand = &cli.Command{
	Name:        "demo",
	Usage:       "Trace one of the built-in scenarios.",
	Description: "Re-execute this binary as a built-in cooperative tracee and trace it like the run command does.",
	ArgsUsage:   "<scenario>",
	Action:      Demo,
	Flags:       append(traceFlags(), ListFlag),
}
