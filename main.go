package main

import (
	"context"
	"errors"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

// maxOf may compile to a branch or to a CMOV. The trace tells which.
//
//go:noinline
func maxOf(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func example() error {
	var a, b, m uint64 = 1, 2, 0
	run := func() { m = maxOf(a, b) }
	run()
	tracee.Window(run)
	a = 3
	tracee.Window(run)
	_ = m
	return nil
}

func init() {
	tracee.Register("example", tracee.Main(example))
}

// This program traces itself: the parent re-executes the binary as the
// "example" tracee and reports whether its two windows match.
func main() {
	tracee.Init()

	l := log.NewLogger(log.LogfmtHandlerWithLevel(os.Stderr, log.LevelInfo))
	path, args, env, err := tracee.Command("example")
	if err != nil {
		l.Crit("Failed to build tracee command", "err", err)
	}
	report, err := tracer.Run(context.Background(), l, &tracer.Config{
		Path:   path,
		Args:   args,
		Env:    env,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		if errors.Is(err, tracer.ErrSpawn) {
			l.Error("Tracing is not permitted", "err", err)
		}
		l.Crit("Tracing failed", "err", err)
	}
	if report.Leak != nil {
		l.Warn("Found a leak", "window", report.Leak.Window, "divergence", report.Leak.Divergence.Error())
		os.Exit(2)
	}
	l.Info("No leak found", "windows", report.Windows)
}
