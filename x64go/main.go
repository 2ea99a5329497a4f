package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/cmd"
	"github.com/sidestep-ct/sidestep/x64go/tracee"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

func main() {
	// Built-in scenarios re-execute this binary.
	tracee.Init()

	app := cli.NewApp()
	app.Name = "sidestep"
	app.Usage = "x86-64 constant-time verifier"
	app.Description = "Single-steps marked windows of a cooperative program and reports any difference in executed instructions or accessed memory between them."
	app.Commands = []*cli.Command{
		cmd.RunCommand,
		cmd.DemoCommand,
		cmd.DiffCommand,
		cmd.DecodeCommand,
	}
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for {
			<-c
			cancel()
			fmt.Println("\r\nExiting...")
		}
	}()

	err := app.RunContext(ctx, os.Args)
	if err != nil {
		switch {
		case errors.Is(err, ctx.Err()):
			_, _ = fmt.Fprintf(os.Stderr, "command interrupted\n")
			os.Exit(130)
		case errors.Is(err, tracer.ErrLeak):
			_, _ = fmt.Fprintf(os.Stderr, "leak: %v\n", err)
			os.Exit(2)
		default:
			_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}
