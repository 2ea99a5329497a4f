//go:build linux

package tracer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/sidestep-ct/sidestep/x64go/ptrace"
	"github.com/sidestep-ct/sidestep/x64go/symbols"
)

// Run starts the tracee described by cfg and traces its windows until it
// exits, leaks, or ctx is done. Cancelling ctx kills the child.
//
// A leak is not an error: it is reported in Report.Leak.
func Run(ctx context.Context, lg log.Logger, cfg *Config) (*Report, error) {
	// The thread that forks the child is its tracer.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	cmd := exec.Command(cfg.Path, cfg.Args...)
	cmd.Env = cfg.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}
	cmd.Env = append(cmd.Env[:len(cmd.Env):len(cmd.Env)], "GODEBUG=asyncpreemptoff=1")
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr

	p, err := ptrace.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			lg.Error("Failed to reap child", "pid", p.Pid(), "err", err)
		}
	}()
	lg.Info("Started tracee", "pid", p.Pid(), "path", cfg.Path, "strict", cfg.Strict)

	d := NewDriver(lg, p, cfg)
	if cfg.Symbolize {
		pid := p.Pid()
		d.Symbols = func() (SymbolLookup, error) {
			table, err := symbols.ForProcess(pid)
			if err != nil {
				return nil, err
			}
			return table.Lookup, nil
		}
	}

	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
			// kill(2) is not a ptrace request, any thread may send it.
			if err := ptrace.Kill(p.Pid(), ptrace.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
				return fmt.Errorf("failed to kill child on cancel: %w", err)
			}
		case <-stop:
		}
		return nil
	})

	report, err := d.Loop()
	close(stop)
	if werr := g.Wait(); werr != nil {
		lg.Warn("Cancel watcher failed", "err", werr)
	}
	if err != nil && ctx.Err() != nil {
		return report, fmt.Errorf("trace interrupted: %w", context.Cause(ctx))
	}
	return report, err
}
