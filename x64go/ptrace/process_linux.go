//go:build linux

package ptrace

import (
	"errors"
	"fmt"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/sidestep-ct/sidestep/x64go/regs"
)

// Process is a child started by the driver that asked to be traced.
//
// The OS thread that calls Start becomes the tracer: every other method must
// be called from that same thread (see runtime.LockOSThread).
type Process struct {
	cmd  *exec.Cmd
	pid  int
	done bool
}

// Start forks and execs cmd. The child is expected to call ptrace(TRACEME)
// itself and raise SIGSTOP.
func Start(cmd *exec.Cmd) (*Process, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %q: %w", cmd.Path, err)
	}
	return &Process{cmd: cmd, pid: cmd.Process.Pid}, nil
}

func (p *Process) Pid() int {
	return p.pid
}

// Wait returns the next state change of the child.
func (p *Process) Wait() (WaitStatus, error) {
	wpid, ws, err := Wait(p.pid, 0)
	if err != nil {
		return 0, fmt.Errorf("waitpid(%d): %w", p.pid, err)
	}
	if wpid != p.pid {
		return 0, fmt.Errorf("%w: waitpid(%d) returned %d", ErrUnexpectedPid, p.pid, wpid)
	}
	if ws.Exited() || ws.Signaled() {
		p.done = true
	}
	return ws, nil
}

func (p *Process) Cont() error {
	return Cont(p.pid, 0)
}

func (p *Process) SingleStep() error {
	return SingleStep(p.pid)
}

func (p *Process) SetOptions(options int) error {
	return SetOptions(p.pid, options)
}

func (p *Process) GetRegs(out *regs.Snapshot) error {
	return GetRegs(p.pid, out)
}

func (p *Process) PeekText(addr uint64, out []byte) (int, error) {
	return PeekText(p.pid, addr, out)
}

// Kill sends SIGKILL to the child.
func (p *Process) Kill() error {
	if p.done {
		return nil
	}
	return Kill(p.pid, SIGKILL)
}

// Close kills the child if it is still around, reaps it, and releases the
// resources held by the exec.Cmd.
func (p *Process) Close() error {
	if !p.done {
		if err := p.Kill(); err != nil && !errors.Is(err, unix.ESRCH) {
			return fmt.Errorf("failed to kill child %d: %w", p.pid, err)
		}
		for !p.done {
			if _, err := p.Wait(); err != nil {
				return err
			}
		}
	}
	// The child is already reaped, so Wait only finishes the output copying
	// goroutines and reports ECHILD, which is expected here.
	_ = p.cmd.Wait()
	return nil
}
