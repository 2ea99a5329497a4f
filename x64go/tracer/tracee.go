package tracer

import (
	"github.com/sidestep-ct/sidestep/x64go/ptrace"
	"github.com/sidestep-ct/sidestep/x64go/regs"
)

// Tracee is the traced child as seen by the driver. *ptrace.Process
// implements it; tests script it.
type Tracee interface {
	Pid() int
	Wait() (ptrace.WaitStatus, error)
	Cont() error
	SingleStep() error
	SetOptions(options int) error
	GetRegs(out *regs.Snapshot) error
	PeekText(addr uint64, out []byte) (int, error)
	Kill() error
	Close() error
}
