// Package tracee is the child side of the window protocol.
//
// A cooperative tracee calls Attach once, then brackets every run of the
// code under test with Begin and End (or Window). The driver single-steps
// everything between the two.
//
// Importing this package locks the main goroutine to the main thread, so
// the thread that asks to be traced is the one the driver waits on.
package tracee

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/sidestep-ct/sidestep/x64go/ptrace"
)

func init() {
	runtime.LockOSThread()
}

// Attach asks the parent to trace the calling thread and stops until the
// parent resumes it. The garbage collector stays off afterwards.
func Attach() error {
	debug.SetGCPercent(-1)
	if err := ptrace.TraceMe(); err != nil {
		return fmt.Errorf("ptrace(TRACEME): %w", err)
	}
	if err := ptrace.Raise(ptrace.SIGSTOP); err != nil {
		return fmt.Errorf("failed to raise %s: %w", ptrace.SIGSTOP, err)
	}
	return nil
}

// Begin opens a window.
//
//go:noinline
func Begin() {
	_ = ptrace.Raise(ptrace.SIGUSR1)
}

// End closes the window opened by Begin.
//
//go:noinline
func End() {
	_ = ptrace.Raise(ptrace.SIGSTOP)
}

// Window runs fn inside a window. fn must not allocate.
func Window(fn func()) {
	Begin()
	fn()
	End()
}
