//go:build linux

package ptrace

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sidestep-ct/sidestep/x64go/amd64"
	"github.com/sidestep-ct/sidestep/x64go/regs"
)

// Ptrace issues a request that carries no pointer argument. Peek requests are
// served by PeekText instead.
func Ptrace(req Request, pid int, addr, data uintptr) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(req), uintptr(pid), addr, data, 0, 0)
	if errno != 0 {
		return &Error{Request: req, Pid: pid, Err: errno}
	}
	return nil
}

// TraceMe makes the calling thread a tracee of its parent.
func TraceMe() error {
	_, _, errno := unix.RawSyscall(unix.SYS_PTRACE, uintptr(ReqTraceMe), 0, 0)
	if errno != 0 {
		return &Error{Request: ReqTraceMe, Pid: 0, Err: errno}
	}
	return nil
}

// Cont resumes a stopped tracee, delivering sig unless it is 0.
func Cont(pid int, sig Signal) error {
	return Ptrace(ReqCont, pid, 0, uintptr(sig))
}

// SingleStep resumes a stopped tracee for exactly one instruction.
func SingleStep(pid int) error {
	return Ptrace(ReqSingleStep, pid, 0, 0)
}

func SetOptions(pid int, options int) error {
	return Ptrace(ReqSetOptions, pid, 0, uintptr(options))
}

// GetRegs fills out with the tracee's general-purpose registers.
func GetRegs(pid int, out *regs.Snapshot) error {
	_, _, errno := unix.Syscall6(unix.SYS_PTRACE, uintptr(ReqGetRegs), uintptr(pid), 0, uintptr(unsafe.Pointer(out)), 0, 0)
	if errno != 0 {
		return &Error{Request: ReqGetRegs, Pid: pid, Err: errno}
	}
	return nil
}

// PeekText reads tracee text at addr. A read crossing into an unmapped page
// returns the bytes read so far together with the error.
func PeekText(pid int, addr uint64, out []byte) (int, error) {
	n, err := unix.PtracePeekText(pid, uintptr(addr), out)
	if err != nil {
		return n, &Error{Request: ReqPeekText, Pid: pid, Err: err}
	}
	return n, nil
}

// Wait blocks in waitpid until pid changes state. options always include
// __WALL so clone children of the tracee are reported too.
func Wait(pid int, options int) (int, WaitStatus, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, options|amd64.WaitAll, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return wpid, WaitStatus(ws), err
	}
}

// Raise sends sig to the calling thread. The raw system calls keep the Go
// scheduler out of the path, so every call executes the same instructions.
func Raise(sig Signal) error {
	_, _, errno := unix.RawSyscall(unix.SYS_TGKILL, uintptr(unix.Getpid()), uintptr(unix.Gettid()), uintptr(sig))
	if errno != 0 {
		return errno
	}
	return nil
}

func Kill(pid int, sig Signal) error {
	return unix.Kill(pid, unix.Signal(sig))
}
