// Package ptrace is a thin typed shim over the Linux process-tracing system
// calls used by the trace driver: ptrace requests, wait status decoding,
// signal raising and child process ownership.
package ptrace

import (
	"errors"
	"fmt"
)

// Request is a ptrace(2) request code.
type Request int

const (
	ReqTraceMe     Request = 0
	ReqPeekText    Request = 1
	ReqPeekData    Request = 2
	ReqPeekUser    Request = 3
	ReqPokeText    Request = 4
	ReqPokeData    Request = 5
	ReqPokeUser    Request = 6
	ReqCont        Request = 7
	ReqKill        Request = 8
	ReqSingleStep  Request = 9
	ReqGetRegs     Request = 12
	ReqSetRegs     Request = 13
	ReqGetFPRegs   Request = 14
	ReqSetFPRegs   Request = 15
	ReqAttach      Request = 16
	ReqDetach      Request = 17
	ReqGetFPXRegs  Request = 18
	ReqSetFPXRegs  Request = 19
	ReqSyscall     Request = 24
	ReqSetOptions  Request = 0x4200
	ReqGetEventMsg Request = 0x4201
	ReqGetSigInfo  Request = 0x4202
	ReqSetSigInfo  Request = 0x4203
	ReqGetRegSet   Request = 0x4204
	ReqSetRegSet   Request = 0x4205
	ReqSeize       Request = 0x4206
	ReqInterrupt   Request = 0x4207
	ReqListen      Request = 0x4208
	ReqPeekSigInfo Request = 0x4209
)

var requestNames = map[Request]string{
	ReqTraceMe:     "TRACEME",
	ReqPeekText:    "PEEKTEXT",
	ReqPeekData:    "PEEKDATA",
	ReqPeekUser:    "PEEKUSER",
	ReqPokeText:    "POKETEXT",
	ReqPokeData:    "POKEDATA",
	ReqPokeUser:    "POKEUSER",
	ReqCont:        "CONT",
	ReqKill:        "KILL",
	ReqSingleStep:  "SINGLESTEP",
	ReqGetRegs:     "GETREGS",
	ReqSetRegs:     "SETREGS",
	ReqGetFPRegs:   "GETFPREGS",
	ReqSetFPRegs:   "SETFPREGS",
	ReqAttach:      "ATTACH",
	ReqDetach:      "DETACH",
	ReqGetFPXRegs:  "GETFPXREGS",
	ReqSetFPXRegs:  "SETFPXREGS",
	ReqSyscall:     "SYSCALL",
	ReqSetOptions:  "SETOPTIONS",
	ReqGetEventMsg: "GETEVENTMSG",
	ReqGetSigInfo:  "GETSIGINFO",
	ReqSetSigInfo:  "SETSIGINFO",
	ReqGetRegSet:   "GETREGSET",
	ReqSetRegSet:   "SETREGSET",
	ReqSeize:       "SEIZE",
	ReqInterrupt:   "INTERRUPT",
	ReqListen:      "LISTEN",
	ReqPeekSigInfo: "PEEKSIGINFO",
}

func (r Request) String() string {
	if name, ok := requestNames[r]; ok {
		return "PTRACE_" + name
	}
	return fmt.Sprintf("PTRACE_%#x", int(r))
}

// Peek reports whether the request returns data instead of a status.
func (r Request) Peek() bool {
	return r == ReqPeekText || r == ReqPeekData || r == ReqPeekUser
}

// PTRACE_SETOPTIONS flags.
const (
	OptTraceSysGood = 0x1
	OptTraceExec    = 0x10
	// OptExitKill sends SIGKILL to the tracee when the tracer exits.
	OptExitKill = 0x100000
)

// ErrUnexpectedPid is returned when waitpid reports a process other than the
// traced child.
var ErrUnexpectedPid = errors.New("waitpid returned an unexpected pid")

// Error is a failed ptrace request.
type Error struct {
	Request Request
	Pid     int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s on pid %d: %v", e.Request, e.Pid, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
