package ptrace

import (
	"fmt"

	"github.com/sidestep-ct/sidestep/x64go/amd64"
)

// Signal is a Linux x86-64 signal number.
type Signal int

const (
	SIGTRAP Signal = amd64.SigTrap
	SIGKILL Signal = amd64.SigKill
	SIGUSR1 Signal = amd64.SigUsr1
	SIGSEGV Signal = amd64.SigSegv
	SIGCHLD Signal = amd64.SigChld
	SIGSTOP Signal = amd64.SigStop
)

func (s Signal) String() string {
	switch s {
	case SIGTRAP:
		return "SIGTRAP"
	case SIGKILL:
		return "SIGKILL"
	case SIGUSR1:
		return "SIGUSR1"
	case SIGSEGV:
		return "SIGSEGV"
	case SIGCHLD:
		return "SIGCHLD"
	case SIGSTOP:
		return "SIGSTOP"
	}
	return fmt.Sprintf("signal %d", int(s))
}
