package ptrace

import "fmt"

// WaitStatus is the raw status word filled in by waitpid.
type WaitStatus uint32

// Stopped: low byte is 0x7f.
func (s WaitStatus) Stopped() bool {
	return s&0xff == 0x7f
}

// Exited: low 7 bits are zero.
func (s WaitStatus) Exited() bool {
	return s&0x7f == 0
}

// Signaled reports termination by a signal.
func (s WaitStatus) Signaled() bool {
	return s&0x7f != 0x7f && s&0x7f != 0
}

// StopSignal is the signal that stopped the child, the byte above the 0x7f marker.
func (s WaitStatus) StopSignal() Signal {
	return Signal((s >> 8) & 0xff)
}

func (s WaitStatus) ExitStatus() int {
	return int((s >> 8) & 0xff)
}

func (s WaitStatus) TermSignal() Signal {
	return Signal(s & 0x7f)
}

func (s WaitStatus) String() string {
	switch {
	case s.Stopped():
		return fmt.Sprintf("stopped by %s", s.StopSignal())
	case s.Exited():
		return fmt.Sprintf("exited with status %d", s.ExitStatus())
	case s.Signaled():
		return fmt.Sprintf("terminated by %s", s.TermSignal())
	}
	return fmt.Sprintf("status %#x", uint32(s))
}
