package tracer

import (
	"github.com/sidestep-ct/sidestep/x64go/trace"
)

// Report summarises a tracing session.
type Report struct {
	// Windows is the number of sealed windows.
	Windows int
	// Instructions is the number of single-stepped instructions, across all windows.
	Instructions uint64

	Exited     bool
	ExitStatus int
	// Limited is set when tracing stopped at Config.MaxWindows.
	Limited bool

	// Leak is set when two windows diverged. The child has been killed.
	Leak *Leak
}

// Leak is a divergence between two consecutive windows.
type Leak struct {
	// Window is the number of the window that diverged from its predecessor.
	Window     int
	Divergence *trace.Divergence
	Baseline   *trace.Record
	Current    *trace.Record

	// Insn is the disassembly of the diverging instruction, when it could be read.
	Insn   string
	Symbol string
}
