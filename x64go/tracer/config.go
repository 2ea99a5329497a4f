package tracer

import (
	"io"

	"github.com/sidestep-ct/sidestep/x64go/decode"
)

type Config struct {
	// Path and Args name the cooperative tracee program.
	Path string
	Args []string
	// Env is the child environment, os.Environ() when nil.
	Env []string

	Stdout io.Writer
	Stderr io.Writer

	// Strict extends address recording to segment bases, absolute
	// displacements and implicit stack slots.
	Strict bool
	// MaxWindows stops tracing after that many windows. 0 means no limit.
	MaxWindows int
	// Symbolize names leak addresses with the tracee's ELF symbols.
	Symbolize bool

	// Decoder defaults to the x86asm backend.
	Decoder decode.Decomposer
}
