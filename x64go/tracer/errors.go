package tracer

import (
	"errors"
	"fmt"
)

// Fault classes. Every error returned by Run wraps exactly one of them,
// except context cancellation.
var (
	// ErrSpawn: the child could not be started or never reached its first stop.
	ErrSpawn = errors.New("spawn fault")
	// ErrProtocol: the child deviated from the USR1/STOP window protocol.
	ErrProtocol = errors.New("protocol fault")
	// ErrDecode: the instruction at the traced RIP could not be decoded.
	ErrDecode = errors.New("decode fault")
	// ErrTracer: a ptrace or wait request failed.
	ErrTracer = errors.New("tracer fault")
	// ErrLeak is not returned by Run. Callers use it to turn Report.Leak into an error.
	ErrLeak = errors.New("trace divergence")
)

func fault(class error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", class, fmt.Sprintf(format, args...))
}

func osFault(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTracer, what, err)
}
