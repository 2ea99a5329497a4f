package scenarios

import (
	"golang.org/x/sys/unix"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
)

func exitInWindow() error {
	var sum int
	run := func() {
		for i := 0; i < 16; i++ {
			sum += i
		}
	}
	tracee.Window(run)
	tracee.Begin()
	unix.Exit(0)
	return nil
}

//go:noinline
func load(p *int) int {
	return *p
}

func segvInWindow() error {
	var p *int
	tracee.Begin()
	_ = load(p)
	tracee.End()
	return nil
}
