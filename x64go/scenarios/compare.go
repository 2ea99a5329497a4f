package scenarios

import (
	"crypto/subtle"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
)

// naiveEqual returns at the first mismatching byte.
//
//go:noinline
func naiveEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareTwice(equal func(a, b []byte) bool) error {
	a := []byte{0, 1, 2, 3}
	b := []byte{0, 1, 2, 3}
	var res bool
	run := func() { res = equal(a, b) }
	run()

	tracee.Window(run)
	b[2] = 9
	tracee.Window(run)
	_ = res
	return nil
}

func ctCompare() error {
	return compareTwice(func(a, b []byte) bool {
		return subtle.ConstantTimeCompare(a, b) == 1
	})
}

func naiveCompare() error {
	return compareTwice(naiveEqual)
}
