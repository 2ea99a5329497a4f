// Package scenarios holds the built-in tracees used by the demo command and
// the end-to-end tests. Each one registers itself with the tracee package.
package scenarios

import (
	"fmt"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
)

// Outcome is what the driver is expected to conclude about a scenario.
type Outcome int

const (
	Pass Outcome = iota
	LeakIP
	LeakMem
	ProtocolFault
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case LeakIP:
		return "leak (IP)"
	case LeakMem:
		return "leak (MEM)"
	case ProtocolFault:
		return "protocol fault"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

type Scenario struct {
	Name  string
	Usage string
	// Windows is the number of windows the driver seals before the outcome.
	Windows int
	Expect  Outcome
	Run     func() error
}

var All = []*Scenario{
	{Name: "aes", Usage: "AES-128 block encryption of a fixed block with a fixed key, twice", Windows: 2, Expect: Pass, Run: aesBlock},
	{Name: "aesrandom", Usage: "AES-128 encryption of a fresh random block in each window, random key", Windows: AESRandomWindows, Expect: Pass, Run: aesRandom},
	{Name: "sha256", Usage: "SHA-256 digest of two different inputs of equal length", Windows: 2, Expect: Pass, Run: sha256Digest},
	{Name: "ctcompare", Usage: "constant-time byte comparison of equal, then unequal inputs", Windows: 2, Expect: Pass, Run: ctCompare},
	{Name: "naivecompare", Usage: "early-exit byte comparison of equal, then unequal inputs", Windows: 2, Expect: LeakIP, Run: naiveCompare},
	{Name: "rc4", Usage: "RC4 key schedule with two keys of equal length", Windows: 2, Expect: LeakMem, Run: rc4Schedule},
	{Name: "exitwindow", Usage: "exits between the begin and end of its second window", Windows: 1, Expect: Pass, Run: exitInWindow},
	{Name: "segv", Usage: "faults with SIGSEGV inside its first window", Windows: 0, Expect: ProtocolFault, Run: segvInWindow},
}

func Lookup(name string) (*Scenario, bool) {
	for _, s := range All {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

func init() {
	for _, s := range All {
		tracee.Register(s.Name, tracee.Main(s.Run))
	}
}
