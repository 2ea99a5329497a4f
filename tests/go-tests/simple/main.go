// Command simple is a cooperative tracee for the run command:
//
//	sidestep run -- ./simple [-lookup]
//
// It encrypts two different secrets with a toy cipher, one window each.
// With -lookup the cipher indexes a table with secret bytes, which the
// tracer reports as a memory access divergence.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sidestep-ct/sidestep/x64go/tracee"
)

var sbox [256]byte

func init() {
	for i := range sbox {
		sbox[i] = byte(i*7 + 3)
	}
}

//go:noinline
func mixLookup(dst, secret []byte) {
	for i := range secret {
		dst[i] = sbox[secret[i]]
	}
}

//go:noinline
func mixArith(dst, secret []byte) {
	for i := range secret {
		dst[i] = secret[i]*7 + 3
	}
}

func main() {
	lookup := flag.Bool("lookup", false, "use a secret-indexed table")
	flag.Parse()

	mix := mixArith
	if *lookup {
		mix = mixLookup
	}
	secret := []byte("first secret....")
	out := make([]byte, len(secret))
	run := func() { mix(out, secret) }
	run()

	if err := tracee.Attach(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(tracee.ExitAttach)
	}
	tracee.Window(run)
	copy(secret, "second secret...")
	tracee.Window(run)
	fmt.Printf("%x\n", out)
}
