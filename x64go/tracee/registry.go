package tracee

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// EnvVar selects the registered entry point a re-executed binary runs.
const EnvVar = "SIDESTEP_TRACEE"

// ExitAttach is the exit status of a tracee that could not attach.
const ExitAttach = 3

var entries = map[string]func() error{}

// Register makes fn runnable as a child of the current binary under name.
// It is meant to be called from init functions.
func Register(name string, fn func() error) {
	if _, ok := entries[name]; ok {
		panic(fmt.Sprintf("tracee %q registered twice", name))
	}
	entries[name] = fn
}

func Names() []string {
	out := make([]string, 0, len(entries))
	for name := range entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func Registered(name string) bool {
	_, ok := entries[name]
	return ok
}

// Command returns the path, arguments and environment that re-execute the
// current binary as the tracee registered under name.
func Command(name string) (path string, args []string, env []string, err error) {
	if !Registered(name) {
		return "", nil, nil, fmt.Errorf("unknown tracee %q", name)
	}
	path, err = os.Executable()
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to locate executable: %w", err)
	}
	env = append(os.Environ(), EnvVar+"="+name)
	return path, nil, env, nil
}

// Cmd is Command as an *exec.Cmd, for tracees run without a tracer.
func Cmd(name string) (*exec.Cmd, error) {
	path, args, env, err := Command(name)
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(path, args...)
	cmd.Env = env
	return cmd, nil
}

// Init runs the registered entry point named by EnvVar and exits. It
// returns immediately when the variable is unset. Call it first thing in
// main or TestMain.
func Init() {
	name := os.Getenv(EnvVar)
	if name == "" {
		return
	}
	fn, ok := entries[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown tracee %q\n", name)
		os.Exit(ExitAttach)
	}
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "tracee %s: %v\n", name, err)
		os.Exit(1)
	}
	os.Exit(0)
}

// Main attaches to the tracer and runs fn, exiting with ExitAttach when the
// parent refuses to trace.
func Main(fn func() error) func() error {
	return func() error {
		if err := Attach(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(ExitAttach)
		}
		return fn()
	}
}
