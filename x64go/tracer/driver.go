package tracer

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/sidestep-ct/sidestep/x64go/access"
	"github.com/sidestep-ct/sidestep/x64go/amd64"
	"github.com/sidestep-ct/sidestep/x64go/decode"
	"github.com/sidestep-ct/sidestep/x64go/ptrace"
	"github.com/sidestep-ct/sidestep/x64go/regs"
	"github.com/sidestep-ct/sidestep/x64go/trace"
)

type State int

const (
	StateInit State = iota
	StateIdle
	StateTracing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateIdle:
		return "idle"
	case StateTracing:
		return "tracing"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SymbolLookup names the symbol containing addr, as x86asm.SymLookup.
type SymbolLookup func(addr uint64) (name string, base uint64)

// Driver runs the window protocol against one tracee. All methods must be
// called from the thread that started the tracee.
type Driver struct {
	log    log.Logger
	t      Tracee
	dec    decode.Decomposer
	strict bool
	max    int

	// Symbols is called once, on the first leak, to name the diverging instruction.
	Symbols func() (SymbolLookup, error)

	state    State
	baseline *trace.Record
	current  *trace.Record
	steps    uint64

	regs  regs.Snapshot
	code  [amd64.MaxInstructionLength]byte
	addrs []uint64

	report Report
}

func NewDriver(lg log.Logger, t Tracee, cfg *Config) *Driver {
	dec := cfg.Decoder
	if dec == nil {
		dec = decode.NewX86()
	}
	return &Driver{
		log:     lg,
		t:       t,
		dec:     dec,
		strict:  cfg.Strict,
		max:     cfg.MaxWindows,
		state:   StateInit,
		current: &trace.Record{},
	}
}

func (d *Driver) State() State {
	return d.state
}

func (d *Driver) Report() *Report {
	return &d.report
}

// Loop waits for tracee events and handles them until the session ends. On
// a fatal fault the tracee is killed before the error is returned.
func (d *Driver) Loop() (*Report, error) {
	for d.state != StateDone {
		ws, err := d.t.Wait()
		if errors.Is(err, ptrace.ErrUnexpectedPid) {
			return d.abort(fmt.Errorf("%w: %w", ErrProtocol, err))
		}
		if err != nil {
			return d.abort(osFault("wait", err))
		}
		if err := d.Handle(ws); err != nil {
			return d.abort(err)
		}
	}
	return &d.report, nil
}

func (d *Driver) abort(err error) (*Report, error) {
	d.state = StateDone
	if kerr := d.t.Kill(); kerr != nil {
		d.log.Warn("Failed to kill child", "pid", d.t.Pid(), "err", kerr)
	}
	d.baseline = nil
	return &d.report, err
}

// Handle advances the state machine by one wait status and issues the
// request that resumes the tracee.
func (d *Driver) Handle(ws ptrace.WaitStatus) error {
	switch {
	case ws.Exited():
		return d.exited(ws)
	case ws.Signaled():
		return fault(ErrProtocol, "child %s in state %s", ws, d.state)
	case !ws.Stopped():
		return fault(ErrProtocol, "unexpected wait status %#x in state %s", uint32(ws), d.state)
	}
	sig := ws.StopSignal()
	switch d.state {
	case StateInit:
		if sig != ptrace.SIGSTOP {
			return fault(ErrProtocol, "first stop was %s, want %s", sig, ptrace.SIGSTOP)
		}
		if err := d.t.SetOptions(ptrace.OptExitKill); err != nil {
			return osFault("set options", err)
		}
		d.log.Debug("Child attached", "pid", d.t.Pid())
		return d.resume(StateIdle)
	case StateIdle:
		if sig != ptrace.SIGUSR1 {
			return fault(ErrProtocol, "%s outside of a window", sig)
		}
		d.current.Reset()
		d.steps = 0
		if err := d.t.SingleStep(); err != nil {
			return osFault("single step", err)
		}
		d.state = StateTracing
		return nil
	case StateTracing:
		switch sig {
		case ptrace.SIGTRAP:
			return d.trap()
		case ptrace.SIGSTOP:
			return d.seal()
		}
		return fault(ErrProtocol, "%s inside window %d", sig, d.report.Windows+1)
	}
	return fault(ErrProtocol, "%s in state %s", sig, d.state)
}

func (d *Driver) resume(next State) error {
	if err := d.t.Cont(); err != nil {
		return osFault("continue", err)
	}
	d.state = next
	return nil
}

func (d *Driver) exited(ws ptrace.WaitStatus) error {
	d.report.Exited = true
	d.report.ExitStatus = ws.ExitStatus()
	switch d.state {
	case StateInit:
		d.state = StateDone
		return fault(ErrSpawn, "child %s before its first stop", ws)
	case StateTracing:
		d.log.Warn("Child exited inside a window, discarding incomplete trace",
			"window", d.report.Windows+1, "instructions", d.steps)
	}
	d.state = StateDone
	d.log.Info("Child exited", "status", d.report.ExitStatus,
		"windows", d.report.Windows, "instructions", d.report.Instructions)
	return nil
}

func (d *Driver) trap() error {
	d.steps++
	d.report.Instructions++
	if err := d.t.GetRegs(&d.regs); err != nil {
		return osFault("get registers", err)
	}
	ip := d.regs.PC()
	insts, res, err := d.decodeAt(ip)
	if err != nil {
		return err
	}
	if !res.Acceptable() || len(insts) != 1 {
		return fault(ErrDecode, "decoding at %#x returned %s with %d instructions", ip, res, len(insts))
	}
	if res == decode.ResultMemoryErr {
		d.log.Debug("Decoder window clipped", "ip", trace.HexU64(ip), "size", insts[0].Size)
	}
	d.addrs = access.Addresses(d.addrs[:0], &insts[0], &d.regs, d.strict)
	d.current.Step(ip, d.addrs)
	if err := d.t.SingleStep(); err != nil {
		return osFault("single step", err)
	}
	return nil
}

func (d *Driver) decodeAt(ip uint64) ([]decode.Inst, decode.Result, error) {
	n, err := d.t.PeekText(ip, d.code[:])
	if n == 0 && err != nil {
		return nil, decode.ResultNone, osFault(fmt.Sprintf("read text at %#x", ip), err)
	}
	ci := &decode.CodeInfo{CodeOffset: ip, Code: d.code[:n], DecodeType: decode.Mode64}
	insts, res := d.dec.Decompose(ci, 1)
	return insts, res, nil
}

func (d *Driver) seal() error {
	d.report.Windows++
	window := d.report.Windows
	d.log.Info("Run completed", "window", window, "instructions", d.steps,
		"accesses", len(d.current.Mem), "digest", d.current.Digest())

	if d.baseline != nil {
		if div := trace.Compare(d.baseline, d.current); div != nil {
			return d.leak(window, div)
		}
		d.log.Info("Run Completed with same instruction list", "window", window)
		d.log.Info("Run Completed with same memory access list", "window", window)
	}
	if d.baseline == nil {
		d.baseline = &trace.Record{}
	}
	d.baseline, d.current = d.current, d.baseline
	d.current.Reset()
	d.steps = 0

	if d.max > 0 && window >= d.max {
		d.log.Info("Window limit reached", "windows", window)
		d.report.Limited = true
		d.state = StateDone
		if err := d.t.Kill(); err != nil {
			return osFault("kill", err)
		}
		return nil
	}
	return d.resume(StateIdle)
}

func (d *Driver) leak(window int, div *trace.Divergence) error {
	l := &Leak{
		Window:     window,
		Divergence: div,
		Baseline:   d.baseline.Clone(),
		Current:    d.current.Clone(),
	}
	ip := div.IP
	if ip == 0 && div.Channel == trace.ChannelIP && div.HasBaseline {
		ip = div.Baseline
	}
	if ip != 0 {
		l.Insn, l.Symbol = d.describe(ip)
	}
	msg := "Instructions differ"
	if div.Channel == trace.ChannelMem {
		msg = "Memory accesses differ"
	}
	d.log.Error(msg, "window", window, "index", div.Index, "step", div.Step,
		"ip", trace.HexU64(ip), "insn", l.Insn, "symbol", l.Symbol,
		"baseline", d.baseline.Digest(), "current", d.current.Digest())

	d.report.Leak = l
	d.state = StateDone
	if err := d.t.Kill(); err != nil {
		return osFault("kill", err)
	}
	return nil
}

// describe disassembles the instruction at ip in the stopped child.
func (d *Driver) describe(ip uint64) (insn, symbol string) {
	var lookup SymbolLookup
	if d.Symbols != nil {
		var err error
		if lookup, err = d.Symbols(); err != nil {
			d.log.Warn("Failed to load symbols", "err", err)
		}
	}
	if lookup != nil {
		if name, base := lookup(ip); name != "" {
			symbol = fmt.Sprintf("%s+%#x", name, ip-base)
		}
	}
	n, err := d.t.PeekText(ip, d.code[:])
	if n == 0 {
		d.log.Warn("Failed to read diverging instruction", "ip", trace.HexU64(ip), "err", err)
		return "", symbol
	}
	ci := &decode.CodeInfo{CodeOffset: ip, Code: d.code[:n], DecodeType: decode.Mode64}
	insts, res := d.dec.Decompose(ci, 1)
	if !res.Acceptable() || len(insts) == 0 {
		return hex.EncodeToString(d.code[:n]), symbol
	}
	if x, ok := d.dec.(*decode.X86); ok && lookup != nil && x.Lookup == nil {
		x.Lookup = lookup
	}
	return d.dec.Format(ci, &insts[0]).String(), symbol
}
