package tracer

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/sidestep-ct/sidestep/x64go/decode"
	"github.com/sidestep-ct/sidestep/x64go/ptrace"
	"github.com/sidestep-ct/sidestep/x64go/regs"
	"github.com/sidestep-ct/sidestep/x64go/trace"
)

func stopped(sig ptrace.Signal) ptrace.WaitStatus {
	return ptrace.WaitStatus(uint32(sig)<<8 | 0x7f)
}

func exited(code int) ptrace.WaitStatus {
	return ptrace.WaitStatus(uint32(code) << 8)
}

func signaled(sig ptrace.Signal) ptrace.WaitStatus {
	return ptrace.WaitStatus(uint32(sig))
}

// mov rax, qword ptr [rbx+rcx*4]
var movIndexed = []byte{0x48, 0x8b, 0x04, 0x8b}

// nop
var nop = []byte{0x90}

type event struct {
	ws   ptrace.WaitStatus
	regs regs.Snapshot
	code []byte
}

// scriptedTracee replays wait statuses and records the driver's requests.
type scriptedTracee struct {
	events []event
	next   int
	cur    event
	calls  []string

	// text maps addresses to the instruction bytes readable there.
	text map[uint64][]byte

	killed  bool
	closed  bool
	waitErr error
	peekErr error
}

func (s *scriptedTracee) Pid() int { return 4242 }

func (s *scriptedTracee) Wait() (ptrace.WaitStatus, error) {
	if s.waitErr != nil {
		return 0, s.waitErr
	}
	if s.next >= len(s.events) {
		return 0, errors.New("script exhausted")
	}
	s.cur = s.events[s.next]
	s.next++
	return s.cur.ws, nil
}

func (s *scriptedTracee) Cont() error {
	s.calls = append(s.calls, "cont")
	return nil
}

func (s *scriptedTracee) SingleStep() error {
	s.calls = append(s.calls, "step")
	return nil
}

func (s *scriptedTracee) SetOptions(options int) error {
	s.calls = append(s.calls, "options")
	return nil
}

func (s *scriptedTracee) GetRegs(out *regs.Snapshot) error {
	*out = s.cur.regs
	return nil
}

func (s *scriptedTracee) PeekText(addr uint64, out []byte) (int, error) {
	if s.peekErr != nil {
		return 0, s.peekErr
	}
	// Instructions sit at the end of a page: only their own bytes are readable.
	code, ok := s.text[addr]
	if !ok {
		return 0, errors.New("input/output error")
	}
	return copy(out, code), nil
}

func (s *scriptedTracee) Kill() error {
	s.calls = append(s.calls, "kill")
	s.killed = true
	return nil
}

func (s *scriptedTracee) Close() error {
	s.closed = true
	return nil
}

func trap(ip uint64, code []byte, r regs.Snapshot) event {
	r.Rip = ip
	return event{ws: stopped(ptrace.SIGTRAP), regs: r, code: code}
}

// window scripts one USR1 ... STOP window with the given traps.
func window(traps ...event) []event {
	out := []event{{ws: stopped(ptrace.SIGUSR1)}}
	out = append(out, traps...)
	return append(out, event{ws: stopped(ptrace.SIGSTOP)})
}

func script(parts ...[]event) []event {
	out := []event{{ws: stopped(ptrace.SIGSTOP)}}
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func testLogger(buf *bytes.Buffer) log.Logger {
	return log.NewLogger(log.LogfmtHandlerWithLevel(buf, log.LevelDebug))
}

func newScripted(events []event) *scriptedTracee {
	s := &scriptedTracee{events: events, text: make(map[uint64][]byte)}
	for _, e := range events {
		if e.code != nil {
			s.text[e.regs.Rip] = e.code
		}
	}
	return s
}

func runScript(t *testing.T, cfg *Config, events []event) (*scriptedTracee, *Report, string, error) {
	t.Helper()
	var buf bytes.Buffer
	tr := newScripted(events)
	d := NewDriver(testLogger(&buf), tr, cfg)
	report, err := d.Loop()
	require.Equal(t, StateDone, d.State())
	return tr, report, buf.String(), err
}

func indexedWindow(rcx uint64) []event {
	return window(
		trap(0x1000, nop, regs.Snapshot{}),
		trap(0x1001, movIndexed, regs.Snapshot{Rbx: 0x5000, Rcx: rcx}),
		trap(0x1005, nop, regs.Snapshot{}),
	)
}

func TestDriverEqualWindows(t *testing.T) {
	tr, report, logs, err := runScript(t, &Config{}, script(
		indexedWindow(2),
		indexedWindow(2),
		indexedWindow(2),
		[]event{{ws: exited(0)}},
	))
	require.NoError(t, err)
	require.Nil(t, report.Leak)
	require.Equal(t, 3, report.Windows)
	require.Equal(t, uint64(9), report.Instructions)
	require.True(t, report.Exited)
	require.Equal(t, 0, report.ExitStatus)
	require.False(t, tr.killed)

	require.Equal(t, "options", tr.calls[0])
	require.Equal(t, "cont", tr.calls[1])
	require.Equal(t, []string{"step", "step", "step", "step", "cont"}, tr.calls[2:7])
	require.Equal(t, 2, bytes.Count([]byte(logs), []byte("Run Completed with same instruction list")))
	require.Equal(t, 2, bytes.Count([]byte(logs), []byte("Run Completed with same memory access list")))
	require.Contains(t, logs, "Child exited")
}

func TestDriverMemoryLeak(t *testing.T) {
	tr, report, logs, err := runScript(t, &Config{}, script(
		indexedWindow(2),
		indexedWindow(7),
	))
	require.NoError(t, err)
	require.True(t, tr.killed)
	require.NotNil(t, report.Leak)
	require.Equal(t, 2, report.Leak.Window)

	div := report.Leak.Divergence
	require.Equal(t, trace.ChannelMem, div.Channel)
	require.Equal(t, 0, div.Index)
	require.Equal(t, uint64(0x5008), div.Baseline)
	require.Equal(t, uint64(0x501c), div.Current)
	require.Equal(t, 1, div.Step)
	require.Equal(t, uint64(0x1001), div.IP)
	require.Equal(t, []uint64{0x5008}, report.Leak.Baseline.Mem)
	require.Equal(t, []uint64{0x501c}, report.Leak.Current.Mem)
	require.Contains(t, report.Leak.Insn, "mov")
	require.Contains(t, logs, "Memory accesses differ")
	require.NotContains(t, logs, "Instructions differ")
}

func TestDriverInstructionLeak(t *testing.T) {
	short := window(
		trap(0x1000, nop, regs.Snapshot{}),
		trap(0x2000, nop, regs.Snapshot{}),
	)
	tr, report, logs, err := runScript(t, &Config{}, script(indexedWindow(2), short))
	require.NoError(t, err)
	require.True(t, tr.killed)
	require.NotNil(t, report.Leak)
	require.Equal(t, trace.ChannelIP, report.Leak.Divergence.Channel)
	require.Equal(t, 1, report.Leak.Divergence.Index)
	require.Equal(t, uint64(0x2000), report.Leak.Divergence.IP)
	require.Equal(t, "nop", report.Leak.Insn)
	require.Contains(t, logs, "Instructions differ")
}

func TestDriverSymbolizesLeak(t *testing.T) {
	var buf bytes.Buffer
	tr := newScripted(script(indexedWindow(2), indexedWindow(3)))
	d := NewDriver(testLogger(&buf), tr, &Config{})
	d.Symbols = func() (SymbolLookup, error) {
		return func(addr uint64) (string, uint64) { return "main.secret", 0x1000 }, nil
	}
	report, err := d.Loop()
	require.NoError(t, err)
	require.Equal(t, "main.secret+0x1", report.Leak.Symbol)
}

func TestDriverStrict(t *testing.T) {
	// push rbp
	push := []byte{0x55}
	w := func(rsp uint64) []event {
		return window(trap(0x1000, push, regs.Snapshot{Rsp: rsp}))
	}
	_, report, _, err := runScript(t, &Config{}, script(w(0x8000), w(0x9000), []event{{ws: exited(0)}}))
	require.NoError(t, err)
	require.Nil(t, report.Leak, "stack slots are not recorded by default")

	_, report, _, err = runScript(t, &Config{Strict: true}, script(w(0x8000), w(0x9000)))
	require.NoError(t, err)
	require.NotNil(t, report.Leak)
	require.Equal(t, uint64(0x7ff8), report.Leak.Divergence.Baseline)
	require.Equal(t, uint64(0x8ff8), report.Leak.Divergence.Current)
}

func TestDriverMaxWindows(t *testing.T) {
	tr, report, logs, err := runScript(t, &Config{MaxWindows: 2}, script(indexedWindow(2), indexedWindow(2)))
	require.NoError(t, err)
	require.True(t, report.Limited)
	require.True(t, tr.killed)
	require.Equal(t, 2, report.Windows)
	require.Contains(t, logs, "Window limit reached")
}

func TestDriverExitInsideWindow(t *testing.T) {
	events := script(indexedWindow(2), []event{
		{ws: stopped(ptrace.SIGUSR1)},
		trap(0x1000, nop, regs.Snapshot{}),
		{ws: exited(3)},
	})
	tr, report, logs, err := runScript(t, &Config{}, events)
	require.NoError(t, err)
	require.Nil(t, report.Leak)
	require.Equal(t, 1, report.Windows)
	require.Equal(t, uint64(4), report.Instructions)
	require.Equal(t, 3, report.ExitStatus)
	require.False(t, tr.killed)
	require.Contains(t, logs, "discarding incomplete trace")
}

func TestDriverFaults(t *testing.T) {
	cases := []struct {
		name   string
		events []event
		want   error
	}{
		{"first stop is not SIGSTOP", []event{{ws: stopped(ptrace.SIGTRAP)}}, ErrProtocol},
		{"exit before first stop", []event{{ws: exited(3)}}, ErrSpawn},
		{"signal inside window", script([]event{
			{ws: stopped(ptrace.SIGUSR1)},
			trap(0x1000, nop, regs.Snapshot{}),
			{ws: stopped(ptrace.SIGSEGV)},
		}), ErrProtocol},
		{"stop outside window", script([]event{{ws: stopped(ptrace.SIGSTOP)}}), ErrProtocol},
		{"trap outside window", script([]event{{ws: stopped(ptrace.SIGTRAP)}}), ErrProtocol},
		{"usr1 inside window", script([]event{
			{ws: stopped(ptrace.SIGUSR1)},
			{ws: stopped(ptrace.SIGUSR1)},
		}), ErrProtocol},
		{"child killed", script([]event{{ws: signaled(ptrace.SIGKILL)}}), ErrProtocol},
		{"undecodable instruction", script(window(trap(0x1000, []byte{0x48, 0x8b}, regs.Snapshot{}))), ErrDecode},
		{"lone prefix at end of text", script(window(trap(0x1000, []byte{0x66}, regs.Snapshot{}))), ErrDecode},
		{"empty decode window", script(window(trap(0x1000, nil, regs.Snapshot{}))), ErrTracer},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			tr, _, _, err := runScript(t, &Config{}, tc.events)
			require.ErrorIs(t, err, tc.want)
			require.True(t, tr.killed)
		})
	}
}

func TestDriverWaitFailure(t *testing.T) {
	var buf bytes.Buffer
	tr := newScripted(nil)
	tr.waitErr = errors.New("ECHILD")
	d := NewDriver(testLogger(&buf), tr, &Config{})
	_, err := d.Loop()
	require.ErrorIs(t, err, ErrTracer)
	require.ErrorContains(t, err, "ECHILD")
}

type filteringDecoder struct {
	decode.X86
}

func (f *filteringDecoder) Decompose(ci *decode.CodeInfo, max int) ([]decode.Inst, decode.Result) {
	ci.Features |= decode.FeatureFlowControlOnly
	return f.X86.Decompose(ci, max)
}

func TestDriverRejectsFilteredDecode(t *testing.T) {
	_, _, _, err := runScript(t, &Config{Decoder: &filteringDecoder{}}, script(window(trap(0x1000, nop, regs.Snapshot{}))))
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorContains(t, err, "filtered")
}

func TestDriverWrongPid(t *testing.T) {
	var buf bytes.Buffer
	tr := newScripted(nil)
	tr.waitErr = fmt.Errorf("%w: waitpid(4242) returned 4243", ptrace.ErrUnexpectedPid)
	d := NewDriver(testLogger(&buf), tr, &Config{})
	_, err := d.Loop()
	require.ErrorIs(t, err, ErrProtocol)
	require.ErrorIs(t, err, ptrace.ErrUnexpectedPid)
	require.NotErrorIs(t, err, ErrTracer)
	require.True(t, tr.killed)
}
