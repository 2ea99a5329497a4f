package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/trace"
	"github.com/sidestep-ct/sidestep/x64go/tracer"
)

func testApp(out, errOut *bytes.Buffer) *cli.App {
	app := cli.NewApp()
	app.Name = "sidestep"
	app.Writer = out
	app.ErrWriter = errOut
	app.Commands = []*cli.Command{RunCommand, DemoCommand, DiffCommand, DecodeCommand}
	return app
}

func withMemFs(t *testing.T) afero.Fs {
	prev := Fs
	Fs = afero.NewMemMapFs()
	t.Cleanup(func() { Fs = prev })
	return Fs
}

func withTraceFn(t *testing.T, fn func(ctx context.Context, l log.Logger, cfg *tracer.Config) (*tracer.Report, error)) {
	prev := traceFn
	traceFn = fn
	t.Cleanup(func() { traceFn = prev })
}

func rec(ips ...uint64) *trace.Record {
	r := &trace.Record{}
	for _, ip := range ips {
		r.Step(ip, []uint64{ip + 0x100})
	}
	return r
}

func TestRunPassesConfig(t *testing.T) {
	var got *tracer.Config
	withTraceFn(t, func(ctx context.Context, l log.Logger, cfg *tracer.Config) (*tracer.Report, error) {
		got = cfg
		_, _ = cfg.Stdout.Write([]byte("hello from tracee\n"))
		return &tracer.Report{Windows: 2, Instructions: 10, Exited: true}, nil
	})
	var out, errOut bytes.Buffer
	err := testApp(&out, &errOut).Run([]string{"sidestep", "run", "--strict", "--max-windows", "3", "--", "./prog", "-v", "x"})
	require.NoError(t, err)
	require.Equal(t, "./prog", got.Path)
	require.Equal(t, []string{"-v", "x"}, got.Args)
	require.True(t, got.Strict)
	require.False(t, got.Symbolize)
	require.Equal(t, 3, got.MaxWindows)
	require.Contains(t, errOut.String(), "hello from tracee")
	require.Contains(t, errOut.String(), "Trace finished")
}

func TestRunMissingProgram(t *testing.T) {
	var out, errOut bytes.Buffer
	err := testApp(&out, &errOut).Run([]string{"sidestep", "run"})
	require.ErrorContains(t, err, "missing tracee program")
}

func TestRunLeakDumps(t *testing.T) {
	fs := withMemFs(t)
	leak := &tracer.Leak{
		Window:     4,
		Divergence: trace.Compare(rec(1, 2, 3), rec(1, 2, 4)),
		Baseline:   rec(1, 2, 3),
		Current:    rec(1, 2, 4),
	}
	withTraceFn(t, func(ctx context.Context, l log.Logger, cfg *tracer.Config) (*tracer.Report, error) {
		return &tracer.Report{Windows: 4, Leak: leak}, nil
	})
	var out, errOut bytes.Buffer
	err := testApp(&out, &errOut).Run([]string{"sidestep", "run", "--dump-dir", "/dumps", "--dump-fmt", "w%d.json", "--", "prog"})
	require.ErrorIs(t, err, tracer.ErrLeak)
	require.ErrorContains(t, err, "window 4")

	_, base, err := trace.Load(fs, filepath.Join("/dumps", "w3.json"))
	require.NoError(t, err)
	require.Equal(t, leak.Baseline, base)
	_, cur, err := trace.Load(fs, filepath.Join("/dumps", "w4.json"))
	require.NoError(t, err)
	require.Equal(t, leak.Current, cur)

	// The dumps feed the diff command.
	out.Reset()
	err = testApp(&out, &errOut).Run([]string{"sidestep", "diff", "/dumps/w3.json", "/dumps/w4.json"})
	require.ErrorIs(t, err, tracer.ErrLeak)
	require.Contains(t, out.String(), "IP divergence at index 2")
}

func TestDiffEqual(t *testing.T) {
	fs := withMemFs(t)
	require.NoError(t, trace.WriteJSON(fs, "a.json.gz", trace.NewDump(1, rec(1, 2))))
	require.NoError(t, trace.WriteJSON(fs, "b.json", trace.NewDump(2, rec(1, 2))))
	var out, errOut bytes.Buffer
	require.NoError(t, testApp(&out, &errOut).Run([]string{"sidestep", "diff", "a.json.gz", "b.json"}))
	require.Contains(t, out.String(), "traces are equal")
	require.Contains(t, out.String(), rec(1, 2).Digest().Hex())

	err := testApp(&out, &errOut).Run([]string{"sidestep", "diff", "a.json.gz"})
	require.ErrorContains(t, err, "expected two trace dumps")
	err = testApp(&out, &errOut).Run([]string{"sidestep", "diff", "a.json.gz", "missing.json"})
	require.ErrorContains(t, err, "invalid current trace")
}

func TestDecode(t *testing.T) {
	var out, errOut bytes.Buffer
	err := testApp(&out, &errOut).Run([]string{"sidestep", "decode", "--addr", "0x401000", "42 8b 44 93 20"})
	require.NoError(t, err)
	s := out.String()
	require.Contains(t, s, "0000000000401000")
	require.Contains(t, s, "428b449320")
	require.Contains(t, s, "op1 mem size=32 index=r10 base=rbx scale=4 disp=0x20 disp_size=1")

	err = testApp(&out, &errOut).Run([]string{"sidestep", "decode", "zz"})
	require.ErrorContains(t, err, "invalid instruction bytes")
	err = testApp(&out, &errOut).Run([]string{"sidestep", "decode", "--addr", "xyz", "90"})
	require.ErrorContains(t, err, "invalid address")
}

func TestDemoList(t *testing.T) {
	var out, errOut bytes.Buffer
	require.NoError(t, testApp(&out, &errOut).Run([]string{"sidestep", "demo", "--list"}))
	require.Contains(t, out.String(), "naivecompare")
	require.Contains(t, out.String(), "leak (IP)")

	err := testApp(&out, &errOut).Run([]string{"sidestep", "demo", "nope"})
	require.ErrorContains(t, err, "unknown scenario")
}

func TestDemoOutcome(t *testing.T) {
	withTraceFn(t, func(ctx context.Context, l log.Logger, cfg *tracer.Config) (*tracer.Report, error) {
		return &tracer.Report{Windows: 2, Leak: &tracer.Leak{
			Window:     2,
			Divergence: &trace.Divergence{Channel: trace.ChannelMem, Step: -1},
		}}, nil
	})
	var out, errOut bytes.Buffer
	err := testApp(&out, &errOut).Run([]string{"sidestep", "demo", "rc4"})
	require.ErrorIs(t, err, tracer.ErrLeak)
	require.Contains(t, out.String(), "scenario rc4: leak (MEM) (expected leak (MEM))")
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, log.LevelDebug, lvl)
	_, err = ParseLevel("loud")
	require.Error(t, err)
}

func TestLoggingWriter(t *testing.T) {
	var buf bytes.Buffer
	lw := &LoggingWriter{Name: "out", Log: Logger(&buf, log.LevelInfo)}
	n, err := lw.Write([]byte("plain text\n"))
	require.NoError(t, err)
	require.Equal(t, 11, n)
	_, _ = lw.Write([]byte{0x00, 0xff})
	require.Contains(t, buf.String(), "plain text")
	require.Contains(t, buf.String(), "data=0x00ff")
}
