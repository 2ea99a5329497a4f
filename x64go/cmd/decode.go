package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/sidestep-ct/sidestep/x64go/decode"
	"github.com/sidestep-ct/sidestep/x64go/trace"
)

func parseHexU64(s string) (uint64, error) {
	return strconv.ParseUint(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"), 16, 64)
}

func Decode(ctx *cli.Context) error {
	addr, err := parseHexU64(ctx.String(AddrFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", ctx.String(AddrFlag.Name), err)
	}
	in := strings.Join(ctx.Args().Slice(), "")
	in = strings.ReplaceAll(strings.TrimPrefix(in, "0x"), " ", "")
	code, err := hexutil.Decode("0x" + in)
	if err != nil {
		return fmt.Errorf("invalid instruction bytes: %w", err)
	}
	d := decode.NewX86()
	ci := &decode.CodeInfo{CodeOffset: addr, Code: code, DecodeType: decode.Mode64}
	insts, res := d.Decompose(ci, len(code))
	w := ctx.App.Writer
	for i := range insts {
		inst := &insts[i]
		text := d.Format(ci, inst)
		_, _ = fmt.Fprintf(w, "%s  %-30s %s\n", trace.HexU64(inst.Addr), text.Hex, text)
		for j, op := range inst.Ops {
			if op.Type == decode.OperandNone {
				break
			}
			if !op.Type.Memory() {
				continue
			}
			_, _ = fmt.Fprintf(w, "    op%d %s size=%d index=%s base=%s scale=%d disp=%#x disp_size=%d segment=%s\n",
				j, op.Type, op.Size, op.Index, inst.Base, inst.Scale, inst.Disp, inst.DispSize, inst.Segment)
		}
	}
	_, _ = fmt.Fprintf(w, "result: %s, next: %s\n", res, trace.HexU64(ci.NextOffset))
	if !res.Acceptable() {
		return fmt.Errorf("decoding failed: %s", res)
	}
	return nil
}

var DecodeCommand = &cli.Command{
	Name:        "decode",
	Usage:       "Decode x86-64 instruction bytes.",
	Description: "Decode hex instruction bytes and show the memory operands that address tracing would evaluate.",
	ArgsUsage:   "<hex bytes>",
	Action:      Decode,
	Flags: []cli.Flag{
		AddrFlag,
	},
}
