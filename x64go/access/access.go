// Package access computes the effective addresses touched by a decoded instruction.
package access

import (
	"github.com/sidestep-ct/sidestep/x64go/amd64"
	"github.com/sidestep-ct/sidestep/x64go/decode"
	"github.com/sidestep-ct/sidestep/x64go/regs"
)

// Addresses appends the effective addresses of the memory operands of inst,
// in operand order, to dst. r must describe the machine state immediately
// before inst executes. Arithmetic wraps modulo 2^64.
//
// In strict mode FS/GS segment bases are applied, absolute displacement
// operands are recorded and the implicit stack slot of PUSH/CALL/POP/RET is
// appended after the explicit operands.
func Addresses(dst []uint64, inst *decode.Inst, r *regs.Snapshot, strict bool) []uint64 {
	for i := range inst.Ops {
		op := &inst.Ops[i]
		if op.Type == decode.OperandNone {
			break
		}
		var addr uint64
		switch op.Type {
		case decode.OperandSMem:
			addr = r.Value(op.Index)
			if inst.DispSize != 0 {
				addr += inst.Disp
			}
		case decode.OperandMem:
			var base uint64
			if inst.Base != regs.None {
				base = r.Value(inst.Base)
			}
			scaled := r.Value(op.Index) * uint64(inst.Scale)
			if inst.DispSize == 0 {
				addr = base + scaled
			} else {
				addr = base + inst.Disp + scaled
			}
		case decode.OperandDisp:
			if !strict {
				continue
			}
			addr = inst.Disp
		default:
			continue
		}
		if strict {
			addr += r.SegmentBase(inst.Segment)
		}
		dst = append(dst, addr)
	}
	if strict {
		switch {
		case inst.Flags&decode.FlagStackPush != 0:
			dst = append(dst, r.SP()-amd64.StackSlot)
		case inst.Flags&decode.FlagStackPop != 0:
			dst = append(dst, r.SP())
		}
	}
	return dst
}
