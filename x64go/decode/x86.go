package decode

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/sidestep-ct/sidestep/x64go/amd64"
	"github.com/sidestep-ct/sidestep/x64go/regs"
)

// Decoder-set bits in Inst.Flags for instructions with an implicit stack slot.
const (
	FlagStackPush uint16 = 1 << (8 + iota)
	FlagStackPop
)

// X86 is a Decomposer backed by golang.org/x/arch/x86/x86asm.
type X86 struct {
	// Lookup names branch targets when formatting. Optional.
	Lookup func(addr uint64) (name string, base uint64)
}

var _ Decomposer = (*X86)(nil)

func NewX86() *X86 {
	return &X86{}
}

func (d *X86) Decompose(ci *CodeInfo, max int) ([]Inst, Result) {
	ci.NextOffset = ci.CodeOffset
	if max <= 0 || len(ci.Code) == 0 {
		return nil, ResultInputErr
	}
	var out []Inst
	off, lastStart := 0, 0
	decoded := 0
	res := ResultSuccess
	for decoded < max && off < len(ci.Code) {
		rest := ci.Code[off:]
		xi, err := x86asm.Decode(rest, ci.DecodeType.Bits())
		if err == nil && xi.Op == 0 {
			// x86asm reports some partial encodings as an empty instruction.
			err = x86asm.ErrUnrecognized
			if len(rest) < amd64.MaxInstructionLength {
				err = x86asm.ErrTruncated
			}
		}
		if errors.Is(err, x86asm.ErrTruncated) {
			res = ResultMemoryErr
			break
		}
		if err != nil {
			if decoded == 0 {
				return nil, ResultInputErr
			}
			break
		}
		inst := convert(&xi, ci.CodeOffset+uint64(off))
		lastStart = off
		off += xi.Len
		decoded++
		if ci.Features&FeatureFlowControlOnly != 0 && inst.Meta == FlowNone {
			continue
		}
		out = append(out, inst)
	}
	ci.NextOffset = ci.CodeOffset + uint64(off)
	if decoded > 0 && len(out) == 0 {
		return nil, ResultFiltered
	}
	if res == ResultSuccess && lastStart+amd64.MaxInstructionLength > len(ci.Code) {
		// The window ended before a maximal instruction could follow the last
		// decoded one, e.g. because the next page is not mapped.
		res = ResultMemoryErr
	}
	return out, res
}

func (d *X86) Format(ci *CodeInfo, inst *Inst) Text {
	if inst.Addr < ci.CodeOffset || inst.Addr-ci.CodeOffset >= uint64(len(ci.Code)) {
		return Text{Mnemonic: "?", Offset: inst.Addr}
	}
	code := ci.Code[inst.Addr-ci.CodeOffset:]
	xi, err := x86asm.Decode(code, ci.DecodeType.Bits())
	if err != nil || xi.Op == 0 {
		return Text{Mnemonic: "?", Offset: inst.Addr}
	}
	var lookup x86asm.SymLookup
	if d.Lookup != nil {
		lookup = d.Lookup
	}
	mnemonic, operands, _ := strings.Cut(x86asm.IntelSyntax(xi, inst.Addr, lookup), " ")
	return Text{
		Mnemonic: mnemonic,
		Operands: operands,
		Hex:      hex.EncodeToString(code[:xi.Len]),
		Size:     xi.Len,
		Offset:   inst.Addr,
	}
}

func convert(xi *x86asm.Inst, addr uint64) Inst {
	inst := Inst{
		Addr:   addr,
		Size:   uint8(xi.Len),
		Opcode: uint16(xi.Op),
		Meta:   flowClass(xi.Op),
	}
	for i, p := range xi.Prefix {
		if p == 0 {
			break
		}
		switch p & 0xff {
		case x86asm.PrefixLOCK:
			inst.Flags |= FlagLock
		case x86asm.PrefixREP:
			inst.Flags |= FlagRep
		case x86asm.PrefixREPN:
			inst.Flags |= FlagRepne
		}
		if p&x86asm.PrefixIgnored != 0 {
			inst.UnusedPrefixesMask |= 1 << uint(i)
		}
	}
	switch xi.Op {
	case x86asm.PUSH, x86asm.CALL:
		inst.Flags |= FlagStackPush
	case x86asm.POP, x86asm.RET:
		inst.Flags |= FlagStackPop
	}

	imms := 0
	for i, arg := range xi.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case x86asm.Reg:
			id := regID(a)
			inst.Ops[i] = Operand{Type: OperandReg, Index: id, Size: id.Bits()}
			inst.useRegister(id)
		case x86asm.Imm:
			if imms == 0 {
				inst.Ops[i] = Operand{Type: OperandImm, Size: uint16(xi.DataSize)}
				inst.Imm = uint64(int64(a))
			} else {
				// ENTER imm16, imm8: both immediates share Imm, low and high half.
				inst.Ops[i-1].Type = OperandImm1
				inst.Ops[i-1].Size = 16
				inst.Ops[i] = Operand{Type: OperandImm2, Size: 8}
				inst.Imm = uint64(uint32(inst.Imm)) | uint64(uint32(a))<<32
			}
			imms++
		case x86asm.Rel:
			inst.Ops[i] = Operand{Type: OperandPC, Size: uint16(xi.PCRel * 8)}
			inst.Imm = uint64(int64(a))
		case x86asm.Mem:
			inst.convertMem(i, a, xi)
		}
	}
	return inst
}

func (inst *Inst) convertMem(i int, m x86asm.Mem, xi *x86asm.Inst) {
	size := uint16(xi.MemBytes * 8)
	inst.Segment = regID(m.Segment)
	disp := m.Disp
	switch {
	case m.Base == 0 && m.Index == 0:
		inst.Ops[i] = Operand{Type: OperandDisp, Index: regs.None, Size: size}
	case m.Base == x86asm.RIP || m.Base == x86asm.EIP:
		// RIP-relative operands are relative to the next instruction; the
		// snapshot RIP is this instruction, so fold the length into disp.
		inst.Ops[i] = Operand{Type: OperandSMem, Index: regID(m.Base), Size: size}
		disp += int64(xi.Len)
		inst.Disp = uint64(disp)
		inst.DispSize = 4
		return
	case m.Index == 0:
		inst.Ops[i] = Operand{Type: OperandSMem, Index: regID(m.Base), Size: size}
		inst.useRegister(regID(m.Base))
	default:
		inst.Ops[i] = Operand{Type: OperandMem, Index: regID(m.Index), Size: size}
		inst.Base = regID(m.Base)
		inst.Scale = m.Scale
		inst.useRegister(inst.Base)
		inst.useRegister(regID(m.Index))
	}
	if disp != 0 {
		inst.Disp = uint64(disp)
		switch {
		case disp >= -128 && disp <= 127:
			inst.DispSize = 1
		case disp >= -1<<31 && disp < 1<<31:
			inst.DispSize = 4
		default:
			inst.DispSize = 8
		}
	}
}

func (inst *Inst) useRegister(id regs.ID) {
	if f := id.Family(); f >= 0 {
		inst.UsedRegistersMask |= 1 << uint(f)
	}
}

func flowClass(op x86asm.Op) uint8 {
	switch op {
	case x86asm.CALL, x86asm.LCALL:
		return FlowCall
	case x86asm.RET, x86asm.LRET, x86asm.IRET, x86asm.IRETD, x86asm.IRETQ:
		return FlowRet
	case x86asm.SYSCALL, x86asm.SYSENTER, x86asm.SYSEXIT, x86asm.SYSRET:
		return FlowSys
	case x86asm.JMP, x86asm.LJMP:
		return FlowUncBranch
	case x86asm.INT:
		return FlowInt
	}
	name := op.String()
	switch {
	case strings.HasPrefix(name, "CMOV"):
		return FlowCMov
	case strings.HasPrefix(name, "J"), strings.HasPrefix(name, "LOOP"):
		return FlowCndBranch
	}
	return FlowNone
}
