package decode

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/sidestep-ct/sidestep/x64go/regs"
)

var x86Regs = map[x86asm.Reg]regs.ID{
	x86asm.RAX: regs.RAX, x86asm.RCX: regs.RCX, x86asm.RDX: regs.RDX, x86asm.RBX: regs.RBX,
	x86asm.RSP: regs.RSP, x86asm.RBP: regs.RBP, x86asm.RSI: regs.RSI, x86asm.RDI: regs.RDI,
	x86asm.R8: regs.R8, x86asm.R9: regs.R9, x86asm.R10: regs.R10, x86asm.R11: regs.R11,
	x86asm.R12: regs.R12, x86asm.R13: regs.R13, x86asm.R14: regs.R14, x86asm.R15: regs.R15,

	x86asm.EAX: regs.EAX, x86asm.ECX: regs.ECX, x86asm.EDX: regs.EDX, x86asm.EBX: regs.EBX,
	x86asm.ESP: regs.ESP, x86asm.EBP: regs.EBP, x86asm.ESI: regs.ESI, x86asm.EDI: regs.EDI,
	x86asm.R8L: regs.R8D, x86asm.R9L: regs.R9D, x86asm.R10L: regs.R10D, x86asm.R11L: regs.R11D,
	x86asm.R12L: regs.R12D, x86asm.R13L: regs.R13D, x86asm.R14L: regs.R14D, x86asm.R15L: regs.R15D,

	x86asm.AX: regs.AX, x86asm.CX: regs.CX, x86asm.DX: regs.DX, x86asm.BX: regs.BX,
	x86asm.SP: regs.SP, x86asm.BP: regs.BP, x86asm.SI: regs.SI, x86asm.DI: regs.DI,
	x86asm.R8W: regs.R8W, x86asm.R9W: regs.R9W, x86asm.R10W: regs.R10W, x86asm.R11W: regs.R11W,
	x86asm.R12W: regs.R12W, x86asm.R13W: regs.R13W, x86asm.R14W: regs.R14W, x86asm.R15W: regs.R15W,

	x86asm.AL: regs.AL, x86asm.CL: regs.CL, x86asm.DL: regs.DL, x86asm.BL: regs.BL,
	x86asm.SPB: regs.SPL, x86asm.BPB: regs.BPL, x86asm.SIB: regs.SIL, x86asm.DIB: regs.DIL,
	x86asm.R8B: regs.R8B, x86asm.R9B: regs.R9B, x86asm.R10B: regs.R10B, x86asm.R11B: regs.R11B,
	x86asm.R12B: regs.R12B, x86asm.R13B: regs.R13B, x86asm.R14B: regs.R14B, x86asm.R15B: regs.R15B,
	x86asm.AH: regs.AH, x86asm.CH: regs.CH, x86asm.DH: regs.DH, x86asm.BH: regs.BH,

	x86asm.RIP: regs.RIP, x86asm.EIP: regs.EIP,

	x86asm.ES: regs.ES, x86asm.CS: regs.CS, x86asm.SS: regs.SS,
	x86asm.DS: regs.DS, x86asm.FS: regs.FS, x86asm.GS: regs.GS,
}

func regID(r x86asm.Reg) regs.ID {
	if r == 0 {
		return regs.None
	}
	if id, ok := x86Regs[r]; ok {
		return id
	}
	return regs.Unsupported
}
