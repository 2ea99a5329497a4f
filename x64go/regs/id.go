package regs

import "fmt"

// ID names an architectural register at a particular operand width.
type ID uint8

const (
	None ID = iota

	RAX
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	EAX
	ECX
	EDX
	EBX
	ESP
	EBP
	ESI
	EDI
	R8D
	R9D
	R10D
	R11D
	R12D
	R13D
	R14D
	R15D

	AX
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	R8W
	R9W
	R10W
	R11W
	R12W
	R13W
	R14W
	R15W

	AL
	CL
	DL
	BL
	SPL
	BPL
	SIL
	DIL
	R8B
	R9B
	R10B
	R11B
	R12B
	R13B
	R14B
	R15B

	AH
	CH
	DH
	BH

	RIP
	EIP

	ES
	CS
	SS
	DS
	FS
	GS

	// Unsupported stands for registers outside the general-purpose file
	// (x87, MMX, SSE, control, debug). They never take part in addressing.
	Unsupported
)

var names = [...]string{
	None: "none",
	RAX:  "rax", RCX: "rcx", RDX: "rdx", RBX: "rbx", RSP: "rsp", RBP: "rbp", RSI: "rsi", RDI: "rdi",
	R8: "r8", R9: "r9", R10: "r10", R11: "r11", R12: "r12", R13: "r13", R14: "r14", R15: "r15",
	EAX: "eax", ECX: "ecx", EDX: "edx", EBX: "ebx", ESP: "esp", EBP: "ebp", ESI: "esi", EDI: "edi",
	R8D: "r8d", R9D: "r9d", R10D: "r10d", R11D: "r11d", R12D: "r12d", R13D: "r13d", R14D: "r14d", R15D: "r15d",
	AX: "ax", CX: "cx", DX: "dx", BX: "bx", SP: "sp", BP: "bp", SI: "si", DI: "di",
	R8W: "r8w", R9W: "r9w", R10W: "r10w", R11W: "r11w", R12W: "r12w", R13W: "r13w", R14W: "r14w", R15W: "r15w",
	AL: "al", CL: "cl", DL: "dl", BL: "bl", SPL: "spl", BPL: "bpl", SIL: "sil", DIL: "dil",
	R8B: "r8b", R9B: "r9b", R10B: "r10b", R11B: "r11b", R12B: "r12b", R13B: "r13b", R14B: "r14b", R15B: "r15b",
	AH: "ah", CH: "ch", DH: "dh", BH: "bh",
	RIP: "rip", EIP: "eip",
	ES: "es", CS: "cs", SS: "ss", DS: "ds", FS: "fs", GS: "gs",
	Unsupported: "unsupported",
}

func (id ID) String() string {
	if int(id) < len(names) {
		return names[id]
	}
	return fmt.Sprintf("reg(%d)", uint8(id))
}

// Bits is the operand width of the register view, 0 for None and Unsupported.
func (id ID) Bits() uint16 {
	switch {
	case id >= RAX && id <= R15, id == RIP:
		return 64
	case id >= EAX && id <= R15D, id == EIP:
		return 32
	case id >= AX && id <= R15W, id >= ES && id <= GS:
		return 16
	case id >= AL && id <= BH:
		return 8
	}
	return 0
}

// Family returns the 0..15 encoding index of the general-purpose register
// backing id, or -1 when id is not a view of one.
func (id ID) Family() int {
	switch {
	case id >= RAX && id <= R15:
		return int(id - RAX)
	case id >= EAX && id <= R15D:
		return int(id - EAX)
	case id >= AX && id <= R15W:
		return int(id - AX)
	case id >= AL && id <= R15B:
		return int(id - AL)
	case id >= AH && id <= BH:
		return int(id - AH)
	}
	return -1
}
