// Package decode describes decoded x86-64 instructions in an operand model
// that exposes, per memory operand, the registers and displacement the CPU
// combines into an effective address.
package decode

import "github.com/sidestep-ct/sidestep/x64go/regs"

// OperandType classifies an operand.
type OperandType uint8

const (
	OperandNone OperandType = iota
	// OperandReg: Index is the register.
	OperandReg
	// OperandImm: value in Inst.Imm.
	OperandImm
	// OperandImm1 and OperandImm2 are the two immediates of ENTER-like forms.
	OperandImm1
	OperandImm2
	// OperandDisp: absolute memory reference, Inst.Disp only.
	OperandDisp
	// OperandSMem: simple memory, [Index + Disp].
	OperandSMem
	// OperandMem: indexed memory, [Inst.Base + Index*Inst.Scale + Disp].
	OperandMem
	// OperandPC: relative branch target, offset in Inst.Imm.
	OperandPC
	// OperandPtr: far pointer.
	OperandPtr
)

var operandTypeNames = [...]string{
	OperandNone: "none",
	OperandReg:  "reg",
	OperandImm:  "imm",
	OperandImm1: "imm1",
	OperandImm2: "imm2",
	OperandDisp: "disp",
	OperandSMem: "smem",
	OperandMem:  "mem",
	OperandPC:   "pc",
	OperandPtr:  "ptr",
}

func (t OperandType) String() string {
	if int(t) < len(operandTypeNames) {
		return operandTypeNames[t]
	}
	return "unknown"
}

// Memory reports whether operands of this type reference memory.
func (t OperandType) Memory() bool {
	return t == OperandDisp || t == OperandSMem || t == OperandMem
}

// Operand is one instruction operand. The meaning of Index depends on Type.
type Operand struct {
	Type  OperandType `json:"type"`
	Index regs.ID     `json:"index"`
	Size  uint16      `json:"size"` // bits
}

// Flow control classes, kept in Inst.Meta.
const (
	FlowNone uint8 = iota
	FlowCall
	FlowRet
	FlowSys
	FlowUncBranch
	FlowCndBranch
	FlowInt
	FlowCMov
)

// Inst is one decoded instruction. Opcode, flag masks and prefix masks are
// carried along but not interpreted by address computation.
type Inst struct {
	Imm                uint64     `json:"imm"`
	Disp               uint64     `json:"disp"`
	Addr               uint64     `json:"addr"`
	Flags              uint16     `json:"flags"`
	UnusedPrefixesMask uint16     `json:"unusedPrefixesMask"`
	UsedRegistersMask  uint16     `json:"usedRegistersMask"`
	Opcode             uint16     `json:"opcode"`
	Ops                [4]Operand `json:"ops"`
	Size               uint8      `json:"size"`
	Segment            regs.ID    `json:"segment"`
	Base               regs.ID    `json:"base"`
	Scale              uint8      `json:"scale"`
	DispSize           uint8      `json:"dispSize"`
	Meta               uint8      `json:"meta"`
	ModifiedFlagsMask  uint8      `json:"modifiedFlagsMask"`
	TestedFlagsMask    uint8      `json:"testedFlagsMask"`
	UndefinedFlagsMask uint8      `json:"undefinedFlagsMask"`
}

// Inst.Flags bits.
const (
	FlagLock uint16 = 1 << iota
	FlagRep
	FlagRepne
	FlagImmSigned
)

// Mode is the decoding mode, matching the decode_type encoding 0/1/2.
type Mode int

const (
	Mode16 Mode = iota
	Mode32
	Mode64
)

// Bits is the mode's operand width as understood by x86 decoders.
func (m Mode) Bits() int {
	switch m {
	case Mode16:
		return 16
	case Mode32:
		return 32
	}
	return 64
}

// Features select decoder filtering.
const (
	// FeatureFlowControlOnly drops every instruction that is not flow control.
	FeatureFlowControlOnly uint32 = 1 << iota
)

// CodeInfo describes the code window handed to the decoder.
type CodeInfo struct {
	CodeOffset uint64 // virtual address of Code[0]
	NextOffset uint64 // out: address following the last decoded instruction
	Code       []byte
	DecodeType Mode
	Features   uint32
}

// Result is the outcome of Decompose.
type Result int

const (
	ResultNone Result = iota
	ResultSuccess
	// ResultMemoryErr: decoding stopped at the end of a clipped code window.
	// The instructions returned are complete and can be trusted.
	ResultMemoryErr
	ResultInputErr
	ResultFiltered
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultSuccess:
		return "success"
	case ResultMemoryErr:
		return "memory-error"
	case ResultInputErr:
		return "input-error"
	case ResultFiltered:
		return "filtered"
	}
	return "unknown"
}

// Acceptable reports whether decoded instructions can be used.
func (r Result) Acceptable() bool {
	return r == ResultSuccess || r == ResultMemoryErr
}

// Text is the human readable rendering of an instruction.
type Text struct {
	Mnemonic string
	Operands string
	Hex      string
	Size     int
	Offset   uint64
}

func (t Text) String() string {
	if t.Operands == "" {
		return t.Mnemonic
	}
	return t.Mnemonic + " " + t.Operands
}

// Decomposer is an x86 disassembler engine.
type Decomposer interface {
	// Decompose decodes up to max instructions from ci.Code.
	Decompose(ci *CodeInfo, max int) ([]Inst, Result)
	// Format renders an instruction previously returned for the same ci.
	Format(ci *CodeInfo, inst *Inst) Text
}
