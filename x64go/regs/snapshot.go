// Package regs holds the general-purpose register file of a stopped tracee and
// the projection from operand register identifiers to register values.
package regs

// Snapshot mirrors the kernel's x86-64 user_regs_struct word for word, so a
// pointer to it can be handed to PTRACE_GETREGS directly.
//
// A snapshot is only meaningful right after a single-step stop: the tracee is
// stopped and RIP points at the next instruction to execute.
type Snapshot struct {
	R15     uint64 `json:"r15"`
	R14     uint64 `json:"r14"`
	R13     uint64 `json:"r13"`
	R12     uint64 `json:"r12"`
	Rbp     uint64 `json:"rbp"`
	Rbx     uint64 `json:"rbx"`
	R11     uint64 `json:"r11"`
	R10     uint64 `json:"r10"`
	R9      uint64 `json:"r9"`
	R8      uint64 `json:"r8"`
	Rax     uint64 `json:"rax"`
	Rcx     uint64 `json:"rcx"`
	Rdx     uint64 `json:"rdx"`
	Rsi     uint64 `json:"rsi"`
	Rdi     uint64 `json:"rdi"`
	OrigRax uint64 `json:"origRax"`
	Rip     uint64 `json:"rip"`
	Cs      uint64 `json:"cs"`
	Eflags  uint64 `json:"eflags"`
	Rsp     uint64 `json:"rsp"`
	Ss      uint64 `json:"ss"`
	FsBase  uint64 `json:"fsBase"`
	GsBase  uint64 `json:"gsBase"`
	Ds      uint64 `json:"ds"`
	Es      uint64 `json:"es"`
	Fs      uint64 `json:"fs"`
	Gs      uint64 `json:"gs"`
}

func (s *Snapshot) PC() uint64 {
	return s.Rip
}

func (s *Snapshot) SP() uint64 {
	return s.Rsp
}

// gpr returns general-purpose register i in encoding order:
// rax, rcx, rdx, rbx, rsp, rbp, rsi, rdi, r8 ... r15.
func (s *Snapshot) gpr(i int) uint64 {
	switch i {
	case 0:
		return s.Rax
	case 1:
		return s.Rcx
	case 2:
		return s.Rdx
	case 3:
		return s.Rbx
	case 4:
		return s.Rsp
	case 5:
		return s.Rbp
	case 6:
		return s.Rsi
	case 7:
		return s.Rdi
	case 8:
		return s.R8
	case 9:
		return s.R9
	case 10:
		return s.R10
	case 11:
		return s.R11
	case 12:
		return s.R12
	case 13:
		return s.R13
	case 14:
		return s.R14
	case 15:
		return s.R15
	}
	return 0
}

// Value projects the register named by id out of the snapshot.
// None, and any identifier without a value in the general-purpose file, is 0.
func (s *Snapshot) Value(id ID) uint64 {
	switch {
	case id >= RAX && id <= R15:
		return s.gpr(int(id - RAX))
	case id >= EAX && id <= R15D:
		return s.gpr(int(id-EAX)) & 0xffffffff
	case id >= AX && id <= R15W:
		return s.gpr(int(id-AX)) & 0xffff
	case id >= AL && id <= R15B:
		return s.gpr(int(id-AL)) & 0xff
	case id >= AH && id <= BH:
		return (s.gpr(int(id-AH)) >> 8) & 0xff
	}
	switch id {
	case RIP:
		return s.Rip
	case EIP:
		return s.Rip & 0xffffffff
	case ES:
		return s.Es
	case CS:
		return s.Cs
	case SS:
		return s.Ss
	case DS:
		return s.Ds
	case FS:
		return s.Fs
	case GS:
		return s.Gs
	}
	return 0
}

// SegmentBase is the linear base of a segment register. Only FS and GS carry a
// base in 64-bit mode.
func (s *Snapshot) SegmentBase(id ID) uint64 {
	switch id {
	case FS:
		return s.FsBase
	case GS:
		return s.GsBase
	}
	return 0
}
