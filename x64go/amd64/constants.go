package amd64

const (
	// MaxInstructionLength is the architectural upper bound of a single x86 instruction.
	MaxInstructionLength = 15

	// RegisterWords is the number of 64-bit words in the kernel user_regs_struct.
	RegisterWords = 27

	// WaitAll is __WALL: wait for all children regardless of thread group.
	WaitAll = 0x40000000

	StackSlot = 8
)

// Linux x86-64 signal numbers used by the trace protocol.
const (
	SigTrap = 5
	SigKill = 9
	SigUsr1 = 10
	SigSegv = 11
	SigChld = 17
	SigStop = 19
)
