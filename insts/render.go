package insts

import "fmt"

// render produces a best-effort disassembly string for inst, for the
// optional Text field consumed by an external formatter. The exact literal
// syntax is not specified; this is not a general-purpose disassembler.
func render(inst Instruction) string {
	switch inst.Op {
	case InstMove, InstAdd, InstSub, InstCompare:
		return fmt.Sprintf("%s %s, %s", inst.Op, renderOperand(inst.Dest), renderOperand(inst.Source))
	case InstJump:
		return fmt.Sprintf("%s %+d", condMnemonic(inst.Cond), inst.Offset)
	case InstInterrupt:
		return fmt.Sprintf("int 0x%02X", inst.Vector)
	default:
		return "?"
	}
}

func renderOperand(op Operand) string {
	switch op.Kind {
	case OperandRegister:
		return op.Reg.String()
	case OperandMemory:
		if op.EA == EADirectAddress {
			return fmt.Sprintf("[0x%04X]", op.Disp)
		}
		if int16(op.Disp) == 0 {
			return fmt.Sprintf("[%s]", op.EA)
		}
		return fmt.Sprintf("[%s%+d]", op.EA, int16(op.Disp))
	case OperandImmediate:
		return fmt.Sprintf("0x%X", op.Imm)
	default:
		return ""
	}
}

func condMnemonic(c Cond) string {
	switch c {
	case CondJE:
		return "je"
	case CondJNE:
		return "jne"
	case CondJL:
		return "jl"
	case CondJLE:
		return "jle"
	case CondJG:
		return "jg"
	case CondJGE:
		return "jge"
	case CondJB:
		return "jb"
	case CondJBE:
		return "jbe"
	case CondJA:
		return "ja"
	case CondJAE:
		return "jae"
	case CondJP:
		return "jp"
	case CondJNP:
		return "jnp"
	case CondJO:
		return "jo"
	case CondJNO:
		return "jno"
	case CondJS:
		return "js"
	case CondJNS:
		return "jns"
	case CondJCXZ:
		return "jcxz"
	case CondLoop:
		return "loop"
	case CondLoopE:
		return "loope"
	case CondLoopNE:
		return "loopne"
	case CondAlways:
		return "jmp"
	default:
		return "?cond"
	}
}
