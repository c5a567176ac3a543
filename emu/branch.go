package emu

import "github.com/sarchlab/x86sim/insts"

// EvaluateBranch decides whether a JUMP instruction's branch is taken,
// given the current flags. For the LOOP/LOOPE/LOOPNE variants it decrements
// CX as a side effect on regs before testing it, per the 8086 semantics;
// for CondAlways (the unconditional wide JMP) it always takes the branch.
func EvaluateBranch(regs *RegFile, cond insts.Cond, flags Flags) bool {
	switch cond {
	case insts.CondJE:
		return flags.Has(FlagZero)
	case insts.CondJNE:
		return !flags.Has(FlagZero)
	case insts.CondJL:
		return flags.Has(FlagSign) != flags.Has(FlagOverflow)
	case insts.CondJLE:
		return flags.Has(FlagZero) || (flags.Has(FlagSign) != flags.Has(FlagOverflow))
	case insts.CondJG:
		return !flags.Has(FlagZero) && (flags.Has(FlagSign) == flags.Has(FlagOverflow))
	case insts.CondJGE:
		return flags.Has(FlagSign) == flags.Has(FlagOverflow)
	case insts.CondJB:
		return flags.Has(FlagCarry)
	case insts.CondJBE:
		return flags.Has(FlagCarry) || flags.Has(FlagZero)
	case insts.CondJA:
		return !flags.Has(FlagCarry) && !flags.Has(FlagZero)
	case insts.CondJAE:
		return !flags.Has(FlagCarry)
	case insts.CondJP:
		return flags.Has(FlagParity)
	case insts.CondJNP:
		return !flags.Has(FlagParity)
	case insts.CondJO:
		return flags.Has(FlagOverflow)
	case insts.CondJNO:
		return !flags.Has(FlagOverflow)
	case insts.CondJS:
		return flags.Has(FlagSign)
	case insts.CondJNS:
		return !flags.Has(FlagSign)
	case insts.CondJCXZ:
		return regs.ReadReg(insts.CX) == 0
	case insts.CondLoop:
		return decrementCX(regs) != 0
	case insts.CondLoopE:
		return decrementCX(regs) != 0 && flags.Has(FlagZero)
	case insts.CondLoopNE:
		return decrementCX(regs) != 0 && !flags.Has(FlagZero)
	case insts.CondAlways:
		return true
	default:
		return false
	}
}

func decrementCX(regs *RegFile) uint16 {
	v := regs.ReadReg(insts.CX) - 1
	regs.WriteReg(insts.CX, v)
	return v
}
