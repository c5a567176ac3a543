package emu

import "github.com/sarchlab/x86sim/insts"

// EffectiveAddr resolves an EffectiveAddress and displacement against the
// current register file into a linear byte index. Arithmetic is performed
// in 32-bit width and the result is returned untruncated; the Memory
// accessors truncate it to the 64 KiB address space. No segmentation offset
// is applied.
func EffectiveAddr(regs *RegFile, ea insts.EffectiveAddress, disp uint16) int32 {
	d := int32(int16(disp))
	switch ea {
	case insts.EABXSI:
		return int32(regs.ReadReg(insts.BX)) + int32(regs.ReadReg(insts.SI)) + d
	case insts.EABXDI:
		return int32(regs.ReadReg(insts.BX)) + int32(regs.ReadReg(insts.DI)) + d
	case insts.EABPSI:
		return int32(regs.ReadReg(insts.BP)) + int32(regs.ReadReg(insts.SI)) + d
	case insts.EABPDI:
		return int32(regs.ReadReg(insts.BP)) + int32(regs.ReadReg(insts.DI)) + d
	case insts.EASI:
		return int32(regs.ReadReg(insts.SI)) + d
	case insts.EADI:
		return int32(regs.ReadReg(insts.DI)) + d
	case insts.EABP:
		return int32(regs.ReadReg(insts.BP)) + d
	case insts.EABX:
		return int32(regs.ReadReg(insts.BX)) + d
	case insts.EADirectAddress:
		return d
	default:
		return 0
	}
}
