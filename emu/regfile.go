// Package emu provides a functional 8086 execution core: a register file,
// flat memory, flag computation, branch predicates, and a step engine that
// interprets decoded instructions from the insts package.
package emu

import "github.com/sarchlab/x86sim/insts"

// RegFile holds 8086 register state. Each general register is stored as a
// single 16-bit word; byte-half reads and writes are bit operations over
// that word rather than separate storage, so AL/AH always stay consistent
// with AX (and likewise for BX, CX, DX).
type RegFile struct {
	// general holds AX, CX, DX, BX, SP, BP, SI, DI, indexed by
	// (insts.Register - insts.AX).
	general [8]uint16

	// segment holds CS, DS, SS, ES, indexed by (insts.Register - insts.CS).
	segment [4]uint16

	ip    uint16
	flags uint16
}

// wholeIndex returns the general-register slot for one of the eight 16-bit
// whole registers.
func wholeIndex(r insts.Register) int { return int(r - insts.AX) }

// halfInfo returns the whole-register slot a byte half aliases into, and
// whether it is the high byte.
func halfInfo(r insts.Register) (slot int, high bool) {
	whole := int(r) % 4 // AL,CL,DL,BL / AH,CH,DH,BH pair up mod 4
	return whole, r >= insts.AH
}

// ReadReg reads the 16-bit zero-extended value of any Register this core
// models (byte half, whole register, segment register, IP, or FLAGS).
func (f *RegFile) ReadReg(r insts.Register) uint16 {
	switch {
	case r.IsByteHalf():
		slot, high := halfInfo(r)
		word := f.general[slot]
		if high {
			return word >> 8
		}
		return word & 0xFF
	case r.IsWord():
		return f.general[wholeIndex(r)]
	case r >= insts.CS && r <= insts.ES:
		return f.segment[int(r-insts.CS)]
	case r == insts.IP:
		return f.ip
	case r == insts.FLAGS:
		return f.flags
	default:
		return 0
	}
}

// WriteReg writes value to r. Writing a byte half updates only the
// corresponding half of the aliased whole register, leaving the other half
// untouched; writing a whole register, by construction, updates both halves
// at once.
func (f *RegFile) WriteReg(r insts.Register, value uint16) {
	switch {
	case r.IsByteHalf():
		slot, high := halfInfo(r)
		if high {
			f.general[slot] = (f.general[slot] & 0x00FF) | (uint16(value&0xFF) << 8)
		} else {
			f.general[slot] = (f.general[slot] & 0xFF00) | uint16(value&0xFF)
		}
	case r.IsWord():
		f.general[wholeIndex(r)] = value
	case r >= insts.CS && r <= insts.ES:
		f.segment[int(r-insts.CS)] = value
	case r == insts.IP:
		f.ip = value
	case r == insts.FLAGS:
		f.flags = value
	}
}

// IP returns the instruction pointer, interpreted as an index into the
// decoded instruction list (not a linear byte address).
func (f *RegFile) IP() uint16 { return f.ip }

// SetIP sets the instruction pointer.
func (f *RegFile) SetIP(v uint16) { f.ip = v }

// Flags returns the raw 16-bit flags word.
func (f *RegFile) Flags() Flags { return Flags(f.flags) }

// SetFlags overwrites the raw 16-bit flags word.
func (f *RegFile) SetFlags(fl Flags) { f.flags = uint16(fl) }

// Reset reinitialises all register state to zero.
func (f *RegFile) Reset() {
	f.general = [8]uint16{}
	f.segment = [4]uint16{}
	f.ip = 0
	f.flags = 0
}
