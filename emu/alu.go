package emu

func mask(wide bool) uint16 {
	if wide {
		return 0xFFFF
	}
	return 0x00FF
}

func signBit(wide bool) uint16 {
	if wide {
		return 0x8000
	}
	return 0x0080
}

// ComputeAddFlags returns the flags word resulting from a + b in the given
// width, with every bit this core computes recalculated from zero.
func ComputeAddFlags(a, b uint16, wide bool) Flags {
	m := mask(wide)
	a, b = a&m, b&m
	result := (a + b) & m
	return assembleFlags(a, b, result, wide, true)
}

// ComputeSubFlags returns the flags word resulting from a - b (also used
// for CMP, which discards the result but keeps the flags).
func ComputeSubFlags(a, b uint16, wide bool) Flags {
	m := mask(wide)
	a, b = a&m, b&m
	result := (a - b) & m
	return assembleFlags(a, b, result, wide, false)
}

func assembleFlags(a, b, result uint16, wide, isAdd bool) Flags {
	var f Flags

	if result == 0 {
		f = f.Set(FlagZero)
	}
	if result&signBit(wide) != 0 {
		f = f.Set(FlagSign)
	}
	if parityEven(byte(result)) {
		f = f.Set(FlagParity)
	}

	if isAdd {
		if carriesAdd(a, b, wide) {
			f = f.Set(FlagCarry)
		}
		if (a&0xF)+(b&0xF) > 0xF {
			f = f.Set(FlagAuxiliaryCarry)
		}
		if overflowsAdd(a, b, result, wide) {
			f = f.Set(FlagOverflow)
		}
	} else {
		if b > a {
			f = f.Set(FlagCarry)
		}
		if a&0xF < b&0xF {
			f = f.Set(FlagAuxiliaryCarry)
		}
		if overflowsSub(a, b, result, wide) {
			f = f.Set(FlagOverflow)
		}
	}

	return f
}

func carriesAdd(a, b uint16, wide bool) bool {
	m := uint32(mask(wide))
	return uint32(a)+uint32(b) > m
}

func overflowsAdd(a, b, result uint16, wide bool) bool {
	s := signBit(wide)
	aSign, bSign, rSign := a&s, b&s, result&s
	return aSign == bSign && aSign != rSign
}

func overflowsSub(a, b, result uint16, wide bool) bool {
	s := signBit(wide)
	aSign, bSign, rSign := a&s, b&s, result&s
	return aSign != bSign && bSign == rSign
}

// parityEven reports whether b has an even number of set bits, per the
// 8086 parity flag definition (computed over the low 8 bits of the result).
func parityEven(b byte) bool {
	count := 0
	for b != 0 {
		count += int(b & 1)
		b >>= 1
	}
	return count%2 == 0
}
