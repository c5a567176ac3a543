package emu

// MemorySize is the fixed size of the emulated linear address space: 64 KiB.
const MemorySize = 1 << 16

// Memory is a flat 64 KiB byte array. Word reads and writes are composed of
// two adjacent bytes in little-endian order, matching the 8086 ISA (not the
// source program this core was specified from, whose word-write byte order
// disagreed with its own word-read byte order).
type Memory struct {
	bytes [MemorySize]byte
}

// NewMemory creates a zeroed 64 KiB memory.
func NewMemory() *Memory {
	return &Memory{}
}

// addr16 truncates a linear address to the 64 KiB address space, matching
// the effective-address evaluator's 32-bit-then-truncate arithmetic.
func addr16(addr int32) uint16 { return uint16(uint32(addr)) }

// ReadByte reads a single byte at addr (truncated to 64 KiB).
func (m *Memory) ReadByte(addr int32) byte {
	return m.bytes[addr16(addr)]
}

// WriteByte writes a single byte at addr (truncated to 64 KiB).
func (m *Memory) WriteByte(addr int32, value byte) {
	m.bytes[addr16(addr)] = value
}

// ReadWord reads a little-endian word from addr and addr+1.
func (m *Memory) ReadWord(addr int32) uint16 {
	lo := m.bytes[addr16(addr)]
	hi := m.bytes[addr16(addr+1)]
	return uint16(lo) | uint16(hi)<<8
}

// WriteWord writes a little-endian word to addr and addr+1.
func (m *Memory) WriteWord(addr int32, value uint16) {
	m.bytes[addr16(addr)] = byte(value)
	m.bytes[addr16(addr+1)] = byte(value >> 8)
}

// LoadProgram copies program into memory starting at offset, wrapping within
// the 64 KiB address space.
func (m *Memory) LoadProgram(offset uint16, program []byte) {
	for i, b := range program {
		m.bytes[addr16(int32(offset)+int32(i))] = b
	}
}
