package insts

// opTag discriminates the opcode-table rows. Several tags share a single
// extractor because the extractor itself reads the bits it needs from the
// stream rather than having them threaded in.
type opTag uint8

const (
	tagMovRegMem  opTag = iota // MOV r/m <-> r
	tagMovImmMem               // MOV imm -> r/m
	tagMovImmReg               // MOV imm -> r (short form)
	tagMovMemAcc               // MOV AX/AL <- [addr]
	tagMovAccMem               // MOV [addr] <- AX/AL
	tagMovSegToRM              // MOV r/m <- segreg
	tagMovRMToSeg              // MOV segreg <- r/m
	tagArithRegMem             // ADD/SUB/CMP r/m <-> r
	tagArithImmMem             // ADD/SUB/CMP imm -> r/m
	tagArithImmAcc             // ADD/SUB/CMP imm -> AX/AL
	tagJumpCond                // one of the 16 short conditional jumps
	tagJumpLoop                // LOOP/LOOPE/LOOPNE/JCXZ
	tagJumpWide                // unconditional wide relative JMP
	tagInterrupt               // INT
)

// opRow is one row of the static opcode-recognition table: a masked
// first-byte prefix match, with an optional required reg-field value (used
// to discriminate ADD/SUB/CMP under the shared 0b100000xx prefix).
type opRow struct {
	mask   byte
	value  byte
	tag    opTag
	reqReg int8 // -1 means "don't care"
	arith  InstKind
	cond   Cond
}

// opcodeTable is scanned in order; the first row whose masked first byte
// matches (and whose reqReg, if any, agrees with byte 1's reg field) wins.
var opcodeTable = []opRow{
	{mask: 0xFC, value: 0x88, tag: tagMovRegMem, reqReg: -1},
	{mask: 0xFE, value: 0xC6, tag: tagMovImmMem, reqReg: 0},
	{mask: 0xF0, value: 0xB0, tag: tagMovImmReg, reqReg: -1},
	{mask: 0xFE, value: 0xA0, tag: tagMovMemAcc, reqReg: -1},
	{mask: 0xFE, value: 0xA2, tag: tagMovAccMem, reqReg: -1},
	{mask: 0xFF, value: 0x8E, tag: tagMovRMToSeg, reqReg: -1},
	{mask: 0xFF, value: 0x8C, tag: tagMovSegToRM, reqReg: -1},

	{mask: 0xFC, value: 0x00, tag: tagArithRegMem, reqReg: -1, arith: InstAdd},
	{mask: 0xFC, value: 0x28, tag: tagArithRegMem, reqReg: -1, arith: InstSub},
	{mask: 0xFC, value: 0x38, tag: tagArithRegMem, reqReg: -1, arith: InstCompare},

	{mask: 0xFC, value: 0x80, tag: tagArithImmMem, reqReg: 0, arith: InstAdd},
	{mask: 0xFC, value: 0x80, tag: tagArithImmMem, reqReg: 5, arith: InstSub},
	{mask: 0xFC, value: 0x80, tag: tagArithImmMem, reqReg: 7, arith: InstCompare},

	{mask: 0xFE, value: 0x04, tag: tagArithImmAcc, reqReg: -1, arith: InstAdd},
	{mask: 0xFE, value: 0x2C, tag: tagArithImmAcc, reqReg: -1, arith: InstSub},
	{mask: 0xFE, value: 0x3C, tag: tagArithImmAcc, reqReg: -1, arith: InstCompare},

	{mask: 0xF0, value: 0x70, tag: tagJumpCond, reqReg: -1}, // 0x70..0x7F, cond derived from low nibble

	{mask: 0xFF, value: 0xE0, tag: tagJumpLoop, reqReg: -1, cond: CondLoopNE},
	{mask: 0xFF, value: 0xE1, tag: tagJumpLoop, reqReg: -1, cond: CondLoopE},
	{mask: 0xFF, value: 0xE2, tag: tagJumpLoop, reqReg: -1, cond: CondLoop},
	{mask: 0xFF, value: 0xE3, tag: tagJumpLoop, reqReg: -1, cond: CondJCXZ},

	{mask: 0xFF, value: 0xE9, tag: tagJumpWide, reqReg: -1},
	{mask: 0xFF, value: 0xCD, tag: tagInterrupt, reqReg: -1},
}

// condTable maps the low nibble of a 0x70..0x7F opcode to its condition tag.
var condTable = [16]Cond{
	CondJO, CondJNO, CondJB, CondJAE, CondJE, CondJNE, CondJBE, CondJA,
	CondJS, CondJNS, CondJP, CondJNP, CondJL, CondJGE, CondJLE, CondJG,
}

// regField extracts bits [5:3] of a mod-reg-r/m byte.
func regField(b byte) uint8 { return (b >> 3) & 0x7 }

// rmField extracts bits [2:0] of a mod-reg-r/m byte.
func rmField(b byte) uint8 { return b & 0x7 }

// modField extracts bits [7:6] of a mod-reg-r/m byte.
func modField(b byte) uint8 { return (b >> 6) & 0x3 }

// Decode decodes an entire byte slice into a sequence of instructions. It
// stops and returns an error on the first malformed or truncated
// instruction; no partial result is returned.
func Decode(stream []byte) ([]Instruction, error) {
	var out []Instruction
	pos := 0
	for pos < len(stream) {
		inst, n, err := decodeOne(stream, pos)
		if err != nil {
			return nil, err
		}
		inst.BytePosition = pos
		inst.Length = n
		inst.Text = render(inst)
		out = append(out, inst)
		pos += n
	}
	return out, nil
}

// decodeOne decodes the single instruction starting at stream[pos] and
// returns it along with the number of bytes it consumed.
func decodeOne(stream []byte, pos int) (Instruction, int, error) {
	if pos >= len(stream) {
		return Instruction{}, 0, truncatedError(pos, 1)
	}
	b0 := stream[pos]

	row, ok := findRow(stream, pos)
	if !ok {
		return Instruction{}, 0, unknownOpcodeError(b0, pos)
	}

	switch row.tag {
	case tagMovRegMem:
		return decodeMovRegMem(stream, pos)
	case tagMovImmMem:
		return decodeMovImmMem(stream, pos)
	case tagMovImmReg:
		return decodeMovImmReg(stream, pos)
	case tagMovMemAcc:
		return decodeMovMemAcc(stream, pos, true)
	case tagMovAccMem:
		return decodeMovMemAcc(stream, pos, false)
	case tagMovRMToSeg:
		return decodeMovSeg(stream, pos, true)
	case tagMovSegToRM:
		return decodeMovSeg(stream, pos, false)
	case tagArithRegMem:
		return decodeArithRegMem(stream, pos, row.arith)
	case tagArithImmMem:
		return decodeArithImmMem(stream, pos, row.arith)
	case tagArithImmAcc:
		return decodeArithImmAcc(stream, pos, row.arith)
	case tagJumpCond:
		return decodeJumpCond(stream, pos)
	case tagJumpLoop:
		return decodeJumpLoop(stream, pos, row.cond)
	case tagJumpWide:
		return decodeJumpWide(stream, pos)
	case tagInterrupt:
		return decodeInterrupt(stream, pos)
	default:
		return Instruction{}, 0, unknownOpcodeError(b0, pos)
	}
}

// findRow scans the opcode table for the first matching row, consulting
// byte 1's reg field when a row requires a specific value there.
func findRow(stream []byte, pos int) (opRow, bool) {
	b0 := stream[pos]
	for _, row := range opcodeTable {
		if b0&row.mask != row.value {
			continue
		}
		if row.reqReg >= 0 {
			if pos+1 >= len(stream) {
				return row, true // can't check the reg field yet; let the extractor report truncation
			}
			if int8(regField(stream[pos+1])) != row.reqReg {
				continue
			}
		}
		return row, true
	}
	return opRow{}, false
}

func need(stream []byte, pos, n int) error {
	if pos+n > len(stream) {
		return truncatedError(pos, pos+n-len(stream))
	}
	return nil
}

func signExtend8(b byte) int16 { return int16(int8(b)) }

func word(lo, hi byte) uint16 { return uint16(lo) | uint16(hi)<<8 }

// decodeModRM parses the mod-reg-r/m byte (and any trailing displacement)
// starting at stream[pos]. It returns the reg field's Register, the
// register-or-memory Operand, and the total number of bytes consumed
// starting from and including the mod-reg-r/m byte.
func decodeModRM(stream []byte, pos int, wide bool) (reg Register, rm Operand, consumed int, err error) {
	if err = need(stream, pos, 1); err != nil {
		return
	}
	modrm := stream[pos]
	mode := modField(modrm)
	regF := regField(modrm)
	rmF := rmField(modrm)
	reg = encodeRegister(regF, wide)
	consumed = 1

	if mode == 0b11 {
		rm = RegisterOperand(encodeRegister(rmF, wide))
		return
	}

	if mode == 0b00 && rmF == 0b110 {
		if err = need(stream, pos+1, 2); err != nil {
			return
		}
		addr := word(stream[pos+1], stream[pos+2])
		rm = MemoryOperand(EADirectAddress, addr)
		consumed += 2
		return
	}

	ea := EffectiveAddress(rmF)
	var disp uint16
	switch mode {
	case 0b00:
		disp = 0
	case 0b01:
		if err = need(stream, pos+1, 1); err != nil {
			return
		}
		disp = uint16(signExtend8(stream[pos+1]))
		consumed++
	case 0b10:
		if err = need(stream, pos+1, 2); err != nil {
			return
		}
		disp = word(stream[pos+1], stream[pos+2])
		consumed += 2
	default:
		err = malformedError(pos, "unreachable mod value")
		return
	}
	rm = MemoryOperand(ea, disp)
	return
}

func decodeMovRegMem(stream []byte, pos int) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0
	d := b0&0x2 != 0

	reg, rm, consumed, err := decodeModRM(stream, pos+1, w)
	if err != nil {
		return Instruction{}, 0, err
	}
	inst := Instruction{Op: InstMove, Wide: w}
	if d {
		inst.Source, inst.Dest = rm, RegisterOperand(reg)
	} else {
		inst.Source, inst.Dest = RegisterOperand(reg), rm
	}
	return inst, 1 + consumed, nil
}

func decodeMovImmMem(stream []byte, pos int) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0

	_, rm, consumed, err := decodeModRM(stream, pos+1, w)
	if err != nil {
		return Instruction{}, 0, err
	}
	total := 1 + consumed
	var imm uint16
	size := SizeByte
	if w {
		if err := need(stream, pos+total, 2); err != nil {
			return Instruction{}, 0, err
		}
		imm = word(stream[pos+total], stream[pos+total+1])
		total += 2
		size = SizeWord
	} else {
		if err := need(stream, pos+total, 1); err != nil {
			return Instruction{}, 0, err
		}
		imm = uint16(stream[pos+total])
		total++
	}

	source := ImmediateOperand(imm, SizeNone)
	if rm.Kind == OperandMemory {
		source.Size = size
	}
	return Instruction{Op: InstMove, Wide: w, Source: source, Dest: rm}, total, nil
}

func decodeMovImmReg(stream []byte, pos int) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x08 != 0
	regF := b0 & 0x7
	reg := encodeRegister(regF, w)

	total := 1
	var imm uint16
	if w {
		if err := need(stream, pos+total, 2); err != nil {
			return Instruction{}, 0, err
		}
		imm = word(stream[pos+total], stream[pos+total+1])
		total += 2
	} else {
		if err := need(stream, pos+total, 1); err != nil {
			return Instruction{}, 0, err
		}
		imm = uint16(stream[pos+total])
		total++
	}

	return Instruction{
		Op:     InstMove,
		Wide:   w,
		Source: ImmediateOperand(imm, SizeNone),
		Dest:   RegisterOperand(reg),
	}, total, nil
}

func decodeMovMemAcc(stream []byte, pos int, loadingAcc bool) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0
	if err := need(stream, pos+1, 2); err != nil {
		return Instruction{}, 0, err
	}
	addr := word(stream[pos+1], stream[pos+2])
	acc := AL
	if w {
		acc = AX
	}
	mem := MemoryOperand(EADirectAddress, addr)

	inst := Instruction{Op: InstMove, Wide: w}
	if loadingAcc {
		inst.Source, inst.Dest = mem, RegisterOperand(acc)
	} else {
		inst.Source, inst.Dest = RegisterOperand(acc), mem
	}
	return inst, 3, nil
}

var segRegisters = [4]Register{ES, CS, SS, DS}

func decodeMovSeg(stream []byte, pos int, loadingSeg bool) (Instruction, int, error) {
	if err := need(stream, pos+1, 1); err != nil {
		return Instruction{}, 0, err
	}
	modrm := stream[pos+1]
	srField := (modrm >> 3) & 0x3
	seg := segRegisters[srField]

	_, rm, consumed, err := decodeModRM(stream, pos+1, true)
	if err != nil {
		return Instruction{}, 0, err
	}
	inst := Instruction{Op: InstMove, Wide: true}
	if loadingSeg {
		inst.Source, inst.Dest = rm, RegisterOperand(seg)
	} else {
		inst.Source, inst.Dest = RegisterOperand(seg), rm
	}
	return inst, 1 + consumed, nil
}

func decodeArithRegMem(stream []byte, pos int, kind InstKind) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0
	d := b0&0x2 != 0

	reg, rm, consumed, err := decodeModRM(stream, pos+1, w)
	if err != nil {
		return Instruction{}, 0, err
	}
	inst := Instruction{Op: kind, Wide: w}
	if d {
		inst.Source, inst.Dest = rm, RegisterOperand(reg)
	} else {
		inst.Source, inst.Dest = RegisterOperand(reg), rm
	}
	return inst, 1 + consumed, nil
}

func decodeArithImmMem(stream []byte, pos int, kind InstKind) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0
	s := b0&0x2 != 0

	_, rm, consumed, err := decodeModRM(stream, pos+1, w)
	if err != nil {
		return Instruction{}, 0, err
	}
	total := 1 + consumed

	var imm uint16
	size := SizeByte
	switch {
	case w && s:
		if err := need(stream, pos+total, 1); err != nil {
			return Instruction{}, 0, err
		}
		imm = uint16(signExtend8(stream[pos+total]))
		total++
		size = SizeWord
	case w && !s:
		if err := need(stream, pos+total, 2); err != nil {
			return Instruction{}, 0, err
		}
		imm = word(stream[pos+total], stream[pos+total+1])
		total += 2
		size = SizeWord
	default:
		if err := need(stream, pos+total, 1); err != nil {
			return Instruction{}, 0, err
		}
		imm = uint16(stream[pos+total])
		total++
	}

	source := ImmediateOperand(imm, SizeNone)
	if rm.Kind == OperandMemory {
		source.Size = size
	}
	return Instruction{Op: kind, Wide: w, Source: source, Dest: rm}, total, nil
}

func decodeArithImmAcc(stream []byte, pos int, kind InstKind) (Instruction, int, error) {
	b0 := stream[pos]
	w := b0&0x1 != 0

	total := 1
	var imm uint16
	if w {
		if err := need(stream, pos+total, 2); err != nil {
			return Instruction{}, 0, err
		}
		imm = word(stream[pos+total], stream[pos+total+1])
		total += 2
	} else {
		if err := need(stream, pos+total, 1); err != nil {
			return Instruction{}, 0, err
		}
		imm = uint16(stream[pos+total])
		total++
	}

	acc := AL
	if w {
		acc = AX
	}
	return Instruction{
		Op:     kind,
		Wide:   w,
		Source: ImmediateOperand(imm, SizeNone),
		Dest:   RegisterOperand(acc),
	}, total, nil
}

func decodeJumpCond(stream []byte, pos int) (Instruction, int, error) {
	b0 := stream[pos]
	if err := need(stream, pos+1, 1); err != nil {
		return Instruction{}, 0, err
	}
	offset := signExtend8(stream[pos+1])
	cond := condTable[b0&0xF]
	return instJump(pos, 2, cond, offset), 2, nil
}

func decodeJumpLoop(stream []byte, pos int, cond Cond) (Instruction, int, error) {
	if err := need(stream, pos+1, 1); err != nil {
		return Instruction{}, 0, err
	}
	offset := signExtend8(stream[pos+1])
	return instJump(pos, 2, cond, offset), 2, nil
}

func decodeJumpWide(stream []byte, pos int) (Instruction, int, error) {
	if err := need(stream, pos+1, 2); err != nil {
		return Instruction{}, 0, err
	}
	offset := int16(word(stream[pos+1], stream[pos+2]))
	return instJump(pos, 3, CondAlways, offset), 3, nil
}

// instJump builds a JUMP instruction; length is the total byte length of
// this instruction, used to compute the absolute target byte position as
// position + length + offset (relative to the next instruction).
func instJump(pos, length int, cond Cond, offset int16) Instruction {
	target := pos + length + int(offset)
	return Instruction{
		Op:            InstJump,
		Cond:          cond,
		Offset:        offset,
		TargetBytePos: target,
		TargetIndex:   -1,
	}
}

func decodeInterrupt(stream []byte, pos int) (Instruction, int, error) {
	if err := need(stream, pos+1, 1); err != nil {
		return Instruction{}, 0, err
	}
	return Instruction{Op: InstInterrupt, Vector: stream[pos+1]}, 2, nil
}
