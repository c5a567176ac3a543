package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/x86sim/insts"
)

var _ = Describe("Decode", func() {
	Describe("MOV", func() {
		It("should decode a word register-to-register move", func() {
			// 89 D9 -> MOV CX, BX (D=0, W=1, mod=11, reg=011(BX), rm=001(CX))
			program, err := insts.Decode([]byte{0x89, 0xD9})

			Expect(err).NotTo(HaveOccurred())
			Expect(program).To(HaveLen(1))

			inst := program[0]
			Expect(inst.Op).To(Equal(insts.InstMove))
			Expect(inst.Wide).To(BeTrue())
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.CX)))
			Expect(inst.Source).To(Equal(insts.RegisterOperand(insts.BX)))
			Expect(inst.Length).To(Equal(2))
		})

		It("should decode an immediate-to-wide-register move", func() {
			// B8 39 05 -> MOV AX, 0x0539
			program, err := insts.Decode([]byte{0xB8, 0x39, 0x05})

			Expect(err).NotTo(HaveOccurred())
			Expect(program).To(HaveLen(1))

			inst := program[0]
			Expect(inst.Op).To(Equal(insts.InstMove))
			Expect(inst.Wide).To(BeTrue())
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.AX)))
			Expect(inst.Source).To(Equal(insts.ImmediateOperand(0x0539, insts.SizeNone)))
		})

		It("should decode an immediate-to-byte-register move", func() {
			// B0 7F -> MOV AL, 0x7F (reg field in low 3 bits, W in bit 3)
			program, err := insts.Decode([]byte{0xB0, 0x7F})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Wide).To(BeFalse())
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.AL)))
			Expect(inst.Source.Imm).To(Equal(uint16(0x7F)))
		})

		It("should decode an immediate-to-memory move with explicit size", func() {
			// C7 06 00 01 34 12 -> MOV WORD [0x0100], 0x1234
			program, err := insts.Decode([]byte{0xC7, 0x06, 0x00, 0x01, 0x34, 0x12})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Dest.Kind).To(Equal(insts.OperandMemory))
			Expect(inst.Dest.EA).To(Equal(insts.EADirectAddress))
			Expect(inst.Dest.Disp).To(Equal(uint16(0x0100)))
			Expect(inst.Source.Imm).To(Equal(uint16(0x1234)))
			Expect(inst.Source.Size).To(Equal(insts.SizeWord))
		})

		It("should decode memory with an 8-bit displacement", func() {
			// 8B 5C 02 -> MOV BX, [SI+2]
			program, err := insts.Decode([]byte{0x8B, 0x5C, 0x02})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Source.Kind).To(Equal(insts.OperandMemory))
			Expect(inst.Source.EA).To(Equal(insts.EASI))
			Expect(int16(inst.Source.Disp)).To(Equal(int16(2)))
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.BX)))
		})

		It("should decode memory with a negative 8-bit displacement", func() {
			// 8B 5C FE -> MOV BX, [SI-2]
			program, err := insts.Decode([]byte{0x8B, 0x5C, 0xFE})

			Expect(err).NotTo(HaveOccurred())
			Expect(int16(program[0].Source.Disp)).To(Equal(int16(-2)))
		})

		It("should decode memory with a 16-bit displacement", func() {
			// 8B 9C 0010 -> MOV BX, [SI+0x1000]
			program, err := insts.Decode([]byte{0x8B, 0x9C, 0x00, 0x10})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Source.Disp).To(Equal(uint16(0x1000)))
		})

		It("should decode accumulator-direct-address moves both directions", func() {
			// A0 00 10 -> MOV AL, [0x1000]; A2 00 10 -> MOV [0x1000], AL
			program, err := insts.Decode([]byte{0xA0, 0x00, 0x10, 0xA2, 0x00, 0x10})

			Expect(err).NotTo(HaveOccurred())
			Expect(program).To(HaveLen(2))
			Expect(program[0].Dest).To(Equal(insts.RegisterOperand(insts.AL)))
			Expect(program[1].Source).To(Equal(insts.RegisterOperand(insts.AL)))
		})

		It("should decode a segment register load", func() {
			// 8E D8 -> MOV DS, AX (mod=11, sr=011(DS), rm=000(AX))
			program, err := insts.Decode([]byte{0x8E, 0xD8})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.DS)))
			Expect(inst.Source).To(Equal(insts.RegisterOperand(insts.AX)))
		})
	})

	Describe("Arithmetic", func() {
		It("should decode ADD AX, imm16", func() {
			// 05 00 80 -> ADD AX, 0x8000
			program, err := insts.Decode([]byte{0x05, 0x00, 0x80})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Op).To(Equal(insts.InstAdd))
			Expect(inst.Dest).To(Equal(insts.RegisterOperand(insts.AX)))
			Expect(inst.Source.Imm).To(Equal(uint16(0x8000)))
		})

		It("should decode CMP AX, imm16", func() {
			// 3D 34 12 -> CMP AX, 0x1234
			program, err := insts.Decode([]byte{0x3D, 0x34, 0x12})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Op).To(Equal(insts.InstCompare))
			Expect(program[0].Source.Imm).To(Equal(uint16(0x1234)))
		})

		It("should decode SUB with a sign-extended byte immediate to r/m", func() {
			// 83 E8 02 -> SUB AX, 2 (mod=11, reg=101(SUB), rm=000(AX), S=1,W=1)
			program, err := insts.Decode([]byte{0x83, 0xE8, 0x02})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Op).To(Equal(insts.InstSub))
			Expect(inst.Wide).To(BeTrue())
			Expect(inst.Source.Imm).To(Equal(uint16(2)))
		})

		It("should distinguish ADD/SUB/CMP immediate-to-r/m by the reg field", func() {
			add, err := insts.Decode([]byte{0x80, 0x00, 0x01}) // reg=000
			Expect(err).NotTo(HaveOccurred())
			Expect(add[0].Op).To(Equal(insts.InstAdd))

			sub, err := insts.Decode([]byte{0x80, 0x28, 0x01}) // reg=101
			Expect(err).NotTo(HaveOccurred())
			Expect(sub[0].Op).To(Equal(insts.InstSub))

			cmp, err := insts.Decode([]byte{0x80, 0x38, 0x01}) // reg=111
			Expect(err).NotTo(HaveOccurred())
			Expect(cmp[0].Op).To(Equal(insts.InstCompare))
		})

		It("should decode a register-to-register ADD", func() {
			// 01 D9 -> ADD CX, BX
			program, err := insts.Decode([]byte{0x01, 0xD9})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Op).To(Equal(insts.InstAdd))
			Expect(program[0].Dest).To(Equal(insts.RegisterOperand(insts.CX)))
			Expect(program[0].Source).To(Equal(insts.RegisterOperand(insts.BX)))
		})
	})

	Describe("Branches", func() {
		It("should decode a conditional short jump with the right condition", func() {
			// 75 02 -> JNE +2
			program, err := insts.Decode([]byte{0x75, 0x02})

			Expect(err).NotTo(HaveOccurred())
			inst := program[0]
			Expect(inst.Op).To(Equal(insts.InstJump))
			Expect(inst.Cond).To(Equal(insts.CondJNE))
			Expect(inst.Offset).To(Equal(int16(2)))
			Expect(inst.TargetBytePos).To(Equal(0 + 2 + 2))
		})

		It("should decode every conditional short jump opcode 0x70..0x7F", func() {
			for op := 0x70; op <= 0x7F; op++ {
				program, err := insts.Decode([]byte{byte(op), 0x00})
				Expect(err).NotTo(HaveOccurred())
				Expect(program[0].Op).To(Equal(insts.InstJump))
			}
		})

		It("should decode LOOP and set the CondLoop tag", func() {
			// E2 FD -> LOOP -3
			program, err := insts.Decode([]byte{0xE2, 0xFD})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Cond).To(Equal(insts.CondLoop))
			Expect(program[0].Offset).To(Equal(int16(-3)))
		})

		It("should decode JCXZ", func() {
			program, err := insts.Decode([]byte{0xE3, 0x05})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Cond).To(Equal(insts.CondJCXZ))
		})

		It("should decode an unconditional wide relative JMP", func() {
			// E9 10 00 -> JMP +16
			program, err := insts.Decode([]byte{0xE9, 0x10, 0x00})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Cond).To(Equal(insts.CondAlways))
			Expect(program[0].Offset).To(Equal(int16(16)))
			Expect(program[0].Length).To(Equal(3))
		})
	})

	Describe("INT", func() {
		It("should decode the vector byte", func() {
			program, err := insts.Decode([]byte{0xCD, 0x21})

			Expect(err).NotTo(HaveOccurred())
			Expect(program[0].Op).To(Equal(insts.InstInterrupt))
			Expect(program[0].Vector).To(Equal(uint8(0x21)))
		})
	})

	Describe("error handling", func() {
		It("should fail on an unknown opcode", func() {
			_, err := insts.Decode([]byte{0x0F})

			Expect(err).To(MatchError(insts.ErrUnknownOpcode))
		})

		It("should fail when truncated mid-instruction", func() {
			_, err := insts.Decode([]byte{0xB8, 0x01}) // MOV AX, imm16 needs 2 more bytes, has 1

			Expect(err).To(MatchError(insts.ErrTruncatedInstruction))
		})

		It("should fail when a mod-reg-r/m byte is missing entirely", func() {
			_, err := insts.Decode([]byte{0x89})

			Expect(err).To(MatchError(insts.ErrTruncatedInstruction))
		})
	})

	Describe("decode-length property", func() {
		It("sums per-instruction lengths to the stream length", func() {
			stream := []byte{
				0x3D, 0x00, 0x00, // CMP AX, 0
				0x75, 0x02, // JNE +2
				0xB8, 0x01, 0x00, // MOV AX, 1
				0xB8, 0x02, 0x00, // MOV AX, 2
			}
			program, err := insts.Decode(stream)

			Expect(err).NotTo(HaveOccurred())
			total := 0
			for _, inst := range program {
				total += inst.Length
			}
			Expect(total).To(Equal(len(stream)))
		})
	})
})
