package emu

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/x86sim/insts"
)

// StepResult reports the outcome of executing a single instruction.
type StepResult struct {
	// Halted is true once the instruction pointer has run past the end of
	// the decoded list, or execution hit a fatal error.
	Halted bool

	// Err is set if execution failed. The halt marker is always set
	// alongside a non-nil Err.
	Err error
}

// Emulator interprets a decoded instruction list against CPU state: a
// register file, 64 KiB of memory, and the flags word. It is a sequential
// mutator with no internal synchronisation — no step may be issued
// concurrently with another.
type Emulator struct {
	regs    *RegFile
	memory  *Memory
	program []insts.Instruction
	halted  bool

	lastInterruptVector uint8
	hasInterrupt        bool

	trace  bool
	stderr io.Writer

	maxInstructions uint64
	stepCount       uint64
}

// EmulatorOption is a functional option for configuring an Emulator.
type EmulatorOption func(*Emulator)

// WithStderr sets the writer used for trace diagnostics.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) { e.stderr = w }
}

// WithStackPointer sets the initial stack pointer value.
func WithStackPointer(sp uint16) EmulatorOption {
	return func(e *Emulator) { e.regs.WriteReg(insts.SP, sp) }
}

// WithTrace enables per-step diagnostic output to the configured stderr
// writer.
func WithTrace(on bool) EmulatorOption {
	return func(e *Emulator) { e.trace = on }
}

// WithConfig applies a SimulatorConfig's initial stack pointer, trace
// toggle, and instruction budget in one step.
func WithConfig(cfg *SimulatorConfig) EmulatorOption {
	return func(e *Emulator) {
		e.regs.WriteReg(insts.SP, cfg.InitialSP)
		e.trace = cfg.Trace
		e.maxInstructions = cfg.MaxInstructions
	}
}

// NewEmulator creates a new Emulator with zeroed registers and memory.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regs:   &RegFile{},
		memory: NewMemory(),
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile { return e.regs }

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory { return e.memory }

// Halted reports whether the emulator has stopped stepping.
func (e *Emulator) Halted() bool { return e.halted }

// LastInterrupt returns the most recently decoded INT vector and whether
// any INTERRUPT has executed yet. INT is decoded and recorded but never
// dispatched.
func (e *Emulator) LastInterrupt() (vector uint8, ok bool) {
	return e.lastInterruptVector, e.hasInterrupt
}

// Load installs a resolved decoded-instruction list and resets IP to zero.
// Callers are expected to have already run insts.ResolveJumps on program.
func (e *Emulator) Load(program []insts.Instruction) {
	e.program = program
	e.regs.SetIP(0)
	e.halted = false
}

// Step fetches, decodes (already done), and executes exactly one
// instruction. If halted, it returns immediately without touching state.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true}
	}

	if e.maxInstructions > 0 && e.stepCount >= e.maxInstructions {
		e.halted = true
		return StepResult{Halted: true, Err: ErrInstructionBudgetExceeded}
	}

	ip := int(e.regs.IP())
	if ip >= len(e.program) {
		e.halted = true
		return StepResult{Halted: true}
	}
	e.stepCount++

	inst := e.program[ip]
	if e.trace {
		fmt.Fprintf(e.stderr, "step ip=%d %s\n", ip, inst.Text)
	}

	jumped, err := e.execute(&inst)
	if err != nil {
		e.halted = true
		return StepResult{Halted: true, Err: err}
	}

	if !jumped {
		e.regs.SetIP(uint16(ip + 1))
	}
	if int(e.regs.IP()) >= len(e.program) {
		e.halted = true
	}
	return StepResult{Halted: e.halted}
}

// Run steps until the emulator halts, returning the first error encountered
// (nil if it halted because IP ran off the end of the program).
func (e *Emulator) Run() error {
	for {
		result := e.Step()
		if result.Err != nil {
			return result.Err
		}
		if result.Halted {
			return nil
		}
	}
}

// execute performs the side effect of a single decoded instruction. It
// returns jumped=true when it already updated IP itself (a taken branch),
// so Step should not also increment it.
func (e *Emulator) execute(inst *insts.Instruction) (jumped bool, err error) {
	switch inst.Op {
	case insts.InstMove:
		v, err := e.readOperand(inst.Source, inst.Wide)
		if err != nil {
			return false, err
		}
		return false, e.writeOperand(inst.Dest, inst.Wide, v)

	case insts.InstAdd, insts.InstSub, insts.InstCompare:
		return false, e.executeArith(inst)

	case insts.InstJump:
		return e.executeJump(inst)

	case insts.InstInterrupt:
		e.lastInterruptVector = inst.Vector
		e.hasInterrupt = true
		return false, nil

	default:
		return false, fmt.Errorf("%w: unhandled instruction kind %v", ErrInvalidOperand, inst.Op)
	}
}

func (e *Emulator) executeArith(inst *insts.Instruction) error {
	a, err := e.readOperand(inst.Dest, inst.Wide)
	if err != nil {
		return err
	}
	b, err := e.readOperand(inst.Source, inst.Wide)
	if err != nil {
		return err
	}

	var flags Flags
	var result uint16
	m := mask(inst.Wide)
	if inst.Op == insts.InstAdd {
		flags = ComputeAddFlags(a, b, inst.Wide)
		result = (a + b) & m
	} else {
		flags = ComputeSubFlags(a, b, inst.Wide)
		result = (a - b) & m
	}
	e.regs.SetFlags(flags)

	if inst.Op == insts.InstCompare {
		return nil
	}
	return e.writeOperand(inst.Dest, inst.Wide, result)
}

func (e *Emulator) executeJump(inst *insts.Instruction) (bool, error) {
	taken := EvaluateBranch(e.regs, inst.Cond, e.regs.Flags())
	if !taken {
		return false, nil
	}
	if inst.TargetIndex < 0 {
		return false, fmt.Errorf("%w: jump at instruction has no resolved target", insts.ErrUnresolvableBranchTarget)
	}
	e.regs.SetIP(uint16(inst.TargetIndex))
	return true, nil
}

// readOperand resolves an operand's value: a register read, the stored
// immediate, or a memory read sized by wide.
func (e *Emulator) readOperand(op insts.Operand, wide bool) (uint16, error) {
	switch op.Kind {
	case insts.OperandRegister:
		return e.regs.ReadReg(op.Reg), nil
	case insts.OperandImmediate:
		return op.Imm, nil
	case insts.OperandMemory:
		addr := EffectiveAddr(e.regs, op.EA, op.Disp)
		if wide {
			return e.memory.ReadWord(addr), nil
		}
		return uint16(e.memory.ReadByte(addr)), nil
	default:
		return 0, invalidOperandError("read")
	}
}

// writeOperand is the dual of readOperand. Writing to an immediate or an
// unset operand is a programming error.
func (e *Emulator) writeOperand(op insts.Operand, wide bool, value uint16) error {
	switch op.Kind {
	case insts.OperandRegister:
		e.regs.WriteReg(op.Reg, value)
		return nil
	case insts.OperandMemory:
		addr := EffectiveAddr(e.regs, op.EA, op.Disp)
		if wide {
			e.memory.WriteWord(addr, value)
		} else {
			e.memory.WriteByte(addr, byte(value))
		}
		return nil
	default:
		return invalidOperandError("write")
	}
}
