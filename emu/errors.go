package emu

import (
	"errors"
	"fmt"
)

// ErrInvalidOperand is returned when execution attempts to write to an
// immediate operand, or read an operand slot that was never set.
var ErrInvalidOperand = errors.New("invalid operand")

// ErrMemoryOutOfBounds is returned if an effective-address computation ever
// produced an index outside the 64 KiB address space. In this
// implementation every Memory accessor truncates its address into bounds,
// so this error is retained for API completeness and is never returned.
var ErrMemoryOutOfBounds = errors.New("memory access out of bounds")

// ErrInstructionBudgetExceeded is returned by Step when a configured
// SimulatorConfig.MaxInstructions has been reached without the program
// halting on its own.
var ErrInstructionBudgetExceeded = errors.New("instruction budget exceeded")

func invalidOperandError(kind string) error {
	return fmt.Errorf("%w: cannot %s an immediate/unset operand", ErrInvalidOperand, kind)
}
