// Package main provides a command-line demonstrator for the x86sim decoder
// and step engine: decode a raw binary file, resolve its jump targets, run
// it to completion, and print the resulting register state.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/x86sim/emu"
	"github.com/sarchlab/x86sim/insts"
)

var (
	configPath = flag.String("config", "", "path to a simulator configuration JSON file")
	trace      = flag.Bool("trace", false, "print a line per executed instruction")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: x86sim [options] <program.bin>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	os.Exit(run(flag.Arg(0)))
}

func run(programPath string) int {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "x86sim: %v\n", err)
		return 1
	}
	if *trace {
		cfg.Trace = true
	}

	raw, err := os.ReadFile(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "x86sim: failed to read program: %v\n", err)
		return 1
	}

	program, err := insts.Decode(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "x86sim: decode failed: %v\n", err)
		return 1
	}
	if err := insts.ResolveJumps(program); err != nil {
		fmt.Fprintf(os.Stderr, "x86sim: %v\n", err)
		return 1
	}

	e := emu.NewEmulator(emu.WithConfig(cfg), emu.WithStderr(os.Stderr))
	e.Load(program)

	if err := e.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "x86sim: execution failed: %v\n", err)
		dumpState(e)
		return 1
	}

	dumpState(e)
	return 0
}

func loadConfig(path string) (*emu.SimulatorConfig, error) {
	if path == "" {
		return emu.DefaultSimulatorConfig(), nil
	}
	cfg, err := emu.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulator config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator config: %w", err)
	}
	return cfg, nil
}

var generalRegisters = []insts.Register{
	insts.AX, insts.CX, insts.DX, insts.BX,
	insts.SP, insts.BP, insts.SI, insts.DI,
}

var segmentRegisters = []insts.Register{
	insts.CS, insts.DS, insts.SS, insts.ES,
}

func dumpState(e *emu.Emulator) {
	regs := e.RegFile()
	fmt.Printf("IP=%04X FLAGS=%04X\n", regs.IP(), regs.ReadReg(insts.FLAGS))
	for _, r := range generalRegisters {
		fmt.Printf("%s=%04X ", r, regs.ReadReg(r))
	}
	fmt.Println()
	for _, r := range segmentRegisters {
		fmt.Printf("%s=%04X ", r, regs.ReadReg(r))
	}
	fmt.Println()
}
