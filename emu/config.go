package emu

import (
	"encoding/json"
	"fmt"
	"os"
)

// SimulatorConfig holds the knobs that shape a single run of the step
// engine, independent of the decoded program itself.
type SimulatorConfig struct {
	// InitialSP is the value the stack pointer is set to before the first
	// instruction runs. Default: 0xFFFE.
	InitialSP uint16 `json:"initial_sp"`

	// MaxInstructions bounds how many Step calls Run will make before
	// giving up, as a guard against a program whose IP never runs off the
	// end of the decoded list (an unconditional backward jump, say).
	// Zero means unbounded. Default: 1,000,000.
	MaxInstructions uint64 `json:"max_instructions"`

	// Trace enables per-step diagnostic output.
	Trace bool `json:"trace"`
}

// DefaultSimulatorConfig returns a SimulatorConfig with the engine's
// baseline values.
func DefaultSimulatorConfig() *SimulatorConfig {
	return &SimulatorConfig{
		InitialSP:       0xFFFE,
		MaxInstructions: 1_000_000,
		Trace:           false,
	}
}

// LoadConfig reads a SimulatorConfig from a JSON file, starting from the
// defaults so a partial file only overrides the fields it mentions.
func LoadConfig(path string) (*SimulatorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulator config file: %w", err)
	}

	config := DefaultSimulatorConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse simulator config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a SimulatorConfig to a JSON file.
func (c *SimulatorConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize simulator config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write simulator config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a runnable simulation.
// MaxInstructions == 0 is valid and means unbounded.
func (c *SimulatorConfig) Validate() error {
	return nil
}

// Clone returns a deep copy of the SimulatorConfig.
func (c *SimulatorConfig) Clone() *SimulatorConfig {
	return &SimulatorConfig{
		InitialSP:       c.InitialSP,
		MaxInstructions: c.MaxInstructions,
		Trace:           c.Trace,
	}
}
