// Package config provides the toolchain's consumer-supplied settings:
// simulator scheduling/bounds and CLI invocation options (spec.md
// §6.4: "Simulator configuration ... is consumer-supplied, not
// environment-derived"). Grounded on the teacher's
// coreengine/config.PipelineConfig: plain structs with JSON tags and a
// Validate method that fills in defaults and rejects inconsistent
// combinations.
package config

import (
	"fmt"
	"time"
)

// SimulatorConfig configures one simulator run.
type SimulatorConfig struct {
	// Strategy names a simulator.Strategy by its string form
	// ("round-robin", "random", "fair", "manual"); kept as a string here
	// so this package has no dependency on package simulator.
	Strategy string `json:"strategy"`

	MaxSteps    int           `json:"max_steps"`
	RecordTrace bool          `json:"record_trace"`
	Strict      bool          `json:"strict"`
	FIFOCheck   bool          `json:"fifo_check"`
	BufferBound int           `json:"buffer_bound"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultSimulatorConfig returns the configuration the CLI and gRPC
// service fall back to absent explicit overrides.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Strategy:    "round-robin",
		MaxSteps:    10_000,
		RecordTrace: true,
		Strict:      true,
		FIFOCheck:   true,
		BufferBound: 0,
		Timeout:     30 * time.Second,
	}
}

// Validate fills in defaults and rejects inconsistent settings.
func (c *SimulatorConfig) Validate() error {
	if c.Strategy == "" {
		c.Strategy = "round-robin"
	}
	switch c.Strategy {
	case "round-robin", "random", "fair", "manual":
	default:
		return fmt.Errorf("config: unknown scheduling strategy %q", c.Strategy)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.BufferBound < 0 {
		return fmt.Errorf("config: buffer_bound must be >= 0, got %d", c.BufferBound)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("config: timeout must be >= 0, got %s", c.Timeout)
	}
	return nil
}

// CLIConfig configures one `mpst project` invocation (spec.md §6.2).
type CLIConfig struct {
	SourceFile       string `json:"source_file"`
	Role             string `json:"role"` // empty = project every declared role
	OutputDir        string `json:"output_dir"`
	Format           string `json:"format"` // "text", "json", or "both"
	SkipVerification bool   `json:"skip_verification"`
	Stdin            bool   `json:"stdin"`
}

// Validate fills in defaults and rejects inconsistent settings.
func (c *CLIConfig) Validate() error {
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Format == "" {
		c.Format = "text"
	}
	switch c.Format {
	case "text", "json", "both":
	default:
		return fmt.Errorf("config: unknown output format %q", c.Format)
	}
	if !c.Stdin && c.SourceFile == "" {
		return fmt.Errorf("config: source file required unless --stdin is set")
	}
	return nil
}
