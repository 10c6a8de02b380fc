// Package solver implements configurable Gorgonia Solvers so that they
// can be described in configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	RMSProp Type = "RMSProp"
	Vanilla Type = "Vanilla"
)

// Config describes a Gorgonia Solver. Fields that do not apply to the
// solver Type are ignored.
type Config struct {
	Type     Type    `koanf:"type"`
	StepSize float64 `koanf:"step_size"`
	Epsilon  float64 `koanf:"epsilon"`
	Beta1    float64 `koanf:"beta1"` // Adam
	Beta2    float64 `koanf:"beta2"` // Adam
	Rho      float64 `koanf:"rho"`   // RMSProp
	Clip     float64 `koanf:"clip"`  // <= 0 if no clipping

	// Batch is the size gradients are divided by before each step.
	// Losses that are already means over the batch use a Batch of 1.
	Batch int `koanf:"batch"`
}

// NewDefaultAdam returns a Config of the Adam solver with default
// hyperparameters
func NewDefaultAdam(stepSize float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
		Batch:    1,
	}
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	switch c.Type {
	case Adam, RMSProp, Vanilla:
	default:
		return fmt.Errorf("validate: unknown solver type %q", c.Type)
	}

	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, have(%v)",
			c.StepSize)
	}
	if c.Batch <= 0 {
		return fmt.Errorf("validate: batch must be positive, have(%v)",
			c.Batch)
	}
	return nil
}

// Create returns a new Gorgonia Solver as described by the Config
func (c Config) Create() (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Type {
	case Adam:
		return c.adam(), nil
	case RMSProp:
		return c.rmsProp(), nil
	default:
		return c.vanilla(), nil
	}
}

// String implements the fmt.Stringer interface
func (c Config) String() string {
	return fmt.Sprintf("{%v Solver: step size %v}", c.Type, c.StepSize)
}

// vanilla returns a Gorgonia Vanilla Solver
func (c Config) vanilla() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithBatchSize(float64(c.Batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewVanillaSolver(opts...)
}
