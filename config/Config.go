// Package config loads the configuration of a policy gradient training
// run.
package config

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/agent/pg"
	"github.com/samuelfneumann/pgcore/baseline"
	"github.com/samuelfneumann/pgcore/initwfn"
	"github.com/samuelfneumann/pgcore/network"
	"github.com/samuelfneumann/pgcore/policy"
	"github.com/samuelfneumann/pgcore/solver"
	"github.com/samuelfneumann/pgcore/utils/logging"
)

// Config holds the complete configuration of a training run
type Config struct {
	Seed     uint64          `koanf:"seed"`
	Env      EnvConfig       `koanf:"env"`
	Agent    pg.Config       `koanf:"agent"`
	Policy   policy.Config   `koanf:"policy"`
	Baseline baseline.Config `koanf:"baseline"`
	Log      logging.Config  `koanf:"log"`
	Metrics  MetricsConfig   `koanf:"metrics"`
}

// EnvConfig describes the observations and actions of the environment
// that trajectories were collected in
type EnvConfig struct {
	ObservationDim int `koanf:"observation_dim"`

	// Actions is the number of discrete actions for a categorical
	// policy and the action dimension for a Gaussian policy
	Actions int `koanf:"actions"`
}

// MetricsConfig configures the Prometheus metrics endpoint
type MetricsConfig struct {
	Addr string `koanf:"addr"` // Empty to disable
}

// Default returns the default configuration: a categorical policy
// trained with reward-to-go and no baseline.
func Default() Config {
	return Config{
		Seed: 1,
		Env: EnvConfig{
			ObservationDim: 4,
			Actions:        2,
		},
		Agent: pg.Config{
			Gamma:             0.99,
			RewardToGo:        true,
			BaselineGradSteps: 1,
		},
		Policy: policy.Config{
			Type:    agent.Categorical,
			Network: defaultNetwork(),
			Solver:  solver.NewDefaultAdam(5e-3),
		},
		Baseline: baseline.Config{
			Network: defaultNetwork(),
			Solver:  solver.NewDefaultAdam(5e-3),
		},
		Log: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// defaultNetwork returns the default network configuration of both
// the policy and the baseline
func defaultNetwork() network.Config {
	return network.Config{
		HiddenSizes: []int{64, 64},
		Activation:  "tanh",
		Init:        initwfn.Config{Type: initwfn.GlorotU, Gain: 1.0},
	}
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Env.ObservationDim <= 0 {
		return fmt.Errorf("env: observation dimension must be positive, "+
			"have(%d)", c.Env.ObservationDim)
	}
	if c.Env.Actions <= 0 {
		return fmt.Errorf("env: actions must be positive, have(%d)",
			c.Env.Actions)
	}
	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Agent.UseBaseline {
		if err := c.Baseline.Validate(); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}
