package pg

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/advantage"
	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/returns"
)

var _ agent.Config = Config{}

// Config implements a configuration of the policy gradient learner
type Config struct {
	// Gamma is the discount factor ℽ ∈ [0, 1]
	Gamma float64 `koanf:"gamma"`

	// RewardToGo determines whether each transition is credited with
	// the discounted rewards that follow it rather than with the
	// discounted return of its whole trajectory
	RewardToGo bool `koanf:"reward_to_go"`

	UseBaseline       bool `koanf:"use_baseline"`
	BaselineGradSteps int  `koanf:"baseline_gradient_steps"`

	// Lambda is λ for GAE(λ). If nil, GAE is not used. GAE requires a
	// baseline.
	Lambda *float64 `koanf:"gae_lambda"`

	NormalizeAdvantages bool `koanf:"normalize_advantages"`
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("%w: ℽ must be in [0, 1], have(%v)", ErrConfig,
			c.Gamma)
	}

	if c.Lambda != nil {
		if !c.UseBaseline {
			return fmt.Errorf("%w: GAE requires a baseline", ErrConfig)
		}
		if *c.Lambda < 0 || *c.Lambda > 1 {
			return fmt.Errorf("%w: λ must be in [0, 1], have(%v)", ErrConfig,
				*c.Lambda)
		}
	}

	if c.UseBaseline && c.BaselineGradSteps <= 0 {
		return fmt.Errorf("%w: baseline gradient steps must be positive "+
			"when using a baseline, have(%v)", ErrConfig, c.BaselineGradSteps)
	}
	return nil
}

// returnsMode returns the mode of Q-value estimation
func (c Config) returnsMode() returns.Mode {
	if c.RewardToGo {
		return returns.RewardToGo
	}
	return returns.FullReturn
}

// advantageConfig returns the configuration of advantage estimation
func (c Config) advantageConfig() advantage.Config {
	a := advantage.Config{
		Mode:      advantage.NoBaseline,
		Gamma:     c.Gamma,
		Normalize: c.NormalizeAdvantages,
	}

	if c.Lambda != nil {
		a.Mode = advantage.GAE
		a.Lambda = *c.Lambda
	} else if c.UseBaseline {
		a.Mode = advantage.BaselineDiff
	}
	return a
}
