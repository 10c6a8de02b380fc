// Package policy implements neural network policies that are trained
// with policy gradients.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/network"
	"github.com/samuelfneumann/pgcore/solver"
)

// Config configures a policy
type Config struct {
	Type    agent.PolicyType `koanf:"type"`
	Network network.Config   `koanf:"network"`
	Solver  solver.Config    `koanf:"solver"`

	// InitLogStd is the initial log standard deviation of each action
	// dimension of a Gaussian policy
	InitLogStd float64 `koanf:"init_log_std"`
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("validate: unknown policy type %q", c.Type)
	}
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// New returns the policy described by c for observations with features
// features. For a categorical policy, actions is the number of
// discrete actions; for a Gaussian policy it is the action dimension.
func New(ctx *backend.Context, c Config, features,
	actions int) (agent.Policy, error) {
	switch c.Type {
	case agent.Categorical:
		return NewCategoricalMLP(ctx, c, features, actions)
	case agent.Gaussian:
		return NewGaussianMLP(ctx, c, features, actions)
	}
	return nil, fmt.Errorf("new: unknown policy type %q", c.Type)
}

// ActionDim returns the number of values in a single action taken by a
// policy of type t
func ActionDim(t agent.PolicyType, actions int) int {
	if t == agent.Categorical {
		return 1
	}
	return actions
}

// checkBatch checks that obs and actions hold one row per advantage
// and returns the batch size
func checkBatch(obs, actions, advantages []float64, features,
	actDim int) (int, error) {
	n := len(advantages)
	if n == 0 {
		return 0, fmt.Errorf("update: empty batch")
	}
	if len(obs) != n*features {
		return 0, fmt.Errorf("update: invalid number of observation "+
			"values\n\twant(%d)\n\thave(%d)", n*features, len(obs))
	}
	if len(actions) != n*actDim {
		return 0, fmt.Errorf("update: invalid number of action values"+
			"\n\twant(%d)\n\thave(%d)", n*actDim, len(actions))
	}
	return n, nil
}
