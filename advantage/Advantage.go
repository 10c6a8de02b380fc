// Package advantage implements advantage estimation for policy
// gradient methods. Advantages are estimated on flattened batches,
// where trajectory boundaries are known only through terminal markers.
package advantage

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/trajectory"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// For stability, the standard deviation used in standardization is
// offset from 0.
const stdOffset float64 = 1e-8

// Mode determines how advantages are estimated
type Mode int

const (
	// NoBaseline uses the Q-values as advantages
	NoBaseline Mode = iota

	// BaselineDiff subtracts the baseline's value prediction from the
	// Q-values
	BaselineDiff

	// GAE uses generalized advantage estimation, GAE(λ), following
	// https://arxiv.org/abs/1506.02438
	GAE
)

func (m Mode) String() string {
	switch m {
	case NoBaseline:
		return "NoBaseline"
	case BaselineDiff:
		return "BaselineDiff"
	case GAE:
		return "GAE"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config configures an Estimator
type Config struct {
	Mode Mode

	Gamma  float64 // Discount factor ℽ, used only by GAE
	Lambda float64 // λ for GAE(λ), used only by GAE

	// Normalize denotes whether advantages are standardized to mean 0
	// and standard deviation 1 within each batch
	Normalize bool
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	switch c.Mode {
	case NoBaseline, BaselineDiff:
	case GAE:
		if c.Gamma < 0 || c.Gamma > 1 {
			return fmt.Errorf("%w: ℽ must be in [0, 1], have %v", ErrConfig,
				c.Gamma)
		}
		if c.Lambda < 0 || c.Lambda > 1 {
			return fmt.Errorf("%w: λ must be in [0, 1], have %v", ErrConfig,
				c.Lambda)
		}
	default:
		return fmt.Errorf("%w: unknown mode %v", ErrConfig, c.Mode)
	}
	return nil
}

// Estimator estimates advantages for a flattened batch of
// trajectories
type Estimator struct {
	Config
	baseline agent.ValueBaseline
}

// New returns a new Estimator. The baseline must be non-nil exactly
// when the mode uses a baseline.
func New(c Config, baseline agent.ValueBaseline) (*Estimator, error) {
	if err := c.Validate(); err != nil {
		return nil, &Error{Op: "new", Err: err}
	}

	if c.Mode == NoBaseline && baseline != nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: baseline given with mode %v", ErrConfig, c.Mode),
		}
	} else if c.Mode != NoBaseline && baseline == nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: mode %v requires a baseline", ErrConfig, c.Mode),
		}
	}

	return &Estimator{Config: c, baseline: baseline}, nil
}

// Estimate returns the advantage of each transition in the batch,
// computed from the batch's Q-values, rewards, terminals, and
// observations.
func (e *Estimator) Estimate(b *trajectory.Batch) ([]float64, error) {
	var advantages []float64

	switch e.Mode {
	case NoBaseline:
		advantages = make([]float64, len(b.QValues))
		copy(advantages, b.QValues)

	case BaselineDiff:
		values, err := e.values(b)
		if err != nil {
			return nil, err
		}
		advantages = floats.SubTo(make([]float64, len(b.QValues)),
			b.QValues, values)

	case GAE:
		values, err := e.values(b)
		if err != nil {
			return nil, err
		}
		if len(b.Rewards) != len(values) || len(b.Terminals) != len(values) {
			return nil, &Error{
				Op: "estimate",
				Err: fmt.Errorf("%w: rewards(%d) terminals(%d) values(%d)",
					ErrShapeMismatch, len(b.Rewards), len(b.Terminals),
					len(values)),
			}
		}
		advantages = GeneralizedAdvantages(b.Rewards, values, b.Terminals,
			e.Gamma, e.Lambda)
	}

	if e.Normalize {
		Standardize(advantages)
	}
	return advantages, nil
}

// values returns the baseline's predicted values for the batch
func (e *Estimator) values(b *trajectory.Batch) ([]float64, error) {
	values, err := e.baseline.Forward(b.Observations)
	if err != nil {
		return nil, &Error{
			Op:  "estimate",
			Err: fmt.Errorf("could not predict values: %w", err),
		}
	}

	if len(values) != len(b.QValues) {
		return nil, &Error{
			Op: "estimate",
			Err: fmt.Errorf("%w: baseline predictions \n\twant(%d)"+
				"\n\thave(%d)", ErrShapeMismatch, len(b.QValues), len(values)),
		}
	}
	return values, nil
}

// GeneralizedAdvantages computes GAE(λ) advantages backward over a
// flattened batch:
//
//	δ_i = r_i + ℽ V(s_{i+1}) (1 - d_i) - V(s_i)
//	A_i = δ_i + ℽ λ A_{i+1} (1 - d_i)
//
// where d_i is the terminal marker of transition i. Beyond the end of
// the batch both V and A are taken to be 0. The terminal mask stops
// bootstrapping and advantage carry-over at each trajectory boundary.
func GeneralizedAdvantages(rewards, values, terminals []float64, gamma,
	lambda float64) []float64 {
	batchSize := len(rewards)

	// Dummy value past the end of the batch; it is always masked
	values = append(values[:batchSize:batchSize], 0)
	advantages := make([]float64, batchSize)

	nextAdvantage := 0.0
	for i := batchSize - 1; i >= 0; i-- {
		notDone := 1 - terminals[i]
		delta := rewards[i] + gamma*values[i+1]*notDone - values[i]
		advantages[i] = delta + gamma*lambda*nextAdvantage*notDone
		nextAdvantage = advantages[i]
	}

	return advantages
}

// Standardize standardizes x in place to have mean 0 and standard
// deviation 1. The population standard deviation is offset by a small
// constant to avoid division by zero.
func Standardize(x []float64) {
	if len(x) == 0 {
		return
	}

	mean := stat.Mean(x, nil)
	std := math.Sqrt(stat.Moment(2, x, nil)) + stdOffset

	floats.AddConst(-mean, x)
	floats.Scale(1/std, x)
}
