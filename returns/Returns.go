// Package returns implements Monte-Carlo estimators of the Q function
// computed from the rewards of collected trajectories.
package returns

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Mode determines how Q-values are estimated from rewards
type Mode int

const (
	// FullReturn gives every timestep of a trajectory the discounted
	// return of the entire trajectory:
	//
	//	Q(s_t, a_t) = Σ_{t'=0}^{T-1} ℽ^t' r_{t'}
	FullReturn Mode = iota

	// RewardToGo gives each timestep the discounted sum of only the
	// rewards from that timestep onward:
	//
	//	Q(s_t, a_t) = Σ_{t'=t}^{T-1} ℽ^(t'-t) r_{t'}
	RewardToGo
)

func (m Mode) String() string {
	switch m {
	case FullReturn:
		return "FullReturn"
	case RewardToGo:
		return "RewardToGo"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Estimator estimates Q-values for each timestep of a set of
// trajectories
type Estimator struct {
	mode  Mode
	gamma float64
}

// New returns a new Estimator using discount factor gamma ∈ [0, 1]
func New(mode Mode, gamma float64) (*Estimator, error) {
	if gamma < 0 || gamma > 1 {
		return nil, fmt.Errorf("new: discount factor must be in [0, 1], "+
			"have %v", gamma)
	}
	if mode != FullReturn && mode != RewardToGo {
		return nil, fmt.Errorf("new: unknown mode %v", mode)
	}
	return &Estimator{mode: mode, gamma: gamma}, nil
}

// Mode returns the estimation mode
func (e *Estimator) Mode() Mode {
	return e.mode
}

// Gamma returns the discount factor
func (e *Estimator) Gamma() float64 {
	return e.gamma
}

// Estimate returns the Q-values of each timestep of each trajectory.
// The returned slice has the same shape as rewards. Trajectories are
// estimated independently of one another.
func (e *Estimator) Estimate(rewards [][]float64) [][]float64 {
	qValues := make([][]float64, len(rewards))
	for i, r := range rewards {
		switch e.mode {
		case RewardToGo:
			qValues[i] = RewardsToGo(r, e.gamma)
		default:
			ret := DiscountedReturn(r, e.gamma)
			q := make([]float64, len(r))
			for t := range q {
				q[t] = ret
			}
			qValues[i] = q
		}
	}
	return qValues
}

// DiscountedReturn returns the discounted return of a single
// trajectory:
//
//	r0 + ℽ r1 + ℽ^2 r2 + ... + ℽ^(T-1) r(T-1)
func DiscountedReturn(rewards []float64, gamma float64) float64 {
	if len(rewards) == 0 {
		return 0
	}

	discounts := make([]float64, len(rewards))
	discount := 1.0
	for t := range discounts {
		discounts[t] = discount
		discount *= gamma
	}
	return floats.Dot(discounts, rewards)
}

// RewardsToGo returns the discounted reward-to-go of each timestep of a
// single trajectory. See DiscountCumSum.
func RewardsToGo(rewards []float64, gamma float64) []float64 {
	return DiscountCumSum(rewards, gamma)
}

// DiscountCumSum computes and returns the discounted cumulative sum
// of all elements of a slice. Given x = [x0 x1 x2 ... xN] and
// discount ℽ, this function computes and returns:
//
//	[
//		x0 + ℽ x1 + ℽ^2 x2 + ... + ℽ^N xN
//		x1 + ℽ x2 + ... + ℽ^(N-1) xN
//		...
//		xN
//	]
//
// The sums are accumulated in a single backward pass.
func DiscountCumSum(x []float64, discount float64) []float64 {
	cumSums := make([]float64, len(x))

	next := 0.0
	for i := len(x) - 1; i >= 0; i-- {
		next = x[i] + discount*next
		cumSums[i] = next
	}
	return cumSums
}
