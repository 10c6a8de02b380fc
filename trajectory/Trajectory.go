// Package trajectory implements the trajectories collected by an
// agent and the flattened batches that a policy gradient update
// consumes.
package trajectory

import (
	"fmt"
)

// Trajectory is a single episode of (observation, action, reward)
// transitions. Row t of Observations and Actions holds the observation
// seen and the action taken at timestep t. Terminals[t] is 1 if t is
// the final transition of the trajectory and 0 otherwise.
//
// Discrete actions are stored as single element rows.
type Trajectory struct {
	Observations [][]float64 `json:"observations"`
	Actions      [][]float64 `json:"actions"`
	Rewards      []float64   `json:"rewards"`
	Terminals    []float64   `json:"terminals"`
}

// Len returns the number of transitions in the trajectory
func (t Trajectory) Len() int {
	return len(t.Rewards)
}

// ObsDim returns the number of features in a single observation
func (t Trajectory) ObsDim() int {
	if len(t.Observations) == 0 {
		return 0
	}
	return len(t.Observations[0])
}

// ActDim returns the number of action dimensions
func (t Trajectory) ActDim() int {
	if len(t.Actions) == 0 {
		return 0
	}
	return len(t.Actions[0])
}

// Validate checks that all arrays of the trajectory share the same
// length and that observation and action rows are not ragged.
func (t Trajectory) Validate() error {
	n := t.Len()
	if n == 0 {
		return &Error{Op: "validate", Err: ErrEmpty}
	}

	if len(t.Observations) != n || len(t.Actions) != n ||
		len(t.Terminals) != n {
		return &Error{
			Op: "validate",
			Err: fmt.Errorf("%w: length mismatch \n\tobservations(%d)"+
				"\n\tactions(%d)\n\trewards(%d)\n\tterminals(%d)",
				ErrMalformed, len(t.Observations), len(t.Actions), n,
				len(t.Terminals)),
		}
	}

	obsDim, actDim := t.ObsDim(), t.ActDim()
	for i := 0; i < n; i++ {
		if len(t.Observations[i]) != obsDim {
			return &Error{
				Op: "validate",
				Err: fmt.Errorf("%w: ragged observation at step %d "+
					"\n\twant(%d)\n\thave(%d)", ErrMalformed, i, obsDim,
					len(t.Observations[i])),
			}
		}
		if len(t.Actions[i]) != actDim {
			return &Error{
				Op: "validate",
				Err: fmt.Errorf("%w: ragged action at step %d "+
					"\n\twant(%d)\n\thave(%d)", ErrMalformed, i, actDim,
					len(t.Actions[i])),
			}
		}
	}
	return nil
}

// Split splits a list of trajectories into per-trajectory observation,
// action, reward, and terminal lists.
func Split(trajs []Trajectory) (obs, acts [][][]float64, rews,
	terms [][]float64) {
	obs = make([][][]float64, len(trajs))
	acts = make([][][]float64, len(trajs))
	rews = make([][]float64, len(trajs))
	terms = make([][]float64, len(trajs))

	for i, t := range trajs {
		obs[i] = t.Observations
		acts[i] = t.Actions
		rews[i] = t.Rewards
		terms[i] = t.Terminals
	}
	return
}

// Zip zips per-trajectory observation, action, reward, and terminal
// lists into trajectories. Every returned trajectory is validated.
func Zip(obs, acts [][][]float64, rews, terms [][]float64) ([]Trajectory,
	error) {
	n := len(rews)
	if len(obs) != n || len(acts) != n || len(terms) != n {
		return nil, &Error{
			Op: "zip",
			Err: fmt.Errorf("%w: number of trajectories differs "+
				"\n\tobservations(%d)\n\tactions(%d)\n\trewards(%d)"+
				"\n\tterminals(%d)", ErrMalformed, len(obs), len(acts), n,
				len(terms)),
		}
	}

	trajs := make([]Trajectory, n)
	for i := range trajs {
		trajs[i] = Trajectory{
			Observations: obs[i],
			Actions:      acts[i],
			Rewards:      rews[i],
			Terminals:    terms[i],
		}
		if err := trajs[i].Validate(); err != nil {
			return nil, &Error{
				Op:  "zip",
				Err: fmt.Errorf("trajectory %d: %w", i, err),
			}
		}
	}
	return trajs, nil
}
