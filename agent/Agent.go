// Package agent defines the contracts between a policy gradient
// learner and the function approximators it trains.
package agent

// Policy is a trainable policy that a policy gradient learner updates.
//
// Observations and actions are given in row major order, one row per
// sample, and advantages hold one value per sample. Each call to
// Update takes exactly one gradient step on the policy's weights.
type Policy interface {
	// Update updates the policy once to increase the log probability
	// of actions in proportion to their advantages, returning
	// diagnostics of the update.
	Update(obs, actions, advantages []float64) (Info, error)
}

// ValueBaseline is a trainable state value function used as a baseline
// to reduce the variance of advantage estimates.
type ValueBaseline interface {
	// Forward predicts the value of each observation. Observations are
	// given in row major order and one prediction is returned per row.
	// Forward does not change the baseline.
	Forward(obs []float64) ([]float64, error)

	// Update takes a single gradient step on the squared error
	// between the baseline's predictions and targets, returning
	// diagnostics of the update.
	Update(obs, targets []float64) (Info, error)
}

// Learner is anything that can be trained with a set of trajectories,
// given as per-trajectory observations, actions, rewards, and terminal
// markers.
type Learner interface {
	Update(obs, actions [][][]float64, rewards,
		terminals [][]float64) (Info, error)
}
