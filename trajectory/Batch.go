package trajectory

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/utils/matutils"
)

// Batch is the concatenation of all trajectories used in a single
// training step. Observations and Actions are stored in row major
// order so that they can be bound directly to the input nodes of a
// computational graph. All arrays share the same leading length.
type Batch struct {
	ObsDim int
	ActDim int

	Observations []float64
	Actions      []float64
	Rewards      []float64
	Terminals    []float64
	QValues      []float64

	// Lengths holds the length of each trajectory in the batch, in the
	// order the trajectories were flattened
	Lengths []int
}

// Len returns the number of transitions in the batch
func (b *Batch) Len() int {
	return len(b.Rewards)
}

// Trajectories returns the number of trajectories in the batch
func (b *Batch) Trajectories() int {
	return len(b.Lengths)
}

// Flatten concatenates trajectories and their per-trajectory Q-values
// into a single Batch. The relative order of trajectories, and of
// timesteps within each trajectory, is preserved. The qValues argument
// must have the same shape as the trajectories' rewards.
func Flatten(trajs []Trajectory, qValues [][]float64) (*Batch, error) {
	if len(trajs) == 0 {
		return nil, &Error{Op: "flatten", Err: ErrEmpty}
	}
	if len(qValues) != len(trajs) {
		return nil, &Error{
			Op: "flatten",
			Err: fmt.Errorf("%w: q-values for %d trajectories, have %d "+
				"trajectories", ErrMalformed, len(qValues), len(trajs)),
		}
	}

	obsDim, actDim := trajs[0].ObsDim(), trajs[0].ActDim()
	size := 0
	for i, t := range trajs {
		if err := t.Validate(); err != nil {
			return nil, &Error{
				Op:  "flatten",
				Err: fmt.Errorf("trajectory %d: %w", i, err),
			}
		}
		if t.ObsDim() != obsDim || t.ActDim() != actDim {
			return nil, &Error{
				Op: "flatten",
				Err: fmt.Errorf("%w: trajectory %d has dimensions (%d, %d), "+
					"want (%d, %d)", ErrMalformed, i, t.ObsDim(), t.ActDim(),
					obsDim, actDim),
			}
		}
		if len(qValues[i]) != t.Len() {
			return nil, &Error{
				Op: "flatten",
				Err: fmt.Errorf("%w: trajectory %d q-values \n\twant(%d)"+
					"\n\thave(%d)", ErrMalformed, i, t.Len(), len(qValues[i])),
			}
		}
		size += t.Len()
	}

	b := &Batch{
		ObsDim:       obsDim,
		ActDim:       actDim,
		Observations: make([]float64, 0, size*obsDim),
		Actions:      make([]float64, 0, size*actDim),
		Rewards:      make([]float64, 0, size),
		Terminals:    make([]float64, 0, size),
		QValues:      make([]float64, 0, size),
		Lengths:      make([]int, 0, len(trajs)),
	}

	for i, t := range trajs {
		b.Observations = matutils.RowMajor(b.Observations, t.Observations)
		b.Actions = matutils.RowMajor(b.Actions, t.Actions)
		b.Rewards = append(b.Rewards, t.Rewards...)
		b.Terminals = append(b.Terminals, t.Terminals...)
		b.QValues = append(b.QValues, qValues[i]...)
		b.Lengths = append(b.Lengths, t.Len())
	}

	return b, nil
}
