// Package timestep implements timesteps of the agent-environment
// interaction as they are handed to a trajectory recorder.
package timestep

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/utils/matutils"
	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment. The
// Reward is the reward received on the transition into the TimeStep.
type TimeStep struct {
	stepType    StepType
	Reward      float64
	Observation mat.Vector
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, o, n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

// Type returns the StepType of the TimeStep
func (t *TimeStep) Type() StepType {
	return t.stepType
}

// ObservationData returns a copy of the observation as a slice
func (t *TimeStep) ObservationData() []float64 {
	if t.Observation == nil {
		return nil
	}
	data := make([]float64, t.Observation.Len())
	for i := range data {
		data[i] = t.Observation.AtVec(i)
	}
	return data
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Step Number:  %v" +
		"  |  Observation: %v"

	obs := "[]"
	if t.Observation != nil {
		obs = matutils.Format(t.Observation.T())
	}
	return fmt.Sprintf(str, t.stepType, t.Reward, t.Number, obs)
}
