package trajectory

import (
	"fmt"

	ts "github.com/samuelfneumann/pgcore/timestep"
	"gonum.org/v1/gonum/mat"
)

// Recorder records the timesteps of an agent-environment interaction
// into Trajectories. Each completed path is closed with a terminal
// marker of 1 at its final transition and 0 everywhere else.
//
// A Recorder is used in the following way:
//
//	r.ObserveFirst(step)
//	for !step.Last() {
//		step = env.Step(action)
//		r.Observe(action, step)
//	}
//	trajs := r.Trajectories()
type Recorder struct {
	obsSize    int
	actionSize int

	prevStep ts.TimeStep
	started  bool

	// Buffers for the current path
	obsBuffer [][]float64
	actBuffer [][]float64
	rewBuffer []float64

	completed []Trajectory
}

// NewRecorder returns a new Recorder for observations and actions of
// the given dimensions.
func NewRecorder(obsDim, actDim int) *Recorder {
	return &Recorder{
		obsSize:    obsDim,
		actionSize: actDim,
	}
}

// ObserveFirst observes the first timestep of a path. Any transitions
// of an unfinished path are discarded.
func (r *Recorder) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep %d is not the first "+
			"timestep of an episode", t.Number)
	}
	if t.Observation == nil || t.Observation.Len() != r.obsSize {
		return fmt.Errorf("observeFirst: illegal obs length \n\twant(%v)",
			r.obsSize)
	}

	r.clearPath()
	r.prevStep = t
	r.started = true
	return nil
}

// Observe records that taking action in the previously observed
// timestep led to nextStep. If nextStep is the last step of the
// episode, the current path is finished.
func (r *Recorder) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if !r.started {
		return fmt.Errorf("observe: ObserveFirst must be called first")
	}
	if action.Len() != r.actionSize {
		return fmt.Errorf("observe: illegal act length \n\twant(%v)"+
			"\n\thave(%v)", r.actionSize, action.Len())
	}
	if !nextStep.Last() && (nextStep.Observation == nil ||
		nextStep.Observation.Len() != r.obsSize) {
		return fmt.Errorf("observe: illegal obs length \n\twant(%v)",
			r.obsSize)
	}

	act := make([]float64, action.Len())
	for i := range act {
		act[i] = action.AtVec(i)
	}

	r.obsBuffer = append(r.obsBuffer, r.prevStep.ObservationData())
	r.actBuffer = append(r.actBuffer, act)
	r.rewBuffer = append(r.rewBuffer, nextStep.Reward)

	r.prevStep = nextStep
	if nextStep.Last() {
		r.finishPath()
	}
	return nil
}

// finishPath closes the current path and stores it as a completed
// Trajectory.
func (r *Recorder) finishPath() {
	terminals := make([]float64, len(r.rewBuffer))
	if len(terminals) > 0 {
		terminals[len(terminals)-1] = 1.0
	}

	if len(r.rewBuffer) > 0 {
		r.completed = append(r.completed, Trajectory{
			Observations: r.obsBuffer,
			Actions:      r.actBuffer,
			Rewards:      r.rewBuffer,
			Terminals:    terminals,
		})
	}

	r.clearPath()
	r.started = false
}

func (r *Recorder) clearPath() {
	r.obsBuffer = nil
	r.actBuffer = nil
	r.rewBuffer = nil
}

// Trajectories returns a copy of all completed trajectories
func (r *Recorder) Trajectories() []Trajectory {
	trajs := make([]Trajectory, len(r.completed))
	for i, t := range r.completed {
		trajs[i] = Trajectory{
			Observations: copyRows(t.Observations),
			Actions:      copyRows(t.Actions),
			Rewards:      append([]float64{}, t.Rewards...),
			Terminals:    append([]float64{}, t.Terminals...),
		}
	}
	return trajs
}

func copyRows(rows [][]float64) [][]float64 {
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = append([]float64{}, row...)
	}
	return out
}

// Steps returns the number of transitions stored in completed
// trajectories
func (r *Recorder) Steps() int {
	steps := 0
	for _, t := range r.completed {
		steps += t.Len()
	}
	return steps
}

// Reset removes all completed trajectories and the current path
func (r *Recorder) Reset() {
	r.completed = nil
	r.clearPath()
	r.started = false
}
