package trajectory

import (
	"testing"

	ts "github.com/samuelfneumann/pgcore/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func obs(x ...float64) mat.Vector {
	return mat.NewVecDense(len(x), x)
}

func TestRecorderMarksTerminals(t *testing.T) {
	r := NewRecorder(2, 1)

	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0, 1), 0)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Mid, 1, obs(2, 3), 1)))
	require.NoError(t, r.Observe(obs(0), ts.New(ts.Mid, 1, obs(4, 5), 2)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Last, 3, nil, 3)))

	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(6, 7), 0)))
	require.NoError(t, r.Observe(obs(0), ts.New(ts.Last, -1, obs(8, 9), 1)))

	trajs := r.Trajectories()
	require.Len(t, trajs, 2)
	assert.Equal(t, 4, r.Steps())

	assert.Equal(t, [][]float64{{0, 1}, {2, 3}, {4, 5}}, trajs[0].Observations)
	assert.Equal(t, [][]float64{{1}, {0}, {1}}, trajs[0].Actions)
	assert.Equal(t, []float64{1, 1, 3}, trajs[0].Rewards)
	assert.Equal(t, []float64{0, 0, 1}, trajs[0].Terminals)

	assert.Equal(t, [][]float64{{6, 7}}, trajs[1].Observations)
	assert.Equal(t, []float64{-1}, trajs[1].Rewards)
	assert.Equal(t, []float64{1}, trajs[1].Terminals)

	for _, traj := range trajs {
		assert.NoError(t, traj.Validate())
	}
}

func TestRecorderDiscardsUnfinishedPath(t *testing.T) {
	r := NewRecorder(1, 1)

	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0), 0)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Mid, 1, obs(1), 1)))

	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(5), 0)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Last, 2, nil, 1)))

	trajs := r.Trajectories()
	require.Len(t, trajs, 1)
	assert.Equal(t, [][]float64{{5}}, trajs[0].Observations)
}

func TestRecorderErrors(t *testing.T) {
	r := NewRecorder(2, 1)

	assert.Error(t, r.Observe(obs(1), ts.New(ts.Last, 0, nil, 1)),
		"observe before observeFirst")
	assert.Error(t, r.ObserveFirst(ts.New(ts.Mid, 0, obs(0, 1), 3)),
		"first step of wrong type")
	assert.Error(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0), 0)),
		"wrong observation size")

	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0, 1), 0)))
	assert.Error(t, r.Observe(obs(1, 2), ts.New(ts.Mid, 0, obs(0, 1), 1)),
		"wrong action size")
	assert.Error(t, r.Observe(obs(1), ts.New(ts.Mid, 0, obs(0), 1)),
		"wrong next observation size")
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(1, 1)
	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0), 0)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Last, 2, nil, 1)))
	require.Len(t, r.Trajectories(), 1)

	r.Reset()
	assert.Empty(t, r.Trajectories())
	assert.Equal(t, 0, r.Steps())
	assert.Error(t, r.Observe(obs(1), ts.New(ts.Last, 2, nil, 1)))
}

func TestRecorderTrajectoriesAreCopies(t *testing.T) {
	r := NewRecorder(1, 1)
	require.NoError(t, r.ObserveFirst(ts.New(ts.First, 0, obs(0), 0)))
	require.NoError(t, r.Observe(obs(1), ts.New(ts.Last, 2, nil, 1)))

	trajs := r.Trajectories()
	trajs[0].Rewards[0] = 100
	trajs[0].Observations[0][0] = 100
	trajs[0].Actions[0][0] = 100
	trajs[0].Terminals[0] = 0
	_ = append(trajs, Trajectory{})

	fresh := r.Trajectories()
	require.Len(t, fresh, 1)
	assert.Equal(t, []float64{2}, fresh[0].Rewards)
	assert.Equal(t, [][]float64{{0}}, fresh[0].Observations)
	assert.Equal(t, [][]float64{{1}}, fresh[0].Actions)
	assert.Equal(t, []float64{1}, fresh[0].Terminals)
}
