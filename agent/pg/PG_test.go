package pg

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const tolerance = 1e-10

// fakePolicy records the arguments of each update
type fakePolicy struct {
	ctx *backend.Context
	err error

	calls      int
	obs        []float64
	actions    []float64
	advantages []float64
}

func (p *fakePolicy) Backend() *backend.Context { return p.ctx }

func (p *fakePolicy) Update(obs, actions, adv []float64) (agent.Info, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.calls++
	p.obs = append([]float64{}, obs...)
	p.actions = append([]float64{}, actions...)
	p.advantages = append([]float64{}, adv...)
	return agent.Info{agent.ActorLoss: 0.5}, nil
}

// fakeBaseline predicts a constant value and records its updates
type fakeBaseline struct {
	ctx   *backend.Context
	value float64
	short bool

	forwards int
	obs      [][]float64
	targets  [][]float64
}

func (b *fakeBaseline) Backend() *backend.Context { return b.ctx }

func (b *fakeBaseline) Forward(obs []float64) ([]float64, error) {
	b.forwards++
	n := len(obs) // Single feature observations
	if b.short {
		n--
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = b.value
	}
	return out, nil
}

func (b *fakeBaseline) Update(obs, targets []float64) (agent.Info, error) {
	b.obs = append(b.obs, append([]float64{}, obs...))
	b.targets = append(b.targets, append([]float64{}, targets...))
	return agent.Info{agent.BaselineLoss: float64(len(b.targets))}, nil
}

// batch returns two trajectories of single feature observations with
// rewards [[1, 1], [2]]
func batch() (obs, acts [][][]float64, rews, terms [][]float64) {
	obs = [][][]float64{{{0}, {1}}, {{2}}}
	acts = [][][]float64{{{1}, {0}}, {{1}}}
	rews = [][]float64{{1, 1}, {2}}
	terms = [][]float64{{0, 1}, {1}}
	return
}

func lambda(l float64) *float64 {
	return &l
}

func TestRewardToGoWithoutBaseline(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}

	learner, err := New(ctx, Config{Gamma: 0.9, RewardToGo: true}, pol, nil)
	require.NoError(t, err)

	info, err := learner.Update(batch())
	require.NoError(t, err)

	assert.Equal(t, 1, pol.calls)
	assert.InDeltaSlice(t, []float64{1.9, 1, 2}, pol.advantages, tolerance)
	assert.Equal(t, []float64{0, 1, 2}, pol.obs)
	assert.Equal(t, []float64{1, 0, 1}, pol.actions)
	assert.Equal(t, agent.Info{agent.ActorLoss: 0.5}, info)
}

func TestFullReturn(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}

	learner, err := New(ctx, Config{Gamma: 1}, pol, nil)
	require.NoError(t, err)

	_, err = learner.Update(
		[][][]float64{{{0}, {1}, {2}}},
		[][][]float64{{{0}, {0}, {0}}},
		[][]float64{{1, 2, 3}},
		[][]float64{{0, 0, 1}},
	)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{6, 6, 6}, pol.advantages, tolerance)
}

func TestBaselineStepsReuseBatch(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx, value: 0.5}

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		RewardToGo:        true,
		UseBaseline:       true,
		BaselineGradSteps: 3,
	}, pol, base)
	require.NoError(t, err)

	info, err := learner.Update(batch())
	require.NoError(t, err)

	assert.Equal(t, 1, pol.calls)
	assert.InDeltaSlice(t, []float64{1.4, 0.5, 1.5}, pol.advantages,
		tolerance)

	require.Len(t, base.targets, 3)
	for i := range base.targets {
		assert.Equal(t, []float64{0, 1, 2}, base.obs[i])
		assert.InDeltaSlice(t, []float64{1.9, 1, 2}, base.targets[i],
			tolerance)
	}

	// The info of the final baseline step is reported
	assert.Equal(t, 0.5, info[agent.ActorLoss])
	assert.Equal(t, 3.0, info[agent.BaselineLoss])
}

func TestGAE(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx, value: 0}

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		UseBaseline:       true,
		BaselineGradSteps: 1,
		Lambda:            lambda(1),
	}, pol, base)
	require.NoError(t, err)

	_, err = learner.Update(batch())
	require.NoError(t, err)

	// With a zero baseline and λ = 1, GAE is the reward-to-go
	assert.InDeltaSlice(t, []float64{1.9, 1, 2}, pol.advantages, tolerance)
	assert.Equal(t, 1, base.forwards)
	require.Len(t, base.targets, 1)
}

func TestNormalizedAdvantages(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}

	learner, err := New(ctx, Config{
		Gamma:               0.9,
		RewardToGo:          true,
		NormalizeAdvantages: true,
	}, pol, nil)
	require.NoError(t, err)

	_, err = learner.Update(batch())
	require.NoError(t, err)

	sum := 0.0
	for _, a := range pol.advantages {
		sum += a
	}
	assert.InDelta(t, 0, sum, 1e-9)
}

func TestMalformedBatchChangesNothing(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx}

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		UseBaseline:       true,
		BaselineGradSteps: 2,
	}, pol, base)
	require.NoError(t, err)

	obs, acts, rews, terms := batch()
	rews[0] = []float64{1}
	_, err = learner.Update(obs, acts, rews, terms)
	require.Error(t, err)

	obs, acts, rews, terms = batch()
	_, err = learner.Update(obs, acts, rews[:1], terms)
	require.Error(t, err)

	assert.Zero(t, pol.calls)
	assert.Empty(t, base.targets)
}

func TestBaselineShapeMismatchChangesNothing(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx, short: true}

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		UseBaseline:       true,
		BaselineGradSteps: 2,
	}, pol, base)
	require.NoError(t, err)

	_, err = learner.Update(batch())
	require.Error(t, err)
	assert.Zero(t, pol.calls)
	assert.Empty(t, base.targets)
}

func TestPolicyErrorSkipsBaseline(t *testing.T) {
	ctx := backend.New(0)
	cause := errors.New("nan loss")
	pol := &fakePolicy{ctx: ctx, err: cause}
	base := &fakeBaseline{ctx: ctx}

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		UseBaseline:       true,
		BaselineGradSteps: 2,
	}, pol, base)
	require.NoError(t, err)

	_, err = learner.Update(batch())
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, base.targets)
}

func TestNewRejectsInvalidConfigurations(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx}

	tests := map[string]struct {
		ctx  *backend.Context
		cfg  Config
		pol  agent.Policy
		base agent.ValueBaseline
	}{
		"gamma below zero": {ctx, Config{Gamma: -0.5}, pol, nil},
		"gamma above one":  {ctx, Config{Gamma: 1.5}, pol, nil},
		"lambda without baseline": {
			ctx, Config{Gamma: 1, Lambda: lambda(0.9)}, pol, nil,
		},
		"lambda out of range": {
			ctx,
			Config{Gamma: 1, UseBaseline: true, BaselineGradSteps: 1,
				Lambda: lambda(1.1)},
			pol, base,
		},
		"no baseline steps": {
			ctx, Config{Gamma: 1, UseBaseline: true}, pol, base,
		},
		"missing baseline": {
			ctx, Config{Gamma: 1, UseBaseline: true, BaselineGradSteps: 1},
			pol, nil,
		},
		"unused baseline": {ctx, Config{Gamma: 1}, pol, base},
		"nil policy":      {ctx, Config{Gamma: 1}, nil, nil},
		"nil backend":     {nil, Config{Gamma: 1}, pol, nil},
		"policy on another backend": {
			backend.New(0), Config{Gamma: 1}, pol, nil,
		},
		"baseline on another backend": {
			ctx,
			Config{Gamma: 1, UseBaseline: true, BaselineGradSteps: 1},
			pol, &fakeBaseline{ctx: backend.New(1)},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := New(test.ctx, test.cfg, test.pol, test.base)
			require.Error(t, err)
			assert.True(t, IsConfig(err))
		})
	}
}

func TestUpdateLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}

	learner, err := New(ctx, Config{Gamma: 0.9, RewardToGo: true}, pol, nil,
		WithLogger(zap.New(core)))
	require.NoError(t, err)

	_, err = learner.Update(batch())
	require.NoError(t, err)

	entries := logs.FilterMessage("policy gradient update").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(2), fields["trajectories"])
	assert.Equal(t, int64(3), fields["transitions"])
	assert.Equal(t, 0.5, fields[agent.ActorLoss])

	obs, acts, rews, terms := batch()
	_, err = learner.Update(obs, acts, rews, terms[:1])
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("policy gradient update failed").
		FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestUpdateMetrics(t *testing.T) {
	ctx := backend.New(0)
	pol := &fakePolicy{ctx: ctx}
	base := &fakeBaseline{ctx: ctx}
	recorder := metrics.NewRecorder()

	learner, err := New(ctx, Config{
		Gamma:             0.9,
		UseBaseline:       true,
		BaselineGradSteps: 2,
	}, pol, base, WithMetrics(recorder))
	require.NoError(t, err)

	_, err = learner.Update(batch())
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.UpdatesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(recorder.BatchSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.BatchTrajectories))
	assert.Equal(t, 0.5, testutil.ToFloat64(recorder.PolicyLoss))
	assert.Equal(t, 2.0, testutil.ToFloat64(recorder.BaselineLoss))

	obs, acts, rews, terms := batch()
	_, err = learner.Update(obs[:1], acts, rews, terms)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.UpdateErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(recorder.UpdatesTotal))
}
