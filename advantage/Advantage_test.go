package advantage

import (
	"errors"
	"math"
	"testing"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/trajectory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

const tolerance = 1e-9

// tableBaseline predicts a fixed value for each observation, where
// observations are single features holding an index into values
type tableBaseline struct {
	values []float64
	err    error
	calls  int
}

func (b *tableBaseline) Forward(obs []float64) ([]float64, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	out := make([]float64, len(obs))
	for i, o := range obs {
		out[i] = b.values[int(o)]
	}
	return out, nil
}

func (b *tableBaseline) Update(obs, targets []float64) (agent.Info, error) {
	return nil, errors.New("not trainable")
}

// shortBaseline always predicts one value too few
type shortBaseline struct{}

func (shortBaseline) Forward(obs []float64) ([]float64, error) {
	return make([]float64, len(obs)-1), nil
}

func (shortBaseline) Update(obs, targets []float64) (agent.Info, error) {
	return nil, nil
}

// batch returns a batch whose observations index the transitions
func batch(rewards, terminals, qValues []float64) *trajectory.Batch {
	obs := make([]float64, len(rewards))
	for i := range obs {
		obs[i] = float64(i)
	}
	return &trajectory.Batch{
		ObsDim:       1,
		ActDim:       1,
		Observations: obs,
		Actions:      make([]float64, len(rewards)),
		Rewards:      rewards,
		Terminals:    terminals,
		QValues:      qValues,
	}
}

func TestNoBaselineIsIdentity(t *testing.T) {
	est, err := New(Config{Mode: NoBaseline}, nil)
	require.NoError(t, err)

	q := []float64{1.9, 1, 2}
	b := batch([]float64{1, 1, 2}, []float64{0, 1, 1}, q)

	adv, err := est.Estimate(b)
	require.NoError(t, err)
	assert.Equal(t, q, adv)

	// The Q-values must not be aliased
	adv[0] = 100
	assert.Equal(t, 1.9, b.QValues[0])
}

func TestBaselineDiff(t *testing.T) {
	base := &tableBaseline{values: []float64{0.5, 0.25, 3}}
	est, err := New(Config{Mode: BaselineDiff}, base)
	require.NoError(t, err)

	adv, err := est.Estimate(batch([]float64{1, 1, 2}, []float64{0, 1, 1},
		[]float64{1.9, 1, 2}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.4, 0.75, -1}, adv, tolerance)
}

func TestBaselineDiffShapeMismatch(t *testing.T) {
	est, err := New(Config{Mode: BaselineDiff}, shortBaseline{})
	require.NoError(t, err)

	_, err = est.Estimate(batch([]float64{1, 1}, []float64{0, 1},
		[]float64{1, 1}))
	require.Error(t, err)
	assert.True(t, IsShapeMismatch(err))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGAEShapeMismatch(t *testing.T) {
	est, err := New(Config{Mode: GAE, Gamma: 0.9, Lambda: 0.9},
		shortBaseline{})
	require.NoError(t, err)

	_, err = est.Estimate(batch([]float64{1, 1}, []float64{0, 1},
		[]float64{1, 1}))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestBaselineErrorIsWrapped(t *testing.T) {
	cause := errors.New("device lost")
	est, err := New(Config{Mode: GAE, Gamma: 1, Lambda: 1},
		&tableBaseline{err: cause})
	require.NoError(t, err)

	_, err = est.Estimate(batch([]float64{1}, []float64{1}, []float64{1}))
	assert.ErrorIs(t, err, cause)
}

func TestGAELambdaZeroIsTDResidual(t *testing.T) {
	rewards := []float64{1, -2, 0.5, 3, 1}
	values := []float64{0.3, 1.2, -0.7, 2, 0.1}
	terminals := []float64{0, 0, 1, 0, 1}
	gamma := 0.95

	adv := GeneralizedAdvantages(rewards, values, terminals, gamma, 0)
	for i := range rewards {
		next := 0.0
		if i+1 < len(values) {
			next = values[i+1]
		}
		delta := rewards[i] + gamma*next*(1-terminals[i]) - values[i]
		assert.InDelta(t, delta, adv[i], tolerance, "index %d", i)
	}
}

func TestGAELambdaOneIsRewardToGoMinusBaseline(t *testing.T) {
	rewards := []float64{1, 2, 3, -1, 4}
	values := []float64{0.5, 0.1, 2, 1, -3}
	terminals := []float64{0, 0, 1, 0, 1}
	gamma := 0.9

	// Reward-to-go per trajectory: [1+0.9*2+0.81*3, 2+0.9*3, 3], [-1+0.9*4, 4]
	rtg := []float64{1 + 0.9*2 + 0.81*3, 2 + 0.9*3, 3, -1 + 0.9*4, 4}

	adv := GeneralizedAdvantages(rewards, values, terminals, gamma, 1)
	for i := range adv {
		assert.InDelta(t, rtg[i]-values[i], adv[i], tolerance, "index %d", i)
	}
}

func TestGAEIndependentAcrossTrajectories(t *testing.T) {
	values := []float64{0.5, 0.1, 2, 1, -3}
	terminals := []float64{0, 0, 1, 0, 1}

	a := GeneralizedAdvantages([]float64{1, 2, 3, -1, 4}, values, terminals,
		0.99, 0.95)
	b := GeneralizedAdvantages([]float64{1, 2, 3, 50, -40}, values,
		terminals, 0.99, 0.95)
	assert.Equal(t, a[:3], b[:3])

	c := GeneralizedAdvantages([]float64{-8, 0, 7, -1, 4}, values,
		terminals, 0.99, 0.95)
	assert.Equal(t, a[3:], c[3:])
}

func TestGAEDoesNotModifyValues(t *testing.T) {
	values := make([]float64, 3, 10)
	copy(values, []float64{1, 2, 3})
	full := values[:4]
	full[3] = 42

	GeneralizedAdvantages([]float64{1, 1, 1}, values, []float64{0, 0, 1},
		0.9, 0.9)
	assert.Equal(t, 42.0, full[3])
	assert.Equal(t, []float64{1, 2, 3}, values)
}

func TestGAEEstimate(t *testing.T) {
	base := &tableBaseline{values: []float64{1, 2}}
	est, err := New(Config{Mode: GAE, Gamma: 0.5, Lambda: 0.5}, base)
	require.NoError(t, err)

	// δ1 = 4 - 2 = 2; δ0 = 3 + 0.5*2 - 1 = 3; A0 = 3 + 0.25*2 = 3.5
	adv, err := est.Estimate(batch([]float64{3, 4}, []float64{0, 1},
		[]float64{5, 4}))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3.5, 2}, adv, tolerance)
	assert.Equal(t, 1, base.calls)
}

func TestStandardize(t *testing.T) {
	x := []float64{1, 2, 3, 4, 10}
	Standardize(x)

	assert.InDelta(t, 0, stat.Mean(x, nil), tolerance)
	assert.InDelta(t, 1, math.Sqrt(stat.Moment(2, x, nil)), 1e-6)
}

func TestStandardizeDegenerate(t *testing.T) {
	x := []float64{3, 3, 3}
	Standardize(x)
	for _, v := range x {
		assert.False(t, math.IsNaN(v))
		assert.InDelta(t, 0, v, tolerance)
	}

	Standardize(nil)
}

func TestNormalizeAppliesToEveryMode(t *testing.T) {
	b := batch([]float64{1, 1, 2}, []float64{0, 1, 1}, []float64{1.9, 1, 2})
	base := &tableBaseline{values: []float64{0.1, 0.2, 0.3}}

	for _, c := range []struct {
		cfg  Config
		base agent.ValueBaseline
	}{
		{Config{Mode: NoBaseline, Normalize: true}, nil},
		{Config{Mode: BaselineDiff, Normalize: true}, base},
		{Config{Mode: GAE, Gamma: 0.9, Lambda: 0.8, Normalize: true}, base},
	} {
		est, err := New(c.cfg, c.base)
		require.NoError(t, err)

		adv, err := est.Estimate(b)
		require.NoError(t, err)
		assert.InDelta(t, 0, stat.Mean(adv, nil), tolerance, c.cfg.Mode.String())
		assert.InDelta(t, 1, math.Sqrt(stat.Moment(2, adv, nil)), 1e-6,
			c.cfg.Mode.String())
	}
}

func TestNewRejectsInconsistentConfig(t *testing.T) {
	base := &tableBaseline{}

	for name, c := range map[string]struct {
		cfg  Config
		base agent.ValueBaseline
	}{
		"baseline without mode":     {Config{Mode: NoBaseline}, base},
		"diff without baseline":     {Config{Mode: BaselineDiff}, nil},
		"gae without baseline":      {Config{Mode: GAE, Gamma: 1, Lambda: 1}, nil},
		"gae with negative lambda":  {Config{Mode: GAE, Gamma: 1, Lambda: -1}, base},
		"gae with lambda above one": {Config{Mode: GAE, Gamma: 1, Lambda: 2}, base},
		"gae with gamma above one":  {Config{Mode: GAE, Gamma: 2, Lambda: 1}, base},
		"unknown mode":              {Config{Mode: Mode(9)}, nil},
	} {
		_, err := New(c.cfg, c.base)
		assert.ErrorIs(t, err, ErrConfig, name)
	}
}
