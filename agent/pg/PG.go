// Package pg implements the learning core of a policy gradient agent.
//
// Given a batch of trajectories, a PG computes Q-value targets and
// advantages, then takes one gradient step on its policy and, if it
// uses a value baseline, a fixed number of regression steps on the
// baseline. See "Policy Gradient Methods for Reinforcement Learning
// with Function Approximation" (Sutton et al., 2000) and, for GAE,
// https://arxiv.org/abs/1506.02438.
package pg

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/pgcore/advantage"
	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/metrics"
	"github.com/samuelfneumann/pgcore/returns"
	"github.com/samuelfneumann/pgcore/trajectory"
	"go.uber.org/zap"
)

var _ agent.Learner = &PG{}

// PG implements the policy gradient update protocol. A PG is not safe
// for concurrent use.
type PG struct {
	Config

	ctx        *backend.Context
	policy     agent.Policy
	baseline   agent.ValueBaseline
	returns    *returns.Estimator
	advantages *advantage.Estimator

	logger  *zap.Logger
	metrics *metrics.Recorder
}

// Option configures a PG
type Option func(*PG)

// WithLogger sets the logger that update steps are logged to
func WithLogger(l *zap.Logger) Option {
	return func(p *PG) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the Recorder that update steps are recorded with
func WithMetrics(r *metrics.Recorder) Option {
	return func(p *PG) {
		p.metrics = r
	}
}

// backendUser is a collaborator created with a numeric backend
type backendUser interface {
	Backend() *backend.Context
}

// New returns a new PG that trains pol and, if the configuration uses
// a baseline, base. The baseline must be nil exactly when no baseline
// is used. Collaborators that report their numeric backend must share
// ctx.
func New(ctx *backend.Context, c Config, pol agent.Policy,
	base agent.ValueBaseline, opts ...Option) (*PG, error) {
	if err := c.Validate(); err != nil {
		return nil, &Error{Op: "new", Err: err}
	}

	if ctx == nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: nil backend", ErrConfig),
		}
	}
	if pol == nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: nil policy", ErrConfig),
		}
	}
	if c.UseBaseline && base == nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: baseline required but none given", ErrConfig),
		}
	} else if !c.UseBaseline && base != nil {
		return nil, &Error{
			Op:  "new",
			Err: fmt.Errorf("%w: baseline given but not used", ErrConfig),
		}
	}

	for name, collaborator := range map[string]interface{}{
		"policy":   pol,
		"baseline": base,
	} {
		if u, ok := collaborator.(backendUser); ok && u.Backend() != ctx {
			return nil, &Error{
				Op: "new",
				Err: fmt.Errorf("%w: %v does not share the learner's "+
					"backend", ErrConfig, name),
			}
		}
	}

	ret, err := returns.New(c.returnsMode(), c.Gamma)
	if err != nil {
		return nil, &Error{Op: "new", Err: fmt.Errorf("%w: %v", ErrConfig, err)}
	}

	adv, err := advantage.New(c.advantageConfig(), base)
	if err != nil {
		return nil, &Error{Op: "new", Err: fmt.Errorf("%w: %v", ErrConfig, err)}
	}

	p := &PG{
		Config:     c,
		ctx:        ctx,
		policy:     pol,
		baseline:   base,
		returns:    ret,
		advantages: adv,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.logger.Debug("created policy gradient learner",
		zap.Float64("gamma", c.Gamma),
		zap.Stringer("returns", ret.Mode()),
		zap.Stringer("advantages", adv.Mode),
		zap.Bool("normalize", c.NormalizeAdvantages),
		zap.Int("baseline_steps", c.BaselineGradSteps),
		zap.Stringer("backend", ctx),
	)

	return p, nil
}

// Backend returns the numeric backend of the PG
func (p *PG) Backend() *backend.Context {
	return p.ctx
}

// Update performs one training step on a batch of trajectories, given
// as per-trajectory observations, actions, rewards, and terminal
// markers. The four lists must have the same length, and the arrays of
// each trajectory must agree in length.
//
// The policy is updated once, then the baseline, if any, is updated
// BaselineGradSteps times on the same data. The returned diagnostics
// merge those of the policy update and the final baseline update.
// If an error is returned before the policy update, neither the policy
// nor the baseline has been changed.
func (p *PG) Update(obs, actions [][][]float64, rewards,
	terminals [][]float64) (agent.Info, error) {
	trajs, err := trajectory.Zip(obs, actions, rewards, terminals)
	if err != nil {
		p.fail(err)
		return nil, &Error{Op: "update", Err: err}
	}
	return p.UpdateTrajectories(trajs)
}

// UpdateTrajectories performs one training step on a batch of
// trajectories. See Update.
func (p *PG) UpdateTrajectories(trajs []trajectory.Trajectory) (agent.Info,
	error) {
	start := time.Now()

	info, batch, err := p.update(trajs)
	if err != nil {
		p.fail(err)
		return nil, &Error{Op: "update", Err: err}
	}

	took := time.Since(start)
	fields := []zap.Field{
		zap.Int("trajectories", batch.Trajectories()),
		zap.Int("transitions", batch.Len()),
		zap.Duration("took", took),
	}
	for _, k := range info.Keys() {
		fields = append(fields, zap.Float64(k, info[k]))
	}
	p.logger.Debug("policy gradient update", fields...)

	if p.metrics != nil {
		var baselineLoss *float64
		if loss, ok := info.Get(agent.BaselineLoss); ok {
			baselineLoss = &loss
		}
		policyLoss, _ := info.Get(agent.ActorLoss)
		p.metrics.ObserveUpdate(batch.Len(), batch.Trajectories(),
			policyLoss, baselineLoss, took)
	}

	return info, nil
}

// update runs the update protocol
func (p *PG) update(trajs []trajectory.Trajectory) (agent.Info,
	*trajectory.Batch, error) {
	for i, t := range trajs {
		if err := t.Validate(); err != nil {
			return nil, nil, fmt.Errorf("trajectory %d: %w", i, err)
		}
	}

	rewards := make([][]float64, len(trajs))
	for i := range trajs {
		rewards[i] = trajs[i].Rewards
	}
	qValues := p.returns.Estimate(rewards)

	batch, err := trajectory.Flatten(trajs, qValues)
	if err != nil {
		return nil, nil, err
	}

	advantages, err := p.advantages.Estimate(batch)
	if err != nil {
		return nil, nil, err
	}

	policyInfo, err := p.policy.Update(batch.Observations, batch.Actions,
		advantages)
	if err != nil {
		return nil, nil, fmt.Errorf("could not update policy: %w", err)
	}
	info := agent.Info{}.Merge(policyInfo)

	if p.baseline == nil {
		return info, batch, nil
	}

	var baselineInfo agent.Info
	for i := 0; i < p.BaselineGradSteps; i++ {
		baselineInfo, err = p.baseline.Update(batch.Observations,
			batch.QValues)
		if err != nil {
			return nil, nil, fmt.Errorf("could not update baseline on "+
				"step %d: %w", i, err)
		}
	}

	return info.Merge(baselineInfo), batch, nil
}

// fail records a failed update
func (p *PG) fail(err error) {
	p.logger.Warn("policy gradient update failed", zap.Error(err))
	if p.metrics != nil {
		p.metrics.ObserveError()
	}
}
