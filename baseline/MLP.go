// Package baseline implements state value baselines that reduce the
// variance of policy gradient advantage estimates.
package baseline

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/network"
	"github.com/samuelfneumann/pgcore/solver"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Config configures a value baseline
type Config struct {
	Network network.Config `koanf:"network"`
	Solver  solver.Config  `koanf:"solver"`
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// MLP is a state value function approximated by an MLP with a single
// output, trained by regression on the mean squared error.
//
// Networks are built and cached per batch size. A prediction graph is
// kept for each batch size Forward is called with and a training graph
// for each batch size Update is called with. The MLP's weights are
// stored in a master network and copied into a cached graph before it
// is run.
type MLP struct {
	ctx    *backend.Context
	net    network.NeuralNet
	solver G.Solver

	predict map[int]*predictGraph
	train   map[int]*trainGraph
}

// predictGraph predicts the values of a fixed size batch
type predictGraph struct {
	net     network.NeuralNet
	vm      G.VM
	predVal G.Value
}

// trainGraph trains the value function on a fixed size batch
type trainGraph struct {
	net     network.NeuralNet
	vm      G.VM
	targets *G.Node
	loss    *G.Node
	lossVal G.Value
}

// NewMLP returns a new MLP value baseline for observations with
// features features
func NewMLP(ctx *backend.Context, c Config, features int) (*MLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}

	net, err := c.Network.Build(ctx.NewGraph(), features, 1, 1, ctx.Rand())
	if err != nil {
		return nil, fmt.Errorf("newMLP: could not create value "+
			"network: %v", err)
	}

	solver, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newMLP: %v", err)
	}

	return &MLP{
		ctx:     ctx,
		net:     net,
		solver:  solver,
		predict: make(map[int]*predictGraph),
		train:   make(map[int]*trainGraph),
	}, nil
}

// Backend returns the numeric backend the MLP was created with
func (m *MLP) Backend() *backend.Context {
	return m.ctx
}

// Features returns the number of features in a single observation
func (m *MLP) Features() int {
	return m.net.Features()
}

// batchSize returns the number of observations in obs
func (m *MLP) batchSize(obs []float64) (int, error) {
	features := m.Features()
	if len(obs) == 0 || len(obs)%features != 0 {
		return 0, fmt.Errorf("invalid number of observation values %d "+
			"for %d features", len(obs), features)
	}
	return len(obs) / features, nil
}

// Forward returns the predicted value of each observation. Forward
// does not change the weights of the MLP.
func (m *MLP) Forward(obs []float64) ([]float64, error) {
	n, err := m.batchSize(obs)
	if err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	p, ok := m.predict[n]
	if !ok {
		net, err := m.net.CloneWithBatch(n)
		if err != nil {
			return nil, fmt.Errorf("forward: could not create prediction "+
				"network: %v", err)
		}
		p = &predictGraph{net: net}
		G.Read(net.Prediction(), &p.predVal)
		p.vm = m.ctx.NewTapeMachine(net.Graph())
		m.predict[n] = p
	}
	defer p.vm.Reset()

	if err := p.net.Set(m.net); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if err := p.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}
	if err := p.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("forward: %v", err)
	}

	return append([]float64{}, p.predVal.Data().([]float64)...), nil
}

// Update takes one gradient step on the mean squared error between the
// predicted values of obs and targets
func (m *MLP) Update(obs, targets []float64) (agent.Info, error) {
	n, err := m.batchSize(obs)
	if err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if n != len(targets) {
		return nil, fmt.Errorf("update: invalid number of targets"+
			"\n\twant(%d)\n\thave(%d)", n, len(targets))
	}

	t, err := m.graph(n)
	if err != nil {
		return nil, err
	}
	defer t.vm.Reset()

	if err := t.net.Set(m.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := t.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := G.Let(t.targets, tensor.New(
		tensor.WithShape(n, 1),
		tensor.WithBacking(append([]float64{}, targets...)),
	)); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	if err := t.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := m.solver.Step(t.net.Model()); err != nil {
		return nil, fmt.Errorf("update: could not step solver: %v", err)
	}
	if err := m.net.Set(t.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	return agent.Info{agent.BaselineLoss: t.lossVal.Data().(float64)}, nil
}

// graph returns the training graph for batch size n, building it if
// needed
func (m *MLP) graph(n int) (*trainGraph, error) {
	if t, ok := m.train[n]; ok {
		return t, nil
	}

	net, err := m.net.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not create training "+
			"network: %v", err)
	}

	targets := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(n, 1),
		G.WithInit(G.Zeroes()),
		G.WithName("Targets"),
	)
	loss := G.Must(G.Sub(net.Prediction(), targets))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	t := &trainGraph{net: net, targets: targets, loss: loss}
	G.Read(t.loss, &t.lossVal)

	if _, err := G.Grad(t.loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("update: could not compute gradient: %v",
			err)
	}
	t.vm = m.ctx.NewTapeMachine(net.Graph(), net.Learnables()...)

	m.train[n] = t
	return t, nil
}
