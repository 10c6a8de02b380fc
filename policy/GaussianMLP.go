package policy

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/network"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GaussianMLP implements a Gaussian policy over continuous actions.
// The mean of the policy is predicted by an MLP, and the log standard
// deviation of each action dimension is a learned weight that does not
// depend on the state.
//
// Like CategoricalMLP, a training graph is cached for each batch size
// the policy is updated with.
type GaussianMLP struct {
	ctx *backend.Context

	net       network.NeuralNet
	logStd    *tensor.Dense // (1, actionDims)
	vm        G.VM
	meanVals  G.Value
	actionDim int

	solver G.Solver
	train  map[int]*gaussianGraph
}

// gaussianGraph is a training graph for a fixed batch size
type gaussianGraph struct {
	net        network.NeuralNet
	logStd     *G.Node
	vm         G.VM
	actions    *G.Node
	advantages *G.Node
	loss       *G.Node
	lossVal    G.Value
	model      []G.ValueGrad
}

// NewGaussianMLP returns a new GaussianMLP with actionDims action
// dimensions for observations with features features.
func NewGaussianMLP(ctx *backend.Context, c Config, features,
	actionDims int) (*GaussianMLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newGaussianMLP: %v", err)
	}
	if actionDims <= 0 {
		return nil, fmt.Errorf("newGaussianMLP: action dimensions must be "+
			"positive, have(%d)", actionDims)
	}

	net, err := c.Network.Build(ctx.NewGraph(), features, 1, actionDims,
		ctx.Rand())
	if err != nil {
		return nil, fmt.Errorf("newGaussianMLP: could not create "+
			"policy network: %v", err)
	}

	solver, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newGaussianMLP: %v", err)
	}

	logStd := make([]float64, actionDims)
	for i := range logStd {
		logStd[i] = c.InitLogStd
	}

	pol := &GaussianMLP{
		ctx: ctx,
		net: net,
		logStd: tensor.New(
			tensor.WithShape(1, actionDims),
			tensor.WithBacking(logStd),
		),
		actionDim: actionDims,
		solver:    solver,
		train:     make(map[int]*gaussianGraph),
	}
	G.Read(net.Prediction(), &pol.meanVals)
	pol.vm = ctx.NewTapeMachine(net.Graph())

	return pol, nil
}

// Backend returns the numeric backend the GaussianMLP was created with
func (p *GaussianMLP) Backend() *backend.Context {
	return p.ctx
}

// Features returns the number of features in a single observation
func (p *GaussianMLP) Features() int {
	return p.net.Features()
}

// ActionDims returns the number of action dimensions
func (p *GaussianMLP) ActionDims() int {
	return p.actionDim
}

// Std returns the standard deviation of each action dimension
func (p *GaussianMLP) Std() []float64 {
	logStd := p.logStd.Data().([]float64)
	std := make([]float64, len(logStd))
	for i := range logStd {
		std[i] = math.Exp(logStd[i])
	}
	return std
}

// Mean returns the mean action in the state with observation obs
func (p *GaussianMLP) Mean(obs []float64) ([]float64, error) {
	if err := p.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("mean: %v", err)
	}
	defer p.vm.Reset()
	if err := p.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("mean: %v", err)
	}

	return append([]float64{}, p.meanVals.Data().([]float64)...), nil
}

// SelectAction samples an action from the policy in the state with
// observation obs
func (p *GaussianMLP) SelectAction(obs []float64) ([]float64, error) {
	action, err := p.Mean(obs)
	if err != nil {
		return nil, fmt.Errorf("selectAction: %v", err)
	}

	for i, std := range p.Std() {
		dist := distuv.Normal{Mu: action[i], Sigma: std, Src: p.ctx.Rand()}
		action[i] = dist.Rand()
	}
	return action, nil
}

// Update takes one gradient step to increase the log probability of
// each action in proportion to its advantage. Actions are given in row
// major order, one row per observation.
func (p *GaussianMLP) Update(obs, actions,
	advantages []float64) (agent.Info, error) {
	n, err := checkBatch(obs, actions, advantages, p.Features(), p.actionDim)
	if err != nil {
		return nil, err
	}

	g, err := p.graph(n)
	if err != nil {
		return nil, err
	}
	defer g.vm.Reset()

	if err := g.net.Set(p.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := G.Let(g.logStd, p.logStd.Clone().(*tensor.Dense)); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := g.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := G.Let(g.actions, tensor.New(
		tensor.WithShape(n, p.actionDim),
		tensor.WithBacking(append([]float64{}, actions...)),
	)); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := G.Let(g.advantages, tensor.New(
		tensor.WithShape(n),
		tensor.WithBacking(append([]float64{}, advantages...)),
	)); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	if err := g.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := p.solver.Step(g.model); err != nil {
		return nil, fmt.Errorf("update: could not step solver: %v", err)
	}
	if err := p.net.Set(g.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	p.logStd = g.logStd.Value().(*tensor.Dense).Clone().(*tensor.Dense)

	return agent.Info{agent.ActorLoss: g.lossVal.Data().(float64)}, nil
}

// graph returns the training graph for batch size n, building it if
// needed
func (p *GaussianMLP) graph(n int) (*gaussianGraph, error) {
	if g, ok := p.train[n]; ok {
		return g, nil
	}

	net, err := p.net.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not create training "+
			"network: %v", err)
	}
	graph := net.Graph()
	mean := net.Prediction()

	logStd := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(1, p.actionDim),
		G.WithValue(p.logStd.Clone().(*tensor.Dense)),
		G.WithName("LogStd"),
	)
	actions := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(n, p.actionDim),
		G.WithInit(G.Zeroes()),
		G.WithName("Actions"),
	)
	advantages := G.NewVector(
		graph,
		tensor.Float64,
		G.WithShape(n),
		G.WithInit(G.Zeroes()),
		G.WithName("Advantages"),
	)

	t := &gaussianGraph{
		net:        net,
		logStd:     logStd,
		actions:    actions,
		advantages: advantages,
	}
	t.loss = policyLoss(logPdf(mean, logStd, actions), advantages)
	G.Read(t.loss, &t.lossVal)

	learnables := append(G.Nodes{}, net.Learnables()...)
	learnables = append(learnables, logStd)
	if _, err := G.Grad(t.loss, learnables...); err != nil {
		return nil, fmt.Errorf("update: could not compute gradient: %v",
			err)
	}
	t.vm = p.ctx.NewTapeMachine(graph, learnables...)

	// The log standard deviation is last, so the solver's per-weight
	// state lines up across batch sizes
	t.model = make([]G.ValueGrad, 0, len(learnables))
	for _, node := range learnables {
		t.model = append(t.model, node)
	}

	p.train[n] = t
	return t, nil
}

// logPdf adds the log density of a batch of actions under a diagonal
// Gaussian to the graph. The mean and actions have shape
// (batch, dims), and logStd has shape (1, dims):
//
//	log π(a|s) = -½ Σ ((a - μ) / σ)² - Σ log σ - ½ dims log(2π)
func logPdf(mean, logStd, actions *G.Node) *G.Node {
	graph := mean.Graph()
	batch, dims := mean.Shape()[0], mean.Shape()[1]

	// Broadcast the log standard deviation along the batch as
	// ones(batch, 1) × logStd(1, dims)
	ones := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batch, 1),
		G.WithInit(G.Ones()),
		G.WithName("Ones"),
	)
	batchLogStd := G.Must(G.Mul(ones, logStd))
	std := G.Must(G.Exp(batchLogStd))

	z := G.Must(G.Sub(actions, mean))
	z = G.Must(G.HadamardDiv(z, std))
	exponent := G.Must(G.Sum(G.Must(G.Square(z)), 1))
	exponent = G.Must(G.Mul(exponent, G.NewConstant(-0.5)))

	logDet := G.Must(G.Sum(batchLogStd, 1))
	logProb := G.Must(G.Sub(exponent, logDet))

	normalizer := 0.5 * float64(dims) * math.Log(2*math.Pi)
	return G.Must(G.Sub(logProb, G.NewConstant(normalizer)))
}
