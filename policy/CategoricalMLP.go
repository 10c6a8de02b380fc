package policy

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/agent"
	"github.com/samuelfneumann/pgcore/backend"
	"github.com/samuelfneumann/pgcore/network"
	"github.com/samuelfneumann/pgcore/utils/floatutils"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// CategoricalMLP implements a softmax policy over discrete actions,
// where the logits of the softmax are predicted by an MLP.
//
// The policy keeps a network with a batch size of 1 for selecting
// actions. Since Gorgonia graphs have fixed shapes, a training graph
// is built and cached for each batch size the policy is updated with.
// Weights are copied to the training graph before each update and
// copied back after.
type CategoricalMLP struct {
	ctx *backend.Context

	net        network.NeuralNet
	vm         G.VM
	logitsVals G.Value

	solver     G.Solver
	train      map[int]*categoricalGraph
	numActions int
}

// categoricalGraph is a training graph for a fixed batch size
type categoricalGraph struct {
	net        network.NeuralNet
	vm         G.VM
	actions    *G.Node // One-hot encoded actions
	advantages *G.Node
	loss       *G.Node
	lossVal    G.Value
}

// NewCategoricalMLP returns a new CategoricalMLP over numActions
// actions for observations with features features.
func NewCategoricalMLP(ctx *backend.Context, c Config, features,
	numActions int) (*CategoricalMLP, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}
	if numActions < 2 {
		return nil, fmt.Errorf("newCategoricalMLP: at least 2 actions "+
			"required, have(%d)", numActions)
	}

	net, err := c.Network.Build(ctx.NewGraph(), features, 1, numActions,
		ctx.Rand())
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: could not create "+
			"policy network: %v", err)
	}

	solver, err := c.Solver.Create()
	if err != nil {
		return nil, fmt.Errorf("newCategoricalMLP: %v", err)
	}

	pol := &CategoricalMLP{
		ctx:        ctx,
		net:        net,
		solver:     solver,
		train:      make(map[int]*categoricalGraph),
		numActions: numActions,
	}
	G.Read(net.Prediction(), &pol.logitsVals)
	pol.vm = ctx.NewTapeMachine(net.Graph())

	return pol, nil
}

// LogSumExp adds the log-sum-exp of logits along an axis to the graph
// of logits
func LogSumExp(logits *G.Node, along int) *G.Node {
	// Calculate the max logit per row
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	// Sum along rows
	sum := G.Must(G.Sum(exponent, along))

	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}

// Backend returns the numeric backend the CategoricalMLP was created with
func (c *CategoricalMLP) Backend() *backend.Context {
	return c.ctx
}

// Features returns the number of features in a single observation
func (c *CategoricalMLP) Features() int {
	return c.net.Features()
}

// Actions returns the number of discrete actions
func (c *CategoricalMLP) Actions() int {
	return c.numActions
}

// Probabilities returns the probability of selecting each action in
// the state with observation obs
func (c *CategoricalMLP) Probabilities(obs []float64) ([]float64, error) {
	if err := c.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("probabilities: %v", err)
	}
	defer c.vm.Reset()
	if err := c.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("probabilities: %v", err)
	}

	logits := c.logitsVals.Data().([]float64)
	return floatutils.Softmax(logits), nil
}

// SelectAction samples an action from the policy in the state with
// observation obs
func (c *CategoricalMLP) SelectAction(obs []float64) (int, error) {
	probs, err := c.Probabilities(obs)
	if err != nil {
		return 0, fmt.Errorf("selectAction: %v", err)
	}
	return int(distuv.NewCategorical(probs, c.ctx.Rand()).Rand()), nil
}

// Update takes one gradient step to increase the log probability of
// each action in proportion to its advantage. Actions are action
// indices, one per observation.
func (c *CategoricalMLP) Update(obs, actions,
	advantages []float64) (agent.Info, error) {
	n, err := checkBatch(obs, actions, advantages, c.Features(), 1)
	if err != nil {
		return nil, err
	}

	oneHot := make([]float64, n*c.numActions)
	for i, a := range actions {
		index := int(a)
		if float64(index) != a || index < 0 || index >= c.numActions {
			return nil, fmt.Errorf("update: invalid action %v, must be an "+
				"integer in [0, %d)", a, c.numActions)
		}
		oneHot[i*c.numActions+index] = 1
	}

	g, err := c.graph(n)
	if err != nil {
		return nil, err
	}
	defer g.vm.Reset()

	if err := g.net.Set(c.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := g.net.SetInput(obs); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}
	if err := G.Let(g.actions, tensor.New(
		tensor.WithShape(n, c.numActions),
		tensor.WithBacking(oneHot),
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
	if err := c.solver.Step(g.net.Model()); err != nil {
		return nil, fmt.Errorf("update: could not step solver: %v", err)
	}
	if err := c.net.Set(g.net); err != nil {
		return nil, fmt.Errorf("update: %v", err)
	}

	return agent.Info{agent.ActorLoss: g.lossVal.Data().(float64)}, nil
}

// graph returns the training graph for batch size n, building it if
// needed
func (c *CategoricalMLP) graph(n int) (*categoricalGraph, error) {
	if g, ok := c.train[n]; ok {
		return g, nil
	}

	net, err := c.net.CloneWithBatch(n)
	if err != nil {
		return nil, fmt.Errorf("update: could not create training "+
			"network: %v", err)
	}
	graph := net.Graph()
	logits := net.Prediction()

	actions := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("Action Indices"),
	)
	advantages := G.NewVector(
		graph,
		tensor.Float64,
		G.WithShape(n),
		G.WithInit(G.Zeroes()),
		G.WithName("Advantages"),
	)

	// log π(a|s) = logit(a) - log Σ exp(logits)
	logitsInputActions := G.Must(G.HadamardProd(actions, logits))
	logitsInputActions = G.Must(G.Sum(logitsInputActions, 1))
	logProb := G.Must(G.Sub(logitsInputActions, LogSumExp(logits, 1)))

	t := &categoricalGraph{
		net:        net,
		actions:    actions,
		advantages: advantages,
		loss:       policyLoss(logProb, advantages),
	}
	G.Read(t.loss, &t.lossVal)

	if _, err := G.Grad(t.loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("update: could not compute gradient: %v",
			err)
	}
	t.vm = c.ctx.NewTapeMachine(graph, net.Learnables()...)

	c.train[n] = t
	return t, nil
}

// policyLoss returns the policy gradient loss -mean(log π(a|s) A)
func policyLoss(logProb, advantages *G.Node) *G.Node {
	loss := G.Must(G.HadamardProd(logProb, advantages))
	loss = G.Must(G.Mean(loss))
	return G.Must(G.Neg(loss))
}
