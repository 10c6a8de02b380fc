// Package backend implements the numeric backend context that is
// shared by an agent and the function approximators it trains.
//
// A Context replaces any implicit, package level compute state: the
// data type of tensors and the source of randomness are carried
// explicitly from the Context to everything constructed with it.
// Graphs always run on the CPU.
package backend

import (
	"fmt"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Context is a numeric backend context. A Context is not safe for
// concurrent use.
type Context struct {
	dtype tensor.Dtype
	seed  uint64
	rng   *rand.Rand
}

// New returns a new Context whose source of randomness is seeded with
// seed. Tensors are float64.
func New(seed uint64) *Context {
	return &Context{
		dtype: tensor.Float64,
		seed:  seed,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Dtype returns the data type of all tensors created with the Context
func (c *Context) Dtype() tensor.Dtype {
	return c.dtype
}

// Device returns the device that computational graphs run on, which
// is always the CPU
func (c *Context) Device() G.Device {
	return G.CPU
}

// Seed returns the seed of the Context
func (c *Context) Seed() uint64 {
	return c.seed
}

// Rand returns the source of randomness of the Context
func (c *Context) Rand() *rand.Rand {
	return c.rng
}

// NewGraph returns a new, empty computational graph
func (c *Context) NewGraph() *G.ExprGraph {
	return G.NewGraph()
}

// NewTapeMachine returns a VM for running g.
// Gradients are computed for the learnables if any are given.
func (c *Context) NewTapeMachine(g *G.ExprGraph,
	learnables ...*G.Node) G.VM {
	if len(learnables) == 0 {
		return G.NewTapeMachine(g)
	}
	return G.NewTapeMachine(g, G.BindDualValues(learnables...))
}

// String implements the fmt.Stringer interface
func (c *Context) String() string {
	return fmt.Sprintf("{Dtype: %v  |  Device: %v  |  Seed: %v}", c.dtype,
		c.Device(), c.seed)
}
