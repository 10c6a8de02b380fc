package network

import (
	"fmt"

	"github.com/samuelfneumann/pgcore/initwfn"
	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
)

// Config describes the hidden layers of an MLP. Every hidden layer has
// a bias unit and uses the same activation.
type Config struct {
	HiddenSizes []int          `koanf:"hidden_sizes"`
	Activation  string         `koanf:"activation"`
	Init        initwfn.Config `koanf:"init"`
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	for i, size := range c.HiddenSizes {
		if size <= 0 {
			return fmt.Errorf("validate: hidden layer %d must have a "+
				"positive size, have(%d)", i, size)
		}
	}
	if len(c.HiddenSizes) > 0 {
		if _, err := ParseActivation(c.Activation); err != nil {
			return fmt.Errorf("validate: %v", err)
		}
	}
	if err := c.Init.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// Build adds the MLP described by the Config to g. Weights are
// initialized with samples from src.
func (c Config) Build(g *G.ExprGraph, features, batch, outputs int,
	src rand.Source) (NeuralNet, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("build: %v", err)
	}

	init, err := c.Init.Create(src)
	if err != nil {
		return nil, fmt.Errorf("build: %v", err)
	}

	biases := make([]bool, len(c.HiddenSizes))
	activations := make([]*Activation, len(c.HiddenSizes))
	for i := range c.HiddenSizes {
		biases[i] = true
		if activations[i], err = ParseActivation(c.Activation); err != nil {
			return nil, fmt.Errorf("build: %v", err)
		}
	}

	return NewMLP(features, batch, outputs, g, c.HiddenSizes, biases, init,
		activations)
}
