// Package initwfn implements configurable Gorgonia weight initializers
// that draw from an explicit source of randomness.
package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Zeroes   Type = "Zeroes"
	Constant Type = "Constant"
	Uniform  Type = "Uniform"
	Gaussian Type = "Gaussian"
)

// Config describes a weight initializer. Fields that do not apply to
// the initializer Type are ignored.
type Config struct {
	Type  Type    `koanf:"type"`
	Gain  float64 `koanf:"gain"`  // Glorot and He
	Value float64 `koanf:"value"` // Constant
	Low   float64 `koanf:"low"`   // Uniform
	High  float64 `koanf:"high"`  // Uniform
	Mean  float64 `koanf:"mean"`  // Gaussian
	Std   float64 `koanf:"std"`   // Gaussian
}

// Validate checks a Config to ensure it is a valid configuration
func (c Config) Validate() error {
	switch c.Type {
	case GlorotU, GlorotN, HeU, HeN:
		if c.Gain <= 0 {
			return fmt.Errorf("validate: gain must be positive, have(%v)",
				c.Gain)
		}
	case Uniform:
		if c.Low >= c.High {
			return fmt.Errorf("validate: uniform bounds must satisfy low < "+
				"high, have(%v, %v)", c.Low, c.High)
		}
	case Gaussian:
		if c.Std <= 0 {
			return fmt.Errorf("validate: std must be positive, have(%v)",
				c.Std)
		}
	case Zeroes, Constant:
	default:
		return fmt.Errorf("validate: unknown initializer type %q", c.Type)
	}
	return nil
}

// Create returns the Gorgonia InitWFn described by the Config. All
// random initializers sample from src.
func (c Config) Create(src rand.Source) (G.InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Type {
	case Zeroes:
		return G.Zeroes(), nil
	case Constant:
		return G.ValuesOf(c.Value), nil
	case Uniform:
		return fill(func(_, _ int) sampler {
			return distuv.Uniform{Min: c.Low, Max: c.High, Src: src}
		}), nil
	case Gaussian:
		return fill(func(_, _ int) sampler {
			return distuv.Normal{Mu: c.Mean, Sigma: c.Std, Src: src}
		}), nil
	case GlorotU:
		return fill(func(in, out int) sampler {
			limit := c.Gain * math.Sqrt(6/float64(in+out))
			return distuv.Uniform{Min: -limit, Max: limit, Src: src}
		}), nil
	case GlorotN:
		return fill(func(in, out int) sampler {
			std := c.Gain * math.Sqrt(2/float64(in+out))
			return distuv.Normal{Mu: 0, Sigma: std, Src: src}
		}), nil
	case HeU:
		return fill(func(in, _ int) sampler {
			limit := c.Gain * math.Sqrt(6/float64(in))
			return distuv.Uniform{Min: -limit, Max: limit, Src: src}
		}), nil
	default:
		return fill(func(in, _ int) sampler {
			std := c.Gain * math.Sqrt(2/float64(in))
			return distuv.Normal{Mu: 0, Sigma: std, Src: src}
		}), nil
	}
}

// String implements the fmt.Stringer interface
func (c Config) String() string {
	return fmt.Sprintf("{%v InitWFn}", c.Type)
}

type sampler interface {
	Rand() float64
}

// fill returns an InitWFn that fills a float64 weight matrix of shape
// (in, out) with samples from the sampler newSampler(in, out)
func fill(newSampler func(in, out int) sampler) G.InitWFn {
	return func(dt tensor.Dtype, s ...int) interface{} {
		if dt != tensor.Float64 {
			panic(fmt.Sprintf("initwfn: unsupported dtype %v", dt))
		}

		size := tensor.Shape(s).TotalSize()
		in, out := size, 1
		if len(s) > 1 {
			in, out = s[0], size/s[0]
		}

		dist := newSampler(in, out)
		weights := make([]float64, size)
		for i := range weights {
			weights[i] = dist.Rand()
		}
		return weights
	}
}
