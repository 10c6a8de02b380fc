package solver

import G "gorgonia.org/gorgonia"

// adam returns a Gorgonia Adam Solver
func (c Config) adam() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithEps(c.Epsilon),
		G.WithBeta1(c.Beta1),
		G.WithBeta2(c.Beta2),
		G.WithBatchSize(float64(c.Batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewAdamSolver(opts...)
}
