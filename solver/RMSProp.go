package solver

import G "gorgonia.org/gorgonia"

// rmsProp returns a Gorgonia RMSProp Solver. Gorgonia supports only its
// default η, so η is not configurable.
func (c Config) rmsProp() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(c.StepSize),
		G.WithEps(c.Epsilon),
		G.WithRho(c.Rho),
		G.WithBatchSize(float64(c.Batch)),
	}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}
	return G.NewRMSPropSolver(opts...)
}
