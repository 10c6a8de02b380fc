// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax returns the softmax of logits. The log-sum-exp is subtracted
// from each logit before exponentiating so that large logits do not
// overflow.
func Softmax(logits []float64) []float64 {
	lse := floats.LogSumExp(logits)

	probs := make([]float64, len(logits))
	for i, logit := range logits {
		probs[i] = math.Exp(logit - lse)
	}
	return probs
}
