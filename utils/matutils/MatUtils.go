// Package matutils implements utility function for working with
// mat.Matrix structs and row-major data
package matutils

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Format formats a matrix for printing
func Format(X mat.Matrix) string {
	fa := mat.Formatted(X, mat.Prefix(""), mat.Squeeze())
	return fmt.Sprintf("%v", fa)
}

// RowMajor appends the rows to dst in row-major order and returns the
// extended slice
func RowMajor(dst []float64, rows [][]float64) []float64 {
	for _, row := range rows {
		dst = append(dst, row...)
	}
	return dst
}
