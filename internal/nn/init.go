package nn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// xavier returns a [rows, cols] matrix initialized with Xavier/Glorot
// uniform values: U(-sqrt(6/(fanIn+fanOut)), sqrt(6/(fanIn+fanOut))).
//
// This initialization keeps the variance of activations roughly constant
// across layers, which matters for training dynamics with ReLU stacks.
func xavier(rows, cols, fanIn, fanOut int, rng *rand.Rand) *mat.Dense {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2.0 - 1.0) * bound
	}
	return mat.NewDense(rows, cols, data)
}

// zeros returns a zero-filled [rows, cols] matrix. Used for biases.
func zeros(rows, cols int) *mat.Dense {
	return mat.NewDense(rows, cols, nil)
}
