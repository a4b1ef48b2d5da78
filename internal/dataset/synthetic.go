package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Synthetic generates a balanced, linearly separable classification
// dataset for tests and demos.
//
// Each class gets a random prototype vector in [0, 1]; examples are the
// prototype plus small uniform noise, clamped back to [0, 1]. Classes are
// assigned round-robin so the dataset is exactly balanced when n is a
// multiple of numClasses.
func Synthetic(n, featureDim, numClasses int, seed int64) (*Dataset, error) {
	if n <= 0 || featureDim <= 0 || numClasses <= 0 {
		return nil, fmt.Errorf("dataset: invalid synthetic dimensions n=%d dim=%d classes=%d", n, featureDim, numClasses)
	}
	rng := rand.New(rand.NewSource(seed))

	prototypes := make([][]float64, numClasses)
	for c := range prototypes {
		proto := make([]float64, featureDim)
		for j := range proto {
			proto[j] = rng.Float64()
		}
		prototypes[c] = proto
	}

	const noise = 0.05
	inputs := mat.NewDense(n, featureDim, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		class := i % numClasses
		labels[i] = class
		row := inputs.RawRowView(i)
		for j, p := range prototypes[class] {
			v := p + (rng.Float64()*2-1)*noise
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			row[j] = v
		}
	}

	return New(inputs, labels, numClasses, nil)
}
