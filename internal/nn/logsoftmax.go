package nn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogSoftmax computes log-probabilities over the class dimension.
//
// For each row: out[j] = x[j] - (max(x) + log(sum(exp(x - max(x))))).
// Subtracting the row maximum before exponentiating keeps the transform
// numerically stable for large logits. After exponentiation each output
// row sums to 1.
type LogSoftmax struct {
	out *mat.Dense // cached log-probabilities for Backward
}

// NewLogSoftmax creates a new LogSoftmax over the last (class) dimension.
func NewLogSoftmax() *LogSoftmax {
	return &LogSoftmax{}
}

// Forward computes row-wise log-softmax.
func (s *LogSoftmax) Forward(x *mat.Dense, p *Pass) (*mat.Dense, error) {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)

	for i := 0; i < rows; i++ {
		xr := x.RawRowView(i)
		maxVal := xr[0]
		for _, v := range xr[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		sum := 0.0
		for _, v := range xr {
			sum += math.Exp(v - maxVal)
		}
		logSum := maxVal + math.Log(sum)
		or := out.RawRowView(i)
		for j, v := range xr {
			or[j] = v - logSum
		}
	}

	if p.Records() {
		s.out = out
	} else {
		s.out = nil
	}
	return out, nil
}

// Backward computes the input gradient:
//
//	dx[i,j] = g[i,j] - softmax[i,j] * sum_j(g[i,:])
func (s *LogSoftmax) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if s.out == nil {
		return nil, ErrNoGrad
	}
	rows, cols := grad.Dims()
	dx := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		gr := grad.RawRowView(i)
		or := s.out.RawRowView(i)
		sumGrad := 0.0
		for _, g := range gr {
			sumGrad += g
		}
		dr := dx.RawRowView(i)
		for j, g := range gr {
			dr[j] = g - math.Exp(or[j])*sumGrad
		}
	}
	return dx, nil
}

// Parameters returns an empty slice: LogSoftmax has no trainable parameters.
func (s *LogSoftmax) Parameters() []*Parameter {
	return nil
}
