package nn

import "gonum.org/v1/gonum/mat"

// ReLU applies the rectified linear unit max(0, x) element-wise.
type ReLU struct {
	mask *mat.Dense // 1 where input > 0, cached on recording passes
}

// NewReLU creates a new ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies max(0, x) element-wise.
func (r *ReLU) Forward(x *mat.Dense, p *Pass) (*mat.Dense, error) {
	rows, cols := x.Dims()
	out := mat.NewDense(rows, cols, nil)
	var mask *mat.Dense
	if p.Records() {
		mask = mat.NewDense(rows, cols, nil)
	}

	for i := 0; i < rows; i++ {
		xr := x.RawRowView(i)
		or := out.RawRowView(i)
		for j, v := range xr {
			if v > 0 {
				or[j] = v
				if mask != nil {
					mask.RawRowView(i)[j] = 1
				}
			}
		}
	}

	r.mask = mask
	return out, nil
}

// Backward zeroes the gradient wherever the forward input was <= 0.
func (r *ReLU) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if r.mask == nil {
		return nil, ErrNoGrad
	}
	var dx mat.Dense
	dx.MulElem(grad, r.mask)
	return &dx, nil
}

// Parameters returns an empty slice: ReLU has no trainable parameters.
func (r *ReLU) Parameters() []*Parameter {
	return nil
}
