package nn

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Dropout implements inverted dropout regularization.
//
// On a train pass each activation is zeroed independently with probability
// p, and survivors are scaled by 1/(1-p) so the expected magnitude of the
// output matches the input. On an eval pass the layer is the identity.
//
// Whether dropout is active is decided solely by the Pass handed to
// Forward; the layer itself holds no train/eval state.
type Dropout struct {
	p    float64
	mask *mat.Dense // scale factors applied on the last train pass
}

// NewDropout creates a Dropout layer with drop probability p in [0, 1).
func NewDropout(p float64) (*Dropout, error) {
	if p < 0 || p >= 1 {
		return nil, fmt.Errorf("dropout probability must be in [0, 1), got %v", p)
	}
	return &Dropout{p: p}, nil
}

// P returns the drop probability.
func (d *Dropout) P() float64 {
	return d.p
}

// Forward applies stochastic masking on train passes and is the identity
// on eval passes.
func (d *Dropout) Forward(x *mat.Dense, p *Pass) (*mat.Dense, error) {
	if !p.Training() || d.p == 0 {
		d.mask = nil
		return x, nil
	}

	rows, cols := x.Dims()
	scale := 1.0 / (1.0 - d.p)
	mask := mat.NewDense(rows, cols, nil)
	rng := p.RNG()
	for i := 0; i < rows; i++ {
		mr := mask.RawRowView(i)
		for j := range mr {
			if rng.Float64() >= d.p {
				mr[j] = scale
			}
		}
	}

	var out mat.Dense
	out.MulElem(x, mask)
	if p.Records() {
		d.mask = mask
	} else {
		d.mask = nil
	}
	return &out, nil
}

// Backward reapplies the forward mask. If the last pass did not drop
// anything (eval pass or p == 0) the gradient flows through unchanged.
func (d *Dropout) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if d.mask == nil {
		return grad, nil
	}
	var dx mat.Dense
	dx.MulElem(grad, d.mask)
	return &dx, nil
}

// Parameters returns an empty slice: Dropout has no trainable parameters.
func (d *Dropout) Parameters() []*Parameter {
	return nil
}
