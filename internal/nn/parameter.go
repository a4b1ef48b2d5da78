package nn

import "gonum.org/v1/gonum/mat"

// Parameter represents a trainable parameter in a neural network.
//
// Parameters pair a value matrix with an accumulated gradient. Gradients
// are written by layer Backward calls and consumed by optimizers.
//
// Example:
//
//	weight := nn.NewParameter("hidden.0.weight", weightMatrix)
//	// ... forward + backward ...
//	grad := weight.Grad() // accumulated dL/dW, nil before any backward
type Parameter struct {
	name  string
	value *mat.Dense
	grad  *mat.Dense // nil until the first backward pass
}

// NewParameter creates a new trainable parameter.
//
// The value matrix should be initialized before creating the Parameter.
// The gradient is allocated lazily on the first AddGrad call.
func NewParameter(name string, value *mat.Dense) *Parameter {
	return &Parameter{name: name, value: value}
}

// Name returns the parameter name (e.g. "hidden.0.weight").
func (p *Parameter) Name() string {
	return p.name
}

// Value returns the parameter value matrix.
func (p *Parameter) Value() *mat.Dense {
	return p.value
}

// Grad returns the accumulated gradient.
//
// Returns nil if no gradient has been computed since the last ZeroGrad.
func (p *Parameter) Grad() *mat.Dense {
	return p.grad
}

// AddGrad accumulates g into the parameter gradient.
func (p *Parameter) AddGrad(g mat.Matrix) {
	if p.grad == nil {
		p.grad = mat.DenseCopyOf(g)
		return
	}
	p.grad.Add(p.grad, g)
}

// ZeroGrad clears the accumulated gradient.
//
// Called before each training iteration so gradients from previous
// batches do not leak into the next update.
func (p *Parameter) ZeroGrad() {
	p.grad = nil
}
