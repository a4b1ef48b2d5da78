package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias row vector with shape [1, out_features]
//   - y is the output with shape [batch_size, out_features]
//
// Weights are initialized with Xavier/Glorot uniform values, biases with
// zeros.
type Linear struct {
	name        string
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [1, out_features]

	input *mat.Dense // cached on recording passes, cleared otherwise
}

// NewLinear creates a new Linear layer.
//
// The name prefixes the parameter names ("<name>.weight", "<name>.bias")
// and identifies the layer in shape-mismatch errors. The RNG drives
// weight initialization.
func NewLinear(name string, inFeatures, outFeatures int, rng *rand.Rand) *Linear {
	return &Linear{
		name:        name,
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(name+".weight", xavier(outFeatures, inFeatures, inFeatures, outFeatures, rng)),
		bias:        NewParameter(name+".bias", zeros(1, outFeatures)),
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear) Forward(x *mat.Dense, p *Pass) (*mat.Dense, error) {
	_, cols := x.Dims()
	if cols != l.inFeatures {
		return nil, fmt.Errorf("%w: layer %s expects %d input features, got %d",
			ErrShape, l.name, l.inFeatures, cols)
	}

	var y mat.Dense
	y.Mul(x, l.weight.Value().T())

	// Broadcast bias across the batch dimension.
	rows, _ := y.Dims()
	b := l.bias.Value().RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(y.RawRowView(i), b)
	}

	if p.Records() {
		l.input = x
	} else {
		l.input = nil
	}
	return &y, nil
}

// Backward accumulates dW and db and returns the input gradient.
//
//	dW = grad.T @ x    [out_features, in_features]
//	db = column sums of grad
//	dx = grad @ W      [batch_size, in_features]
func (l *Linear) Backward(grad *mat.Dense) (*mat.Dense, error) {
	if l.input == nil {
		return nil, fmt.Errorf("%w: layer %s", ErrNoGrad, l.name)
	}

	var dw mat.Dense
	dw.Mul(grad.T(), l.input)
	l.weight.AddGrad(&dw)

	rows, _ := grad.Dims()
	db := zeros(1, l.outFeatures)
	dbRow := db.RawRowView(0)
	for i := 0; i < rows; i++ {
		floats.Add(dbRow, grad.RawRowView(i))
	}
	l.bias.AddGrad(db)

	var dx mat.Dense
	dx.Mul(grad, l.weight.Value())
	return &dx, nil
}

// Parameters returns [weight, bias].
func (l *Linear) Parameters() []*Parameter {
	return []*Parameter{l.weight, l.bias}
}

// Name returns the layer name.
func (l *Linear) Name() string {
	return l.name
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear) Bias() *Parameter {
	return l.bias
}
