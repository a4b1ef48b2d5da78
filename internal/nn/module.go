// Package nn implements the neural network building blocks of the Weft
// training library.
//
// This package provides:
//   - Layer interface: Base interface for all network components
//   - Parameter: Trainable parameters with accumulated gradients
//   - Linear: Fully connected layer
//   - ReLU, Dropout, LogSoftmax: Activations and regularization
//   - Classifier: A feed-forward image classifier built from a Config
//   - NLLLoss: Negative log-likelihood loss over log-probabilities
//
// Design inspired by PyTorch's nn.Module, with one deliberate departure:
// there is no global train/eval switch. Every forward call receives an
// explicit Pass value that carries the mode, the dropout RNG, and whether
// the pass records state for a following Backward. See pass.go.
//
// Dense linear algebra is delegated to gonum (gonum.org/v1/gonum/mat);
// gradients are the analytic backward passes of each layer rather than a
// general autodiff engine.
package nn

import "gonum.org/v1/gonum/mat"

// Layer is the base interface for all network components.
//
// Forward computes the layer output for a batch of inputs under the given
// Pass. When the pass records (see Pass.Records), the layer caches
// whatever it needs for Backward; otherwise any previous cache is cleared.
//
// Backward consumes the gradient of the loss with respect to the layer
// output, accumulates parameter gradients, and returns the gradient with
// respect to the layer input. Calling Backward without a preceding
// recording Forward is a mode misuse and fails with ErrNoGrad.
type Layer interface {
	Forward(x *mat.Dense, p *Pass) (*mat.Dense, error)
	Backward(grad *mat.Dense) (*mat.Dense, error)

	// Parameters returns all trainable parameters of this layer.
	// Returns an empty slice for parameter-free layers.
	Parameters() []*Parameter
}
