// Package optim implements optimization algorithms for training.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with optional momentum
//   - Adam: Adaptive Moment Estimation
//
// Optimizers consume the gradients accumulated on nn.Parameter values by
// the model's backward pass and update the parameter values in place.
//
// Example usage:
//
//	optimizer := optim.NewSGD(model.Parameters(), optim.SGDConfig{
//	    LR:       0.01,
//	    Momentum: 0.9,
//	})
//
//	for each batch {
//	    optimizer.ZeroGrad()
//	    logProbs, _ := model.Forward(inputs, nn.Train(rng))
//	    loss.Forward(logProbs, labels)
//	    grad, _ := loss.Backward()
//	    model.Backward(grad)
//	    optimizer.Step()
//	}
package optim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies one gradient update to all parameters. Parameters with
	// no accumulated gradient are skipped.
	Step()

	// ZeroGrad clears all parameter gradients. Call before each backward
	// pass to prevent accumulation across iterations.
	ZeroGrad()

	// LR returns the current learning rate.
	LR() float64

	// StateDict returns the optimizer state (momentum buffers, moment
	// estimates) for checkpointing. May be empty.
	StateDict() map[string]*mat.Dense

	// LoadStateDict restores optimizer state from a checkpoint.
	LoadStateDict(state map[string]*mat.Dense) error
}

// checkBufferShape validates that a restored buffer matches its parameter.
func checkBufferShape(name string, buf *mat.Dense, param *nn.Parameter) error {
	br, bc := buf.Dims()
	pr, pc := param.Value().Dims()
	if br != pr || bc != pc {
		return fmt.Errorf("%s shape mismatch for %s: want [%d %d], got [%d %d]",
			name, param.Name(), pr, pc, br, bc)
	}
	return nil
}
