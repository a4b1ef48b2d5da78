package optim

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// SGD implements Stochastic Gradient Descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
//
// Momentum accelerates descent along persistent gradient directions and
// dampens oscillations.
type SGD struct {
	params     []*nn.Parameter
	lr         float64
	momentum   float64
	velocities []*mat.Dense // indexed like params, allocated on first use
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates a new SGD optimizer over the given parameters.
func NewSGD(params []*nn.Parameter, config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make([]*mat.Dense, len(params)),
	}
}

// Step applies one gradient update to all parameters.
//
// Parameters with no accumulated gradient are skipped.
func (s *SGD) Step() {
	for i, param := range s.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}

		update := grad.RawMatrix().Data
		if s.momentum != 0 {
			v := s.velocities[i]
			if v == nil {
				r, c := param.Value().Dims()
				v = mat.NewDense(r, c, nil)
				s.velocities[i] = v
			}
			vData := v.RawMatrix().Data
			floats.Scale(s.momentum, vData)
			floats.Add(vData, update)
			update = vData
		}

		floats.AddScaled(param.Value().RawMatrix().Data, -s.lr, update)
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (s *SGD) LR() float64 {
	return s.lr
}

// SetLR updates the learning rate. Useful for scheduling.
func (s *SGD) SetLR(lr float64) {
	s.lr = lr
}

// StateDict returns the velocity buffers keyed as "velocity.<i>".
//
// Without momentum there is no state and the map is empty.
func (s *SGD) StateDict() map[string]*mat.Dense {
	state := make(map[string]*mat.Dense)
	if s.momentum == 0 {
		return state
	}
	for i, v := range s.velocities {
		if v == nil {
			continue // parameter not yet updated
		}
		state[fmt.Sprintf("velocity.%d", i)] = v
	}
	return state
}

// LoadStateDict restores velocity buffers.
//
// Missing buffers are left nil and re-initialized on the next Step.
// Returns an error if a restored buffer's shape does not match its
// parameter.
func (s *SGD) LoadStateDict(state map[string]*mat.Dense) error {
	if s.momentum == 0 {
		return nil
	}
	s.velocities = make([]*mat.Dense, len(s.params))
	for i, param := range s.params {
		v, ok := state[fmt.Sprintf("velocity.%d", i)]
		if !ok {
			continue
		}
		if err := checkBufferShape("velocity", v, param); err != nil {
			return err
		}
		s.velocities[i] = mat.DenseCopyOf(v)
	}
	return nil
}
