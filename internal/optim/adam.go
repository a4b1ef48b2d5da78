package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Adam maintains exponential moving averages of gradients (first moment)
// and squared gradients (second moment), with bias correction for their
// zero initialization:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * g
//	v_t = beta2 * v_{t-1} + (1-beta2) * g^2
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba, 2014).
type Adam struct {
	params []*nn.Parameter
	lr     float64
	beta1  float64
	beta2  float64
	eps    float64
	t      int          // timestep for bias correction
	m      []*mat.Dense // first moment estimates, indexed like params
	v      []*mat.Dense // second moment estimates
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving-average coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates a new Adam optimizer over the given parameters.
func NewAdam(params []*nn.Parameter, config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{
		params: params,
		lr:     config.LR,
		beta1:  config.Betas[0],
		beta2:  config.Betas[1],
		eps:    config.Eps,
		m:      make([]*mat.Dense, len(params)),
		v:      make([]*mat.Dense, len(params)),
	}
}

// Step applies one Adam update to all parameters.
//
// Parameters with no accumulated gradient are skipped.
func (a *Adam) Step() {
	a.t++
	biasCorrection1 := 1.0 - math.Pow(a.beta1, float64(a.t))
	biasCorrection2 := 1.0 - math.Pow(a.beta2, float64(a.t))

	for i, param := range a.params {
		grad := param.Grad()
		if grad == nil {
			continue
		}

		rows, cols := param.Value().Dims()
		if a.m[i] == nil {
			a.m[i] = mat.NewDense(rows, cols, nil)
			a.v[i] = mat.NewDense(rows, cols, nil)
		}

		gData := grad.RawMatrix().Data
		mData := a.m[i].RawMatrix().Data
		vData := a.v[i].RawMatrix().Data
		pData := param.Value().RawMatrix().Data

		for j := range pData {
			g := gData[j]
			mData[j] = a.beta1*mData[j] + (1-a.beta1)*g
			vData[j] = a.beta2*vData[j] + (1-a.beta2)*g*g
			mHat := mData[j] / biasCorrection1
			vHat := vData[j] / biasCorrection2
			pData[j] -= a.lr * mHat / (math.Sqrt(vHat) + a.eps)
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (a *Adam) ZeroGrad() {
	for _, param := range a.params {
		param.ZeroGrad()
	}
}

// LR returns the current learning rate.
func (a *Adam) LR() float64 {
	return a.lr
}

// SetLR updates the learning rate. Useful for scheduling.
func (a *Adam) SetLR(lr float64) {
	a.lr = lr
}

// StateDict returns moment buffers keyed "m.<i>" / "v.<i>" plus the step
// counter as a 1x1 matrix under "step".
func (a *Adam) StateDict() map[string]*mat.Dense {
	state := make(map[string]*mat.Dense)
	for i := range a.params {
		if a.m[i] == nil {
			continue
		}
		state[fmt.Sprintf("m.%d", i)] = a.m[i]
		state[fmt.Sprintf("v.%d", i)] = a.v[i]
	}
	state["step"] = mat.NewDense(1, 1, []float64{float64(a.t)})
	return state
}

// LoadStateDict restores moment buffers and the step counter.
func (a *Adam) LoadStateDict(state map[string]*mat.Dense) error {
	a.m = make([]*mat.Dense, len(a.params))
	a.v = make([]*mat.Dense, len(a.params))
	for i, param := range a.params {
		m, mOK := state[fmt.Sprintf("m.%d", i)]
		v, vOK := state[fmt.Sprintf("v.%d", i)]
		if !mOK && !vOK {
			continue
		}
		if mOK != vOK {
			return fmt.Errorf("incomplete Adam state for parameter %d", i)
		}
		if err := checkBufferShape("m", m, param); err != nil {
			return err
		}
		if err := checkBufferShape("v", v, param); err != nil {
			return err
		}
		a.m[i] = mat.DenseCopyOf(m)
		a.v[i] = mat.DenseCopyOf(v)
	}
	if step, ok := state["step"]; ok {
		a.t = int(step.At(0, 0))
	}
	return nil
}
