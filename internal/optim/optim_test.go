package optim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
	"github.com/weft-ml/weft/internal/optim"
)

func newParam(name string, values []float64) *nn.Parameter {
	return nn.NewParameter(name, mat.NewDense(1, len(values), values))
}

func TestSGD_Step(t *testing.T) {
	param := newParam("w", []float64{1.0, 2.0})
	sgd := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	param.AddGrad(mat.NewDense(1, 2, []float64{0.5, -0.5}))
	sgd.Step()

	// param -= lr * grad
	assert.InDelta(t, 0.95, param.Value().At(0, 0), 1e-12)
	assert.InDelta(t, 2.05, param.Value().At(0, 1), 1e-12)
}

func TestSGD_SkipsParamsWithoutGrad(t *testing.T) {
	param := newParam("w", []float64{1.0})
	sgd := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1})

	sgd.Step()
	assert.Equal(t, 1.0, param.Value().At(0, 0))
}

func TestSGD_Momentum(t *testing.T) {
	param := newParam("w", []float64{0.0})
	sgd := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = g = 1, param = -0.1
	param.AddGrad(mat.NewDense(1, 1, []float64{1}))
	sgd.Step()
	assert.InDelta(t, -0.1, param.Value().At(0, 0), 1e-12)

	// Step 2: v = 0.9*1 + 1 = 1.9, param = -0.1 - 0.19 = -0.29
	sgd.ZeroGrad()
	param.AddGrad(mat.NewDense(1, 1, []float64{1}))
	sgd.Step()
	assert.InDelta(t, -0.29, param.Value().At(0, 0), 1e-12)
}

func TestSGD_Defaults(t *testing.T) {
	sgd := optim.NewSGD(nil, optim.SGDConfig{})
	assert.Equal(t, 0.01, sgd.LR())
}

func TestSGD_StateDictRoundTrip(t *testing.T) {
	param := newParam("w", []float64{0, 0, 0})
	src := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	param.AddGrad(mat.NewDense(1, 3, []float64{1, 2, 3}))
	src.Step()

	state := src.StateDict()
	require.Contains(t, state, "velocity.0")

	dst := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})
	require.NoError(t, dst.LoadStateDict(state))
	assert.True(t, mat.Equal(state["velocity.0"], dst.StateDict()["velocity.0"]))
}

func TestSGD_LoadStateDictShapeMismatch(t *testing.T) {
	param := newParam("w", []float64{0, 0, 0})
	sgd := optim.NewSGD([]*nn.Parameter{param}, optim.SGDConfig{LR: 0.1, Momentum: 0.9})

	err := sgd.LoadStateDict(map[string]*mat.Dense{
		"velocity.0": mat.NewDense(1, 2, []float64{1, 2}),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape mismatch")
}

func TestAdam_Step(t *testing.T) {
	param := newParam("w", []float64{1.0})
	adam := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})

	param.AddGrad(mat.NewDense(1, 1, []float64{1}))
	adam.Step()

	// First step with defaults moves by ~lr regardless of gradient scale.
	assert.InDelta(t, 1.0-0.001, param.Value().At(0, 0), 1e-6)
}

func TestAdam_Defaults(t *testing.T) {
	adam := optim.NewAdam(nil, optim.AdamConfig{})
	assert.Equal(t, 0.001, adam.LR())
}

func TestAdam_DescendsQuadratic(t *testing.T) {
	// Minimize f(w) = w^2; gradient is 2w. Adam should walk toward 0.
	param := newParam("w", []float64{1.0})
	adam := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{LR: 0.05})

	for i := 0; i < 200; i++ {
		adam.ZeroGrad()
		w := param.Value().At(0, 0)
		param.AddGrad(mat.NewDense(1, 1, []float64{2 * w}))
		adam.Step()
	}
	assert.Less(t, param.Value().At(0, 0), 0.1)
	assert.Greater(t, param.Value().At(0, 0), -0.5)
}

func TestAdam_StateDictRoundTrip(t *testing.T) {
	param := newParam("w", []float64{1, 2})
	src := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})

	param.AddGrad(mat.NewDense(1, 2, []float64{0.1, 0.2}))
	src.Step()

	state := src.StateDict()
	require.Contains(t, state, "m.0")
	require.Contains(t, state, "v.0")
	require.Contains(t, state, "step")

	dst := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})
	require.NoError(t, dst.LoadStateDict(state))

	restored := dst.StateDict()
	assert.True(t, mat.Equal(state["m.0"], restored["m.0"]))
	assert.True(t, mat.Equal(state["v.0"], restored["v.0"]))
	assert.Equal(t, state["step"].At(0, 0), restored["step"].At(0, 0))
}

func TestAdam_IncompleteState(t *testing.T) {
	param := newParam("w", []float64{1})
	adam := optim.NewAdam([]*nn.Parameter{param}, optim.AdamConfig{})

	err := adam.LoadStateDict(map[string]*mat.Dense{
		"m.0": mat.NewDense(1, 1, []float64{0.5}),
	})
	assert.Error(t, err)
}
