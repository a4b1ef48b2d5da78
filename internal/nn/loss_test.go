package nn_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

func TestNLLLoss_KnownValue(t *testing.T) {
	// loss = -( logp[0,0] + logp[1,1] ) / 2 = (0.5 + 0.1) / 2
	logProbs := mat.NewDense(2, 2, []float64{-0.5, -1.0, -2.0, -0.1})
	var loss nn.NLLLoss

	got, err := loss.Forward(logProbs, []int{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.3, got, 1e-12)

	grad, err := loss.Backward()
	require.NoError(t, err)
	assert.Equal(t, -0.5, grad.At(0, 0))
	assert.Equal(t, 0.0, grad.At(0, 1))
	assert.Equal(t, -0.5, grad.At(1, 1))
	assert.Equal(t, 0.0, grad.At(1, 0))
}

func TestNLLLoss_RejectsRawProbabilities(t *testing.T) {
	// Raw probabilities (positive values) are not log-probabilities.
	probs := mat.NewDense(1, 2, []float64{0.7, 0.3})
	var loss nn.NLLLoss

	_, err := loss.Forward(probs, []int{0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not log-probabilities")
}

func TestNLLLoss_LabelOutOfRange(t *testing.T) {
	logProbs := mat.NewDense(1, 3, []float64{-1, -1, -1})
	var loss nn.NLLLoss

	_, err := loss.Forward(logProbs, []int{3})
	assert.Error(t, err)
	_, err = loss.Forward(logProbs, []int{-1})
	assert.Error(t, err)
}

func TestNLLLoss_LabelCountMismatch(t *testing.T) {
	logProbs := mat.NewDense(2, 3, []float64{-1, -1, -1, -1, -1, -1})
	var loss nn.NLLLoss

	_, err := loss.Forward(logProbs, []int{0})
	assert.ErrorIs(t, err, nn.ErrShape)
}

func TestNLLLoss_BackwardBeforeForward(t *testing.T) {
	var loss nn.NLLLoss
	_, err := loss.Backward()
	assert.ErrorIs(t, err, nn.ErrNoGrad)
}

func TestAccuracy(t *testing.T) {
	logProbs := mat.NewDense(4, 3, []float64{
		-0.1, -2.0, -3.0, // argmax 0
		-2.0, -0.1, -3.0, // argmax 1
		-3.0, -2.0, -0.1, // argmax 2
		-0.1, -2.0, -3.0, // argmax 0, label 2 -> wrong
	})
	acc, err := nn.Accuracy(logProbs, []int{0, 1, 2, 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.75, acc, 1e-12)
}

// TestAccuracy_TieBreaksLow: when several classes tie for the maximum,
// the lowest class index wins.
func TestAccuracy_TieBreaksLow(t *testing.T) {
	tied := mat.NewDense(1, 3, []float64{-1.0, -2.0, -1.0})

	acc, err := nn.Accuracy(tied, []int{0})
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc, "tie must resolve to class 0")

	acc, err = nn.Accuracy(tied, []int{2})
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc, "tie must not resolve to class 2")
}

// TestLogSoftmax_StableOnLargeLogits: large logits must not overflow.
func TestLogSoftmax_StableOnLargeLogits(t *testing.T) {
	sm := nn.NewLogSoftmax()
	x := mat.NewDense(1, 3, []float64{1000, 1001, 1002})

	out, err := sm.Forward(x, nn.Eval())
	require.NoError(t, err)

	sum := 0.0
	for j := 0; j < 3; j++ {
		v := out.At(0, j)
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "out[%d] = %v", j, v)
		sum += math.Exp(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}
