package nn_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/weft-ml/weft/internal/nn"
)

// TestGradientCheck_Classifier validates the analytic backward pass of the
// full network against central finite differences on every parameter.
//
// Dropout is zero so the forward pass is deterministic and the numeric
// loss can be evaluated with eval passes.
func TestGradientCheck_Classifier(t *testing.T) {
	cfg := nn.Config{InputSize: 4, OutputSize: 3, HiddenSizes: []int{5}}
	model, err := nn.NewClassifier(cfg, rand.New(rand.NewSource(21)))
	if err != nil {
		t.Fatal(err)
	}

	x := randomBatch(2, 4, 22)
	labels := []int{1, 2}

	// Analytic gradients.
	logProbs, err := model.Forward(x, nn.Train(nil))
	if err != nil {
		t.Fatal(err)
	}
	var loss nn.NLLLoss
	if _, err := loss.Forward(logProbs, labels); err != nil {
		t.Fatal(err)
	}
	grad, err := loss.Backward()
	if err != nil {
		t.Fatal(err)
	}
	if err := model.Backward(grad); err != nil {
		t.Fatal(err)
	}

	lossAt := func() float64 {
		out, err := model.Forward(x, nn.Eval())
		if err != nil {
			t.Fatal(err)
		}
		var l nn.NLLLoss
		v, err := l.Forward(out, labels)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	const eps = 1e-6
	const tol = 1e-5
	for _, param := range model.Parameters() {
		analytic := param.Grad()
		if analytic == nil {
			t.Fatalf("parameter %s has no gradient after backward", param.Name())
		}

		rows, cols := param.Value().Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				orig := param.Value().At(i, j)

				param.Value().Set(i, j, orig+eps)
				plus := lossAt()
				param.Value().Set(i, j, orig-eps)
				minus := lossAt()
				param.Value().Set(i, j, orig)

				numeric := (plus - minus) / (2 * eps)
				if diff := math.Abs(numeric - analytic.At(i, j)); diff > tol {
					t.Fatalf("%s[%d,%d]: numeric %v vs analytic %v (diff %v)",
						param.Name(), i, j, numeric, analytic.At(i, j), diff)
				}
			}
		}
	}
}
