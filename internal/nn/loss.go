package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// logProbTolerance is how far above zero a "log-probability" may sit before
// the input is rejected as not being in log space. Exact zeros are legal
// (a certain class); clearly positive values are not.
const logProbTolerance = 1e-9

// NLLLoss computes the negative log-likelihood of the true class.
//
//	loss = -mean(logProbs[i, labels[i]])
//
// The input must already be log-probabilities (LogSoftmax output). Raw
// probabilities or logits are rejected: probabilities would silently
// produce a wrong scale, and positive entries prove the input is not in
// log space.
//
// Forward caches what Backward needs; call them in pairs per batch.
type NLLLoss struct {
	logProbs *mat.Dense
	labels   []int
}

// Forward computes the mean negative log-likelihood of labels under
// logProbs.
//
// logProbs shape: [batch_size, num_classes]; labels length: batch_size,
// values in [0, num_classes).
func (l *NLLLoss) Forward(logProbs *mat.Dense, labels []int) (float64, error) {
	rows, cols := logProbs.Dims()
	if len(labels) != rows {
		return 0, fmt.Errorf("%w: %d labels for %d rows", ErrShape, len(labels), rows)
	}

	sum := 0.0
	for i, label := range labels {
		if label < 0 || label >= cols {
			return 0, fmt.Errorf("label %d out of range [0, %d) at index %d", label, cols, i)
		}
		v := logProbs.At(i, label)
		if v > logProbTolerance {
			return 0, fmt.Errorf("input is not log-probabilities: value %v > 0 at [%d, %d]", v, i, label)
		}
		sum -= v
	}

	l.logProbs = logProbs
	l.labels = labels
	return sum / float64(rows), nil
}

// Backward returns the gradient of the loss with respect to the
// log-probabilities: -1/batch_size at each true class, zero elsewhere.
func (l *NLLLoss) Backward() (*mat.Dense, error) {
	if l.logProbs == nil {
		return nil, fmt.Errorf("%w: NLLLoss", ErrNoGrad)
	}
	rows, cols := l.logProbs.Dims()
	grad := mat.NewDense(rows, cols, nil)
	scale := -1.0 / float64(rows)
	for i, label := range l.labels {
		grad.Set(i, label, scale)
	}
	return grad, nil
}

// Accuracy returns the fraction of rows whose arg-max class matches the
// label.
//
// Ties break toward the lowest class index (first maximum). Log-space
// inputs are fine: log is monotonic, so the arg-max is unchanged.
func Accuracy(logProbs *mat.Dense, labels []int) (float64, error) {
	rows, cols := logProbs.Dims()
	if len(labels) != rows {
		return 0, fmt.Errorf("%w: %d labels for %d rows", ErrShape, len(labels), rows)
	}

	correct := 0
	for i, label := range labels {
		if label < 0 || label >= cols {
			return 0, fmt.Errorf("label %d out of range [0, %d) at index %d", label, cols, i)
		}
		if floats.MaxIdx(logProbs.RawRowView(i)) == label {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}
