// Package dataset provides image classification datasets and the batch
// loader that feeds them to the training loop.
//
// Datasets hold flattened, normalized feature vectors with integer class
// labels. Loaders produce fixed-size batches, reshuffled per epoch for
// training, and signal the end of an epoch with ErrExhausted.
package dataset

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Dataset holds flattened examples and their class labels.
//
// Inputs are stored as one [n, featureDim] matrix with values normalized
// to [0, 1]; labels are class indices in [0, NumClasses).
type Dataset struct {
	inputs     *mat.Dense
	labels     []int
	numClasses int
	classNames []string
}

// New creates a dataset from a feature matrix and labels.
//
// classNames may be nil; when present its length must equal numClasses.
func New(inputs *mat.Dense, labels []int, numClasses int, classNames []string) (*Dataset, error) {
	rows, _ := inputs.Dims()
	if rows != len(labels) {
		return nil, fmt.Errorf("dataset: %d inputs but %d labels", rows, len(labels))
	}
	if numClasses <= 0 {
		return nil, fmt.Errorf("dataset: numClasses must be > 0, got %d", numClasses)
	}
	if classNames != nil && len(classNames) != numClasses {
		return nil, fmt.Errorf("dataset: %d class names for %d classes", len(classNames), numClasses)
	}
	for i, label := range labels {
		if label < 0 || label >= numClasses {
			return nil, fmt.Errorf("dataset: label %d out of range [0, %d) at index %d", label, numClasses, i)
		}
	}
	return &Dataset{inputs: inputs, labels: labels, numClasses: numClasses, classNames: classNames}, nil
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return len(d.labels)
}

// FeatureDim returns the flattened feature count per example.
func (d *Dataset) FeatureDim() int {
	_, cols := d.inputs.Dims()
	return cols
}

// NumClasses returns the number of classes.
func (d *Dataset) NumClasses() int {
	return d.numClasses
}

// Input returns the feature vector of example i as a read-only slice.
func (d *Dataset) Input(i int) []float64 {
	return d.inputs.RawRowView(i)
}

// Label returns the class label of example i.
func (d *Dataset) Label(i int) int {
	return d.labels[i]
}

// ClassName returns a human-readable name for a class, falling back to the
// numeric index when no names are attached.
func (d *Dataset) ClassName(class int) string {
	if d.classNames != nil && class >= 0 && class < len(d.classNames) {
		return d.classNames[class]
	}
	return fmt.Sprintf("%d", class)
}

// Split partitions the dataset into a training and a validation set.
//
// The first (1-valRatio) fraction becomes the training set; the remainder
// the validation set. Both sides share the underlying storage with the
// parent. Shuffle before splitting if ordering matters.
func (d *Dataset) Split(valRatio float64) (*Dataset, *Dataset, error) {
	if valRatio <= 0 || valRatio >= 1 {
		return nil, nil, fmt.Errorf("dataset: valRatio must be in (0, 1), got %v", valRatio)
	}
	n := d.Len()
	splitIdx := int(float64(n) * (1.0 - valRatio))
	if splitIdx == 0 || splitIdx == n {
		return nil, nil, fmt.Errorf("dataset: split of %d examples at ratio %v leaves an empty side", n, valRatio)
	}
	_, dim := d.inputs.Dims()

	train := &Dataset{
		inputs:     d.inputs.Slice(0, splitIdx, 0, dim).(*mat.Dense),
		labels:     d.labels[:splitIdx],
		numClasses: d.numClasses,
		classNames: d.classNames,
	}
	val := &Dataset{
		inputs:     d.inputs.Slice(splitIdx, n, 0, dim).(*mat.Dense),
		labels:     d.labels[splitIdx:],
		numClasses: d.numClasses,
		classNames: d.classNames,
	}
	return train, val, nil
}

// Shuffle permutes the dataset in place using the given RNG.
func (d *Dataset) Shuffle(rng *rand.Rand) {
	rng.Shuffle(d.Len(), func(i, j int) {
		d.labels[i], d.labels[j] = d.labels[j], d.labels[i]
		ri := d.inputs.RawRowView(i)
		rj := d.inputs.RawRowView(j)
		for k := range ri {
			ri[k], rj[k] = rj[k], ri[k]
		}
	})
}
