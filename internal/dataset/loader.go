package dataset

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrExhausted signals that the loader has handed out every batch of the
// current epoch. Reset starts the next epoch.
var ErrExhausted = errors.New("dataset: loader exhausted")

// Batch is a fixed-size group of examples processed together.
type Batch struct {
	Inputs *mat.Dense // [batch_size, feature_dim]
	Labels []int      // [batch_size]
}

// Size returns the number of examples in the batch.
func (b *Batch) Size() int {
	return len(b.Labels)
}

// Loader yields fixed-size batches from a dataset.
//
// The batch size is fixed for the life of the loader; the final batch of
// an epoch may be smaller when the dataset size is not a multiple. A
// shuffling loader draws a fresh permutation on every Reset, so batch
// composition varies across epochs; a non-shuffling loader replays the
// dataset order.
//
// Loaders are restartable: Next returns ErrExhausted at the end of an
// epoch and Reset rewinds (and reshuffles) for the next one.
type Loader struct {
	ds        *Dataset
	batchSize int
	shuffle   bool
	rng       *rand.Rand
	order     []int
	pos       int
}

// NewLoader creates a loader over ds.
//
// The seed drives epoch shuffling and is only consulted when shuffle is
// true.
func NewLoader(ds *Dataset, batchSize int, shuffle bool, seed int64) (*Loader, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("dataset: batch size must be > 0, got %d", batchSize)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset: cannot load from an empty dataset")
	}

	l := &Loader{
		ds:        ds,
		batchSize: batchSize,
		shuffle:   shuffle,
		rng:       rand.New(rand.NewSource(seed)),
		order:     make([]int, ds.Len()),
	}
	for i := range l.order {
		l.order[i] = i
	}
	l.Reset()
	return l, nil
}

// BatchSize returns the fixed batch size.
func (l *Loader) BatchSize() int {
	return l.batchSize
}

// Batches returns the number of batches per epoch.
func (l *Loader) Batches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Reset rewinds the loader to the start of a fresh epoch, drawing a new
// permutation when shuffling is enabled.
func (l *Loader) Reset() {
	l.pos = 0
	if l.shuffle {
		l.rng.Shuffle(len(l.order), func(i, j int) {
			l.order[i], l.order[j] = l.order[j], l.order[i]
		})
	}
}

// Next returns the next batch of the current epoch, or ErrExhausted when
// every example has been handed out.
func (l *Loader) Next() (*Batch, error) {
	if l.pos >= len(l.order) {
		return nil, ErrExhausted
	}

	end := l.pos + l.batchSize
	if end > len(l.order) {
		end = len(l.order)
	}
	size := end - l.pos

	inputs := mat.NewDense(size, l.ds.FeatureDim(), nil)
	labels := make([]int, size)
	for i, idx := range l.order[l.pos:end] {
		copy(inputs.RawRowView(i), l.ds.Input(idx))
		labels[i] = l.ds.Label(idx)
	}
	l.pos = end

	return &Batch{Inputs: inputs, Labels: labels}, nil
}
