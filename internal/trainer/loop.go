// Package trainer orchestrates epochs of training and validation.
//
// One epoch trains over every batch of the training loader, then
// evaluates every batch of the validation loader with dropout disabled
// and no gradient recording, and appends a summary to the history. The
// loop is synchronous and single-threaded: batches are processed strictly
// sequentially, and the model parameters are owned exclusively by the
// loop for the duration of Fit.
//
// The loop itself never retries and never recovers a partial epoch: any
// failure inside a batch is terminal for the run. Overfitting (training
// loss falling while validation loss rises) is an expected end state, not
// an error; acting on it is caller policy via the OnEpochEnd hook.
package trainer

import (
	"errors"
	"fmt"
	"log"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/weft-ml/weft/internal/dataset"
	"github.com/weft-ml/weft/internal/nn"
	"github.com/weft-ml/weft/internal/optim"
)

// ErrNoBatches indicates a loader produced no batches when at least one
// was expected.
var ErrNoBatches = errors.New("trainer: data loader produced no batches")

// EpochStats summarizes one completed epoch.
type EpochStats struct {
	Epoch       int     // 0-based epoch index
	TrainLoss   float64 // mean loss over training batches
	ValLoss     float64 // mean loss over validation batches
	ValAccuracy float64 // mean accuracy over validation batches
}

// History is the append-only sequence of per-epoch summaries, ordered by
// epoch.
type History []EpochStats

// Config holds the knobs of a training run.
type Config struct {
	// Epochs is the number of full passes over the training data.
	Epochs int

	// Seed drives dropout masking. Runs with the same seed, data order,
	// and initialization are reproducible.
	Seed int64

	// Logger receives one line per epoch. Nil disables logging.
	Logger *log.Logger

	// OnEpochEnd, if set, is called after each epoch summary. Returning
	// false stops training after the current epoch; this is where early
	// stopping lives.
	OnEpochEnd func(EpochStats) bool
}

// Trainer drives the training of a classifier.
type Trainer struct {
	model *nn.Classifier
	opt   optim.Optimizer
	cfg   Config
	rng   *rand.Rand
}

// New creates a trainer for model using opt.
func New(model *nn.Classifier, opt optim.Optimizer, cfg Config) (*Trainer, error) {
	if cfg.Epochs <= 0 {
		return nil, fmt.Errorf("trainer: epochs must be > 0, got %d", cfg.Epochs)
	}
	return &Trainer{
		model: model,
		opt:   opt,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Fit trains for the configured number of epochs, validating after each.
//
// Returns the history of completed epochs. On failure the history covers
// the epochs that finished before the error.
func (t *Trainer) Fit(train, val *dataset.Loader) (History, error) {
	var history History

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		trainLoss, err := t.trainEpoch(train)
		if err != nil {
			return history, fmt.Errorf("epoch %d: %w", epoch, err)
		}

		valLoss, valAcc, err := Evaluate(t.model, val)
		if err != nil {
			return history, fmt.Errorf("epoch %d validation: %w", epoch, err)
		}

		stats := EpochStats{
			Epoch:       epoch,
			TrainLoss:   trainLoss,
			ValLoss:     valLoss,
			ValAccuracy: valAcc,
		}
		history = append(history, stats)

		if t.cfg.Logger != nil {
			t.cfg.Logger.Printf("epoch=%d train_loss=%.4f val_loss=%.4f val_accuracy=%.4f",
				epoch, trainLoss, valLoss, valAcc)
		}
		if t.cfg.OnEpochEnd != nil && !t.cfg.OnEpochEnd(stats) {
			break
		}
	}

	return history, nil
}

// trainEpoch runs one pass over the training loader and returns the mean
// batch loss.
func (t *Trainer) trainEpoch(loader *dataset.Loader) (float64, error) {
	loader.Reset()

	var loss nn.NLLLoss
	var losses []float64
	for {
		batch, err := loader.Next()
		if errors.Is(err, dataset.ErrExhausted) {
			break
		}
		if err != nil {
			return 0, err
		}

		t.opt.ZeroGrad()

		logProbs, err := t.model.Forward(batch.Inputs, nn.Train(t.rng))
		if err != nil {
			return 0, err
		}
		batchLoss, err := loss.Forward(logProbs, batch.Labels)
		if err != nil {
			return 0, err
		}
		grad, err := loss.Backward()
		if err != nil {
			return 0, err
		}
		if err := t.model.Backward(grad); err != nil {
			return 0, err
		}
		t.opt.Step()

		losses = append(losses, batchLoss)
	}

	if len(losses) == 0 {
		return 0, ErrNoBatches
	}
	return stat.Mean(losses, nil), nil
}

// Evaluate runs the model over every batch of the loader in eval mode and
// returns the mean batch loss and mean batch accuracy.
//
// Dropout is disabled and nothing is recorded for backward, so two
// evaluations of the same data yield identical results.
func Evaluate(model *nn.Classifier, loader *dataset.Loader) (meanLoss, meanAccuracy float64, err error) {
	loader.Reset()

	var loss nn.NLLLoss
	var losses, accuracies []float64
	for {
		batch, err := loader.Next()
		if errors.Is(err, dataset.ErrExhausted) {
			break
		}
		if err != nil {
			return 0, 0, err
		}

		logProbs, err := model.Forward(batch.Inputs, nn.Eval())
		if err != nil {
			return 0, 0, err
		}
		batchLoss, err := loss.Forward(logProbs, batch.Labels)
		if err != nil {
			return 0, 0, err
		}
		batchAcc, err := nn.Accuracy(logProbs, batch.Labels)
		if err != nil {
			return 0, 0, err
		}

		losses = append(losses, batchLoss)
		accuracies = append(accuracies, batchAcc)
	}

	if len(losses) == 0 {
		return 0, 0, ErrNoBatches
	}
	return stat.Mean(losses, nil), stat.Mean(accuracies, nil), nil
}
