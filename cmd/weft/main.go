// Package main provides the weft CLI: train and evaluate feed-forward
// image classifiers on MNIST-style datasets.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/weft-ml/weft/internal/checkpoint"
	"github.com/weft-ml/weft/internal/dataset"
	"github.com/weft-ml/weft/internal/nn"
	"github.com/weft-ml/weft/internal/optim"
	"github.com/weft-ml/weft/internal/trainer"
)

const version = "v0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "eval":
		err = runEval(os.Args[2:])
	case "version":
		fmt.Printf("weft %s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("weft - feed-forward image classifier training")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train      Train a classifier on an IDX dataset directory")
	fmt.Println("  eval       Evaluate a saved checkpoint on the test split")
	fmt.Println("  version    Show version")
	fmt.Println()
	fmt.Println("Run 'weft <command> -h' for command flags.")
}

func runTrain(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	dataDir := fs.String("data", "", "directory with IDX files (required)")
	fashion := fs.Bool("fashion", false, "attach Fashion-MNIST class names")
	hidden := fs.String("hidden", "256,128,64", "comma-separated hidden layer widths")
	dropout := fs.Float64("dropout", 0.2, "dropout probability for hidden activations")
	epochs := fs.Int("epochs", 5, "training epochs")
	batchSize := fs.Int("batch", 64, "batch size")
	lr := fs.Float64("lr", 0.003, "learning rate")
	momentum := fs.Float64("momentum", 0.9, "SGD momentum (ignored by adam)")
	optimizer := fs.String("optimizer", "adam", "optimizer: sgd or adam")
	valRatio := fs.Float64("val", 0.1, "fraction of training data held out for validation")
	seed := fs.Int64("seed", 42, "RNG seed for init, shuffling, and dropout")
	out := fs.String("out", "model.weft", "checkpoint output path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataDir == "" {
		return fmt.Errorf("-data is required")
	}

	hiddenSizes, err := parseWidths(*hidden)
	if err != nil {
		return err
	}

	var classNames []string
	if *fashion {
		classNames = dataset.FashionClassNames
	}
	ds, err := dataset.LoadIDX(*dataDir, true, classNames)
	if err != nil {
		return err
	}
	trainSet, valSet, err := ds.Split(*valRatio)
	if err != nil {
		return err
	}

	cfg := nn.Config{
		InputSize:   ds.FeatureDim(),
		OutputSize:  ds.NumClasses(),
		HiddenSizes: hiddenSizes,
		Dropout:     *dropout,
	}
	model, err := nn.NewClassifier(cfg, newRNG(*seed))
	if err != nil {
		return err
	}

	var opt optim.Optimizer
	switch *optimizer {
	case "sgd":
		opt = optim.NewSGD(model.Parameters(), optim.SGDConfig{LR: *lr, Momentum: *momentum})
	case "adam":
		opt = optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: *lr})
	default:
		return fmt.Errorf("unknown optimizer %q (want sgd or adam)", *optimizer)
	}

	trainLoader, err := dataset.NewLoader(trainSet, *batchSize, true, *seed)
	if err != nil {
		return err
	}
	valLoader, err := dataset.NewLoader(valSet, *batchSize, false, *seed)
	if err != nil {
		return err
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	t, err := trainer.New(model, opt, trainer.Config{
		Epochs: *epochs,
		Seed:   *seed,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	logger.Printf("training %v on %d examples (%d validation)",
		hiddenSizes, trainSet.Len(), valSet.Len())
	history, err := t.Fit(trainLoader, valLoader)
	if err != nil {
		return err
	}

	snap := &checkpoint.Snapshot{
		Arch:           cfg,
		Params:         model.StateDict(),
		OptimizerState: opt.StateDict(),
		Training: &checkpoint.TrainingMeta{
			Epoch:     len(history) - 1,
			Loss:      history[len(history)-1].TrainLoss,
			Optimizer: *optimizer,
		},
	}
	if err := checkpoint.SaveSnapshot(*out, snap); err != nil {
		return err
	}
	logger.Printf("saved checkpoint to %s", *out)
	return nil
}

func runEval(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	dataDir := fs.String("data", "", "directory with IDX files (required)")
	fashion := fs.Bool("fashion", false, "attach Fashion-MNIST class names")
	modelPath := fs.String("model", "model.weft", "checkpoint path")
	batchSize := fs.Int("batch", 64, "batch size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataDir == "" {
		return fmt.Errorf("-data is required")
	}

	model, snap, err := checkpoint.LoadClassifier(*modelPath)
	if err != nil {
		return err
	}

	var classNames []string
	if *fashion {
		classNames = dataset.FashionClassNames
	}
	ds, err := dataset.LoadIDX(*dataDir, false, classNames)
	if err != nil {
		return err
	}
	loader, err := dataset.NewLoader(ds, *batchSize, false, 0)
	if err != nil {
		return err
	}

	loss, acc, err := trainer.Evaluate(model, loader)
	if err != nil {
		return err
	}

	arch := snap.Arch
	fmt.Printf("model: input=%d hidden=%v output=%d dropout=%v\n",
		arch.InputSize, arch.HiddenSizes, arch.OutputSize, arch.Dropout)
	fmt.Printf("test loss: %.4f\n", loss)
	fmt.Printf("test accuracy: %.2f%%\n", acc*100)
	return nil
}

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// parseWidths parses "256,128,64" into []int{256, 128, 64}.
func parseWidths(s string) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	widths := make([]int, 0, len(parts))
	for _, part := range parts {
		w, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid hidden width %q: %w", part, err)
		}
		widths = append(widths, w)
	}
	return widths, nil
}
