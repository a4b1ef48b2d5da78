package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Config is the hyperparameter record of a Classifier.
//
// It fully determines the architecture and is immutable once a model is
// constructed; checkpoints persist it so an equivalent model can be
// reconstructed at load time.
type Config struct {
	InputSize   int     `json:"input_size"`   // Flattened feature count (784 for 28x28 images)
	OutputSize  int     `json:"output_size"`  // Number of classes
	HiddenSizes []int   `json:"hidden_sizes"` // Widths of the hidden layers, in order
	Dropout     float64 `json:"dropout"`      // Drop probability for hidden activations, [0, 1)
}

// Validate checks that the configuration describes a buildable network.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be > 0, got %d", c.InputSize)
	}
	if c.OutputSize <= 0 {
		return fmt.Errorf("output size must be > 0, got %d", c.OutputSize)
	}
	for i, h := range c.HiddenSizes {
		if h <= 0 {
			return fmt.Errorf("hidden size %d must be > 0, got %d", i, h)
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %v", c.Dropout)
	}
	return nil
}

// Classifier is a feed-forward network mapping flattened images to class
// log-probabilities.
//
// Architecture, per hidden layer: Linear -> ReLU -> Dropout. Output:
// Linear -> LogSoftmax. Consecutive layer widths chain by construction:
// layer i's output width is layer i+1's input width.
//
// Forward is given an explicit Pass selecting train or eval behavior;
// there is no mode flag on the model itself.
type Classifier struct {
	cfg     Config
	stack   []Layer   // layers in forward order
	linears []*Linear // the affine layers, in order (hidden..., output)
}

// NewClassifier constructs a Classifier from the given configuration.
//
// The RNG drives weight initialization; nil falls back to a time-seeded
// source (see Train for the same convention).
func NewClassifier(cfg Config, rng *rand.Rand) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	c := &Classifier{cfg: cfg}

	in := cfg.InputSize
	for i, h := range cfg.HiddenSizes {
		linear := NewLinear(fmt.Sprintf("hidden.%d", i), in, h, rng)
		c.linears = append(c.linears, linear)
		c.stack = append(c.stack, linear, NewReLU())
		if cfg.Dropout > 0 {
			drop, err := NewDropout(cfg.Dropout)
			if err != nil {
				return nil, err
			}
			c.stack = append(c.stack, drop)
		}
		in = h
	}

	out := NewLinear("output", in, cfg.OutputSize, rng)
	c.linears = append(c.linears, out)
	c.stack = append(c.stack, out, NewLogSoftmax())

	return c, nil
}

// Config returns the hyperparameter record the model was built from.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Forward maps a batch of inputs to class log-probabilities.
//
// Input shape: [batch_size, InputSize]
// Output shape: [batch_size, OutputSize]; each row sums to 1 after
// exponentiation.
func (c *Classifier) Forward(x *mat.Dense, p *Pass) (*mat.Dense, error) {
	if p == nil {
		p = Eval()
	}
	cur := x
	for _, layer := range c.stack {
		var err error
		cur, err = layer.Forward(cur, p)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// Backward propagates the loss gradient through the network, accumulating
// parameter gradients.
//
// grad is the gradient of the loss with respect to the log-probabilities
// returned by Forward (typically NLLLoss.Backward output). Fails with
// ErrNoGrad if the preceding forward pass did not record.
func (c *Classifier) Backward(grad *mat.Dense) error {
	g := grad
	for i := len(c.stack) - 1; i >= 0; i-- {
		var err error
		g, err = c.stack[i].Backward(g)
		if err != nil {
			return err
		}
	}
	return nil
}

// Parameters returns all trainable parameters in forward order.
func (c *Classifier) Parameters() []*Parameter {
	var params []*Parameter
	for _, layer := range c.stack {
		params = append(params, layer.Parameters()...)
	}
	return params
}

// StateDict returns a map of parameter names to value matrices.
//
// Keys follow the layer naming scheme: "hidden.0.weight", "hidden.0.bias",
// ..., "output.weight", "output.bias". The matrices are the live parameter
// values, not copies.
func (c *Classifier) StateDict() map[string]*mat.Dense {
	state := make(map[string]*mat.Dense)
	for _, p := range c.Parameters() {
		state[p.Name()] = p.Value()
	}
	return state
}

// LoadStateDict populates the model parameters from a state dict.
//
// Every affine layer is validated before anything is copied: if any layer's
// stored shape disagrees with the model architecture, LoadStateDict fails
// with a ShapeError listing all mismatched layers and leaves the model
// untouched. Values are copied bit-for-bit on success.
func (c *Classifier) LoadStateDict(state map[string]*mat.Dense) error {
	var shapeErr ShapeError

	for _, linear := range c.linears {
		weight, ok := state[linear.Name()+".weight"]
		if !ok {
			return fmt.Errorf("missing %s.weight in state dict", linear.Name())
		}
		bias, ok := state[linear.Name()+".bias"]
		if !ok {
			return fmt.Errorf("missing %s.bias in state dict", linear.Name())
		}

		wr, wc := weight.Dims()
		br, bc := bias.Dims()
		if wr != linear.OutFeatures() || wc != linear.InFeatures() ||
			br != 1 || bc != linear.OutFeatures() {
			shapeErr.Mismatches = append(shapeErr.Mismatches, LayerMismatch{
				Layer:   linear.Name(),
				WantOut: linear.OutFeatures(),
				WantIn:  linear.InFeatures(),
				GotOut:  wr,
				GotIn:   wc,
			})
		}
	}
	if len(shapeErr.Mismatches) > 0 {
		return &shapeErr
	}

	for _, linear := range c.linears {
		copyDense(linear.Weight().Value(), state[linear.Name()+".weight"])
		copyDense(linear.Bias().Value(), state[linear.Name()+".bias"])
	}
	return nil
}

// copyDense copies src values into dst. Shapes are validated by the caller.
func copyDense(dst, src *mat.Dense) {
	rows, _ := src.Dims()
	for i := 0; i < rows; i++ {
		copy(dst.RawRowView(i), src.RawRowView(i))
	}
}
