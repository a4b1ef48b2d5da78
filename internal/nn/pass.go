package nn

import (
	"math/rand"
	"time"
)

// Mode selects the behavior of stochastic layers during a forward pass.
type Mode int

// Supported pass modes.
const (
	// ModeEval disables dropout and gradient recording. Deterministic.
	ModeEval Mode = iota
	// ModeTrain enables dropout and records state for Backward.
	ModeTrain
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeEval:
		return "eval"
	case ModeTrain:
		return "train"
	default:
		return "unknown"
	}
}

// Pass describes one forward pass through a model.
//
// The pass is the only place mode lives: there is no global train/eval
// flag to flip and forget. A train pass drops activations stochastically
// and records layer state so Backward can run; an eval pass is
// deterministic and records nothing, so a subsequent Backward fails with
// ErrNoGrad instead of silently using stale state.
type Pass struct {
	mode   Mode
	rng    *rand.Rand
	record bool
}

// Train creates a training pass.
//
// The RNG drives dropout masking. If rng is nil a time-seeded source is
// created, but callers that care about reproducibility should pass their
// own.
func Train(rng *rand.Rand) *Pass {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pass{mode: ModeTrain, rng: rng, record: true}
}

// Eval creates an evaluation pass: dropout disabled, nothing recorded.
func Eval() *Pass {
	return &Pass{mode: ModeEval}
}

// Mode returns the pass mode.
func (p *Pass) Mode() Mode {
	return p.mode
}

// Training reports whether stochastic layers (dropout) are active.
func (p *Pass) Training() bool {
	return p.mode == ModeTrain
}

// Records reports whether layers cache state for a following Backward.
func (p *Pass) Records() bool {
	return p.record
}

// RNG returns the random source for stochastic layers. Nil on eval passes.
func (p *Pass) RNG() *rand.Rand {
	return p.rng
}
