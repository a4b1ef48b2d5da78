package nn

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	// ErrShape indicates incompatible tensor dimensions, either between an
	// input and a layer or between a checkpoint and a reconstructed model.
	ErrShape = errors.New("shape mismatch")

	// ErrNoGrad indicates a mode misuse: Backward was invoked without a
	// preceding forward pass that recorded state (e.g. after an eval pass).
	ErrNoGrad = errors.New("backward without a recorded forward pass")
)

// LayerMismatch describes one layer whose stored parameter shape disagrees
// with the shape the model expects.
type LayerMismatch struct {
	Layer   string // Layer name (e.g. "hidden.0", "output")
	WantOut int    // Output width expected by the model
	WantIn  int    // Input width expected by the model
	GotOut  int    // Output width found in the state dict
	GotIn   int    // Input width found in the state dict
}

func (m LayerMismatch) String() string {
	return fmt.Sprintf("%s: want [%d %d], got [%d %d]",
		m.Layer, m.WantOut, m.WantIn, m.GotOut, m.GotIn)
}

// ShapeError reports every layer whose parameters could not be populated
// from a state dict. All offending layers are collected before failing, so
// the caller sees the full extent of an architecture mismatch rather than
// just the first bad layer.
type ShapeError struct {
	Mismatches []LayerMismatch
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	parts := make([]string, len(e.Mismatches))
	for i, m := range e.Mismatches {
		parts[i] = m.String()
	}
	return fmt.Sprintf("shape mismatch in %d layer(s): %s",
		len(e.Mismatches), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrShape) match a ShapeError.
func (e *ShapeError) Unwrap() error {
	return ErrShape
}
