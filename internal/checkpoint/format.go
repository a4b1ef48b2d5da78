// Package checkpoint persists model snapshots to durable storage.
//
// A snapshot is one .weft file holding the model's hyperparameter record
// (nn.Config) and its parameter values, optionally plus optimizer state
// and training metadata. Saving overwrites the destination atomically;
// loading reconstructs a numerically identical model.
//
// File layout:
//
//	[4]  magic "WEFT"
//	[4]  format version (uint32 little-endian)
//	[4]  flags (uint32 little-endian)
//	[8]  header size (uint64 little-endian)
//	[n]  JSON header (architecture, tensor table, SHA-256 of data section)
//	[..] zero padding to 64-byte alignment
//	[..] tensor data: raw little-endian float64, in header order
//
// The byte layout is an implementation detail; the contract is round-trip
// fidelity, verified by the data-section checksum.
package checkpoint

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// Format constants.
const (
	magicBytes      = "WEFT"
	formatVersion   = 1
	headerAlignment = 64
	maxHeaderSize   = 16 * 1024 * 1024 // 16MB cap on the JSON header
	weftVersion     = "0.1.0"
)

// Flags for the .weft format.
const (
	flagHasOptimizer uint32 = 1 << 0 // optimizer state included
)

// fixedPrefixSize is the byte count before the JSON header:
// magic + version + flags + header size.
const fixedPrefixSize = 4 + 4 + 4 + 8

// header is the JSON header of a .weft file.
type header struct {
	FormatVersion int           `json:"format_version"`
	WeftVersion   string        `json:"weft_version"`
	CreatedAt     time.Time     `json:"created_at"`
	Arch          nn.Config     `json:"arch"`
	Checksum      string        `json:"checksum"` // SHA-256 of the data section, hex
	Tensors       []tensorMeta  `json:"tensors"`
	Training      *TrainingMeta `json:"training,omitempty"`
}

// tensorMeta describes one tensor in the data section.
type tensorMeta struct {
	Name   string `json:"name"`
	Shape  [2]int `json:"shape"`  // [rows, cols]
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // bytes
}

// TrainingMeta carries optional training state alongside a snapshot.
type TrainingMeta struct {
	Epoch     int     `json:"epoch"`
	Loss      float64 `json:"loss"`
	Optimizer string  `json:"optimizer,omitempty"` // "sgd", "adam"
}

// Snapshot is the in-memory form of a .weft file.
//
// Params holds the model state dict; OptimizerState holds any optimizer
// buffers that were saved alongside it (stored under an "optimizer."
// prefix on disk, split back out on load).
type Snapshot struct {
	Arch           nn.Config
	Params         map[string]*mat.Dense
	OptimizerState map[string]*mat.Dense
	CreatedAt      time.Time
	Training       *TrainingMeta
}
