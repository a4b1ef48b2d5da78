package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// Save writes a full snapshot of arch and params to path.
//
// The write is atomic: the snapshot is assembled in a temporary file next
// to the destination and renamed into place, so a crash mid-save never
// leaves a truncated checkpoint and any existing snapshot at path is
// either fully replaced or untouched. No versioning or merging: the file
// is always a whole snapshot.
func Save(path string, arch nn.Config, params map[string]*mat.Dense) error {
	return SaveSnapshot(path, &Snapshot{Arch: arch, Params: params})
}

// SaveSnapshot writes a snapshot, including any optimizer state and
// training metadata it carries, to path. See Save for atomicity.
func SaveSnapshot(path string, snap *Snapshot) error {
	if err := snap.Arch.Validate(); err != nil {
		return fmt.Errorf("invalid architecture: %w", err)
	}

	// Combine model and optimizer tensors; optimizer buffers are
	// namespaced so they can be split back out on load.
	combined := make(map[string]*mat.Dense, len(snap.Params)+len(snap.OptimizerState))
	for name, m := range snap.Params {
		combined[name] = m
	}
	for name, m := range snap.OptimizerState {
		combined["optimizer."+name] = m
	}

	// Deterministic tensor order: sorted names.
	names := make([]string, 0, len(combined))
	for name := range combined {
		names = append(names, name)
	}
	sort.Strings(names)

	// Assemble the data section and the tensor table.
	var offset int64
	tensors := make([]tensorMeta, 0, len(names))
	var data []byte
	for _, name := range names {
		m := combined[name]
		rows, cols := m.Dims()
		size := int64(rows * cols * 8)
		tensors = append(tensors, tensorMeta{
			Name:   name,
			Shape:  [2]int{rows, cols},
			Offset: offset,
			Size:   size,
		})
		data = appendDense(data, m)
		offset += size
	}

	sum := sha256.Sum256(data)
	hdr := header{
		FormatVersion: formatVersion,
		WeftVersion:   weftVersion,
		CreatedAt:     time.Now().UTC(),
		Arch:          snap.Arch,
		Checksum:      hex.EncodeToString(sum[:]),
		Tensors:       tensors,
		Training:      snap.Training,
	}
	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if len(headerJSON) > maxHeaderSize {
		return ErrHeaderTooLarge
	}

	var flags uint32
	if len(snap.OptimizerState) > 0 {
		flags |= flagHasOptimizer
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".weft-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(magicBytes); err != nil {
		return fmt.Errorf("failed to write magic bytes: %w", err)
	}
	if err := binary.Write(tmp, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}
	if err := binary.Write(tmp, binary.LittleEndian, flags); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}
	if err := binary.Write(tmp, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := tmp.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Pad so the data section starts 64-byte aligned.
	pos := int64(fixedPrefixSize + len(headerJSON))
	if padding := (headerAlignment - pos%headerAlignment) % headerAlignment; padding > 0 {
		if _, err := tmp.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	tmpPath = "" // rename succeeded, nothing to clean up
	return nil
}

// appendDense appends m's values row by row as little-endian float64.
func appendDense(data []byte, m *mat.Dense) []byte {
	rows, cols := m.Dims()
	var buf [8]byte
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(row[j]))
			data = append(data, buf[:]...)
		}
	}
	return data
}
