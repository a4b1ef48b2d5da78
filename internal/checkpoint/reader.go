package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/nn"
)

// Load reads a snapshot from path.
//
// The header and tensor table are validated (magic, version, bounds,
// overlaps) and the data section is verified against the stored SHA-256
// checksum before any tensor is materialized.
func Load(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	hdr, data, err := parseFile(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	snap := &Snapshot{
		Arch:           hdr.Arch,
		Params:         make(map[string]*mat.Dense),
		OptimizerState: make(map[string]*mat.Dense),
		CreatedAt:      hdr.CreatedAt,
		Training:       hdr.Training,
	}
	for _, meta := range hdr.Tensors {
		m := decodeDense(meta, data)
		if name, ok := strings.CutPrefix(meta.Name, "optimizer."); ok {
			snap.OptimizerState[name] = m
		} else {
			snap.Params[meta.Name] = m
		}
	}
	return snap, nil
}

// LoadClassifier reconstructs a model from the snapshot at path.
//
// The architecture comes from the stored hyperparameter record, so the
// result is architecturally identical to the saved model, and parameter
// values are restored bit-for-bit.
func LoadClassifier(path string) (*nn.Classifier, *Snapshot, error) {
	snap, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	model, err := nn.NewClassifier(snap.Arch, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid stored architecture: %w", err)
	}
	if err := model.LoadStateDict(snap.Params); err != nil {
		return nil, nil, err
	}
	return model, snap, nil
}

// Restore populates an existing model from the snapshot at path.
//
// If the stored parameter shapes disagree with the model's architecture,
// Restore fails with an nn.ShapeError naming every offending layer; the
// model is left untouched. Nothing is ever truncated or padded to fit.
func Restore(path string, model *nn.Classifier) error {
	snap, err := Load(path)
	if err != nil {
		return err
	}
	return model.LoadStateDict(snap.Params)
}

// parseFile reads and validates the file, returning the header and the
// checksum-verified data section.
func parseFile(f *os.File) (*header, []byte, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return nil, nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(magic) != magicBytes {
		return nil, nil, ErrInvalidMagic
	}

	var version, flags uint32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return nil, nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != formatVersion {
		return nil, nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, formatVersion)
	}
	if err := binary.Read(f, binary.LittleEndian, &flags); err != nil {
		return nil, nil, fmt.Errorf("failed to read flags: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(f, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(f, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var hdr header
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}

	// Skip alignment padding.
	pos := int64(fixedPrefixSize) + int64(headerSize)
	if padding := (headerAlignment - pos%headerAlignment) % headerAlignment; padding > 0 {
		if _, err := io.CopyN(io.Discard, f, padding); err != nil {
			return nil, nil, fmt.Errorf("failed to skip padding: %w", err)
		}
	}

	dataSize, err := validateTensorTable(hdr.Tensors)
	if err != nil {
		return nil, nil, err
	}
	if fi, err := f.Stat(); err == nil && dataSize > fi.Size() {
		return nil, nil, fmt.Errorf("tensor table declares %d data bytes but file holds %d", dataSize, fi.Size())
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if n, _ := f.Read(make([]byte, 1)); n != 0 {
		return nil, nil, fmt.Errorf("trailing data after tensor section")
	}

	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != hdr.Checksum {
		return nil, nil, ErrChecksumMismatch
	}

	return &hdr, data, nil
}

// validateTensorTable rejects malformed tensor tables before any data is
// read: degenerate or negative shapes, negative offsets, regions that
// overlap, and shapes that disagree with the stored byte size. Returns the
// data section size the table implies (the end of the last region).
func validateTensorTable(tensors []tensorMeta) (int64, error) {
	type region struct {
		name       string
		start, end int64
	}
	regions := make([]region, 0, len(tensors))

	var dataSize int64
	for _, t := range tensors {
		if t.Shape[0] <= 0 || t.Shape[1] <= 0 {
			return 0, &ValidationError{
				Type:    "bad_shape",
				Tensor:  t.Name,
				Details: fmt.Sprintf("dimensions must be positive, got %v", t.Shape),
			}
		}
		if t.Offset < 0 || t.Size < 0 {
			return 0, &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if want := int64(t.Shape[0]) * int64(t.Shape[1]) * 8; want != t.Size {
			return 0, &ValidationError{
				Type:    "size_mismatch",
				Tensor:  t.Name,
				Details: fmt.Sprintf("shape %v needs %d bytes, table says %d", t.Shape, want, t.Size),
			}
		}
		end := t.Offset + t.Size
		if end > dataSize {
			dataSize = end
		}
		regions = append(regions, region{t.Name, t.Offset, end})
	}

	for i, a := range regions {
		for _, b := range regions[i+1:] {
			if a.start < b.end && b.start < a.end {
				return 0, &ValidationError{
					Type:    "offset_overlap",
					Tensor:  a.name,
					Tensor2: b.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap", a.start, a.end, b.start, b.end),
				}
			}
		}
	}
	return dataSize, nil
}

// decodeDense materializes one tensor from the data section.
func decodeDense(meta tensorMeta, data []byte) *mat.Dense {
	rows, cols := meta.Shape[0], meta.Shape[1]
	values := make([]float64, rows*cols)
	raw := data[meta.Offset : meta.Offset+meta.Size]
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return mat.NewDense(rows, cols, values)
}
