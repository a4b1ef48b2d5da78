package dataset

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// IDX magic numbers for the official MNIST distribution.
const (
	idxImagesMagic = 2051 // 0x00000803: unsigned byte, 3 dimensions
	idxLabelsMagic = 2049 // 0x00000801: unsigned byte, 1 dimension
)

// Sanity bounds on declared IDX dimensions, generous versus the real
// distributions (60k images of 28x28).
const (
	maxIDXCount = 1 << 24
	maxIDXSide  = 1 << 12
)

// FashionClassNames are the class labels of the Fashion-MNIST dataset.
var FashionClassNames = []string{
	"T-shirt/top", "Trouser", "Pullover", "Dress", "Coat",
	"Sandal", "Shirt", "Sneaker", "Bag", "Ankle boot",
}

// LoadIDX loads an MNIST-style dataset from official IDX binary files.
//
// Fashion-MNIST ships in the same format under the same file names, so
// both datasets load through this function; pass classNames to attach
// human-readable labels (nil for plain digits).
//
// Expected files in dir:
//   - train-images-idx3-ubyte and train-labels-idx1-ubyte (train=true)
//   - t10k-images-idx3-ubyte and t10k-labels-idx1-ubyte (train=false)
//
// Pixels are normalized from 0-255 to [0, 1].
func LoadIDX(dir string, train bool, classNames []string) (*Dataset, error) {
	var imageFile, labelFile string
	if train {
		imageFile = filepath.Join(dir, "train-images-idx3-ubyte")
		labelFile = filepath.Join(dir, "train-labels-idx1-ubyte")
	} else {
		imageFile = filepath.Join(dir, "t10k-images-idx3-ubyte")
		labelFile = filepath.Join(dir, "t10k-labels-idx1-ubyte")
	}

	images, featureDim, err := readIDXImages(imageFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	labels, err := readIDXLabels(labelFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	if len(images)/featureDim != len(labels) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(images)/featureDim, len(labels))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("dataset in %s is empty", dir)
	}

	n := len(labels)
	inputs := mat.NewDense(n, featureDim, nil)
	intLabels := make([]int, n)
	for i := 0; i < n; i++ {
		row := inputs.RawRowView(i)
		src := images[i*featureDim : (i+1)*featureDim]
		for j, px := range src {
			row[j] = float64(px) / 255.0
		}
		intLabels[i] = int(labels[i])
	}

	return New(inputs, intLabels, 10, classNames)
}

// readIDXImages reads an IDX image file.
//
// Layout: magic 0x00000803, image count, rows, cols (all big-endian
// uint32), then row-major unsigned pixel bytes.
func readIDXImages(filename string) ([]byte, int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var magic uint32
	if err := binary.Read(f, binary.BigEndian, &magic); err != nil {
		return nil, 0, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != idxImagesMagic {
		return nil, 0, fmt.Errorf("invalid magic number: got %d, want %d", magic, idxImagesMagic)
	}

	var numImages, numRows, numCols uint32
	if err := binary.Read(f, binary.BigEndian, &numImages); err != nil {
		return nil, 0, err
	}
	if err := binary.Read(f, binary.BigEndian, &numRows); err != nil {
		return nil, 0, err
	}
	if err := binary.Read(f, binary.BigEndian, &numCols); err != nil {
		return nil, 0, err
	}
	if numImages == 0 || numRows == 0 || numCols == 0 {
		return nil, 0, fmt.Errorf("invalid image dimensions: count=%d rows=%d cols=%d", numImages, numRows, numCols)
	}
	if numImages > maxIDXCount || numRows > maxIDXSide || numCols > maxIDXSide {
		return nil, 0, fmt.Errorf("image dimensions out of range: count=%d rows=%d cols=%d", numImages, numRows, numCols)
	}

	featureDim := int(numRows) * int(numCols)
	pixels := make([]byte, int(numImages)*featureDim)
	if _, err := io.ReadFull(f, pixels); err != nil {
		return nil, 0, fmt.Errorf("failed to read pixel data: %w", err)
	}
	return pixels, featureDim, nil
}

// readIDXLabels reads an IDX label file.
//
// Layout: magic 0x00000801, label count (big-endian uint32), then
// unsigned label bytes.
func readIDXLabels(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic uint32
	if err := binary.Read(f, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if magic != idxLabelsMagic {
		return nil, fmt.Errorf("invalid magic number: got %d, want %d", magic, idxLabelsMagic)
	}

	var numLabels uint32
	if err := binary.Read(f, binary.BigEndian, &numLabels); err != nil {
		return nil, err
	}
	if numLabels > maxIDXCount {
		return nil, fmt.Errorf("label count out of range: %d", numLabels)
	}

	labels := make([]byte, numLabels)
	if _, err := io.ReadFull(f, labels); err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	return labels, nil
}
