package dataset_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/weft-ml/weft/internal/dataset"
)

func sequentialDataset(t *testing.T, n, dim, classes int) *dataset.Dataset {
	t.Helper()
	inputs := mat.NewDense(n, dim, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		labels[i] = i % classes
		for j := 0; j < dim; j++ {
			inputs.Set(i, j, float64(i))
		}
	}
	ds, err := dataset.New(inputs, labels, classes, nil)
	require.NoError(t, err)
	return ds
}

func TestNew_Validation(t *testing.T) {
	inputs := mat.NewDense(2, 3, nil)

	_, err := dataset.New(inputs, []int{0}, 2, nil)
	assert.Error(t, err, "label count mismatch")

	_, err = dataset.New(inputs, []int{0, 5}, 2, nil)
	assert.Error(t, err, "label out of range")

	_, err = dataset.New(inputs, []int{0, 1}, 2, []string{"only-one"})
	assert.Error(t, err, "class name count mismatch")
}

func TestLoader_BatchingAndExhaustion(t *testing.T) {
	ds := sequentialDataset(t, 10, 2, 5)
	loader, err := dataset.NewLoader(ds, 3, false, 0)
	require.NoError(t, err)

	assert.Equal(t, 4, loader.Batches())
	assert.Equal(t, 3, loader.BatchSize())

	sizes := []int{}
	for {
		batch, err := loader.Next()
		if errors.Is(err, dataset.ErrExhausted) {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, batch.Size())
	}
	// Fixed batch size, with a smaller trailing batch.
	assert.Equal(t, []int{3, 3, 3, 1}, sizes)

	// Still exhausted until Reset.
	_, err = loader.Next()
	assert.ErrorIs(t, err, dataset.ErrExhausted)

	loader.Reset()
	batch, err := loader.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Size())
}

func TestLoader_UnshuffledPreservesOrder(t *testing.T) {
	ds := sequentialDataset(t, 6, 1, 6)
	loader, err := dataset.NewLoader(ds, 2, false, 0)
	require.NoError(t, err)

	var labels []int
	for {
		batch, err := loader.Next()
		if errors.Is(err, dataset.ErrExhausted) {
			break
		}
		require.NoError(t, err)
		labels = append(labels, batch.Labels...)
		// Inputs travel with their labels.
		for i, label := range batch.Labels {
			assert.Equal(t, float64(label), batch.Inputs.At(i, 0))
		}
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, labels)
}

func TestLoader_ShuffleVariesAcrossEpochs(t *testing.T) {
	ds := sequentialDataset(t, 50, 1, 50)
	loader, err := dataset.NewLoader(ds, 50, true, 1)
	require.NoError(t, err)

	epoch := func() []int {
		batch, err := loader.Next()
		require.NoError(t, err)
		out := make([]int, len(batch.Labels))
		copy(out, batch.Labels)
		return out
	}

	first := epoch()
	loader.Reset()
	second := epoch()

	assert.NotEqual(t, first, second, "consecutive epochs should see different orders")

	// Same examples either way.
	seen := make(map[int]bool)
	for _, label := range second {
		seen[label] = true
	}
	assert.Len(t, seen, 50)
}

func TestLoader_InvalidConfig(t *testing.T) {
	ds := sequentialDataset(t, 4, 1, 2)
	_, err := dataset.NewLoader(ds, 0, false, 0)
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	ds := sequentialDataset(t, 10, 2, 5)
	train, val, err := ds.Split(0.2)
	require.NoError(t, err)

	assert.Equal(t, 8, train.Len())
	assert.Equal(t, 2, val.Len())
	assert.Equal(t, 2, train.FeatureDim())

	// Validation examples are the tail of the parent.
	assert.Equal(t, float64(8), val.Input(0)[0])
	assert.Equal(t, ds.Label(8), val.Label(0))

	_, _, err = ds.Split(0)
	assert.Error(t, err)
	_, _, err = ds.Split(1)
	assert.Error(t, err)
}

func TestSynthetic_Balanced(t *testing.T) {
	ds, err := dataset.Synthetic(100, 8, 10, 1)
	require.NoError(t, err)

	assert.Equal(t, 100, ds.Len())
	assert.Equal(t, 8, ds.FeatureDim())
	assert.Equal(t, 10, ds.NumClasses())

	counts := make(map[int]int)
	for i := 0; i < ds.Len(); i++ {
		counts[ds.Label(i)]++
		for _, v := range ds.Input(i) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
	for class := 0; class < 10; class++ {
		assert.Equal(t, 10, counts[class], "class %d", class)
	}
}

// writeIDX writes minimal IDX image and label files: three 2x2 images.
func writeIDX(t *testing.T, dir string, train bool) {
	t.Helper()
	imageName, labelName := "t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte"
	if train {
		imageName, labelName = "train-images-idx3-ubyte", "train-labels-idx1-ubyte"
	}

	var images []byte
	images = binary.BigEndian.AppendUint32(images, 2051)
	images = binary.BigEndian.AppendUint32(images, 3) // images
	images = binary.BigEndian.AppendUint32(images, 2) // rows
	images = binary.BigEndian.AppendUint32(images, 2) // cols
	images = append(images,
		0, 255, 128, 0,
		255, 255, 255, 255,
		0, 0, 0, 0,
	)
	require.NoError(t, os.WriteFile(filepath.Join(dir, imageName), images, 0o644))

	var labels []byte
	labels = binary.BigEndian.AppendUint32(labels, 2049)
	labels = binary.BigEndian.AppendUint32(labels, 3)
	labels = append(labels, 7, 0, 9)
	require.NoError(t, os.WriteFile(filepath.Join(dir, labelName), labels, 0o644))
}

func TestLoadIDX(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, dir, false)

	ds, err := dataset.LoadIDX(dir, false, dataset.FashionClassNames)
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, 4, ds.FeatureDim())
	assert.Equal(t, 10, ds.NumClasses())

	// Pixels normalized to [0, 1].
	assert.Equal(t, 0.0, ds.Input(0)[0])
	assert.Equal(t, 1.0, ds.Input(0)[1])
	assert.InDelta(t, 128.0/255.0, ds.Input(0)[2], 1e-12)

	assert.Equal(t, []int{7, 0, 9}, []int{ds.Label(0), ds.Label(1), ds.Label(2)})
	assert.Equal(t, "Sneaker", ds.ClassName(ds.Label(0)))
}

func TestLoadIDX_BadMagic(t *testing.T) {
	dir := t.TempDir()
	writeIDX(t, dir, false)

	// Corrupt the image magic.
	path := filepath.Join(dir, "t10k-images-idx3-ubyte")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	raw[3] = 0x42
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	_, err = dataset.LoadIDX(dir, false, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid magic number")
}

func TestLoadIDX_MissingFiles(t *testing.T) {
	_, err := dataset.LoadIDX(t.TempDir(), true, nil)
	assert.Error(t, err)
}

// writeIDXHeaders writes image and label files with the given declared
// counts and dimensions and no payload bytes.
func writeIDXHeaders(t *testing.T, dir string, images, rows, cols, labels uint32) {
	t.Helper()

	var img []byte
	img = binary.BigEndian.AppendUint32(img, 2051)
	img = binary.BigEndian.AppendUint32(img, images)
	img = binary.BigEndian.AppendUint32(img, rows)
	img = binary.BigEndian.AppendUint32(img, cols)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train-images-idx3-ubyte"), img, 0o644))

	var lbl []byte
	lbl = binary.BigEndian.AppendUint32(lbl, 2049)
	lbl = binary.BigEndian.AppendUint32(lbl, labels)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "train-labels-idx1-ubyte"), lbl, 0o644))
}

// TestLoadIDX_ZeroDimensions: headers declaring zero images, rows, or
// cols are malformed and must come back as errors.
func TestLoadIDX_ZeroDimensions(t *testing.T) {
	cases := []struct {
		name               string
		images, rows, cols uint32
	}{
		{"all zero", 0, 0, 0},
		{"zero rows", 3, 0, 2},
		{"zero cols", 3, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeIDXHeaders(t, dir, tc.images, tc.rows, tc.cols, tc.images)

			_, err := dataset.LoadIDX(dir, true, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid image dimensions")
		})
	}
}

// TestLoadIDX_OversizedDimensions: absurd declared dimensions (including
// ones whose uint32 product would wrap) are rejected before allocation.
func TestLoadIDX_OversizedDimensions(t *testing.T) {
	dir := t.TempDir()
	writeIDXHeaders(t, dir, 3, 1<<16, 1<<16, 3)

	_, err := dataset.LoadIDX(dir, true, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestClassName_Fallback(t *testing.T) {
	ds := sequentialDataset(t, 4, 1, 4)
	assert.Equal(t, "2", ds.ClassName(2))
}
