package watershed

import (
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelseg/pkg/raster"
)

// createValley builds an image whose rows all follow f(x).
func createValley(t *testing.T, width, height int, f func(x int) float64) *raster.Image {
	t.Helper()
	img, err := raster.NewImage(width, height)
	require.NoError(t, err)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, f(x))
		}
	}
	return img
}

// twoBasins has minima along columns 1 and 5 and a ridge along column 3.
func twoBasins(t *testing.T) *raster.Image {
	return createValley(t, 7, 5, func(x int) float64 {
		return math.Min(math.Abs(float64(x-1)), math.Abs(float64(x-5)))
	})
}

func TestFloodQueueOrder(t *testing.T) {
	q := newFloodQueue(0)
	q.push(2, 1)
	q.push(1, 9)
	q.push(1, 3)
	q.push(0.5, 7)

	assert.Equal(t, 4, q.size())
	assert.Equal(t, entry{key: 0.5, index: 7}, q.top())

	var order []int
	for q.size() > 0 {
		order = append(order, q.pop().index)
	}
	assert.Equal(t, []int{7, 3, 9, 1}, order, "ties pop in index order")
}

func TestApplyTwoBasinsInterPixel(t *testing.T) {
	img := twoBasins(t)
	res, err := New().Apply(img)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Minima)
	assert.Equal(t, 2, res.Basins)
	assert.Equal(t, 0, res.Pruned)
	assert.Empty(t, res.Lines)

	left, right := res.Labels.At(1, 0), res.Labels.At(5, 0)
	require.NotEqual(t, raster.Background, left)
	require.NotEqual(t, raster.Background, right)
	require.NotEqual(t, left, right)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			got := res.Labels.At(x, y)
			switch {
			case x < 3:
				assert.Equal(t, left, got, "(%d,%d)", x, y)
			case x > 3:
				assert.Equal(t, right, got, "(%d,%d)", x, y)
			default:
				assert.Contains(t, []int{left, right}, got, "ridge pixel (%d,%d)", x, y)
			}
		}
	}

	dense, k := res.Compact()
	assert.Equal(t, 2, k)
	for _, v := range dense.Data {
		assert.Contains(t, []int{1, 2}, v)
	}
}

func TestApplyTwoBasinsPixelLevel(t *testing.T) {
	img := twoBasins(t)
	res, err := New(WithVariant(PixelLevel)).Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Basins)

	var want []int
	for y := 0; y < img.Height; y++ {
		want = append(want, img.Index(3, y))
	}
	assert.Equal(t, want, res.Lines, "the ridge column is the watershed line")

	for y := 0; y < img.Height; y++ {
		assert.Equal(t, raster.Background, res.Labels.At(3, y))
		assert.Equal(t, res.Labels.At(0, y), res.Labels.At(2, y))
		assert.Equal(t, res.Labels.At(4, y), res.Labels.At(6, y))
		assert.NotEqual(t, res.Labels.At(2, y), res.Labels.At(4, y))
	}
}

func TestApplyPrunesDrainingPlateau(t *testing.T) {
	// Columns 2 and 3 form a flat shelf with no darker neighbor, but the
	// shelf continues into column 1, which drains into column 0.
	img, err := raster.FromRows([][]float64{{0, 1, 1, 1, 2}})
	require.NoError(t, err)

	res, err := New().Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Minima)
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 1, res.Basins)
	for _, v := range res.Labels.Data {
		assert.Equal(t, res.Labels.Data[0], v)
	}

	res, err = New(WithPruning(false)).Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Basins)
	assert.Equal(t, 0, res.Pruned)
}

func TestApplyIsolatedPixelSeed(t *testing.T) {
	img := createValley(t, 5, 5, func(int) float64 { return 5 })
	img.Set(2, 2, 0)

	res, err := New().Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Basins, "the bright plateau around the pit is pruned")
	seed := res.Labels.At(2, 2)
	require.NotEqual(t, raster.Background, seed)
	for _, v := range res.Labels.Data {
		assert.Equal(t, seed, v)
	}
}

func TestApplyConstantImage(t *testing.T) {
	img := createValley(t, 4, 3, func(int) float64 { return 0.25 })
	res, err := New().Apply(img)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Basins)
	for _, v := range res.Labels.Data {
		assert.Equal(t, res.Labels.Data[0], v)
	}
}

func TestApplyInfinitePlateauSurvivesPruning(t *testing.T) {
	img := createValley(t, 2, 2, func(int) float64 { return math.Inf(1) })

	for _, v := range []Variant{InterPixel, PixelLevel} {
		res, err := New(WithVariant(v)).Apply(img)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Minima, v.String())
		assert.Equal(t, 0, res.Pruned, v.String())
		assert.Equal(t, 1, res.Basins, v.String())
		for _, l := range res.Labels.Data {
			assert.NotEqual(t, raster.Background, l, v.String())
		}
	}
}

func TestApplyWritesEachPixelOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(5))

	for _, variant := range []Variant{InterPixel, PixelLevel} {
		for trial := 0; trial < 20; trial++ {
			w, h := 1+rng.Intn(15), 1+rng.Intn(15)
			img, err := raster.NewImage(w, h)
			require.NoError(t, err)
			for i := range img.Data {
				img.Data[i] = float64(rng.Intn(6))
			}

			res, err := New(WithVariant(variant)).Apply(img)
			require.NoError(t, err)
			require.GreaterOrEqual(t, res.Basins, 1)

			for i, n := range res.Writes {
				require.LessOrEqual(t, n, 1, "%s trial %d pixel %d", variant, trial, i)
				if res.Labels.Data[i] != raster.Background {
					require.Equal(t, 1, n)
				}
			}
			if variant == InterPixel {
				for i, v := range res.Labels.Data {
					require.NotEqual(t, raster.Background, v, "%s trial %d pixel %d unlabeled", variant, trial, i)
				}
			}
		}
	}
}

func TestApplyRejectsEmptyImage(t *testing.T) {
	_, err := New().Apply(nil)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = New().Apply(&raster.Image{Data: []float64{1}, Width: 2, Height: 2})
	assert.ErrorIs(t, err, raster.ErrDataLength)
}

func TestCompact(t *testing.T) {
	labels, err := raster.LabelsFromRows([][]int{
		{0, 7, 7},
		{3, 0, 12},
	})
	require.NoError(t, err)

	dense, k := Compact(labels)
	assert.Equal(t, 3, k)
	assert.Equal(t, []int{0, 2, 2, 1, 0, 3}, dense.Data)
	assert.Equal(t, []int{0, 7, 7, 3, 0, 12}, labels.Data, "input is not modified")
}

func TestRender(t *testing.T) {
	t.Run("gray", func(t *testing.T) {
		labels, err := raster.LabelsFromRows([][]int{{0, 40, 90}})
		require.NoError(t, err)

		img := Render(labels)
		gray, ok := img.(*image.Gray)
		require.True(t, ok)
		assert.Equal(t, []uint8{0, 1, 2}, gray.Pix)
	})

	t.Run("multi-channel", func(t *testing.T) {
		labels, err := raster.NewLabels(20, 20)
		require.NoError(t, err)
		for i := range labels.Data {
			labels.Data[i] = i * 3
		}

		img := Render(labels)
		_, ok := img.(*image.RGBA)
		require.True(t, ok, "399 labels do not fit 8 bits")

		assert.Equal(t, 0, DecodeRender(img, 0, 0))
		assert.Equal(t, 1, DecodeRender(img, 1, 0))
		assert.Equal(t, 399, DecodeRender(img, 19, 19))
		assert.Equal(t, 256, DecodeRender(img, 16, 12))
	})
}
