package region

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelseg/pkg/neighborhood"
	"labelseg/pkg/raster"
)

func TestExtractorScenarios(t *testing.T) {
	single, err := raster.NewImage(5, 5)
	require.NoError(t, err)
	single.Set(2, 2, 1)

	diagonal, err := raster.NewImage(5, 5)
	require.NoError(t, err)
	diagonal.Set(1, 1, 1)
	diagonal.Set(2, 2, 1)

	tests := []struct {
		name      string
		img       *raster.Image
		conn      neighborhood.Connectivity
		wantSizes []int
	}{
		{"single pixel", single, neighborhood.Conn8, []int{1}},
		{"diagonal 8-connected", diagonal, neighborhood.Conn8, []int{2}},
		{"diagonal 4-connected", diagonal, neighborhood.Conn4, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewExtractor(tt.conn, true)
			require.NoError(t, err)
			set, err := e.Extract(tt.img)
			require.NoError(t, err)

			var got []int
			for _, r := range set {
				got = append(got, r.Len())
				assert.Equal(t, 5, r.Stride)
				assert.NotEqual(t, raster.Background, r.Label)
			}
			assert.ElementsMatch(t, tt.wantSizes, got)
		})
	}
}

func TestExtractorAllBackground(t *testing.T) {
	img, err := raster.NewImage(4, 3)
	require.NoError(t, err)

	e, err := NewExtractor(neighborhood.Conn8, false)
	require.NoError(t, err)
	set, err := e.Extract(img)
	require.NoError(t, err)
	assert.Empty(t, set)

	vol, err := raster.NewVolume(2, 2, 2)
	require.NoError(t, err)
	set3, err := NewExtractor3D(false).Extract(vol)
	require.NoError(t, err)
	assert.Empty(t, set3)
}

func TestFromLabelsSlots(t *testing.T) {
	labels, err := raster.LabelsFromRows([][]int{
		{0, 1, 1},
		{0, 0, 3},
	})
	require.NoError(t, err)

	t.Run("keep background", func(t *testing.T) {
		set := FromLabels(labels, false)
		require.Len(t, set, 4)
		assert.Equal(t, 0, set[0].Label)
		assert.Equal(t, []int{0, 3, 4}, set[0].Indices)
		assert.Equal(t, []int{1, 2}, set[1].Indices)
		assert.Empty(t, set[2].Indices, "label 2 never occurs")
		assert.Equal(t, []int{5}, set[3].Indices)
	})

	t.Run("drop background", func(t *testing.T) {
		set := FromLabels(labels, true)
		require.Len(t, set, 3)
		assert.Equal(t, 1, set[0].Label)
		assert.Equal(t, 3, set[2].Label)
	})
}

func TestRegionUnionEqualsForeground(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, conn := range []neighborhood.Connectivity{neighborhood.Conn4, neighborhood.Conn8} {
		e, err := NewExtractor(conn, true)
		require.NoError(t, err)

		for trial := 0; trial < 30; trial++ {
			w, h := 1+rng.Intn(16), 1+rng.Intn(16)
			img, err := raster.NewImage(w, h)
			require.NoError(t, err)
			var want []int
			for i := range img.Data {
				if rng.Float64() < 0.4 {
					img.Data[i] = 1
					want = append(want, i)
				}
			}

			set, err := e.Extract(img)
			require.NoError(t, err)
			if len(want) == 0 {
				assert.Empty(t, set)
				continue
			}
			assert.Equal(t, want, set.Indices(), "%s trial %d", conn, trial)
		}
	}
}

func TestRegionGeometry(t *testing.T) {
	r := &Region{Label: 1, Indices: []int{6, 7, 11}, Stride: 5}

	x, y := r.Coord(2)
	assert.Equal(t, 1, x)
	assert.Equal(t, 2, y)
	assert.Equal(t, image.Rect(1, 1, 3, 3), r.Bounds())

	cx, cy, ok := r.Centroid()
	require.True(t, ok)
	assert.InDelta(t, 4.0/3.0, cx, 1e-9)
	assert.InDelta(t, 4.0/3.0, cy, 1e-9)

	_, _, ok = (&Region{Stride: 5}).Centroid()
	assert.False(t, ok)
}

func TestRegionStats(t *testing.T) {
	img, err := raster.FromRows([][]float64{
		{1, 2},
		{3, 4},
	})
	require.NoError(t, err)

	st, err := (&Region{Indices: []int{0, 1, 3}, Stride: 2}).Stats(img)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.InDelta(t, 7.0/3.0, st.Mean, 1e-9)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 4.0, st.Max)

	st, err = (&Region{Indices: []int{2}, Stride: 2}).Stats(img)
	require.NoError(t, err)
	assert.Equal(t, 0.0, st.StdDev, "single sample has no spread")

	_, err = (&Region{Stride: 2}).Stats(img)
	assert.ErrorIs(t, err, ErrEmptyRegion)

	_, err = (&Region{Indices: []int{0}, Stride: 3}).Stats(img)
	assert.ErrorIs(t, err, raster.ErrDimensionMismatch)
}

func TestSetFilterAndLargest(t *testing.T) {
	set := Set{
		{Label: 1, Indices: []int{0}},
		{Label: 2, Indices: []int{1, 2, 3}},
		{Label: 3, Indices: []int{4, 5}},
	}
	assert.Len(t, set.Filter(2), 2)
	assert.Equal(t, 2, set.Largest().Label)
	assert.Nil(t, Set{}.Largest())
}

func TestExtractor3D(t *testing.T) {
	vol, err := raster.NewVolume(4, 3, 2)
	require.NoError(t, err)
	vol.Set(0, 0, 0, 1)
	vol.Set(1, 1, 1, 1)
	vol.Set(3, 2, 0, 1)

	set, err := NewExtractor3D(true).Extract(vol)
	require.NoError(t, err)
	require.Len(t, set, 2)

	var sizes []int
	for _, r := range set {
		sizes = append(sizes, r.Len())
		assert.Equal(t, 4, r.Stride)
		assert.Equal(t, 12, r.SlicePitch)
	}
	assert.ElementsMatch(t, []int{2, 1}, sizes)

	big := set[0]
	if big.Len() != 2 {
		big = set[1]
	}
	lo, hi := big.Bounds()
	assert.Equal(t, [3]int{0, 0, 0}, lo)
	assert.Equal(t, [3]int{2, 2, 2}, hi)

	c, ok := big.Centroid()
	require.True(t, ok)
	assert.Equal(t, [3]float64{0.5, 0.5, 0.5}, c)

	st, err := big.Stats(vol)
	require.NoError(t, err)
	assert.Equal(t, 1.0, st.Mean)
}

func TestExtractor3DMasked(t *testing.T) {
	vol, err := raster.NewVolume(3, 1, 1)
	require.NoError(t, err)
	for i := range vol.Data {
		vol.Data[i] = 1
	}
	roi := vol.Clone()
	roi.Data[1] = 0

	set, err := NewExtractor3D(true).ExtractMasked(vol, roi)
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.Equal(t, []int{0, 2}, set.Indices())
}

func TestSetPaint(t *testing.T) {
	labels, err := raster.LabelsFromRows([][]int{
		{0, 2, 2},
		{1, 0, 2},
	})
	require.NoError(t, err)

	painted, err := FromLabels(labels, true).Paint(3, 2)
	require.NoError(t, err)
	assert.Equal(t, labels.Data, painted.Data)

	_, err = Set{{Label: 1, Indices: []int{6}}}.Paint(3, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	vol, err := Set3D{{Label: 4, Indices: []int{7}}}.Paint(2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, vol.At(1, 1, 1))
}
