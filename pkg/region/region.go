// Package region turns label rasters into per-label index lists.
//
// A Region carries the stride (and, for volumes, the slice pitch) of the
// raster it came from, so shape and statistics code can decode coordinates
// later without holding on to the source buffer.
package region

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"labelseg/pkg/raster"
)

var (
	// ErrEmptyRegion indicates a statistic requested from a region with no pixels.
	ErrEmptyRegion = errors.New("region: region has no pixels")

	// ErrIndexOutOfRange indicates a region index that falls outside the sampled buffer.
	ErrIndexOutOfRange = errors.New("region: index outside sampled buffer")
)

// Stats summarizes the intensities under a region.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

func summarize(values []float64) Stats {
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Stats{
		Count:  len(values),
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(values),
		Max:    floats.Max(values),
	}
}

// Region is the unordered set of linear indices carrying one label of a
// 2D raster.
type Region struct {
	Label   int
	Indices []int
	Stride  int
}

// Len returns the number of pixels in the region.
func (r *Region) Len() int { return len(r.Indices) }

// Coord decodes the k-th index of the region to (x, y).
func (r *Region) Coord(k int) (x, y int) {
	i := r.Indices[k]
	return i % r.Stride, i / r.Stride
}

// Bounds returns the smallest rectangle containing the region. Max is
// exclusive, following image.Rectangle.
func (r *Region) Bounds() image.Rectangle {
	if len(r.Indices) == 0 {
		return image.Rectangle{}
	}
	x0, y0 := r.Coord(0)
	rect := image.Rect(x0, y0, x0+1, y0+1)
	for k := 1; k < len(r.Indices); k++ {
		x, y := r.Coord(k)
		rect = rect.Union(image.Rect(x, y, x+1, y+1))
	}
	return rect
}

// Centroid returns the mean pixel coordinate. ok is false for an empty region.
func (r *Region) Centroid() (cx, cy float64, ok bool) {
	if len(r.Indices) == 0 {
		return 0, 0, false
	}
	for k := range r.Indices {
		x, y := r.Coord(k)
		cx += float64(x)
		cy += float64(y)
	}
	n := float64(len(r.Indices))
	return cx / n, cy / n, true
}

// Stats samples img under the region.
func (r *Region) Stats(img *raster.Image) (Stats, error) {
	if len(r.Indices) == 0 {
		return Stats{}, ErrEmptyRegion
	}
	if img.Width != r.Stride {
		return Stats{}, fmt.Errorf("%w: image stride %d, region stride %d",
			raster.ErrDimensionMismatch, img.Width, r.Stride)
	}
	values := make([]float64, len(r.Indices))
	for k, i := range r.Indices {
		if i < 0 || i >= len(img.Data) {
			return Stats{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		}
		values[k] = img.Data[i]
	}
	return summarize(values), nil
}

// Set is a collection of 2D regions.
type Set []*Region

// Indices returns the sorted union of all region indices.
func (s Set) Indices() []int {
	var out []int
	for _, r := range s {
		out = append(out, r.Indices...)
	}
	sort.Ints(out)
	return out
}

// Filter returns the regions with at least minSize pixels.
func (s Set) Filter(minSize int) Set {
	out := make(Set, 0, len(s))
	for _, r := range s {
		if r.Len() >= minSize {
			out = append(out, r)
		}
	}
	return out
}

// Largest returns the region with the most pixels, or nil for an empty set.
func (s Set) Largest() *Region {
	var best *Region
	for _, r := range s {
		if best == nil || r.Len() > best.Len() {
			best = r
		}
	}
	return best
}

// Region3D is the unordered set of linear indices carrying one label of a
// volume.
type Region3D struct {
	Label      int
	Indices    []int
	Stride     int
	SlicePitch int
}

// Len returns the number of voxels in the region.
func (r *Region3D) Len() int { return len(r.Indices) }

// Coord decodes the k-th index of the region to (x, y, z).
func (r *Region3D) Coord(k int) (x, y, z int) {
	i := r.Indices[k]
	z = i / r.SlicePitch
	rem := i % r.SlicePitch
	return rem % r.Stride, rem / r.Stride, z
}

// Bounds returns the inclusive minimum and exclusive maximum corner.
func (r *Region3D) Bounds() (lo, hi [3]int) {
	if len(r.Indices) == 0 {
		return lo, hi
	}
	x, y, z := r.Coord(0)
	lo = [3]int{x, y, z}
	hi = [3]int{x + 1, y + 1, z + 1}
	for k := 1; k < len(r.Indices); k++ {
		x, y, z := r.Coord(k)
		for d, v := range [3]int{x, y, z} {
			if v < lo[d] {
				lo[d] = v
			}
			if v+1 > hi[d] {
				hi[d] = v + 1
			}
		}
	}
	return lo, hi
}

// Centroid returns the mean voxel coordinate. ok is false for an empty region.
func (r *Region3D) Centroid() (c [3]float64, ok bool) {
	if len(r.Indices) == 0 {
		return c, false
	}
	for k := range r.Indices {
		x, y, z := r.Coord(k)
		c[0] += float64(x)
		c[1] += float64(y)
		c[2] += float64(z)
	}
	n := float64(len(r.Indices))
	return [3]float64{c[0] / n, c[1] / n, c[2] / n}, true
}

// Stats samples vol under the region.
func (r *Region3D) Stats(vol *raster.Volume) (Stats, error) {
	if len(r.Indices) == 0 {
		return Stats{}, ErrEmptyRegion
	}
	if vol.Stride() != r.Stride || vol.SlicePitch() != r.SlicePitch {
		return Stats{}, fmt.Errorf("%w: volume layout differs from region layout", raster.ErrDimensionMismatch)
	}
	values := make([]float64, len(r.Indices))
	for k, i := range r.Indices {
		if i < 0 || i >= len(vol.Data) {
			return Stats{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
		}
		values[k] = vol.Data[i]
	}
	return summarize(values), nil
}

// Set3D is a collection of volume regions.
type Set3D []*Region3D

// Indices returns the sorted union of all region indices.
func (s Set3D) Indices() []int {
	var out []int
	for _, r := range s {
		out = append(out, r.Indices...)
	}
	sort.Ints(out)
	return out
}

// Filter returns the regions with at least minSize voxels.
func (s Set3D) Filter(minSize int) Set3D {
	out := make(Set3D, 0, len(s))
	for _, r := range s {
		if r.Len() >= minSize {
			out = append(out, r)
		}
	}
	return out
}

// Paint writes the label of every region into a new label raster of the
// given extents.
func (s Set) Paint(width, height int) (*raster.Labels, error) {
	out, err := raster.NewLabels(width, height)
	if err != nil {
		return nil, err
	}
	for _, r := range s {
		for _, i := range r.Indices {
			if i < 0 || i >= len(out.Data) {
				return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
			}
			out.Data[i] = r.Label
		}
	}
	return out, nil
}

// Paint writes the label of every region into a new label volume of the
// given extents.
func (s Set3D) Paint(width, height, depth int) (*raster.LabelVolume, error) {
	out, err := raster.NewLabelVolume(width, height, depth)
	if err != nil {
		return nil, err
	}
	for _, r := range s {
		for _, i := range r.Indices {
			if i < 0 || i >= len(out.Data) {
				return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, i)
			}
			out.Data[i] = r.Label
		}
	}
	return out, nil
}
