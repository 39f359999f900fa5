package raster

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Volume is a 3D stack of grayscale slices.
type Volume struct {
	// Data is the 3D volume data as a 1D array in slice-major order
	Data []float64

	// Width, Height and Depth are the extents in voxels
	Width, Height, Depth int
}

// NewVolume allocates a zeroed volume.
func NewVolume(width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrEmptyExtent, width, height, depth)
	}
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}, nil
}

// Stack copies equally sized images into consecutive slices of a new volume.
func Stack(slices []*Image) (*Volume, error) {
	if len(slices) == 0 {
		return nil, fmt.Errorf("%w: no slices", ErrEmptyExtent)
	}

	w, h := slices[0].Width, slices[0].Height
	vol, err := NewVolume(w, h, len(slices))
	if err != nil {
		return nil, err
	}

	pitch := w * h
	for z, s := range slices {
		if s.Width != w || s.Height != h {
			return nil, fmt.Errorf("%w: slice %d is %dx%d, want %dx%d",
				ErrDimensionMismatch, z, s.Width, s.Height, w, h)
		}
		copy(vol.Data[z*pitch:(z+1)*pitch], s.Data)
	}
	return vol, nil
}

// Len returns the number of voxels.
func (v *Volume) Len() int { return len(v.Data) }

// Stride returns the distance between vertically adjacent voxels in a slice.
func (v *Volume) Stride() int { return v.Width }

// SlicePitch returns the distance between consecutive slices.
func (v *Volume) SlicePitch() int { return v.Width * v.Height }

// Index converts (x, y, z) to a linear index.
func (v *Volume) Index(x, y, z int) int { return z*v.Width*v.Height + y*v.Width + x }

// Coord converts a linear index back to (x, y, z).
func (v *Volume) Coord(i int) (x, y, z int) {
	pitch := v.Width * v.Height
	z = i / pitch
	rem := i % pitch
	return rem % v.Width, rem / v.Width, z
}

// InBounds reports whether (x, y, z) lies inside the volume.
func (v *Volume) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Width && y < v.Height && z < v.Depth
}

// At returns the intensity at (x, y, z).
func (v *Volume) At(x, y, z int) float64 { return v.Data[v.Index(x, y, z)] }

// Set stores val at (x, y, z).
func (v *Volume) Set(x, y, z int, val float64) { v.Data[v.Index(x, y, z)] = val }

// MinMax returns the smallest and largest intensity.
func (v *Volume) MinMax() (lo, hi float64) {
	return floats.Min(v.Data), floats.Max(v.Data)
}

// Clone returns a deep copy.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Width: v.Width, Height: v.Height, Depth: v.Depth}
}

// SameExtent reports whether both volumes have identical dimensions.
func (v *Volume) SameExtent(o *Volume) bool {
	return v.Width == o.Width && v.Height == o.Height && v.Depth == o.Depth
}
