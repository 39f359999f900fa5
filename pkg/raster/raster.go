// Package raster provides the dense buffers that the labeling, region and
// watershed packages read and write. Images are stored row-major and
// volumes slice-major, so a voxel (x, y, z) lives at
// z*Width*Height + y*Width + x, the same layout used for reconstructed
// volumes elsewhere in this module.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyExtent indicates a width, height or depth that is not positive.
	ErrEmptyExtent = errors.New("raster: extents must be positive")

	// ErrDataLength indicates a backing slice whose length disagrees with the extents.
	ErrDataLength = errors.New("raster: data length does not match extents")

	// ErrDimensionMismatch indicates two buffers that were expected to share extents.
	ErrDimensionMismatch = errors.New("raster: buffer extents do not match")
)

// Image is a 2D grayscale buffer of float64 intensities.
type Image struct {
	// Data holds Width*Height intensities in row-major order
	Data []float64

	// Width is the number of columns, which is also the row stride
	Width int

	// Height is the number of rows
	Height int
}

// NewImage allocates a zeroed image.
func NewImage(width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyExtent, width, height)
	}
	return &Image{Data: make([]float64, width*height), Width: width, Height: height}, nil
}

// FromSlice wraps an existing row-major slice without copying it.
func FromSlice(data []float64, width, height int) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyExtent, width, height)
	}
	if len(data) != width*height {
		return nil, fmt.Errorf("%w: got %d values for %dx%d", ErrDataLength, len(data), width, height)
	}
	return &Image{Data: data, Width: width, Height: height}, nil
}

// FromRows builds an image from rows of equal length. It is mostly useful
// for small hand-written fixtures.
func FromRows(rows [][]float64) (*Image, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyExtent
	}
	width := len(rows[0])
	img := &Image{Data: make([]float64, 0, width*len(rows)), Width: width, Height: len(rows)}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDataLength, y, len(row), width)
		}
		img.Data = append(img.Data, row...)
	}
	return img, nil
}

// FromImage converts any image.Image to grayscale intensities in the 0-1 range.
func FromImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	img, err := NewImage(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			g := color.Gray16Model.Convert(src.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			img.Data[y*img.Width+x] = float64(g.Y) / 65535.0
		}
	}
	return img, nil
}

// Len returns the number of pixels.
func (m *Image) Len() int { return len(m.Data) }

// Stride returns the distance between vertically adjacent pixels.
func (m *Image) Stride() int { return m.Width }

// Index converts (x, y) to a linear index.
func (m *Image) Index(x, y int) int { return y*m.Width + x }

// Coord converts a linear index back to (x, y).
func (m *Image) Coord(i int) (x, y int) { return i % m.Width, i / m.Width }

// InBounds reports whether (x, y) lies inside the image.
func (m *Image) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// At returns the intensity at (x, y).
func (m *Image) At(x, y int) float64 { return m.Data[y*m.Width+x] }

// Set stores v at (x, y).
func (m *Image) Set(x, y int, v float64) { m.Data[y*m.Width+x] = v }

// MinMax returns the smallest and largest intensity.
func (m *Image) MinMax() (lo, hi float64) {
	return floats.Min(m.Data), floats.Max(m.Data)
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return &Image{Data: data, Width: m.Width, Height: m.Height}
}

// Pad returns a copy enlarged by border pixels on every side, with the
// border filled with fill. The original pixel (x, y) moves to
// (x+border, y+border).
func (m *Image) Pad(border int, fill float64) *Image {
	w, h := m.Width+2*border, m.Height+2*border
	out := &Image{Data: make([]float64, w*h), Width: w, Height: h}
	for i := range out.Data {
		out.Data[i] = fill
	}
	for y := 0; y < m.Height; y++ {
		copy(out.Data[(y+border)*w+border:(y+border)*w+border+m.Width], m.Data[y*m.Width:(y+1)*m.Width])
	}
	return out
}

// SameExtent reports whether both images have identical dimensions.
func (m *Image) SameExtent(o *Image) bool {
	return m.Width == o.Width && m.Height == o.Height
}
