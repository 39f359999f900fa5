package raster

import "fmt"

// Background is the label reserved for unlabeled pixels.
const Background = 0

// Labels is a 2D raster of integer labels with the same layout as Image.
type Labels struct {
	Data          []int
	Width, Height int
}

// NewLabels allocates an all-background label raster.
func NewLabels(width, height int) (*Labels, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrEmptyExtent, width, height)
	}
	return &Labels{Data: make([]int, width*height), Width: width, Height: height}, nil
}

// LabelsFromRows builds a label raster from rows of equal length.
func LabelsFromRows(rows [][]int) (*Labels, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyExtent
	}
	width := len(rows[0])
	l := &Labels{Data: make([]int, 0, width*len(rows)), Width: width, Height: len(rows)}
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrDataLength, y, len(row), width)
		}
		l.Data = append(l.Data, row...)
	}
	return l, nil
}

// Stride returns the row stride.
func (l *Labels) Stride() int { return l.Width }

// Index converts (x, y) to a linear index.
func (l *Labels) Index(x, y int) int { return y*l.Width + x }

// At returns the label at (x, y).
func (l *Labels) At(x, y int) int { return l.Data[y*l.Width+x] }

// Range returns the smallest and largest label present.
func (l *Labels) Range() (lo, hi int) { return labelRange(l.Data) }

// HasForeground reports whether any label differs from Background.
func (l *Labels) HasForeground() bool { return hasForeground(l.Data) }

// AsImage returns the labels as intensities, so an existing label raster can
// be fed back to a labeler as binary foreground.
func (l *Labels) AsImage() *Image {
	img := &Image{Data: make([]float64, len(l.Data)), Width: l.Width, Height: l.Height}
	for i, v := range l.Data {
		img.Data[i] = float64(v)
	}
	return img
}

// LabelVolume is a 3D raster of integer labels with the same layout as Volume.
type LabelVolume struct {
	Data                 []int
	Width, Height, Depth int
}

// NewLabelVolume allocates an all-background label volume.
func NewLabelVolume(width, height, depth int) (*LabelVolume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrEmptyExtent, width, height, depth)
	}
	return &LabelVolume{
		Data:   make([]int, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}, nil
}

// Stride returns the row stride within a slice.
func (l *LabelVolume) Stride() int { return l.Width }

// SlicePitch returns the distance between consecutive slices.
func (l *LabelVolume) SlicePitch() int { return l.Width * l.Height }

// Index converts (x, y, z) to a linear index.
func (l *LabelVolume) Index(x, y, z int) int { return z*l.Width*l.Height + y*l.Width + x }

// At returns the label at (x, y, z).
func (l *LabelVolume) At(x, y, z int) int { return l.Data[l.Index(x, y, z)] }

// Range returns the smallest and largest label present.
func (l *LabelVolume) Range() (lo, hi int) { return labelRange(l.Data) }

// HasForeground reports whether any label differs from Background.
func (l *LabelVolume) HasForeground() bool { return hasForeground(l.Data) }

func labelRange(data []int) (lo, hi int) {
	if len(data) == 0 {
		return 0, 0
	}
	lo, hi = data[0], data[0]
	for _, v := range data[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func hasForeground(data []int) bool {
	for _, v := range data {
		if v != Background {
			return true
		}
	}
	return false
}
