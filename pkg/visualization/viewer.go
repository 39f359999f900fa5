package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"labelseg/pkg/raster"
	"labelseg/pkg/watershed"
)

var (
	// ErrInvalidAxis indicates an axis name other than x, y or z.
	ErrInvalidAxis = errors.New("visualization: invalid axis (must be x, y, or z)")

	// ErrPosition indicates a slice position outside the volume.
	ErrPosition = errors.New("visualization: slice position outside volume")
)

// Viewer cuts planar slices out of a label volume for inspection.
//
// Labels are renumbered once for the whole volume at construction, so a
// region keeps the same encoded value in every slice it crosses.
type Viewer struct {
	// labels holds the compacted label volume
	labels *raster.LabelVolume

	// count is the number of distinct non-background labels
	count int
}

// NewViewer creates a viewer over labels. The caller's volume is not modified.
func NewViewer(labels *raster.LabelVolume) *Viewer {
	flat := &raster.Labels{Data: labels.Data, Width: labels.Width, Height: labels.Height * labels.Depth}
	dense, k := watershed.Compact(flat)
	return &Viewer{
		labels: &raster.LabelVolume{
			Data:   dense.Data,
			Width:  labels.Width,
			Height: labels.Height,
			Depth:  labels.Depth,
		},
		count: k,
	}
}

// Count returns the number of distinct regions in the volume.
func (v *Viewer) Count() int { return v.count }

// extent returns the number of slices along axis.
func (v *Viewer) extent(axis string) (int, error) {
	switch strings.ToLower(axis) {
	case "x":
		return v.labels.Width, nil
	case "y":
		return v.labels.Height, nil
	case "z":
		return v.labels.Depth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAxis, axis)
}

// ExtractSlice returns the labels on the plane perpendicular to axis at position.
//
//   - x: a depth x height plane (YZ)
//   - y: a width x depth plane (XZ)
//   - z: a width x height plane (XY)
func (v *Viewer) ExtractSlice(axis string, position int) (*raster.Labels, error) {
	n, err := v.extent(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 || position >= n {
		return nil, fmt.Errorf("%w: %s=%d, extent %d", ErrPosition, axis, position, n)
	}

	l := v.labels
	var out *raster.Labels
	switch strings.ToLower(axis) {
	case "x":
		out, _ = raster.NewLabels(l.Depth, l.Height)
		for y := 0; y < l.Height; y++ {
			for z := 0; z < l.Depth; z++ {
				out.Data[y*l.Depth+z] = l.At(position, y, z)
			}
		}
	case "y":
		out, _ = raster.NewLabels(l.Width, l.Depth)
		for z := 0; z < l.Depth; z++ {
			for x := 0; x < l.Width; x++ {
				out.Data[z*l.Width+x] = l.At(x, position, z)
			}
		}
	default:
		out, _ = raster.NewLabels(l.Width, l.Height)
		copy(out.Data, l.Data[position*l.SlicePitch():(position+1)*l.SlicePitch()])
	}
	return out, nil
}

// SliceImage renders the slice at position using the volume-wide numbering.
func (v *Viewer) SliceImage(axis string, position int) (image.Image, error) {
	s, err := v.ExtractSlice(axis, position)
	if err != nil {
		return nil, err
	}
	return watershed.Encode(s, v.count), nil
}

// SaveSlice saves a rendered slice as a PNG image. PNG keeps label values exact.
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence renders and saves every slice along axis into outputDir.
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) ([]string, error) {
	n, err := v.extent(axis)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}

	paths := make([]string, 0, n)
	for pos := 0; pos < n; pos++ {
		img, err := v.SliceImage(axis, pos)
		if err != nil {
			return nil, err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", strings.ToLower(axis), pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return nil, err
		}
		paths = append(paths, filename)
	}

	return paths, nil
}
