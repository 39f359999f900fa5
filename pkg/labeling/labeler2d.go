// Package labeling partitions binary images and volumes into connected
// components.
//
// Images are labeled with a two-pass raster scan: the first pass assigns
// provisional labels from already-visited (causal) neighbors and records
// conflicts in an equivalence registry, the second pass rewrites each
// provisional label with its resolved class. Volumes are labeled with an
// explicit breadth-first worklist, so component size is bounded by memory
// rather than stack depth.
//
// Any non-zero intensity counts as foreground. Labels are 1-based;
// raster.Background (0) marks background. The numeric id given to a
// particular component is not part of the contract, only the partition is.
package labeling

import (
	"errors"
	"fmt"

	"labelseg/pkg/equivalence"
	"labelseg/pkg/neighborhood"
	"labelseg/pkg/raster"
)

var (
	// ErrNilInput indicates a nil image, volume or output buffer.
	ErrNilInput = errors.New("labeling: nil input")

	// ErrROIIndex indicates a region-of-interest index outside the volume.
	ErrROIIndex = errors.New("labeling: region-of-interest index out of range")
)

// Labeler2D labels images under 4- or 8-connectivity.
type Labeler2D struct {
	conn   neighborhood.Connectivity
	causal []neighborhood.Offset
}

// NewLabeler2D returns a labeler for conn, which must be Conn4 or Conn8.
func NewLabeler2D(conn neighborhood.Connectivity) (*Labeler2D, error) {
	causal, err := neighborhood.Causal(conn)
	if err != nil {
		return nil, err
	}
	return &Labeler2D{conn: conn, causal: causal}, nil
}

// Connectivity returns the connectivity fixed at construction.
func (l *Labeler2D) Connectivity() neighborhood.Connectivity { return l.conn }

// Label allocates a label raster for img and fills it. It returns the
// raster and the number of components found.
func (l *Labeler2D) Label(img *raster.Image) (*raster.Labels, int, error) {
	if img == nil {
		return nil, 0, ErrNilInput
	}
	out, err := raster.NewLabels(img.Width, img.Height)
	if err != nil {
		return nil, 0, err
	}
	n, err := l.LabelInto(img, out)
	if err != nil {
		return nil, 0, err
	}
	return out, n, nil
}

// Relabel treats an existing label raster as binary foreground and labels
// it again. The partition of a raster produced by Label is preserved,
// although component ids may differ.
func (l *Labeler2D) Relabel(labels *raster.Labels) (*raster.Labels, int, error) {
	if labels == nil {
		return nil, 0, ErrNilInput
	}
	return l.Label(labels.AsImage())
}

// LabelInto labels img into out, which must have the same extents. Every
// pixel of out is overwritten. It returns the number of components found.
func (l *Labeler2D) LabelInto(img *raster.Image, out *raster.Labels) (int, error) {
	if img == nil || out == nil {
		return 0, ErrNilInput
	}
	if img.Width != out.Width || img.Height != out.Height {
		return 0, fmt.Errorf("%w: image %dx%d, labels %dx%d",
			raster.ErrDimensionMismatch, img.Width, img.Height, out.Width, out.Height)
	}
	if len(img.Data) != img.Width*img.Height || len(out.Data) != len(img.Data) {
		return 0, raster.ErrDataLength
	}

	w, h := img.Width, img.Height
	reg := equivalence.New(len(img.Data) / 4)
	next := 1

	// First pass: provisional labels from causal neighbors.
	var neighbors [4]int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			if img.Data[i] == 0 {
				out.Data[i] = raster.Background
				continue
			}

			found := neighbors[:0]
			for _, o := range l.causal {
				nx, ny := x+o.DX, y+o.DY
				if nx < 0 || ny < 0 || nx >= w {
					continue
				}
				if nl := out.Data[ny*w+nx]; nl != raster.Background {
					found = append(found, nl)
				}
			}

			if len(found) == 0 {
				out.Data[i] = next
				reg.Register(next)
				next++
				continue
			}

			rep := found[0]
			out.Data[i] = rep
			for _, other := range found[1:] {
				if other != rep {
					reg.Insert(rep, other)
				}
			}
		}
	}

	reg.Reduce()

	// Second pass: canonical class ids, shifted to be 1-based.
	for i, provisional := range out.Data {
		if provisional == raster.Background {
			continue
		}
		class, _ := reg.Class(provisional)
		out.Data[i] = class + 1
	}

	return reg.Len(), nil
}
