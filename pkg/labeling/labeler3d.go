package labeling

import (
	"fmt"

	"labelseg/pkg/neighborhood"
	"labelseg/pkg/raster"
)

// Labeler3D labels volumes under 26-connectivity.
type Labeler3D struct{}

// NewLabeler3D returns a volume labeler.
func NewLabeler3D() *Labeler3D { return &Labeler3D{} }

// Connectivity returns the connectivity used for volumes.
func (l *Labeler3D) Connectivity() neighborhood.Connectivity { return neighborhood.Conn26 }

// Label labels every foreground voxel of vol. It returns the label volume
// and the number of components found.
func (l *Labeler3D) Label(vol *raster.Volume) (*raster.LabelVolume, int, error) {
	if vol == nil {
		return nil, 0, ErrNilInput
	}
	return l.flood(vol)
}

// LabelMasked restricts labeling to voxels where roi is non-zero. Voxels
// outside the region of interest are treated as background, so two
// foreground blobs joined only through excluded voxels stay separate.
// vol itself is never modified.
func (l *Labeler3D) LabelMasked(vol, roi *raster.Volume) (*raster.LabelVolume, int, error) {
	if vol == nil || roi == nil {
		return nil, 0, ErrNilInput
	}
	if !vol.SameExtent(roi) {
		return nil, 0, fmt.Errorf("%w: volume %dx%dx%d, roi %dx%dx%d", raster.ErrDimensionMismatch,
			vol.Width, vol.Height, vol.Depth, roi.Width, roi.Height, roi.Depth)
	}

	keep := make([]bool, len(vol.Data))
	for i, v := range roi.Data {
		keep[i] = v != 0
	}
	return l.flood(restrict(vol, keep))
}

// LabelIndices restricts labeling to the listed linear voxel indices. It
// produces the same result as LabelMasked with a roi that is non-zero
// exactly at those indices.
func (l *Labeler3D) LabelIndices(vol *raster.Volume, indices []int) (*raster.LabelVolume, int, error) {
	if vol == nil {
		return nil, 0, ErrNilInput
	}

	keep := make([]bool, len(vol.Data))
	for _, i := range indices {
		if i < 0 || i >= len(vol.Data) {
			return nil, 0, fmt.Errorf("%w: %d not in [0, %d)", ErrROIIndex, i, len(vol.Data))
		}
		keep[i] = true
	}
	return l.flood(restrict(vol, keep))
}

// restrict returns a working copy of vol with every voxel outside keep zeroed.
func restrict(vol *raster.Volume, keep []bool) *raster.Volume {
	work := vol.Clone()
	for i, k := range keep {
		if !k {
			work.Data[i] = 0
		}
	}
	return work
}

// flood scans vol in (slice, row, column) order and grows one component
// from every unvisited foreground voxel with a FIFO worklist of linear
// indices. The visited buffer lives for the whole call.
func (l *Labeler3D) flood(vol *raster.Volume) (*raster.LabelVolume, int, error) {
	if len(vol.Data) != vol.Width*vol.Height*vol.Depth {
		return nil, 0, raster.ErrDataLength
	}
	out, err := raster.NewLabelVolume(vol.Width, vol.Height, vol.Depth)
	if err != nil {
		return nil, 0, err
	}
	elem, err := neighborhood.Bind3D(neighborhood.Conn26, vol.Width, vol.Height, vol.Depth)
	if err != nil {
		return nil, 0, err
	}

	visited := make([]bool, len(vol.Data))
	queue := make([]int, 0, 1024)
	neighbors := make([]int, 0, elem.Size())
	label := 1

	for start, v := range vol.Data {
		if v == 0 || visited[start] {
			continue
		}

		queue = append(queue[:0], start)
		visited[start] = true
		for head := 0; head < len(queue); head++ {
			cur := queue[head]
			out.Data[cur] = label

			neighbors = elem.Neighbors(cur, neighbors[:0])
			for _, n := range neighbors {
				if visited[n] || vol.Data[n] == 0 {
					continue
				}
				visited[n] = true
				queue = append(queue, n)
			}
		}
		label++
	}

	return out, label - 1, nil
}
