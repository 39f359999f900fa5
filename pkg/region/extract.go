package region

import (
	"labelseg/pkg/labeling"
	"labelseg/pkg/neighborhood"
	"labelseg/pkg/raster"
)

// FromLabels groups the pixels of a label raster by label. The result has
// one slot per label in [min, max], in label order, so labels that never
// occur yield empty regions. With dropBackground set, the slot for
// raster.Background is left out. A raster with no foreground yields an
// empty set.
func FromLabels(labels *raster.Labels, dropBackground bool) Set {
	if labels == nil || !labels.HasForeground() {
		return Set{}
	}
	slots := group(labels.Data, dropBackground)

	out := make(Set, 0, len(slots))
	for _, s := range slots {
		out = append(out, &Region{Label: s.label, Indices: s.indices, Stride: labels.Width})
	}
	return out
}

// FromLabelVolume is the volume counterpart of FromLabels.
func FromLabelVolume(labels *raster.LabelVolume, dropBackground bool) Set3D {
	if labels == nil || !labels.HasForeground() {
		return Set3D{}
	}
	slots := group(labels.Data, dropBackground)

	out := make(Set3D, 0, len(slots))
	for _, s := range slots {
		out = append(out, &Region3D{
			Label:      s.label,
			Indices:    s.indices,
			Stride:     labels.Width,
			SlicePitch: labels.Width * labels.Height,
		})
	}
	return out
}

type slot struct {
	label   int
	indices []int
}

func group(data []int, dropBackground bool) []slot {
	lo, hi := 0, 0
	for i, v := range data {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}

	slots := make([]slot, hi-lo+1)
	for k := range slots {
		slots[k].label = lo + k
	}
	for i, v := range data {
		slots[v-lo].indices = append(slots[v-lo].indices, i)
	}

	if dropBackground && lo <= raster.Background && raster.Background <= hi {
		bg := raster.Background - lo
		slots = append(slots[:bg], slots[bg+1:]...)
	}
	return slots
}

// Extractor labels binary images and returns their regions.
type Extractor struct {
	labeler        *labeling.Labeler2D
	dropBackground bool
}

// NewExtractor returns an extractor that labels under conn.
func NewExtractor(conn neighborhood.Connectivity, dropBackground bool) (*Extractor, error) {
	l, err := labeling.NewLabeler2D(conn)
	if err != nil {
		return nil, err
	}
	return &Extractor{labeler: l, dropBackground: dropBackground}, nil
}

// Extract labels img and groups the result. An image without foreground
// returns an empty set without running the labeler.
func (e *Extractor) Extract(img *raster.Image) (Set, error) {
	if img == nil {
		return nil, labeling.ErrNilInput
	}
	if !anyForeground(img.Data) {
		return Set{}, nil
	}
	labels, _, err := e.labeler.Label(img)
	if err != nil {
		return nil, err
	}
	return FromLabels(labels, e.dropBackground), nil
}

// Extractor3D labels binary volumes and returns their regions.
type Extractor3D struct {
	labeler        *labeling.Labeler3D
	dropBackground bool
}

// NewExtractor3D returns a 26-connected volume extractor.
func NewExtractor3D(dropBackground bool) *Extractor3D {
	return &Extractor3D{labeler: labeling.NewLabeler3D(), dropBackground: dropBackground}
}

// Extract labels vol and groups the result. A volume without foreground
// returns an empty set without running the labeler.
func (e *Extractor3D) Extract(vol *raster.Volume) (Set3D, error) {
	if vol == nil {
		return nil, labeling.ErrNilInput
	}
	if !anyForeground(vol.Data) {
		return Set3D{}, nil
	}
	labels, _, err := e.labeler.Label(vol)
	if err != nil {
		return nil, err
	}
	return FromLabelVolume(labels, e.dropBackground), nil
}

// ExtractMasked is Extract restricted to voxels where roi is non-zero.
func (e *Extractor3D) ExtractMasked(vol, roi *raster.Volume) (Set3D, error) {
	if vol == nil || roi == nil {
		return nil, labeling.ErrNilInput
	}
	if !anyForeground(vol.Data) {
		return Set3D{}, nil
	}
	labels, _, err := e.labeler.LabelMasked(vol, roi)
	if err != nil {
		return nil, err
	}
	return FromLabelVolume(labels, e.dropBackground), nil
}

func anyForeground(data []float64) bool {
	for _, v := range data {
		if v != 0 {
			return true
		}
	}
	return false
}
