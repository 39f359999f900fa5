package models

import (
	"image"
	"time"
)

// Slice represents a single decoded input image with metadata
type Slice struct {
	// Image is the decoded image data
	Image image.Image

	// Index is the position of this slice in the sorted sequence
	Index int

	// Filename is the original filename of the slice
	Filename string
}

// Operation names the transform a Summary reports on.
type Operation string

const (
	OpLabel     Operation = "label"
	OpLabel3D   Operation = "label3d"
	OpWatershed Operation = "watershed"
)

// Summary is the outcome of one apply call on one input
type Summary struct {
	// Operation is the transform that produced this summary
	Operation Operation

	// Source is the input filename, or the directory for volumes
	Source string

	// Width, Height, Depth are the input extents; Depth is 1 for images
	Width, Height, Depth int

	// Regions is the number of reported regions or basins
	Regions int

	// Largest is the size of the largest reported region
	Largest int

	// Pruned is the number of discarded watershed seeds
	Pruned int

	// Lines is the number of watershed line pixels
	Lines int

	// Output is the path of the rendered label image, if one was written
	Output string

	// Elapsed is the wall time of the apply call
	Elapsed time.Duration
}
