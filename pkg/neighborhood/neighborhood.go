// Package neighborhood enumerates the neighbor offsets that define
// connectivity on images (4 or 8 neighbors) and volumes (26 neighbors).
//
// An Element binds an offset list to concrete extents so callers can ask
// for the in-bounds neighbors of a linear index without decoding
// coordinates themselves.
package neighborhood

import (
	"errors"
	"fmt"
)

// ErrUnsupportedConnectivity indicates a connectivity other than 4 or 8 for
// images, or other than 26 for volumes.
var ErrUnsupportedConnectivity = errors.New("neighborhood: unsupported connectivity")

// Connectivity is the number of neighbors that count as touching.
type Connectivity int

const (
	// Conn4 uses the orthogonal neighbors N, E, S, W.
	Conn4 Connectivity = 4
	// Conn8 adds the four diagonal neighbors to Conn4.
	Conn8 Connectivity = 8
	// Conn26 uses every voxel of the surrounding 3x3x3 cube.
	Conn26 Connectivity = 26
)

func (c Connectivity) String() string { return fmt.Sprintf("%d-connected", int(c)) }

// Validate2D returns an error unless c is Conn4 or Conn8.
func (c Connectivity) Validate2D() error {
	if c != Conn4 && c != Conn8 {
		return fmt.Errorf("%w: %d for images", ErrUnsupportedConnectivity, int(c))
	}
	return nil
}

// Validate3D returns an error unless c is Conn26.
func (c Connectivity) Validate3D() error {
	if c != Conn26 {
		return fmt.Errorf("%w: %d for volumes", ErrUnsupportedConnectivity, int(c))
	}
	return nil
}

// Offset is a relative displacement to a neighbor.
type Offset struct {
	DX, DY, DZ int
}

var (
	offsets4 = []Offset{{0, -1, 0}, {-1, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	offsets8 = []Offset{
		{-1, -1, 0}, {0, -1, 0}, {1, -1, 0},
		{-1, 0, 0}, {1, 0, 0},
		{-1, 1, 0}, {0, 1, 0}, {1, 1, 0},
	}

	// Causal neighbors are the ones a row-major scan has already visited.
	causal4 = []Offset{{0, -1, 0}, {-1, 0, 0}}
	causal8 = []Offset{{-1, -1, 0}, {0, -1, 0}, {1, -1, 0}, {-1, 0, 0}}

	offsets26 = func() []Offset {
		out := make([]Offset, 0, 26)
		for dz := -1; dz <= 1; dz++ {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 && dz == 0 {
						continue
					}
					out = append(out, Offset{dx, dy, dz})
				}
			}
		}
		return out
	}()
)

// Offsets returns the full neighbor set for c. The returned slice must not
// be modified.
func Offsets(c Connectivity) ([]Offset, error) {
	switch c {
	case Conn4:
		return offsets4, nil
	case Conn8:
		return offsets8, nil
	case Conn26:
		return offsets26, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnsupportedConnectivity, int(c))
}

// Causal returns the 2D neighbors already visited by a top-left to
// bottom-right raster scan: up and left for Conn4, plus up-left and
// up-right for Conn8.
func Causal(c Connectivity) ([]Offset, error) {
	switch c {
	case Conn4:
		return causal4, nil
	case Conn8:
		return causal8, nil
	}
	return nil, fmt.Errorf("%w: %d has no causal 2D subset", ErrUnsupportedConnectivity, int(c))
}

// Element is an offset list bound to fixed extents.
type Element struct {
	offsets              []Offset
	width, height, depth int
}

// Bind2D binds the offsets of c to an image of the given extents.
func Bind2D(c Connectivity, width, height int) (*Element, error) {
	if err := c.Validate2D(); err != nil {
		return nil, err
	}
	offs, _ := Offsets(c)
	return &Element{offsets: offs, width: width, height: height, depth: 1}, nil
}

// Bind3D binds the offsets of c to a volume of the given extents.
func Bind3D(c Connectivity, width, height, depth int) (*Element, error) {
	if err := c.Validate3D(); err != nil {
		return nil, err
	}
	return &Element{offsets: offsets26, width: width, height: height, depth: depth}, nil
}

// Size returns the number of offsets in the element.
func (e *Element) Size() int { return len(e.offsets) }

// Neighbors appends the linear indices of the in-bounds neighbors of i to
// dst and returns the extended slice.
func (e *Element) Neighbors(i int, dst []int) []int {
	pitch := e.width * e.height
	z := i / pitch
	rem := i % pitch
	x, y := rem%e.width, rem/e.width

	for _, o := range e.offsets {
		nx, ny, nz := x+o.DX, y+o.DY, z+o.DZ
		if nx < 0 || ny < 0 || nz < 0 || nx >= e.width || ny >= e.height || nz >= e.depth {
			continue
		}
		dst = append(dst, nz*pitch+ny*e.width+nx)
	}
	return dst
}
