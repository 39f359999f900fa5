// Package watershed segments a grayscale image into basins by flooding it
// from its regional minima in order of increasing intensity.
//
// Apply runs the following steps on a copy of the input padded with a
// one-pixel border at +Inf:
//
//  1. Minima detection: a pixel is a candidate minimum when none of its
//     eight neighbors is strictly darker.
//  2. Seeding: candidate minima are labeled 8-connected, so a flat minimum
//     becomes a single seed.
//  3. Pruning: a seed touching an equally dark pixel outside the seed is a
//     plateau that drains elsewhere, and is discarded.
//  4. Flooding: seeds grow through a min-priority queue keyed by pixel
//     intensity. Ties are broken by linear index, so results are
//     deterministic.
//
// No pixel is written more than once: pruning finishes before flooding
// starts and a labeled pixel is never relabeled.
//
// Two variants are provided. InterPixel gives every pixel the label of the
// basin that reached it first, so basins meet between pixels. PixelLevel
// stops at pixels reached by two different basins and reports them as
// watershed lines.
//
// Complexity:
//
//   - Time:  O(N log N) for N pixels.
//   - Space: O(N).
package watershed

import (
	"errors"
	"math"

	"labelseg/pkg/labeling"
	"labelseg/pkg/neighborhood"
	"labelseg/pkg/raster"
)

// ErrEmptyImage indicates a nil image or one without pixels.
var ErrEmptyImage = errors.New("watershed: image is empty")

// Variant selects how basin boundaries are represented.
type Variant int

const (
	// InterPixel labels every pixel; boundaries fall between pixels.
	InterPixel Variant = iota
	// PixelLevel leaves pixels claimed by two basins as watershed lines.
	PixelLevel
)

func (v Variant) String() string {
	switch v {
	case InterPixel:
		return "interpixel"
	case PixelLevel:
		return "pixel"
	}
	return "unknown"
}

// Option configures an Engine.
type Option func(*Engine)

// WithVariant selects the flooding variant. The default is InterPixel.
func WithVariant(v Variant) Option {
	return func(e *Engine) { e.variant = v }
}

// WithPruning enables or disables discarding of non-minimal plateaus.
// Pruning is on by default.
func WithPruning(on bool) Option {
	return func(e *Engine) { e.prune = on }
}

// Engine runs watershed segmentations. It holds only configuration and may
// be shared by concurrent callers.
type Engine struct {
	variant Variant
	prune   bool
	labeler *labeling.Labeler2D
}

// New returns an engine configured by opts.
func New(opts ...Option) *Engine {
	// Conn8 is always accepted by NewLabeler2D.
	l, _ := labeling.NewLabeler2D(neighborhood.Conn8)
	e := &Engine{variant: InterPixel, prune: true, labeler: l}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Variant returns the configured variant.
func (e *Engine) Variant() Variant { return e.variant }

// Result holds the output of one Apply call. All slices use the extents of
// the input image.
type Result struct {
	// Labels holds the seed label of the basin each pixel belongs to.
	// Seed labels are 1-based but not necessarily dense because pruned
	// seeds leave gaps; use Compact for a dense numbering. Watershed line
	// pixels of the PixelLevel variant are raster.Background.
	Labels *raster.Labels

	// Lines lists the linear indices of watershed line pixels. It is
	// always empty for InterPixel.
	Lines []int

	// Minima is the number of candidate seed components before pruning.
	Minima int

	// Basins is the number of seeds that survived pruning.
	Basins int

	// Pruned is the number of candidate seeds that were discarded.
	Pruned int

	// Writes counts the writes into Labels per pixel.
	Writes []int
}

// Compact returns the labels renumbered densely from 1.
func (r *Result) Compact() (*raster.Labels, int) {
	return Compact(r.Labels)
}

// Apply segments img.
func (e *Engine) Apply(img *raster.Image) (*Result, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, ErrEmptyImage
	}
	if len(img.Data) != img.Width*img.Height {
		return nil, raster.ErrDataLength
	}

	f := &flood{
		src:  img.Pad(1, math.Inf(1)),
		orig: img,
	}
	f.w, f.h = f.src.Width, f.src.Height
	f.elem, _ = neighborhood.Bind2D(neighborhood.Conn8, f.w, f.h)

	seeds, minima, err := f.seed(e.labeler)
	if err != nil {
		return nil, err
	}
	pruned := 0
	if e.prune {
		pruned = f.pruneSeeds(seeds)
	}

	f.labels = make([]int, len(f.src.Data))
	f.writes = make([]int, len(f.src.Data))
	basins := f.plant(seeds)

	switch e.variant {
	case PixelLevel:
		f.floodPixelLevel()
	default:
		f.floodInterPixel()
	}

	res := f.result()
	res.Minima = minima
	res.Basins = basins
	res.Pruned = pruned
	return res, nil
}

// flood holds the scratch state of one Apply call on the padded image.
type flood struct {
	src  *raster.Image
	orig *raster.Image
	w, h int
	elem *neighborhood.Element

	labels []int
	writes []int
	lines  []bool
	queue  *floodQueue
	nbuf   []int
}

func (f *flood) interior(i int) bool {
	x, y := i%f.w, i/f.w
	return x > 0 && y > 0 && x < f.w-1 && y < f.h-1
}

func (f *flood) neighbors(i int) []int {
	f.nbuf = f.elem.Neighbors(i, f.nbuf[:0])
	return f.nbuf
}

// seed marks candidate minima and labels them 8-connected. It returns the
// seed label raster and the number of candidate components.
func (f *flood) seed(l *labeling.Labeler2D) (*raster.Labels, int, error) {
	mask := &raster.Image{Data: make([]float64, len(f.src.Data)), Width: f.w, Height: f.h}
	for i, v := range f.src.Data {
		if !f.interior(i) {
			continue
		}
		minimum := true
		for _, n := range f.neighbors(i) {
			if f.src.Data[n] < v {
				minimum = false
				break
			}
		}
		if minimum {
			mask.Data[i] = 1
		}
	}
	return l.Label(mask)
}

// pruneSeeds zeroes every seed component with a pixel whose non-seed
// interior neighbor is not brighter than the seed. The padding border is
// never compared against. It returns the number of components removed.
func (f *flood) pruneSeeds(seeds *raster.Labels) int {
	reject := map[int]bool{}
	for i, s := range seeds.Data {
		if s == raster.Background || reject[s] {
			continue
		}
		v := f.src.Data[i]
		for _, n := range f.neighbors(i) {
			if !f.interior(n) {
				continue
			}
			if seeds.Data[n] == raster.Background && f.src.Data[n] <= v {
				reject[s] = true
				break
			}
		}
	}
	if len(reject) == 0 {
		return 0
	}
	for i, s := range seeds.Data {
		if reject[s] {
			seeds.Data[i] = raster.Background
		}
	}
	return len(reject)
}

// plant copies surviving seeds into the output labels and queues them. It
// returns the number of distinct seeds.
func (f *flood) plant(seeds *raster.Labels) int {
	f.queue = newFloodQueue(len(f.src.Data) / 4)
	present := map[int]bool{}
	for i, s := range seeds.Data {
		if s == raster.Background {
			continue
		}
		f.write(i, s)
		present[s] = true
		f.queue.push(f.src.Data[i], i)
	}
	return len(present)
}

func (f *flood) write(i, label int) {
	f.labels[i] = label
	f.writes[i]++
}

// floodInterPixel pops the darkest pending pixel and hands its label to
// every unlabeled interior neighbor, which is queued at its own intensity.
func (f *flood) floodInterPixel() {
	for f.queue.size() > 0 {
		cur := f.queue.pop()
		label := f.labels[cur.index]
		for _, n := range f.neighbors(cur.index) {
			if f.labels[n] != raster.Background || !f.interior(n) {
				continue
			}
			f.write(n, label)
			f.queue.push(f.src.Data[n], n)
		}
	}
}

// floodPixelLevel queues the unlabeled neighbors of labeled pixels. A popped
// pixel whose labeled neighbors all agree joins that basin and queues its
// own neighbors; one touching two basins becomes a watershed line.
func (f *flood) floodPixelLevel() {
	queued := make([]bool, len(f.src.Data))
	f.lines = make([]bool, len(f.src.Data))

	seeds := make([]int, 0, f.queue.size())
	for f.queue.size() > 0 {
		seeds = append(seeds, f.queue.pop().index)
	}
	for _, s := range seeds {
		queued[s] = true
	}
	for _, s := range seeds {
		for _, n := range f.neighbors(s) {
			if queued[n] || !f.interior(n) {
				continue
			}
			queued[n] = true
			f.queue.push(f.src.Data[n], n)
		}
	}

	for f.queue.size() > 0 {
		cur := f.queue.pop()

		label := raster.Background
		line := false
		for _, n := range f.neighbors(cur.index) {
			nl := f.labels[n]
			if nl == raster.Background {
				continue
			}
			if label == raster.Background {
				label = nl
			} else if nl != label {
				line = true
				break
			}
		}

		if line || label == raster.Background {
			f.lines[cur.index] = true
			f.write(cur.index, raster.Background)
			continue
		}

		f.write(cur.index, label)
		for _, n := range f.neighbors(cur.index) {
			if queued[n] || !f.interior(n) {
				continue
			}
			queued[n] = true
			f.queue.push(f.src.Data[n], n)
		}
	}
}

// result crops the padded buffers back to the input extents.
func (f *flood) result() *Result {
	ow, oh := f.orig.Width, f.orig.Height
	labels := &raster.Labels{Data: make([]int, ow*oh), Width: ow, Height: oh}
	writes := make([]int, ow*oh)
	var lines []int

	for y := 0; y < oh; y++ {
		for x := 0; x < ow; x++ {
			src := (y+1)*f.w + x + 1
			dst := y*ow + x
			labels.Data[dst] = f.labels[src]
			writes[dst] = f.writes[src]
			if f.lines != nil && f.lines[src] {
				lines = append(lines, dst)
			}
		}
	}
	return &Result{Labels: labels, Lines: lines, Writes: writes}
}
