// Package equivalence records which provisional labels denote the same
// connected component and resolves them into dense class ids.
//
// The registry is a disjoint-set forest with union by size and path
// compression. Reduce assigns class ids 0..k-1 in order of each class's
// smallest member, so the resulting partition and numbering depend only on
// the set of Insert calls, not on how the forest happened to be shaped.
//
// Complexity:
//
//   - Register, Insert: amortized O(α(n)).
//   - Reduce: O(n α(n)).
//   - Class: O(1) after Reduce.
package equivalence

import "fmt"

// Registry tracks equivalences between positive integer labels.
type Registry struct {
	// parent[l] is the forest parent of label l; 0 marks an unseen label.
	parent []int
	// size[l] is the member count of the tree rooted at l.
	size []int
	// class[l] is the dense class id of l, valid while reduced is true.
	class []int

	classes int
	reduced bool
}

// New returns an empty registry with room for labels up to capacity.
func New(capacity int) *Registry {
	if capacity < 0 {
		capacity = 0
	}
	return &Registry{
		parent: make([]int, capacity+1),
		size:   make([]int, capacity+1),
	}
}

func (r *Registry) grow(label int) {
	if label <= 0 {
		panic(fmt.Sprintf("equivalence: label %d must be positive", label))
	}
	if label < len(r.parent) {
		return
	}
	n := 2 * len(r.parent)
	if n <= label {
		n = label + 1
	}
	parent := make([]int, n)
	copy(parent, r.parent)
	size := make([]int, n)
	copy(size, r.size)
	r.parent, r.size = parent, size
}

// Seen reports whether label has been registered.
func (r *Registry) Seen(label int) bool {
	return label > 0 && label < len(r.parent) && r.parent[label] != 0
}

// Register records label as a singleton class. Registering a label that is
// already known is a no-op. Register panics if label is not positive:
// 0 is the background and never takes part in an equivalence.
func (r *Registry) Register(label int) {
	r.grow(label)
	if r.parent[label] != 0 {
		return
	}
	r.parent[label] = label
	r.size[label] = 1
	r.reduced = false
}

// Insert records that a and b denote the same component. Unseen labels are
// registered first; labels already sharing a class are left alone;
// otherwise the smaller class is absorbed into the larger one. Like
// Register, Insert panics if either label is not positive.
func (r *Registry) Insert(a, b int) {
	r.Register(a)
	r.Register(b)

	ra, rb := r.find(a), r.find(b)
	if ra == rb {
		return
	}
	if r.size[ra] < r.size[rb] {
		ra, rb = rb, ra
	}
	r.parent[rb] = ra
	r.size[ra] += r.size[rb]
	r.reduced = false
}

// find returns the root of label, halving the path on the way up.
func (r *Registry) find(label int) int {
	for r.parent[label] != label {
		r.parent[label] = r.parent[r.parent[label]]
		label = r.parent[label]
	}
	return label
}

// Same reports whether a and b are known to belong to one class.
func (r *Registry) Same(a, b int) bool {
	if !r.Seen(a) || !r.Seen(b) {
		return false
	}
	return r.find(a) == r.find(b)
}

// Reduce numbers the surviving classes densely from zero. Classes are
// ordered by their smallest member label.
func (r *Registry) Reduce() {
	r.class = make([]int, len(r.parent))
	rootClass := make(map[int]int)
	r.classes = 0

	for label := 1; label < len(r.parent); label++ {
		if r.parent[label] == 0 {
			continue
		}
		root := r.find(label)
		id, ok := rootClass[root]
		if !ok {
			id = r.classes
			rootClass[root] = id
			r.classes++
		}
		r.class[label] = id
	}
	r.reduced = true
}

// Class returns the dense class id of label. The second result is false if
// the label was never registered or Reduce has not run since the last
// change.
func (r *Registry) Class(label int) (int, bool) {
	if !r.reduced || !r.Seen(label) {
		return 0, false
	}
	return r.class[label], true
}

// Len returns the number of classes found by the last Reduce.
func (r *Registry) Len() int {
	if !r.reduced {
		return 0
	}
	return r.classes
}
