package equivalence

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInsertCases(t *testing.T) {
	r := New(4)

	// Both unseen: a new class holding both.
	r.Insert(1, 2)
	assert.True(t, r.Same(1, 2))

	// Already in the same class: no-op.
	r.Insert(2, 1)
	assert.True(t, r.Same(1, 2))

	// Exactly one seen.
	r.Insert(2, 3)
	assert.True(t, r.Same(1, 3))

	// Both seen in different classes.
	r.Register(5)
	r.Insert(6, 5)
	assert.False(t, r.Same(1, 5))
	r.Insert(3, 6)
	assert.True(t, r.Same(1, 5))

	r.Reduce()
	require.Equal(t, 1, r.Len())
	for _, l := range []int{1, 2, 3, 5, 6} {
		id, ok := r.Class(l)
		require.True(t, ok, "label %d", l)
		assert.Equal(t, 0, id)
	}
	_, ok := r.Class(4)
	assert.False(t, ok, "label 4 was never registered")
}

func TestRegistryReduceIsDense(t *testing.T) {
	r := New(0)
	r.Register(1)
	r.Register(2)
	r.Register(3)
	r.Insert(3, 1)
	r.Register(7)

	r.Reduce()
	require.Equal(t, 3, r.Len())

	ids := map[int]int{}
	for _, l := range []int{1, 2, 3, 7} {
		id, ok := r.Class(l)
		require.True(t, ok)
		ids[l] = id
	}
	assert.Equal(t, ids[1], ids[3])
	assert.Equal(t, 0, ids[1], "classes are ordered by smallest member")
	assert.Equal(t, 1, ids[2])
	assert.Equal(t, 2, ids[7])
}

func TestRegistryClassRequiresReduce(t *testing.T) {
	r := New(2)
	r.Insert(1, 2)
	_, ok := r.Class(1)
	assert.False(t, ok)

	r.Reduce()
	_, ok = r.Class(1)
	assert.True(t, ok)

	r.Register(3)
	_, ok = r.Class(1)
	assert.False(t, ok, "a change after Reduce invalidates class ids")
}

func TestRegistryRejectsBackgroundLabel(t *testing.T) {
	r := New(2)
	assert.PanicsWithValue(t, "equivalence: label 0 must be positive", func() { r.Register(0) })
	assert.PanicsWithValue(t, "equivalence: label -3 must be positive", func() { r.Insert(1, -3) })
	assert.False(t, r.Seen(0))
}

// referenceComponents labels every node of an undirected graph with the
// smallest node reachable from it.
func referenceComponents(n int, edges [][2]int) []int {
	adj := make([][]int, n+1)
	for _, e := range edges {
		adj[e[0]] = append(adj[e[0]], e[1])
		adj[e[1]] = append(adj[e[1]], e[0])
	}
	comp := make([]int, n+1)
	for start := 1; start <= n; start++ {
		if comp[start] != 0 {
			continue
		}
		queue := []int{start}
		comp[start] = start
		for qi := 0; qi < len(queue); qi++ {
			for _, v := range adj[queue[qi]] {
				if comp[v] == 0 {
					comp[v] = start
					queue = append(queue, v)
				}
			}
		}
	}
	return comp
}

func TestRegistryMatchesReferenceOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(60)
		m := rng.Intn(2 * n)
		edges := make([][2]int, 0, m)
		for i := 0; i < m; i++ {
			edges = append(edges, [2]int{1 + rng.Intn(n), 1 + rng.Intn(n)})
		}

		r := New(n / 2)
		for l := 1; l <= n; l++ {
			r.Register(l)
		}
		for _, e := range edges {
			r.Insert(e[0], e[1])
		}
		r.Reduce()

		want := referenceComponents(n, edges)
		for a := 1; a <= n; a++ {
			ca, _ := r.Class(a)
			for b := a + 1; b <= n; b++ {
				cb, _ := r.Class(b)
				require.Equal(t, want[a] == want[b], ca == cb,
					"trial %d: labels %d and %d", trial, a, b)
			}
		}

		roots := map[int]bool{}
		for l := 1; l <= n; l++ {
			roots[want[l]] = true
		}
		require.Equal(t, len(roots), r.Len(), "trial %d", trial)
	}
}
