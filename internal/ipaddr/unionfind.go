package ipaddr

// ReassemblySpan is the size of the union-find used by IPv4 reassembly: the
// maximum possible totalLength of a fragmented datagram, so a single flat
// array of 65536 slots is adequate.
const ReassemblySpan = 65536

// UnionFind is a flat disjoint-set over [0, ReassemblySpan), used to track
// which contiguous byte ranges of a fragmented IPv4 datagram have arrived.
// Path compression is applied on Find since it is nearly free here.
type UnionFind struct {
	parent []int32
}

// NewUnionFind returns every element as its own singleton set.
func NewUnionFind() *UnionFind {
	// Allocate one extra slot: reassembly unions (to, to+1) as a sentinel
	// marking "byte to has arrived", which can reach ReassemblySpan when a
	// fragment's data ends exactly at the span boundary.
	uf := &UnionFind{parent: make([]int32, ReassemblySpan+1)}
	for i := range uf.parent {
		uf.parent[i] = int32(i)
	}
	return uf
}

// Find returns the representative of x's set.
func (uf *UnionFind) Find(x int) int {
	for uf.parent[x] != int32(x) {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = int(uf.parent[x])
	}
	return x
}

// Union merges the sets containing a and b.
func (uf *UnionFind) Union(a, b int) {
	ra, rb := uf.Find(a), uf.Find(b)
	if ra != rb {
		uf.parent[ra] = int32(rb)
	}
}

// Connected reports whether a and b are in the same set.
func (uf *UnionFind) Connected(a, b int) bool {
	return uf.Find(a) == uf.Find(b)
}
