package engine

import "math/bits"

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b Fingerprint) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// Similarity maps hamming distance into [0, 1]; 1 means bit-identical.
func Similarity(a, b Fingerprint) float64 {
	return 1 - float64(HammingDistance(a, b))/64
}

// findNearDuplicates compares every unordered pair in the remainder and
// connects pairs whose similarity meets the threshold (inclusive). Connected
// components of two or more records become near groups, so A~B plus B~C land
// in one group even when A and C are not directly similar. O(n²) over the
// remainder, which is small once exact grouping has pulled most duplicates
// out.
func findNearDuplicates(remainder []fingerprinted, threshold float64) []DuplicateGroup {
	n := len(remainder)
	if n < 2 {
		return nil
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if Similarity(remainder[i].fingerprint, remainder[j].fingerprint) >= threshold {
				uf.union(i, j)
			}
		}
	}

	// Component membership in first-seen order; group order follows the
	// earliest member of each component.
	components := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		root := uf.find(i)
		if _, seen := components[root]; !seen {
			roots = append(roots, root)
		}
		components[root] = append(components[root], i)
	}

	var groups []DuplicateGroup
	for _, root := range roots {
		idxs := components[root]
		if len(idxs) < 2 {
			continue
		}
		members := make([]Record, len(idxs))
		minSim := 1.0
		for k, idx := range idxs {
			members[k] = remainder[idx].record
			for _, other := range idxs[k+1:] {
				if s := Similarity(remainder[idx].fingerprint, remainder[other].fingerprint); s < minSim {
					minSim = s
				}
			}
		}
		groups = append(groups, DuplicateGroup{
			Kind:          GroupNear,
			Members:       members,
			MinSimilarity: minSim,
		})
	}
	return groups
}

// unionFind is a plain disjoint-set with path compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
