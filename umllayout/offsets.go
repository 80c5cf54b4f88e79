package umllayout

import (
	"sort"

	"oss.terrastruct.com/umlcanvas/umlgraph"
)

const DefaultEdgeSpacing = 12.

// EdgeGroup is a set of edges joining the same two shapes in either direction.
type EdgeGroup struct {
	// Key is "min|max" of the two endpoint ids.
	Key   string
	Edges []*umlgraph.Edge
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// GroupEdges groups edges by unordered endpoint pair. Edges keep their
// relative order within a group and groups are sorted by key.
func GroupEdges(edges []*umlgraph.Edge) []EdgeGroup {
	groups := make(map[string]*EdgeGroup)
	for _, e := range edges {
		key := pairKey(e.Src.ID, e.Dst.ID)
		if g, ok := groups[key]; ok {
			g.Edges = append(g.Edges, e)
			continue
		}
		groups[key] = &EdgeGroup{Key: key, Edges: []*umlgraph.Edge{e}}
	}

	result := make([]EdgeGroup, 0, len(groups))
	for _, g := range groups {
		result = append(result, *g)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// AssignOffsets spreads parallel edges symmetrically around their shared
// baseline: the j-th of t edges in a group gets (j - (t-1)/2) * spacing, so a
// lone edge gets 0 and every group sums to 0. Non-positive spacing uses
// DefaultEdgeSpacing. Running it twice gives the same result.
func AssignOffsets(edges []*umlgraph.Edge, spacing float64) []EdgeGroup {
	if spacing <= 0 {
		spacing = DefaultEdgeSpacing
	}
	groups := GroupEdges(edges)
	for _, g := range groups {
		mid := float64(len(g.Edges)-1) / 2
		for j, e := range g.Edges {
			e.Offset = (float64(j) - mid) * spacing
		}
	}
	return groups
}
