package markov

// Intersection is the shared part of two chains: every transition present in
// both, weighted by the smaller of its two counts.
type Intersection struct {
	reference *Chain
	nodes     map[string]map[string]int
	size      int
}

// NewIntersection compares candidate against reference. The overlap is
// symmetric; the argument order only determines what Ratio divides by.
func NewIntersection(reference, candidate *Chain) *Intersection {
	in := &Intersection{
		reference: reference,
		nodes:     make(map[string]map[string]int),
	}
	if reference == nil || candidate == nil {
		return in
	}
	// iterate the smaller table
	small, large := reference, candidate
	if len(large.nodes) < len(small.nodes) {
		small, large = large, small
	}
	for prefix, followers := range small.nodes {
		other, ok := large.nodes[prefix]
		if !ok {
			continue
		}
		for next, count := range followers {
			n := min(count, other[next])
			if n == 0 {
				continue
			}
			shared, ok := in.nodes[prefix]
			if !ok {
				shared = make(map[string]int)
				in.nodes[prefix] = shared
			}
			shared[next] = n
			in.size += n
		}
	}
	return in
}

// Size is the total shared weight. It never exceeds the size of either chain.
func (in *Intersection) Size() int {
	if in == nil {
		return 0
	}
	return in.size
}

// Ratio is Size divided by the reference size, or 0 for an empty reference.
func (in *Intersection) Ratio() float64 {
	if in == nil || in.reference.Size() == 0 {
		return 0
	}
	r := float64(in.size) / float64(in.reference.Size())
	if r > 1 {
		r = 1
	}
	return r
}
