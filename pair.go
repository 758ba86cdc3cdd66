package plume

// Pair is an unordered candidate-overlap pair of proxy ids, normalized so
// that A < B; (x, y) and (y, x) produce the same Pair
type Pair struct {
	A int
	B int
}

// MakePair creates a normalized pair with consistent ordering
func MakePair(a, b int) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// byPairOrder sorts pairs lexicographically so duplicates become adjacent
type byPairOrder []Pair

func (p byPairOrder) Len() int      { return len(p) }
func (p byPairOrder) Swap(i, j int) { p[i], p[j] = p[j], p[i] }
func (p byPairOrder) Less(i, j int) bool {
	if p[i].A != p[j].A {
		return p[i].A < p[j].A
	}
	return p[i].B < p[j].B
}
