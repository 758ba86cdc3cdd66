package dtree

import (
	"github.com/akmonengine/plume/geo"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// QueryCallback is invoked for every leaf whose fat AABB overlaps the query
// box; returning false stops the enumeration.
type QueryCallback func(id int) bool

// RayCastCallback is invoked for every leaf the clipped ray segment may
// hit. The return value becomes the new maximum fraction: 0 terminates the
// cast, input.MaxFraction continues unaffected, anything in between shrinks
// the segment and prunes farther subtrees.
type RayCastCallback func(input geo.RayCastInput, id int) float32

// Query enumerates all leaves whose fat AABB overlaps aabb. The callback
// must not mutate the tree while the traversal runs.
func (t *Tree) Query(aabb geo.AABB, visit QueryCallback) {
	stack := make([]int, 0, 256)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NullNode {
			continue
		}

		n := &t.nodes[id]
		if !n.aabb.Overlaps(aabb) {
			continue
		}

		if n.isLeaf() {
			if !visit(id) {
				return
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}

// RayCast walks the tree depth-first, descending only into subtrees the
// clipped segment can reach. Leaf hits go through the callback, which may
// tighten the maximum fraction after exact geometry testing.
func (t *Tree) RayCast(input geo.RayCastInput, visit RayCastCallback) {
	p1 := input.P1
	p2 := input.P2
	r := p2.Sub(p1)
	assert(r.LenSqr() > 0.0, "RayCast: degenerate segment")
	r = r.Normalize()

	// v is perpendicular to the segment
	v := mgl32.Vec2{-r.Y(), r.X()}
	absV := mgl32.Vec2{math32.Abs(v.X()), math32.Abs(v.Y())}

	maxFraction := input.MaxFraction
	segmentAABB := geo.SegmentAABB(p1, p2, maxFraction)

	stack := make([]int, 0, 256)
	stack = append(stack, t.root)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == NullNode {
			continue
		}

		n := &t.nodes[id]
		if !n.aabb.Overlaps(segmentAABB) {
			continue
		}

		// Separating axis for segment (Gino, p80):
		// |dot(v, p1 - c)| > dot(|v|, h)
		c := n.aabb.Center()
		h := n.aabb.Extents()
		separation := math32.Abs(v.Dot(p1.Sub(c))) - absV.Dot(h)
		if separation > 0.0 {
			continue
		}

		if n.isLeaf() {
			subInput := geo.RayCastInput{P1: input.P1, P2: input.P2, MaxFraction: maxFraction}

			value := visit(subInput, id)
			if value == 0.0 {
				// The client terminated the cast
				return
			}

			if value > 0.0 {
				// Shrink the segment bounds to the tightened fraction
				maxFraction = value
				segmentAABB = geo.SegmentAABB(p1, p2, maxFraction)
			}
		} else {
			stack = append(stack, n.child1, n.child2)
		}
	}
}
