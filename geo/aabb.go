package geo

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// Box builds an AABB from its four bounds
func Box(minX, minY, maxX, maxY float32) AABB {
	return AABB{Min: mgl32.Vec2{minX, minY}, Max: mgl32.Vec2{maxX, maxY}}
}

// IsValid reports whether the bounds are ordered and finite
func (a AABB) IsValid() bool {
	d := a.Max.Sub(a.Min)
	valid := d.X() >= 0.0 && d.Y() >= 0.0
	return valid && !math32.IsNaN(a.Min.X()) && !math32.IsNaN(a.Min.Y()) &&
		!math32.IsInf(a.Max.X(), 0) && !math32.IsInf(a.Max.Y(), 0)
}

// Normalized returns the AABB with inverted bounds swapped per axis.
// Physics callers legitimately produce zero-size or inverted boxes
// transiently; they are treated as zero-area instead of rejected.
func (a AABB) Normalized() AABB {
	if a.Min.X() > a.Max.X() {
		a.Min[0], a.Max[0] = a.Max[0], a.Min[0]
	}
	if a.Min.Y() > a.Max.Y() {
		a.Min[1], a.Max[1] = a.Max[1], a.Min[1]
	}
	return a
}

// Union returns the smallest AABB enclosing both boxes
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl32.Vec2{math32.Min(a.Min.X(), b.Min.X()), math32.Min(a.Min.Y(), b.Min.Y())},
		Max: mgl32.Vec2{math32.Max(a.Max.X(), b.Max.X()), math32.Max(a.Max.Y(), b.Max.Y())},
	}
}

// Contains checks if the AABB fully contains another AABB
func (a AABB) Contains(b AABB) bool {
	return a.Min.X() <= b.Min.X() && a.Min.Y() <= b.Min.Y() &&
		b.Max.X() <= a.Max.X() && b.Max.Y() <= a.Max.Y()
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(p mgl32.Vec2) bool {
	return p.X() >= a.Min.X() && p.X() <= a.Max.X() &&
		p.Y() >= a.Min.Y() && p.Y() <= a.Max.Y()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(b AABB) bool {
	// AABBs overlap if they overlap on both axes
	return a.Max.X() >= b.Min.X() && a.Min.X() <= b.Max.X() &&
		a.Max.Y() >= b.Min.Y() && a.Min.Y() <= b.Max.Y()
}

// Center returns the center point of the AABB
func (a AABB) Center() mgl32.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half-widths of the AABB
func (a AABB) Extents() mgl32.Vec2 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Perimeter is the surface-area cost metric used by the tree heuristics
func (a AABB) Perimeter() float32 {
	wx := a.Max.X() - a.Min.X()
	wy := a.Max.Y() - a.Min.Y()
	return 2.0 * (wx + wy)
}

// Extend grows the AABB by r on every side
func (a AABB) Extend(r float32) AABB {
	d := mgl32.Vec2{r, r}
	return AABB{Min: a.Min.Sub(d), Max: a.Max.Add(d)}
}

// RayCast performs a slab test of the input segment against the AABB.
// It returns the entry fraction along P1->P2 and whether the segment
// hits within [0, input.MaxFraction].
func (a AABB) RayCast(input RayCastInput) (float32, bool) {
	tmin := float32(-math32.MaxFloat32)
	tmax := float32(math32.MaxFloat32)

	p := input.P1
	d := input.P2.Sub(input.P1)

	for i := 0; i < 2; i++ {
		if math32.Abs(d[i]) < 1e-7 {
			// Parallel to this slab
			if p[i] < a.Min[i] || a.Max[i] < p[i] {
				return 0, false
			}
			continue
		}

		inv := 1.0 / d[i]
		t1 := (a.Min[i] - p[i]) * inv
		t2 := (a.Max[i] - p[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tmin = math32.Max(tmin, t1)
		tmax = math32.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmin < 0.0 || input.MaxFraction < tmin {
		return 0, false
	}

	return tmin, true
}
