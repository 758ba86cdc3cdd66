package geo

import "github.com/go-gl/mathgl/mgl32"

// RayCastInput describes a ray cast as the segment
// P1 + fraction * (P2 - P1), fraction in [0, MaxFraction]
type RayCastInput struct {
	P1          mgl32.Vec2
	P2          mgl32.Vec2
	MaxFraction float32
}

// SegmentAABB bounds the part of the segment up to maxFraction
func SegmentAABB(p1, p2 mgl32.Vec2, maxFraction float32) AABB {
	t := p1.Add(p2.Sub(p1).Mul(maxFraction))
	return AABB{
		Min: mgl32.Vec2{min(p1.X(), t.X()), min(p1.Y(), t.Y())},
		Max: mgl32.Vec2{max(p1.X(), t.X()), max(p1.Y(), t.Y())},
	}
}
