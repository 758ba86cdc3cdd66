// Command crowd drives the broad phase with a few hundred boxes bouncing
// around an arena, printing candidate-pair counts and tree quality.
package main

import (
	"fmt"
	"math/rand"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/geo"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	arenaSize = 100.0
	numBoxes  = 400
	boxSize   = 1.5
	numFrames = 300
	dt        = 1.0 / 60.0
)

type box struct {
	id       int
	pos      mgl32.Vec2
	velocity mgl32.Vec2
}

func (b *box) aabb() geo.AABB {
	h := float32(boxSize / 2)
	return geo.AABB{
		Min: b.pos.Sub(mgl32.Vec2{h, h}),
		Max: b.pos.Add(mgl32.Vec2{h, h}),
	}
}

func main() {
	r := rand.New(rand.NewSource(42))
	bp := plume.NewBroadPhase(plume.DefaultConfig())

	boxes := make([]*box, numBoxes)
	for i := range boxes {
		b := &box{
			pos:      mgl32.Vec2{r.Float32() * arenaSize, r.Float32() * arenaSize},
			velocity: mgl32.Vec2{r.Float32()*20 - 10, r.Float32()*20 - 10},
		}
		b.id = bp.CreateProxy(b.aabb(), b)
		boxes[i] = b
	}

	for frame := 0; frame < numFrames; frame++ {
		for _, b := range boxes {
			displacement := b.velocity.Mul(dt)
			b.pos = b.pos.Add(displacement)

			// Bounce off the arena walls
			for i := 0; i < 2; i++ {
				if b.pos[i] < 0 || b.pos[i] > arenaSize {
					b.velocity[i] = -b.velocity[i]
					b.pos[i] = mgl32.Clamp(b.pos[i], 0, arenaSize)
				}
			}

			bp.MoveProxy(b.id, b.aabb(), displacement)
		}

		pairs := 0
		bp.UpdatePairs(func(idA, idB int) {
			pairs++
		})

		if frame%60 == 0 {
			fmt.Printf("frame %3d: %4d candidate pairs, tree height %2d, balance %d, quality %.2f\n",
				frame, pairs, bp.GetTreeHeight(), bp.GetTreeBalance(), bp.GetTreeQuality())

			castRay(bp, r)
		}
	}
}

// castRay shoots a random ray across the arena and reports the nearest
// proxy the broad phase finds
func castRay(bp *plume.BroadPhase, r *rand.Rand) {
	input := geo.RayCastInput{
		P1:          mgl32.Vec2{0, r.Float32() * arenaSize},
		P2:          mgl32.Vec2{arenaSize, r.Float32() * arenaSize},
		MaxFraction: 1,
	}

	nearest := -1
	best := input.MaxFraction
	bp.RayCast(input, func(sub geo.RayCastInput, id int) float32 {
		fraction, ok := bp.GetFatAABB(id).RayCast(sub)
		if !ok {
			return sub.MaxFraction
		}
		if fraction < best {
			best = fraction
			nearest = id
		}
		return fraction
	})

	if nearest >= 0 {
		fmt.Printf("           ray hit proxy %d at fraction %.3f\n", nearest, best)
	} else {
		fmt.Println("           ray hit nothing")
	}
}
