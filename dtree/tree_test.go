package dtree

import (
	"math/rand"
	"testing"

	"github.com/akmonengine/plume/geo"
	"github.com/go-gl/mathgl/mgl32"
)

func TestInsertRemove(t *testing.T) {
	tree := New(Config{})

	a := tree.Insert(geo.Box(0, 0, 1, 1), "a")
	b := tree.Insert(geo.Box(5, 5, 6, 6), "b")
	c := tree.Insert(geo.Box(2, 2, 3, 3), "c")

	tree.Validate()

	if tree.UserData(a) != "a" || tree.UserData(b) != "b" || tree.UserData(c) != "c" {
		t.Errorf("user data does not round-trip")
	}

	tree.Remove(b)
	tree.Validate()

	if tree.UserData(b) != nil {
		t.Errorf("UserData(removed) = %v, want nil", tree.UserData(b))
	}

	tree.Remove(a)
	tree.Remove(c)
	tree.Validate()

	if h := tree.Height(); h != 0 {
		t.Errorf("Height of empty tree = %d, want 0", h)
	}
}

func TestFatteningMargin(t *testing.T) {
	tree := New(Config{AABBExtension: 0.1})

	aabb := geo.Box(0, 0, 1, 1)
	id := tree.Insert(aabb, nil)

	fat := tree.FatAABB(id)
	if !fat.Contains(aabb) {
		t.Fatalf("fat AABB %v does not contain tight AABB %v", fat, aabb)
	}
	if fat != geo.Box(-0.1, -0.1, 1.1, 1.1) {
		t.Errorf("fat AABB = %v, want margin 0.1 on every side", fat)
	}
}

func TestMoveCheapPath(t *testing.T) {
	tree := New(Config{})
	id := tree.Insert(geo.Box(0, 0, 1, 1), nil)

	// A tiny nudge stays inside the fat AABB: no relocation
	if relocated := tree.Move(id, geo.Box(0.01, 0.01, 1.01, 1.01), mgl32.Vec2{0.01, 0.01}); relocated {
		t.Errorf("Move within the fat AABB relocated the leaf")
	}

	// A jump far outside must relocate
	if relocated := tree.Move(id, geo.Box(10, 10, 11, 11), mgl32.Vec2{10, 10}); !relocated {
		t.Errorf("Move outside the fat AABB did not relocate the leaf")
	}
	tree.Validate()
}

func TestMovePredictiveFattening(t *testing.T) {
	tree := New(Config{AABBExtension: 0.1, AABBMultiplier: 2.0})
	id := tree.Insert(geo.Box(0, 0, 1, 1), nil)

	aabb := geo.Box(5, 0, 6, 1)
	tree.Move(id, aabb, mgl32.Vec2{0.5, 0})

	// The fat AABB extends along +x by multiplier * displacement
	fat := tree.FatAABB(id)
	expected := geo.Box(4.9, -0.1, 7.1, 1.1)
	for i := 0; i < 2; i++ {
		if !mgl32.FloatEqualThreshold(fat.Min[i], expected.Min[i], 1e-5) ||
			!mgl32.FloatEqualThreshold(fat.Max[i], expected.Max[i], 1e-5) {
			t.Fatalf("fat AABB = %v, want %v", fat, expected)
		}
	}
	if !fat.Contains(aabb) {
		t.Errorf("fat AABB %v does not contain %v", fat, aabb)
	}
}

func TestIdReuse(t *testing.T) {
	tree := New(Config{})

	ids := make([]int, 4)
	for i := range ids {
		x := float32(i)
		ids[i] = tree.Insert(geo.Box(x, 0, x+1, 1), i)
	}

	// Freed ids come back LIFO
	tree.Remove(ids[2])
	if got := tree.Insert(geo.Box(9, 9, 10, 10), nil); got != ids[2] {
		t.Errorf("Insert after Remove returned id %d, want %d", got, ids[2])
	}

	tree.Remove(ids[0])
	tree.Remove(ids[1])
	if got := tree.Insert(geo.Box(7, 7, 8, 8), nil); got != ids[1] {
		t.Errorf("Insert after two Removes returned id %d, want %d", got, ids[1])
	}
}

func TestDegenerateAABB(t *testing.T) {
	tree := New(Config{})

	// Zero-area and inverted boxes are normalized, not rejected
	zero := tree.Insert(geo.Box(1, 1, 1, 1), nil)
	inverted := tree.Insert(geo.AABB{Min: mgl32.Vec2{3, 4}, Max: mgl32.Vec2{2, 2}}, nil)
	tree.Validate()

	if !tree.FatAABB(zero).IsValid() {
		t.Errorf("fat AABB of zero-area insert is invalid: %v", tree.FatAABB(zero))
	}
	if !tree.FatAABB(inverted).Contains(geo.Box(2, 2, 3, 4)) {
		t.Errorf("inverted insert was not normalized: %v", tree.FatAABB(inverted))
	}

	tree.Move(zero, geo.AABB{Min: mgl32.Vec2{5, 5}, Max: mgl32.Vec2{4, 4}}, mgl32.Vec2{})
	tree.Validate()
}

func TestEmptyAndSingleNode(t *testing.T) {
	tree := New(Config{})

	if h := tree.Height(); h != 0 {
		t.Errorf("Height of empty tree = %d, want 0", h)
	}
	if b := tree.MaxBalance(); b != 0 {
		t.Errorf("MaxBalance of empty tree = %d, want 0", b)
	}
	if r := tree.AreaRatio(); r != 0 {
		t.Errorf("AreaRatio of empty tree = %v, want 0", r)
	}

	tree.Query(geo.Box(-100, -100, 100, 100), func(id int) bool {
		t.Errorf("query of empty tree visited %d", id)
		return true
	})
	tree.RayCast(geo.RayCastInput{P1: mgl32.Vec2{0, 0}, P2: mgl32.Vec2{1, 0}, MaxFraction: 1},
		func(input geo.RayCastInput, id int) float32 {
			t.Errorf("ray cast of empty tree visited %d", id)
			return input.MaxFraction
		})

	id := tree.Insert(geo.Box(0, 0, 1, 1), nil)
	if h := tree.Height(); h != 0 {
		t.Errorf("Height of single-leaf tree = %d, want 0", h)
	}
	if r := tree.AreaRatio(); r != 1 {
		t.Errorf("AreaRatio of single-leaf tree = %v, want 1", r)
	}

	visited := 0
	tree.Query(geo.Box(0, 0, 2, 2), func(got int) bool {
		if got != id {
			t.Errorf("query visited %d, want %d", got, id)
		}
		visited++
		return true
	})
	if visited != 1 {
		t.Errorf("query visited %d leaves, want 1", visited)
	}
}

func TestInvalidIdPanics(t *testing.T) {
	tests := []struct {
		name string
		op   func(tree *Tree)
	}{
		{"Remove out of range", func(tree *Tree) { tree.Remove(99) }},
		{"Remove negative", func(tree *Tree) { tree.Remove(-1) }},
		{"Move dead id", func(tree *Tree) {
			id := tree.Insert(geo.Box(0, 0, 1, 1), nil)
			tree.Remove(id)
			tree.Move(id, geo.Box(0, 0, 1, 1), mgl32.Vec2{})
		}},
		{"FatAABB dead id", func(tree *Tree) {
			id := tree.Insert(geo.Box(0, 0, 1, 1), nil)
			tree.Remove(id)
			tree.FatAABB(id)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("expected a panic")
				}
			}()
			tt.op(New(Config{}))
		})
	}
}

// randomAABB returns a small box at a random position in [-50, 50]²
func randomAABB(r *rand.Rand) geo.AABB {
	x := r.Float32()*100 - 50
	y := r.Float32()*100 - 50
	w := r.Float32()*2 + 0.1
	h := r.Float32()*2 + 0.1
	return geo.Box(x, y, x+w, y+h)
}

func TestRandomizedInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	tree := New(Config{})

	live := make([]int, 0, 512)
	const ops = 10000

	for i := 0; i < ops; i++ {
		switch op := r.Intn(10); {
		case op < 5 || len(live) == 0:
			live = append(live, tree.Insert(randomAABB(r), i))
		case op < 8:
			id := live[r.Intn(len(live))]
			d := mgl32.Vec2{r.Float32()*4 - 2, r.Float32()*4 - 2}
			aabb := randomAABB(r)
			tree.Move(id, aabb, d)
			if !tree.FatAABB(id).Contains(aabb) {
				t.Fatalf("op %d: fat AABB does not contain the moved box", i)
			}
		default:
			k := r.Intn(len(live))
			tree.Remove(live[k])
			live = append(live[:k], live[k+1:]...)
		}

		// Validate covers union, height and structural invariants;
		// check the balance bound separately every few operations.
		// The rotation heuristic keeps sibling heights within 2 of
		// each other; it does not maintain strict AVL balance.
		if i%100 == 0 {
			tree.Validate()
			if b := tree.MaxBalance(); b > MaxBalanceBound {
				t.Fatalf("op %d: max balance %d exceeds bound %d", i, b, MaxBalanceBound)
			}
		}
	}

	tree.Validate()
	if b := tree.MaxBalance(); b > MaxBalanceBound {
		t.Fatalf("final max balance %d exceeds bound %d", b, MaxBalanceBound)
	}
}
