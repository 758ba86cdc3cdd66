// Package dtree implements a dynamic AABB tree: a balanced binary tree of
// fattened bounding boxes used as the broad-phase acceleration structure.
// Leaves are proxies, internal nodes are unions of their children. Nodes
// live in a growable arena and are addressed by index, so insertions can
// relocate the backing array without invalidating references.
package dtree

import (
	"github.com/akmonengine/plume/geo"
	"github.com/go-gl/mathgl/mgl32"
)

// NullNode marks the absence of a node or proxy
const NullNode = -1

const (
	// DEFAULT_AABB_EXTENSION is the margin added around every leaf AABB so
	// that small motions do not trigger a tree update
	DEFAULT_AABB_EXTENSION = 0.1

	// DEFAULT_AABB_MULTIPLIER scales the predicted displacement used to
	// extend a moving leaf along its direction of travel
	DEFAULT_AABB_MULTIPLIER = 2.0
)

// Config lifts the fattening heuristics into explicit tuning knobs.
// The zero value selects the defaults.
type Config struct {
	// AABBExtension is the fixed fattening margin, in world units
	AABBExtension float32
	// AABBMultiplier scales the displacement prediction on moves
	AABBMultiplier float32
}

// DefaultConfig returns the tuning used by the reference implementation
func DefaultConfig() Config {
	return Config{
		AABBExtension:  DEFAULT_AABB_EXTENSION,
		AABBMultiplier: DEFAULT_AABB_MULTIPLIER,
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.AABBExtension <= 0 {
		cfg.AABBExtension = DEFAULT_AABB_EXTENSION
	}
	if cfg.AABBMultiplier <= 0 {
		cfg.AABBMultiplier = DEFAULT_AABB_MULTIPLIER
	}
	return cfg
}

// node is a slot in the arena. A free slot threads the free list through
// next; a used slot is a leaf (height 0, no children) or an internal node
// whose aabb is the union of its two children.
type node struct {
	aabb     geo.AABB
	userData any

	parent int
	next   int // free list link, only meaningful while the slot is free

	child1 int
	child2 int

	// leaf = 0, free slot = -1
	height int

	moved bool
}

func (n *node) isLeaf() bool {
	return n.child1 == NullNode
}

// Tree is the dynamic AABB tree. It is not safe for concurrent use;
// the caller serializes all access.
type Tree struct {
	cfg Config

	root int

	nodes     []node
	nodeCount int

	freeList int

	insertionCount int
}

// New creates an empty tree with the given tuning
func New(cfg Config) *Tree {
	tree := &Tree{
		cfg:      cfg.withDefaults(),
		root:     NullNode,
		nodes:    make([]node, 16),
		freeList: 0,
	}

	// Thread the free list through the arena
	for i := range tree.nodes {
		tree.nodes[i].next = i + 1
		tree.nodes[i].height = -1
	}
	tree.nodes[len(tree.nodes)-1].next = NullNode

	return tree
}

func assert(cond bool, msg string) {
	if !cond {
		panic("dtree: " + msg)
	}
}

// allocateNode pops a slot off the free list, growing the arena if needed
func (t *Tree) allocateNode() int {
	if t.freeList == NullNode {
		assert(t.nodeCount == len(t.nodes), "free list empty with spare capacity")

		old := len(t.nodes)
		t.nodes = append(t.nodes, make([]node, old)...)
		for i := old; i < len(t.nodes); i++ {
			t.nodes[i].next = i + 1
			t.nodes[i].height = -1
		}
		t.nodes[len(t.nodes)-1].next = NullNode
		t.freeList = old
	}

	id := t.freeList
	t.freeList = t.nodes[id].next
	t.nodes[id].parent = NullNode
	t.nodes[id].child1 = NullNode
	t.nodes[id].child2 = NullNode
	t.nodes[id].height = 0
	t.nodes[id].userData = nil
	t.nodes[id].moved = false
	t.nodeCount++

	return id
}

// freeNode returns a slot to the free list
func (t *Tree) freeNode(id int) {
	assert(0 <= id && id < len(t.nodes), "freeNode: id out of range")
	assert(0 < t.nodeCount, "freeNode: empty tree")
	t.nodes[id].next = t.freeList
	t.nodes[id].height = -1
	t.nodes[id].userData = nil
	t.freeList = id
	t.nodeCount--
}

// Insert creates a leaf proxy for the given tight AABB. The stored AABB is
// fattened by the configured margin. The returned id stays valid until
// Remove; freed ids are reused in LIFO order.
func (t *Tree) Insert(aabb geo.AABB, userData any) int {
	id := t.allocateNode()

	aabb = aabb.Normalized()
	t.nodes[id].aabb = aabb.Extend(t.cfg.AABBExtension)
	t.nodes[id].userData = userData
	t.nodes[id].height = 0

	t.insertLeaf(id)

	return id
}

// Remove destroys a leaf proxy
func (t *Tree) Remove(id int) {
	assert(0 <= id && id < len(t.nodes), "Remove: id out of range")
	assert(t.nodes[id].height >= 0 && t.nodes[id].isLeaf(), "Remove: not a live leaf")

	t.removeLeaf(id)
	t.freeNode(id)
}

// Move updates the proxy's tight AABB, recording the expected displacement
// for predictive fattening. It reports whether the leaf had to be relocated
// in the tree; if the new tight box still fits inside the current fat box
// the tree is left untouched.
func (t *Tree) Move(id int, aabb geo.AABB, displacement mgl32.Vec2) bool {
	assert(0 <= id && id < len(t.nodes), "Move: id out of range")
	assert(t.nodes[id].height >= 0 && t.nodes[id].isLeaf(), "Move: not a live leaf")

	aabb = aabb.Normalized()

	// Extend and predict along the motion
	fatAABB := aabb.Extend(t.cfg.AABBExtension)
	d := displacement.Mul(t.cfg.AABBMultiplier)
	if d.X() < 0.0 {
		fatAABB.Min[0] += d.X()
	} else {
		fatAABB.Max[0] += d.X()
	}
	if d.Y() < 0.0 {
		fatAABB.Min[1] += d.Y()
	} else {
		fatAABB.Max[1] += d.Y()
	}

	treeAABB := t.nodes[id].aabb
	if treeAABB.Contains(aabb) {
		// The tight box still fits. Only keep the stored box if it is not
		// excessively large, so a proxy that stops moving eventually
		// shrinks back to a snug bound.
		hugeAABB := fatAABB.Extend(4.0 * t.cfg.AABBExtension)
		if hugeAABB.Contains(treeAABB) {
			return false
		}
	}

	t.removeLeaf(id)
	t.nodes[id].aabb = fatAABB
	t.insertLeaf(id)

	return true
}

// UserData returns the payload attached at Insert. It returns nil for an
// id that does not resolve to a live leaf, as a convenience for
// diagnostic code.
func (t *Tree) UserData(id int) any {
	if id < 0 || id >= len(t.nodes) || !t.nodes[id].isLeaf() || t.nodes[id].height < 0 {
		return nil
	}
	return t.nodes[id].userData
}

// FatAABB returns the fattened AABB stored for a live proxy
func (t *Tree) FatAABB(id int) geo.AABB {
	assert(0 <= id && id < len(t.nodes), "FatAABB: id out of range")
	assert(t.nodes[id].height >= 0 && t.nodes[id].isLeaf(), "FatAABB: not a live leaf")
	return t.nodes[id].aabb
}

// The moved flag stores move-set membership for the broad phase; the tree
// only provides the storage so that membership tests stay O(1) during
// pair queries.

// WasMoved reports whether the proxy is marked as moved
func (t *Tree) WasMoved(id int) bool {
	assert(0 <= id && id < len(t.nodes), "WasMoved: id out of range")
	return t.nodes[id].moved
}

// MarkMoved flags the proxy as moved
func (t *Tree) MarkMoved(id int) {
	assert(0 <= id && id < len(t.nodes), "MarkMoved: id out of range")
	t.nodes[id].moved = true
}

// ClearMoved resets the proxy's moved flag
func (t *Tree) ClearMoved(id int) {
	assert(0 <= id && id < len(t.nodes), "ClearMoved: id out of range")
	t.nodes[id].moved = false
}

// insertLeaf walks the tree looking for the cheapest sibling, splices a new
// parent above it, and repairs heights and unions back up to the root.
func (t *Tree) insertLeaf(leaf int) {
	t.insertionCount++

	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	// Find the best sibling using the surface-area heuristic
	leafAABB := t.nodes[leaf].aabb
	index := t.root
	for !t.nodes[index].isLeaf() {
		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2

		area := t.nodes[index].aabb.Perimeter()
		combinedArea := t.nodes[index].aabb.Union(leafAABB).Perimeter()

		// Cost of creating a new parent for this node and the new leaf
		cost := 2.0 * combinedArea

		// Minimum cost of pushing the leaf further down the tree
		inheritanceCost := 2.0 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafAABB) + inheritanceCost
		cost2 := t.descendCost(child2, leafAABB) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}

		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}

	sibling := index

	// Splice a new parent between the sibling and its old parent
	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	t.nodes[newParent].parent = oldParent
	t.nodes[newParent].userData = nil
	t.nodes[newParent].aabb = leafAABB.Union(t.nodes[sibling].aabb)
	t.nodes[newParent].height = t.nodes[sibling].height + 1

	if oldParent != NullNode {
		if t.nodes[oldParent].child1 == sibling {
			t.nodes[oldParent].child1 = newParent
		} else {
			t.nodes[oldParent].child2 = newParent
		}
	} else {
		t.root = newParent
	}
	t.nodes[newParent].child1 = sibling
	t.nodes[newParent].child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	// Walk back up fixing heights and unions
	index = t.nodes[leaf].parent
	for index != NullNode {
		index = t.balance(index)

		child1 := t.nodes[index].child1
		child2 := t.nodes[index].child2
		assert(child1 != NullNode, "insertLeaf: missing child1")
		assert(child2 != NullNode, "insertLeaf: missing child2")

		t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		t.nodes[index].aabb = t.nodes[child1].aabb.Union(t.nodes[child2].aabb)

		index = t.nodes[index].parent
	}
}

// descendCost is the enlarged-perimeter cost of sinking the leaf into the
// given child; descending into a leaf also pays for the new internal node.
func (t *Tree) descendCost(child int, leafAABB geo.AABB) float32 {
	merged := leafAABB.Union(t.nodes[child].aabb).Perimeter()
	if t.nodes[child].isLeaf() {
		return merged
	}
	return merged - t.nodes[child].aabb.Perimeter()
}

// removeLeaf detaches the leaf, collapses its now-unary parent onto the
// sibling, and repairs the ancestors.
func (t *Tree) removeLeaf(leaf int) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	var sibling int
	if t.nodes[parent].child1 == leaf {
		sibling = t.nodes[parent].child2
	} else {
		sibling = t.nodes[parent].child1
	}

	if grandParent != NullNode {
		// Replace the parent with the sibling
		if t.nodes[grandParent].child1 == parent {
			t.nodes[grandParent].child1 = sibling
		} else {
			t.nodes[grandParent].child2 = sibling
		}
		t.nodes[sibling].parent = grandParent
		t.freeNode(parent)

		// Adjust ancestor bounds
		index := grandParent
		for index != NullNode {
			index = t.balance(index)

			child1 := t.nodes[index].child1
			child2 := t.nodes[index].child2

			t.nodes[index].aabb = t.nodes[child1].aabb.Union(t.nodes[child2].aabb)
			t.nodes[index].height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)

			index = t.nodes[index].parent
		}
	} else {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		t.freeNode(parent)
	}
}

// ShiftOrigin translates every stored AABB by -newOrigin, for callers that
// re-center large worlds around the area of interest
func (t *Tree) ShiftOrigin(newOrigin mgl32.Vec2) {
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		t.nodes[i].aabb.Min = t.nodes[i].aabb.Min.Sub(newOrigin)
		t.nodes[i].aabb.Max = t.nodes[i].aabb.Max.Sub(newOrigin)
	}
}
