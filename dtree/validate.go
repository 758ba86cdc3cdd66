package dtree

import "github.com/chewxy/math32"

// Height returns the height of the root, 0 for an empty tree
func (t *Tree) Height() int {
	if t.root == NullNode {
		return 0
	}
	return t.nodes[t.root].height
}

// MaxBalance returns the largest height difference between the two
// children of any internal node
func (t *Tree) MaxBalance() int {
	maxBalance := 0
	for i := range t.nodes {
		n := &t.nodes[i]
		if n.height <= 1 {
			continue
		}

		assert(!n.isLeaf(), "MaxBalance: leaf with height > 1")

		balance := t.nodes[n.child2].height - t.nodes[n.child1].height
		if balance < 0 {
			balance = -balance
		}
		maxBalance = max(maxBalance, balance)
	}

	return maxBalance
}

// AreaRatio is the total node perimeter divided by the root perimeter, a
// quality metric: lower means tighter internal bounds
func (t *Tree) AreaRatio() float32 {
	if t.root == NullNode {
		return 0.0
	}

	rootArea := t.nodes[t.root].aabb.Perimeter()

	totalArea := float32(0.0)
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			// Free slot
			continue
		}
		totalArea += t.nodes[i].aabb.Perimeter()
	}

	return totalArea / rootArea
}

// computeHeight recomputes a subtree's height from scratch, ignoring the
// cached values; used to cross-check them
func (t *Tree) computeHeight(id int) int {
	assert(0 <= id && id < len(t.nodes), "computeHeight: id out of range")
	n := &t.nodes[id]

	if n.isLeaf() {
		return 0
	}

	return 1 + max(t.computeHeight(n.child1), t.computeHeight(n.child2))
}

// Validate panics if any structural or metric invariant is broken:
// parent/child links must be mutual, every internal AABB must equal the
// union of its children, and cached heights must match recomputation.
func (t *Tree) Validate() {
	t.validateStructure(t.root)
	t.validateMetrics(t.root)

	freeCount := 0
	freeIndex := t.freeList
	for freeIndex != NullNode {
		assert(0 <= freeIndex && freeIndex < len(t.nodes), "Validate: free list escaped arena")
		freeIndex = t.nodes[freeIndex].next
		freeCount++
	}

	assert(t.Height() == t.computeHeight0(), "Validate: cached root height is stale")
	assert(t.nodeCount+freeCount == len(t.nodes), "Validate: arena leak")
}

func (t *Tree) computeHeight0() int {
	if t.root == NullNode {
		return 0
	}
	return t.computeHeight(t.root)
}

func (t *Tree) validateStructure(index int) {
	if index == NullNode {
		return
	}

	if index == t.root {
		assert(t.nodes[index].parent == NullNode, "validateStructure: root has a parent")
	}

	n := &t.nodes[index]
	child1 := n.child1
	child2 := n.child2

	if n.isLeaf() {
		assert(child1 == NullNode, "validateStructure: leaf with child1")
		assert(child2 == NullNode, "validateStructure: leaf with child2")
		assert(n.height == 0, "validateStructure: leaf height != 0")
		return
	}

	assert(0 <= child1 && child1 < len(t.nodes), "validateStructure: child1 out of range")
	assert(0 <= child2 && child2 < len(t.nodes), "validateStructure: child2 out of range")

	assert(t.nodes[child1].parent == index, "validateStructure: child1 parent link broken")
	assert(t.nodes[child2].parent == index, "validateStructure: child2 parent link broken")

	t.validateStructure(child1)
	t.validateStructure(child2)
}

func (t *Tree) validateMetrics(index int) {
	if index == NullNode {
		return
	}

	n := &t.nodes[index]
	child1 := n.child1
	child2 := n.child2

	if n.isLeaf() {
		return
	}

	height := 1 + max(t.nodes[child1].height, t.nodes[child2].height)
	assert(n.height == height, "validateMetrics: stale height")

	union := t.nodes[child1].aabb.Union(t.nodes[child2].aabb)
	assert(union.Min == n.aabb.Min, "validateMetrics: AABB is not the union of children (lower)")
	assert(union.Max == n.aabb.Max, "validateMetrics: AABB is not the union of children (upper)")

	t.validateMetrics(child1)
	t.validateMetrics(child2)
}

// RebuildBottomUp discards the internal nodes and rebuilds an optimal tree
// by greedily pairing the cheapest unions. O(n²), for occasional use when
// incremental updates have degraded quality.
func (t *Tree) RebuildBottomUp() {
	leaves := make([]int, 0, t.nodeCount)

	// Collect leaves, free the internal nodes
	for i := range t.nodes {
		if t.nodes[i].height < 0 {
			continue
		}
		if t.nodes[i].isLeaf() {
			t.nodes[i].parent = NullNode
			leaves = append(leaves, i)
		} else {
			t.freeNode(i)
		}
	}

	if len(leaves) == 0 {
		t.root = NullNode
		return
	}

	count := len(leaves)
	for count > 1 {
		minCost := float32(math32.MaxFloat32)
		iMin, jMin := -1, -1

		for i := 0; i < count; i++ {
			aabbI := t.nodes[leaves[i]].aabb
			for j := i + 1; j < count; j++ {
				cost := aabbI.Union(t.nodes[leaves[j]].aabb).Perimeter()
				if cost < minCost {
					iMin, jMin = i, j
					minCost = cost
				}
			}
		}

		index1 := leaves[iMin]
		index2 := leaves[jMin]

		parent := t.allocateNode()
		t.nodes[parent].child1 = index1
		t.nodes[parent].child2 = index2
		t.nodes[parent].height = 1 + max(t.nodes[index1].height, t.nodes[index2].height)
		t.nodes[parent].aabb = t.nodes[index1].aabb.Union(t.nodes[index2].aabb)
		t.nodes[parent].parent = NullNode

		t.nodes[index1].parent = parent
		t.nodes[index2].parent = parent

		leaves[jMin] = leaves[count-1]
		leaves[iMin] = parent
		count--
	}

	t.root = leaves[0]
	t.Validate()
}
