package dtree

// MaxBalanceBound is the sibling height difference the rotation heuristic
// keeps the tree within. Rotations only fire when a node's children differ
// in height by more than one, so remove-and-reinsert churn can leave a
// difference of two; the tree is not strictly AVL-balanced.
const MaxBalanceBound = 2

// balance performs a left or right rotation if node iA is imbalanced and
// returns the index of the subtree's new root. Heights and unions of the
// rotated nodes are repaired here; ancestors are the caller's problem.
func (t *Tree) balance(iA int) int {
	assert(iA != NullNode, "balance: null node")

	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB := A.child1
	iC := A.child2
	assert(0 <= iB && iB < len(t.nodes), "balance: child1 out of range")
	assert(0 <= iC && iC < len(t.nodes), "balance: child2 out of range")

	B := &t.nodes[iB]
	C := &t.nodes[iC]

	balance := C.height - B.height

	// Rotate C up
	if balance > 1 {
		iF := C.child1
		iG := C.child2
		F := &t.nodes[iF]
		G := &t.nodes[iG]

		// Swap A and C
		C.child1 = iA
		C.parent = A.parent
		A.parent = iC

		// A's old parent should point to C
		if C.parent != NullNode {
			if t.nodes[C.parent].child1 == iA {
				t.nodes[C.parent].child1 = iC
			} else {
				assert(t.nodes[C.parent].child2 == iA, "balance: broken parent link")
				t.nodes[C.parent].child2 = iC
			}
		} else {
			t.root = iC
		}

		// Rotate the taller grandchild up
		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.aabb = B.aabb.Union(G.aabb)
			C.aabb = A.aabb.Union(F.aabb)

			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.aabb = B.aabb.Union(F.aabb)
			C.aabb = A.aabb.Union(G.aabb)

			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}

		return iC
	}

	// Rotate B up
	if balance < -1 {
		iD := B.child1
		iE := B.child2
		D := &t.nodes[iD]
		E := &t.nodes[iE]

		// Swap A and B
		B.child1 = iA
		B.parent = A.parent
		A.parent = iB

		// A's old parent should point to B
		if B.parent != NullNode {
			if t.nodes[B.parent].child1 == iA {
				t.nodes[B.parent].child1 = iB
			} else {
				assert(t.nodes[B.parent].child2 == iA, "balance: broken parent link")
				t.nodes[B.parent].child2 = iB
			}
		} else {
			t.root = iB
		}

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.aabb = C.aabb.Union(E.aabb)
			B.aabb = A.aabb.Union(D.aabb)

			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.aabb = C.aabb.Union(D.aabb)
			B.aabb = A.aabb.Union(E.aabb)

			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}

		return iB
	}

	return iA
}
