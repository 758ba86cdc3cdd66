// Package plume is a broad-phase spatial index for 2D rigid-body physics.
// It narrows the pairwise overlap problem among moving bounding boxes down
// to a small candidate set for exact narrow-phase testing, using a
// self-balancing dynamic AABB tree with margin and displacement-predicted
// fattening so that small motions do not restructure the tree.
//
// The broad phase never performs exact geometric intersection; it only
// reasons about fattened AABBs and the opaque per-proxy payload supplied
// by the caller. It does not persist pairs between update cycles: tracking
// which pairs are new, still active or ended is the caller's job.
package plume

import (
	"sort"

	"github.com/akmonengine/plume/dtree"
	"github.com/akmonengine/plume/geo"
	"github.com/go-gl/mathgl/mgl32"
)

// NullProxy denotes the absence of a proxy; it must never be dereferenced
const NullProxy = dtree.NullNode

// PairCallback receives one normalized candidate pair per call during
// UpdatePairs. It cannot abort the emission.
type PairCallback func(proxyIdA, proxyIdB int)

// BroadPhase composes the dynamic tree with proxy bookkeeping: the move
// set of proxies touched since the last update cycle and the deduplicated
// pair buffer flushed to the caller once per cycle.
//
// All methods must be called from a single goroutine; there is no internal
// locking, and mutating the tree from inside a Query or RayCast callback
// is undefined.
type BroadPhase struct {
	tree *dtree.Tree

	proxyCount int

	moveBuffer []int
	pairBuffer []Pair

	queryProxyId int
}

// NewBroadPhase creates an empty broad phase with the given tuning.
// The zero Config selects the defaults.
func NewBroadPhase(cfg Config) *BroadPhase {
	return &BroadPhase{
		tree:         dtree.New(cfg),
		moveBuffer:   make([]int, 0, 16),
		pairBuffer:   make([]Pair, 0, 16),
		queryProxyId: NullProxy,
	}
}

// CreateProxy inserts a proxy for the given tight AABB and opaque payload.
// The stored AABB is fattened, the proxy joins the move set, and its id is
// returned. Freed ids are reused deterministically. No pairs are reported
// until the next UpdatePairs.
func (bp *BroadPhase) CreateProxy(aabb geo.AABB, userData any) int {
	proxyId := bp.tree.Insert(aabb, userData)
	bp.proxyCount++
	bp.bufferMove(proxyId)
	return proxyId
}

// DestroyProxy removes the proxy from the tree and the move set and frees
// its id for reuse. It panics if the id is not live. Pairs already
// delivered in a prior flush are not retracted; the caller drops stale
// contacts itself.
func (bp *BroadPhase) DestroyProxy(proxyId int) {
	// Remove asserts liveness; the facade state must not change on a
	// contract-violating call.
	bp.tree.Remove(proxyId)
	bp.unBufferMove(proxyId)
	bp.proxyCount--
}

// MoveProxy updates the proxy's tight AABB with the expected displacement
// for predictive fattening. The proxy always joins the move set, whether
// or not the tree had to relocate it, so the next UpdatePairs re-queries
// it. It panics if the id is not live.
func (bp *BroadPhase) MoveProxy(proxyId int, aabb geo.AABB, displacement mgl32.Vec2) {
	bp.tree.Move(proxyId, aabb, displacement)
	bp.bufferMove(proxyId)
}

// TouchProxy puts the proxy in the move set without changing its AABB,
// forcing a re-query on the next cycle. Used when non-geometric state
// changed in a way that may produce new pairs.
func (bp *BroadPhase) TouchProxy(proxyId int) {
	bp.bufferMove(proxyId)
}

// GetFatAABB returns the fattened AABB of a live proxy
func (bp *BroadPhase) GetFatAABB(proxyId int) geo.AABB {
	return bp.tree.FatAABB(proxyId)
}

// GetUserData returns the payload attached at CreateProxy, or nil for an
// id that is not live
func (bp *BroadPhase) GetUserData(proxyId int) any {
	return bp.tree.UserData(proxyId)
}

// TestOverlap compares the fat AABBs of two live proxies
func (bp *BroadPhase) TestOverlap(proxyIdA, proxyIdB int) bool {
	return bp.tree.FatAABB(proxyIdA).Overlaps(bp.tree.FatAABB(proxyIdB))
}

// GetProxyCount returns the number of live proxies
func (bp *BroadPhase) GetProxyCount() int {
	return bp.proxyCount
}

// GetTreeHeight forwards to the tree, for diagnostics
func (bp *BroadPhase) GetTreeHeight() int {
	return bp.tree.Height()
}

// GetTreeBalance forwards to the tree, for diagnostics
func (bp *BroadPhase) GetTreeBalance() int {
	return bp.tree.MaxBalance()
}

// GetTreeQuality forwards to the tree, for diagnostics
func (bp *BroadPhase) GetTreeQuality() float32 {
	return bp.tree.AreaRatio()
}

// Query enumerates the proxies whose fat AABB overlaps aabb.
// Returning false from the callback stops the enumeration.
func (bp *BroadPhase) Query(aabb geo.AABB, visit dtree.QueryCallback) {
	bp.tree.Query(aabb, visit)
}

// RayCast casts the input segment through the tree, invoking the callback
// for each proxy whose fat AABB the clipped segment may hit
func (bp *BroadPhase) RayCast(input geo.RayCastInput, visit dtree.RayCastCallback) {
	bp.tree.RayCast(input, visit)
}

// ShiftOrigin translates every stored AABB by -newOrigin
func (bp *BroadPhase) ShiftOrigin(newOrigin mgl32.Vec2) {
	bp.tree.ShiftOrigin(newOrigin)
}

// UpdatePairs re-queries the tree for every proxy in the move set, emits
// each unique candidate pair exactly once through the callback, and clears
// the move set. Candidates are recomputed from scratch for the dirty
// proxies on every cycle; a stationary proxy never regenerates a pair with
// a stationary neighbor.
func (bp *BroadPhase) UpdatePairs(emit PairCallback) {
	bp.pairBuffer = bp.pairBuffer[:0]

	// Query the tree with the fat AABB of every moved proxy so we do not
	// fail to create a pair that may touch later
	for _, proxyId := range bp.moveBuffer {
		if proxyId == NullProxy {
			continue
		}
		bp.queryProxyId = proxyId
		bp.tree.Query(bp.tree.FatAABB(proxyId), bp.onQueryHit)
	}
	bp.queryProxyId = NullProxy

	// Clear the move set
	for _, proxyId := range bp.moveBuffer {
		if proxyId == NullProxy {
			continue
		}
		bp.tree.ClearMoved(proxyId)
	}
	bp.moveBuffer = bp.moveBuffer[:0]

	// Sort to expose duplicates, then send unique pairs to the client
	sort.Sort(byPairOrder(bp.pairBuffer))

	i := 0
	for i < len(bp.pairBuffer) {
		primary := bp.pairBuffer[i]
		emit(primary.A, primary.B)
		i++

		for i < len(bp.pairBuffer) && bp.pairBuffer[i] == primary {
			i++
		}
	}
}

// onQueryHit collects candidate pairs during UpdatePairs
func (bp *BroadPhase) onQueryHit(proxyId int) bool {
	// A proxy cannot form a pair with itself
	if proxyId == bp.queryProxyId {
		return true
	}

	// When both proxies are in the move set the pair would be found
	// twice; only report it while querying the smaller id
	if proxyId < bp.queryProxyId && bp.tree.WasMoved(proxyId) {
		return true
	}

	bp.pairBuffer = append(bp.pairBuffer, MakePair(proxyId, bp.queryProxyId))
	return true
}

// bufferMove adds the proxy to the move set; membership is a set, a proxy
// already buffered is not added twice
func (bp *BroadPhase) bufferMove(proxyId int) {
	if bp.tree.WasMoved(proxyId) {
		return
	}
	bp.tree.MarkMoved(proxyId)
	bp.moveBuffer = append(bp.moveBuffer, proxyId)
}

// unBufferMove withdraws the proxy from the move set ahead of destruction
func (bp *BroadPhase) unBufferMove(proxyId int) {
	for i := range bp.moveBuffer {
		if bp.moveBuffer[i] == proxyId {
			bp.moveBuffer[i] = NullProxy
		}
	}
}
