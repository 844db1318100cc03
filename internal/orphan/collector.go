package orphan

import (
	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
)

// Ensure returns the staged record for id; see bookkeeper.Ensure for the
// same seam used between phases.
type Ensure func(id nodeid.NodeId) *graph.Record

// Sink receives the side effects of collection: which nodes were deleted
// (tombstoned and therefore also edited, per section 4.1's definition of
// editedNodeIds), and is consulted to exempt root ids from deletion
// (invariant 2: roots are never orphaned even with an empty inbound set).
type Sink interface {
	IsRoot(id nodeid.NodeId) bool
	Tombstone(id nodeid.NodeId)
}

// Run tombstones every node transitively unreachable starting from
// initial, per section 4.5.
func Run(initial []nodeid.NodeId, ensure Ensure, sink Sink) {
	queue := make([]nodeid.NodeId, len(initial))
	copy(queue, initial)
	visited := make(map[nodeid.NodeId]bool, len(initial))

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if visited[id] || sink.IsRoot(id) {
			continue
		}
		visited[id] = true

		rec := ensure(id)
		if rec == nil {
			continue
		}
		if len(rec.Inbound) > 0 {
			// Re-published since being enqueued (e.g. a later edit in
			// the same merge added a new inbound edge) — no longer an
			// orphan.
			continue
		}

		sink.Tombstone(id)

		for _, e := range rec.Outbound {
			target := ensure(e.Other)
			if target == nil {
				continue
			}
			_, empty := target.RemoveInbound(graph.Edge{Other: id, Path: e.Path})
			if empty {
				queue = append(queue, e.Other)
			}
		}
	}
}
