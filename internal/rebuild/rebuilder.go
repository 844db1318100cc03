package rebuild

import (
	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/pathset"
)

// Ensure returns the staged record for id; see bookkeeper.Ensure for the
// same seam used between phases.
type Ensure func(id nodeid.NodeId) *graph.Record

// Run republishes every holder transitively reachable, via defined-path
// inbound edges, from editedNodeIds. It is initialized fresh for every
// merge call: rebuiltNodeIds breaks cycles within this one rebuild walk,
// seeded with editedNodeIds itself (section 4.4, "Initialized with
// editedNodeIds as both the work queue and the already-scheduled set").
func Run(editedNodeIds []nodeid.NodeId, ensure Ensure) {
	rebuilt := make(map[nodeid.NodeId]bool, len(editedNodeIds))
	queue := make([]nodeid.NodeId, len(editedNodeIds))
	copy(queue, editedNodeIds)
	for _, id := range editedNodeIds {
		rebuilt[id] = true
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		childValue := ensure(id).Value

		for _, e := range ensure(id).Inbound {
			if e.Path == nil {
				// path=undefined: a parameterized-value edge, not
				// exposed under any own-value path of the holder
				// (invariant 5) — there is nothing to deep-set.
				continue
			}
			holder := ensure(e.Other)
			holder.Value = pathset.DeepSet(holder.Value, e.Path, childValue)

			if !rebuilt[e.Other] {
				rebuilt[e.Other] = true
				queue = append(queue, e.Other)
			}
		}
	}
}
