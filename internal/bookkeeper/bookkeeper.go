package bookkeeper

import (
	"log/slog"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/pathset"
	"github.com/normwrite/normcache/internal/value"
	"github.com/normwrite/normcache/internal/walker"
)

// EdgeSymmetryError is raised in strict mode when an edge removal finds no
// matching edge on the other side (section 7, "Edge-symmetry
// corruption").
type EdgeSymmetryError struct {
	Holder nodeid.NodeId
	Target nodeid.NodeId
	Path   nodeid.Path
}

func (e *EdgeSymmetryError) Error() string {
	return "bookkeeper: no matching edge from " + string(e.Target) + " back to " + string(e.Holder) + " to remove"
}

// Outcome reports the orphan-set adjustments one Apply call produces.
type Outcome struct {
	// NewOrphans are nodes whose inbound edge list became empty as a
	// result of this edit.
	NewOrphans []nodeid.NodeId
	// Republished are nodes that gained an inbound edge and therefore
	// must be removed from any orphan set they were previously added to.
	Republished []nodeid.NodeId
}

// Ensure returns the staged record for id, creating and staging an empty
// one on first touch. The editor owns the staged table; the bookkeeper
// only ever reaches it through this seam, keeping the dependency order
// (section 2) leaf-first: bookkeeper depends on graph.Record, not on
// internal/cache.
type Ensure func(id nodeid.NodeId) *graph.Record

// Apply performs the reference bookkeeper's work for a single reference
// edit (section 4.3): writing the target's current value into the holder
// at path, removing the stale edge pair, adding the new one, and
// reporting orphan-set adjustments.
func Apply(edit walker.ReferenceEdit, ensure Ensure, strict bool, logger *slog.Logger) (Outcome, error) {
	var out Outcome

	holder := ensure(edit.ContainerID)

	var target value.Value = value.Null{}
	if edit.HasNext {
		target = ensure(edit.NextNodeID).Value
	}
	holder.Value = pathset.DeepSet(holder.Value, edit.Path, target)

	if edit.HasPrev {
		prev := ensure(edit.PrevNodeID)
		holder.RemoveOutbound(graph.Edge{Other: edit.PrevNodeID, Path: edit.Path})
		removed, empty := prev.RemoveInbound(graph.Edge{Other: edit.ContainerID, Path: edit.Path})
		if !removed {
			if strict {
				return out, &EdgeSymmetryError{Holder: edit.ContainerID, Target: edit.PrevNodeID, Path: edit.Path}
			}
			if logger != nil {
				logger.Warn("bookkeeper: tolerated missing inbound edge during removal",
					"holder", edit.ContainerID, "target", edit.PrevNodeID)
			}
		}
		if empty {
			out.NewOrphans = append(out.NewOrphans, edit.PrevNodeID)
		}
	}

	if edit.HasNext {
		next := ensure(edit.NextNodeID)
		holder.AddOutbound(graph.Edge{Other: edit.NextNodeID, Path: edit.Path})
		next.AddInbound(graph.Edge{Other: edit.ContainerID, Path: edit.Path})
		out.Republished = append(out.Republished, edit.NextNodeID)
	}

	return out, nil
}
