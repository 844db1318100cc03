package walker

import (
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// ReferenceEdit is the deferred output of classification rule 2 (entity
// reference): a change of which node a holder's path points at, to be
// applied by the reference bookkeeper in phase 2. HasPrev/HasNext
// distinguish "no entity here before/after" from an id that happens to be
// the empty string.
type ReferenceEdit struct {
	ContainerID nodeid.NodeId
	Path        nodeid.Path
	PrevNodeID  nodeid.NodeId
	HasPrev     bool
	NextNodeID  nodeid.NodeId
	HasNext     bool
}

// Effects is the sink the walker drives while classifying a payload. The
// editor implements it so that only internal/cache ever touches staged
// node state directly; the walker itself holds no mutable graph state.
type Effects interface {
	// EntityIdForNode is the injected identity function (section 4.1):
	// returns the entity id for a mapping value, or ok=false for an
	// inline value or a non-object.
	EntityIdForNode(v value.Value) (id nodeid.NodeId, ok bool)

	// CurrentValue returns the current staged-or-parent value for id, or
	// Undefined if id has never been seen.
	CurrentValue(id nodeid.NodeId) value.Value

	// SetValue performs an immediate (phase 1) staged write of v at path
	// inside containerID's value — used for scalar edits and
	// array-length adjustments, never for entity references.
	SetValue(containerID nodeid.NodeId, path nodeid.Path, v value.Value)

	// ReferenceEdit records a deferred reference edit for phase 2.
	ReferenceEdit(edit ReferenceEdit)

	// EnsureParameterizedEdge idempotently adds the path=undefined edge
	// pair between containerID and edgeID (classification rule 1).
	EnsureParameterizedEdge(containerID, edgeID nodeid.NodeId)

	// ValidateIdentityChange is consulted whenever classification rule 2
	// finds that a holder position already pointed at a concrete entity
	// and the payload now resolves to a different concrete entity at
	// that same position (section 7, "Identity violation"). Returning a
	// non-nil error aborts the walk; strict configurations do so,
	// tolerant ones return nil and let the reference edit proceed.
	ValidateIdentityChange(containerID nodeid.NodeId, path nodeid.Path, prevID, nextID nodeid.NodeId) error
}
