package walker

import (
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// workItem is one position awaiting classification: a candidate payload
// value at path inside containerID's value, alongside the matching
// current node value and edge-map subtree.
type workItem struct {
	ContainerID nodeid.NodeId
	Path        nodeid.Path
	Payload     value.Value
	NodeValue   value.Value
	EdgeMap     *edgemap.Map
}

// Walk performs the structural co-traversal described in section 4.2.
//
// visitRoot forces classification of payload itself (used when a nested
// walk's target might itself turn out to be an entity reference or an
// array, per rule 1's note); when false, only payload's children are
// classified, which is correct both for the top-level call (the root
// container's own value is never diffed against the query's payload
// wholesale) and for rule 2's nested walk into a newly identified entity
// (whose own identity was already resolved by the caller).
func Walk(containerID nodeid.NodeId, payload, nodeValue value.Value, em *edgemap.Map, visitRoot bool, vars *value.Object, eff Effects) error {
	q := newWorkQueue(64)

	if visitRoot {
		// Path: nodeid.Path{} (non-nil, zero-length) — a *defined* root
		// position, not the "path=undefined" of a parameterized edge.
		q.push(workItem{ContainerID: containerID, Path: nodeid.Path{}, Payload: payload, NodeValue: nodeValue, EdgeMap: em})
	} else {
		enqueueChildren(q, containerID, nil, payload, nodeValue, em)
	}

	for !q.empty() {
		if err := classify(q.pop(), vars, eff, q); err != nil {
			return err
		}
	}
	return nil
}

func classify(item workItem, vars *value.Object, eff Effects, q *workQueue) error {
	// Rule 1: parameterized edge.
	if item.EdgeMap != nil && item.EdgeMap.Parameterized {
		handleParameterizedEdge(item, vars, eff, q)
		return nil
	}

	// Rule 2: entity reference.
	if obj, ok := item.Payload.(*value.Object); ok && obj != nil {
		handled, err := handleEntityReference(item, obj, eff, q)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}

	// Rule 3: array.
	if arr, ok := item.Payload.(*value.Array); ok {
		handleArray(item, arr, eff, q)
		return nil
	}

	// Rule 4: scalar.
	if isScalar(item.Payload) {
		if !value.Equal(item.Payload, item.NodeValue) {
			eff.SetValue(item.ContainerID, item.Path, item.Payload)
		}
		return nil
	}

	// Rule 5: otherwise — continue descent (e.g. a plain object with no
	// identity, or an Undefined/Null payload position with children in
	// the edge map describing deeper parameterized fields that a later
	// merge might populate).
	enqueueChildren(q, item.ContainerID, item.Path, item.Payload, item.NodeValue, item.EdgeMap)
	return nil
}

func handleParameterizedEdge(item workItem, vars *value.Object, eff Effects, q *workQueue) {
	em := item.EdgeMap
	edgeArgs := edgemap.Expand(em.Args, vars)

	edgeID, err := nodeid.ParameterizedID(item.ContainerID, item.Path, edgeArgs)
	if err != nil {
		// The path or arguments have no canonical JSON encoding, so no
		// id can be built; drop this subtree rather than propagate a
		// panic out of a pure traversal helper.
		return
	}

	eff.EnsureParameterizedEdge(item.ContainerID, edgeID)

	current := eff.CurrentValue(edgeID)
	// The nested walk may reclassify payload as an entity reference or
	// array, so it is pushed through classify() again (visitRoot
	// semantics), but with Parameterized cleared so this exact rule
	// cannot re-fire on the same position forever.
	childEdgeMap := &edgemap.Map{Fields: em.Fields}
	q.push(workItem{ContainerID: edgeID, Path: nodeid.Path{}, Payload: item.Payload, NodeValue: current, EdgeMap: childEdgeMap})
}

// handleEntityReference returns handled=true if item.Payload was classified
// as an entity reference (whether or not an edit was actually needed),
// meaning the caller should stop descending this subtree. A non-nil error
// aborts the walk (section 7, "Identity violation").
func handleEntityReference(item workItem, obj *value.Object, eff Effects, q *workQueue) (handled bool, err error) {
	nextID, hasNext := eff.EntityIdForNode(obj)
	prevID, hasPrev := eff.EntityIdForNode(item.NodeValue)

	if !hasNext && hasPrev {
		// Payload omits the id but the holder already points at a known
		// entity: merging into it is permitted (rule 2).
		nextID, hasNext = prevID, true
	}

	if !hasNext && !hasPrev {
		return false, nil
	}

	changed := hasPrev != hasNext || prevID != nextID
	if changed {
		if hasPrev && hasNext {
			// Both positions resolve to a concrete entity and they
			// disagree: the holder is being pointed at a different
			// entity than the one it already held.
			if err := eff.ValidateIdentityChange(item.ContainerID, item.Path, prevID, nextID); err != nil {
				return true, err
			}
		}
		eff.ReferenceEdit(ReferenceEdit{
			ContainerID: item.ContainerID,
			Path:        item.Path,
			PrevNodeID:  prevID,
			HasPrev:     hasPrev,
			NextNodeID:  nextID,
			HasNext:     hasNext,
		})
	}

	if hasNext {
		current := eff.CurrentValue(nextID)
		enqueueChildren(q, nextID, nil, obj, current, item.EdgeMap)
	}

	return true, nil
}

func handleArray(item workItem, arr *value.Array, eff Effects, q *workQueue) {
	nodeValue := item.NodeValue
	curArr, curIsArray := nodeValue.(*value.Array)

	if !curIsArray || curArr.Len() != arr.Len() {
		// The replacement has the payload's length: it shares the old
		// array's prefix and holds Undefined in every slot past it.
		replacement := &value.Array{Items: make([]value.Value, arr.Len())}
		for i := range replacement.Items {
			if curIsArray && i < curArr.Len() {
				replacement.Items[i] = curArr.Items[i]
			} else {
				replacement.Items[i] = value.Undefined{}
			}
		}
		eff.SetValue(item.ContainerID, item.Path, replacement)
		nodeValue = replacement
	}

	enqueueChildren(q, item.ContainerID, item.Path, arr, nodeValue, item.EdgeMap)
}

func isScalar(v value.Value) bool {
	switch v.(type) {
	case value.Null, value.Bool, value.Int, value.Float, value.Str, value.Undefined, nil:
		return true
	default:
		return false
	}
}

// enqueueChildren pushes one workItem per structural child of payloadVal:
// one per field for an object, one per index for an array. Arrays share
// the same edge-map subtree across every element (a query selects the
// same fields for every item of a list).
func enqueueChildren(q *workQueue, containerID nodeid.NodeId, basePath nodeid.Path, payloadVal, nodeVal value.Value, em *edgemap.Map) {
	switch p := payloadVal.(type) {
	case *value.Object:
		if p == nil {
			return
		}
		keys := p.SortedKeys()
		nodeObj, _ := nodeVal.(*value.Object)
		for _, key := range keys {
			childPath := appendStep(basePath, nodeid.Field(key))
			var childNode value.Value = value.Undefined{}
			if nodeObj != nil {
				childNode = nodeObj.Get(key)
			}
			q.push(workItem{
				ContainerID: containerID,
				Path:        childPath,
				Payload:     p.Get(key),
				NodeValue:   childNode,
				EdgeMap:     em.FieldAt(key),
			})
		}
	case *value.Array:
		if p == nil {
			return
		}
		nodeArr, _ := nodeVal.(*value.Array)
		for i := 0; i < p.Len(); i++ {
			childPath := appendStep(basePath, nodeid.Index(i))
			var childNode value.Value = value.Undefined{}
			if nodeArr != nil {
				childNode = nodeArr.At(i)
			}
			q.push(workItem{
				ContainerID: containerID,
				Path:        childPath,
				Payload:     p.At(i),
				NodeValue:   childNode,
				EdgeMap:     em,
			})
		}
	default:
		// Scalars, Null, and Undefined have no children.
	}
}

func appendStep(base nodeid.Path, step nodeid.PathStep) nodeid.Path {
	out := make(nodeid.Path, len(base)+1)
	copy(out, base)
	out[len(base)] = step
	return out
}
