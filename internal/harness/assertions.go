package harness

import (
	"fmt"
	"sort"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// evaluateAssertions checks every assertion against the final snapshot,
// returning one human-readable message per failure.
func evaluateAssertions(rt *runtime, snap *graph.Snapshot, edited map[nodeid.NodeId]bool, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(rt, snap, edited, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(rt *runtime, snap *graph.Snapshot, edited map[nodeid.NodeId]bool, a Assertion) error {
	switch a.Type {
	case AssertNodeValue:
		return assertNodeValue(rt, snap, a)
	case AssertNodeMissing:
		return assertNodeMissing(rt, snap, a)
	case AssertNodeIdentity:
		return assertNodeIdentity(rt, snap, a)
	case AssertOutboundEdge:
		return assertEdge(rt, snap, a, true)
	case AssertInboundEdge:
		return assertEdge(rt, snap, a, false)
	case AssertRoots:
		return assertRoots(rt, snap, a)
	case AssertEditedNodeIds:
		return assertEditedNodeIds(rt, edited, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertNodeValue(rt *runtime, snap *graph.Snapshot, a Assertion) error {
	id, err := rt.resolveNode(a.Node)
	if err != nil {
		return err
	}
	actual, ok := snap.Get(id)
	if !ok {
		return fmt.Errorf("node %q (%s) does not exist", a.Node, id)
	}
	expected, err := toArgsObject(a.Equals)
	if err != nil {
		return fmt.Errorf("equals: %w", err)
	}
	if !valueSubsetMatch(expected, actual) {
		return fmt.Errorf("node %q (%s) value = %s, want subset %s", a.Node, id, describeValue(actual), describeValue(expected))
	}
	return nil
}

func assertNodeMissing(rt *runtime, snap *graph.Snapshot, a Assertion) error {
	id, err := rt.resolveNode(a.Node)
	if err != nil {
		return err
	}
	if _, ok := snap.Get(id); ok {
		return fmt.Errorf("node %q (%s) still exists, want it collected as an orphan", a.Node, id)
	}
	return nil
}

func assertNodeIdentity(rt *runtime, snap *graph.Snapshot, a Assertion) error {
	idA, err := rt.resolveNode(a.Node)
	if err != nil {
		return err
	}
	idB, err := rt.resolveNode(a.Other)
	if err != nil {
		return err
	}
	valA, okA := snap.Get(idA)
	valB, okB := snap.Get(idB)
	if !okA || !okB {
		return fmt.Errorf("node %q (%s) exists=%v, node %q (%s) exists=%v", a.Node, idA, okA, a.Other, idB, okB)
	}
	if !value.Identical(valA, valB) {
		return fmt.Errorf("node %q (%s) and node %q (%s) do not hold the same value object", a.Node, idA, a.Other, idB)
	}
	return nil
}

func assertEdge(rt *runtime, snap *graph.Snapshot, a Assertion, outbound bool) error {
	holderID, err := rt.resolveNode(a.Node)
	if err != nil {
		return err
	}
	targetID, err := rt.resolveNode(a.To)
	if err != nil {
		return err
	}
	rec, ok := snap.GetSnapshot(holderID)
	if !ok {
		return fmt.Errorf("node %q (%s) does not exist", a.Node, holderID)
	}

	// No path and not explicitly-empty means a parameterized edge, whose
	// path is undefined (nil), per invariant 5. Explicit path (including
	// an explicitly empty one) means a direct-reference edge.
	var path nodeid.Path
	if a.Path != nil || a.ExplicitEmpty {
		path, err = toPath(a.Path)
		if err != nil {
			return err
		}
		if path == nil {
			path = nodeid.Path{}
		}
	}
	want := graph.Edge{Other: targetID, Path: path}

	edges := rec.Outbound
	label := "outbound"
	if !outbound {
		edges = rec.Inbound
		label = "inbound"
	}

	for _, e := range edges {
		if e.Equal(want) {
			return nil
		}
	}
	return fmt.Errorf("node %q (%s) has no %s edge to %q (%s) with path %v; has %v", a.Node, holderID, label, a.To, targetID, a.Path, edges)
}

func assertRoots(rt *runtime, snap *graph.Snapshot, a Assertion) error {
	want := make(map[nodeid.NodeId]bool, len(a.Nodes))
	for _, name := range a.Nodes {
		id, err := rt.resolveNode(name)
		if err != nil {
			return err
		}
		want[id] = true
	}
	got := snap.Roots()
	if !sameIdSet(want, got) {
		return fmt.Errorf("roots = %v, want %v", sortedIds(got), a.Nodes)
	}
	return nil
}

func assertEditedNodeIds(rt *runtime, edited map[nodeid.NodeId]bool, a Assertion) error {
	want := make(map[nodeid.NodeId]bool, len(a.Nodes))
	for _, name := range a.Nodes {
		id, err := rt.resolveNode(name)
		if err != nil {
			return err
		}
		want[id] = true
	}
	if !sameIdSet(want, edited) {
		return fmt.Errorf("edited node ids across all steps = %v, want %v", sortedIds(edited), a.Nodes)
	}
	return nil
}

func sameIdSet(want, got map[nodeid.NodeId]bool) bool {
	if len(want) != len(got) {
		return false
	}
	for id := range want {
		if !got[id] {
			return false
		}
	}
	return true
}

func sortedIds(m map[nodeid.NodeId]bool) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}

// valueSubsetMatch reports whether every field expected declares is
// present in actual with an equal value (recursively descending into
// nested objects so a partial object literal only constrains the fields
// it names). Arrays and scalars must match exactly; a nil/empty expected
// object always matches.
func valueSubsetMatch(expected, actual value.Value) bool {
	expObj, ok := expected.(*value.Object)
	if !ok {
		return describeValue(expected) == describeValue(actual)
	}
	actObj, ok := actual.(*value.Object)
	if !ok {
		return expObj.Len() == 0
	}
	for _, key := range expObj.SortedKeys() {
		wantVal := expObj.Get(key)
		gotVal := actObj.Get(key)
		if subObj, ok := wantVal.(*value.Object); ok {
			if !valueSubsetMatch(subObj, gotVal) {
				return false
			}
			continue
		}
		if describeValue(wantVal) != describeValue(gotVal) {
			return false
		}
	}
	return true
}

func describeValue(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", value.ToAny(v))
	}
	return string(data)
}
