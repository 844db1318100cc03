package harness

import (
	"sort"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// snapshotToValue builds a canonical, content-addressed representation of
// a committed snapshot: sorted root ids plus every node's value and edge
// multisets, sorted by node id and by edge target. This is what golden
// files compare against — not Go struct layout, which is not stable
// across refactors.
func snapshotToValue(snap *graph.Snapshot) *value.Object {
	ids := make([]string, 0, snap.Len())
	snap.Range(func(id nodeid.NodeId, _ *graph.Record) bool {
		ids = append(ids, string(id))
		return true
	})
	sort.Strings(ids)

	nodes := value.NewObject()
	for _, idStr := range ids {
		id := nodeid.NodeId(idStr)
		rec, _ := snap.GetSnapshot(id)
		nodes = nodes.WithField(idStr, recordToValue(rec))
	}

	roots := snap.Roots()
	rootIds := make([]string, 0, len(roots))
	for id := range roots {
		rootIds = append(rootIds, string(id))
	}
	sort.Strings(rootIds)
	rootItems := make([]value.Value, len(rootIds))
	for i, id := range rootIds {
		rootItems[i] = value.Str(id)
	}

	return value.NewObject().
		WithField("roots", value.NewArray(rootItems...)).
		WithField("nodes", nodes)
}

func recordToValue(rec *graph.Record) value.Value {
	return value.NewObject().
		WithField("value", rec.Value).
		WithField("inbound", edgesToValue(rec.Inbound)).
		WithField("outbound", edgesToValue(rec.Outbound))
}

func edgesToValue(edges []graph.Edge) *value.Array {
	sorted := append([]graph.Edge(nil), edges...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Other != sorted[j].Other {
			return sorted[i].Other < sorted[j].Other
		}
		return pathToValue(sorted[i].Path).Len() < pathToValue(sorted[j].Path).Len()
	})
	items := make([]value.Value, len(sorted))
	for i, e := range sorted {
		entry := value.NewObject().WithField("other", value.Str(string(e.Other)))
		if e.Path == nil {
			entry = entry.WithField("path", value.Null{})
		} else {
			entry = entry.WithField("path", pathToValue(e.Path))
		}
		items[i] = entry
	}
	return value.NewArray(items...)
}

func pathToValue(p nodeid.Path) *value.Array {
	items := make([]value.Value, len(p))
	for i, step := range p {
		if step.IsIndex {
			items[i] = value.Int(step.Index)
		} else {
			items[i] = value.Str(step.Key)
		}
	}
	return value.NewArray(items...)
}

// RunWithGolden runs a scenario and compares its final snapshot against a
// golden file at testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	snap, result, err := runAndCapture(scenario)
	if err != nil {
		return nil, err
	}

	data, err := value.MarshalCanonical(snapshotToValue(snap))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return result, nil
}

// runAndCapture runs Run but also hands back the final snapshot, which
// Run itself does not expose on Result (Result only carries pass/fail and
// the step trace — the snapshot is a harness-internal detail callers
// outside this package have no use for except golden comparison).
func runAndCapture(scenario *Scenario) (*graph.Snapshot, *Result, error) {
	compiled, err := compileQueries(scenario.Queries)
	if err != nil {
		return nil, nil, err
	}

	rt := &runtime{scenario: scenario, resolved: make(map[string]nodeid.NodeId)}
	result := NewResult()

	snap, err := runSteps(rt, scenario.Steps, compiled, result)
	if err != nil {
		return nil, nil, err
	}

	for _, msg := range evaluateAssertions(rt, snap, collectEdited(result), scenario.Assertions) {
		result.AddError(msg)
	}

	return snap, result, nil
}

func collectEdited(result *Result) map[nodeid.NodeId]bool {
	out := make(map[nodeid.NodeId]bool)
	for _, t := range result.Trace {
		for _, id := range t.EditedNodeIds {
			out[id] = true
		}
	}
	return out
}
