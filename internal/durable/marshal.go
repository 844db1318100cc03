package durable

import (
	"encoding/json"
	"fmt"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// marshalValue converts a Value to canonical JSON TEXT for storage,
// mirroring internal/store/marshal.go's use of RFC 8785 canonical
// encoding for deterministic, replay-stable bytes.
func marshalValue(v value.Value) (string, error) {
	if v == nil {
		v = value.Undefined{}
	}
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses JSON TEXT back into a Value. The merge log is
// this package's own writer, so plain encoding/json decoding into `any`
// (float64 for numbers) followed by value.FromAny is sufficient; unlike
// internal/store's IRObject, there is no external caller supplying
// integers wider than float64's 53-bit mantissa through this path.
func unmarshalValue(data string) (value.Value, error) {
	if data == "" {
		return value.Undefined{}, nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return value.FromAny(decoded)
}

// marshalNodeIDs serializes a slice of node ids as a JSON array of
// strings, for the merges.edited_node_ids column.
func marshalNodeIDs(ids []nodeid.NodeId) (string, error) {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = string(id)
	}
	data, err := json.Marshal(strs)
	if err != nil {
		return "", fmt.Errorf("marshal node ids: %w", err)
	}
	return string(data), nil
}

func unmarshalNodeIDs(data string) ([]nodeid.NodeId, error) {
	if data == "" {
		return nil, nil
	}
	var strs []string
	if err := json.Unmarshal([]byte(data), &strs); err != nil {
		return nil, fmt.Errorf("unmarshal node ids: %w", err)
	}
	ids := make([]nodeid.NodeId, len(strs))
	for i, s := range strs {
		ids[i] = nodeid.NodeId(s)
	}
	return ids, nil
}

// snapshotRecord is the on-wire shape of one graph.Record in a checkpoint.
type snapshotRecord struct {
	Value    any          `json:"value"`
	Inbound  []snapEdge   `json:"inbound"`
	Outbound []snapEdge   `json:"outbound"`
}

type snapEdge struct {
	Other nodeid.NodeId `json:"other"`
	Path  []pathStep     `json:"path"` // nil slice serializes to JSON null, preserving "undefined"
}

type pathStep struct {
	Key     string `json:"key,omitempty"`
	Index   int    `json:"index,omitempty"`
	IsIndex bool   `json:"isIndex,omitempty"`
}

// marshalSnapshot serializes every node record in snap to a JSON object
// keyed by node id, for the checkpoints.snapshot column. The root set is
// recorded alongside it so Replay can reconstruct graph.Empty with the
// right roots before overlaying the checkpoint's records.
func marshalSnapshot(snap *graph.Snapshot) (string, error) {
	out := struct {
		Roots []nodeid.NodeId            `json:"roots"`
		Nodes map[nodeid.NodeId]snapshotRecord `json:"nodes"`
	}{
		Nodes: make(map[nodeid.NodeId]snapshotRecord, snap.Len()),
	}
	for id := range snap.Roots() {
		out.Roots = append(out.Roots, id)
	}

	snap.Range(func(id nodeid.NodeId, r *graph.Record) bool {
		sr := snapshotRecord{Value: value.ToAny(r.Value)}
		for _, e := range r.Inbound {
			sr.Inbound = append(sr.Inbound, toSnapEdge(e))
		}
		for _, e := range r.Outbound {
			sr.Outbound = append(sr.Outbound, toSnapEdge(e))
		}
		out.Nodes[id] = sr
		return true
	})

	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

func toSnapEdge(e graph.Edge) snapEdge {
	se := snapEdge{Other: e.Other}
	if e.Path != nil {
		se.Path = make([]pathStep, len(e.Path))
		for i, step := range e.Path {
			se.Path[i] = pathStep{Key: step.Key, Index: step.Index, IsIndex: step.IsIndex}
		}
	}
	return se
}

// unmarshalSnapshot parses a checkpoint row back into a *graph.Snapshot
// with generation 1 (one build over an empty snapshot) — Replay advances
// the generation itself by building on top of it through the ordinary
// commit path, so the stored generation counter is not meaningful to
// preserve.
func unmarshalSnapshot(data string) (*graph.Snapshot, error) {
	var decoded struct {
		Roots []nodeid.NodeId                   `json:"roots"`
		Nodes map[nodeid.NodeId]snapshotRecord   `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(data), &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	snap := graph.Empty(decoded.Roots...)
	staged := make(map[nodeid.NodeId]*graph.Record, len(decoded.Nodes))
	roots := make(map[nodeid.NodeId]bool, len(decoded.Roots))
	for _, id := range decoded.Roots {
		roots[id] = true
	}
	for id, sr := range decoded.Nodes {
		v, err := value.FromAny(sr.Value)
		if err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: node %q: %w", id, err)
		}
		rec := graph.NewRecord(v)
		for _, se := range sr.Inbound {
			rec.Inbound = append(rec.Inbound, fromSnapEdge(se))
		}
		for _, se := range sr.Outbound {
			rec.Outbound = append(rec.Outbound, fromSnapEdge(se))
		}
		staged[id] = rec
	}
	return graph.Build(snap, staged, roots), nil
}

func fromSnapEdge(se snapEdge) graph.Edge {
	e := graph.Edge{Other: se.Other}
	if se.Path != nil {
		e.Path = make(nodeid.Path, len(se.Path))
		for i, step := range se.Path {
			e.Path[i] = nodeid.PathStep{Key: step.Key, Index: step.Index, IsIndex: step.IsIndex}
		}
	}
	return e
}
