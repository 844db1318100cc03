package graph

import (
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// Edge is one endpoint of a bidirectional relationship between two node
// records. Path is nil when the edge is a parameterized-value edge: the
// child is not exposed under any own-value path of the holder (invariant
// 5).
type Edge struct {
	Other nodeid.NodeId
	Path  nodeid.Path
}

// Equal compares edges structurally (same target, same path).
func (e Edge) Equal(other Edge) bool {
	return e.Other == other.Other && e.Path.Equal(other.Path)
}

// Record is a single node's state: its value tree plus its bidirectional
// edge multisets. Records are never mutated after being published into a
// Snapshot; the editor only mutates records it holds privately in its
// staged table.
type Record struct {
	Value    value.Value
	Inbound  []Edge
	Outbound []Edge
}

// NewRecord constructs an empty record with the given value.
func NewRecord(v value.Value) *Record {
	return &Record{Value: v}
}

// Clone returns a shallow copy of r: a new Record with copied edge slices
// (so callers can append/remove without aliasing r), but the same Value
// reference (Value identity is managed by the path setter, not here).
func (r *Record) Clone() *Record {
	if r == nil {
		return &Record{}
	}
	out := &Record{Value: r.Value}
	if len(r.Inbound) > 0 {
		out.Inbound = append([]Edge(nil), r.Inbound...)
	}
	if len(r.Outbound) > 0 {
		out.Outbound = append([]Edge(nil), r.Outbound...)
	}
	return out
}

// HasInbound reports whether r currently has any inbound edge — a record
// with no inbound edges, and that is not a root, is an orphan (section
// 4.5).
func (r *Record) HasInbound() bool {
	return r != nil && len(r.Inbound) > 0
}

// AddOutbound appends a new outbound edge, deduplicating by
// (Other, Path): this is the bookkeeper's resolution of the Open Question
// about duplicate reference edits within one merge (see DESIGN.md).
func (r *Record) AddOutbound(e Edge) (added bool) {
	for _, existing := range r.Outbound {
		if existing.Equal(e) {
			return false
		}
	}
	r.Outbound = append(r.Outbound, e)
	return true
}

// AddInbound appends a new inbound edge with the same deduplication rule.
func (r *Record) AddInbound(e Edge) (added bool) {
	for _, existing := range r.Inbound {
		if existing.Equal(e) {
			return false
		}
	}
	r.Inbound = append(r.Inbound, e)
	return true
}

// RemoveOutbound removes one occurrence of e. removed reports whether an
// edge was actually present; empty reports whether Outbound is now empty.
func (r *Record) RemoveOutbound(e Edge) (removed, empty bool) {
	r.Outbound, removed = removeOne(r.Outbound, e)
	return removed, len(r.Outbound) == 0
}

// RemoveInbound removes one occurrence of e. removed reports whether an
// edge was actually present; empty reports whether Inbound is now empty.
func (r *Record) RemoveInbound(e Edge) (removed, empty bool) {
	r.Inbound, removed = removeOne(r.Inbound, e)
	return removed, len(r.Inbound) == 0
}

func removeOne(edges []Edge, target Edge) ([]Edge, bool) {
	for i, e := range edges {
		if e.Equal(target) {
			return append(edges[:i:i], edges[i+1:]...), true
		}
	}
	return edges, false
}
