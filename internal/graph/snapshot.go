package graph

import (
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// Snapshot is an externally immutable mapping from NodeId to Record
// (section 3). Snapshots are produced only by Editor.Commit and are safe
// for concurrent readers.
type Snapshot struct {
	nodes map[nodeid.NodeId]*Record
	roots map[nodeid.NodeId]bool
	gen   uint64
}

// Empty returns a snapshot with no nodes except the given roots, each
// initialized to an empty record whose value is an empty mapping. This is
// the starting point for a cache instance with no prior state.
func Empty(roots ...nodeid.NodeId) *Snapshot {
	s := &Snapshot{
		nodes: make(map[nodeid.NodeId]*Record),
		roots: make(map[nodeid.NodeId]bool, len(roots)),
	}
	for _, r := range roots {
		s.roots[r] = true
		s.nodes[r] = NewRecord(value.NewObject())
	}
	return s
}

// GetSnapshot returns the record stored at id, and whether it exists —
// the consumed "Snapshot API" of section 6.
func (s *Snapshot) GetSnapshot(id nodeid.NodeId) (*Record, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.nodes[id]
	return r, ok
}

// Get is a convenience accessor returning just the node's value.
func (s *Snapshot) Get(id nodeid.NodeId) (value.Value, bool) {
	r, ok := s.GetSnapshot(id)
	if !ok {
		return nil, false
	}
	return r.Value, true
}

// IsRoot reports whether id is a member of the root set.
func (s *Snapshot) IsRoot(id nodeid.NodeId) bool {
	return s != nil && s.roots[id]
}

// Roots returns the snapshot's root set.
func (s *Snapshot) Roots() map[nodeid.NodeId]bool {
	out := make(map[nodeid.NodeId]bool, len(s.roots))
	for k, v := range s.roots {
		out[k] = v
	}
	return out
}

// Gen returns a monotonically increasing generation counter, incremented
// once per commit. It carries no ordering semantics for the engine itself
// (section 5: commits are not orderable against each other by the core);
// it exists purely so a host (e.g. the CLI inspect command) can label
// snapshots for humans without reaching for wall-clock time.
func (s *Snapshot) Gen() uint64 {
	if s == nil {
		return 0
	}
	return s.gen
}

// Len returns the number of node records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.nodes)
}

// Range calls fn for every node in the snapshot. Iteration order is
// unspecified.
func (s *Snapshot) Range(fn func(id nodeid.NodeId, r *Record) bool) {
	if s == nil {
		return
	}
	for id, r := range s.nodes {
		if !fn(id, r) {
			return
		}
	}
}

// build constructs a new Snapshot by overlaying staged on top of s: nil
// entries in staged are tombstones and are omitted from the result. Used
// only by the editor at commit time.
func build(parent *Snapshot, staged map[nodeid.NodeId]*Record, roots map[nodeid.NodeId]bool) *Snapshot {
	nodes := make(map[nodeid.NodeId]*Record, len(parent.nodes)+len(staged))
	for id, r := range parent.nodes {
		nodes[id] = r
	}
	for id, r := range staged {
		if r == nil {
			delete(nodes, id)
			continue
		}
		nodes[id] = r
	}
	return &Snapshot{nodes: nodes, roots: roots, gen: parent.gen + 1}
}

// Build is the exported form of build, used by internal/cache to publish a
// new snapshot at commit time without exposing the staged-map
// representation to other packages beyond this one.
func Build(parent *Snapshot, staged map[nodeid.NodeId]*Record, roots map[nodeid.NodeId]bool) *Snapshot {
	return build(parent, staged, roots)
}
