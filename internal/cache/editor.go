package cache

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/normwrite/normcache/internal/bookkeeper"
	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/orphan"
	"github.com/normwrite/normcache/internal/pathset"
	"github.com/normwrite/normcache/internal/rebuild"
	"github.com/normwrite/normcache/internal/value"
	"github.com/normwrite/normcache/internal/walker"
)

// Editor is a single-writer transaction over a parent Snapshot (sections
// 4.1, 5): any number of Merge calls staging changes privately, published
// all at once by Commit. An Editor must not be used from more than one
// goroutine, and must not be reused after Commit.
type Editor struct {
	cfg    *Config
	parent *graph.Snapshot
	txnID  string
	logger *slog.Logger

	staged        map[nodeid.NodeId]*graph.Record
	roots         map[nodeid.NodeId]bool
	editedNodeIds map[nodeid.NodeId]bool
	callEdited    map[nodeid.NodeId]bool

	pendingEdits     []walker.ReferenceEdit
	orphanCandidates []nodeid.NodeId

	committed bool
}

// New constructs an Editor over parent (nil means an empty cache whose
// only root is nodeid.QueryRootID).
func New(entityIdForNode EntityIdFunc, parent *graph.Snapshot, opts ...Option) (*Editor, error) {
	cfg, err := newConfig(entityIdForNode, opts...)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		parent = graph.Empty(nodeid.QueryRootID)
	}

	txnID := cfg.txnGen.Generate()
	e := &Editor{
		cfg:           cfg,
		parent:        parent,
		txnID:         txnID,
		logger:        cfg.Logger.With("component", "editor", "txn", txnID),
		staged:        make(map[nodeid.NodeId]*graph.Record),
		roots:         parent.Roots(),
		editedNodeIds: make(map[nodeid.NodeId]bool),
		callEdited:    make(map[nodeid.NodeId]bool),
	}
	e.logger.Debug("editor opened", "parent_gen", parent.Gen())
	return e, nil
}

// TxnID returns the transaction's correlation id, also present on every
// slog line the editor emits.
func (e *Editor) TxnID() string { return e.txnID }

// ensure returns the staged record for id, cloning from the parent (or
// creating an empty one) on first touch. This is the Ensure seam shared by
// bookkeeper, rebuild, and orphan.
func (e *Editor) ensure(id nodeid.NodeId) *graph.Record {
	if r, ok := e.staged[id]; ok {
		if r != nil {
			return r
		}
		// Resurrected after being tombstoned earlier in this transaction.
		r = graph.NewRecord(value.Undefined{})
		e.staged[id] = r
		return r
	}
	if r, ok := e.parent.GetSnapshot(id); ok {
		clone := r.Clone()
		e.staged[id] = clone
		return clone
	}
	r := graph.NewRecord(value.Undefined{})
	e.staged[id] = r
	return r
}

// peekValue reads id's current value without staging it, for the walker's
// co-traversal against unedited subtrees.
func (e *Editor) peekValue(id nodeid.NodeId) value.Value {
	if r, ok := e.staged[id]; ok {
		if r == nil {
			return value.Undefined{}
		}
		return r.Value
	}
	if r, ok := e.parent.GetSnapshot(id); ok {
		return r.Value
	}
	return value.Undefined{}
}

func (e *Editor) markEdited(id nodeid.NodeId) {
	e.editedNodeIds[id] = true
	e.callEdited[id] = true
}

// EntityIdForNode implements walker.Effects.
func (e *Editor) EntityIdForNode(v value.Value) (nodeid.NodeId, bool) {
	return e.cfg.EntityIdForNode(v)
}

// CurrentValue implements walker.Effects.
func (e *Editor) CurrentValue(id nodeid.NodeId) value.Value {
	return e.peekValue(id)
}

// SetValue implements walker.Effects: an immediate phase-1 scalar or
// array-length write.
func (e *Editor) SetValue(containerID nodeid.NodeId, path nodeid.Path, v value.Value) {
	rec := e.ensure(containerID)
	if path == nil {
		rec.Value = v
	} else {
		rec.Value = pathset.DeepSet(rec.Value, path, v)
	}
	e.markEdited(containerID)
}

// ReferenceEdit implements walker.Effects: defers the edit to phase 2.
func (e *Editor) ReferenceEdit(edit walker.ReferenceEdit) {
	e.pendingEdits = append(e.pendingEdits, edit)
}

// peekRecord reads id's record, staged or parent, without cloning it into
// staged — the read-only counterpart to ensure, used to check whether a
// touch is actually needed before paying its clone cost.
func (e *Editor) peekRecord(id nodeid.NodeId) *graph.Record {
	if r, ok := e.staged[id]; ok {
		return r
	}
	if r, ok := e.parent.GetSnapshot(id); ok {
		return r
	}
	return nil
}

// EnsureParameterizedEdge implements walker.Effects: the path=undefined
// edge pair is idempotent by construction (the Open Question's
// multiplicity-1 case, recorded in DESIGN.md), so it is applied directly
// rather than deferred. A re-merge of the same query that already holds
// this edge must not touch (and so not clone) either endpoint — otherwise
// every re-merge of a parameterized query would needlessly churn the
// container's record identity, breaking invariant 5 (idempotence).
func (e *Editor) EnsureParameterizedEdge(containerID, edgeID nodeid.NodeId) {
	want := graph.Edge{Other: edgeID, Path: nil}
	if rec := e.peekRecord(containerID); rec != nil {
		for _, out := range rec.Outbound {
			if out.Equal(want) {
				return
			}
		}
	}
	container := e.ensure(containerID)
	edge := e.ensure(edgeID)
	container.AddOutbound(graph.Edge{Other: edgeID, Path: nil})
	edge.AddInbound(graph.Edge{Other: containerID, Path: nil})
}

// ValidateIdentityChange implements walker.Effects (section 7, "Identity
// violation"): strict configurations fail the merge; tolerant ones log and
// let the reference edit through rule 2 already decided to make.
func (e *Editor) ValidateIdentityChange(containerID nodeid.NodeId, path nodeid.Path, prevID, nextID nodeid.NodeId) error {
	if e.cfg.Strict {
		return newIdentityViolation(containerID, path, prevID, nextID)
	}
	e.logger.Warn("tolerated identity change at holder position",
		"holder", containerID, "prev", prevID, "next", nextID)
	return nil
}

// IsRoot implements orphan.Sink.
func (e *Editor) IsRoot(id nodeid.NodeId) bool { return e.roots[id] }

// Tombstone implements orphan.Sink: stages id for deletion from the
// published snapshot.
func (e *Editor) Tombstone(id nodeid.NodeId) {
	e.staged[id] = nil
	e.markEdited(id)
	e.logger.Debug("tombstoned orphan", "node", id)
}

// Merge applies one query/payload pair to the editor's staged state,
// running the four phases of section 4.1 in order: scalar merge and
// reference collection (via the payload walker), reference-edit
// application (the reference bookkeeper), inbound rebuild, and orphan
// collection.
func (e *Editor) Merge(query *Query, payload any) error {
	if e.committed {
		return newConfigError("cannot merge on an editor that has already committed")
	}

	payloadValue, err := toValue(payload)
	if err != nil {
		return fmt.Errorf("cache: invalid payload: %w", err)
	}

	rootID := query.rootID()
	vars := query.variables()
	em := query.document()

	logger := e.logger.With("root", rootID)
	logger.Debug("merge: phase 1 walk")

	e.pendingEdits = e.pendingEdits[:0]
	for id := range e.callEdited {
		delete(e.callEdited, id)
	}
	nodeValue := e.peekValue(rootID)

	if err := walker.Walk(rootID, payloadValue, nodeValue, em, false, vars, e); err != nil {
		logger.Error("merge: walk aborted", "error", err)
		return err
	}

	logger.Debug("merge: phase 2 reference bookkeeping", "edits", len(e.pendingEdits))
	for _, edit := range e.pendingEdits {
		outcome, err := bookkeeper.Apply(edit, e.ensure, e.cfg.Strict, logger)
		if err != nil {
			var symErr *bookkeeper.EdgeSymmetryError
			if errors.As(err, &symErr) {
				return newEdgeSymmetry(symErr.Holder, symErr.Target, symErr.Path)
			}
			return err
		}
		e.markEdited(edit.ContainerID)
		e.orphanCandidates = append(e.orphanCandidates, outcome.NewOrphans...)
	}

	logger.Debug("merge: phase 3 rebuild", "edited", len(e.callEdited))
	edited := make([]nodeid.NodeId, 0, len(e.callEdited))
	for id := range e.callEdited {
		edited = append(edited, id)
	}
	rebuild.Run(edited, e.ensure)

	logger.Debug("merge: phase 4 orphan collection", "candidates", len(e.orphanCandidates))
	orphan.Run(e.orphanCandidates, e.ensure, e)
	e.orphanCandidates = e.orphanCandidates[:0]

	return nil
}

// CommitResult is the output of a successful Commit: the published
// snapshot plus the set of node ids whose value changed across every
// Merge call this transaction made.
type CommitResult struct {
	Snapshot      *graph.Snapshot
	EditedNodeIds []nodeid.NodeId
}

// Commit publishes the editor's staged changes as a new immutable
// Snapshot built on top of the parent this Editor was opened with. The
// Editor must not be used again afterward.
func (e *Editor) Commit() (CommitResult, error) {
	if e.committed {
		return CommitResult{}, newConfigError("editor already committed")
	}
	e.committed = true

	if e.cfg.FreezeSnapshots {
		for _, rec := range e.staged {
			if rec != nil {
				value.Freeze(rec.Value)
			}
		}
	}

	snap := graph.Build(e.parent, e.staged, e.roots)

	edited := make([]nodeid.NodeId, 0, len(e.editedNodeIds))
	for id := range e.editedNodeIds {
		edited = append(edited, id)
	}

	e.logger.Debug("committed", "new_gen", snap.Gen(), "edited", len(edited))
	return CommitResult{Snapshot: snap, EditedNodeIds: edited}, nil
}

func toValue(payload any) (value.Value, error) {
	if v, ok := payload.(value.Value); ok {
		return v, nil
	}
	return value.FromAny(payload)
}
