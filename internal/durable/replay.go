package durable

import (
	"context"
	"fmt"

	"github.com/normwrite/normcache/internal/cache"
	"github.com/normwrite/normcache/internal/graph"
)

// QueryResolver maps the name a merge was logged under back to the
// *cache.Query (its compiled edge map and root id) needed to replay it.
// Edge maps are not themselves persisted — they are a property of the
// application's query documents, known to the host at replay time — only
// the name, payload, and variables are (see internal/durable's package
// doc). The zero value of an unresolved name is an error, not a bare
// struct field, by contract of this function type.
type QueryResolver func(name string) (*cache.Query, error)

// Replay reconstructs a cache.Editor's cumulative state by loading the
// latest checkpoint (if any) and reapplying every merge logged after it,
// in seq order, through entityIdForNode's cache semantics. It returns the
// resulting snapshot and the txn ids of every merge call that was
// actually replayed, for a caller that wants to report progress.
//
// Replay opens its own Editor per logged merge call rather than batching
// every row into one Editor.Merge/Commit pair, because each row recorded
// its own edited-node-ids independent of any other row's — committing
// incrementally keeps that correspondence intact for diagnostics, at the
// cost of one snapshot generation per replayed row instead of one for
// the whole replay. A host that only needs the final snapshot can ignore
// the intermediate generations.
func Replay(ctx context.Context, store *Store, entityIdForNode cache.EntityIdFunc, resolve QueryResolver, opts ...cache.Option) (*graph.Snapshot, []string, error) {
	startSeq, snap, ok, err := store.LatestCheckpoint(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: %w", err)
	}
	if !ok {
		snap = nil // cache.New(nil) starts an empty cache rooted at QueryRootID
		startSeq = 0
	}

	merges, err := store.ReadMergesSince(ctx, startSeq)
	if err != nil {
		return nil, nil, fmt.Errorf("replay: %w", err)
	}

	var applied []string
	for _, rec := range merges {
		query, err := resolve(rec.QueryName)
		if err != nil {
			return nil, nil, fmt.Errorf("replay: seq %d: resolve query %q: %w", rec.Seq, rec.QueryName, err)
		}
		if query.RootID == "" {
			query.RootID = rec.RootID
		}
		query.Variables = rec.Variables

		editor, err := cache.New(entityIdForNode, snap, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("replay: seq %d: open editor: %w", rec.Seq, err)
		}
		if err := editor.Merge(query, rec.Payload); err != nil {
			return nil, nil, fmt.Errorf("replay: seq %d: merge: %w", rec.Seq, err)
		}
		result, err := editor.Commit()
		if err != nil {
			return nil, nil, fmt.Errorf("replay: seq %d: commit: %w", rec.Seq, err)
		}
		snap = result.Snapshot
		applied = append(applied, rec.TxnID)
	}

	if snap == nil {
		snap = graph.Empty("QueryRoot")
	}
	return snap, applied, nil
}
