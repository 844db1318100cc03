package durable

import (
	"context"
	"fmt"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// MergeRecord is one logged Editor.Merge call: enough to reconstruct it
// (QueryName + RootID + Payload + Variables) plus the node ids it edited,
// for diagnostic replay inspection.
type MergeRecord struct {
	Seq           int64
	TxnID         string
	QueryName     string
	RootID        nodeid.NodeId
	Payload       value.Value
	Variables     *value.Object
	EditedNodeIDs []nodeid.NodeId
}

// WriteMerge appends a merge record to the log. Idempotent via
// ON CONFLICT(seq) DO NOTHING: retrying a write for a seq already
// recorded is a no-op, mirroring internal/store/write.go's invocation
// idempotency.
func (s *Store) WriteMerge(ctx context.Context, rec MergeRecord) error {
	payloadJSON, err := marshalValue(rec.Payload)
	if err != nil {
		return fmt.Errorf("write merge: %w", err)
	}
	varsJSON, err := marshalValue(rec.Variables)
	if err != nil {
		return fmt.Errorf("write merge: %w", err)
	}
	editedJSON, err := marshalNodeIDs(rec.EditedNodeIDs)
	if err != nil {
		return fmt.Errorf("write merge: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO merges (seq, txn_id, query_name, root_id, payload, variables, edited_node_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		rec.Seq, rec.TxnID, rec.QueryName, string(rec.RootID), payloadJSON, varsJSON, editedJSON,
	)
	if err != nil {
		return fmt.Errorf("write merge: %w", err)
	}
	return nil
}

// WriteCheckpoint persists a full snapshot at seq, tagged with the
// transaction id that produced it. Idempotent via ON CONFLICT(seq) DO
// NOTHING.
func (s *Store) WriteCheckpoint(ctx context.Context, seq int64, txnID string, snap *graph.Snapshot) error {
	snapJSON, err := marshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (seq, txn_id, snapshot)
		VALUES (?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		seq, txnID, snapJSON,
	)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
