package durable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// ReadMergesSince returns every merge record with seq > afterSeq,
// ordered by seq ascending — the deterministic ordering CP-4 requires in
// internal/store, needed here so Replay reapplies merges in the order
// they were originally committed.
func (s *Store) ReadMergesSince(ctx context.Context, afterSeq int64) ([]MergeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, txn_id, query_name, root_id, payload, variables, edited_node_ids
		FROM merges
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
	if err != nil {
		return nil, fmt.Errorf("read merges: %w", err)
	}
	defer rows.Close()

	var out []MergeRecord
	for rows.Next() {
		rec, err := scanMerge(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merges: %w", err)
	}
	return out, nil
}

func scanMerge(rows *sql.Rows) (MergeRecord, error) {
	var rec MergeRecord
	var rootID, payloadJSON, varsJSON, editedJSON string
	if err := rows.Scan(&rec.Seq, &rec.TxnID, &rec.QueryName, &rootID, &payloadJSON, &varsJSON, &editedJSON); err != nil {
		return MergeRecord{}, fmt.Errorf("scan merge: %w", err)
	}
	rec.RootID = nodeid.NodeId(rootID)

	payload, err := unmarshalValue(payloadJSON)
	if err != nil {
		return MergeRecord{}, fmt.Errorf("scan merge: %w", err)
	}
	rec.Payload = payload

	vars, err := unmarshalValue(varsJSON)
	if err != nil {
		return MergeRecord{}, fmt.Errorf("scan merge: %w", err)
	}
	if obj, ok := vars.(*value.Object); ok {
		rec.Variables = obj
	}

	ids, err := unmarshalNodeIDs(editedJSON)
	if err != nil {
		return MergeRecord{}, fmt.Errorf("scan merge: %w", err)
	}
	rec.EditedNodeIDs = ids

	return rec, nil
}

// LatestCheckpoint returns the highest-seq checkpoint, or ok=false if the
// log has none (a fresh log, or one that has only ever recorded merges).
func (s *Store) LatestCheckpoint(ctx context.Context) (seq int64, snap *graph.Snapshot, ok bool, err error) {
	var txnID, snapJSON string
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, txn_id, snapshot FROM checkpoints
		ORDER BY seq DESC LIMIT 1
	`)
	if scanErr := row.Scan(&seq, &txnID, &snapJSON); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, nil, false, nil
		}
		return 0, nil, false, fmt.Errorf("read latest checkpoint: %w", scanErr)
	}

	snap, err = unmarshalSnapshot(snapJSON)
	if err != nil {
		return 0, nil, false, fmt.Errorf("read latest checkpoint: %w", err)
	}
	return seq, snap, true, nil
}

// GetLastSeq returns the highest seq recorded across both tables, the
// position a new Editor's caller should resume its own logical clock
// from (adapted from internal/store/replay.go's GetLastSeq).
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var mergeSeq, checkpointSeq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM merges`).Scan(&mergeSeq); err != nil {
		return 0, fmt.Errorf("get last seq from merges: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM checkpoints`).Scan(&checkpointSeq); err != nil {
		return 0, fmt.Errorf("get last seq from checkpoints: %w", err)
	}
	if checkpointSeq > mergeSeq {
		return checkpointSeq, nil
	}
	return mergeSeq, nil
}
