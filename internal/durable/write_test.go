package durable

import (
	"context"
	"testing"

	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

func TestWriteMerge_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := MergeRecord{
		Seq:           1,
		TxnID:         "txn-1",
		QueryName:     "Viewer",
		RootID:        nodeid.QueryRootID,
		Payload:       value.Str("hello"),
		Variables:     value.NewObject(),
		EditedNodeIDs: []nodeid.NodeId{"1"},
	}

	if err := s.WriteMerge(ctx, rec); err != nil {
		t.Fatalf("first WriteMerge: %v", err)
	}
	// Same seq, different txn id — the conflict key is seq, so this must
	// be silently dropped rather than erroring or overwriting.
	rec.TxnID = "txn-2"
	if err := s.WriteMerge(ctx, rec); err != nil {
		t.Fatalf("second WriteMerge: %v", err)
	}

	got, err := s.ReadMergesSince(ctx, 0)
	if err != nil {
		t.Fatalf("ReadMergesSince: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].TxnID != "txn-1" {
		t.Errorf("TxnID = %q, want %q (first write wins)", got[0].TxnID, "txn-1")
	}
}

func TestWriteCheckpoint_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	snap := graph.Empty(nodeid.QueryRootID)

	if err := s.WriteCheckpoint(ctx, 5, "txn-a", snap); err != nil {
		t.Fatalf("first WriteCheckpoint: %v", err)
	}
	if err := s.WriteCheckpoint(ctx, 5, "txn-b", snap); err != nil {
		t.Fatalf("second WriteCheckpoint: %v", err)
	}

	seq, _, ok, err := s.LatestCheckpoint(ctx)
	if err != nil {
		t.Fatalf("LatestCheckpoint: %v", err)
	}
	if !ok {
		t.Fatal("expected a checkpoint to exist")
	}
	if seq != 5 {
		t.Errorf("seq = %d, want 5", seq)
	}
}
