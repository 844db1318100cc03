package durable

import (
	"context"
	"fmt"
	"testing"

	"github.com/normwrite/normcache/internal/cache"
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

func replayEntityID(v value.Value) (nodeid.NodeId, bool) {
	obj, ok := v.(*value.Object)
	if !ok || obj == nil {
		return "", false
	}
	idVal := obj.Get("id")
	switch id := idVal.(type) {
	case value.Str:
		return nodeid.NodeId(id), true
	default:
		return "", false
	}
}

func viewerQuery() *cache.Query {
	return &cache.Query{
		Document: &edgemap.Map{Fields: map[string]*edgemap.Map{
			"viewer": {},
		}},
	}
}

func TestReplay_ReappliesLoggedMerges(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	editor, err := cache.New(replayEntityID, nil)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	payload := value.ObjectOf(map[string]value.Value{
		"viewer": value.ObjectOf(map[string]value.Value{
			"id":   value.Str("1"),
			"name": value.Str("Ada"),
		}),
	})
	if err := editor.Merge(viewerQuery(), payload); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	result, err := editor.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := s.WriteMerge(ctx, MergeRecord{
		Seq:           1,
		TxnID:         editor.TxnID(),
		QueryName:     "Viewer",
		RootID:        nodeid.QueryRootID,
		Payload:       payload,
		Variables:     value.NewObject(),
		EditedNodeIDs: result.EditedNodeIds,
	}); err != nil {
		t.Fatalf("WriteMerge: %v", err)
	}

	resolve := func(name string) (*cache.Query, error) {
		if name != "Viewer" {
			return nil, fmt.Errorf("unknown query %q", name)
		}
		return viewerQuery(), nil
	}

	snap, applied, err := Replay(ctx, s, replayEntityID, resolve)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("len(applied) = %d, want 1", len(applied))
	}

	entityVal, ok := snap.Get("1")
	if !ok {
		t.Fatal("expected entity 1 to exist after replay")
	}
	entityObj, ok := entityVal.(*value.Object)
	if !ok {
		t.Fatalf("entity value is %T, want *value.Object", entityVal)
	}
	if name, _ := entityObj.Get("name").(value.Str); string(name) != "Ada" {
		t.Errorf("name = %q, want %q", name, "Ada")
	}
}

func TestReplay_ResolverErrorAborts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteMerge(ctx, MergeRecord{
		Seq: 1, TxnID: "t", QueryName: "Unknown", RootID: nodeid.QueryRootID,
		Payload: value.Null{}, Variables: value.NewObject(),
	}); err != nil {
		t.Fatalf("WriteMerge: %v", err)
	}

	resolve := func(name string) (*cache.Query, error) {
		return nil, fmt.Errorf("unknown query %q", name)
	}

	_, _, err := Replay(ctx, s, replayEntityID, resolve)
	if err == nil {
		t.Fatal("expected Replay to propagate the resolver error")
	}
}

func TestReplay_EmptyLogReturnsEmptyCache(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	resolve := func(name string) (*cache.Query, error) { return nil, fmt.Errorf("unexpected call") }

	snap, applied, err := Replay(ctx, s, replayEntityID, resolve)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("len(applied) = %d, want 0", len(applied))
	}
	if !snap.IsRoot(nodeid.QueryRootID) {
		t.Error("expected an empty cache rooted at QueryRoot")
	}
}
