package main

import (
	"fmt"

	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// entityIdForNode is this host's entity-identity convention: any object
// carrying an "id" field (string or int) is an entity, keyed by its id's
// string form. It is the same convention internal/harness and
// internal/cache's own tests use, since a CLI exercising merges by hand
// needs some fixed rule and this domain's worked examples all assume it.
func entityIdForNode(v value.Value) (nodeid.NodeId, bool) {
	obj, ok := v.(*value.Object)
	if !ok || obj == nil || !obj.Has("id") {
		return "", false
	}
	switch id := obj.Get("id").(type) {
	case value.Int:
		return nodeid.NodeId(fmt.Sprintf("%d", int64(id))), true
	case value.Str:
		return nodeid.NodeId(id), true
	default:
		return "", false
	}
}
