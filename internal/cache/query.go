package cache

import (
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// Query describes one merge call's shape (section 6): the edge map
// compiled from the query document (see internal/compiler), the variables
// referenced by any parameterized field in that document, and the root id
// the payload is merged into. RootID defaults to nodeid.QueryRootID when
// left empty.
type Query struct {
	Document  *edgemap.Map
	Variables *value.Object
	RootID    nodeid.NodeId
}

func (q *Query) rootID() nodeid.NodeId {
	if q == nil || q.RootID == "" {
		return nodeid.QueryRootID
	}
	return q.RootID
}

func (q *Query) document() *edgemap.Map {
	if q == nil || q.Document == nil {
		return &edgemap.Map{}
	}
	return q.Document
}

func (q *Query) variables() *value.Object {
	if q == nil || q.Variables == nil {
		return value.NewObject()
	}
	return q.Variables
}
