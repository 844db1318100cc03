// Package walker implements the payload walker (section 4.2): a
// structural co-traversal of an incoming payload against the graph's
// current node values, classifying every position in priority order
// (parameterized edge, entity reference, array, scalar, otherwise) and
// driving an injected Effects sink to stage scalar writes and collect
// reference edits.
//
// The walk is explicit-queue, not recursive, so a pathologically deep or
// wide payload cannot blow the Go call stack; this mirrors the cooperative,
// non-yielding traversal style the engine package's event queue uses for
// the same reason.
package walker
