// Package graph holds the node record and snapshot types at the core of
// the write engine (section 3): an id-indexed table of records, each
// carrying a value tree plus bidirectional edge multisets, never a
// language-level reference cycle.
package graph
