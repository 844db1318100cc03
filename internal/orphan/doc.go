// Package orphan implements the orphan collector (section 4.5): a
// breadth-first sweep from an initial orphan set that tombstones every
// node whose inbound edge list has become empty, cascading through
// outbound edges to nodes that become newly unreachable as a result.
package orphan
