// Package cache implements the Editor/Snapshot API (section 6): the single
// public entry point that orchestrates the payload walker, reference
// bookkeeper, rebuilder, and orphan collector into the four-phase merge
// algorithm of section 4.1, and publishes committed state as immutable
// graph.Snapshot values.
package cache
