// Package durable provides an optional SQLite-backed checkpoint/replay log
// for internal/cache (section 6, "optional durability"). It is not part of
// the core engine: a cache built without it behaves identically, just
// without crash recovery.
//
// The log records two kinds of rows:
//
//   - merges: one row per committed Editor.Merge call, enough to replay
//     the call (the query's name, root id, payload, and variables) plus
//     the set of node ids the call edited, for diagnostic use.
//   - checkpoints: a full snapshot of the graph at a given seq, so replay
//     does not have to start from an empty cache and reapply every merge
//     ever recorded.
//
// # Critical patterns
//
// Ordering is by seq, a caller-supplied monotonic counter — never by wall
// time, so that Replay is deterministic regardless of when it runs
// (adapted from internal/store's CP-2/CP-4 logical-clock discipline).
//
// Writes are idempotent: WriteMerge and WriteCheckpoint both use
// ON CONFLICT DO NOTHING keyed by (seq), so a crash between committing a
// merge and acknowledging it to the caller can safely be retried.
//
// Values are persisted as RFC 8785 canonical JSON via internal/value, the
// same representation internal/nodeid builds parameterized ids from.
package durable
