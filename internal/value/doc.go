// Package value implements the tagged-variant representation of the JSON-ish
// values that flow through the cache: payloads, node values, and query
// arguments.
//
// Scalars (Null, Bool, Int, Float, Str) compare by Go equality. Array and
// Object carry identity: two objects with identical contents are not the
// same value unless they are the same pointer. This mirrors the object
// model the rest of the engine relies on for structural sharing — "has not
// changed since" is a pointer comparison, never a deep comparison.
package value
