// Package nodeid defines the NodeId type and the deterministic
// construction of parameterized-value ids (section 6 of the engine
// specification).
package nodeid
