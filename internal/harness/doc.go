// Package harness provides a conformance testing framework for the
// normalized cache write engine.
//
// The harness loads YAML scenario files, compiles each referenced query
// document into an edge map (via internal/compiler), drives a real
// internal/cache.Editor through the scenario's merge steps, and asserts
// on the resulting graph.Snapshot. Unlike a mock-driven harness this
// exercises the actual four-phase Merge/Commit algorithm end to end —
// there is no engine to enqueue against and no handler to stub, so there
// is no tautology risk to document here.
//
// # Scenario format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: s1_new_parameterized_field
//	description: "a new top-level parameterized field creates a new node"
//	queries:
//	  foo: |
//	    foo: {
//	      parameterized: true
//	      args: { id: "$id", withExtra: true }
//	    }
//	nodes:
//	  param:
//	    container: QueryRoot
//	    path: [foo]
//	    args: { id: 1, withExtra: true }
//	steps:
//	  - merge:
//	      query: foo
//	      variables: { id: 1 }
//	      payload: { foo: { name: "Foo", extra: false } }
//	    expectEditedNodeIds: [param]
//	assertions:
//	  - type: node_value
//	    node: param
//	    equals: { name: "Foo", extra: false }
//	  - type: outbound_edge
//	    node: QueryRoot
//	    to: param
//
// # Node references
//
// Parameterized node ids embed the canonical JSON of a path and an
// argument object and are awkward to write down literally. The "nodes" section names them by formula
// (container + path + args) instead, per section 6's construction rule;
// steps and assertions refer to a node by that name, or by a literal id
// (an entity id, or "QueryRoot").
//
// # Assertion types
//
//   - node_value: the node's current value matches (subset semantics)
//   - node_missing: the node does not exist in the final snapshot (orphan collection ran)
//   - node_identity: two node names currently hold the same value object (reference identity, not just equal contents)
//   - outbound_edge / inbound_edge: the node carries exactly this edge
//   - roots: the given node names are exactly the snapshot's roots
//   - edited_node_ids: the union of every step's EditedNodeIds equals the given node names
//
// A scenario with "strict: true" opens its Editor with cache.WithStrict,
// so identity violations and edge-symmetry corruption fail the merge
// instead of being logged and tolerated.
package harness
