// Package edgemap defines Map, the consumed descriptor of which positions
// in a query document are parameterized (section 3, "Edge map"; section
// 6, "Edge map (consumed, per query document)"). Producing a Map from an
// actual query document is out of the core's scope (section 1); this
// package only defines the shape the walker consumes and the expansion of
// static argument expressions against bound query variables.
package edgemap
