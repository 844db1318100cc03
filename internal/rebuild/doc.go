// Package rebuild implements the inbound rebuild phase (section 4.4):
// republishing every holder that transitively points at a changed node,
// by deep-setting the changed value at the holder's recorded path, walked
// breadth-first with cycle-safety from a seen set.
package rebuild
