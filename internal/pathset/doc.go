// Package pathset implements deepSet (section 4.6): a copy-on-write
// deep-set that clones exactly the spine of a path, sharing every other
// subtree with both the parent snapshot's value and the transaction's own
// prior writes.
package pathset
