// Package bookkeeper implements the reference bookkeeper (section 4.3):
// applying a reference edit by deep-setting the target's current value
// into the holder, removing the stale edge pair, adding the new one, and
// flagging orphans.
package bookkeeper
