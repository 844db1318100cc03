package value

// Equal reports deep value equality. Array and Object compare by content,
// not identity — use == on the *Array/*Object pointers directly when
// identity (structural sharing) is what matters.
func Equal(a, b Value) bool {
	if a == nil {
		a = Undefined{}
	}
	if b == nil {
		b = Undefined{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null, Undefined:
		return true
	case Bool:
		return av == b.(Bool)
	case Int:
		return av == b.(Int)
	case Float:
		return av == b.(Float)
	case Str:
		return av == b.(Str)
	case *Array:
		bv := b.(*Array)
		if av.Len() != bv.Len() {
			return false
		}
		for i := 0; i < av.Len(); i++ {
			if !Equal(av.At(i), bv.At(i)) {
				return false
			}
		}
		return true
	case *Object:
		bv := b.(*Object)
		if av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.SortedKeys() {
			if !bv.Has(k) || !Equal(av.Get(k), bv.Get(k)) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Identical reports whether a and b are the same scalar value, or (for
// Array/Object) the same underlying pointer. This is the "has not changed
// since..." comparison the structural-sharing invariant (section 3,
// invariant 3) is stated in terms of.
func Identical(a, b Value) bool {
	switch av := a.(type) {
	case *Array:
		bv, ok := b.(*Array)
		return ok && av == bv
	case *Object:
		bv, ok := b.(*Object)
		return ok && av == bv
	default:
		return Equal(a, b)
	}
}

// IsUndefined reports whether v is Undefined (or nil, treated the same
// way).
func IsUndefined(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Undefined)
	return ok
}

// IsNullOrUndefined reports whether v is absent in either sense.
func IsNullOrUndefined(v Value) bool {
	if IsUndefined(v) {
		return true
	}
	_, ok := v.(Null)
	return ok
}
