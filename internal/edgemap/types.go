package edgemap

import "github.com/normwrite/normcache/internal/value"

// Map mirrors a query document's selection set. A non-nil entry exists for
// every field position the parser considered worth describing; Fields
// holds the sub-selection for object- and array-of-object-typed
// positions.
type Map struct {
	// Parameterized marks this position as a parameterized value: its
	// identity depends on Args, not merely on its field name.
	Parameterized bool

	// Args holds the position's static argument expressions, keyed by
	// argument name. Only meaningful when Parameterized is true.
	Args map[string]Expr

	// Fields holds the sub-selection for nested object/array-of-object
	// positions, keyed by field name.
	Fields map[string]*Map
}

// FieldAt returns the sub-map for key, or nil if the edge map does not
// describe that field (the walker treats a nil sub-map as "not
// parameterized, recurse structurally").
func (m *Map) FieldAt(key string) *Map {
	if m == nil || m.Fields == nil {
		return nil
	}
	return m.Fields[key]
}

// Expr is a static argument expression: either a literal value or a
// reference to a query variable, resolved by Expand.
type Expr interface {
	resolve(vars *value.Object) value.Value
}

// Literal is an argument expression with a fixed value.
type Literal struct{ Value value.Value }

func (l Literal) resolve(*value.Object) value.Value { return l.Value }

// VarRef is an argument expression that resolves against a bound query
// variable, falling back to Default (if non-nil) and then to Null when
// the variable is unbound — "undefined variables become null" (section
// 4.2, rule 1).
type VarRef struct {
	Name    string
	Default value.Value
}

func (r VarRef) resolve(vars *value.Object) value.Value {
	if vars != nil && vars.Has(r.Name) {
		return vars.Get(r.Name)
	}
	if r.Default != nil {
		return r.Default
	}
	return value.Null{}
}
