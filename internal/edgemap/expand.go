package edgemap

import "github.com/normwrite/normcache/internal/value"

// Expand resolves a position's static argument expressions against the
// query's bound variables, producing the argument object fed into the
// parameterized-id computation (section 4.2, rule 1; section 6).
func Expand(args map[string]Expr, vars *value.Object) *value.Object {
	out := value.NewObject()
	for name, expr := range args {
		out = out.WithField(name, expr.resolve(vars))
	}
	return out
}
