package compiler

import (
	"fmt"

	"github.com/normwrite/normcache/internal/edgemap"
)

// Validation error codes (E200-E299), continuing the teacher's per-domain
// numbering convention (the teacher's concept/sync-rule validator used
// E100-E199).
const (
	// ErrEmptyVarRefName: an args entry named a variable reference with
	// no name after "$" — CompileEdgeMap already rejects this at compile
	// time, so Validate only re-checks an edge map assembled by hand
	// (e.g. in a test) rather than through CompileEdgeMap.
	ErrEmptyVarRefName = "E201"

	// ErrParameterizedWithoutArgs: a parameterized position declared no
	// argument expressions at all, making every occurrence of that
	// position resolve to the same parameterized id regardless of query
	// variables — almost certainly a mistake, since an unparameterized
	// field would do the same thing more simply.
	ErrParameterizedWithoutArgs = "E202"

	// ErrUnknownArgExprType: an argument expression is neither a
	// variable reference nor a literal. The compiler never produces one,
	// so this only fires when a Map was constructed by hand with a
	// non-VarRef, non-Literal Expr implementation this package does not
	// recognize.
	ErrUnknownArgExprType = "E203"
)

// ValidationError reports one problem found in a compiled edge map.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled edge map for problems CompileEdgeMap cannot
// rule out by construction (an edge map assembled directly by a caller
// that bypassed CompileEdgeMap) and for conditions that are legal by the
// type but almost always a mistake. It returns every problem found rather
// than failing fast, matching the teacher's Validate.
func Validate(m *edgemap.Map) []ValidationError {
	var errs []ValidationError
	walkValidate(m, "", &errs)
	return errs
}

func walkValidate(m *edgemap.Map, path string, errs *[]ValidationError) {
	if m == nil {
		return
	}

	if m.Parameterized && len(m.Args) == 0 {
		*errs = append(*errs, ValidationError{
			Field:   fieldPath(path, "parameterized"),
			Message: "parameterized position has no argument expressions",
			Code:    ErrParameterizedWithoutArgs,
		})
	}

	for name, expr := range m.Args {
		switch ref := expr.(type) {
		case edgemap.VarRef:
			if ref.Name == "" {
				*errs = append(*errs, ValidationError{
					Field:   fieldPath(path, "args."+name),
					Message: "variable reference has an empty name",
					Code:    ErrEmptyVarRefName,
				})
			}
		case edgemap.Literal:
			// Any concrete value is acceptable.
		default:
			*errs = append(*errs, ValidationError{
				Field:   fieldPath(path, "args."+name),
				Message: fmt.Sprintf("unrecognized argument expression type %T", expr),
				Code:    ErrUnknownArgExprType,
			})
		}
	}

	for name, sub := range m.Fields {
		walkValidate(sub, fieldPath(path, name), errs)
	}
}

func fieldPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
