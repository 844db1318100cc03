package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/value"
)

// CompileEdgeMap parses a CUE value into an *edgemap.Map, the descriptor
// internal/walker consumes (section 6, "Edge map"). Uses the CUE SDK's Go
// API directly, not a CLI subprocess, the same way the teacher's
// CompileConcept walks a decoded cue.Value field by field.
//
// The CUE value is the query document's selection set. Each field is
// itself a struct describing that position:
//
//	viewer: {}
//	feed: {
//		parameterized: true
//		args: { first: "$first", after: 0 }
//		fields: {
//			id: {}
//			title: {}
//		}
//	}
//
// A field written as the bare boolean `true` is shorthand for a leaf
// scalar selection with no children and no arguments: `id: true`. An
// argument value that is a CUE string beginning with "$" is a reference
// to a bound query variable (edgemap.VarRef); any other value is a
// literal (edgemap.Literal).
func CompileEdgeMap(v cue.Value) (*edgemap.Map, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	fields, err := compileSelection(v)
	if err != nil {
		return nil, err
	}
	return &edgemap.Map{Fields: fields}, nil
}

// compileSelection compiles every field of a struct-valued CUE selection
// set into an edgemap.Map keyed by field name.
func compileSelection(v cue.Value) (map[string]*edgemap.Map, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]*edgemap.Map)
	for iter.Next() {
		name := iter.Label()
		sub, err := compileField(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if sub != nil {
			out[name] = sub
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// compileField compiles one field position's descriptor. A leaf (no
// arguments, no children) compiles to nil, matching edgemap.Map.FieldAt's
// documented contract that a nil sub-map means "not parameterized,
// recurse structurally" — there is nothing this package needs to record
// for it.
func compileField(fv cue.Value) (*edgemap.Map, error) {
	if fv.IncompleteKind() == cue.BoolKind {
		// `id: true` shorthand — a plain leaf, nothing to describe.
		return nil, nil
	}

	parameterized := false
	if pv := fv.LookupPath(cue.ParsePath("parameterized")); pv.Exists() {
		b, err := pv.Bool()
		if err != nil {
			return nil, &CompileError{Field: "parameterized", Message: "must be a bool", Pos: pv.Pos()}
		}
		parameterized = b
	}

	var args map[string]edgemap.Expr
	if av := fv.LookupPath(cue.ParsePath("args")); av.Exists() {
		var err error
		args, err = compileArgs(av)
		if err != nil {
			return nil, err
		}
	}

	var fields map[string]*edgemap.Map
	hasFields := false
	if fsv := fv.LookupPath(cue.ParsePath("fields")); fsv.Exists() {
		hasFields = true
		var err error
		fields, err = compileSelection(fsv)
		if err != nil {
			return nil, err
		}
	}

	if !parameterized && !hasFields {
		// A plain object field with no sub-selection given here carries
		// no information the walker needs beyond structural recursion.
		return nil, nil
	}

	return &edgemap.Map{Parameterized: parameterized, Args: args, Fields: fields}, nil
}

// compileArgs compiles a parameterized field's static argument
// expressions, keyed by argument name.
func compileArgs(av cue.Value) (map[string]edgemap.Expr, error) {
	iter, err := av.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	out := make(map[string]edgemap.Expr)
	for iter.Next() {
		name := iter.Label()
		expr, err := compileArgExpr(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("args.%s: %w", name, err)
		}
		out[name] = expr
	}
	return out, nil
}

// compileArgExpr compiles a single argument value into an edgemap.Expr:
// a "$name" string is a VarRef, anything else is a Literal.
func compileArgExpr(v cue.Value) (edgemap.Expr, error) {
	if s, err := v.String(); err == nil && strings.HasPrefix(s, "$") {
		name := strings.TrimPrefix(s, "$")
		if name == "" {
			return nil, &CompileError{Field: "args", Message: "variable reference must name a variable after \"$\"", Pos: v.Pos()}
		}
		return edgemap.VarRef{Name: name}, nil
	}

	val, err := cueToValue(v)
	if err != nil {
		return nil, err
	}
	return edgemap.Literal{Value: val}, nil
}

// cueToValue converts a concrete CUE value into internal/value's Value
// tree, the same boundary-adapter role internal/value.FromAny plays for
// decoded encoding/json trees.
func cueToValue(v cue.Value) (value.Value, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return value.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Bool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Int(n), nil
	case cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Float(f), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return value.Str(s), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		items := []value.Value{}
		for iter.Next() {
			item, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return &value.Array{Items: items}, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := value.NewObject()
		for iter.Next() {
			item, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj = obj.WithField(iter.Label(), item)
		}
		return obj, nil
	default:
		return nil, &CompileError{Field: "args", Message: fmt.Sprintf("unsupported CUE kind: %v", v.IncompleteKind()), Pos: v.Pos()}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
