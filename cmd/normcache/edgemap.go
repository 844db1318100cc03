package main

import (
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/normwrite/normcache/internal/compiler"
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/value"
)

// NewEdgemapCommand groups the edge-map compiler's two operations under
// one parent, the way the teacher groups related subcommands.
func NewEdgemapCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edgemap",
		Short: "Compile and validate query-document edge maps",
	}
	cmd.AddCommand(newEdgemapCompileCommand(rootOpts))
	cmd.AddCommand(newEdgemapValidateCommand(rootOpts))
	return cmd
}

func newEdgemapCompileCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "compile",
		Short:         "Compile a CUE query document into an edge map",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			em, err := compileQueryFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "compile", err)
			}
			return formatter.Success(toEdgeMapDTO(em))
		},
	}
	cmd.Flags().StringVar(&path, "query", "", "path to a CUE query document (required)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newEdgemapValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:           "validate",
		Short:         "Validate a CUE query document's compiled edge map",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)

			raw, err := os.ReadFile(path)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading query", err)
			}
			ctx := cuecontext.New()
			cv := ctx.CompileBytes(raw)
			if err := cv.Err(); err != nil {
				return WrapExitError(ExitCommandError, "compile", err)
			}
			em, err := compiler.CompileEdgeMap(cv)
			if err != nil {
				return WrapExitError(ExitCommandError, "compile", err)
			}

			errs := compiler.Validate(em)
			if len(errs) > 0 {
				details := make([]string, len(errs))
				for i, e := range errs {
					details[i] = e.Error()
				}
				_ = formatter.Error("E2xx", fmt.Sprintf("%d validation error(s)", len(errs)), details)
				return NewExitError(ExitFailure, "edge map is invalid")
			}
			return formatter.Success("edge map is valid")
		},
	}
	cmd.Flags().StringVar(&path, "query", "", "path to a CUE query document (required)")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

// edgeMapDTO is a JSON-serializable mirror of *edgemap.Map: the real
// type has no JSON tags and an unexported Expr.resolve method, by design
// (section 6's edge map is an internal, consumed-not-serialized
// descriptor), so this CLI command projects it into a shape
// encoding/json can actually walk.
type edgeMapDTO struct {
	Parameterized bool                  `json:"parameterized,omitempty"`
	Args          map[string]exprDTO    `json:"args,omitempty"`
	Fields        map[string]edgeMapDTO `json:"fields,omitempty"`
}

type exprDTO struct {
	Kind    string      `json:"kind"` // "literal" | "var"
	Value   interface{} `json:"value,omitempty"`
	Name    string      `json:"name,omitempty"`
	Default interface{} `json:"default,omitempty"`
}

func toEdgeMapDTO(m *edgemap.Map) edgeMapDTO {
	if m == nil {
		return edgeMapDTO{}
	}
	dto := edgeMapDTO{Parameterized: m.Parameterized}
	if len(m.Args) > 0 {
		dto.Args = make(map[string]exprDTO, len(m.Args))
		for name, expr := range m.Args {
			dto.Args[name] = toExprDTO(expr)
		}
	}
	if len(m.Fields) > 0 {
		dto.Fields = make(map[string]edgeMapDTO, len(m.Fields))
		for name, sub := range m.Fields {
			dto.Fields[name] = toEdgeMapDTO(sub)
		}
	}
	return dto
}

func toExprDTO(expr edgemap.Expr) exprDTO {
	switch e := expr.(type) {
	case edgemap.Literal:
		return exprDTO{Kind: "literal", Value: value.ToAny(e.Value)}
	case edgemap.VarRef:
		var def interface{}
		if e.Default != nil {
			def = value.ToAny(e.Default)
		}
		return exprDTO{Kind: "var", Name: e.Name, Default: def}
	default:
		return exprDTO{Kind: fmt.Sprintf("%T", expr)}
	}
}
