package harness

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/cuecontext"

	"github.com/normwrite/normcache/internal/cache"
	"github.com/normwrite/normcache/internal/compiler"
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/graph"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// entityIdForNode is the harness's fixed entity-identity convention: any
// object carrying an "id" field (string or int) is an entity, keyed by
// its id's string form. Scenarios cannot supply their own identity
// function through YAML, so every scenario in this package is written
// against this one convention — the same one internal/cache's own tests
// use.
func entityIdForNode(v value.Value) (nodeid.NodeId, bool) {
	obj, ok := v.(*value.Object)
	if !ok || obj == nil || !obj.Has("id") {
		return "", false
	}
	switch id := obj.Get("id").(type) {
	case value.Int:
		return nodeid.NodeId(fmt.Sprintf("%d", int64(id))), true
	case value.Str:
		return nodeid.NodeId(id), true
	default:
		return "", false
	}
}

// compileQueries compiles every entry in queries into an *edgemap.Map.
func compileQueries(queries map[string]string) (map[string]*edgemap.Map, error) {
	ctx := cuecontext.New()
	out := make(map[string]*edgemap.Map, len(queries))
	for name, src := range queries {
		cv := ctx.CompileString(src)
		if err := cv.Err(); err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
		em, err := compiler.CompileEdgeMap(cv)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", name, err)
		}
		if errs := compiler.Validate(em); len(errs) > 0 {
			return nil, fmt.Errorf("query %q: %v", name, errs[0])
		}
		out[name] = em
	}
	return out, nil
}

// runtime resolves node names to NodeIds for one scenario run, memoizing
// parameterized id computations.
type runtime struct {
	scenario *Scenario
	resolved map[string]nodeid.NodeId
}

func (rt *runtime) resolveNode(name string) (nodeid.NodeId, error) {
	if id, ok := rt.resolved[name]; ok {
		return id, nil
	}
	ref, declared := rt.scenario.Nodes[name]
	if !declared {
		// Not a formula — treat the name itself as a literal id
		// (an entity id the scenario author wrote by hand, or
		// "QueryRoot").
		id := nodeid.NodeId(name)
		rt.resolved[name] = id
		return id, nil
	}
	if ref.ID != "" {
		id := nodeid.NodeId(ref.ID)
		rt.resolved[name] = id
		return id, nil
	}

	container := ref.Container
	if container == "" {
		container = string(nodeid.QueryRootID)
	}
	containerID, err := rt.resolveNode(container)
	if err != nil {
		return "", fmt.Errorf("node %q: container: %w", name, err)
	}

	path, err := toPath(ref.Path)
	if err != nil {
		return "", fmt.Errorf("node %q: path: %w", name, err)
	}

	args, err := toArgsObject(ref.Args)
	if err != nil {
		return "", fmt.Errorf("node %q: args: %w", name, err)
	}

	id, err := nodeid.ParameterizedID(containerID, path, args)
	if err != nil {
		return "", fmt.Errorf("node %q: %w", name, err)
	}
	rt.resolved[name] = id
	return id, nil
}

func toPath(steps []interface{}) (nodeid.Path, error) {
	if steps == nil {
		return nil, nil
	}
	out := make(nodeid.Path, 0, len(steps))
	for i, s := range steps {
		switch v := s.(type) {
		case string:
			out = append(out, nodeid.Field(v))
		case int:
			out = append(out, nodeid.Index(v))
		default:
			return nil, fmt.Errorf("path[%d]: unsupported step type %T", i, s)
		}
	}
	return out, nil
}

func toArgsObject(m map[string]interface{}) (*value.Object, error) {
	if m == nil {
		return value.NewObject(), nil
	}
	v, err := value.FromAny(map[string]any(m))
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}

// Run executes a scenario's steps against a fresh, empty cache and
// evaluates its assertions against the final committed snapshot.
func Run(scenario *Scenario) (*Result, error) {
	compiled, err := compileQueries(scenario.Queries)
	if err != nil {
		return nil, err
	}

	rt := &runtime{scenario: scenario, resolved: make(map[string]nodeid.NodeId)}
	result := NewResult()

	snap, err := runSteps(rt, scenario.Steps, compiled, result)
	if err != nil {
		return nil, err
	}

	for _, msg := range evaluateAssertions(rt, snap, collectEdited(result), scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// runSteps applies a scenario's merge steps in order against one Editor
// chain, recording each step's outcome into result, and returns the final
// committed snapshot (graph.Empty if every step errored, or there were no
// steps). It stops early only on an unexpected error, matching the
// caller's contract of "return partial Result plus nil error" for
// scenario-level (expected) failures.
func runSteps(rt *runtime, steps []Step, compiled map[string]*edgemap.Map, result *Result) (*graph.Snapshot, error) {
	var snap *graph.Snapshot
	var err error

	for i, step := range steps {
		ms := step.Merge
		if ms == nil {
			return nil, fmt.Errorf("steps[%d]: merge is required", i)
		}

		query, ok := compiled[ms.Query]
		if !ok {
			return nil, fmt.Errorf("steps[%d]: query %q not compiled", i, ms.Query)
		}

		rootID := nodeid.QueryRootID
		if ms.Root != "" {
			rootID, err = rt.resolveNode(ms.Root)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
		}

		vars, err := toArgsObject(ms.Variables)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: variables: %w", i, err)
		}

		payloadValue, err := value.FromAny(ms.Payload)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: payload: %w", i, err)
		}

		var opts []cache.Option
		if rt.scenario.Strict {
			opts = append(opts, cache.WithStrict(true))
		}
		editor, err := cache.New(entityIdForNode, snap, opts...)
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: cache.New: %w", i, err)
		}

		q := &cache.Query{Document: query, Variables: vars, RootID: rootID}

		trace := StepTrace{Query: ms.Query, RootID: rootID}

		mergeErr := editor.Merge(q, payloadValue)
		var commitResult cache.CommitResult
		if mergeErr == nil {
			commitResult, mergeErr = editor.Commit()
		}

		if mergeErr != nil {
			trace.Error = mergeErr.Error()
			result.AddStepTrace(trace)
			if step.ExpectError == "" {
				result.AddError(fmt.Sprintf("steps[%d]: unexpected error: %v", i, mergeErr))
				if snap == nil {
					snap = graph.Empty(nodeid.QueryRootID)
				}
				return snap, nil
			}
			var cerr *cache.Error
			if !errors.As(mergeErr, &cerr) || string(cerr.Code) != step.ExpectError {
				result.AddError(fmt.Sprintf("steps[%d]: expected error code %q, got %v", i, step.ExpectError, mergeErr))
			}
			continue
		}

		if step.ExpectError != "" {
			result.AddError(fmt.Sprintf("steps[%d]: expected error %q but merge succeeded", i, step.ExpectError))
		}

		snap = commitResult.Snapshot
		trace.EditedNodeIds = commitResult.EditedNodeIds
		result.AddStepTrace(trace)

		if step.ExpectEditedNodeIds != nil {
			if err := checkNodeSet(rt, commitResult.EditedNodeIds, step.ExpectEditedNodeIds); err != nil {
				result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
			}
		}
	}

	if snap == nil {
		snap = graph.Empty(nodeid.QueryRootID)
	}

	return snap, nil
}

// checkNodeSet reports an error unless actual is exactly the set named by
// wantNames (each resolved via rt), independent of order.
func checkNodeSet(rt *runtime, actual []nodeid.NodeId, wantNames []string) error {
	want := make(map[nodeid.NodeId]bool, len(wantNames))
	for _, name := range wantNames {
		id, err := rt.resolveNode(name)
		if err != nil {
			return err
		}
		want[id] = true
	}
	got := make(map[nodeid.NodeId]bool, len(actual))
	for _, id := range actual {
		got[id] = true
	}
	if !sameIdSet(want, got) {
		return fmt.Errorf("edited node ids = %v, want %v", actual, wantNames)
	}
	return nil
}
