package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/normwrite/normcache/internal/cache"
	"github.com/normwrite/normcache/internal/compiler"
	"github.com/normwrite/normcache/internal/durable"
	"github.com/normwrite/normcache/internal/edgemap"
	"github.com/normwrite/normcache/internal/nodeid"
	"github.com/normwrite/normcache/internal/value"
)

// MergeOptions holds the merge command's flags.
type MergeOptions struct {
	*RootOptions
	QueryPath   string
	PayloadPath string
	VarsPath    string
	Database    string
	QueryName   string
	RootID      string
	Strict      bool
	Freeze      bool
}

// NewMergeCommand builds the merge command: compile one query document,
// apply one payload, and print the resulting CommitResult. With --db, the
// merge is appended to a durable.Store's log on top of whatever that log
// already replays to, so repeated invocations accumulate state across
// process runs.
func NewMergeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MergeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge one query/payload pair into a cache",
		Long: `Compile a CUE query document, apply it and a JSON payload against a cache,
and print the committed snapshot's edited node ids.

Without --db the merge runs against a fresh, empty cache. With --db the
merge is appended to a durable.Store's log: the store is replayed first
(to reconstruct prior state), the new merge is applied on top, and both
the merge record and the resulting snapshot are written back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.QueryPath, "query", "", "path to a CUE query document (required)")
	cmd.Flags().StringVar(&opts.PayloadPath, "payload", "", "path to a JSON payload file (required)")
	cmd.Flags().StringVar(&opts.VarsPath, "vars", "", "path to a JSON object of query variables")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to a durable.Store SQLite file (optional)")
	cmd.Flags().StringVar(&opts.QueryName, "query-name", "default", "name this query is logged under in --db")
	cmd.Flags().StringVar(&opts.RootID, "root", "", "root node id to merge into (defaults to QueryRoot)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on identity violations and edge-symmetry corruption instead of tolerating them")
	cmd.Flags().BoolVar(&opts.Freeze, "freeze", false, "deep-freeze the committed snapshot's values")
	_ = cmd.MarkFlagRequired("query")
	_ = cmd.MarkFlagRequired("payload")

	return cmd
}

func runMerge(opts *MergeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	query, err := compileQueryFile(opts.QueryPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "compiling query", err)
	}

	payload, err := readJSONFile(opts.PayloadPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading payload", err)
	}

	vars, err := readVarsFile(opts.VarsPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading vars", err)
	}

	var cacheOpts []cache.Option
	if opts.Strict {
		cacheOpts = append(cacheOpts, cache.WithStrict(true))
	}
	if opts.Freeze {
		cacheOpts = append(cacheOpts, cache.WithFreezeSnapshots(true))
	}

	rootID := nodeid.QueryRootID
	if opts.RootID != "" {
		rootID = nodeid.NodeId(opts.RootID)
	}
	q := &cache.Query{Document: query, Variables: vars, RootID: rootID}

	if opts.Database == "" {
		editor, err := cache.New(entityIdForNode, nil, cacheOpts...)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening editor", err)
		}
		if err := editor.Merge(q, payload); err != nil {
			return formatMergeFailure(formatter, err)
		}
		result, err := editor.Commit()
		if err != nil {
			return formatMergeFailure(formatter, err)
		}
		return formatter.Success(newCommitResultView(result))
	}

	return runMergeWithStore(opts, formatter, rootID, q, payload, cacheOpts)
}

func runMergeWithStore(opts *MergeOptions, formatter *OutputFormatter, rootID nodeid.NodeId, q *cache.Query, payload value.Value, cacheOpts []cache.Option) error {
	ctx := context.Background()

	store, err := durable.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening store", err)
	}
	defer store.Close()

	resolve := func(name string) (*cache.Query, error) {
		if name != opts.QueryName {
			return nil, fmt.Errorf("merge: no query document registered for %q (this host only knows %q)", name, opts.QueryName)
		}
		return &cache.Query{Document: q.Document}, nil
	}

	snap, _, err := durable.Replay(ctx, store, entityIdForNode, resolve, cacheOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "replaying log", err)
	}

	editor, err := cache.New(entityIdForNode, snap, cacheOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening editor", err)
	}
	if err := editor.Merge(q, payload); err != nil {
		return formatMergeFailure(formatter, err)
	}
	result, err := editor.Commit()
	if err != nil {
		return formatMergeFailure(formatter, err)
	}

	seq, err := store.GetLastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading log position", err)
	}
	seq++

	if err := store.WriteMerge(ctx, durable.MergeRecord{
		Seq:           seq,
		TxnID:         editor.TxnID(),
		QueryName:     opts.QueryName,
		RootID:        rootID,
		Payload:       payload,
		Variables:     q.Variables,
		EditedNodeIDs: result.EditedNodeIds,
	}); err != nil {
		return WrapExitError(ExitCommandError, "writing merge record", err)
	}

	// Checkpoint every commit so inspect can read the latest state
	// directly without needing this host's query documents to replay the
	// merge log itself.
	if err := store.WriteCheckpoint(ctx, seq, editor.TxnID(), result.Snapshot); err != nil {
		return WrapExitError(ExitCommandError, "writing checkpoint", err)
	}

	return formatter.Success(newCommitResultView(result))
}

func formatMergeFailure(formatter *OutputFormatter, err error) error {
	var cerr *cache.Error
	if errors.As(err, &cerr) {
		_ = formatter.Error(string(cerr.Code), cerr.Error(), map[string]interface{}{
			"node": cerr.NodeID, "prev": cerr.PrevID, "next": cerr.NextID,
		})
		return NewExitError(ExitFailure, "merge rejected")
	}
	return WrapExitError(ExitFailure, "merge failed", err)
}

// commitResultView is the JSON-friendly projection of a cache.CommitResult
// this CLI prints: the edited node ids plus the total node count, not the
// snapshot itself (that is cmd inspect's job).
type commitResultView struct {
	EditedNodeIds []nodeid.NodeId `json:"edited_node_ids"`
	NodeCount     int             `json:"node_count"`
	Generation    uint64          `json:"generation"`
}

// String renders the view for text output, one labelled field per line.
func (v commitResultView) String() string {
	return fmt.Sprintf("edited_node_ids: %v\nnode_count: %d\ngeneration: %d", v.EditedNodeIds, v.NodeCount, v.Generation)
}

func newCommitResultView(result cache.CommitResult) commitResultView {
	return commitResultView{
		EditedNodeIds: result.EditedNodeIds,
		NodeCount:     result.Snapshot.Len(),
		Generation:    result.Snapshot.Gen(),
	}
}

func compileQueryFile(path string) (*edgemap.Map, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ctx := cuecontext.New()
	cv := ctx.CompileBytes(src)
	if err := cv.Err(); err != nil {
		return nil, err
	}
	em, err := compiler.CompileEdgeMap(cv)
	if err != nil {
		return nil, err
	}
	if errs := compiler.Validate(em); len(errs) > 0 {
		return nil, fmt.Errorf("%v", errs[0])
	}
	return em, nil
}

func readJSONFile(path string) (value.Value, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return value.FromAny(decoded)
}

func readVarsFile(path string) (*value.Object, error) {
	if path == "" {
		return value.NewObject(), nil
	}
	v, err := readJSONFile(path)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(*value.Object)
	if !ok {
		return nil, fmt.Errorf("vars file must contain a JSON object, got %T", v)
	}
	return obj, nil
}
