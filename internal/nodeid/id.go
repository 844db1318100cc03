package nodeid

import (
	"fmt"
	"strings"

	"github.com/normwrite/normcache/internal/value"
)

// NodeId is an opaque identifier for a node record: an entity id, a
// parameterized-value id, or one of the well-known root ids.
type NodeId string

// QueryRootID is the well-known root of every query document.
const QueryRootID NodeId = "QueryRoot"

// separator is U+2756 BLACK DIAMOND MINUS WHITE X. A containerId may
// itself be a parameterized id (a parameterized field nested inside
// another one's value) and then already contains it.
const separator = "❖"

// PathStep is one step of a path from a container's root into its value:
// either a mapping key or an array index.
type PathStep struct {
	Key     string
	Index   int
	IsIndex bool
}

// Field constructs a mapping-key step.
func Field(key string) PathStep { return PathStep{Key: key} }

// Index constructs an array-index step.
func Index(i int) PathStep { return PathStep{Index: i, IsIndex: true} }

func (s PathStep) String() string {
	if s.IsIndex {
		return fmt.Sprintf("%d", s.Index)
	}
	return s.Key
}

// Path is a sequence of steps from a container's value root. A nil Path
// denotes "undefined" per section 3: a parameterized-value edge whose
// projection into the holder's value is empty. A non-nil, zero-length
// Path is a *defined* path of zero steps — "the holder's entire value",
// as in scenario S3's `<param>.outbound = [{id:"1", path:[]}]` — and must
// not be confused with "undefined": the rebuilder and bookkeeper tell
// the two apart by nil-ness, not by length.
type Path []PathStep

// Equal reports whether two paths denote the same steps. nil and a
// non-nil empty Path are NOT equal to each other — see the type's doc
// comment — but two nils, or two non-nil empty paths, are.
func (p Path) Equal(other Path) bool {
	if (p == nil) != (other == nil) {
		return false
	}
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

func (p Path) toValue() *value.Array {
	items := make([]value.Value, len(p))
	for i, step := range p {
		if step.IsIndex {
			items[i] = value.Int(step.Index)
		} else {
			items[i] = value.Str(step.Key)
		}
	}
	return &value.Array{Items: items}
}

// ParameterizedID computes the deterministic id for a parameterized value
// positioned at path inside containerId, with the given (already expanded)
// argument object, per section 6:
//
//	${containerId}<sep>${JSON(path)}<sep>${JSON(args)}
func ParameterizedID(containerID NodeId, path Path, args *value.Object) (NodeId, error) {
	pathJSON, err := value.MarshalCanonical(path.toValue())
	if err != nil {
		return "", fmt.Errorf("nodeid: encoding path: %w", err)
	}

	if args == nil {
		args = value.NewObject()
	}
	argsJSON, err := value.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("nodeid: encoding args: %w", err)
	}

	var b strings.Builder
	b.WriteString(string(containerID))
	b.WriteString(separator)
	b.Write(pathJSON)
	b.WriteString(separator)
	b.Write(argsJSON)
	return NodeId(b.String()), nil
}

// MustParameterizedID panics if ParameterizedID errors; for call sites that
// have already validated their inputs (e.g. tests building fixtures).
func MustParameterizedID(containerID NodeId, path Path, args *value.Object) NodeId {
	id, err := ParameterizedID(containerID, path, args)
	if err != nil {
		panic(err)
	}
	return id
}
