package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario for the cache engine.
// A scenario compiles a set of named query documents, runs a sequence of
// merge steps against a single Editor/Snapshot chain, and asserts on the
// resulting graph.
type Scenario struct {
	// Name uniquely identifies this scenario (used as the golden file key).
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Queries maps a query name to its CUE query-document source,
	// compiled via internal/compiler.CompileEdgeMap.
	Queries map[string]string `yaml:"queries"`

	// Nodes names parameterized node formulas (container + path + args)
	// so steps and assertions can refer to a parameterized id by name
	// instead of writing it out literally.
	Nodes map[string]NodeRef `yaml:"nodes,omitempty"`

	// Steps is the ordered sequence of merges applied to one Editor
	// opened over the prior step's committed Snapshot.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final snapshot once every step has run.
	Assertions []Assertion `yaml:"assertions"`

	// Strict enables cache.WithStrict, turning section 7's tolerated
	// conditions (identity violations, edge-symmetry corruption) into
	// merge errors instead of logged warnings. Defaults to false.
	Strict bool `yaml:"strict,omitempty"`
}

// NodeRef names a node either by a literal id (an entity id, or
// "QueryRoot") or by the formula that produces a parameterized id
// (section 6): a container node reference, a field path, and the
// resolved argument object.
type NodeRef struct {
	// ID is a literal node id. When set, Container/Path/Args are unused.
	ID string `yaml:"id,omitempty"`

	// Container names another entry in Nodes, or a literal id, that
	// holds the parameterized position.
	Container string `yaml:"container,omitempty"`

	// Path is the field path under Container, as a mix of string keys
	// and integer indices (e.g. [one, two, 0, three]).
	Path []interface{} `yaml:"path,omitempty"`

	// Args are the parameterized position's resolved argument values.
	Args map[string]interface{} `yaml:"args,omitempty"`
}

// Step is one entry in a scenario's flow: a merge call, plus what the
// scenario author expects that call to do.
type Step struct {
	// Merge describes the query/payload pair to apply.
	Merge *MergeStep `yaml:"merge"`

	// ExpectError, if non-empty, names the cache.Code this step's Merge
	// or Commit call must fail with. Any other outcome fails the scenario.
	ExpectError string `yaml:"expectError,omitempty"`

	// ExpectEditedNodeIds, if non-empty, is the exact set of node names
	// (see Nodes) or literal ids this step's CommitResult.EditedNodeIds
	// must equal, order-independent.
	ExpectEditedNodeIds []string `yaml:"expectEditedNodeIds,omitempty"`
}

// MergeStep describes one Editor.Merge call.
type MergeStep struct {
	// Query names an entry in Scenario.Queries.
	Query string `yaml:"query"`

	// Root is the merge's root node (a Nodes entry or literal id).
	// Defaults to "QueryRoot".
	Root string `yaml:"root,omitempty"`

	// Variables binds the query document's "$name" references.
	Variables map[string]interface{} `yaml:"variables,omitempty"`

	// Payload is the value tree merged at Root.
	Payload interface{} `yaml:"payload"`
}

// Assertion validates the final committed snapshot.
type Assertion struct {
	// Type selects the assertion kind; see package doc for the full list.
	Type string `yaml:"type"`

	// Node names the primary node under test (most assertion types).
	Node string `yaml:"node,omitempty"`

	// Other names a second node, for node_identity.
	Other string `yaml:"other,omitempty"`

	// To names the edge's other endpoint, for outbound_edge/inbound_edge.
	To string `yaml:"to,omitempty"`

	// Path is the edge's path, for outbound_edge/inbound_edge. For a
	// structural edge at the root of the holder's value, set
	// explicitEmptyPath: true (with path: [] or no path); leave both
	// unset to mean "parameterized edge, path is undefined".
	Path          []interface{} `yaml:"path,omitempty"`
	ExplicitEmpty bool          `yaml:"explicitEmptyPath,omitempty"`

	// Equals gives the expected value (subset semantics), for node_value.
	Equals map[string]interface{} `yaml:"equals,omitempty"`

	// Nodes lists node names, for roots and edited_node_ids.
	Nodes []string `yaml:"nodes,omitempty"`
}

// Assertion type constants.
const (
	AssertNodeValue     = "node_value"
	AssertNodeMissing   = "node_missing"
	AssertNodeIdentity  = "node_identity"
	AssertOutboundEdge  = "outbound_edge"
	AssertInboundEdge   = "inbound_edge"
	AssertRoots         = "roots"
	AssertEditedNodeIds = "edited_node_ids"
)

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries map is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Merge == nil {
			return fmt.Errorf("steps[%d]: merge is required", i)
		}
		if step.Merge.Query == "" {
			return fmt.Errorf("steps[%d].merge: query is required", i)
		}
		if _, ok := s.Queries[step.Merge.Query]; !ok {
			return fmt.Errorf("steps[%d].merge: query %q not defined in queries", i, step.Merge.Query)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertNodeValue:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_value", index)
		}
	case AssertNodeMissing:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for node_missing", index)
		}
	case AssertNodeIdentity:
		if a.Node == "" || a.Other == "" {
			return fmt.Errorf("assertions[%d]: node and other are required for node_identity", index)
		}
	case AssertOutboundEdge, AssertInboundEdge:
		if a.Node == "" || a.To == "" {
			return fmt.Errorf("assertions[%d]: node and to are required for %s", index, a.Type)
		}
	case AssertRoots, AssertEditedNodeIds:
		// Nodes may legitimately be empty (the empty set).
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
