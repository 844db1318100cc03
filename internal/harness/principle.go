package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ValidationResult summarizes running every scenario in a directory.
type ValidationResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure records one scenario that failed to load, run, or pass
// its own assertions.
type ScenarioFailure struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error"`
}

// ValidateDirectory loads and runs every "*.yaml" scenario file in dir
// (non-recursive), in lexical filename order for reproducible output, and
// returns a summary. Grounded on the teacher's batch-validation shape
// (aggregate pass/fail counts plus a Failures slice with enough context
// to locate the problem) but walking a directory of scenario files
// directly, since this domain has no concept-spec layer to enumerate
// operational principles from.
func ValidateDirectory(dir string) (*ValidationResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	result := &ValidationResult{}
	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Path: path, Error: fmt.Sprintf("load: %v", err),
			})
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Path: path, Name: scenario.Name, Error: fmt.Sprintf("run: %v", err),
			})
			continue
		}

		if !runResult.Pass {
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Path: path, Name: scenario.Name, Error: fmt.Sprintf("assertions failed: %v", runResult.Errors),
			})
			continue
		}

		result.Passed++
	}

	return result, nil
}
