package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a graph supplied by the caller.
type Scenario struct {
	Name string `yaml:"name"`

	// Steps are attempted in order. A step that names a transition not
	// declared from the state reached so far is a scenario failure.
	Steps []Step `yaml:"steps"`

	// ExpectState, when set, is checked after the last step.
	ExpectState string `yaml:"expect_state,omitempty"`
}

// Step is one scripted action.
type Step struct {
	// Transition to attempt.
	Transition string `yaml:"transition"`

	// AllowReject marks a step that is expected to be refused; the
	// scenario fails if the transition is actually taken.
	AllowReject bool `yaml:"allow_reject,omitempty"`
}

// LoadScenario reads and decodes a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("parsing scenario %s: %w", path, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}
	return &sc, nil
}
