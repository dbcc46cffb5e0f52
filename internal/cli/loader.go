package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ityonemo/state-server/graph"
)

// GraphFile is the on-disk YAML form of a state graph. State order in
// the file is significant: the first state listed is the initial state,
// so states decode as a sequence, never a map.
type GraphFile struct {
	Name   string      `yaml:"name"`
	States []StateSpec `yaml:"states"`
}

// StateSpec declares one state and its outgoing transitions. A state
// with no transitions is terminal.
type StateSpec struct {
	Name        string           `yaml:"name"`
	Transitions []TransitionSpec `yaml:"transitions,omitempty"`
}

// TransitionSpec declares one labeled edge.
type TransitionSpec struct {
	Name string `yaml:"name"`
	To   string `yaml:"to"`
}

// LoadError represents an error that occurred during graph loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Path not found
	ErrCodeParseFailed = "E003" // YAML parse failed
	ErrCodeWriteFailed = "E004" // File write error
)

// LoadGraphFile reads and decodes a YAML graph file without building
// the graph, so callers can report structural errors separately from
// graph validation errors.
func LoadGraphFile(path string) (*GraphFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("graph file not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading graph file: %v", err)}
	}

	var gf GraphFile
	if err := yaml.Unmarshal(raw, &gf); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("parsing %s: %v", path, err)}
	}
	return &gf, nil
}

// BuildGraph turns a decoded file into a validated graph, preserving
// declaration order.
func BuildGraph(gf *GraphFile) (*graph.Graph, error) {
	defs := make([]graph.StateDef, 0, len(gf.States))
	for _, st := range gf.States {
		edges := make([]graph.Edge, 0, len(st.Transitions))
		for _, tr := range st.Transitions {
			edges = append(edges, graph.To(graph.Transition(tr.Name), graph.State(tr.To)))
		}
		defs = append(defs, graph.Def(graph.State(st.Name), edges...))
	}
	return graph.New(defs...)
}

// LoadGraph is the one-step load-and-build used by most commands.
func LoadGraph(path string) (*graph.Graph, *GraphFile, error) {
	gf, err := LoadGraphFile(path)
	if err != nil {
		return nil, nil, err
	}
	g, err := BuildGraph(gf)
	if err != nil {
		return nil, gf, err
	}
	return g, gf, nil
}
