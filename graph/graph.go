package graph

import "fmt"

// State names a node in the graph. Names are opaque to the runtime.
type State string

// Transition names a labeled edge out of a state.
type Transition string

// Edge is one outgoing transition in a state declaration.
type Edge struct {
	Transition Transition
	To         State
}

// To builds an Edge for use in Def.
func To(tr Transition, dest State) Edge {
	return Edge{Transition: tr, To: dest}
}

// StateDef declares one state and its outgoing transitions, in order.
type StateDef struct {
	Name  State
	Edges []Edge
}

// Def builds a StateDef for use in New.
func Def(name State, edges ...Edge) StateDef {
	return StateDef{Name: name, Edges: edges}
}

// Graph is the validated, immutable state graph.
//
// Construction copies the declaration; callers cannot mutate a Graph
// through the slices they passed in.
type Graph struct {
	order []StateDef
	index map[State]int
	// resolved[state][transition] = destination, for O(1) Resolve.
	resolved map[State]map[Transition]State
}

// New validates the declaration and builds a Graph.
//
// Malformed declarations fail construction with a *ValidationError; a
// server type backed by a malformed graph simply cannot be defined.
func New(states ...StateDef) (*Graph, error) {
	if len(states) == 0 {
		return nil, &ValidationError{
			Code:    ErrCodeEmptyGraph,
			Message: "a state graph must declare at least one state",
		}
	}

	g := &Graph{
		order:    make([]StateDef, 0, len(states)),
		index:    make(map[State]int, len(states)),
		resolved: make(map[State]map[Transition]State, len(states)),
	}

	for _, def := range states {
		if _, dup := g.index[def.Name]; dup {
			return nil, &ValidationError{
				Code:    ErrCodeDuplicateState,
				Message: "state declared twice",
				State:   def.Name,
			}
		}

		edges := make([]Edge, len(def.Edges))
		copy(edges, def.Edges)
		dests := make(map[Transition]State, len(edges))
		for _, e := range edges {
			if _, dup := dests[e.Transition]; dup {
				return nil, &ValidationError{
					Code:       ErrCodeDuplicateTransition,
					Message:    "transition declared twice for state",
					State:      def.Name,
					Transition: e.Transition,
				}
			}
			dests[e.Transition] = e.To
		}

		g.index[def.Name] = len(g.order)
		g.order = append(g.order, StateDef{Name: def.Name, Edges: edges})
		g.resolved[def.Name] = dests
	}

	// Destinations can only be checked once every state is known.
	for _, def := range g.order {
		for _, e := range def.Edges {
			if _, ok := g.index[e.To]; !ok {
				return nil, &ValidationError{
					Code:       ErrCodeUndeclaredTarget,
					Message:    fmt.Sprintf("transition targets undeclared state %q", e.To),
					State:      def.Name,
					Transition: e.Transition,
				}
			}
		}
	}

	return g, nil
}

// MustNew is New, panicking on a malformed declaration. Intended for
// graphs declared as package-level values.
func MustNew(states ...StateDef) *Graph {
	g, err := New(states...)
	if err != nil {
		panic(err)
	}
	return g
}

// Initial returns the first declared state.
func (g *Graph) Initial() State {
	return g.order[0].Name
}

// States returns all state names in declaration order.
func (g *Graph) States() []State {
	out := make([]State, len(g.order))
	for i, def := range g.order {
		out[i] = def.Name
	}
	return out
}

// Contains reports whether name is a declared state.
func (g *Graph) Contains(name State) bool {
	_, ok := g.index[name]
	return ok
}

// Transitions returns the deduplicated union of every transition name in
// the graph, in first-seen declaration order.
func (g *Graph) Transitions() []Transition {
	seen := make(map[Transition]bool)
	var out []Transition
	for _, def := range g.order {
		for _, e := range def.Edges {
			if !seen[e.Transition] {
				seen[e.Transition] = true
				out = append(out, e.Transition)
			}
		}
	}
	return out
}

// TransitionsFrom returns the transition names declared on state, in
// declaration order. Unknown states have no transitions.
func (g *Graph) TransitionsFrom(state State) []Transition {
	i, ok := g.index[state]
	if !ok {
		return nil
	}
	def := g.order[i]
	out := make([]Transition, len(def.Edges))
	for j, e := range def.Edges {
		out[j] = e.Transition
	}
	return out
}

// Resolve returns the destination of tr out of state. ok is false when no
// such transition is declared; the caller decides whether that is fatal.
func (g *Graph) Resolve(state State, tr Transition) (State, bool) {
	dests, ok := g.resolved[state]
	if !ok {
		return "", false
	}
	dest, ok := dests[tr]
	return dest, ok
}

// IsTerminal reports whether state is declared and has no outgoing
// transitions.
func (g *Graph) IsTerminal(state State) bool {
	i, ok := g.index[state]
	if !ok {
		return false
	}
	return len(g.order[i].Edges) == 0
}

// IsValidTransition reports whether tr exists out of state, regardless of
// where it leads.
func (g *Graph) IsValidTransition(state State, tr Transition) bool {
	_, ok := g.Resolve(state, tr)
	return ok
}

// IsTerminalTransition reports whether tr out of state leads to a
// terminal state.
func (g *Graph) IsTerminalTransition(state State, tr Transition) bool {
	dest, ok := g.Resolve(state, tr)
	if !ok {
		return false
	}
	return g.IsTerminal(dest)
}
