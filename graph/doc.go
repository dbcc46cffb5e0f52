// Package graph implements the immutable state graph consumed by the
// state-server runtime.
//
// A Graph is a directed graph whose nodes are states and whose labeled
// edges are transitions. It is validated once at construction and never
// mutated afterwards, so a single Graph value is safely shared read-only
// by every server instance of the same type.
//
// INVARIANTS:
//   - At least one state; the first declared state is the initial state.
//   - State names are unique.
//   - Within a state, transition names are unique.
//   - Every transition destination is a declared state.
//
// All query functions are total over a constructed Graph: a resolve miss
// is reported with an explicit ok=false, never an error or panic. It is
// the engine's job to decide that a miss at dispatch time is fatal.
package graph
