// Package harness runs scripted scenarios against a state graph.
//
// A scenario is a YAML file naming a sequence of transitions to attempt
// and the state the machine is expected to end in. The harness drives a
// generic walker instance through the script and records a
// deterministic transcript of everything the instance did, suitable for
// golden-file comparison.
package harness
