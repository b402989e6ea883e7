// Package harness provides conformance testing for the string identity
// values in package ident.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: node_path_segments
//	description: "Name and subname access on a property path"
//	type: node_path            # name | string | node_path
//	strict_bounds: false       # out-of-range get_name panics when true
//	cases:
//	  - op: name_count
//	    input: "path/to/Node:prop"
//	    expect: 3
//	  - op: get_name
//	    input: "a/b"
//	    args: [5]
//	    expect: ""
//	  - op: from_cstr
//	    input_hex: "e90061"
//	    expect: "é"
//
// Each case builds a value of the scenario's type from input, applies op
// with args and compares the result against expect. A case with
// expect_panic passes only if the operation panics.
//
// # Deterministic Testing
//
// Every case is stamped with a sequence number from a deterministic clock
// and the trace carries a fixed run ID, so the same scenario always yields
// byte-identical JSON for golden comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/name_equality.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
