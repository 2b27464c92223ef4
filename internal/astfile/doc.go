// Package astfile decodes program documents written by the external parser
// into an ast.Builder. Two encodings are accepted: YAML, which keeps source
// positions and is convenient to write by hand, and msgpack, which is the
// compact form parsers emit in pipelines.
//
// A document is a map with an "items" list (or just the list). Every node is
// a small map keyed by its kind, for example
//
//	items:
//	  - fn: add
//	    params: [{name: a, type: number}, {name: b, type: number}]
//	    returns: number
//	    body:
//	      - return: {op: "+", args: [a, b]}
//
// Unknown node kinds are reported as CFG6001 and skipped so that one
// unsupported construct does not hide the rest of the program.
package astfile
