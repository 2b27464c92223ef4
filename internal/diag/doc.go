// Package diag defines the diagnostic model shared by every pipeline phase.
//
// # Purpose
//
//   - Provide deterministic, serialisable records for findings produced by the
//     AST loader, the type checker, the ownership resolver and the IR validator.
//   - Offer light-weight sinks (Reporter, Bag) so producers can emit findings
//     without knowing where they are stored or how they are rendered.
//
// # Batch reporting
//
// No phase stops at its first problem. Producers report every finding into a
// Reporter and keep going; the driver decides afterwards whether a file may
// proceed to IR emission (it may not if the Bag HasErrors).
//
// # Codes
//
// Code is a compact numeric identifier with a stable string form:
//
//   - SEM3xxx – type checker (one code per TypeErrorKind)
//   - OWN4xxx – ownership and lifetime classification
//   - IRV5xxx – IR validation (one code per ValidationError kind)
//   - CFG6xxx – input documents, configuration and cache
//
// Phase-local error types (sema.TypeError, ir.ValidationError) convert into
// Diagnostic so the CLI can surface all of them uniformly.
//
// Package diag performs no IO; rendering lives in cmd/lumen.
package diag
