// Package trace is the compiler's structured logging facility.
//
// Every pipeline phase (AST decoding, type checking, ownership resolution,
// IR lowering and validation) opens a span; notable decisions inside a phase
// are recorded as point events with key/value extras. Output is either
// human-readable text or NDJSON.
//
// # Usage
//
//	lumen check --trace=- --trace-level=phase main.ast.yaml
//
// # Tracers
//
//   - Nop: zero-overhead default when tracing is disabled
//   - StreamTracer: immediate write to a file or stderr
//   - RingTracer: keeps the last N events in memory (dumped on failure)
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// LevelPhase emits driver and pass boundaries, LevelDetail adds per-file
// events, LevelDebug adds per-function and per-node events.
//
// Tracers travel through the driver via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "sema", 0)
//	defer span.End("")
package trace
