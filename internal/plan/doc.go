// Package plan implements the GPU memory capacity planner: a first-order
// memory model for serving a transformer model under a chosen configuration,
// and a greedy auto-fit search over that configuration. It is structured into
// small files by concern:
//
//   - calibration.go: named byte-accounting constants and their defaults.
//   - estimate.go: the pure memory model (weights, KV cache, overhead) and
//     input validation.
//   - autofit.go: the ordered mitigation ladder, expressed as data and driven
//     by one generic loop.
//   - errors.go: error types and helpers (IsInvalidInput).
//
// Everything in this package is purely computational: no I/O, no shared
// mutable state, and identical inputs always produce identical outputs. The
// model is deliberately approximate advisory accounting; it does not promise
// to match the allocator of any specific inference engine.
package plan
