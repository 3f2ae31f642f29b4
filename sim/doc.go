// Package sim provides the discrete-event cache simulation kernel.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - params.go: the parameter set (Config) and its validated, immutable form (Params)
//   - cache.go: the cache model, its entry states and the stampede policies
//   - simulator.go: the event loop that feeds requests to the cache model
//
// # Architecture
//
// The kernel is single threaded and deterministic for a fixed seed. Simulated
// concurrency is modelled by waiters queued on an entry while a recompute is
// in flight; they are released when the completion event fires.
//
// Sub-packages:
//   - sim/workload/: lazy request generation (arrival and key popularity models) and replay
//   - sim/trace/: optional per-request, per-window and per-recompute records
//   - sim/journal/: append-only run journal and per-request CSV records
//   - sim/report/: plot rendering, console summary and publishing
package sim
