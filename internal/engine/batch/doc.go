// Package batch runs a worker over an ordered set of items with bounded concurrency.
//
// A Runner drains a FIFO queue of items with a fixed number of lanes, so at most
// K workers are ever in flight. Key properties:
//   - Outcomes are returned in input order regardless of completion order
//   - A failing (or panicking) item is recorded in its own Outcome and never
//     aborts the other items
//   - Failures are reported through an optional callback and the context logger
//   - Progress tracking with callbacks for UI updates
//
// The runner itself has no cancellation: the context is handed to every worker,
// and a worker that observes cancellation simply fails its item.
package batch
