// Package datasource defines the fetch contract that feeds the grid engine.
//
// A Source answers windowed queries: give me up to limit items starting at
// offset, ordered by this sort descriptor. Sources report dataset size either
// as an exact total or as a "has more" signal, and the window cache adapts its
// counting strategy accordingly. The package ships three implementations:
//   - SliceSource: in-memory backing slice with per-key comparators
//   - HTTPSource: JSON-over-HTTP backend using retryable transport
//   - FuncSource: adapter for closures, used by tests and demos
//
// Identity functions map items to stable keys so selection and detail state
// survive resorting and partial refreshes.
package datasource
