package windowcache

import "fmt"

// RowState describes what the cache knows about one index.
type RowState int

// Row states.
const (
	// RowMissing means the index has never been fetched in the current
	// generation (or lies beyond the known dataset end).
	RowMissing RowState = iota
	// RowPending means a fetch covering the index is in flight.
	RowPending
	// RowLoaded means the item is cached and valid.
	RowLoaded
	// RowErrored means the last fetch covering the index failed. The row is
	// re-attempted by the next coverage pass; the cache never retries on
	// its own.
	RowErrored
)

// String returns a short state name for logging.
func (s RowState) String() string {
	switch s {
	case RowMissing:
		return "missing"
	case RowPending:
		return "pending"
	case RowLoaded:
		return "loaded"
	case RowErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Row is a transient binding of a position to an item. Any resort or full
// refresh invalidates it. Item holds the last known value even while the
// row is pending a refresh, so hosts can keep rendering stale content
// until the replacement arrives.
type Row[T any] struct {
	Index int
	Item  T
	State RowState
	Err   error
}

// Loaded reports whether the row holds a valid item.
func (r Row[T]) Loaded() bool {
	return r.State == RowLoaded
}

// RefreshReason distinguishes why the cache was invalidated. The engine
// uses it to decide whether selection and detail state must be cleared:
// a resort keeps them (identities are stable), a replacement clears them
// (the identity space may have changed).
type RefreshReason int

// Refresh reasons.
const (
	// ReasonResort invalidates positions because the effective order
	// changed. The dataset itself is assumed unchanged.
	ReasonResort RefreshReason = iota
	// ReasonReplace invalidates everything because the dataset source or
	// full item set was replaced.
	ReasonReplace
)

// String returns the reason name for logging.
func (r RefreshReason) String() string {
	if r == ReasonReplace {
		return "replace"
	}
	return "resort"
}

// Listener observes cache changes. Callbacks run outside the cache lock on
// the goroutine that completed the operation; implementations that touch
// shared state must do their own serialization.
type Listener interface {
	// RowRefreshed fires after a single row was re-fetched in place.
	RowRefreshed(index int)
	// RangeInvalidated fires after the generation was bumped and all cached
	// pages were discarded.
	RangeInvalidated(generation uint64)
	// CoverageLoaded fires after a fetched region [start, end) was applied.
	CoverageLoaded(start, end int)
	// CoverageFailed fires after a fetch for region [start, end) failed and
	// its rows were marked errored.
	CoverageFailed(start, end int, err error)
}
