package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// SliceSource serves a windowed view over an in-memory slice. It applies the
// request's sort descriptor using comparators registered per key, pages the
// sorted copy, and reports an exact total. The backing slice is never
// mutated by Fetch.
//
// Thread-safe for concurrent Fetch calls; SetItems may race with Fetch only
// in the sense that a fetch observes either the old or the new dataset,
// never a mix.
type SliceSource[T any] struct {
	mu          sync.RWMutex
	items       []T
	comparators map[string]func(a, b T) int
}

// NewSliceSource creates a source over the given items. The slice is used as
// the canonical fetch order; register comparators before requesting sorted
// fetches.
func NewSliceSource[T any](items []T) *SliceSource[T] {
	return &SliceSource[T]{
		items:       items,
		comparators: make(map[string]func(a, b T) int),
	}
}

// Comparator registers the comparator used for the given sort key and
// returns the source for chaining.
func (s *SliceSource[T]) Comparator(key string, cmp func(a, b T) int) *SliceSource[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comparators[key] = cmp
	return s
}

// SetItems replaces the backing dataset. Callers that share the source with
// a window cache must follow up with a dataset refresh so stale pages are
// discarded.
func (s *SliceSource[T]) SetItems(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
}

// Len returns the current dataset size.
func (s *SliceSource[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Fetch implements Source. Unknown sort keys are an error: the caller built
// a descriptor this source cannot honor, and silently ignoring it would
// return rows in an order the cache believes is sorted.
func (s *SliceSource[T]) Fetch(_ context.Context, req Request) (Result[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req.Offset < 0 || req.Limit < 0 {
		return Result[T]{}, fmt.Errorf("invalid fetch window [%d, %d)", req.Offset, req.Offset+req.Limit)
	}

	for _, key := range req.Sort {
		if _, ok := s.comparators[key.Key]; !ok {
			return Result[T]{}, fmt.Errorf("no comparator registered for sort key %q", key.Key)
		}
	}

	// Work on a copy so the canonical fetch order survives resorting.
	sorted := make([]T, len(s.items))
	copy(sorted, s.items)

	if len(req.Sort) > 0 {
		sort.SliceStable(sorted, func(i, j int) bool {
			for _, key := range req.Sort {
				c := s.comparators[key.Key](sorted[i], sorted[j])
				if key.Descending {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return false
		})
	}

	start := req.Offset
	if start > len(sorted) {
		start = len(sorted)
	}
	end := start + req.Limit
	if end > len(sorted) {
		end = len(sorted)
	}

	page := make([]T, end-start)
	copy(page, sorted[start:end])

	return Result[T]{
		Items:    page,
		Total:    len(sorted),
		HasTotal: true,
	}, nil
}

// CountExact implements ExactCounter. Filters are not supported by the
// in-memory source; any non-empty filter is rejected.
func (s *SliceSource[T]) CountExact(_ context.Context, filter string) (int, error) {
	if filter != "" {
		return 0, fmt.Errorf("slice source does not support count filter %q", filter)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items), nil
}
