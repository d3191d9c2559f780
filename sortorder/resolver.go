package sortorder

import (
	"sync"

	"github.com/rshade/gridcore/datasource"
)

// Direction is the ordering direction of a single criterion.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

// String returns "asc" or "desc".
func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Criterion is one element of a composite sort order.
//
// A criterion with a non-empty Key is backend-capable: it appears in the
// backend descriptor handed to remote sources. A criterion with a Compare
// function participates in local composition. Criteria may carry both; a
// key-only criterion relies entirely on the backend, a compare-only
// criterion is invisible to it.
type Criterion[T any] struct {
	Key       string
	Direction Direction
	Compare   func(a, b T) int
}

// backendCapable reports whether the criterion can be pushed to a remote
// source.
func (c Criterion[T]) backendCapable() bool {
	return c.Key != ""
}

// Resolver maintains the ordered list of active sort criteria for one grid.
//
// Mutating calls follow the engine's single-writer discipline; the internal
// mutex only protects criteria reads (Compose, BackendDescriptor) that may
// run concurrently with rendering.
type Resolver[T any] struct {
	mu        sync.RWMutex
	criteria  []Criterion[T]
	multiSort bool
	onChange  []func()
}

// NewResolver creates an empty resolver. With multiSort enabled,
// AddSecondary appends criteria; otherwise it degrades to Toggle.
func NewResolver[T any](multiSort bool) *Resolver[T] {
	return &Resolver[T]{multiSort: multiSort}
}

// OnChange registers a hook invoked after every completed mutation. The
// engine wires this to cache invalidation: a changed order voids every
// cached position.
func (r *Resolver[T]) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = append(r.onChange, fn)
	r.mu.Unlock()
}

// Toggle cycles a column through ascending, descending, and off.
//
// When the active list is exactly [c.Key asc] the direction flips to
// descending; when it is [c.Key desc] the list clears. In every other case
// the list is replaced by the single criterion in ascending direction,
// regardless of c.Direction.
//
// Cycling matches criteria by Key, so it requires a keyed criterion. A
// compare-only criterion (empty Key) never advances past the first step:
// every Toggle replaces the list with it in ascending direction. Use
// SetCriteria to install a descending compare-only order.
func (r *Resolver[T]) Toggle(c Criterion[T]) {
	r.mu.Lock()
	if len(r.criteria) == 1 && c.Key != "" && r.criteria[0].Key == c.Key {
		switch r.criteria[0].Direction {
		case Ascending:
			r.criteria[0].Direction = Descending
		case Descending:
			r.criteria = nil
		}
	} else {
		c.Direction = Ascending
		r.criteria = []Criterion[T]{c}
	}
	r.mu.Unlock()

	r.notify()
}

// AddSecondary appends a criterion to the active list when multi-sort is
// enabled. A criterion whose key is already active updates that entry in
// place instead of appending. Without multi-sort this behaves like Toggle.
func (r *Resolver[T]) AddSecondary(c Criterion[T]) {
	if !r.multiSort {
		r.Toggle(c)
		return
	}

	r.mu.Lock()
	replaced := false
	if c.Key != "" {
		for i := range r.criteria {
			if r.criteria[i].Key == c.Key {
				r.criteria[i] = c
				replaced = true
				break
			}
		}
	}
	if !replaced {
		r.criteria = append(r.criteria, c)
	}
	r.mu.Unlock()

	r.notify()
}

// SetCriteria replaces the whole active list.
func (r *Resolver[T]) SetCriteria(criteria []Criterion[T]) {
	r.mu.Lock()
	r.criteria = make([]Criterion[T], len(criteria))
	copy(r.criteria, criteria)
	r.mu.Unlock()

	r.notify()
}

// Clear removes all criteria, restoring native fetch order.
func (r *Resolver[T]) Clear() {
	r.SetCriteria(nil)
}

// Criteria returns a copy of the active list.
func (r *Resolver[T]) Criteria() []Criterion[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Criterion[T], len(r.criteria))
	copy(out, r.criteria)
	return out
}

// Compose returns the combined comparator for the active list, applying
// criteria in order with later entries breaking ties. Criteria without a
// local comparator are skipped here; they only exist in the backend
// descriptor. Returns nil when nothing is locally comparable, meaning the
// fetch order stands.
func (r *Resolver[T]) Compose() func(a, b T) int {
	r.mu.RLock()
	local := make([]Criterion[T], 0, len(r.criteria))
	for _, c := range r.criteria {
		if c.Compare != nil {
			local = append(local, c)
		}
	}
	r.mu.RUnlock()

	if len(local) == 0 {
		return nil
	}

	return func(a, b T) int {
		for _, c := range local {
			v := c.Compare(a, b)
			if c.Direction == Descending {
				v = -v
			}
			if v != 0 {
				return v
			}
		}
		return 0
	}
}

// BackendDescriptor returns the serializable sort descriptor for remote
// sources: backend-capable criteria only, in list order. Compare-only
// criteria are excluded but still applied by Compose to returned pages.
func (r *Resolver[T]) BackendDescriptor() []datasource.SortKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]datasource.SortKey, 0, len(r.criteria))
	for _, c := range r.criteria {
		if c.backendCapable() {
			keys = append(keys, datasource.SortKey{
				Key:        c.Key,
				Descending: c.Direction == Descending,
			})
		}
	}
	return keys
}

// notify fires the change hooks outside the resolver lock so hooks may call
// back into the resolver.
func (r *Resolver[T]) notify() {
	r.mu.RLock()
	hooks := make([]func(), len(r.onChange))
	copy(hooks, r.onChange)
	r.mu.RUnlock()

	for _, fn := range hooks {
		fn()
	}
}
