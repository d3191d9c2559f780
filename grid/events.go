package grid

import (
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/rshade/gridcore/datasource"
	"github.com/rshade/gridcore/details"
	"github.com/rshade/gridcore/selection"
)

// Event is the union of engine notifications. Hosts type-switch on the
// concrete types below.
type Event interface {
	event()
}

// SelectionChanged republishes the selection model's diff event.
type SelectionChanged struct {
	selection.Changed
}

// SortChanged fires after any sort mutation. Criteria summarizes the active
// list ("name:asc", "(local)"); Descriptor is the serializable backend
// descriptor.
type SortChanged struct {
	Criteria   []string
	Descriptor []datasource.SortKey
}

// RowRefreshed fires after a single row was re-fetched in place.
type RowRefreshed struct {
	Index int
}

// RangeInvalidated fires after the cache generation was bumped.
type RangeInvalidated struct {
	Generation uint64
}

// DetailsToggled republishes a detail visibility change.
type DetailsToggled struct {
	details.Toggled
}

// CoverageLoaded fires after a fetched region [Start, End) was applied.
type CoverageLoaded struct {
	Start, End int
}

// CoverageFailed fires after a region fetch failed; affected rows are
// errored until the next coverage pass.
type CoverageFailed struct {
	Start, End int
	Err        error
}

func (SelectionChanged) event() {}
func (SortChanged) event()      {}
func (RowRefreshed) event()     {}
func (RangeInvalidated) event() {}
func (DetailsToggled) event()   {}
func (CoverageLoaded) event()   {}
func (CoverageFailed) event()   {}

// hub fans engine events out to subscribers. Unlike the selection model's
// per-mode registry, hub subscriptions survive mode switches; the engine
// re-subscribes to fresh component instances internally.
type hub struct {
	mu   sync.Mutex
	subs map[string]func(Event)
}

func newHub() *hub {
	return &hub{subs: make(map[string]func(Event))}
}

func (h *hub) subscribe(fn func(Event)) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	handle := ulid.Make().String()
	h.subs[handle] = fn
	return handle
}

func (h *hub) unsubscribe(handle string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, handle)
}

func (h *hub) publish(ev Event) {
	h.mu.Lock()
	subs := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
