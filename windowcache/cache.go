package windowcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rshade/gridcore/datasource"
)

// Defaults applied when options or Register leave values unset.
const (
	defaultPageSize       = 50
	defaultBuffer         = 10
	defaultProbeIncrement = 100
)

// Common cache errors.
var (
	ErrNoSource     = errors.New("no data source registered")
	ErrInvalidRange = errors.New("invalid visible range")
)

// entry is the cached state of one index.
type entry[T any] struct {
	item  T
	state RowState
	err   error
}

// Cache is the lazy windowed data cache. One instance serves one grid.
//
// All state transitions happen under the cache mutex, which is the Go
// rendition of marshaling fetch results back onto the owning serialization
// context: worker goroutines fetch without the lock and apply with it.
type Cache[T any] struct {
	mu  sync.Mutex
	log zerolog.Logger

	source   datasource.Source[T]
	identity datasource.Identity[T]
	pageSize int
	buffer   int

	generation uint64
	rows       map[int]*entry[T]

	visibleStart int
	visibleEnd   int
	hasRange     bool

	// count is exact when countExact is set, otherwise a lower-bound
	// estimate grown by probeIncrement at the known edge.
	count          int
	countExact     bool
	probeIncrement int
	highestLoaded  int

	// descriptor and reorder are supplied by the sort resolver: descriptor
	// feeds remote ordering, reorder applies local-only criteria to each
	// returned page.
	descriptor func() []datasource.SortKey
	reorder    func([]T)

	listeners []Listener

	// refreshFlight coalesces concurrent RefreshItem calls per identity.
	refreshFlight singleflight.Group
	// inflight tracks region fetches so tests and hosts can await quiescence.
	inflight sync.WaitGroup
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithLogger sets the cache logger. Defaults to a disabled logger.
func WithLogger[T any](log zerolog.Logger) Option[T] {
	return func(c *Cache[T]) {
		c.log = log
	}
}

// WithBuffer sets how many rows beyond each end of the visible range are
// kept covered.
func WithBuffer[T any](rows int) Option[T] {
	return func(c *Cache[T]) {
		if rows >= 0 {
			c.buffer = rows
		}
	}
}

// WithProbeIncrement sets the growth step of the count estimate for
// sources that only report "has more".
func WithProbeIncrement[T any](n int) Option[T] {
	return func(c *Cache[T]) {
		if n > 0 {
			c.probeIncrement = n
		}
	}
}

// WithIdentity sets the identity function used by RefreshItem.
func WithIdentity[T any](fn datasource.Identity[T]) Option[T] {
	return func(c *Cache[T]) {
		if fn != nil {
			c.identity = fn
		}
	}
}

// New creates an empty cache. A source must be registered before coverage
// can be ensured.
func New[T any](opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		log:            zerolog.Nop(),
		identity:       datasource.DefaultIdentity[T](),
		pageSize:       defaultPageSize,
		buffer:         defaultBuffer,
		probeIncrement: defaultProbeIncrement,
		rows:           make(map[int]*entry[T]),
		highestLoaded:  -1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOrdering installs the sort hooks. The engine wires these to its
// resolver once at construction.
func (c *Cache[T]) SetOrdering(descriptor func() []datasource.SortKey, reorder func([]T)) {
	c.mu.Lock()
	c.descriptor = descriptor
	c.reorder = reorder
	c.mu.Unlock()
}

// Register binds a fetch capability and page size. Registering over an
// existing source behaves like a dataset replacement: the generation is
// bumped and all cached pages are discarded.
func (c *Cache[T]) Register(source datasource.Source[T], pageSize int) {
	c.mu.Lock()
	c.source = source
	if pageSize > 0 {
		c.pageSize = pageSize
	}
	gen := c.invalidateLocked(ReasonReplace)
	size := c.pageSize
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.log.Debug().Uint64("generation", gen).Int("page_size", size).Msg("source registered")
	notifyInvalidated(listeners, gen)
}

// AddListener registers a cache listener.
func (c *Cache[T]) AddListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// RemoveListener unregisters a cache listener.
func (c *Cache[T]) RemoveListener(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, listener := range c.listeners {
		if listener == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			return
		}
	}
}

// SetVisibleRange declares the half-open index range [start, end) the host
// is rendering. Coverage is not fetched until EnsureCoverage runs.
func (c *Cache[T]) SetVisibleRange(start, end int) error {
	if start < 0 || end < start {
		return fmt.Errorf("%w: [%d, %d)", ErrInvalidRange, start, end)
	}
	c.mu.Lock()
	c.visibleStart = start
	c.visibleEnd = end
	c.hasRange = true
	c.mu.Unlock()
	return nil
}

// VisibleRange returns the declared visible range.
func (c *Cache[T]) VisibleRange() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visibleStart, c.visibleEnd
}

// EnsureCoverage computes the uncovered contiguous regions inside the
// buffered window and issues one asynchronous fetch per region, split into
// chunks of at most the page size. Rows already loaded or in flight are
// untouched; errored rows are re-attempted. Returns the number of fetches
// issued, which is zero when the window is fully covered.
func (c *Cache[T]) EnsureCoverage(ctx context.Context) (int, error) {
	c.mu.Lock()

	if c.source == nil {
		c.mu.Unlock()
		return 0, ErrNoSource
	}
	if !c.hasRange {
		c.mu.Unlock()
		return 0, nil
	}

	start := c.visibleStart - c.buffer
	if start < 0 {
		start = 0
	}
	end := c.visibleEnd + c.buffer

	if c.countExact {
		if end > c.count {
			end = c.count
		}
	} else if end > c.count {
		// Edge probe: grow the estimate so the host can keep scrolling.
		c.count = end + c.probeIncrement
	}

	regions := c.uncoveredLocked(start, end)
	if len(regions) == 0 {
		c.mu.Unlock()
		return 0, nil
	}

	gen := c.generation
	desc := c.descriptorSnapshotLocked()
	reorder := c.reorder
	source := c.source

	for _, r := range regions {
		for i := r.start; i < r.end; i++ {
			e := c.rows[i]
			if e == nil {
				e = &entry[T]{}
				c.rows[i] = e
			}
			e.state = RowPending
			e.err = nil
		}
	}
	c.mu.Unlock()

	for _, r := range regions {
		c.inflight.Add(1)
		go c.fetchRegion(ctx, source, gen, r.start, r.end-r.start, desc, reorder)
	}

	c.log.Debug().
		Uint64("generation", gen).
		Int("fetches", len(regions)).
		Int("window_start", start).
		Int("window_end", end).
		Msg("coverage fetches issued")

	return len(regions), nil
}

// region is a half-open index range.
type region struct {
	start, end int
}

// uncoveredLocked returns the uncovered contiguous runs within [start, end),
// split into page-size chunks. Pending and loaded rows count as covered,
// errored and missing rows do not. Caller holds the lock.
func (c *Cache[T]) uncoveredLocked(start, end int) []region {
	var regions []region
	runStart := -1

	flush := func(upTo int) {
		if runStart < 0 {
			return
		}
		for s := runStart; s < upTo; s += c.pageSize {
			e := s + c.pageSize
			if e > upTo {
				e = upTo
			}
			regions = append(regions, region{start: s, end: e})
		}
		runStart = -1
	}

	for i := start; i < end; i++ {
		e := c.rows[i]
		covered := e != nil && (e.state == RowPending || e.state == RowLoaded)
		if covered {
			flush(i)
			continue
		}
		if runStart < 0 {
			runStart = i
		}
	}
	flush(end)

	return regions
}

// fetchRegion performs one region fetch and applies the result if the
// generation still matches.
func (c *Cache[T]) fetchRegion(
	ctx context.Context,
	source datasource.Source[T],
	gen uint64,
	offset, limit int,
	desc []datasource.SortKey,
	reorder func([]T),
) {
	defer c.inflight.Done()

	res, err := source.Fetch(ctx, datasource.Request{Offset: offset, Limit: limit, Sort: desc})
	if err != nil {
		c.failRegion(gen, offset, limit, err)
		return
	}

	if reorder != nil && len(res.Items) > 1 {
		reorder(res.Items)
	}

	c.applyRegion(gen, offset, limit, res)
}

// failRegion marks the requested rows errored, unless the generation moved
// on in the meantime.
func (c *Cache[T]) failRegion(gen uint64, offset, limit int, err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug().Uint64("generation", gen).Msg("stale fetch failure dropped")
		return
	}
	for i := offset; i < offset+limit; i++ {
		if e := c.rows[i]; e != nil && e.state == RowPending {
			e.state = RowErrored
			e.err = err
		}
	}
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.log.Warn().Err(err).Int("offset", offset).Int("limit", limit).Msg("region fetch failed")
	for _, l := range listeners {
		l.CoverageFailed(offset, offset+limit, err)
	}
}

// applyRegion installs fetched items and updates count bookkeeping. Stale
// generations are dropped silently; that is the cache's cancellation
// mechanism, not an error.
func (c *Cache[T]) applyRegion(gen uint64, offset, limit int, res datasource.Result[T]) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Debug().
			Uint64("fetched", gen).
			Uint64("current", c.generation).
			Msg("stale fetch response dropped")
		return
	}

	for i, item := range res.Items {
		idx := offset + i
		e := c.rows[idx]
		if e == nil {
			e = &entry[T]{}
			c.rows[idx] = e
		}
		e.item = item
		e.state = RowLoaded
		e.err = nil
		if idx > c.highestLoaded {
			c.highestLoaded = idx
		}
	}

	// Rows requested but not returned are beyond the dataset end; drop
	// their pending markers.
	for i := offset + len(res.Items); i < offset+limit; i++ {
		if e := c.rows[i]; e != nil && e.state == RowPending {
			delete(c.rows, i)
		}
	}

	switch {
	case res.HasTotal:
		c.count = res.Total
		c.countExact = true
	case !res.HasMore:
		// The source ran dry: the dataset ends here. Clamp to the highest
		// row ever observed valid so the count never goes below it.
		exact := offset + len(res.Items)
		if exact < c.highestLoaded+1 {
			exact = c.highestLoaded + 1
		}
		c.count = exact
		c.countExact = true
	default:
		// More rows exist past this page. A short page here only means the
		// source capped the response; the count stays a growing lower bound
		// and the missing tail is re-requested by the next coverage pass.
		if offset+len(res.Items) > c.count {
			c.count = offset + len(res.Items)
		}
	}

	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l.CoverageLoaded(offset, offset+len(res.Items))
	}
}

// Item returns the cached row at the index. A pending marker is returned
// for rows whose fetch is in flight; callers are expected to have ensured
// coverage first. Indexes beyond an exact count are missing.
func (c *Cache[T]) Item(index int) Row[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := Row[T]{Index: index, State: RowMissing}
	if index < 0 || (c.countExact && index >= c.count) {
		return row
	}
	if e := c.rows[index]; e != nil {
		row.Item = e.item
		row.State = e.state
		row.Err = e.err
	}
	return row
}

// LoadedRows returns every loaded row ordered by index. The engine uses
// this to enumerate the identity universe for select-all.
func (c *Cache[T]) LoadedRows() []Row[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Row[T], 0, len(c.rows))
	for idx, e := range c.rows {
		if e.state == RowLoaded {
			out = append(out, Row[T]{Index: idx, Item: e.item, State: RowLoaded})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// RefreshItem re-fetches only the rows currently holding the identity,
// leaving the rest of the cache untouched. Concurrent refreshes for the
// same identity are coalesced into one. Rows that vanished from the source
// become missing. Synchronous: returns once all affected rows are applied.
func (c *Cache[T]) RefreshItem(ctx context.Context, id string) error {
	_, err, _ := c.refreshFlight.Do(id, func() (any, error) {
		return nil, c.refreshItem(ctx, id)
	})
	return err
}

func (c *Cache[T]) refreshItem(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.source == nil {
		c.mu.Unlock()
		return ErrNoSource
	}

	var indexes []int
	for idx, e := range c.rows {
		if e.state == RowLoaded && c.identity(e.item) == id {
			indexes = append(indexes, idx)
		}
	}
	for _, idx := range indexes {
		c.rows[idx].state = RowPending
	}

	gen := c.generation
	desc := c.descriptorSnapshotLocked()
	source := c.source
	c.mu.Unlock()

	if len(indexes) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, idx := range indexes {
		g.Go(func() error {
			res, err := source.Fetch(gctx, datasource.Request{Offset: idx, Limit: 1, Sort: desc})
			if err != nil {
				c.failRegion(gen, idx, 1, err)
				return fmt.Errorf("refresh of row %d failed: %w", idx, err)
			}
			c.applyRow(gen, idx, res.Items)
			return nil
		})
	}
	return g.Wait()
}

// applyRow installs a single refreshed row and fires RowRefreshed.
func (c *Cache[T]) applyRow(gen uint64, idx int, items []T) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if len(items) == 0 {
		delete(c.rows, idx)
	} else {
		e := c.rows[idx]
		if e == nil {
			e = &entry[T]{}
			c.rows[idx] = e
		}
		e.item = items[0]
		e.state = RowLoaded
		e.err = nil
	}
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, l := range listeners {
		l.RowRefreshed(idx)
	}
}

// RefreshAll bumps the generation, discards every cached page and pending
// marker, and notifies listeners. In-flight responses from the previous
// generation become inert. A replacement additionally resets the count so
// the next coverage pass re-probes; a resort keeps it, since reordering
// does not change cardinality.
func (c *Cache[T]) RefreshAll(reason RefreshReason) {
	c.mu.Lock()
	gen := c.invalidateLocked(reason)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	c.log.Debug().Uint64("generation", gen).Stringer("reason", reason).Msg("cache invalidated")
	notifyInvalidated(listeners, gen)
}

// invalidateLocked performs the generation bump. Caller holds the lock.
func (c *Cache[T]) invalidateLocked(reason RefreshReason) uint64 {
	c.generation++
	c.rows = make(map[int]*entry[T])
	c.highestLoaded = -1
	if reason == ReasonReplace {
		c.count = 0
		c.countExact = false
	}
	return c.generation
}

// Count returns the current dataset size and whether it is exact. Inexact
// values are the lower-bound estimate.
func (c *Cache[T]) Count() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.countExact
}

// ProbeCount asks the source for an exact count when it supports the
// capability. Returns false when the source cannot answer.
func (c *Cache[T]) ProbeCount(ctx context.Context, filter string) (int, bool, error) {
	c.mu.Lock()
	source := c.source
	gen := c.generation
	c.mu.Unlock()

	counter, ok := source.(datasource.ExactCounter)
	if !ok {
		return 0, false, nil
	}

	n, err := counter.CountExact(ctx, filter)
	if err != nil {
		return 0, false, fmt.Errorf("count probe failed: %w", err)
	}

	c.mu.Lock()
	if gen == c.generation {
		c.count = n
		c.countExact = true
	}
	c.mu.Unlock()
	return n, true, nil
}

// Generation returns the current cache generation.
func (c *Cache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Wait blocks until every in-flight region fetch has completed. Responses
// may still be dropped as stale; Wait only guarantees quiescence.
func (c *Cache[T]) Wait() {
	c.inflight.Wait()
}

// descriptorSnapshotLocked captures the backend descriptor for a fetch.
// Caller holds the lock.
func (c *Cache[T]) descriptorSnapshotLocked() []datasource.SortKey {
	if c.descriptor == nil {
		return nil
	}
	return c.descriptor()
}

// snapshotListeners copies the listener slice. Caller holds the lock.
func (c *Cache[T]) snapshotListeners() []Listener {
	out := make([]Listener, len(c.listeners))
	copy(out, c.listeners)
	return out
}

func notifyInvalidated(listeners []Listener, gen uint64) {
	for _, l := range listeners {
		l.RangeInvalidated(gen)
	}
}
