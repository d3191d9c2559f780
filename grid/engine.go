package grid

import (
	"context"
	"slices"

	"github.com/rs/zerolog"

	"github.com/rshade/gridcore/datasource"
	"github.com/rshade/gridcore/details"
	"github.com/rshade/gridcore/selection"
	"github.com/rshade/gridcore/sortorder"
	"github.com/rshade/gridcore/windowcache"
)

// Column declares one addressable property of an item. Accessor output is
// the engine's whole rendering obligation; layout and markup belong to the
// host. Compare, when set, is used by ToggleColumn to build sort criteria.
type Column[T any] struct {
	Key      string
	Title    string
	Accessor func(T) string
	Compare  func(a, b T) int
}

// RowView is the host-facing view of one row: the cached row plus identity,
// per-column cells, and the row's selection/detail flags. Cells and ID are
// only populated for loaded rows.
type RowView[T any] struct {
	Index       int
	ID          string
	Item        T
	State       windowcache.RowState
	Err         error
	Cells       []string
	Selected    bool
	DetailsOpen bool
}

// config collects construction options before components are built.
type config struct {
	log              zerolog.Logger
	pageSize         int
	buffer           int
	probeIncrement   int
	selectionMode    selection.Mode
	deselectAllowed  bool
	multiSort        bool
	exclusiveDetails bool
	selectOnClick    bool
	detailsOnClick   bool
}

// Option configures an Engine.
type Option func(*config)

// WithLogger sets the engine logger, shared with the cache.
func WithLogger(log zerolog.Logger) Option {
	return func(c *config) { c.log = log }
}

// WithPageSize sets the maximum rows per fetch.
func WithPageSize(n int) Option {
	return func(c *config) { c.pageSize = n }
}

// WithBuffer sets how many rows beyond the visible range stay covered.
func WithBuffer(n int) Option {
	return func(c *config) { c.buffer = n }
}

// WithProbeIncrement sets the count estimate growth step for has-more
// sources.
func WithProbeIncrement(n int) Option {
	return func(c *config) { c.probeIncrement = n }
}

// WithSelectionMode sets the initial selection mode.
func WithSelectionMode(m selection.Mode) Option {
	return func(c *config) { c.selectionMode = m }
}

// WithDeselectAllowed permits clearing a single-mode selection.
func WithDeselectAllowed() Option {
	return func(c *config) { c.deselectAllowed = true }
}

// WithMultiSort enables secondary sort criteria.
func WithMultiSort() Option {
	return func(c *config) { c.multiSort = true }
}

// WithExclusiveDetails keeps at most one detail panel open.
func WithExclusiveDetails() Option {
	return func(c *config) { c.exclusiveDetails = true }
}

// WithSelectOnClick makes RowClick mutate the selection.
func WithSelectOnClick() Option {
	return func(c *config) { c.selectOnClick = true }
}

// WithoutDetailsOnClick disables the default RowClick detail toggle,
// independently of selection-on-click.
func WithoutDetailsOnClick() Option {
	return func(c *config) { c.detailsOnClick = false }
}

// Engine is one grid's synchronization engine. Mutating calls follow a
// single-writer discipline; fetch completions are applied by the cache
// under its own lock and surface through the event hub.
type Engine[T any] struct {
	log      zerolog.Logger
	identity datasource.Identity[T]
	columns  []Column[T]

	cache  *windowcache.Cache[T]
	sorter *sortorder.Resolver[T]
	sel    *selection.Model
	det    *details.Controller

	selectOnClick  bool
	detailsOnClick bool

	events *hub
}

// New creates an engine over the given source. A nil identity falls back to
// value-derived keys.
func New[T any](source datasource.Source[T], identity datasource.Identity[T], opts ...Option) *Engine[T] {
	cfg := config{
		log:            zerolog.Nop(),
		detailsOnClick: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if identity == nil {
		identity = datasource.DefaultIdentity[T]()
	}

	e := &Engine[T]{
		log:            cfg.log,
		identity:       identity,
		selectOnClick:  cfg.selectOnClick,
		detailsOnClick: cfg.detailsOnClick,
		events:         newHub(),
	}

	cacheOpts := []windowcache.Option[T]{
		windowcache.WithLogger[T](cfg.log),
		windowcache.WithIdentity[T](identity),
	}
	if cfg.buffer > 0 {
		cacheOpts = append(cacheOpts, windowcache.WithBuffer[T](cfg.buffer))
	}
	if cfg.probeIncrement > 0 {
		cacheOpts = append(cacheOpts, windowcache.WithProbeIncrement[T](cfg.probeIncrement))
	}
	e.cache = windowcache.New(cacheOpts...)

	e.sorter = sortorder.NewResolver[T](cfg.multiSort)
	e.cache.SetOrdering(e.sorter.BackendDescriptor, func(items []T) {
		if cmp := e.sorter.Compose(); cmp != nil {
			slices.SortStableFunc(items, cmp)
		}
	})

	selOpts := []selection.Option{selection.WithMode(cfg.selectionMode)}
	if cfg.deselectAllowed {
		selOpts = append(selOpts, selection.WithDeselectAllowed(true))
	}
	e.sel = selection.NewModel(selOpts...)

	var detOpts []details.Option
	if cfg.exclusiveDetails {
		detOpts = append(detOpts, details.WithExclusive())
	}
	e.det = details.NewController(detOpts...)

	e.cache.AddListener(cacheRelay[T]{e})
	e.sel.Subscribe(e.onSelectionChanged)
	e.det.Subscribe(e.onDetailsToggled)

	// Changed order voids every cached position; selection and details
	// survive because they are identity-keyed.
	e.sorter.OnChange(func() {
		e.cache.RefreshAll(windowcache.ReasonResort)
		e.events.publish(e.sortChangedEvent())
	})

	e.cache.Register(source, cfg.pageSize)
	return e
}

// SetColumns declares the addressable columns. Returns the engine for
// chained configuration.
func (e *Engine[T]) SetColumns(cols ...Column[T]) *Engine[T] {
	e.columns = cols
	return e
}

// Columns returns the declared columns.
func (e *Engine[T]) Columns() []Column[T] {
	return e.columns
}

// Subscribe registers an event listener on the engine hub and returns its
// handle. Hub subscriptions survive selection mode switches.
func (e *Engine[T]) Subscribe(fn func(Event)) string {
	return e.events.subscribe(fn)
}

// Unsubscribe removes an event listener by handle.
func (e *Engine[T]) Unsubscribe(handle string) {
	e.events.unsubscribe(handle)
}

// SetVisibleRange declares the rendered index range [start, end).
func (e *Engine[T]) SetVisibleRange(start, end int) error {
	return e.cache.SetVisibleRange(start, end)
}

// EnsureCoverage fetches whatever the buffered window is missing. Returns
// the number of fetches issued.
func (e *Engine[T]) EnsureCoverage(ctx context.Context) (int, error) {
	return e.cache.EnsureCoverage(ctx)
}

// Wait blocks until in-flight coverage fetches complete.
func (e *Engine[T]) Wait() {
	e.cache.Wait()
}

// Count returns the dataset size and whether it is exact.
func (e *Engine[T]) Count() (int, bool) {
	return e.cache.Count()
}

// Row returns the host-facing view of one row.
func (e *Engine[T]) Row(index int) RowView[T] {
	row := e.cache.Item(index)
	view := RowView[T]{
		Index: row.Index,
		Item:  row.Item,
		State: row.State,
		Err:   row.Err,
	}
	if row.Loaded() {
		view.ID = e.identity(row.Item)
		view.Selected = e.sel.IsSelected(view.ID)
		view.DetailsOpen = e.det.IsOpen(view.ID)
		view.Cells = make([]string, len(e.columns))
		for i, col := range e.columns {
			view.Cells[i] = col.Accessor(row.Item)
		}
	}
	return view
}

// Rows returns row views for [start, end).
func (e *Engine[T]) Rows(start, end int) []RowView[T] {
	if end < start {
		return nil
	}
	out := make([]RowView[T], 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, e.Row(i))
	}
	return out
}

// Select adds the identity to the selection as a programmatic mutation.
func (e *Engine[T]) Select(id string) error {
	return e.sel.Select(id, false)
}

// Deselect removes the identity from the selection.
func (e *Engine[T]) Deselect(id string) error {
	return e.sel.Deselect(id, false)
}

// SelectAll selects every currently loaded row identity. Multi mode only.
func (e *Engine[T]) SelectAll() error {
	rows := e.cache.LoadedRows()
	ids := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		id := e.identity(row.Item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return e.sel.SelectAll(ids, false)
}

// DeselectAll clears the selection. Multi mode only.
func (e *Engine[T]) DeselectAll() error {
	return e.sel.DeselectAll(false)
}

// Selection returns the selected identities in selection order.
func (e *Engine[T]) Selection() []string {
	return e.sel.Selected()
}

// SelectionMode returns the current selection mode.
func (e *Engine[T]) SelectionMode() selection.Mode {
	return e.sel.Mode()
}

// SetSelectionMode switches the selection mode. The selection model clears
// itself, emits one final event to its old listeners, and drops them; the
// engine immediately re-subscribes so hub subscribers keep receiving
// events across the switch.
func (e *Engine[T]) SetSelectionMode(m selection.Mode) error {
	if err := e.sel.SetMode(m); err != nil {
		return err
	}
	e.sel.Subscribe(e.onSelectionChanged)
	return nil
}

// SetSortCriteria replaces the active sort order.
func (e *Engine[T]) SetSortCriteria(criteria []sortorder.Criterion[T]) {
	e.sorter.SetCriteria(criteria)
}

// ToggleSort cycles the criterion's column through asc, desc, off.
func (e *Engine[T]) ToggleSort(c sortorder.Criterion[T]) {
	e.sorter.Toggle(c)
}

// AddSecondarySort appends a criterion when multi-sort is enabled.
func (e *Engine[T]) AddSecondarySort(c sortorder.Criterion[T]) {
	e.sorter.AddSecondary(c)
}

// ToggleColumn cycles sorting on a declared column, using the column's
// comparator for local composition. Unknown keys are ignored.
func (e *Engine[T]) ToggleColumn(key string) {
	for _, col := range e.columns {
		if col.Key == key {
			e.sorter.Toggle(sortorder.Criterion[T]{Key: col.Key, Compare: col.Compare})
			return
		}
	}
	e.log.Debug().Str("key", key).Msg("toggle for undeclared column ignored")
}

// SortCriteria returns the active criteria.
func (e *Engine[T]) SortCriteria() []sortorder.Criterion[T] {
	return e.sorter.Criteria()
}

// ClearSort removes all criteria, restoring fetch order.
func (e *Engine[T]) ClearSort() {
	e.sorter.Clear()
}

// RefreshItem re-fetches only the rows holding the identity.
func (e *Engine[T]) RefreshItem(ctx context.Context, id string) error {
	return e.cache.RefreshItem(ctx, id)
}

// RefreshAll treats the dataset as replaced: the cache is invalidated with
// a fresh count probe, the selection is cleared with one event, and every
// detail panel closes.
func (e *Engine[T]) RefreshAll() {
	e.cache.RefreshAll(windowcache.ReasonReplace)
	e.sel.Clear(false)
	e.det.Reset()
}

// ReplaceSource swaps the data source, with full replacement semantics.
func (e *Engine[T]) ReplaceSource(source datasource.Source[T], pageSize int) {
	e.cache.Register(source, pageSize)
	e.sel.Clear(false)
	e.det.Reset()
}

// ToggleDetails flips the detail panel for the identity.
func (e *Engine[T]) ToggleDetails(id string) {
	e.det.Toggle(id)
}

// DetailsOpen reports whether the identity's detail panel is open.
func (e *Engine[T]) DetailsOpen(id string) bool {
	return e.det.IsOpen(id)
}

// OpenDetails returns the identities with open panels.
func (e *Engine[T]) OpenDetails() []string {
	return e.det.OpenIDs()
}

// RowClick handles a user click on the row at index. Selection-on-click
// and details-on-click apply independently per configuration; clicks on
// rows that are not loaded are ignored. Selection mutations carry the
// from-client flag.
func (e *Engine[T]) RowClick(index int) {
	row := e.cache.Item(index)
	if !row.Loaded() {
		return
	}
	id := e.identity(row.Item)

	if e.selectOnClick {
		if e.sel.IsSelected(id) {
			// Clicking a selected row deselects where the mode allows it.
			if err := e.sel.Deselect(id, true); err != nil {
				e.log.Debug().Err(err).Str("id", id).Msg("click deselect rejected")
			}
		} else if err := e.sel.Select(id, true); err != nil {
			e.log.Debug().Err(err).Str("id", id).Msg("click select rejected")
		}
	}

	if e.detailsOnClick {
		e.det.Toggle(id)
	}
}

// sortChangedEvent builds the SortChanged payload from the active list.
func (e *Engine[T]) sortChangedEvent() SortChanged {
	criteria := e.sorter.Criteria()
	summary := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if c.Key == "" {
			summary = append(summary, "(local)")
			continue
		}
		summary = append(summary, c.Key+":"+c.Direction.String())
	}
	return SortChanged{Criteria: summary, Descriptor: e.sorter.BackendDescriptor()}
}

func (e *Engine[T]) onSelectionChanged(ch selection.Changed) {
	e.events.publish(SelectionChanged{ch})
}

func (e *Engine[T]) onDetailsToggled(t details.Toggled) {
	e.events.publish(DetailsToggled{t})
}

// cacheRelay adapts the engine to the cache listener interface without
// exposing those methods on Engine itself.
type cacheRelay[T any] struct {
	e *Engine[T]
}

func (r cacheRelay[T]) RowRefreshed(index int) {
	r.e.events.publish(RowRefreshed{Index: index})
}

func (r cacheRelay[T]) RangeInvalidated(generation uint64) {
	r.e.events.publish(RangeInvalidated{Generation: generation})
}

func (r cacheRelay[T]) CoverageLoaded(start, end int) {
	r.e.events.publish(CoverageLoaded{Start: start, End: end})
}

func (r cacheRelay[T]) CoverageFailed(start, end int, err error) {
	r.e.events.publish(CoverageFailed{Start: start, End: end, Err: err})
}
