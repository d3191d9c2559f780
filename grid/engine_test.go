package grid

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/gridcore/datasource"
	"github.com/rshade/gridcore/selection"
	"github.com/rshade/gridcore/sortorder"
	"github.com/rshade/gridcore/windowcache"
)

type app struct {
	ID      int
	Name    string
	Version string
}

func appIdentity(a app) string { return fmt.Sprint(a.ID) }

func testApps() []app {
	return []app{
		{ID: 1, Name: "zeta", Version: "1.2.0"},
		{ID: 2, Name: "alpha", Version: "1.10.0"},
		{ID: 3, Name: "mid", Version: "1.9.0"},
	}
}

func appSource() *datasource.SliceSource[app] {
	src := datasource.NewSliceSource(testApps())
	src.Comparator("name", func(a, b app) int { return strings.Compare(a.Name, b.Name) }).
		Comparator("version", func(a, b app) int { return sortorder.CompareSemver(a.Version, b.Version) })
	return src
}

func appColumns() []Column[app] {
	return []Column[app]{
		{Key: "name", Title: "Name", Accessor: func(a app) string { return a.Name },
			Compare: func(a, b app) int { return strings.Compare(a.Name, b.Name) }},
		{Key: "version", Title: "Version", Accessor: func(a app) string { return a.Version },
			Compare: func(a, b app) int { return sortorder.CompareSemver(a.Version, b.Version) }},
	}
}

// eventTap records engine events by type.
type eventTap struct {
	events []Event
}

func (t *eventTap) fn() func(Event) {
	return func(ev Event) { t.events = append(t.events, ev) }
}

func (t *eventTap) ofType(match func(Event) bool) []Event {
	var out []Event
	for _, ev := range t.events {
		if match(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func (t *eventTap) selectionEvents() []SelectionChanged {
	var out []SelectionChanged
	for _, ev := range t.events {
		if sc, ok := ev.(SelectionChanged); ok {
			out = append(out, sc)
		}
	}
	return out
}

func newTestEngine(t *testing.T, opts ...Option) *Engine[app] {
	t.Helper()
	e := New(appSource(), appIdentity, opts...).SetColumns(appColumns()...)
	require.NoError(t, e.SetVisibleRange(0, 3))
	_, err := e.EnsureCoverage(context.Background())
	require.NoError(t, err)
	e.Wait()
	return e
}

func TestRowView(t *testing.T) {
	e := newTestEngine(t)

	row := e.Row(0)
	assert.True(t, row.State == windowcache.RowLoaded)
	assert.Equal(t, "1", row.ID)
	assert.Equal(t, []string{"zeta", "1.2.0"}, row.Cells)
	assert.False(t, row.Selected)
	assert.False(t, row.DetailsOpen)

	count, exact := e.Count()
	assert.True(t, exact)
	assert.Equal(t, 3, count)

	rows := e.Rows(0, 3)
	require.Len(t, rows, 3)
	assert.Equal(t, "3", rows[2].ID)

	missing := e.Row(99)
	assert.Equal(t, windowcache.RowMissing, missing.State)
	assert.Empty(t, missing.ID)
	assert.Nil(t, missing.Cells)
}

func TestResortKeepsSelectionAndDetails(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeMulti))
	require.NoError(t, e.Select("2"))
	e.ToggleDetails("2")

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	e.ToggleColumn("name")
	e.Wait()

	// Positions are invalid but identity-keyed state survives.
	assert.Equal(t, []string{"2"}, e.Selection())
	assert.True(t, e.DetailsOpen("2"))
	assert.Empty(t, tap.selectionEvents(), "a resort must not clear selection")

	invalidated := tap.ofType(func(ev Event) bool { _, ok := ev.(RangeInvalidated); return ok })
	assert.Len(t, invalidated, 1)

	sorts := tap.ofType(func(ev Event) bool { _, ok := ev.(SortChanged); return ok })
	require.Len(t, sorts, 1)
	sc, _ := sorts[0].(SortChanged)
	assert.Equal(t, []string{"name:asc"}, sc.Criteria)
	require.Len(t, sc.Descriptor, 1)
	assert.Equal(t, "name", sc.Descriptor[0].Key)
}

func TestResortReordersRows(t *testing.T) {
	e := newTestEngine(t)

	e.ToggleColumn("name")
	_, err := e.EnsureCoverage(context.Background())
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, "alpha", e.Row(0).Cells[0])
	assert.Equal(t, "zeta", e.Row(2).Cells[0])

	t.Run("SemverColumn", func(t *testing.T) {
		e.ToggleColumn("version")
		_, err := e.EnsureCoverage(context.Background())
		require.NoError(t, err)
		e.Wait()

		assert.Equal(t, "1.2.0", e.Row(0).Cells[1])
		assert.Equal(t, "1.10.0", e.Row(2).Cells[1])
	})

	t.Run("ClearRestoresFetchOrder", func(t *testing.T) {
		e.ClearSort()
		_, err := e.EnsureCoverage(context.Background())
		require.NoError(t, err)
		e.Wait()

		assert.Equal(t, "zeta", e.Row(0).Cells[0])
		assert.Equal(t, "mid", e.Row(2).Cells[0])
	})
}

func TestReplaceClearsSelectionAndDetails(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeMulti))
	require.NoError(t, e.Select("1"))
	e.ToggleDetails("1")

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	e.RefreshAll()

	assert.Empty(t, e.Selection())
	assert.Empty(t, e.OpenDetails())

	selEvents := tap.selectionEvents()
	require.Len(t, selEvents, 1)
	assert.Equal(t, []string{"1"}, selEvents[0].Removed)
	assert.Empty(t, selEvents[0].Selection)

	toggles := tap.ofType(func(ev Event) bool { _, ok := ev.(DetailsToggled); return ok })
	require.Len(t, toggles, 1)
	dt, _ := toggles[0].(DetailsToggled)
	assert.False(t, dt.Visible)
}

func TestReplaceSource(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeSingle))
	require.NoError(t, e.Select("1"))

	replacement := datasource.NewSliceSource([]app{{ID: 9, Name: "solo", Version: "0.1.0"}})
	e.ReplaceSource(replacement, 10)

	assert.Empty(t, e.Selection())

	require.NoError(t, e.SetVisibleRange(0, 1))
	_, err := e.EnsureCoverage(context.Background())
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, "9", e.Row(0).ID)
	count, exact := e.Count()
	assert.True(t, exact)
	assert.Equal(t, 1, count)
}

func TestSelectAllOverLoadedRows(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeMulti))

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	require.NoError(t, e.SelectAll())

	selEvents := tap.selectionEvents()
	require.Len(t, selEvents, 1)
	assert.Equal(t, []string{"1", "2", "3"}, selEvents[0].Added)
	assert.Empty(t, selEvents[0].Removed)
	assert.Equal(t, []string{"1", "2", "3"}, selEvents[0].Selection)

	require.NoError(t, e.DeselectAll())
	assert.Empty(t, e.Selection())
}

func TestSelectAllOutsideMulti(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeSingle))

	assert.ErrorIs(t, e.SelectAll(), selection.ErrInvalidOperation)
	assert.ErrorIs(t, e.DeselectAll(), selection.ErrInvalidOperation)
	assert.Empty(t, e.Selection())
}

func TestSetSelectionModeKeepsHubAlive(t *testing.T) {
	e := newTestEngine(t, WithSelectionMode(selection.ModeMulti))
	require.NoError(t, e.Select("1"))

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	// Mode switch: one clearing event, then the hub keeps receiving events
	// from the fresh selection instance.
	require.NoError(t, e.SetSelectionMode(selection.ModeSingle))
	require.NoError(t, e.Select("2"))

	selEvents := tap.selectionEvents()
	require.Len(t, selEvents, 2)
	assert.Equal(t, []string{"1"}, selEvents[0].Removed)
	assert.Empty(t, selEvents[0].Selection)
	assert.Equal(t, []string{"2"}, selEvents[1].Added)

	assert.Equal(t, selection.ModeSingle, e.SelectionMode())

	t.Run("InvalidMode", func(t *testing.T) {
		err := e.SetSelectionMode(selection.Mode(7))
		assert.ErrorIs(t, err, selection.ErrInvalidConfiguration)
		assert.Equal(t, selection.ModeSingle, e.SelectionMode())
	})
}

func TestRowClick(t *testing.T) {
	t.Run("DetailsByDefault", func(t *testing.T) {
		e := newTestEngine(t)
		e.RowClick(0)
		assert.True(t, e.DetailsOpen("1"))
		e.RowClick(0)
		assert.False(t, e.DetailsOpen("1"))
	})

	t.Run("SelectOnClick", func(t *testing.T) {
		e := newTestEngine(t,
			WithSelectionMode(selection.ModeMulti),
			WithSelectOnClick(),
			WithoutDetailsOnClick(),
		)
		tap := &eventTap{}
		e.Subscribe(tap.fn())

		e.RowClick(1)
		assert.Equal(t, []string{"2"}, e.Selection())
		assert.Empty(t, e.OpenDetails())

		// Clicking again toggles the membership off.
		e.RowClick(1)
		assert.Empty(t, e.Selection())

		selEvents := tap.selectionEvents()
		require.Len(t, selEvents, 2)
		assert.True(t, selEvents[0].FromClient)
		assert.True(t, selEvents[1].FromClient)
	})

	t.Run("UnloadedRowIgnored", func(t *testing.T) {
		e := newTestEngine(t)
		e.RowClick(50)
		assert.Empty(t, e.OpenDetails())
	})

	t.Run("SingleModeClickKeepsSelectionWhenDeselectDisallowed", func(t *testing.T) {
		e := newTestEngine(t,
			WithSelectionMode(selection.ModeSingle),
			WithSelectOnClick(),
			WithoutDetailsOnClick(),
		)
		e.RowClick(0)
		assert.Equal(t, []string{"1"}, e.Selection())

		// Second click attempts a deselect, which single mode rejects.
		e.RowClick(0)
		assert.Equal(t, []string{"1"}, e.Selection())
	})
}

func TestExclusiveDetailsSurviveResort(t *testing.T) {
	e := newTestEngine(t, WithExclusiveDetails())

	e.ToggleDetails("2")
	e.ToggleColumn("name")
	e.Wait()

	// Identity-keyed: the open panel relocated with its item.
	assert.Equal(t, []string{"2"}, e.OpenDetails())

	e.ToggleDetails("3")
	assert.Equal(t, []string{"3"}, e.OpenDetails())
}

func TestRefreshItemEmitsRowRefreshed(t *testing.T) {
	src := appSource()
	e := New(src, appIdentity).SetColumns(appColumns()...)
	require.NoError(t, e.SetVisibleRange(0, 3))
	_, err := e.EnsureCoverage(context.Background())
	require.NoError(t, err)
	e.Wait()

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	items := testApps()
	items[1].Name = "renamed"
	src.SetItems(items)

	require.NoError(t, e.RefreshItem(context.Background(), "2"))

	assert.Equal(t, "renamed", e.Row(1).Cells[0])
	refreshed := tap.ofType(func(ev Event) bool { _, ok := ev.(RowRefreshed); return ok })
	require.Len(t, refreshed, 1)
	rr, _ := refreshed[0].(RowRefreshed)
	assert.Equal(t, 1, rr.Index)
}

func TestAddSecondarySort(t *testing.T) {
	e := newTestEngine(t, WithMultiSort())

	e.ToggleSort(sortorder.Criterion[app]{Key: "name"})
	e.AddSecondarySort(sortorder.Criterion[app]{Key: "version", Direction: sortorder.Descending})

	criteria := e.SortCriteria()
	require.Len(t, criteria, 2)
	assert.Equal(t, "name", criteria[0].Key)
	assert.Equal(t, "version", criteria[1].Key)
	assert.Equal(t, sortorder.Descending, criteria[1].Direction)
}

func TestToggleUndeclaredColumnIgnored(t *testing.T) {
	e := newTestEngine(t)

	tap := &eventTap{}
	e.Subscribe(tap.fn())

	e.ToggleColumn("ghost")
	assert.Empty(t, tap.events)
	assert.Empty(t, e.SortCriteria())
}
