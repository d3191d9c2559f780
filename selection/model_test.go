package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects emitted events.
type recorder struct {
	events []Changed
}

func (r *recorder) fn() ListenerFunc {
	return func(ev Changed) { r.events = append(r.events, ev) }
}

func TestParseMode(t *testing.T) {
	for name, want := range map[string]Mode{
		"none":   ModeNone,
		"single": ModeSingle,
		"multi":  ModeMulti,
	} {
		got, err := ParseMode(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, name, got.String())
	}

	_, err := ParseMode("lasso")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSetModeAlwaysClearsAndEmitsOnce(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	require.NoError(t, m.Select("a", false))
	require.NoError(t, m.Select("b", false))

	rec := &recorder{}
	m.Subscribe(rec.fn())

	// Same mode still clears and still emits exactly one event.
	require.NoError(t, m.SetMode(ModeMulti))
	require.Len(t, rec.events, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, rec.events[0].Removed)
	assert.Empty(t, rec.events[0].Added)
	assert.Empty(t, rec.events[0].Selection)
	assert.Empty(t, m.Selected())

	// The old registration died with the mode instance.
	require.NoError(t, m.Select("c", false))
	assert.Len(t, rec.events, 1)
}

func TestSetModeInvalid(t *testing.T) {
	m := NewModel(WithMode(ModeSingle))
	require.NoError(t, m.Select("a", false))

	err := m.SetMode(Mode(42))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Equal(t, []string{"a"}, m.Selected())
	assert.Equal(t, ModeSingle, m.Mode())
}

func TestSelectInNoneMode(t *testing.T) {
	m := NewModel()
	rec := &recorder{}
	m.Subscribe(rec.fn())

	require.NoError(t, m.Select("a", false))
	require.NoError(t, m.Deselect("a", false))
	assert.Empty(t, m.Selected())
	assert.Empty(t, rec.events)
}

func TestSingleMode(t *testing.T) {
	t.Run("ReplaceHeld", func(t *testing.T) {
		m := NewModel(WithMode(ModeSingle))
		rec := &recorder{}
		m.Subscribe(rec.fn())

		require.NoError(t, m.Select("a", false))
		require.NoError(t, m.Select("b", false))

		require.Len(t, rec.events, 2)
		assert.Equal(t, []string{"b"}, rec.events[1].Added)
		assert.Equal(t, []string{"a"}, rec.events[1].Removed)
		assert.Equal(t, []string{"b"}, m.Selected())
	})

	t.Run("ReselectHeldIsNoOp", func(t *testing.T) {
		m := NewModel(WithMode(ModeSingle))
		rec := &recorder{}
		m.Subscribe(rec.fn())

		require.NoError(t, m.Select("a", false))
		require.NoError(t, m.Select("a", false))
		assert.Len(t, rec.events, 1)
	})

	t.Run("DeselectDisallowed", func(t *testing.T) {
		m := NewModel(WithMode(ModeSingle))
		rec := &recorder{}
		m.Subscribe(rec.fn())

		require.NoError(t, m.Select("a", false))

		// select(nothing) with deselection disallowed: rejected, state
		// unchanged, no event.
		err := m.Select("", false)
		assert.ErrorIs(t, err, ErrInvalidOperation)
		assert.Equal(t, []string{"a"}, m.Selected())
		assert.Len(t, rec.events, 1)

		err = m.Deselect("a", false)
		assert.ErrorIs(t, err, ErrInvalidOperation)
		assert.Equal(t, []string{"a"}, m.Selected())
	})

	t.Run("DeselectAllowed", func(t *testing.T) {
		m := NewModel(WithMode(ModeSingle), WithDeselectAllowed(true))
		require.NoError(t, m.Select("a", false))

		require.NoError(t, m.Select("", false))
		assert.Empty(t, m.Selected())

		require.NoError(t, m.Select("b", false))
		require.NoError(t, m.Deselect("b", false))
		assert.Empty(t, m.Selected())
	})

	t.Run("SelectAllRejected", func(t *testing.T) {
		m := NewModel(WithMode(ModeSingle))
		require.NoError(t, m.Select("a", false))

		assert.ErrorIs(t, m.SelectAll([]string{"a", "b"}, false), ErrInvalidOperation)
		assert.ErrorIs(t, m.DeselectAll(false), ErrInvalidOperation)
		assert.Equal(t, []string{"a"}, m.Selected())
	})
}

func TestMultiModeNetEffect(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	rec := &recorder{}
	m.Subscribe(rec.fn())

	require.NoError(t, m.Select("a", false))
	require.NoError(t, m.Select("b", false))
	require.NoError(t, m.Select("a", false)) // idempotent, no event
	require.NoError(t, m.Deselect("b", false))
	require.NoError(t, m.Deselect("b", false)) // idempotent, no event
	require.NoError(t, m.Select("c", false))

	assert.Equal(t, []string{"a", "c"}, m.Selected())
	assert.Len(t, rec.events, 4)

	for _, ev := range rec.events {
		assert.NotEmpty(t, append(ev.Added, ev.Removed...), "every event must carry a diff")
	}
}

func TestMultiSelectAll(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	rec := &recorder{}
	m.Subscribe(rec.fn())

	require.NoError(t, m.SelectAll([]string{"x", "y", "z"}, false))

	require.Len(t, rec.events, 1)
	assert.Equal(t, []string{"x", "y", "z"}, rec.events[0].Added)
	assert.Empty(t, rec.events[0].Removed)
	assert.Equal(t, []string{"x", "y", "z"}, rec.events[0].Selection)

	// All already selected: idempotent, no event.
	require.NoError(t, m.SelectAll([]string{"x", "y", "z"}, false))
	assert.Len(t, rec.events, 1)

	require.NoError(t, m.DeselectAll(false))
	require.Len(t, rec.events, 2)
	assert.ElementsMatch(t, []string{"x", "y", "z"}, rec.events[1].Removed)

	// Empty selection: DeselectAll fires nothing.
	require.NoError(t, m.DeselectAll(false))
	assert.Len(t, rec.events, 2)
}

func TestClearAlwaysEmits(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	rec := &recorder{}
	m.Subscribe(rec.fn())

	require.NoError(t, m.Select("a", false))
	m.Clear(false)
	require.Len(t, rec.events, 2)
	assert.Equal(t, []string{"a"}, rec.events[1].Removed)

	// Dataset replacement clears even an empty selection, with one event.
	m.Clear(false)
	assert.Len(t, rec.events, 3)
	assert.Empty(t, rec.events[2].Removed)
}

func TestFromClientFlag(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	rec := &recorder{}
	m.Subscribe(rec.fn())

	require.NoError(t, m.Select("a", true))
	require.NoError(t, m.Select("b", false))

	require.Len(t, rec.events, 2)
	assert.True(t, rec.events[0].FromClient)
	assert.False(t, rec.events[1].FromClient)
}

func TestUnsubscribe(t *testing.T) {
	m := NewModel(WithMode(ModeMulti))
	rec := &recorder{}
	handle := m.Subscribe(rec.fn())
	m.Unsubscribe(handle)

	require.NoError(t, m.Select("a", false))
	assert.Empty(t, rec.events)
}
