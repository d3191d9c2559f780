package selection

import (
	"errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Common selection errors.
var (
	// ErrInvalidOperation is reported for operations that are not valid in
	// the current mode (SelectAll/DeselectAll outside multi, deselecting
	// when deselection is disallowed). State is unchanged and no event
	// fires.
	ErrInvalidOperation = errors.New("operation not valid in current selection mode")

	// ErrInvalidConfiguration is reported for unsupported mode values.
	ErrInvalidConfiguration = errors.New("unsupported selection mode")
)

// Mode is the selection mode of a Model.
type Mode int

// Selection modes.
const (
	// ModeNone disables selection entirely.
	ModeNone Mode = iota
	// ModeSingle holds at most one identity.
	ModeSingle
	// ModeMulti holds a set of identities.
	ModeMulti
)

// String returns the mode's configuration name.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a configuration mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none":
		return ModeNone, nil
	case "single":
		return ModeSingle, nil
	case "multi":
		return ModeMulti, nil
	default:
		return ModeNone, fmt.Errorf("%w: %q", ErrInvalidConfiguration, s)
	}
}

// valid reports whether m is a known mode.
func (m Mode) valid() bool {
	return m == ModeNone || m == ModeSingle || m == ModeMulti
}

// Changed is the diff event emitted once per mutating call. Listeners never
// observe a half-applied state: the event is built after the mutation is
// complete and delivered outside the model lock.
type Changed struct {
	// Added holds identities that entered the selection.
	Added []string
	// Removed holds identities that left the selection.
	Removed []string
	// Selection is the full selection after the call.
	Selection []string
	// FromClient marks mutations that originated from external input
	// (e.g. a row click) rather than programmatic calls.
	FromClient bool
}

// ListenerFunc receives Changed events.
type ListenerFunc func(Changed)

// Model tracks selected item identities for one grid.
//
// Mutating calls assume the engine's single-writer discipline; the internal
// mutex guards reads that may run concurrently with rendering.
type Model struct {
	mu              sync.Mutex
	mode            Mode
	deselectAllowed bool

	// order preserves selection order; member mirrors it for O(1) lookups.
	order  []string
	member map[string]struct{}

	listeners map[string]ListenerFunc
}

// Option configures a Model.
type Option func(*Model)

// WithMode sets the initial selection mode.
func WithMode(m Mode) Option {
	return func(s *Model) {
		if m.valid() {
			s.mode = m
		}
	}
}

// WithDeselectAllowed controls whether single mode permits clearing the
// held identity.
func WithDeselectAllowed(allowed bool) Option {
	return func(s *Model) {
		s.deselectAllowed = allowed
	}
}

// NewModel creates a selection model. The default mode is ModeNone with
// deselection disallowed.
func NewModel(opts ...Option) *Model {
	m := &Model{
		member:    make(map[string]struct{}),
		listeners: make(map[string]ListenerFunc),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the current mode.
func (m *Model) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Selected returns the current selection in selection order.
func (m *Model) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// IsSelected reports whether the identity is currently selected.
func (m *Model) IsSelected(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.member[id]
	return ok
}

// Subscribe registers a listener and returns its handle. The registration
// lives only as long as the current mode instance: SetMode discards it.
func (m *Model) Subscribe(fn ListenerFunc) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := ulid.Make().String()
	m.listeners[handle] = fn
	return handle
}

// Unsubscribe removes a listener by handle. Unknown handles are ignored.
func (m *Model) Unsubscribe(handle string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.listeners, handle)
}

// SetMode switches the selection mode. The selection is always cleared and
// exactly one Changed event with an empty new selection fires to the
// current listeners, even when newMode equals the current mode. The
// listener registry is then discarded: a mode switch produces a fresh
// model instance as far as observers are concerned, and callers must
// re-subscribe.
func (m *Model) SetMode(newMode Mode) error {
	if !newMode.valid() {
		return fmt.Errorf("%w: %v", ErrInvalidConfiguration, newMode)
	}

	m.mu.Lock()
	removed := m.order
	m.order = nil
	m.member = make(map[string]struct{})
	m.mode = newMode
	old := m.snapshotListeners()
	m.listeners = make(map[string]ListenerFunc)
	m.mu.Unlock()

	emit(old, Changed{Removed: removed})
	return nil
}

// Select adds the identity to the selection.
//
// In none mode the call is a silent no-op. In single mode it replaces the
// held identity; re-selecting the held identity is a no-op, and an empty
// identity (deselect) is rejected with ErrInvalidOperation unless
// deselection is allowed. In multi mode the identity is added if absent.
func (m *Model) Select(id string, fromClient bool) error {
	m.mu.Lock()

	var ev *Changed
	switch m.mode {
	case ModeNone:
		// Selection disabled: no-op, no event.

	case ModeSingle:
		if id == "" {
			if !m.deselectAllowed {
				m.mu.Unlock()
				return fmt.Errorf("%w: deselection disallowed", ErrInvalidOperation)
			}
			ev = m.clearLocked(fromClient)
			break
		}
		if _, held := m.member[id]; held {
			break
		}
		removed := m.order
		m.order = []string{id}
		m.member = map[string]struct{}{id: {}}
		ev = &Changed{
			Added:      []string{id},
			Removed:    removed,
			Selection:  []string{id},
			FromClient: fromClient,
		}

	case ModeMulti:
		if id == "" {
			break
		}
		if _, ok := m.member[id]; ok {
			break
		}
		m.order = append(m.order, id)
		m.member[id] = struct{}{}
		ev = &Changed{
			Added:      []string{id},
			Selection:  m.selectionLocked(),
			FromClient: fromClient,
		}
	}

	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if ev != nil {
		emit(listeners, *ev)
	}
	return nil
}

// Deselect removes the identity from the selection. In multi mode a missing
// identity is a no-op. In single mode only the held identity can be
// cleared, and only when deselection is allowed.
func (m *Model) Deselect(id string, fromClient bool) error {
	m.mu.Lock()

	var ev *Changed
	switch m.mode {
	case ModeNone:
		// No-op.

	case ModeSingle:
		if _, held := m.member[id]; !held {
			break
		}
		if !m.deselectAllowed {
			m.mu.Unlock()
			return fmt.Errorf("%w: deselection disallowed", ErrInvalidOperation)
		}
		ev = m.clearLocked(fromClient)

	case ModeMulti:
		if _, ok := m.member[id]; !ok {
			break
		}
		delete(m.member, id)
		for i, held := range m.order {
			if held == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
		ev = &Changed{
			Removed:    []string{id},
			Selection:  m.selectionLocked(),
			FromClient: fromClient,
		}
	}

	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if ev != nil {
		emit(listeners, *ev)
	}
	return nil
}

// SelectAll selects every identity in ids, preserving their order. Valid
// only in multi mode. Identities already selected contribute nothing to
// the diff; if all are already selected no event fires.
func (m *Model) SelectAll(ids []string, fromClient bool) error {
	m.mu.Lock()

	if m.mode != ModeMulti {
		m.mu.Unlock()
		return fmt.Errorf("%w: select all requires multi mode", ErrInvalidOperation)
	}

	var added []string
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := m.member[id]; ok {
			continue
		}
		m.order = append(m.order, id)
		m.member[id] = struct{}{}
		added = append(added, id)
	}

	var ev *Changed
	if len(added) > 0 {
		ev = &Changed{
			Added:      added,
			Selection:  m.selectionLocked(),
			FromClient: fromClient,
		}
	}

	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if ev != nil {
		emit(listeners, *ev)
	}
	return nil
}

// DeselectAll clears the selection. Valid only in multi mode; an already
// empty selection fires no event.
func (m *Model) DeselectAll(fromClient bool) error {
	m.mu.Lock()

	if m.mode != ModeMulti {
		m.mu.Unlock()
		return fmt.Errorf("%w: deselect all requires multi mode", ErrInvalidOperation)
	}

	var ev *Changed
	if len(m.order) > 0 {
		ev = m.clearLocked(fromClient)
	}

	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if ev != nil {
		emit(listeners, *ev)
	}
	return nil
}

// Clear unconditionally empties the selection in any mode and always emits
// exactly one Changed event, mirroring the mode-switch contract. The engine
// calls this when the dataset is replaced.
func (m *Model) Clear(fromClient bool) {
	m.mu.Lock()
	ev := m.clearLocked(fromClient)
	if ev == nil {
		ev = &Changed{FromClient: fromClient}
	}
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	emit(listeners, *ev)
}

// clearLocked empties the selection and returns the diff event, or nil when
// the selection was already empty. Caller holds the lock.
func (m *Model) clearLocked(fromClient bool) *Changed {
	if len(m.order) == 0 {
		return nil
	}
	removed := m.order
	m.order = nil
	m.member = make(map[string]struct{})
	return &Changed{Removed: removed, FromClient: fromClient}
}

// selectionLocked copies the current selection. Caller holds the lock.
func (m *Model) selectionLocked() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// snapshotListeners copies the listener set. Caller holds the lock.
func (m *Model) snapshotListeners() []ListenerFunc {
	out := make([]ListenerFunc, 0, len(m.listeners))
	for _, fn := range m.listeners {
		out = append(out, fn)
	}
	return out
}

// emit delivers the event outside the model lock so listeners may call back
// into the model.
func emit(listeners []ListenerFunc, ev Changed) {
	for _, fn := range listeners {
		fn(ev)
	}
}
