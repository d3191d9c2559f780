package details

import (
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
)

// Toggled reports a visibility change for one identity.
type Toggled struct {
	Identity string
	Visible  bool
}

// ListenerFunc receives Toggled events.
type ListenerFunc func(Toggled)

// Controller tracks which item identities have their detail panel open.
type Controller struct {
	mu        sync.Mutex
	exclusive bool
	open      map[string]struct{}
	listeners map[string]ListenerFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithExclusive keeps at most one identity open at a time.
func WithExclusive() Option {
	return func(c *Controller) {
		c.exclusive = true
	}
}

// NewController creates a details controller with everything collapsed.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		open:      make(map[string]struct{}),
		listeners: make(map[string]ListenerFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exclusive reports whether the controller runs in exclusive mode.
func (c *Controller) Exclusive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exclusive
}

// IsOpen reports whether the identity's panel is open.
func (c *Controller) IsOpen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.open[id]
	return ok
}

// OpenIDs returns the open identities in lexical order.
func (c *Controller) OpenIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.open))
	for id := range c.open {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Subscribe registers a listener and returns its handle.
func (c *Controller) Subscribe(fn ListenerFunc) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle := ulid.Make().String()
	c.listeners[handle] = fn
	return handle
}

// Unsubscribe removes a listener by handle. Unknown handles are ignored.
func (c *Controller) Unsubscribe(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.listeners, handle)
}

// Toggle flips visibility for the identity. Empty identities are ignored.
// In exclusive mode opening one identity closes any previously open one;
// listeners see the close before the open so at most one entry is ever
// visible.
func (c *Controller) Toggle(id string) {
	if id == "" {
		return
	}

	c.mu.Lock()
	var events []Toggled
	if _, isOpen := c.open[id]; isOpen {
		delete(c.open, id)
		events = append(events, Toggled{Identity: id, Visible: false})
	} else {
		if c.exclusive {
			for prev := range c.open {
				delete(c.open, prev)
				events = append(events, Toggled{Identity: prev, Visible: false})
			}
		}
		c.open[id] = struct{}{}
		events = append(events, Toggled{Identity: id, Visible: true})
	}
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	emit(listeners, events)
}

// Open makes the identity visible. Idempotent: already-open identities emit
// nothing.
func (c *Controller) Open(id string) {
	if id == "" {
		return
	}

	c.mu.Lock()
	if _, isOpen := c.open[id]; isOpen {
		c.mu.Unlock()
		return
	}
	var events []Toggled
	if c.exclusive {
		for prev := range c.open {
			delete(c.open, prev)
			events = append(events, Toggled{Identity: prev, Visible: false})
		}
	}
	c.open[id] = struct{}{}
	events = append(events, Toggled{Identity: id, Visible: true})
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	emit(listeners, events)
}

// Close collapses the identity. Idempotent.
func (c *Controller) Close(id string) {
	c.mu.Lock()
	if _, isOpen := c.open[id]; !isOpen {
		c.mu.Unlock()
		return
	}
	delete(c.open, id)
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	emit(listeners, []Toggled{{Identity: id, Visible: false}})
}

// Reset collapses every open identity, notifying per identity in lexical
// order. The engine calls this when the dataset is replaced and the
// identity space may have changed.
func (c *Controller) Reset() {
	c.mu.Lock()
	ids := make([]string, 0, len(c.open))
	for id := range c.open {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	c.open = make(map[string]struct{})
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	events := make([]Toggled, 0, len(ids))
	for _, id := range ids {
		events = append(events, Toggled{Identity: id, Visible: false})
	}
	emit(listeners, events)
}

// snapshotListeners copies the listener set. Caller holds the lock.
func (c *Controller) snapshotListeners() []ListenerFunc {
	out := make([]ListenerFunc, 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}

// emit delivers events outside the controller lock.
func emit(listeners []ListenerFunc, events []Toggled) {
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}
