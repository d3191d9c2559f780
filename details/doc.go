// Package details tracks the per-row expanded/collapsed flag of a grid.
//
// State is keyed by item identity, never by position: a resort relocates an
// open detail panel but does not close it. In exclusive mode at most one
// identity is open at a time; opening a second one first closes the
// previous, observable as a close notification followed by an open.
package details
