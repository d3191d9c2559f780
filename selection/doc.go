// Package selection implements the grid's selection state machine.
//
// A Model operates in one of three modes: none (selection disabled),
// single (at most one held identity), or multi (a set of identities).
// Every mutating call emits at most one Changed event carrying the exact
// diff; no-op calls emit nothing. Switching modes always clears the
// selection, fires one final event, and discards the listener registry,
// so a mode switch behaves like a fresh model instance.
//
// Selection is keyed by item identity, never by position, so it survives
// resorting. Dataset replacement clears it via Clear.
package selection
