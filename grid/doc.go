// Package grid wires the window cache, sort resolver, selection model and
// details controller into one engine with a single host-facing surface.
//
// The engine enforces the cross-component consistency rules:
//   - any sort mutation invalidates every cached position (resort), while
//     selection and detail state survive because they are identity-keyed;
//   - dataset replacement invalidates the cache and clears selection and
//     details, because the identity space may have changed;
//   - switching the selection mode produces a fresh selection instance:
//     external listeners must re-subscribe, while the engine's own event
//     hub keeps publishing without interruption.
//
// Rendering stays with the host. Per row the engine exposes the item, its
// identity, and per-column accessor output; nothing else.
package grid
