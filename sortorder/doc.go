// Package sortorder composes sort criteria into a single effective order.
//
// A Resolver holds an ordered list of criteria. Each criterion names a
// backend-capable property key, carries a local comparator, or both. The
// resolver produces two artifacts from the active list:
//   - a combined comparator (Compose) where later criteria break ties left
//     by earlier ones, and
//   - a serializable backend descriptor (BackendDescriptor) containing only
//     the backend-capable keys, in list order.
//
// An empty list means "no opinion": Compose returns nil and callers keep
// the source's native fetch order.
//
// Comparator helpers cover the usual column shapes: natural ordering for
// mixed alphanumerics, locale-aware collation, and semantic versions.
package sortorder
