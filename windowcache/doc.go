// Package windowcache implements the grid's lazy windowed data cache.
//
// The cache materializes only a sliding window of an ordered dataset. The
// host declares the visible index range, the cache computes which rows
// inside the buffered window are uncovered, and issues one asynchronous
// fetch per uncovered contiguous region. Rows outside the window are never
// fetched; rows already cached or in flight are never fetched twice.
//
// Staleness is controlled by a monotonically increasing generation counter.
// Every fetch captures the generation at issue time; a response whose
// generation no longer matches is silently dropped on arrival. Resorting
// and dataset replacement bump the generation, making every in-flight
// response inert without explicit cancellation.
//
// Dataset size is tracked two ways. Sources that report an exact total get
// it adopted verbatim. Sources that only signal "has more" get a
// monotonically non-decreasing lower-bound estimate that grows by a fixed
// increment whenever coverage reaches the known edge, and never shrinks
// below the highest index observed as loaded.
package windowcache
