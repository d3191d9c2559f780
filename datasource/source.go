package datasource

import (
	"context"
	"fmt"
)

// SortKey is one element of a backend sort descriptor: a property key plus a
// direction. Descriptors are ordered; later keys break ties left by earlier
// ones.
type SortKey struct {
	Key        string `json:"key"        yaml:"key"`
	Descending bool   `json:"descending" yaml:"descending"`
}

// String renders the key in "name:asc" / "name:desc" form, the same format
// accepted by sort expression parsing.
func (k SortKey) String() string {
	if k.Descending {
		return k.Key + ":desc"
	}
	return k.Key + ":asc"
}

// Request describes one windowed fetch: up to Limit items starting at Offset,
// ordered by Sort. An empty Sort means source-native order, which must be
// stable across requests within one dataset generation.
type Request struct {
	Offset int
	Limit  int
	Sort   []SortKey
}

// Result is the answer to a Request. Exactly one counting style applies:
// sources that know their size set Total and HasTotal; streaming sources
// leave HasTotal false and use HasMore to signal that rows exist beyond
// Offset+len(Items).
type Result[T any] struct {
	Items    []T
	Total    int
	HasTotal bool
	HasMore  bool
}

// Source is the external capability required by the window cache.
// Fetch must be safe for concurrent invocation; the cache issues one call
// per uncovered region and several regions may be in flight at once.
type Source[T any] interface {
	Fetch(ctx context.Context, req Request) (Result[T], error)
}

// ExactCounter is an optional Source capability. Sources that can answer
// count queries cheaply implement it; the cache detects it by assertion.
type ExactCounter interface {
	CountExact(ctx context.Context, filter string) (int, error)
}

// Identity derives a stable key for an item. The key must identify the same
// logical row across fetches; position-derived keys break selection and
// detail tracking under resort.
type Identity[T any] func(T) string

// DefaultIdentity keys items by their formatted value. Adequate for value
// types whose fields make them distinct; hosts with proper row IDs should
// supply their own function.
func DefaultIdentity[T any]() Identity[T] {
	return func(v T) string {
		return fmt.Sprint(v)
	}
}

// FuncSource adapts a plain function to the Source interface.
type FuncSource[T any] func(ctx context.Context, req Request) (Result[T], error)

// Fetch implements Source by calling the wrapped function.
func (f FuncSource[T]) Fetch(ctx context.Context, req Request) (Result[T], error) {
	return f(ctx, req)
}
