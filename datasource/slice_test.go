package datasource

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rec struct {
	Name string
	Size int
}

func newTestSource() *SliceSource[rec] {
	src := NewSliceSource([]rec{
		{Name: "delta", Size: 3},
		{Name: "alpha", Size: 1},
		{Name: "charlie", Size: 2},
		{Name: "bravo", Size: 1},
	})
	src.Comparator("name", func(a, b rec) int { return strings.Compare(a.Name, b.Name) }).
		Comparator("size", func(a, b rec) int { return a.Size - b.Size })
	return src
}

func TestSliceSourceFetchOrder(t *testing.T) {
	src := newTestSource()

	t.Run("NativeOrder", func(t *testing.T) {
		res, err := src.Fetch(context.Background(), Request{Offset: 0, Limit: 10})
		require.NoError(t, err)
		assert.True(t, res.HasTotal)
		assert.Equal(t, 4, res.Total)
		require.Len(t, res.Items, 4)
		assert.Equal(t, "delta", res.Items[0].Name)
		assert.Equal(t, "bravo", res.Items[3].Name)
	})

	t.Run("Sorted", func(t *testing.T) {
		res, err := src.Fetch(context.Background(), Request{
			Offset: 0,
			Limit:  10,
			Sort:   []SortKey{{Key: "name"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "alpha", res.Items[0].Name)
		assert.Equal(t, "delta", res.Items[3].Name)
	})

	t.Run("SortedDescending", func(t *testing.T) {
		res, err := src.Fetch(context.Background(), Request{
			Offset: 0,
			Limit:  10,
			Sort:   []SortKey{{Key: "name", Descending: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, "delta", res.Items[0].Name)
	})

	t.Run("TieBreak", func(t *testing.T) {
		// size asc, then name desc among equal sizes.
		res, err := src.Fetch(context.Background(), Request{
			Offset: 0,
			Limit:  10,
			Sort:   []SortKey{{Key: "size"}, {Key: "name", Descending: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, "bravo", res.Items[0].Name)
		assert.Equal(t, "alpha", res.Items[1].Name)
	})

	t.Run("SortLeavesNativeOrderIntact", func(t *testing.T) {
		_, err := src.Fetch(context.Background(), Request{
			Offset: 0, Limit: 10, Sort: []SortKey{{Key: "name"}},
		})
		require.NoError(t, err)

		res, err := src.Fetch(context.Background(), Request{Offset: 0, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, "delta", res.Items[0].Name)
	})
}

func TestSliceSourcePaging(t *testing.T) {
	src := newTestSource()

	res, err := src.Fetch(context.Background(), Request{Offset: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, "charlie", res.Items[0].Name)

	res, err = src.Fetch(context.Background(), Request{Offset: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 4, res.Total)
}

func TestSliceSourceErrors(t *testing.T) {
	src := newTestSource()

	_, err := src.Fetch(context.Background(), Request{Offset: -1, Limit: 5})
	assert.Error(t, err)

	_, err = src.Fetch(context.Background(), Request{
		Offset: 0, Limit: 5, Sort: []SortKey{{Key: "bogus"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestSliceSourceCountExact(t *testing.T) {
	src := newTestSource()

	n, err := src.CountExact(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = src.CountExact(context.Background(), "size>1")
	assert.Error(t, err)
}

func TestSortKeyString(t *testing.T) {
	assert.Equal(t, "name:asc", SortKey{Key: "name"}.String())
	assert.Equal(t, "name:desc", SortKey{Key: "name", Descending: true}.String())
}

func TestFuncSource(t *testing.T) {
	called := false
	src := FuncSource[int](func(_ context.Context, req Request) (Result[int], error) {
		called = true
		assert.Equal(t, 5, req.Offset)
		return Result[int]{Items: []int{1}, HasMore: true}, nil
	})

	res, err := src.Fetch(context.Background(), Request{Offset: 5, Limit: 1})
	require.NoError(t, err)
	assert.True(t, called)
	assert.True(t, res.HasMore)
	assert.False(t, res.HasTotal)
}
