package sortorder

import (
	"cmp"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	natsort "github.com/fvbommel/sortorder"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CompareOrdered compares two naturally ordered values (numbers, plain
// strings).
func CompareOrdered[T cmp.Ordered](a, b T) int {
	return cmp.Compare(a, b)
}

// CompareNatural compares strings in natural order, so "node-2" sorts
// before "node-10".
func CompareNatural(a, b string) int {
	switch {
	case natsort.NaturalLess(a, b):
		return -1
	case natsort.NaturalLess(b, a):
		return 1
	default:
		return 0
	}
}

// CollatedComparator returns a locale-aware string comparator for the given
// language tag. The underlying collator is shared by every call and is not
// concurrency-safe on its own, so the comparator serializes access; it is
// safe to use from multiple goroutines, including concurrent page reorders.
func CollatedComparator(tag language.Tag) func(a, b string) int {
	var mu sync.Mutex
	c := collate.New(tag)
	return func(a, b string) int {
		mu.Lock()
		defer mu.Unlock()
		return c.CompareString(a, b)
	}
}

// CompareSemver compares two semantic version strings. Valid versions order
// by semver precedence; invalid ones sort after all valid versions and fall
// back to plain string comparison among themselves.
func CompareSemver(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)

	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}
