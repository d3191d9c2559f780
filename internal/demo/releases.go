// Package demo generates the deterministic release dataset served by the
// browse command when no remote endpoint is configured.
package demo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rshade/gridcore/datasource"
	"github.com/rshade/gridcore/grid"
	"github.com/rshade/gridcore/sortorder"
)

// Release is one row of the demo dataset.
type Release struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Channel string `json:"channel"`
	SizeKB  int    `json:"size_kb"`
}

//nolint:gochecknoglobals // Fixed vocabulary for deterministic generation.
var (
	services = []string{
		"gateway", "ledger", "scheduler", "indexer", "mailer",
		"resizer", "collector", "notifier", "archiver", "auditor",
	}
	channels = []string{"stable", "beta", "nightly"}
)

// Identity returns the stable key of a release.
func Identity(r Release) string { return r.ID }

// Generate builds n releases. The output is a pure function of n, so tests
// and repeated runs see the same dataset.
func Generate(n int) []Release {
	out := make([]Release, 0, n)
	for i := 0; i < n; i++ {
		svc := services[i%len(services)]
		out = append(out, Release{
			ID:      fmt.Sprintf("rel-%06d", i),
			Name:    fmt.Sprintf("%s-%d", svc, i/len(services)+1),
			Version: fmt.Sprintf("%d.%d.%d", 1+i/100, i%12, i%7),
			Channel: channels[i%len(channels)],
			SizeKB:  512 + (i*37)%4096,
		})
	}
	return out
}

// NewSource creates an in-memory source over n generated releases with
// comparators for every sortable column.
func NewSource(n int) *datasource.SliceSource[Release] {
	src := datasource.NewSliceSource(Generate(n))
	for _, col := range Columns() {
		if col.Compare != nil {
			src.Comparator(col.Key, col.Compare)
		}
	}
	return src
}

// Columns declares the browse grid's columns. Name sorts naturally so
// "gateway-2" precedes "gateway-10"; version uses semantic ordering.
func Columns() []grid.Column[Release] {
	return []grid.Column[Release]{
		{
			Key:      "name",
			Title:    "Name",
			Accessor: func(r Release) string { return r.Name },
			Compare:  func(a, b Release) int { return sortorder.CompareNatural(a.Name, b.Name) },
		},
		{
			Key:      "version",
			Title:    "Version",
			Accessor: func(r Release) string { return r.Version },
			Compare:  func(a, b Release) int { return sortorder.CompareSemver(a.Version, b.Version) },
		},
		{
			Key:      "channel",
			Title:    "Channel",
			Accessor: func(r Release) string { return r.Channel },
			Compare:  func(a, b Release) int { return strings.Compare(a.Channel, b.Channel) },
		},
		{
			Key:      "size",
			Title:    "Size (KB)",
			Accessor: func(r Release) string { return strconv.Itoa(r.SizeKB) },
			Compare:  func(a, b Release) int { return sortorder.CompareOrdered(a.SizeKB, b.SizeKB) },
		},
	}
}

// ColumnKeys returns the sortable column keys in display order.
func ColumnKeys() []string {
	cols := Columns()
	keys := make([]string, 0, len(cols))
	for _, col := range cols {
		keys = append(keys, col.Key)
	}
	return keys
}

// Describe renders the detail panel body for a release.
func Describe(r Release) string {
	return fmt.Sprintf("id=%s version=%s channel=%s size=%dKB", r.ID, r.Version, r.Channel, r.SizeKB)
}
