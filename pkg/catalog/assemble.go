package catalog

import (
	"slices"
	"strconv"
	"strings"
)

// MissingStars is shown in place of an unknown star count.
const MissingStars = "-"

// Ordering compares two plugins for the listing. It returns a negative
// number when a sorts before b, positive when after, and zero to keep their
// relative order.
type Ordering func(a, b *Plugin) int

// CategoryGroup is one section of the listing.
type CategoryGroup struct {
	Category Category
	Label    string
	Plugins  []*Plugin
}

// PackedKey is the popularity key of the published page:
// downloads<<16 | stars, with unknown stars counting as 0.
//
// Stars above 65535 overflow into the download bits.
func PackedKey(p *Plugin) int64 {
	return p.Downloads<<16 | p.StarCount()
}

// ByPackedKey orders plugins by descending [PackedKey].
func ByPackedKey(a, b *Plugin) int {
	ka, kb := PackedKey(a), PackedKey(b)
	switch {
	case ka > kb:
		return -1
	case ka < kb:
		return 1
	}
	return 0
}

// ByDownloadsThenStars orders by descending downloads, then descending stars,
// without packing the two counts into one integer.
func ByDownloadsThenStars(a, b *Plugin) int {
	if c := compareDesc(a.Downloads, b.Downloads); c != 0 {
		return c
	}
	return compareDesc(a.StarCount(), b.StarCount())
}

func compareDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	}
	return 0
}

// Assemble sorts plugins with [ByPackedKey] and groups them by category.
// See [AssembleWith].
func Assemble(plugins []*Plugin) []CategoryGroup {
	return AssembleWith(plugins, ByPackedKey)
}

// AssembleWith sorts plugins stably with order, fills StarsText and
// AuthorText, and returns one group per category that has plugins, in
// [Categories] order. Plugins with an unknown category are dropped.
//
// The input slice is not reordered; the plugins themselves are updated.
func AssembleWith(plugins []*Plugin, order Ordering) []CategoryGroup {
	sorted := slices.Clone(plugins)
	slices.SortStableFunc(sorted, order)

	byCategory := make(map[Category][]*Plugin)
	for _, p := range sorted {
		cleanup(p)
		if !p.Category.Valid() {
			continue
		}
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	var groups []CategoryGroup
	for _, c := range Categories {
		if list := byCategory[c]; len(list) > 0 {
			groups = append(groups, CategoryGroup{Category: c, Label: c.Label(), Plugins: list})
		}
	}
	return groups
}

func cleanup(p *Plugin) {
	if p.Stars == nil {
		p.StarsText = MissingStars
	} else {
		p.StarsText = strconv.FormatInt(*p.Stars, 10)
	}
	p.AuthorText = strings.Join(p.Authors, ", ")
}
