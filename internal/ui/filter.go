package ui

import (
	"github.com/sahilm/fuzzy"

	"github.com/raphi011/loom/internal/tracker"
)

// itemSource matches against "ID title".
type itemSource []tracker.ListItem

func (s itemSource) String(i int) string { return s[i].ID + " " + s[i].Title }
func (s itemSource) Len() int            { return len(s) }

// Filter returns the items fuzzily matching query, best match first.
// An empty query returns items unchanged.
func Filter(items []tracker.ListItem, query string) []tracker.ListItem {
	if query == "" {
		return items
	}
	matches := fuzzy.FindFrom(query, itemSource(items))
	out := make([]tracker.ListItem, len(matches))
	for i, m := range matches {
		out[i] = items[m.Index]
	}
	return out
}
