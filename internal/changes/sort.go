package changes

import (
	"slices"
	"strings"
)

// SortForDisplay returns a copy of entries with directories first, then
// everything else, each group ordered by name. It is a display order only;
// snapshots keep the order the walk produced.
func SortForDisplay(entries []*Entry) []*Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b *Entry) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
