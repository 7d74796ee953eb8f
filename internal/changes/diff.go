package changes

import (
	"sort"
	"time"
)

// ChangeKind is the kind of difference between two file indexes.
type ChangeKind string

const (
	Added   ChangeKind = "added"
	Removed ChangeKind = "removed"
	Changed ChangeKind = "changed"
)

// Change is one path that differs between two indexes.
type Change struct {
	Kind ChangeKind
	Path string
	// ModTime is the new modification time; zero for removals.
	ModTime time.Time
}

// Report describes one detector cycle.
type Report struct {
	Added   []Change
	Removed []Change
	Changed []Change
	// Rebuilt is true when the tree was replaced this cycle.
	Rebuilt bool
	TakenAt time.Time
}

// Empty reports whether the cycle found no differences.
func (r Report) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.Changed) == 0
}

// All returns every change ordered by path.
func (r Report) All() []Change {
	all := make([]Change, 0, len(r.Added)+len(r.Removed)+len(r.Changed))
	all = append(all, r.Added...)
	all = append(all, r.Removed...)
	all = append(all, r.Changed...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].Path < all[j].Path })
	return all
}

// Diff compares two indexes. A file counts as changed only when its new
// modification time is strictly later than the old one. Each result is
// sorted by path.
func Diff(prev, next FileIndex) (added, removed, changed []Change) {
	for p, mod := range next {
		old, ok := prev[p]
		switch {
		case !ok:
			added = append(added, Change{Kind: Added, Path: p, ModTime: mod})
		case mod.After(old):
			changed = append(changed, Change{Kind: Changed, Path: p, ModTime: mod})
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok {
			removed = append(removed, Change{Kind: Removed, Path: p})
		}
	}

	byPath := func(cs []Change) {
		sort.Slice(cs, func(i, j int) bool { return cs[i].Path < cs[j].Path })
	}
	byPath(added)
	byPath(removed)
	byPath(changed)
	return added, removed, changed
}
