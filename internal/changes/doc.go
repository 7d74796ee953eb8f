// Package changes detects filesystem changes under a project directory by
// polling.
//
// Every cycle a [Snapshotter] walks the whole tree and produces a fresh
// [Entry] tree plus a [FileIndex] of regular files and their modification
// times. The [Detector] diffs the new index against the previous one:
//
//   - a path only in the new index is added and triggers a tree rebuild
//   - a path only in the old index is removed and triggers a tree rebuild
//   - a path whose modification time moved forward is changed; on its own
//     it does not rebuild the tree
//
// The new index always replaces the old one. Snapshots are swapped in
// atomically, so [Detector.Tree] and [Detector.Index] never observe a
// half-built walk.
package changes
