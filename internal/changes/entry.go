package changes

import (
	"strings"
	"time"
)

// EntryType classifies a node in a snapshot tree.
type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
	EntrySymlink   EntryType = "symlink"
	// EntryError marks a directory that could not be read. Err holds the cause.
	EntryError EntryType = "error"
)

// Entry is one node of a snapshot tree. Entries are built fresh by every
// walk and never modified afterwards.
type Entry struct {
	Name string
	// Path is the absolute path on the walked filesystem.
	Path string
	// RelativePath is slash-separated and relative to the walk root. The
	// root itself has RelativePath ".".
	RelativePath string
	Type         EntryType
	Size         int64
	ModTime      time.Time
	// Children is set for directories only, in the order the walk read them.
	Children []*Entry
	Err      error
}

// IsDir reports whether e is a readable directory.
func (e *Entry) IsDir() bool { return e.Type == EntryDirectory }

// Walk calls fn for e and every descendant, depth first. Returning false
// from fn skips that entry's children.
func (e *Entry) Walk(fn func(*Entry) bool) {
	if e == nil || !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Count returns the number of entries in the tree rooted at e.
func (e *Entry) Count() int {
	n := 0
	e.Walk(func(*Entry) bool { n++; return true })
	return n
}

// Find returns the entry at a slash-separated relative path, or nil.
func (e *Entry) Find(relPath string) *Entry {
	if e == nil {
		return nil
	}
	relPath = strings.Trim(relPath, "/")
	if relPath == "" || relPath == "." {
		return e
	}

	cur := e
	for part := range strings.SplitSeq(relPath, "/") {
		var next *Entry
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil
		}
		cur = next
	}
	return cur
}

// Errors returns every error entry in the tree.
func (e *Entry) Errors() []*Entry {
	var out []*Entry
	e.Walk(func(x *Entry) bool {
		if x.Type == EntryError {
			out = append(out, x)
		}
		return true
	})
	return out
}

// FileIndex maps the absolute path of every regular file to its
// modification time.
type FileIndex map[string]time.Time
