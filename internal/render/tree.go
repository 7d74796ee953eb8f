package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/svcdeck/internal/changes"
)

// TreeOptions controls RenderTree.
type TreeOptions struct {
	// MaxDepth limits how many directory levels are printed below the
	// root. 0 means unlimited.
	MaxDepth int
	// Sizes appends file sizes.
	Sizes bool
}

// RenderTree writes root as an indented tree, directories first and then
// by name at every level. Unreadable directories are shown with their error.
func RenderTree(w io.Writer, root *changes.Entry, styles *Styles, opts TreeOptions) {
	if root == nil {
		return
	}
	if styles == nil {
		styles = Plain()
	}
	_, _ = fmt.Fprintln(w, styles.Title(root.Name))
	renderChildren(w, root, "", 1, styles, opts)
}

func renderChildren(w io.Writer, dir *changes.Entry, indent string, depth int, styles *Styles, opts TreeOptions) {
	if opts.MaxDepth > 0 && depth > opts.MaxDepth {
		return
	}
	children := changes.SortForDisplay(dir.Children)
	for i, child := range children {
		last := i == len(children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		_, _ = fmt.Fprintln(w, indent+styles.Muted(branch)+entryLabel(child, styles, opts))
		if child.IsDir() {
			renderChildren(w, child, indent+styles.Muted(next), depth+1, styles, opts)
		}
	}
}

func entryLabel(e *changes.Entry, styles *Styles, opts TreeOptions) string {
	switch e.Type {
	case changes.EntryDirectory:
		return styles.Info(e.Name + "/")
	case changes.EntrySymlink:
		return styles.Muted(e.Name + "@")
	case changes.EntryError:
		return styles.Error(fmt.Sprintf("%s/ (%v)", e.Name, e.Err))
	}
	if opts.Sizes {
		return e.Name + " " + styles.Muted(FormatSize(e.Size))
	}
	return e.Name
}

// FormatSize renders a byte count with a binary unit, e.g. "1.5K".
func FormatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f%c", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatChange renders one detector change as "+ path", "- path" or "~ path",
// with path shown relative to root when possible.
func FormatChange(c changes.Change, root string, styles *Styles) string {
	if styles == nil {
		styles = Plain()
	}
	p := c.Path
	if rel, err := filepath.Rel(root, c.Path); err == nil && !strings.HasPrefix(rel, "..") {
		p = filepath.ToSlash(rel)
	}
	switch c.Kind {
	case changes.Added:
		return styles.Success("+ " + p)
	case changes.Removed:
		return styles.Error("- " + p)
	default:
		return styles.Warning("~ " + p)
	}
}
