package changes

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"

	"github.com/Iron-Ham/svcdeck/internal/errors"
)

// Snapshot is the result of one full walk.
type Snapshot struct {
	Root    *Entry
	Index   FileIndex
	TakenAt time.Time
}

// Snapshotter produces a complete snapshot of the tree under root.
type Snapshotter interface {
	Snapshot(ctx context.Context, root string) (*Snapshot, error)
}

// WalkSnapshotter walks an afero filesystem recursively.
//
// Symlinks are recorded but never followed. A directory that cannot be
// read becomes an error entry and the walk continues with its siblings.
// Paths matching an ignore pattern are left out entirely.
type WalkSnapshotter struct {
	fs     afero.Fs
	ignore []glob.Glob
}

// NewWalkSnapshotter creates a snapshotter over fs (the OS filesystem when
// nil). Ignore patterns use glob syntax with "/" as separator and are
// matched against both the relative path and the base name.
func NewWalkSnapshotter(fs afero.Fs, ignore []string) (*WalkSnapshotter, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	globs := make([]glob.Glob, 0, len(ignore))
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.NewValidationError("invalid ignore pattern").
				WithField("watcher.ignore").WithValue(pattern).WithCause(err)
		}
		globs = append(globs, g)
	}
	return &WalkSnapshotter{fs: fs, ignore: globs}, nil
}

// Snapshot walks root. It fails only when root itself cannot be read or
// ctx is cancelled.
func (w *WalkSnapshotter) Snapshot(ctx context.Context, root string) (*Snapshot, error) {
	info, err := w.lstat(root)
	if err != nil {
		return nil, errors.NewWalkError(root, err)
	}

	snap := &Snapshot{Index: make(FileIndex), TakenAt: time.Now()}
	snap.Root = w.entryFor(root, ".", info, snap.Index)
	if snap.Root.IsDir() {
		if err := w.walkDir(ctx, snap.Root, snap.Index); err != nil {
			return nil, err
		}
		if snap.Root.Type == EntryError {
			return nil, snap.Root.Err
		}
	}
	return snap, nil
}

func (w *WalkSnapshotter) walkDir(ctx context.Context, dir *Entry, index FileIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	infos, err := afero.ReadDir(w.fs, dir.Path)
	if err != nil {
		dir.Type = EntryError
		dir.Err = errors.NewWalkError(dir.Path, err)
		return nil
	}

	dir.Children = make([]*Entry, 0, len(infos))
	for _, info := range infos {
		rel := info.Name()
		if dir.RelativePath != "." {
			rel = path.Join(dir.RelativePath, info.Name())
		}
		if w.ignored(rel, info.Name()) {
			continue
		}

		child := w.entryFor(filepath.Join(dir.Path, info.Name()), rel, info, index)
		if child.IsDir() {
			if err := w.walkDir(ctx, child, index); err != nil {
				return err
			}
		}
		dir.Children = append(dir.Children, child)
	}
	return nil
}

// entryFor builds the entry for one path and indexes it if it is a
// regular file. ReadDir stats through symlinks on some filesystems, so
// the mode is re-read with Lstat when available.
func (w *WalkSnapshotter) entryFor(absPath, rel string, info os.FileInfo, index FileIndex) *Entry {
	if li, err := w.lstat(absPath); err == nil {
		info = li
	}

	e := &Entry{
		Name:         info.Name(),
		Path:         absPath,
		RelativePath: rel,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
	}
	if rel == "." {
		e.Name = filepath.Base(absPath)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		e.Type = EntrySymlink
	case mode.IsDir():
		e.Type = EntryDirectory
		e.Size = 0
	default:
		e.Type = EntryFile
		if mode.IsRegular() {
			index[absPath] = e.ModTime
		}
	}
	return e
}

func (w *WalkSnapshotter) lstat(p string) (os.FileInfo, error) {
	if l, ok := w.fs.(afero.Lstater); ok {
		info, _, err := l.LstatIfPossible(p)
		return info, err
	}
	return w.fs.Stat(p)
}

func (w *WalkSnapshotter) ignored(rel, name string) bool {
	for _, g := range w.ignore {
		if g.Match(rel) || g.Match(name) {
			return true
		}
	}
	return false
}
