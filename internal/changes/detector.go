package changes

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/event"
	"github.com/Iron-Ham/svcdeck/internal/logging"
)

// DefaultPollInterval is the time between detector cycles.
const DefaultPollInterval = time.Second

// Config configures a Detector.
type Config struct {
	// Root is the directory to watch. Required.
	Root string
	// Snapshotter defaults to a WalkSnapshotter over the OS filesystem.
	Snapshotter Snapshotter
	// Interval defaults to DefaultPollInterval.
	Interval time.Duration
	// Bus receives fs.* events. Optional.
	Bus *event.Bus
	// Logger defaults to a no-op logger.
	Logger *logging.Logger
	// OnChange is called with every non-empty report. Optional.
	OnChange func(Report)
}

// Detector polls a directory tree and reports which files were added,
// removed or modified since the previous cycle.
//
// Readers always see a complete snapshot: the current one is replaced
// with a single atomic swap at the end of each cycle. Cycles themselves
// are serialised.
type Detector struct {
	root        string
	snapshotter Snapshotter
	interval    time.Duration
	bus         *event.Bus
	logger      *logging.Logger
	onChange    func(Report)

	cycle    sync.Mutex
	current  atomic.Pointer[Snapshot]
	rebuilds atomic.Int64
}

// NewDetector creates a Detector. Nothing is walked until Initialize,
// Poll or Run is called.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.Root == "" {
		return nil, errors.NewValidationError("root is required").WithField("Root")
	}
	if cfg.Snapshotter == nil {
		s, err := NewWalkSnapshotter(nil, nil)
		if err != nil {
			return nil, err
		}
		cfg.Snapshotter = s
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	return &Detector{
		root:        cfg.Root,
		snapshotter: cfg.Snapshotter,
		interval:    cfg.Interval,
		bus:         cfg.Bus,
		logger:      cfg.Logger.WithComponent("detector").With("root", cfg.Root),
		onChange:    cfg.OnChange,
	}, nil
}

// Root returns the watched directory.
func (d *Detector) Root() string { return d.root }

// Initialize performs the first full walk and stores its tree and index.
// Calling it again replaces the baseline without reporting changes.
func (d *Detector) Initialize(ctx context.Context) error {
	d.cycle.Lock()
	defer d.cycle.Unlock()
	return d.initializeLocked(ctx)
}

func (d *Detector) initializeLocked(ctx context.Context) error {
	snap, err := d.snapshotter.Snapshot(ctx, d.root)
	if err != nil {
		return err
	}
	d.current.Store(snap)
	d.logger.Debug("initial snapshot taken", "files", len(snap.Index), "entries", snap.Root.Count())
	return nil
}

// Poll runs one cycle. New and deleted files trigger a tree rebuild; a
// file whose modification time moved forward is reported as changed but
// does not rebuild the tree on its own. The new index always replaces
// the previous one. If the walk fails, the previous snapshot is kept.
func (d *Detector) Poll(ctx context.Context) (Report, error) {
	d.cycle.Lock()
	defer d.cycle.Unlock()

	prev := d.current.Load()
	if prev == nil {
		return Report{}, d.initializeLocked(ctx)
	}

	snap, err := d.snapshotter.Snapshot(ctx, d.root)
	if err != nil {
		return Report{}, err
	}

	added, removed, changed := Diff(prev.Index, snap.Index)
	report := Report{
		Added:   added,
		Removed: removed,
		Changed: changed,
		Rebuilt: len(added) > 0 || len(removed) > 0,
		TakenAt: snap.TakenAt,
	}

	next := &Snapshot{Root: prev.Root, Index: snap.Index, TakenAt: snap.TakenAt}
	if report.Rebuilt {
		next.Root = snap.Root
		d.rebuilds.Add(1)
	}
	d.current.Store(next)

	if !report.Empty() {
		d.logger.Debug("changes detected",
			"added", len(added), "removed", len(removed), "changed", len(changed),
			"rebuilt", report.Rebuilt)
	}
	d.publish(report, next)
	if d.onChange != nil && !report.Empty() {
		d.onChange(report)
	}
	return report, nil
}

func (d *Detector) publish(r Report, snap *Snapshot) {
	if d.bus == nil {
		return
	}
	for _, c := range r.All() {
		switch c.Kind {
		case Added:
			d.bus.Publish(event.NewFileAddedEvent(c.Path, c.ModTime))
		case Removed:
			d.bus.Publish(event.NewFileRemovedEvent(c.Path))
		case Changed:
			d.bus.Publish(event.NewFileChangedEvent(c.Path, c.ModTime))
		}
	}
	if r.Rebuilt {
		d.bus.Publish(event.NewFileTreeRebuiltEvent(d.root, snap.Root.Count()))
	}
}

// Run initialises the detector if needed and polls every interval until
// ctx is cancelled. Walk errors are logged and never stop the loop. Run
// blocks; callers start it on its own goroutine.
func (d *Detector) Run(ctx context.Context) error {
	if d.current.Load() == nil {
		if err := d.Initialize(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			d.logger.Warn("initial snapshot failed", "error", err.Error())
		}
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Poll(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("poll failed", "error", err.Error())
			}
		}
	}
}

// Current returns the latest snapshot, or nil before the first walk.
func (d *Detector) Current() *Snapshot { return d.current.Load() }

// Tree returns the current tree, or nil before the first walk.
func (d *Detector) Tree() *Entry {
	if s := d.current.Load(); s != nil {
		return s.Root
	}
	return nil
}

// Index returns the current file index, or nil before the first walk.
// The map must not be modified.
func (d *Detector) Index() FileIndex {
	if s := d.current.Load(); s != nil {
		return s.Index
	}
	return nil
}

// Rebuilds returns how many times Poll replaced the tree.
func (d *Detector) Rebuilds() int64 { return d.rebuilds.Load() }
