package deck

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/svcdeck/internal/changes"
	"github.com/Iron-Ham/svcdeck/internal/config"
	"github.com/Iron-Ham/svcdeck/internal/event"
	"github.com/Iron-Ham/svcdeck/internal/logging"
	"github.com/Iron-Ham/svcdeck/internal/manifest"
	"github.com/Iron-Ham/svcdeck/internal/output"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
	"github.com/Iron-Ham/svcdeck/internal/project"
	"github.com/Iron-Ham/svcdeck/internal/supervisor"
)

// Options overrides the collaborators a Deck would otherwise build itself.
type Options struct {
	// Fs is used for the manifest and the change detector. Defaults to the
	// OS filesystem.
	Fs afero.Fs
	// Spawner defaults to an ExecSpawner writing into the deck's broadcaster.
	Spawner supervisor.Spawner
	// Logger defaults to a no-op logger.
	Logger *logging.Logger
}

// Deck holds one project's supervisor, output broadcaster and event bus,
// built from the user configuration.
type Deck struct {
	cfg    *config.Config
	fs     afero.Fs
	logger *logging.Logger

	bus        *event.Bus
	output     *output.Broadcaster
	resolver   *pathresolve.Resolver
	manifests  *manifest.FileProvider
	locator    *project.Static
	supervisor *supervisor.Supervisor
}

// New assembles a Deck for projectPath. Nothing is started.
func New(cfg *config.Config, projectPath string, opts Options) (*Deck, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	d := &Deck{
		cfg:       cfg,
		fs:        fs,
		logger:    logger,
		bus:       event.NewBus(logger),
		output:    output.NewBroadcaster(cfg.Output.TailBytes, logger),
		resolver:  NewResolver(cfg),
		manifests: manifest.NewFileProvider(fs, cfg.Services.ManifestFile),
		locator:   project.NewStatic(projectPath),
	}

	spawner := opts.Spawner
	if spawner == nil {
		spawner = supervisor.NewExecSpawner(d.output)
	}

	sup, err := supervisor.New(supervisor.Config{
		Locator:   d.locator,
		Manifests: d.manifests,
		Spawner:   spawner,
		Resolver:  d.resolver,
		Bus:       d.bus,
		Logger:    logger,
		Options:   SupervisorOptions(cfg),
	})
	if err != nil {
		d.output.Close()
		return nil, fmt.Errorf("failed to create supervisor: %w", err)
	}
	d.supervisor = sup
	return d, nil
}

// NewResolver builds a path resolver from the paths section.
func NewResolver(cfg *config.Config) *pathresolve.Resolver {
	return pathresolve.New(pathresolve.Options{
		RemoteRoots:    cfg.Paths.RemoteRoots,
		Launcher:       cfg.Paths.Launcher,
		UnbufferedFlag: cfg.Paths.UnbufferedFlag,
	})
}

// SupervisorOptions converts the supervisor and services sections.
func SupervisorOptions(cfg *config.Config) supervisor.Options {
	return supervisor.Options{
		CollaboratorTimeout: cfg.Supervisor.CollaboratorTimeout(),
		StopTimeout:         cfg.Supervisor.StopTimeout(),
		SettleDelay:         cfg.Supervisor.SettleDelay(),
		Interpreters:        cfg.Services.Interpreters,
	}
}

// NewLogger creates the rotating file logger described by the logging
// section. A logger that cannot be opened is replaced by a no-op logger
// after a warning on stderr.
func NewLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotation := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}
	logger, err := logging.NewLogger(cfg.Logging.ResolveLogDir(), cfg.Logging.Level, rotation)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// ProjectPath returns the project the deck was built for.
func (d *Deck) ProjectPath() string { return d.locator.Path() }

// SetProjectPath changes the project used by later starts and restarts
// that do not name one.
func (d *Deck) SetProjectPath(path string) { d.locator.Set(path) }

// Config returns the configuration the deck was built from.
func (d *Deck) Config() *config.Config { return d.cfg }

// Bus returns the shared event bus.
func (d *Deck) Bus() *event.Bus { return d.bus }

// Output returns the output broadcaster.
func (d *Deck) Output() *output.Broadcaster { return d.output }

// Resolver returns the path resolver.
func (d *Deck) Resolver() *pathresolve.Resolver { return d.resolver }

// Manifests returns the manifest provider.
func (d *Deck) Manifests() *manifest.FileProvider { return d.manifests }

// Supervisor returns the process supervisor.
func (d *Deck) Supervisor() *supervisor.Supervisor { return d.supervisor }

// Plan reads the manifest and resolves every service's launch command
// without starting anything.
func (d *Deck) Plan(ctx context.Context) ([]supervisor.Launch, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Supervisor.CollaboratorTimeout())
	defer cancel()

	projectPath := d.ProjectPath()
	descriptors, err := d.manifests.Services(ctx, projectPath)
	if err != nil {
		return nil, err
	}
	return d.supervisor.Plan(projectPath, descriptors), nil
}

// NewDetector creates a change detector over the project using the
// watcher section. onChange may be nil.
func (d *Deck) NewDetector(onChange func(changes.Report)) (*changes.Detector, error) {
	snap, err := changes.NewWalkSnapshotter(d.fs, d.cfg.Watcher.Ignore)
	if err != nil {
		return nil, err
	}
	return changes.NewDetector(changes.Config{
		Root:        d.ProjectPath(),
		Snapshotter: snap,
		Interval:    d.cfg.Watcher.PollInterval(),
		Bus:         d.bus,
		Logger:      d.logger,
		OnChange:    onChange,
	})
}

// Close stops every service and drains pending output.
func (d *Deck) Close(ctx context.Context) error {
	err := d.supervisor.Shutdown(ctx)
	d.output.Close()
	return err
}
