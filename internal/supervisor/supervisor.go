package supervisor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/event"
	"github.com/Iron-Ham/svcdeck/internal/logging"
	"github.com/Iron-Ham/svcdeck/internal/manifest"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
)

// Config wires a Supervisor to its collaborators.
type Config struct {
	// Locator is asked for the project path when Start gets an empty one.
	// Optional.
	Locator ProjectLocator
	// Manifests supplies the service descriptors. Required.
	Manifests ManifestProvider
	// Spawner starts processes. Required.
	Spawner Spawner
	// Resolver builds command lines. Defaults to pathresolve.New(Options{}).
	Resolver *pathresolve.Resolver
	// Bus receives session and service events. A private bus is created
	// when nil.
	Bus *event.Bus
	// Logger defaults to a no-op logger.
	Logger *logging.Logger

	Options Options
}

// Supervisor owns the session state machine and the live service processes.
//
// A mutex guards the session record, the in-flight flag and the process
// map. Transitions run outside the lock; the in-flight flag rejects any
// transition requested while another one is still running.
type Supervisor struct {
	locator   ProjectLocator
	manifests ManifestProvider
	spawner   Spawner
	resolver  *pathresolve.Resolver
	bus       *event.Bus
	logger    *logging.Logger
	opts      Options

	mu            sync.Mutex
	session       Session
	transitioning bool
	closed        bool
	processes     map[string]*Process // by service name
	exitCodes     map[string]int      // last exit code by service name
}

// New creates a Supervisor in the idle state.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Manifests == nil {
		return nil, errors.NewValidationError("manifest provider is required").WithField("Manifests")
	}
	if cfg.Spawner == nil {
		return nil, errors.NewValidationError("spawner is required").WithField("Spawner")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = pathresolve.New(pathresolve.Options{})
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}

	opts := cfg.Options
	if opts.CollaboratorTimeout <= 0 {
		opts.CollaboratorTimeout = DefaultCollaboratorTimeout
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	interpreters := make(map[string]string, len(opts.Interpreters))
	for lang, path := range opts.Interpreters {
		if path != "" {
			interpreters[strings.ToLower(strings.TrimSpace(lang))] = path
		}
	}
	opts.Interpreters = interpreters

	return &Supervisor{
		locator:   cfg.Locator,
		manifests: cfg.Manifests,
		spawner:   cfg.Spawner,
		resolver:  resolver,
		bus:       bus,
		logger:    logger.WithComponent("supervisor"),
		opts:      opts,
		session:   Session{Status: StatusIdle},
		processes: make(map[string]*Process),
		exitCodes: make(map[string]int),
	}, nil
}

// Bus returns the event bus the supervisor publishes to.
func (s *Supervisor) Bus() *event.Bus { return s.bus }

// SupportedLanguages returns the languages that have an interpreter, sorted.
func (s *Supervisor) SupportedLanguages() []string {
	langs := make([]string, 0, len(s.opts.Interpreters))
	for lang := range s.opts.Interpreters {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Interpreter returns the interpreter configured for a language.
func (s *Supervisor) Interpreter(language string) (string, bool) {
	path, ok := s.opts.Interpreters[strings.ToLower(strings.TrimSpace(language))]
	return path, ok
}

// -----------------------------------------------------------------------------
// Transitions
// -----------------------------------------------------------------------------

// Start launches every supported service of the project. It is only
// allowed from idle. An empty projectPath asks the ProjectLocator.
func (s *Supervisor) Start(ctx context.Context, projectPath string) Result {
	if err := s.begin(StatusIdle, StatusLoading, errors.ErrAlreadyRunning, "start"); err != nil {
		return s.rejected(err)
	}

	path, spawned, total, err := s.launch(ctx, projectPath, true)
	if err != nil {
		return s.fail("Failed to start services", path, err)
	}

	msg := fmt.Sprintf("Started %d of %d services", spawned, total)
	if err := s.commitOpen("start", StatusRunning, func(sess *Session) {
		sess.StartTime = time.Now()
		sess.LastError = nil
		sess.ProjectPath = path
	}); err != nil {
		return s.fail("Failed to start services", path, err)
	}
	s.bus.Publish(event.NewSessionStartedEvent(msg, path))
	s.logger.WithSession(path).Info("session started", "spawned", spawned, "declared", total)
	return Result{Success: true, Message: msg, State: StatusRunning}
}

// Stop terminates every service. It is only allowed from running. The
// session reads idle as soon as Stop is accepted; other transitions stay
// rejected until teardown has finished.
func (s *Supervisor) Stop(ctx context.Context) Result {
	if err := s.begin(StatusRunning, StatusIdle, errors.ErrNotRunning, "stop"); err != nil {
		return s.rejected(err)
	}

	stopped := s.teardown(ctx)

	msg := fmt.Sprintf("Stopped %d services", stopped)
	s.commit(StatusIdle, func(sess *Session) {
		sess.LastError = nil
	})
	s.bus.Publish(event.NewSessionStoppedEvent(msg))
	s.logger.Info("session stopped", "stopped", stopped)
	return Result{Success: true, Message: msg, State: StatusIdle}
}

// Restart tears every service down, waits for the settle delay and starts
// them again from a fresh manifest. It is only allowed from running. An
// empty projectPath reuses the current project.
func (s *Supervisor) Restart(ctx context.Context, projectPath string) Result {
	if err := s.begin(StatusRunning, StatusLoading, errors.ErrNotRunning, "restart"); err != nil {
		return s.rejected(err)
	}

	if projectPath == "" {
		projectPath = s.Session().ProjectPath
	}

	s.teardown(ctx)
	if err := sleepContext(ctx, s.opts.SettleDelay); err != nil {
		return s.fail("Restart interrupted", projectPath, err)
	}

	path, spawned, total, err := s.launch(ctx, projectPath, false)
	if err != nil {
		return s.fail("Failed to restart services", path, err)
	}

	msg := fmt.Sprintf("Restarted %d of %d services", spawned, total)
	if err := s.commitOpen("restart", StatusRunning, func(sess *Session) {
		sess.StartTime = time.Now()
		sess.LastError = nil
		sess.ProjectPath = path
	}); err != nil {
		return s.fail("Failed to restart services", path, err)
	}
	s.bus.Publish(event.NewSessionRestartedEvent(msg, path))
	s.logger.WithSession(path).Info("session restarted", "spawned", spawned, "declared", total)
	return Result{Success: true, Message: msg, State: StatusRunning}
}

// Shutdown stops all services and closes the supervisor; later transitions
// are rejected. It returns ctx.Err() if ctx ends before teardown completes.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.teardown(ctx)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	settle := s.session.Status == StatusRunning && !s.transitioning
	if settle {
		s.transitioning = true
	}
	s.mu.Unlock()
	if settle {
		s.commit(StatusIdle, nil)
		s.bus.Publish(event.NewSessionStoppedEvent("Supervisor shut down"))
	}
	s.logger.Info("supervisor shut down")
	return nil
}

// begin checks the guard for a transition and marks it in flight.
// When next differs from the current status it is committed immediately.
func (s *Supervisor) begin(required, next Status, reject error, op string) error {
	s.mu.Lock()
	if s.closed {
		state := s.session.Status
		s.mu.Unlock()
		return errors.NewSessionError(op+" rejected", errors.ErrSupervisorClosed).WithState(string(state))
	}
	if s.transitioning || s.session.Status != required {
		state := s.session.Status
		s.mu.Unlock()
		return errors.NewSessionError(op+" rejected", reject).
			WithState(string(state)).
			WithSeverity(errors.SeverityWarning)
	}

	s.transitioning = true
	from := s.session.Status
	s.session.Status = next
	s.mu.Unlock()

	if from != next {
		s.bus.Publish(event.NewSessionStateChangedEvent(string(from), string(next)))
	}
	return nil
}

// commit ends the in-flight transition with status to.
func (s *Supervisor) commit(to Status, update func(*Session)) {
	s.mu.Lock()
	from := s.commitLocked(to, update)
	s.mu.Unlock()

	if from != to {
		s.bus.Publish(event.NewSessionStateChangedEvent(string(from), string(to)))
	}
}

// commitOpen is commit for a transition that must not land after Shutdown.
// If the supervisor was closed while op was in flight nothing is committed
// and an ErrSupervisorClosed error is returned; the transition stays in
// flight for the caller to fail.
func (s *Supervisor) commitOpen(op string, to Status, update func(*Session)) error {
	s.mu.Lock()
	if s.closed {
		state := s.session.Status
		s.mu.Unlock()
		return errors.NewSessionError(op+" interrupted by shutdown", errors.ErrSupervisorClosed).
			WithState(string(state))
	}
	from := s.commitLocked(to, update)
	s.mu.Unlock()

	if from != to {
		s.bus.Publish(event.NewSessionStateChangedEvent(string(from), string(to)))
	}
	return nil
}

func (s *Supervisor) commitLocked(to Status, update func(*Session)) Status {
	from := s.session.Status
	s.session.Status = to
	if update != nil {
		update(&s.session)
	}
	s.transitioning = false
	return from
}

func (s *Supervisor) rejected(err error) Result {
	s.logger.Info("transition rejected", "error", err.Error())

	msg := err.Error()
	switch {
	case errors.Is(err, errors.ErrAlreadyRunning):
		msg = errors.ErrAlreadyRunning.Error()
	case errors.Is(err, errors.ErrNotRunning):
		msg = errors.ErrNotRunning.Error()
	case errors.Is(err, errors.ErrSupervisorClosed):
		msg = errors.ErrSupervisorClosed.Error()
	}
	return Result{Success: false, Message: msg, State: s.Status().State, Err: err}
}

// fail tears down anything partially started and falls back to idle.
func (s *Supervisor) fail(prefix, projectPath string, err error) Result {
	s.teardown(context.Background())

	msg := fmt.Sprintf("%s: %v", prefix, err)
	s.commit(StatusIdle, func(sess *Session) {
		sess.LastError = err
		if projectPath != "" {
			sess.ProjectPath = projectPath
		}
	})
	s.bus.Publish(event.NewSessionFailedEvent(msg, err))
	s.logger.WithSession(projectPath).Error("transition failed", "error", err.Error())
	return Result{Success: false, Message: msg, State: StatusIdle, Err: err}
}

// -----------------------------------------------------------------------------
// Launch and teardown
// -----------------------------------------------------------------------------

// launch resolves the project, reads its manifest and spawns the supported
// services. askLocator controls whether an empty projectPath is resolved
// through the locator.
func (s *Supervisor) launch(ctx context.Context, projectPath string, askLocator bool) (string, int, int, error) {
	if projectPath == "" && askLocator {
		if s.locator == nil {
			return "", 0, 0, errors.NewValidationError("no project path given and no project locator configured")
		}
		path, err := callWithTimeout(ctx, s.opts.CollaboratorTimeout, "waiting for project path",
			s.locator.CurrentProjectPath)
		if err != nil {
			return "", 0, 0, err
		}
		projectPath = path
	}
	if projectPath == "" {
		return "", 0, 0, errors.NewValidationError("project path is empty").WithField("projectPath")
	}

	descriptors, err := callWithTimeout(ctx, s.opts.CollaboratorTimeout, "waiting for services manifest",
		func(ctx context.Context) ([]manifest.ServiceDescriptor, error) {
			return s.manifests.Services(ctx, projectPath)
		})
	if err != nil {
		return projectPath, 0, 0, err
	}

	spawned := s.spawnAll(ctx, projectPath, descriptors)
	if spawned == 0 {
		s.logger.WithSession(projectPath).Warn("no services were started",
			"declared", len(descriptors))
	}
	return projectPath, spawned, len(descriptors), nil
}

// spawnAll starts one process per supported descriptor. Failures are
// reported per service and never abort the batch.
func (s *Supervisor) spawnAll(ctx context.Context, projectPath string, descriptors []manifest.ServiceDescriptor) int {
	log := s.logger.WithSession(projectPath)
	spawned := 0

	for _, l := range s.Plan(projectPath, descriptors) {
		svcLog := log.WithService(l.Service.Name)
		if l.Duplicate {
			svcLog.Warn("duplicate service name in manifest, skipping")
			continue
		}
		if errors.Is(l.Err, errors.ErrUnsupportedLanguage) {
			svcLog.Debug("skipping service", "language", l.Service.Language, "reason", l.Err.Error())
			continue
		}
		if l.Err != nil {
			svcLog.Error("invalid service entry", "error", l.Err.Error())
			s.bus.Publish(event.NewServiceSpawnFailedEvent(l.Service.Name, l.Err))
			continue
		}

		req := SpawnRequest{
			ID:      uuid.NewString(),
			Service: l.Service,
			Command: l.Command,
			Dir:     l.Dir,
		}
		proc, err := s.spawner.Spawn(ctx, req)
		if err != nil {
			svcLog.Error("failed to spawn service", "error", err.Error(), "command", l.Command.String())
			s.bus.Publish(event.NewServiceSpawnFailedEvent(l.Service.Name, err))
			continue
		}
		if !s.register(proc) {
			continue
		}

		spawned++
		svcLog.Info("service spawned", "pid", proc.PID(), "command", l.Command.String(), "id", proc.ID)
		s.bus.Publish(event.NewServiceSpawnedEvent(l.Service.Name, proc.PID(), l.Command.Argv()))
		go s.monitor(proc)
	}
	return spawned
}

// Launch describes how one manifest entry would be started.
type Launch struct {
	Service manifest.ServiceDescriptor
	Command pathresolve.Command
	// Dir is the working directory, empty for services in a remote
	// environment.
	Dir string
	// Supported is true when the entry will be spawned. Command is empty
	// otherwise.
	Supported bool
	// Duplicate marks a descriptor whose name was already declared earlier.
	Duplicate bool
	// Err explains why a non-duplicate entry is not supported. It wraps
	// ErrUnsupportedLanguage when no interpreter is configured, or holds
	// the entry's validation error.
	Err error
}

// Plan resolves the launch of every descriptor, in order, without starting
// anything.
func (s *Supervisor) Plan(projectPath string, descriptors []manifest.ServiceDescriptor) []Launch {
	seen := make(map[string]bool, len(descriptors))
	plan := make([]Launch, 0, len(descriptors))

	for i, desc := range descriptors {
		l := Launch{Service: desc}
		if desc.Name != "" {
			if seen[desc.Name] {
				l.Duplicate = true
				plan = append(plan, l)
				continue
			}
			seen[desc.Name] = true
		}

		interpreter, ok := s.Interpreter(desc.Language)
		if !ok {
			l.Err = unsupported(desc)
			plan = append(plan, l)
			continue
		}
		if err := desc.Validate(i); err != nil {
			l.Err = err
			plan = append(plan, l)
			continue
		}

		l.Supported = true
		l.Command = s.resolver.Resolve(interpreter, desc.ScriptPath(projectPath))
		if !l.Command.Translated && !s.resolver.IsRemote(projectPath) {
			l.Dir = pathresolve.JoinHost(projectPath, desc.FolderName)
		}
		plan = append(plan, l)
	}
	return plan
}

func unsupported(desc manifest.ServiceDescriptor) error {
	if desc.NormalizedLanguage() == "" {
		return errors.Wrap(errors.ErrUnsupportedLanguage, "no language declared")
	}
	return errors.Wrapf(errors.ErrUnsupportedLanguage, "no interpreter configured for %q", desc.Language)
}

// register adds proc to the live map. A process spawned after Shutdown
// began is stopped instead.
func (s *Supervisor) register(proc *Process) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		go func() { _ = proc.Stop(s.opts.StopTimeout) }()
		return false
	}
	s.processes[proc.Name()] = proc
	s.mu.Unlock()
	return true
}

// monitor waits for proc to exit, drops it from the live map and records
// its exit code. The session status is not affected.
func (s *Supervisor) monitor(proc *Process) {
	<-proc.Done()

	s.mu.Lock()
	if s.processes[proc.Name()] == proc {
		delete(s.processes, proc.Name())
	}
	s.exitCodes[proc.Name()] = proc.ExitCode()
	s.mu.Unlock()

	stopped := proc.State() == ProcessStopped
	log := s.logger.WithService(proc.Name())
	if stopped {
		log.Info("service stopped", "exit_code", proc.ExitCode())
	} else {
		log.Warn("service exited", "exit_code", proc.ExitCode(), "runtime", proc.Runtime().String())
	}
	s.bus.Publish(event.NewServiceExitedEvent(proc.Name(), proc.ExitCode(), stopped))
}

// teardown stops every live process in parallel and returns how many
// were stopped. Each process gets StopTimeout before it is killed.
func (s *Supervisor) teardown(ctx context.Context) int {
	s.mu.Lock()
	procs := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	if len(procs) == 0 {
		return 0
	}

	var wg conc.WaitGroup
	for _, p := range procs {
		wg.Go(func() {
			if err := p.Stop(s.opts.StopTimeout); err != nil {
				s.logger.WithService(p.Name()).Error("failed to stop service", "error", err.Error())
			}
		})
	}
	wg.Wait()

	s.mu.Lock()
	for _, p := range procs {
		if s.processes[p.Name()] == p {
			delete(s.processes, p.Name())
		}
	}
	s.mu.Unlock()
	return len(procs)
}

// -----------------------------------------------------------------------------
// Queries
// -----------------------------------------------------------------------------

// Status returns the last committed status. It never fails and has no
// side effects.
func (s *Supervisor) Status() StatusResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatusResult{State: s.session.Status, Success: true}
}

// Session returns a copy of the session record.
func (s *Supervisor) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Processes returns the live processes sorted by service name.
func (s *Supervisor) Processes() []*Process {
	s.mu.Lock()
	procs := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	s.mu.Unlock()

	sort.Slice(procs, func(i, j int) bool { return procs[i].Name() < procs[j].Name() })
	return procs
}

// Process returns the live process for a service.
func (s *Supervisor) Process(name string) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.processes[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, errors.ErrProcessNotFound)
	}
	return p, nil
}

// LastExitCode returns the exit code of the most recent process for a
// service that has exited.
func (s *Supervisor) LastExitCode(name string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.exitCodes[name]
	return code, ok
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// callWithTimeout runs fn on its own goroutine and waits at most timeout
// for its answer, so a collaborator that ignores ctx cannot stall a
// transition.
func callWithTimeout[T any](ctx context.Context, timeout time.Duration, what string, fn func(context.Context) (T, error)) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		value T
		err   error
	}
	ch := make(chan answer, 1)
	go func() {
		v, err := fn(cctx)
		ch <- answer{v, err}
	}()

	select {
	case a := <-ch:
		return a.value, a.err
	case <-cctx.Done():
		var zero T
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return zero, errors.NewTimeoutError(what, timeout).WithCause(errors.ErrCollaboratorTimeout)
		}
		return zero, fmt.Errorf("%s: %w", what, errors.ErrCanceled)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
