package supervisor

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/event"
	"github.com/Iron-Ham/svcdeck/internal/manifest"
)

// -----------------------------------------------------------------------------
// Test doubles
// -----------------------------------------------------------------------------

type fakeHandle struct {
	pid        int
	ignoreTerm bool
	exit       chan int
	once       sync.Once
	terminated atomic.Bool
	killed     atomic.Bool
}

func newFakeHandle(pid int, ignoreTerm bool) *fakeHandle {
	return &fakeHandle{pid: pid, ignoreTerm: ignoreTerm, exit: make(chan int, 1)}
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Terminate() error {
	h.terminated.Store(true)
	if !h.ignoreTerm {
		h.finish(0)
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.killed.Store(true)
	h.finish(-1)
	return nil
}

func (h *fakeHandle) finish(code int) {
	h.once.Do(func() { h.exit <- code })
}

func (h *fakeHandle) Wait() (int, error) {
	return <-h.exit, nil
}

type fakeSpawner struct {
	mu         sync.Mutex
	requests   []SpawnRequest
	handles    map[string]*fakeHandle
	failFor    map[string]bool
	ignoreTerm bool
	nextPID    int
}

func newFakeSpawner() *fakeSpawner {
	return &fakeSpawner{handles: make(map[string]*fakeHandle), failFor: make(map[string]bool), nextPID: 1000}
}

func (f *fakeSpawner) Spawn(_ context.Context, req SpawnRequest) (*Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if f.failFor[req.Service.Name] {
		return nil, errors.NewServiceError("failed to start service", errors.ErrSpawnFailed).
			WithService(req.Service.Name)
	}
	f.nextPID++
	h := newFakeHandle(f.nextPID, f.ignoreTerm)
	f.handles[req.Service.Name] = h
	return NewProcess(req.ID, req.Service, req.Command, h), nil
}

func (f *fakeSpawner) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for _, r := range f.requests {
		names = append(names, r.Service.Name)
	}
	return names
}

func (f *fakeSpawner) handle(name string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[name]
}

type fakeManifests struct {
	mu       sync.Mutex
	services []manifest.ServiceDescriptor
	err      error
	block    chan struct{} // when non-nil, Services waits on it and ignores ctx
	paths    []string
}

func (m *fakeManifests) Services(_ context.Context, projectPath string) ([]manifest.ServiceDescriptor, error) {
	m.mu.Lock()
	m.paths = append(m.paths, projectPath)
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	return m.services, m.err
}

type locatorFunc func(ctx context.Context) (string, error)

func (f locatorFunc) CurrentProjectPath(ctx context.Context) (string, error) { return f(ctx) }

func svc(name, lang string) manifest.ServiceDescriptor {
	return manifest.ServiceDescriptor{Name: name, Language: lang, FolderName: name, FileName: "main.py"}
}

// eventLog collects every published event.
type eventLog struct {
	mu     sync.Mutex
	events []event.Event
}

func (l *eventLog) handle(e event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType()
	}
	return out
}

func (l *eventLog) count(eventType string) int {
	n := 0
	for _, t := range l.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type harness struct {
	sup       *Supervisor
	spawner   *fakeSpawner
	manifests *fakeManifests
	events    *eventLog
}

func newHarness(t *testing.T, services ...manifest.ServiceDescriptor) *harness {
	t.Helper()

	h := &harness{
		spawner:   newFakeSpawner(),
		manifests: &fakeManifests{services: services},
		events:    &eventLog{},
	}
	bus := event.NewBus(nil)
	bus.SubscribeAll(h.events.handle)

	sup, err := New(Config{
		Locator:   locatorFunc(func(context.Context) (string, error) { return "/located", nil }),
		Manifests: h.manifests,
		Spawner:   h.spawner,
		Bus:       bus,
		Options: Options{
			CollaboratorTimeout: time.Second,
			StopTimeout:         50 * time.Millisecond,
			SettleDelay:         time.Millisecond,
			Interpreters:        map[string]string{"Python": "/usr/bin/python3"},
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.sup = sup
	t.Cleanup(func() { _ = sup.Shutdown(context.Background()) })
	return h
}

// -----------------------------------------------------------------------------
// Start
// -----------------------------------------------------------------------------

func TestStart_SpawnsOnlySupportedLanguages(t *testing.T) {
	h := newHarness(t, svc("a", "python"), svc("b", "node"), svc("c", "PYTHON"), svc("d", "ruby"))

	res := h.sup.Start(context.Background(), "/proj")
	if !res.Success {
		t.Fatalf("Start() failed: %s (%v)", res.Message, res.Err)
	}
	if res.State != StatusRunning {
		t.Errorf("State = %q, want running", res.State)
	}
	if got := h.spawner.names(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("spawned %v, want [a c]", got)
	}
	if res.Message != "Started 2 of 4 services" {
		t.Errorf("Message = %q", res.Message)
	}
	if n := len(h.sup.Processes()); n != 2 {
		t.Errorf("len(Processes()) = %d, want 2", n)
	}
}

func TestStart_ResolvesCommand(t *testing.T) {
	h := newHarness(t, svc("auth", "python"))

	h.sup.Start(context.Background(), "/proj")

	h.spawner.mu.Lock()
	req := h.spawner.requests[0]
	h.spawner.mu.Unlock()

	want := []string{"/usr/bin/python3", "-u", "/proj/auth/main.py"}
	if !slices.Equal(req.Command.Argv(), want) {
		t.Errorf("Argv() = %q, want %q", req.Command.Argv(), want)
	}
	if req.Dir != "/proj/auth" {
		t.Errorf("Dir = %q, want /proj/auth", req.Dir)
	}
	if req.ID == "" {
		t.Error("request ID should be set")
	}
}

func TestStart_PublishesTransitionEvents(t *testing.T) {
	h := newHarness(t, svc("a", "python"))

	h.sup.Start(context.Background(), "/proj")

	want := []string{
		event.TypeSessionStateChanged,
		event.TypeServiceSpawned,
		event.TypeSessionStateChanged,
		event.TypeSessionStarted,
	}
	if got := h.events.types(); !slices.Equal(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}

	first := h.events.events[0].(event.SessionStateChangedEvent)
	if first.From != "idle" || first.To != "loading" {
		t.Errorf("first change = %s→%s", first.From, first.To)
	}
}

func TestStart_SecondStartRejected(t *testing.T) {
	h := newHarness(t, svc("a", "python"))

	if res := h.sup.Start(context.Background(), "/proj"); !res.Success {
		t.Fatalf("first Start() failed: %s", res.Message)
	}
	res := h.sup.Start(context.Background(), "/proj")
	if res.Success {
		t.Fatal("second Start() should be rejected")
	}
	if res.Message != "already running or starting" {
		t.Errorf("Message = %q", res.Message)
	}
	if !errors.Is(res.Err, errors.ErrAlreadyRunning) {
		t.Errorf("Err = %v, want ErrAlreadyRunning", res.Err)
	}
	if res.State != StatusRunning {
		t.Errorf("State = %q, want running", res.State)
	}
	if n := len(h.spawner.names()); n != 1 {
		t.Errorf("spawned %d processes, want 1", n)
	}
}

func TestStart_RejectedWhileLoading(t *testing.T) {
	h := newHarness(t, svc("a", "python"))
	h.manifests.block = make(chan struct{})

	first := make(chan Result, 1)
	go func() { first <- h.sup.Start(context.Background(), "/proj") }()

	deadline := time.Now().Add(2 * time.Second)
	for h.sup.Status().State != StatusLoading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	res := h.sup.Start(context.Background(), "/proj")
	if res.Success || !errors.Is(res.Err, errors.ErrAlreadyRunning) {
		t.Errorf("Start() during loading = %+v, want rejection", res)
	}
	if r := h.sup.Stop(context.Background()); r.Success {
		t.Error("Stop() during loading should be rejected")
	}

	close(h.manifests.block)
	if r := <-first; !r.Success {
		t.Fatalf("first Start() failed: %s", r.Message)
	}
	if n := len(h.spawner.names()); n != 1 {
		t.Errorf("spawned %d processes, want 1", n)
	}
}

func TestStart_CollaboratorTimeout(t *testing.T) {
	h := newHarness(t, svc("a", "python"))
	h.sup.opts.CollaboratorTimeout = 30 * time.Millisecond
	h.manifests.block = make(chan struct{})
	defer close(h.manifests.block)

	res := h.sup.Start(context.Background(), "/proj")
	if res.Success {
		t.Fatal("Start() should fail when the manifest never arrives")
	}
	if !errors.Is(res.Err, errors.ErrCollaboratorTimeout) || !errors.Is(res.Err, errors.ErrTimeout) {
		t.Errorf("Err = %v, want collaborator timeout", res.Err)
	}
	if got := h.sup.Status().State; got != StatusIdle {
		t.Errorf("State = %q, want idle", got)
	}
	if h.events.count(event.TypeSessionFailed) != 1 {
		t.Errorf("events = %v, want one session.failed", h.events.types())
	}
	if h.sup.Session().LastError == nil {
		t.Error("LastError should record the failure")
	}
}

func TestStart_ManifestError(t *testing.T) {
	h := newHarness(t)
	h.manifests.err = errors.NewNotFoundError("manifest", "/proj/services.json")

	res := h.sup.Start(context.Background(), "/proj")
	if res.Success || res.State != StatusIdle {
		t.Errorf("Start() = %+v, want failure to idle", res)
	}

	// The session is usable again afterwards.
	h.manifests.err = nil
	if res := h.sup.Start(context.Background(), "/proj"); !res.Success {
		t.Errorf("Start() after failure = %+v", res)
	}
}

func TestStart_UsesLocatorForEmptyPath(t *testing.T) {
	h := newHarness(t, svc("a", "python"))

	res := h.sup.Start(context.Background(), "")
	if !res.Success {
		t.Fatalf("Start() failed: %s", res.Message)
	}
	if got := h.sup.Session().ProjectPath; got != "/located" {
		t.Errorf("ProjectPath = %q, want /located", got)
	}
}

func TestStart_LocatorFailure(t *testing.T) {
	h := newHarness(t)
	h.sup.locator = locatorFunc(func(context.Context) (string, error) {
		return "", fmt.Errorf("no project open")
	})

	res := h.sup.Start(context.Background(), "")
	if res.Success || h.sup.Status().State != StatusIdle {
		t.Errorf("Start() = %+v, want failure", res)
	}
}

func TestStart_SpawnFailureDoesNotAbortBatch(t *testing.T) {
	h := newHarness(t, svc("a", "python"), svc("b", "python"), svc("c", "python"))
	h.spawner.failFor["b"] = true

	res := h.sup.Start(context.Background(), "/proj")
	if !res.Success {
		t.Fatalf("Start() failed: %s", res.Message)
	}
	if got := h.spawner.names(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("spawn attempts = %v", got)
	}
	if n := len(h.sup.Processes()); n != 2 {
		t.Errorf("live processes = %d, want 2", n)
	}
	if h.events.count(event.TypeServiceSpawnFailed) != 1 {
		t.Errorf("events = %v, want one spawn_failed", h.events.types())
	}
}

func TestStart_ZeroServicesStillSucceeds(t *testing.T) {
	h := newHarness(t, svc("a", "cobol"))

	res := h.sup.Start(context.Background(), "/proj")
	if !res.Success || res.State != StatusRunning {
		t.Errorf("Start() = %+v, want success", res)
	}
}

func TestStart_DuplicateNamesFirstWins(t *testing.T) {
	first := svc("a", "python")
	second := svc("a", "python")
	second.FileName = "other.py"
	h := newHarness(t, first, second)

	h.sup.Start(context.Background(), "/proj")

	procs := h.sup.Processes()
	if len(procs) != 1 || procs[0].Service.FileName != "main.py" {
		t.Errorf("processes = %v, want only the first descriptor", procs)
	}
}

func TestStart_SkipsEntryWithoutLanguage(t *testing.T) {
	h := newHarness(t, svc("good", "python"), svc("nolang", ""))

	res := h.sup.Start(context.Background(), "/proj")
	if !res.Success || res.State != StatusRunning {
		t.Fatalf("Start() = %+v, want success", res)
	}
	if got := h.spawner.names(); !slices.Equal(got, []string{"good"}) {
		t.Errorf("spawned %v, want [good]", got)
	}
	if res.Message != "Started 1 of 2 services" {
		t.Errorf("Message = %q", res.Message)
	}
	if n := h.events.count(event.TypeServiceSpawnFailed); n != 0 {
		t.Errorf("spawn_failed events = %d, want 0 for an unsupported entry", n)
	}
}

func TestStart_InvalidEntryFailsOnlyThatService(t *testing.T) {
	noFile := svc("nofile", "python")
	noFile.FileName = ""
	badPort := svc("badport", "python")
	badPort.Port = 70000
	h := newHarness(t, svc("good", "python"), noFile, badPort)

	failed := make(map[string]error)
	h.sup.Bus().Subscribe(event.TypeServiceSpawnFailed, func(e event.Event) {
		f := e.(event.ServiceSpawnFailedEvent)
		failed[f.Service] = f.Err
	})

	res := h.sup.Start(context.Background(), "/proj")
	if !res.Success {
		t.Fatalf("Start() failed: %s (%v)", res.Message, res.Err)
	}
	if got := h.spawner.names(); !slices.Equal(got, []string{"good"}) {
		t.Errorf("spawn attempts = %v, want [good]", got)
	}
	for _, name := range []string{"nofile", "badport"} {
		if !errors.Is(failed[name], errors.ErrManifestInvalid) {
			t.Errorf("spawn_failed for %s = %v, want ErrManifestInvalid", name, failed[name])
		}
	}
}

// -----------------------------------------------------------------------------
// Stop / Restart
// -----------------------------------------------------------------------------

func TestStop(t *testing.T) {
	h := newHarness(t, svc("a", "python"), svc("b", "python"))

	if res := h.sup.Stop(context.Background()); res.Success || res.Message != "not running" {
		t.Errorf("Stop() while idle = %+v, want rejection", res)
	}

	h.sup.Start(context.Background(), "/proj")
	res := h.sup.Stop(context.Background())
	if !res.Success || res.State != StatusIdle {
		t.Fatalf("Stop() = %+v", res)
	}
	if n := len(h.sup.Processes()); n != 0 {
		t.Errorf("live processes after Stop = %d", n)
	}
	for _, name := range []string{"a", "b"} {
		if !h.spawner.handle(name).terminated.Load() {
			t.Errorf("%s was not terminated", name)
		}
	}
	if h.events.count(event.TypeSessionStopped) != 1 {
		t.Errorf("events = %v, want one session.stopped", h.events.types())
	}
}

func TestStop_ReportsIdleDuringTeardown(t *testing.T) {
	h := newHarness(t, svc("stubborn", "python"))
	h.spawner.ignoreTerm = true
	h.sup.opts.StopTimeout = 10 * time.Second
	h.sup.Start(context.Background(), "/proj")

	stopped := make(chan Result, 1)
	go func() { stopped <- h.sup.Stop(context.Background()) }()

	hd := h.spawner.handle("stubborn")
	deadline := time.Now().Add(2 * time.Second)
	for !hd.terminated.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !hd.terminated.Load() {
		t.Fatal("Stop() never terminated the service")
	}

	if st := h.sup.Status().State; st != StatusIdle {
		t.Errorf("State during teardown = %q, want idle", st)
	}
	if res := h.sup.Start(context.Background(), "/proj"); res.Success {
		t.Error("Start() during teardown should be rejected")
	}

	hd.finish(0)
	if res := <-stopped; !res.Success || res.State != StatusIdle {
		t.Errorf("Stop() = %+v", res)
	}
}

func TestStop_KillsAfterTimeout(t *testing.T) {
	h := newHarness(t, svc("stubborn", "python"))
	h.spawner.ignoreTerm = true

	h.sup.Start(context.Background(), "/proj")
	proc, err := h.sup.Process("stubborn")
	if err != nil {
		t.Fatal(err)
	}

	started := time.Now()
	h.sup.Stop(context.Background())

	hd := h.spawner.handle("stubborn")
	if !hd.terminated.Load() || !hd.killed.Load() {
		t.Errorf("terminated=%v killed=%v, want both", hd.terminated.Load(), hd.killed.Load())
	}
	if elapsed := time.Since(started); elapsed < 50*time.Millisecond {
		t.Errorf("killed after %v, before the stop timeout", elapsed)
	}
	if proc.State() != ProcessStopped {
		t.Errorf("process state = %v, want stopped", proc.State())
	}
}

func TestRestart(t *testing.T) {
	h := newHarness(t, svc("a", "python"))

	if res := h.sup.Restart(context.Background(), ""); res.Success {
		t.Error("Restart() while idle should be rejected")
	}

	h.sup.Start(context.Background(), "/proj")
	before, _ := h.sup.Process("a")

	res := h.sup.Restart(context.Background(), "")
	if !res.Success || res.State != StatusRunning {
		t.Fatalf("Restart() = %+v", res)
	}
	after, err := h.sup.Process("a")
	if err != nil {
		t.Fatal(err)
	}
	if after.ID == before.ID {
		t.Error("Restart() should start a new process")
	}
	if before.IsRunning() {
		t.Error("old process should have been stopped")
	}

	h.manifests.mu.Lock()
	paths := slices.Clone(h.manifests.paths)
	h.manifests.mu.Unlock()
	if !slices.Equal(paths, []string{"/proj", "/proj"}) {
		t.Errorf("manifest requested for %v, want the same project twice", paths)
	}
	if h.events.count(event.TypeSessionRestarted) != 1 {
		t.Errorf("events = %v, want one session.restarted", h.events.types())
	}
}

func TestRestart_FailureFallsBackToIdle(t *testing.T) {
	h := newHarness(t, svc("a", "python"))
	h.sup.Start(context.Background(), "/proj")

	h.manifests.err = fmt.Errorf("manifest deleted")
	res := h.sup.Restart(context.Background(), "")
	if res.Success || res.State != StatusIdle {
		t.Errorf("Restart() = %+v, want failure to idle", res)
	}
	if n := len(h.sup.Processes()); n != 0 {
		t.Errorf("live processes = %d, want 0", n)
	}
}

// -----------------------------------------------------------------------------
// Status, exits, shutdown
// -----------------------------------------------------------------------------

func TestStatus_Idempotent(t *testing.T) {
	h := newHarness(t, svc("a", "python"))

	for range 3 {
		if got := h.sup.Status(); got.State != StatusIdle || !got.Success {
			t.Fatalf("Status() = %+v", got)
		}
	}
	h.sup.Start(context.Background(), "/proj")
	a, b := h.sup.Status(), h.sup.Status()
	if a != b || a.State != StatusRunning {
		t.Errorf("Status() = %+v then %+v", a, b)
	}
	if n := len(h.events.types()); n != 4 {
		t.Errorf("Status() should not publish events, got %d events", n)
	}
}

func TestProcessExit_KeepsSessionRunning(t *testing.T) {
	h := newHarness(t, svc("a", "python"), svc("b", "python"))

	exited := make(chan event.ServiceExitedEvent, 1)
	h.sup.Bus().Subscribe(event.TypeServiceExited, func(e event.Event) {
		select {
		case exited <- e.(event.ServiceExitedEvent):
		default:
		}
	})

	h.sup.Start(context.Background(), "/proj")
	h.spawner.handle("a").finish(3)

	select {
	case e := <-exited:
		if e.Service != "a" || e.ExitCode != 3 || e.Stopped {
			t.Errorf("exit event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no service.exited event")
	}

	if _, err := h.sup.Process("a"); !errors.Is(err, errors.ErrProcessNotFound) {
		t.Errorf("Process(a) error = %v, want ErrProcessNotFound", err)
	}
	if code, ok := h.sup.LastExitCode("a"); !ok || code != 3 {
		t.Errorf("LastExitCode(a) = (%d, %v)", code, ok)
	}
	if h.sup.Status().State != StatusRunning {
		t.Error("session should stay running when one service exits")
	}
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, svc("a", "python"))
	h.sup.Start(context.Background(), "/proj")

	if err := h.sup.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if h.sup.Status().State != StatusIdle {
		t.Errorf("State = %q after Shutdown", h.sup.Status().State)
	}
	if !h.spawner.handle("a").terminated.Load() {
		t.Error("Shutdown should terminate services")
	}

	res := h.sup.Start(context.Background(), "/proj")
	if res.Success || !errors.Is(res.Err, errors.ErrSupervisorClosed) {
		t.Errorf("Start() after Shutdown = %+v", res)
	}
	if err := h.sup.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}

func TestShutdown_DuringStartLeavesIdle(t *testing.T) {
	h := newHarness(t, svc("a", "python"))
	h.manifests.block = make(chan struct{})

	started := make(chan Result, 1)
	go func() { started <- h.sup.Start(context.Background(), "/proj") }()

	deadline := time.Now().Add(2 * time.Second)
	for h.sup.Status().State != StatusLoading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := h.sup.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	close(h.manifests.block)

	res := <-started
	if res.Success || !errors.Is(res.Err, errors.ErrSupervisorClosed) {
		t.Errorf("Start() = %+v, want ErrSupervisorClosed", res)
	}
	if res.State != StatusIdle || h.sup.Status().State != StatusIdle {
		t.Errorf("State = %q / %q, want idle", res.State, h.sup.Status().State)
	}
	if n := len(h.sup.Processes()); n != 0 {
		t.Errorf("live processes = %d, want 0", n)
	}
	if h.events.count(event.TypeSessionFailed) != 1 || h.events.count(event.TypeSessionStarted) != 0 {
		t.Errorf("events = %v, want session.failed and no session.started", h.events.types())
	}
	if hd := h.spawner.handle("a"); hd != nil {
		deadline := time.Now().Add(2 * time.Second)
		for !hd.terminated.Load() && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		if !hd.terminated.Load() {
			t.Error("process spawned after Shutdown should be stopped")
		}
	}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Spawner: newFakeSpawner()}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("New() without manifests error = %v", err)
	}
	if _, err := New(Config{Manifests: &fakeManifests{}}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("New() without spawner error = %v", err)
	}
}

func TestSupportedLanguages(t *testing.T) {
	h := newHarness(t)
	if got := h.sup.SupportedLanguages(); !slices.Equal(got, []string{"python"}) {
		t.Errorf("SupportedLanguages() = %v", got)
	}
	if _, ok := h.sup.Interpreter(" Python "); !ok {
		t.Error("Interpreter lookup should ignore case and spaces")
	}
}

func TestPlan(t *testing.T) {
	h := newHarness(t)
	plan := h.sup.Plan("/proj", []manifest.ServiceDescriptor{
		svc("auth", "python"),
		svc("web", "node"),
		svc("auth", "python"),
	})

	if len(plan) != 3 {
		t.Fatalf("len(Plan()) = %d, want 3", len(plan))
	}
	if !plan[0].Supported || plan[0].Duplicate {
		t.Errorf("plan[0] = %+v, want supported", plan[0])
	}
	if got := plan[0].Command.String(); got != "/usr/bin/python3 -u /proj/auth/main.py" {
		t.Errorf("plan[0].Command = %q", got)
	}
	if plan[0].Dir != "/proj/auth" {
		t.Errorf("plan[0].Dir = %q, want /proj/auth", plan[0].Dir)
	}
	if plan[1].Supported || plan[1].Command.Executable != "" {
		t.Errorf("plan[1] = %+v, want unsupported with no command", plan[1])
	}
	if !errors.Is(plan[1].Err, errors.ErrUnsupportedLanguage) {
		t.Errorf("plan[1].Err = %v, want ErrUnsupportedLanguage", plan[1].Err)
	}
	if !plan[2].Duplicate {
		t.Errorf("plan[2] = %+v, want duplicate", plan[2])
	}
	if n := len(h.spawner.names()); n != 0 {
		t.Errorf("Plan() spawned %d processes", n)
	}
}

func TestPlan_ClassifiesBadEntries(t *testing.T) {
	h := newHarness(t)
	noFile := svc("nofile", "python")
	noFile.FileName = ""
	plan := h.sup.Plan("/proj", []manifest.ServiceDescriptor{
		svc("nolang", ""),
		noFile,
		svc("", "python"),
		svc("", "python"),
	})

	if plan[0].Supported || !errors.Is(plan[0].Err, errors.ErrUnsupportedLanguage) {
		t.Errorf("plan[0] = %+v, want unsupported", plan[0])
	}
	if plan[1].Supported || !errors.Is(plan[1].Err, errors.ErrManifestInvalid) {
		t.Errorf("plan[1] = %+v, want invalid", plan[1])
	}
	for _, l := range plan[2:] {
		if l.Duplicate || !errors.Is(l.Err, errors.ErrManifestInvalid) {
			t.Errorf("nameless entry = %+v, want invalid and not a duplicate", l)
		}
	}
}

func TestPlan_RemoteProjectHasNoDir(t *testing.T) {
	h := newHarness(t)
	plan := h.sup.Plan(`\\wsl$\Ubuntu\home\me\proj`, []manifest.ServiceDescriptor{svc("auth", "python")})

	if plan[0].Dir != "" {
		t.Errorf("Dir = %q, want empty for a remote project", plan[0].Dir)
	}
}
