package supervisor

import (
	"context"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/manifest"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusRunning Status = "running"
)

// Session is the supervisor's record of the current run.
type Session struct {
	Status      Status
	StartTime   time.Time
	LastError   error
	ProjectPath string
}

// Result is the outcome of a Start, Stop or Restart call.
type Result struct {
	Success bool
	Message string
	// State is the committed status after the call.
	State Status
	Err   error
}

// StatusResult is returned by Status. Success is always true.
type StatusResult struct {
	State   Status
	Success bool
}

// ProjectLocator answers which project is currently open. One call yields
// exactly one answer or an error, and must honour ctx.
type ProjectLocator interface {
	CurrentProjectPath(ctx context.Context) (string, error)
}

// ManifestProvider supplies the services declared by a project, in
// declaration order. One call yields exactly one answer or an error.
type ManifestProvider interface {
	Services(ctx context.Context, projectPath string) ([]manifest.ServiceDescriptor, error)
}

// Default timings.
const (
	DefaultCollaboratorTimeout = 30 * time.Second
	DefaultStopTimeout         = 5 * time.Second
	DefaultSettleDelay         = 500 * time.Millisecond
)

// Options tunes the supervisor.
type Options struct {
	// CollaboratorTimeout bounds each project path and manifest request.
	CollaboratorTimeout time.Duration
	// StopTimeout is how long a process gets between terminate and kill.
	StopTimeout time.Duration
	// SettleDelay is the pause between teardown and respawn on restart.
	SettleDelay time.Duration
	// Interpreters maps a service language to its interpreter path.
	// Languages missing from the map are not started.
	Interpreters map[string]string
}

// DefaultOptions returns the default timings with a python interpreter.
func DefaultOptions() Options {
	return Options{
		CollaboratorTimeout: DefaultCollaboratorTimeout,
		StopTimeout:         DefaultStopTimeout,
		SettleDelay:         DefaultSettleDelay,
		Interpreters:        map[string]string{"python": "python3"},
	}
}
