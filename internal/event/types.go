package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier, e.g. "session.started".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeSessionStateChanged = "session.state_changed"
	TypeSessionStarted      = "session.started"
	TypeSessionStopped      = "session.stopped"
	TypeSessionRestarted    = "session.restarted"
	TypeSessionFailed       = "session.failed"

	TypeServiceSpawned     = "service.spawned"
	TypeServiceSpawnFailed = "service.spawn_failed"
	TypeServiceExited      = "service.exited"

	TypeFileAdded       = "fs.added"
	TypeFileRemoved     = "fs.removed"
	TypeFileChanged     = "fs.changed"
	TypeFileTreeRebuilt = "fs.tree_rebuilt"
)

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionStateChangedEvent is emitted on every committed status change.
type SessionStateChangedEvent struct {
	baseEvent
	From string
	To   string
}

// NewSessionStateChangedEvent creates a SessionStateChangedEvent.
func NewSessionStateChangedEvent(from, to string) SessionStateChangedEvent {
	return SessionStateChangedEvent{
		baseEvent: newBaseEvent(TypeSessionStateChanged),
		From:      from,
		To:        to,
	}
}

// SessionStartedEvent is emitted when a start transition reaches running.
type SessionStartedEvent struct {
	baseEvent
	Success     bool
	Message     string
	ProjectPath string
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(message, projectPath string) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent:   newBaseEvent(TypeSessionStarted),
		Success:     true,
		Message:     message,
		ProjectPath: projectPath,
	}
}

// SessionStoppedEvent is emitted when a stop transition completes.
type SessionStoppedEvent struct {
	baseEvent
	Success bool
	Message string
}

// NewSessionStoppedEvent creates a SessionStoppedEvent.
func NewSessionStoppedEvent(message string) SessionStoppedEvent {
	return SessionStoppedEvent{
		baseEvent: newBaseEvent(TypeSessionStopped),
		Success:   true,
		Message:   message,
	}
}

// SessionRestartedEvent is emitted when a restart transition reaches running.
type SessionRestartedEvent struct {
	baseEvent
	Success     bool
	Message     string
	ProjectPath string
}

// NewSessionRestartedEvent creates a SessionRestartedEvent.
func NewSessionRestartedEvent(message, projectPath string) SessionRestartedEvent {
	return SessionRestartedEvent{
		baseEvent:   newBaseEvent(TypeSessionRestarted),
		Success:     true,
		Message:     message,
		ProjectPath: projectPath,
	}
}

// SessionFailedEvent is emitted when a transition fails and the session
// falls back to idle. Success is always false.
type SessionFailedEvent struct {
	baseEvent
	Success bool
	Message string
	Err     error
}

// NewSessionFailedEvent creates a SessionFailedEvent.
func NewSessionFailedEvent(message string, err error) SessionFailedEvent {
	return SessionFailedEvent{
		baseEvent: newBaseEvent(TypeSessionFailed),
		Message:   message,
		Err:       err,
	}
}

// -----------------------------------------------------------------------------
// Service Events
// -----------------------------------------------------------------------------

// ServiceSpawnedEvent is emitted after a service process has started.
type ServiceSpawnedEvent struct {
	baseEvent
	Service string
	PID     int
	Command []string // executable followed by args
}

// NewServiceSpawnedEvent creates a ServiceSpawnedEvent.
func NewServiceSpawnedEvent(service string, pid int, command []string) ServiceSpawnedEvent {
	return ServiceSpawnedEvent{
		baseEvent: newBaseEvent(TypeServiceSpawned),
		Service:   service,
		PID:       pid,
		Command:   command,
	}
}

// ServiceSpawnFailedEvent reports a per-service spawn failure. The rest of
// the batch is unaffected.
type ServiceSpawnFailedEvent struct {
	baseEvent
	Service string
	Err     error
}

// NewServiceSpawnFailedEvent creates a ServiceSpawnFailedEvent.
func NewServiceSpawnFailedEvent(service string, err error) ServiceSpawnFailedEvent {
	return ServiceSpawnFailedEvent{
		baseEvent: newBaseEvent(TypeServiceSpawnFailed),
		Service:   service,
		Err:       err,
	}
}

// ServiceExitedEvent is emitted when a service process exits, whether it
// was stopped or ended on its own.
type ServiceExitedEvent struct {
	baseEvent
	Service  string
	ExitCode int
	Stopped  bool // true when the exit was requested by the supervisor
}

// NewServiceExitedEvent creates a ServiceExitedEvent.
func NewServiceExitedEvent(service string, exitCode int, stopped bool) ServiceExitedEvent {
	return ServiceExitedEvent{
		baseEvent: newBaseEvent(TypeServiceExited),
		Service:   service,
		ExitCode:  exitCode,
		Stopped:   stopped,
	}
}

// -----------------------------------------------------------------------------
// Filesystem Events
// -----------------------------------------------------------------------------

// FileChangeEvent reports one path from a detector cycle. The event type is
// one of fs.added, fs.removed or fs.changed.
type FileChangeEvent struct {
	baseEvent
	Path    string
	ModTime time.Time // zero for removals
}

// NewFileAddedEvent creates an fs.added event.
func NewFileAddedEvent(path string, modTime time.Time) FileChangeEvent {
	return FileChangeEvent{baseEvent: newBaseEvent(TypeFileAdded), Path: path, ModTime: modTime}
}

// NewFileRemovedEvent creates an fs.removed event.
func NewFileRemovedEvent(path string) FileChangeEvent {
	return FileChangeEvent{baseEvent: newBaseEvent(TypeFileRemoved), Path: path}
}

// NewFileChangedEvent creates an fs.changed event.
func NewFileChangedEvent(path string, modTime time.Time) FileChangeEvent {
	return FileChangeEvent{baseEvent: newBaseEvent(TypeFileChanged), Path: path, ModTime: modTime}
}

// FileTreeRebuiltEvent is emitted after the detector replaced its tree.
type FileTreeRebuiltEvent struct {
	baseEvent
	Root    string
	Entries int
}

// NewFileTreeRebuiltEvent creates a FileTreeRebuiltEvent.
func NewFileTreeRebuiltEvent(root string, entries int) FileTreeRebuiltEvent {
	return FileTreeRebuiltEvent{
		baseEvent: newBaseEvent(TypeFileTreeRebuilt),
		Root:      root,
		Entries:   entries,
	}
}
