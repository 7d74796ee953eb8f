package supervisor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/manifest"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
)

// ProcessState represents the lifecycle state of a service process.
type ProcessState int32

const (
	// ProcessRunning indicates the process has been started and not yet exited.
	ProcessRunning ProcessState = iota
	// ProcessExited indicates the process ended on its own.
	ProcessExited
	// ProcessStopped indicates the process ended after the supervisor asked it to.
	ProcessStopped
)

// String returns a human-readable state name.
func (s ProcessState) String() string {
	switch s {
	case ProcessRunning:
		return "running"
	case ProcessExited:
		return "exited"
	case ProcessStopped:
		return "stopped"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Handle is the OS side of a started process.
type Handle interface {
	// PID returns the OS process ID.
	PID() int
	// Terminate asks the process (and its group) to exit.
	Terminate() error
	// Kill forcibly ends the process (and its group).
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
}

// Process is one running service.
//
// A goroutine started by NewProcess waits on the handle and closes Done
// when the process exits. Process is safe for concurrent use.
type Process struct {
	// ID uniquely identifies this process across restarts.
	ID string

	// Service is the descriptor the process was started from.
	Service manifest.ServiceDescriptor

	// Command is the resolved command line.
	Command pathresolve.Command

	// Started is the time the process was started.
	Started time.Time

	handle   Handle
	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32
	stopping atomic.Bool

	mu      sync.RWMutex
	exitErr error
}

// NewProcess wraps an already started handle and begins waiting on it.
func NewProcess(id string, svc manifest.ServiceDescriptor, cmd pathresolve.Command, h Handle) *Process {
	p := &Process{
		ID:      id,
		Service: svc,
		Command: cmd,
		Started: time.Now(),
		handle:  h,
		done:    make(chan struct{}),
	}
	p.state.Store(int32(ProcessRunning))
	p.exitCode.Store(-1)
	go p.waitLoop()
	return p
}

// Name returns the service name.
func (p *Process) Name() string { return p.Service.Name }

// PID returns the OS process ID.
func (p *Process) PID() int { return p.handle.PID() }

// State returns the current process state.
func (p *Process) State() ProcessState { return ProcessState(p.state.Load()) }

// ExitCode returns the exit code. It is -1 while the process is running
// and when it was ended by a signal.
func (p *Process) ExitCode() int { return int(p.exitCode.Load()) }

// ExitError returns the error from waiting on the process, if any.
func (p *Process) ExitError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.exitErr
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// IsRunning reports whether the process has not exited yet.
func (p *Process) IsRunning() bool { return p.State() == ProcessRunning }

// Runtime returns how long the process has been running.
func (p *Process) Runtime() time.Duration { return time.Since(p.Started) }

func (p *Process) waitLoop() {
	code, err := p.handle.Wait()

	p.mu.Lock()
	p.exitErr = err
	p.mu.Unlock()

	state := ProcessExited
	if p.stopping.Load() {
		state = ProcessStopped
	}
	p.exitCode.Store(int32(code))
	p.state.Store(int32(state))
	close(p.done)
}

// Stop asks the process to exit and kills it if it is still running after
// timeout. It returns once the process has exited or a second timeout has
// passed after the kill.
func (p *Process) Stop(timeout time.Duration) error {
	if !p.IsRunning() {
		return nil
	}
	p.stopping.Store(true)

	// An error here is not fatal: Kill follows on timeout.
	_ = p.handle.Terminate()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	if err := p.handle.Kill(); err != nil && p.IsRunning() {
		return errors.NewServiceError("failed to kill process", err).WithService(p.Name())
	}

	timer.Reset(timeout)
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		return errors.NewTimeoutError(fmt.Sprintf("waiting for %s to exit", p.Name()), timeout)
	}
}
