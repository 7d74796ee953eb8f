package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/Iron-Ham/svcdeck/internal/errors"
	"github.com/Iron-Ham/svcdeck/internal/manifest"
	"github.com/Iron-Ham/svcdeck/internal/output"
	"github.com/Iron-Ham/svcdeck/internal/pathresolve"
)

// pipeWaitDelay bounds how long Wait keeps copying output after the process
// exits, in case a grandchild still holds the pipes open.
const pipeWaitDelay = 2 * time.Second

// SpawnRequest describes one process to start.
type SpawnRequest struct {
	ID      string
	Service manifest.ServiceDescriptor
	Command pathresolve.Command
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Spawner starts service processes.
type Spawner interface {
	Spawn(ctx context.Context, req SpawnRequest) (*Process, error)
}

// ExecSpawner starts services as child processes with their output piped
// into a Broadcaster. Each child gets its own process group.
type ExecSpawner struct {
	output *output.Broadcaster
}

// NewExecSpawner creates an ExecSpawner publishing to b. A nil b discards output.
func NewExecSpawner(b *output.Broadcaster) *ExecSpawner {
	return &ExecSpawner{output: b}
}

// Spawn starts the command in req. The context only bounds the start; the
// process outlives it.
func (s *ExecSpawner) Spawn(ctx context.Context, req SpawnRequest) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(req.Command.Executable, req.Command.Args...)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), req.Env...)
	cmd.WaitDelay = pipeWaitDelay
	if s.output != nil {
		cmd.Stdout = s.output.Writer(req.Service.Name, output.Stdout)
		cmd.Stderr = s.output.Writer(req.Service.Name, output.Stderr)
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errors.NewServiceError("failed to start service",
			fmt.Errorf("%w: %w", errors.ErrSpawnFailed, err)).
			WithService(req.Service.Name).
			WithExecutable(req.Command.Executable)
	}

	return NewProcess(req.ID, req.Service, req.Command, &execHandle{cmd: cmd}), nil
}

// execHandle adapts a started exec.Cmd to Handle.
type execHandle struct {
	cmd *exec.Cmd
}

func (h *execHandle) PID() int         { return h.cmd.Process.Pid }
func (h *execHandle) Terminate() error { return terminateGroup(h.cmd) }
func (h *execHandle) Kill() error      { return killGroup(h.cmd) }

func (h *execHandle) Wait() (int, error) {
	err := h.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) && h.cmd.ProcessState != nil {
		// The process itself exited; only the output copy was cut short.
		return h.cmd.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the process was ended by a signal.
		return exitErr.ExitCode(), err
	}
	return -1, err
}
