package sigrok

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrWaitTimeout is returned by Runner.Wait when the process is still
// running after the bound elapses. The process is left running; the
// caller decides whether to kill it.
var ErrWaitTimeout = errors.New("sigrok: wait bound elapsed")

// Runner is the external-process capability a Session depends on. The
// real implementation spawns the capture tool; tests substitute a
// PlaybackRunner with canned output so the decode paths run without any
// process. A Runner handles one process: Start may be called once.
type Runner interface {
	// Start spawns the process without blocking.
	Start(argv []string) error

	// Wait blocks until the process exits or the bound elapses. On exit
	// it returns the captured stdout and the exit code; on elapse it
	// returns ErrWaitTimeout with the process still running.
	Wait(timeout time.Duration) (stdout string, exitCode int, err error)

	// Kill forcibly terminates the process. No-op if already exited.
	Kill() error

	// Running reports whether the process was started and has not exited.
	Running() bool

	// Stderr returns whatever the process wrote to standard error so
	// far, for error reports.
	Stderr() string
}

// ExecRunner runs the capture tool as a real subprocess. Not safe for
// concurrent use; a recording session is confined to one goroutine.
type ExecRunner struct {
	cmd      *exec.Cmd
	stdout   bytes.Buffer
	stderr   bytes.Buffer
	done     chan error
	finished bool
}

func (r *ExecRunner) Start(argv []string) error {
	if r.cmd != nil {
		return errors.New("sigrok: runner already started")
	}
	if len(argv) == 0 {
		return errors.New("sigrok: empty command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = &r.stdout
	cmd.Stderr = &r.stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("sigrok: starting %s: %w", argv[0], err)
	}
	r.cmd = cmd
	r.done = make(chan error, 1)
	go func() { r.done <- cmd.Wait() }()
	return nil
}

func (r *ExecRunner) Wait(timeout time.Duration) (string, int, error) {
	if r.cmd == nil {
		return "", 0, errors.New("sigrok: runner not started")
	}
	if r.finished {
		return r.stdout.String(), r.cmd.ProcessState.ExitCode(), nil
	}
	select {
	case err := <-r.done:
		r.finished = true
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return r.stdout.String(), exitErr.ExitCode(), nil
			}
			return "", 0, fmt.Errorf("sigrok: waiting for capture tool: %w", err)
		}
		return r.stdout.String(), 0, nil
	case <-time.After(timeout):
		return "", 0, ErrWaitTimeout
	}
}

func (r *ExecRunner) Kill() error {
	if r.cmd == nil || r.finished {
		return nil
	}
	if err := r.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("sigrok: killing capture tool: %w", err)
	}
	// Reap the process so Running() reflects the kill.
	<-r.done
	r.finished = true
	return nil
}

func (r *ExecRunner) Running() bool {
	if r.cmd == nil || r.finished {
		return false
	}
	select {
	case err := <-r.done:
		r.finished = true
		_ = err
		return false
	default:
		return true
	}
}

// Stderr returns whatever the tool wrote to standard error so far.
func (r *ExecRunner) Stderr() string { return r.stderr.String() }

// PlaybackRunner is an in-memory Runner that replays canned capture
// output, so decoder and session logic can be exercised without spawning
// anything. It records the argv it was started with and whether it was
// killed, for inspection within tests.
type PlaybackRunner struct {
	// Output is returned from Wait as the captured stdout.
	Output string

	// ExitCode is the simulated exit status.
	ExitCode int

	// Hang simulates a tool that never exits: Wait always returns
	// ErrWaitTimeout until the runner is killed.
	Hang bool

	// ErrOutput is returned from Stderr as the captured standard error.
	ErrOutput string

	Argv    []string
	Started bool
	Killed  bool

	exited bool
}

func (r *PlaybackRunner) Start(argv []string) error {
	if r.Started {
		return errors.New("sigrok: runner already started")
	}
	r.Started = true
	r.Argv = append([]string(nil), argv...)
	return nil
}

func (r *PlaybackRunner) Wait(timeout time.Duration) (string, int, error) {
	if !r.Started {
		return "", 0, errors.New("sigrok: runner not started")
	}
	if r.Hang && !r.Killed {
		return "", 0, ErrWaitTimeout
	}
	r.exited = true
	return r.Output, r.ExitCode, nil
}

func (r *PlaybackRunner) Kill() error {
	r.Killed = true
	r.exited = true
	return nil
}

func (r *PlaybackRunner) Running() bool {
	return r.Started && !r.exited
}

func (r *PlaybackRunner) Stderr() string { return r.ErrOutput }
