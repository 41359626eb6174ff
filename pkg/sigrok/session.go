package sigrok

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTimeout reports that the capture tool did not exit within the wait
// bound. This usually means the trigger condition never occurred; the
// process has been killed by the time the error is returned.
var ErrTimeout = errors.New("sigrok: capture timed out")

// ToolError reports a non-zero exit of the capture tool.
type ToolError struct {
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		return fmt.Sprintf("sigrok: capture tool exited with status %d: %s", e.ExitCode, stderr)
	}
	return fmt.Sprintf("sigrok: capture tool exited with status %d", e.ExitCode)
}

// SessionState tracks where a recording session is in its lifecycle.
type SessionState uint8

const (
	SessionIdle SessionState = iota
	SessionStarted
	SessionCollecting
	SessionTimedOut
	SessionClosed
)

var sessionStateNames = map[SessionState]string{
	SessionIdle:       "Idle",
	SessionStarted:    "Started",
	SessionCollecting: "Collecting",
	SessionTimedOut:   "TimedOut",
	SessionClosed:     "Closed",
}

func (s SessionState) String() string {
	if name, ok := sessionStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SessionState(%d)", uint8(s))
}

// Session owns one run of the capture tool from spawn to teardown. It is
// confined to a single goroutine; independent sessions may run in
// parallel as long as they address independent analyzer channels, which
// is the caller's responsibility.
type Session struct {
	cfg    Config
	runner Runner
	state  SessionState
}

// NewSession wraps a runner with the session lifecycle. A nil runner
// gets a real ExecRunner.
func NewSession(cfg Config, runner Runner) *Session {
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Session{cfg: cfg, runner: runner}
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return s.state }

// Start spawns the capture tool with the given arguments appended to the
// common prefix, then sleeps the fixed settle delay so the tool's driver
// and trigger are armed before the caller stimulates the bus. The
// recording runs for the given duration after the trigger occurs.
func (s *Session) Start(args []string, duration time.Duration) error {
	if s.state != SessionIdle {
		return fmt.Errorf("sigrok: session already %s", s.state)
	}
	argv, err := s.cfg.commonArgs()
	if err != nil {
		return err
	}
	argv = append(argv, args...)
	argv = append(argv, timeArg(duration)...)

	if err := s.runner.Start(argv); err != nil {
		return err
	}
	s.state = SessionStarted
	time.Sleep(s.cfg.StartDelay)
	return nil
}

// Collect blocks until the tool exits or the wait bound elapses and
// returns the captured output split into lines. On elapse the process is
// killed and ErrTimeout is returned; a non-zero exit returns *ToolError.
// No retry happens at this layer; the caller decides whether to record
// again.
func (s *Session) Collect() ([]string, error) {
	if s.state != SessionStarted {
		return nil, fmt.Errorf("sigrok: cannot collect from %s session", s.state)
	}
	s.state = SessionCollecting

	output, exitCode, err := s.runner.Wait(s.cfg.WaitBound)
	if errors.Is(err, ErrWaitTimeout) {
		s.state = SessionTimedOut
		if killErr := s.runner.Kill(); killErr != nil {
			return nil, fmt.Errorf("%w (kill failed: %v)", ErrTimeout, killErr)
		}
		return nil, ErrTimeout
	}
	if err != nil {
		return nil, err
	}
	if exitCode != 0 {
		return nil, &ToolError{ExitCode: exitCode, Stderr: s.runner.Stderr()}
	}
	return strings.Split(output, "\n"), nil
}

// Teardown stops the tool if it is still running. Idempotent and safe to
// call from any state, including after a Collect failure.
func (s *Session) Teardown() error {
	if s.state == SessionClosed {
		return nil
	}
	s.state = SessionClosed
	if s.runner.Running() {
		return s.runner.Kill()
	}
	return nil
}
