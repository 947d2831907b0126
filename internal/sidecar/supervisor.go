package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EventType identifies a backend process lifecycle event.
type EventType string

const (
	EventStdout EventType = "stdout"
	EventStderr EventType = "stderr"
	EventError  EventType = "error"
	EventExited EventType = "exited"
)

// Event is one entry in the backend process event stream. Stdout and stderr
// lines are each internally ordered; Exited is terminal and always last.
type Event struct {
	Type     EventType
	Line     string // stdout/stderr payload
	Err      error  // spawn/IO errors during the relay
	ExitCode *int   // set on Exited when the exit code is known
}

// Supervisor spawns the backend executable and surfaces its lifecycle events.
// It performs a single spawn-and-monitor cycle: a backend crash is observed
// and logged, never restarted.
type Supervisor struct {
	binary     string
	handle     *Handle
	logger     *zap.SugaredLogger
	backendLog *zap.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	started   bool
	startTime time.Time

	eventCh chan Event
	done    chan struct{} // closed once the process has been reaped

	readers sync.WaitGroup

	exitMu   sync.Mutex
	exitErr  error
	exitCode *int
}

// New creates a supervisor for the given backend binary. backendLog receives
// the relayed child output; logger carries the supervisor's own diagnostics.
func New(binary string, handle *Handle, logger *zap.SugaredLogger, backendLog *zap.Logger) *Supervisor {
	return &Supervisor{
		binary:     binary,
		handle:     handle,
		logger:     logger,
		backendLog: backendLog,
		eventCh:    make(chan Event, 64),
		done:       make(chan struct{}),
	}
}

// Start spawns the backend with no arguments, inheriting the parent's
// environment and working directory. The PID is recorded in the shared
// handle. Spawn failure is returned to the caller and is fatal to startup.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("backend already started")
	}

	s.logger.Infow("Starting backend sidecar", "binary", s.binary)

	s.cmd = exec.Command(s.binary)
	setProcAttr(s.cmd)

	stdoutPipe, err := s.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := s.cmd.StderrPipe()
	if err != nil {
		stdoutPipe.Close()
		return fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	s.startTime = time.Now()

	if err := s.cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn backend: %w", err)
	}

	s.started = true
	pid := s.cmd.Process.Pid
	s.handle.Set(pid)

	s.logger.Infow("Backend process spawned", "pid", pid)

	s.readers.Add(2)
	go s.readStream(stdoutPipe, EventStdout)
	go s.readStream(stderrPipe, EventStderr)

	go s.reap()

	return nil
}

// Events returns the backend event stream. The channel is closed after the
// terminal Exited event has been delivered.
func (s *Supervisor) Events() <-chan Event {
	return s.eventCh
}

// Relay consumes the event stream until the backend terminates, forwarding
// stdout lines at info level and stderr lines at error level through the
// backend-named logger. IO errors are logged and do not stop the loop; the
// Exited event ends it.
func (s *Supervisor) Relay(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.eventCh:
			if !ok {
				return
			}
			switch ev.Type {
			case EventStdout:
				s.backendLog.Info(ev.Line)
			case EventStderr:
				s.backendLog.Error(ev.Line)
			case EventError:
				s.logger.Errorw("Backend process I/O error", "error", ev.Err)
			case EventExited:
				if ev.ExitCode != nil {
					s.logger.Infow("Backend process exited",
						"exit_code", *ev.ExitCode,
						"runtime", time.Since(s.startTime))
				} else {
					s.logger.Infow("Backend process exited",
						"error", ev.Err,
						"runtime", time.Since(s.startTime))
				}
				return
			}
		}
	}
}

// Stop terminates the backend process group: SIGTERM first, then SIGKILL
// after the grace period. Safe to call when the backend has already exited.
func (s *Supervisor) Stop(grace time.Duration) error {
	s.mu.Lock()
	cmd := s.cmd
	started := s.started
	s.mu.Unlock()

	if !started || cmd == nil || cmd.Process == nil {
		return fmt.Errorf("no backend process to stop")
	}

	pid := cmd.Process.Pid

	select {
	case <-s.done:
		// Already reaped.
		return nil
	default:
	}

	s.logger.Infow("Stopping backend process", "pid", pid, "grace_period", grace)

	if err := terminateProcess(pid); err != nil {
		s.logger.Warnw("Failed to signal backend", "pid", pid, "error", err)
	}

	select {
	case <-s.done:
		s.logger.Infow("Backend stopped gracefully", "pid", pid)
		return nil
	case <-time.After(grace):
		s.logger.Warnw("Backend did not stop in time, force killing", "pid", pid)
		if err := killProcess(pid); err != nil {
			s.logger.Errorw("Failed to force kill backend", "pid", pid, "error", err)
		}
		<-s.done
		return fmt.Errorf("backend force killed after %v", grace)
	}
}

// ExitState reports the outcome once the process has been reaped.
func (s *Supervisor) ExitState() (code *int, err error) {
	s.exitMu.Lock()
	defer s.exitMu.Unlock()
	return s.exitCode, s.exitErr
}

// readStream forwards one output stream line by line onto the event channel.
func (s *Supervisor) readStream(pipe io.ReadCloser, eventType EventType) {
	defer s.readers.Done()
	defer pipe.Close()

	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		s.sendEvent(Event{Type: eventType, Line: scanner.Text()})
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		s.sendEvent(Event{Type: EventError, Err: fmt.Errorf("reading backend %s: %w", eventType, err)})
	}
}

// reap waits for the readers to drain, then for the process to exit, and
// delivers the terminal event.
func (s *Supervisor) reap() {
	// All output events are delivered before the exit notice.
	s.readers.Wait()

	err := s.cmd.Wait()

	var exitCode *int
	if err == nil {
		code := 0
		exitCode = &code
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			exitCode = &code
		}
	}

	s.exitMu.Lock()
	s.exitErr = err
	s.exitCode = exitCode
	s.exitMu.Unlock()

	s.sendExitEvent(Event{Type: EventExited, ExitCode: exitCode, Err: err})

	close(s.done)
	close(s.eventCh)
}

func (s *Supervisor) sendEvent(ev Event) {
	select {
	case s.eventCh <- ev:
	default:
		s.logger.Warnw("Backend event channel full, dropping event", "event_type", ev.Type)
	}
}

// sendExitEvent delivers the terminal event even when the buffer is full of
// unconsumed output: buffered lines are evicted rather than the exit notice
// dropped. It must not block, or Stop would never see done close when the
// consumer has already gone away.
func (s *Supervisor) sendExitEvent(ev Event) {
	for {
		select {
		case s.eventCh <- ev:
			return
		default:
		}
		select {
		case dropped := <-s.eventCh:
			s.logger.Warnw("Backend event channel full, evicting event to deliver exit notice",
				"event_type", dropped.Type)
		default:
		}
	}
}
