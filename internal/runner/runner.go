// Package runner supervises the delegated server-runner process: it spawns
// the command with inherited stdio, relays termination signals and reports
// the exit code unmodified.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/lwrproject/lwrun/internal/logging"
)

// ExitReason describes why the delegated process terminated
type ExitReason string

const (
	ExitReasonSuccess ExitReason = "success"
	ExitReasonError   ExitReason = "error"
	ExitReasonSignal  ExitReason = "signal"
	ExitReasonUnknown ExitReason = "unknown"
)

// Runner runs a single delegated command to completion
type Runner struct {
	log *logging.Logger

	startTime  time.Time
	exitCode   int
	exitReason ExitReason
}

// New creates a runner
func New(log *logging.Logger) *Runner {
	return &Runner{
		log:        log,
		exitReason: ExitReasonUnknown,
	}
}

// Run starts the command with inherited stdio in its own process group,
// relays SIGINT/SIGTERM to that group and waits for completion. The
// returned code is the process's exit code verbatim; err is non-nil only
// when the command could not be started or waited on at all.
func (r *Runner) Run(ctx context.Context, command string, args ...string) (int, error) {
	r.startTime = time.Now()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Own process group, so signal relay reaches the runner and anything
	// it spawns without touching the launcher itself
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		r.exitCode = 1
		r.exitReason = ExitReasonError
		return 1, fmt.Errorf("failed to start %s: %w", command, err)
	}

	pid := cmd.Process.Pid
	r.log.Debug(fmt.Sprintf("Delegated to %s (pid %d)", command, pid))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigChan:
				// Negative pid targets the whole process group
				_ = syscall.Kill(-pid, sig.(syscall.Signal))
			case <-done:
				return
			}
		}
	}()

	err := cmd.Wait()
	close(done)

	r.classifyExit(err)

	r.log.Debug(fmt.Sprintf("Runner exited: code=%d reason=%s duration=%.1fs",
		r.exitCode, r.exitReason, time.Since(r.startTime).Seconds()))

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return r.exitCode, fmt.Errorf("failed to wait for %s: %w", command, err)
	}
	return r.exitCode, nil
}

func (r *Runner) classifyExit(err error) {
	if err == nil {
		r.exitCode = 0
		r.exitReason = ExitReasonSuccess
		return
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		r.exitCode = 1
		r.exitReason = ExitReasonError
		return
	}

	r.exitCode = exitErr.ExitCode()
	r.exitReason = ExitReasonError
	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		r.exitReason = ExitReasonSignal
		// Shell convention for signal deaths
		r.exitCode = 128 + int(status.Signal())
	}
}

// ExitCode returns the last run's exit code
func (r *Runner) ExitCode() int {
	return r.exitCode
}

// Reason returns the last run's exit classification
func (r *Runner) Reason() ExitReason {
	return r.exitReason
}

// Duration returns how long the last run took
func (r *Runner) Duration() time.Duration {
	return time.Since(r.startTime)
}
