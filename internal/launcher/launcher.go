// Package launcher implements the LWR bootstrap sequence: resolve the
// working directory, set up the Python environment, materialize the server
// config from its sample and hand off to the external server-runner.
package launcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lwrproject/lwrun/internal/config"
	"github.com/lwrproject/lwrun/internal/logging"
)

// Delegate runs the external server-runner command and reports its exit
// code. Implemented by runner.Runner; a fake stands in during tests.
type Delegate interface {
	Run(ctx context.Context, command string, args ...string) (int, error)
}

// Launcher performs the ordered bootstrap steps and the final hand-off.
// Steps never loop or branch back; each one is a presence-guarded no-op
// when its precondition is absent.
type Launcher struct {
	settings config.Settings
	log      *logging.Logger
	delegate Delegate
}

// New creates a launcher
func New(settings config.Settings, log *logging.Logger, delegate Delegate) *Launcher {
	return &Launcher{
		settings: settings,
		log:      log,
		delegate: delegate,
	}
}

// NewForChecks creates a launcher usable only for environment checks; it
// has no delegate and cannot Launch
func NewForChecks(settings config.Settings, log *logging.Logger) *Launcher {
	return &Launcher{settings: settings, log: log}
}

// ResolveWorkDir changes into the directory all relative paths (.venv,
// server.ini, launcher.yml) resolve against: the override when given,
// otherwise the directory containing the launcher executable. It runs
// before settings are loaded, so it cannot depend on them.
func ResolveWorkDir(override string) (string, error) {
	dir := override
	if dir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("failed to locate executable: %w", err)
		}
		dir = filepath.Dir(exe)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	if err := os.Chdir(abs); err != nil {
		return "", fmt.Errorf("failed to enter %s: %w", abs, err)
	}

	return abs, nil
}

// Bootstrap runs the setup phase: env file, venv activation, Galaxy lib
// injection, optional import check and config materialization. The only
// fatal path is a failed import check, which surfaces as *ExitError
// carrying the interpreter's exit code.
func (l *Launcher) Bootstrap(ctx context.Context) error {
	if err := l.loadEnvFile(l.settings.EnvFile); err != nil {
		return err
	}
	if err := l.activateVenv(l.settings.VenvDir); err != nil {
		return err
	}
	if err := l.injectGalaxyLibs(); err != nil {
		return err
	}
	if os.Getenv(TestGalaxyLibsVar) != "" {
		if err := l.CheckGalaxyImportable(ctx); err != nil {
			return err
		}
	}
	return l.materializeConfig()
}

func (l *Launcher) materializeConfig() error {
	result, err := config.EnsureConfig(l.settings.ConfigFile, l.settings.SampleFile)
	if err != nil {
		return err
	}
	if result == config.ConfigCreated {
		l.log.Info(fmt.Sprintf("Copying %s to %s", l.settings.SampleFile, l.settings.ConfigFile))
	}
	return nil
}

// Launch runs the bootstrap sequence and delegates to the server-runner,
// forwarding args verbatim after the config file name. The returned exit
// code is the delegated process's own, or the import check's on the one
// fatal bootstrap path.
func (l *Launcher) Launch(ctx context.Context, args []string) (int, error) {
	if err := l.Bootstrap(ctx); err != nil {
		if exitErr, ok := err.(*ExitError); ok {
			return exitErr.Code, err
		}
		return 1, err
	}

	runnerArgs := make([]string, 0, len(l.settings.RunnerArgs)+1+len(args))
	runnerArgs = append(runnerArgs, l.settings.RunnerArgs...)
	runnerArgs = append(runnerArgs, l.settings.ConfigFile)
	runnerArgs = append(runnerArgs, args...)

	return l.delegate.Run(ctx, l.settings.RunnerCommand, runnerArgs...)
}
