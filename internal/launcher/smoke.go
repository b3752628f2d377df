package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// galaxyProbe is the module imported to verify a Galaxy checkout is
// actually reachable on the module search path
const galaxyProbe = "galaxy.util"

// ExitError carries the exit code the launcher should terminate with.
// The code is always the underlying process's own code, never one the
// launcher invents.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// CheckGalaxyImportable runs the configured Python interpreter to import
// the Galaxy probe module. On failure the returned ExitError carries the
// interpreter's exit code verbatim.
func (l *Launcher) CheckGalaxyImportable(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, l.settings.Python, "-c", "import "+galaxyProbe)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		l.log.Info("Galaxy libraries loaded properly")
		return nil
	}

	l.log.Error(fmt.Sprintf(
		"ERROR: Failed to import Galaxy libraries, check %s (%s)",
		GalaxyHomeVar, os.Getenv(GalaxyHomeVar)))

	code := 1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return &ExitError{Code: code, Err: err}
}
