package launcher

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// GalaxyHomeVar points at a Galaxy checkout whose lib directory is added
// to the Python module search path when set.
const GalaxyHomeVar = "GALAXY_HOME"

// TestGalaxyLibsVar triggers the Galaxy import check when set to any
// non-empty value.
const TestGalaxyLibsVar = "TEST_GALAXY_LIBS"

// loadEnvFile loads an optional env file into the process environment.
// Variables already set in the environment win. Missing file is a no-op.
func (l *Launcher) loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	l.log.Debug("Loaded environment from " + path)
	return nil
}

// activateVenv emulates "source <venv>/bin/activate" for this process and
// its children: the venv's bin directory is prepended to PATH, VIRTUAL_ENV
// is set and PYTHONHOME dropped. Missing venv directory is a no-op.
func (l *Launcher) activateVenv(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	if err := os.Setenv("VIRTUAL_ENV", abs); err != nil {
		return err
	}
	if err := prependToPathList("PATH", filepath.Join(abs, "bin")); err != nil {
		return err
	}
	// activate unsets PYTHONHOME so the venv's interpreter wins
	if err := os.Unsetenv("PYTHONHOME"); err != nil {
		return err
	}

	l.log.Debug("Activated virtualenv at " + abs)
	return nil
}

// injectGalaxyLibs prepends $GALAXY_HOME/lib to PYTHONPATH when
// GALAXY_HOME is set. The path is not validated; a bad value surfaces via
// the import check or the server itself.
func (l *Launcher) injectGalaxyLibs() error {
	home := os.Getenv(GalaxyHomeVar)
	if home == "" {
		return nil
	}

	libDir := filepath.Join(home, "lib")
	if err := prependToPathList("PYTHONPATH", libDir); err != nil {
		return err
	}

	l.log.Info("Adding " + libDir + " to PYTHONPATH")
	return nil
}

// prependToPathList prepends dir to a PATH-style environment variable,
// creating the variable when unset
func prependToPathList(name, dir string) error {
	value := dir
	if existing := os.Getenv(name); existing != "" {
		value = dir + string(os.PathListSeparator) + existing
	}
	return os.Setenv(name, value)
}
