package config

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
)

// MaterializeResult describes what EnsureConfig did
type MaterializeResult int

const (
	// ConfigExists means the active config was already present and untouched
	ConfigExists MaterializeResult = iota
	// ConfigCreated means the sample was copied into place
	ConfigCreated
	// ConfigMissing means neither the config nor the sample exists; the
	// launcher leaves the missing-config failure to the delegated runner
	ConfigMissing
)

// EnsureConfig materializes the active config file from its sample when the
// active file is absent. The copy is atomic so a crashed launcher never
// leaves a partial config behind. Safe to call repeatedly.
func EnsureConfig(configFile, sampleFile string) (MaterializeResult, error) {
	if _, err := os.Stat(configFile); err == nil {
		return ConfigExists, nil
	} else if !os.IsNotExist(err) {
		return ConfigExists, fmt.Errorf("failed to stat %s: %w", configFile, err)
	}

	sample, err := os.ReadFile(sampleFile)
	if os.IsNotExist(err) {
		return ConfigMissing, nil
	}
	if err != nil {
		return ConfigMissing, fmt.Errorf("failed to read %s: %w", sampleFile, err)
	}

	if err := renameio.WriteFile(configFile, sample, 0o644); err != nil {
		return ConfigMissing, fmt.Errorf("failed to write %s: %w", configFile, err)
	}

	return ConfigCreated, nil
}
