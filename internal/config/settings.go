package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds launcher configuration, normally loaded from launcher.yml
// in the working directory. Every field has a working default so the file
// is optional.
type Settings struct {
	// Python interpreter used for the Galaxy import check
	Python string `yaml:"python" json:"python"`

	// Command the launcher delegates to, plus the arguments placed in
	// front of the config file name (e.g. "paster" + ["serve"])
	RunnerCommand string   `yaml:"runner_command" json:"runner_command"`
	RunnerArgs    []string `yaml:"runner_args" json:"runner_args"`

	// Active config file and the sample it is materialized from
	ConfigFile string `yaml:"config_file" json:"config_file"`
	SampleFile string `yaml:"sample_file" json:"sample_file"`

	// Pid file the runner writes in daemon mode
	PidFile string `yaml:"pid_file" json:"pid_file"`

	// Optional env file loaded before venv activation
	EnvFile string `yaml:"env_file" json:"env_file"`

	// Virtualenv directory activated when present
	VenvDir string `yaml:"venv_dir" json:"venv_dir"`
}

// Defaults returns the settings the original launcher hardcoded
func Defaults() Settings {
	return Settings{
		Python:        "python",
		RunnerCommand: "paster",
		RunnerArgs:    []string{"serve"},
		ConfigFile:    "server.ini",
		SampleFile:    "server.ini.sample",
		PidFile:       "paster.pid",
		EnvFile:       ".env",
		VenvDir:       ".venv",
	}
}

// Load reads settings from a YAML file, applying defaults for anything the
// file leaves unset. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	settings := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}

	var fileSettings Settings
	if err := yaml.Unmarshal(data, &fileSettings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %w", err)
	}

	settings.merge(fileSettings)
	return settings, nil
}

func (s *Settings) merge(o Settings) {
	if o.Python != "" {
		s.Python = o.Python
	}
	if o.RunnerCommand != "" {
		s.RunnerCommand = o.RunnerCommand
	}
	if len(o.RunnerArgs) > 0 {
		s.RunnerArgs = o.RunnerArgs
	}
	if o.ConfigFile != "" {
		s.ConfigFile = o.ConfigFile
	}
	if o.SampleFile != "" {
		s.SampleFile = o.SampleFile
	}
	if o.PidFile != "" {
		s.PidFile = o.PidFile
	}
	if o.EnvFile != "" {
		s.EnvFile = o.EnvFile
	}
	if o.VenvDir != "" {
		s.VenvDir = o.VenvDir
	}
}
