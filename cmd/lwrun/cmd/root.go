package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lwrproject/lwrun/internal/config"
	"github.com/lwrproject/lwrun/internal/launcher"
	"github.com/lwrproject/lwrun/internal/logging"
)

var (
	settingsFile string
	workDir      string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lwrun",
	Short: "Bootstrap launcher for the LWR job-execution server",
	Long: `lwrun prepares the environment the LWR server needs (virtualenv,
Galaxy library path, server.ini) and hands off to the external
server-runner. Runner flags such as --daemon and --stop-daemon are
forwarded untouched; their meaning is defined entirely by the runner.`,
}

// Execute runs the CLI and returns the process exit code. Launch failures
// carry the delegated or smoke-test exit code through unmodified.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *launcher.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return launchExitCode
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "launcher.yml", "launcher settings file")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", "", "working directory (default is the executable's directory)")
}

// initConfig wires environment variable overrides
func initConfig() {
	viper.AutomaticEnv()

	viper.BindEnv("python", "LWR_PYTHON")
	viper.BindEnv("runner_command", "LWR_RUNNER")
	viper.BindEnv("config_file", "LWR_CONFIG_FILE")
	viper.BindEnv("pid_file", "LWR_PID_FILE")
	viper.BindEnv("work_dir", "LWR_WORK_DIR")
}

// loadSettings reads launcher.yml (optional) and applies LWR_* overrides
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(settingsFile)
	if err != nil {
		return settings, err
	}

	if v := viper.GetString("python"); v != "" {
		settings.Python = v
	}
	if v := viper.GetString("runner_command"); v != "" {
		settings.RunnerCommand = v
	}
	if v := viper.GetString("config_file"); v != "" {
		settings.ConfigFile = v
	}
	if v := viper.GetString("pid_file"); v != "" {
		settings.PidFile = v
	}

	return settings, nil
}

// enterWorkDir changes into the launcher's working directory before any
// relative path (launcher.yml included) is touched. The --dir flag wins
// over LWR_WORK_DIR; with neither set, the executable's directory is used.
func enterWorkDir() (string, error) {
	override := workDir
	if override == "" {
		override = viper.GetString("work_dir")
	}
	return launcher.ResolveWorkDir(override)
}

func newLogger() *logging.Logger {
	return logging.FromEnv()
}
