package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/lwrproject/lwrun/internal/launcher"
	"github.com/lwrproject/lwrun/internal/runner"
)

// launchExitCode holds the delegated process's exit code so Execute can
// propagate it verbatim
var launchExitCode int

var launchCmd = &cobra.Command{
	Use:   "launch [runner args...]",
	Short: "Bootstrap the environment and start the LWR server",
	Long: `Launch resolves the working directory, activates .venv when present,
adds $GALAXY_HOME/lib to PYTHONPATH when GALAXY_HOME is set, optionally
verifies Galaxy is importable (TEST_GALAXY_LIBS), copies
server.ini.sample to server.ini on first run, and then delegates to the
server-runner.

Every argument after "launch" is forwarded to the runner verbatim and in
order; flag parsing is disabled so runner flags like --daemon and
--stop-daemon pass through untouched. Configure the launcher itself with
launcher.yml or LWR_* environment variables instead.

Examples:
  lwrun launch
  lwrun launch --daemon
  lwrun launch --stop-daemon`,
	// Runner flags must reach the runner unparsed
	DisableFlagParsing: true,
	RunE:               runLaunch,
}

func init() {
	rootCmd.AddCommand(launchCmd)
}

func runLaunch(cmd *cobra.Command, args []string) error {
	// A conventional "--" separator is not a runner argument
	if len(args) > 0 && args[0] == "--" {
		args = args[1:]
	}

	log := newLogger()

	if _, err := enterWorkDir(); err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	l := launcher.New(settings, log, runner.New(log))
	code, err := l.Launch(context.Background(), args)
	launchExitCode = code
	if err != nil {
		// Smoke-test failures and start errors surface here; the exit
		// code is already captured
		cmd.SilenceUsage = true
		return err
	}
	return nil
}
