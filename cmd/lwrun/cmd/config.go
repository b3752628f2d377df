package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lwrproject/lwrun/internal/config"
)

var configOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect launcher and server configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective launcher settings",
	Long: `Show prints the launcher settings after launcher.yml and LWR_*
environment overrides are applied, plus a summary of the materialized
server config when one exists.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().StringVarP(&configOutput, "output", "o", "text",
		"Output format: text, json, yaml")
}

type configReport struct {
	Settings config.Settings      `json:"settings" yaml:"settings"`
	Server   *config.ServerConfig `json:"server,omitempty" yaml:"server,omitempty"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if _, err := enterWorkDir(); err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	report := configReport{Settings: settings}
	if server, err := config.InspectServerConfig(settings.ConfigFile); err == nil {
		report.Server = server
	}

	switch configOutput {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	default:
		fmt.Printf("Python:         %s\n", settings.Python)
		fmt.Printf("Runner:         %s %v\n", settings.RunnerCommand, settings.RunnerArgs)
		fmt.Printf("Config file:    %s\n", settings.ConfigFile)
		fmt.Printf("Sample config:  %s\n", settings.SampleFile)
		fmt.Printf("Pid file:       %s\n", settings.PidFile)
		fmt.Printf("Env file:       %s\n", settings.EnvFile)
		fmt.Printf("Virtualenv:     %s\n", settings.VenvDir)
		if report.Server != nil {
			fmt.Printf("Server listen:  %s:%s\n", report.Server.Host, report.Server.Port)
			if report.Server.StagingDirectory != "" {
				fmt.Printf("Staging dir:    %s\n", report.Server.StagingDirectory)
			}
		}
		return nil
	}
}
