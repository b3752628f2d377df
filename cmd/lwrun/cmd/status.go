package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/lwrproject/lwrun/internal/config"
	"github.com/lwrproject/lwrun/internal/runner"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report on a daemonized LWR server",
	Long: `Status reads the runner's pid file and reports whether the daemonized
server process is alive, along with the host and port from the
materialized server config. It never signals or interprets runner flags;
use "lwrun launch --stop-daemon" to stop the server.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output status as JSON")
}

type statusReport struct {
	PidFile  string `json:"pid_file"`
	Pid      int32  `json:"pid,omitempty"`
	Running  bool   `json:"running"`
	Process  string `json:"process,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
	RSSBytes uint64 `json:"rss_bytes,omitempty"`
	Host     string `json:"host,omitempty"`
	Port     string `json:"port,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if _, err := enterWorkDir(); err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	report := statusReport{PidFile: settings.PidFile}

	daemon, err := runner.InspectDaemon(settings.PidFile)
	if err == nil {
		report.Pid = daemon.Pid
		report.Running = daemon.Running
		report.Process = daemon.Name
		if daemon.Running {
			report.Uptime = daemon.Uptime.Truncate(time.Second).String()
			report.RSSBytes = daemon.RSS
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if serverCfg, err := config.InspectServerConfig(settings.ConfigFile); err == nil {
		report.Host = serverCfg.Host
		report.Port = serverCfg.Port
	}

	if statusJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append([]string{"Pid file", report.PidFile})
	if report.Pid != 0 {
		table.Append([]string{"Pid", fmt.Sprintf("%d", report.Pid)})
	}
	table.Append([]string{"Running", fmt.Sprintf("%v", report.Running)})
	if report.Process != "" {
		table.Append([]string{"Process", report.Process})
	}
	if report.Running {
		table.Append([]string{"Uptime", report.Uptime})
		table.Append([]string{"RSS", fmt.Sprintf("%.1f MB", float64(report.RSSBytes)/(1024*1024))})
	}
	if report.Port != "" {
		table.Append([]string{"Listen", report.Host + ":" + report.Port})
	}
	table.Render()

	return nil
}
