package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/lwrproject/lwrun/internal/launcher"
)

var doctorImports bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the launch environment without starting anything",
	Long: `Doctor runs the same presence checks the launch sequence relies on and
reports them as a table: working directory, interpreter, virtualenv,
Galaxy library path, config files and host resources. Nothing is
mutated; server.ini is not materialized.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorImports, "imports", false, "Also attempt the Galaxy import check")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cwd, err := enterWorkDir()
	if err != nil {
		return err
	}
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Check", "Result")
	table.Append([]string{"Working directory", cwd})

	if path, err := exec.LookPath(settings.Python); err == nil {
		table.Append([]string{"Python", path})
	} else {
		table.Append([]string{"Python", fmt.Sprintf("NOT FOUND (%s)", settings.Python)})
	}

	if info, err := os.Stat(settings.VenvDir); err == nil && info.IsDir() {
		table.Append([]string{"Virtualenv", settings.VenvDir})
	} else {
		table.Append([]string{"Virtualenv", "absent (system Python will be used)"})
	}

	if home := os.Getenv(launcher.GalaxyHomeVar); home != "" {
		libDir := filepath.Join(home, "lib")
		if info, err := os.Stat(libDir); err == nil && info.IsDir() {
			table.Append([]string{launcher.GalaxyHomeVar, home})
		} else {
			table.Append([]string{launcher.GalaxyHomeVar, fmt.Sprintf("%s (lib directory missing)", home)})
		}
	} else {
		table.Append([]string{launcher.GalaxyHomeVar, "not set"})
	}

	table.Append([]string{"Config", fileCheck(settings.ConfigFile)})
	table.Append([]string{"Sample config", fileCheck(settings.SampleFile)})

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		counts, _ := cpu.Counts(true)
		table.Append([]string{"CPU", fmt.Sprintf("%s (%d threads)", infos[0].ModelName, counts)})
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		table.Append([]string{"RAM", fmt.Sprintf("%.1f GB total, %.1f GB free",
			float64(vm.Total)/(1024*1024*1024), float64(vm.Available)/(1024*1024*1024))})
	}

	table.Render()

	if doctorImports {
		log := newLogger()
		l := launcher.NewForChecks(settings, log)
		if err := l.CheckGalaxyImportable(context.Background()); err != nil {
			cmd.SilenceUsage = true
			return err
		}
	}

	return nil
}

func fileCheck(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return fmt.Sprintf("missing (%s)", path)
}
