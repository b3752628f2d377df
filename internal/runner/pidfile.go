package runner

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// DaemonStatus describes the daemonized runner process referenced by its
// pid file
type DaemonStatus struct {
	Pid     int32
	Running bool
	Name    string
	Uptime  time.Duration
	RSS     uint64
}

// ReadPidFile parses the pid file the runner writes in daemon mode
func ReadPidFile(path string) (int32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", path, err)
	}
	return int32(pid), nil
}

// InspectDaemon reports on the process named in the pid file. A stale pid
// file (process gone) yields Running=false, not an error.
func InspectDaemon(pidFile string) (*DaemonStatus, error) {
	pid, err := ReadPidFile(pidFile)
	if err != nil {
		return nil, err
	}

	status := &DaemonStatus{Pid: pid}

	proc, err := process.NewProcess(pid)
	if err != nil {
		return status, nil
	}

	running, err := proc.IsRunning()
	if err != nil || !running {
		return status, nil
	}
	status.Running = true

	if name, err := proc.Name(); err == nil {
		status.Name = name
	}
	if created, err := proc.CreateTime(); err == nil {
		status.Uptime = time.Since(time.UnixMilli(created))
	}
	if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
		status.RSS = mem.RSS
	}

	return status, nil
}
