package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ServerConfig is the subset of the runner's ini config the launcher
// reports on; the runner itself is the authority on the full file.
type ServerConfig struct {
	Host             string `json:"host" yaml:"host"`
	Port             string `json:"port" yaml:"port"`
	StagingDirectory string `json:"staging_directory,omitempty" yaml:"staging_directory,omitempty"`
}

// InspectServerConfig scans the materialized paste-deploy ini file for the
// values worth showing in status output. The format is fixed by the
// external runner: "[section]" headers and "key = value" lines, with "#"
// or ";" comments.
func InspectServerConfig(path string) (*ServerConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server config %s: %w", path, err)
	}
	defer file.Close()

	values := make(map[string]string)
	section := ""

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = line[1 : len(line)-1]
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[section+"."+strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read server config %s: %w", path, err)
	}

	cfg := &ServerConfig{
		Host:             values["server:main.host"],
		Port:             values["server:main.port"],
		StagingDirectory: values["app:main.staging_directory"],
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	return cfg, nil
}
