package staging

import (
	"context"
	"path/filepath"
	"regexp"

	"github.com/lwrproject/lwrun/internal/logging"
	"github.com/lwrproject/lwrun/internal/retry"
)

// Output files marked with from_work_dir attributes are collected
// explicitly; this pattern picks up additional files to copy back, such as
// those associated with multiple outputs and metadata configuration.
var copyFromWorkDirPattern = regexp.MustCompile(
	`^(primary_.*|galaxy.json|metadata_.*|dataset_\d+\.dat|dataset_\d+_files.+)`)

// Finish downloads results from the remote server after a job ends and
// cleans up the remote staging directory when the cleanup mode allows it.
// It reports whether any download failed.
func Finish(ctx context.Context, fetcher Fetcher, mapper ActionMapper, mode CleanupMode,
	completedNormally bool, local LocalOutputs, remote RemoteOutputs, log *logging.Logger) bool {

	var failures []error
	if completedNormally {
		collector := NewResultsCollector(fetcher, mapper, local, remote, log)
		failures = collector.Collect(ctx)
	}

	failed := len(failures) > 0
	if (!failed && mode != CleanupNever) || mode == CleanupAlways {
		if err := fetcher.Clean(ctx); err != nil {
			log.Warn("Failed to cleanup remote LWR job", map[string]interface{}{"error": err.Error()})
		}
	}
	return failed
}

// ResultsCollector walks the declared and discovered outputs of a finished
// job and fetches each through the client. Individual fetch failures are
// recorded and never abort the sweep.
type ResultsCollector struct {
	fetcher Fetcher
	mapper  ActionMapper
	local   LocalOutputs
	remote  RemoteOutputs
	log     *logging.Logger

	retryConfig retry.Config

	// remote names already pulled from the working directory, so the
	// pattern sweep does not fetch them twice
	downloadedWorkDirFiles map[string]bool
	// remaining directly-declared outputs; explicit work-dir outputs are
	// removed as they are handled
	outputFiles []string
	failures    []error
}

// NewResultsCollector creates a collector for one finished job
func NewResultsCollector(fetcher Fetcher, mapper ActionMapper, local LocalOutputs,
	remote RemoteOutputs, log *logging.Logger) *ResultsCollector {

	if mapper == nil {
		mapper = TransferActionMapper{}
	}

	outputFiles := make([]string, len(local.OutputFiles))
	copy(outputFiles, local.OutputFiles)

	return &ResultsCollector{
		fetcher:                fetcher,
		mapper:                 mapper,
		local:                  local,
		remote:                 remote,
		log:                    log,
		retryConfig:            retry.DefaultConfig(),
		downloadedWorkDirFiles: make(map[string]bool),
		outputFiles:            outputFiles,
	}
}

// Collect fetches every output category in order and returns the download
// failures encountered
func (c *ResultsCollector) Collect(ctx context.Context) []error {
	c.collectWorkDirOutputs(ctx)
	c.collectOutputs(ctx)
	c.collectVersionFile(ctx)
	c.collectOtherWorkDirFiles(ctx)
	return c.failures
}

// collectWorkDirOutputs fetches the explicitly declared working-directory
// outputs and drops them from the direct-output list so they are not
// downloaded twice
func (c *ResultsCollector) collectWorkDirOutputs(ctx context.Context) {
	workingDirectory := c.local.WorkingDirectory
	for _, output := range c.local.WorkDirOutputs {
		name, err := filepath.Rel(workingDirectory, output.Source)
		if err != nil {
			name = filepath.Base(output.Source)
		}
		remoteName := c.remote.PathHelper.RemoteName(name)
		if c.attemptCollect(ctx, OutputTypeWorkdir, output.Output, remoteName) {
			c.downloadedWorkDirFiles[remoteName] = true
		}
		c.removeOutputFile(output.Output)
	}
}

// collectOutputs fetches the remaining directly-declared outputs. Legacy
// servers do not report what was generated, so those are fetched blindly.
func (c *ResultsCollector) collectOutputs(ctx context.Context) {
	for _, outputFile := range c.outputFiles {
		switch c.remote.HasOutputFile(outputFile) {
		case HasOutputUnknown:
			c.attemptCollect(ctx, OutputTypeLegacy, outputFile, "")
		case HasOutputPresent:
			c.attemptCollect(ctx, OutputTypeOutput, outputFile, "")
		case HasOutputAbsent:
			// not generated, do not attempt download
		}

		for localPath, remoteName := range c.remote.ExtrasFor(outputFile) {
			c.attemptCollect(ctx, OutputTypeOutput, localPath, remoteName)
		}
	}
}

// collectVersionFile fetches the tool version file when the remote output
// directory listing shows one was written
func (c *ResultsCollector) collectVersionFile(ctx context.Context) {
	if c.local.VersionFile == "" {
		return
	}
	for _, name := range c.remote.OutputDirectoryContents {
		if name == CommandVersionFilename {
			c.attemptCollect(ctx, OutputTypeOutput, c.local.VersionFile, CommandVersionFilename)
			return
		}
	}
}

// collectOtherWorkDirFiles sweeps the remote working directory for
// pattern-matched files (primary datasets, galaxy.json, metadata) not
// already fetched
func (c *ResultsCollector) collectOtherWorkDirFiles(ctx context.Context) {
	workingDirectory := c.local.WorkingDirectory
	for _, name := range c.remote.WorkingDirectoryContents {
		if c.downloadedWorkDirFiles[name] {
			continue
		}
		if !copyFromWorkDirPattern.MatchString(name) {
			continue
		}
		outputFile := filepath.Join(workingDirectory, c.remote.PathHelper.LocalName(name))
		if c.attemptCollect(ctx, OutputTypeWorkdir, outputFile, name) {
			c.downloadedWorkDirFiles[name] = true
		}
	}
}

// attemptCollect fetches one file, retrying transient transfer failures,
// and records a failure instead of propagating it. path is the final local
// path; name is the file's remote (possibly relative) name.
func (c *ResultsCollector) attemptCollect(ctx context.Context, outputType, path, name string) bool {
	// The mapper never sees the legacy type; legacy only means the remote
	// could not say whether the file exists
	actionOutputType := OutputTypeOutput
	if outputType == OutputTypeWorkdir {
		actionOutputType = OutputTypeWorkdir
	}
	actionType := c.mapper.Action(path, actionOutputType)

	err := retry.Do(ctx, c.retryConfig, func() error {
		return c.fetch(ctx, outputType, actionType, path, name)
	})
	if err != nil {
		c.failures = append(c.failures, err)
		if c.log != nil {
			c.log.Warn("Failed to collect output", map[string]interface{}{
				"path": path, "name": name, "error": err.Error(),
			})
		}
		return false
	}
	return true
}

func (c *ResultsCollector) fetch(ctx context.Context, outputType, actionType, path, name string) error {
	switch outputType {
	case OutputTypeLegacy:
		return c.fetcher.FetchOutputLegacy(ctx, path, c.local.WorkingDirectory, actionType)
	case OutputTypeWorkdir:
		return c.fetcher.FetchWorkDirOutput(ctx, name, c.local.WorkingDirectory, path, actionType)
	default:
		return c.fetcher.FetchOutput(ctx, path, name, actionType)
	}
}

func (c *ResultsCollector) removeOutputFile(path string) {
	for i, f := range c.outputFiles {
		if f == path {
			c.outputFiles = append(c.outputFiles[:i], c.outputFiles[i+1:]...)
			return
		}
	}
}
