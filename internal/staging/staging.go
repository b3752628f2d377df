// Package staging collects the outputs of a finished remote LWR job back
// onto the local Galaxy server and cleans up the remote staging directory.
package staging

import (
	"context"
	"path/filepath"
	"strings"
)

// CommandVersionFilename is the file the remote job writes the tool
// version string into
const CommandVersionFilename = "COMMAND_VERSION"

// CleanupMode controls whether the remote job directory is cleaned after
// collection
type CleanupMode string

const (
	// CleanupDefault cleans only when every download succeeded
	CleanupDefault CleanupMode = ""
	// CleanupAlways cleans even after download failures
	CleanupAlways CleanupMode = "always"
	// CleanupNever leaves the remote job directory in place
	CleanupNever CleanupMode = "never"
)

// Output fetch categories. Legacy covers servers that predate output
// listings, where it is unknown whether a file was generated at all.
const (
	OutputTypeLegacy  = "legacy"
	OutputTypeOutput  = "output"
	OutputTypeWorkdir = "output_workdir"
)

// HasOutput is the remote server's tri-state answer for whether an output
// file was generated
type HasOutput int

const (
	// HasOutputUnknown means the server did not report output listings
	HasOutputUnknown HasOutput = iota
	// HasOutputPresent means the file appears in the remote listing
	HasOutputPresent
	// HasOutputAbsent means the server reported listings and the file is
	// not among them
	HasOutputAbsent
)

// Fetcher is the client-side transfer surface used to pull files from the
// remote server and clean its staging directory
type Fetcher interface {
	// FetchOutput downloads a directly-declared output file
	FetchOutput(ctx context.Context, path, name, actionType string) error
	// FetchWorkDirOutput downloads a file from the remote working
	// directory into the local working directory
	FetchWorkDirOutput(ctx context.Context, name, workingDirectory, path, actionType string) error
	// FetchOutputLegacy downloads an output from a server that does not
	// report output listings
	FetchOutputLegacy(ctx context.Context, path, workingDirectory, actionType string) error
	// Clean removes the remote job staging directory
	Clean(ctx context.Context) error
}

// ActionMapper decides how a given file should be transferred (for
// instance over the message transport or via a shared filesystem copy)
type ActionMapper interface {
	Action(path, outputType string) string
}

// TransferActionMapper maps every file to a plain transfer, the default
// when no per-path rules are configured
type TransferActionMapper struct{}

func (TransferActionMapper) Action(path, outputType string) string {
	return "transfer"
}

// LocalOutputs describes where job results belong on the local server
type LocalOutputs struct {
	WorkingDirectory string
	// WorkDirOutputs pairs a file the tool wrote inside the working
	// directory with the output path it must land at
	WorkDirOutputs []WorkDirOutput
	// OutputFiles are the directly-declared output paths
	OutputFiles []string
	// VersionFile is where the tool version string should be written,
	// empty when the tool does not record one
	VersionFile string
}

// WorkDirOutput pairs a working-directory source file with its final
// output path
type WorkDirOutput struct {
	Source string
	Output string
}

// RemoteOutputs describes what the remote server reports about the
// finished job's files. Nil listing slices mean a legacy server that does
// not report them.
type RemoteOutputs struct {
	WorkingDirectoryContents []string
	OutputDirectoryContents  []string
	// OutputExtras maps a declared output path to extra generated files
	// associated with it: local path -> remote name
	OutputExtras map[string]map[string]string
	PathHelper   PathHelper
}

// HasOutputFile reports whether the remote generated the named output.
// Servers without output listings yield HasOutputUnknown for everything.
func (r *RemoteOutputs) HasOutputFile(outputFile string) HasOutput {
	if r.OutputDirectoryContents == nil {
		return HasOutputUnknown
	}
	base := filepath.Base(outputFile)
	for _, name := range r.OutputDirectoryContents {
		if name == base {
			return HasOutputPresent
		}
	}
	return HasOutputAbsent
}

// ExtrasFor returns the extra files the remote associates with a declared
// output
func (r *RemoteOutputs) ExtrasFor(outputFile string) map[string]string {
	if r.OutputExtras == nil {
		return nil
	}
	return r.OutputExtras[outputFile]
}

// PathHelper translates between local path fragments and the remote
// server's separator convention
type PathHelper struct {
	RemoteSeparator string
}

func (p PathHelper) separator() string {
	if p.RemoteSeparator == "" {
		return "/"
	}
	return p.RemoteSeparator
}

// RemoteName converts a local relative path into the remote naming
// convention
func (p PathHelper) RemoteName(localName string) string {
	return strings.ReplaceAll(filepath.ToSlash(localName), "/", p.separator())
}

// LocalName converts a remote name back into a local relative path
func (p PathHelper) LocalName(remoteName string) string {
	return filepath.FromSlash(strings.ReplaceAll(remoteName, p.separator(), "/"))
}
