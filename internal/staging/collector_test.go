package staging

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/lwrproject/lwrun/internal/logging"
)

type fetchCall struct {
	kind string // "output", "workdir", "legacy"
	path string
	name string
}

type fakeFetcher struct {
	calls    []fetchCall
	failPath string // fail fetches targeting this local path
	cleaned  bool
	cleanErr error
}

func (f *fakeFetcher) FetchOutput(ctx context.Context, path, name, actionType string) error {
	f.calls = append(f.calls, fetchCall{"output", path, name})
	if path == f.failPath {
		return errors.New("permission denied")
	}
	return nil
}

func (f *fakeFetcher) FetchWorkDirOutput(ctx context.Context, name, workingDirectory, path, actionType string) error {
	f.calls = append(f.calls, fetchCall{"workdir", path, name})
	if path == f.failPath {
		return errors.New("permission denied")
	}
	return nil
}

func (f *fakeFetcher) FetchOutputLegacy(ctx context.Context, path, workingDirectory, actionType string) error {
	f.calls = append(f.calls, fetchCall{"legacy", path, ""})
	return nil
}

func (f *fakeFetcher) Clean(ctx context.Context) error {
	f.cleaned = true
	return f.cleanErr
}

func testLogger() *logging.Logger {
	log := logging.New(logging.ERROR, false)
	log.SetOutput(io.Discard)
	return log
}

func TestCollectWorkDirOutputsRemovedFromDirectList(t *testing.T) {
	workDir := "/galaxy/job/working"
	output := "/galaxy/files/dataset_1.dat"

	local := LocalOutputs{
		WorkingDirectory: workDir,
		WorkDirOutputs: []WorkDirOutput{
			{Source: filepath.Join(workDir, "tool_out.dat"), Output: output},
		},
		OutputFiles: []string{output},
	}
	remote := RemoteOutputs{
		OutputDirectoryContents: []string{"dataset_1.dat"},
	}

	fetcher := &fakeFetcher{}
	collector := NewResultsCollector(fetcher, nil, local, remote, testLogger())
	failures := collector.Collect(context.Background())

	if len(failures) != 0 {
		t.Fatalf("Unexpected failures: %v", failures)
	}
	if len(fetcher.calls) != 1 {
		t.Fatalf("Expected exactly one fetch, got %v", fetcher.calls)
	}
	call := fetcher.calls[0]
	if call.kind != "workdir" || call.path != output || call.name != "tool_out.dat" {
		t.Errorf("Unexpected call %+v", call)
	}
}

func TestCollectDirectOutputsTriState(t *testing.T) {
	generated := "/galaxy/files/dataset_1.dat"
	missing := "/galaxy/files/dataset_2.dat"
	legacy := "/galaxy/files/dataset_3.dat"

	local := LocalOutputs{
		WorkingDirectory: "/galaxy/job/working",
		OutputFiles:      []string{generated, missing, legacy},
	}

	t.Run("listing known", func(t *testing.T) {
		remote := RemoteOutputs{
			OutputDirectoryContents: []string{"dataset_1.dat"},
		}
		fetcher := &fakeFetcher{}
		NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

		if len(fetcher.calls) != 1 {
			t.Fatalf("Expected one fetch, got %v", fetcher.calls)
		}
		if fetcher.calls[0].kind != "output" || fetcher.calls[0].path != generated {
			t.Errorf("Unexpected call %+v", fetcher.calls[0])
		}
	})

	t.Run("legacy server", func(t *testing.T) {
		// No listings at all: every output is fetched the legacy way
		remote := RemoteOutputs{}
		fetcher := &fakeFetcher{}
		NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

		if len(fetcher.calls) != 3 {
			t.Fatalf("Expected three legacy fetches, got %v", fetcher.calls)
		}
		for _, call := range fetcher.calls {
			if call.kind != "legacy" {
				t.Errorf("Expected legacy fetch, got %+v", call)
			}
		}
	})
}

func TestCollectOutputExtras(t *testing.T) {
	output := "/galaxy/files/dataset_1.dat"
	local := LocalOutputs{
		WorkingDirectory: "/galaxy/job/working",
		OutputFiles:      []string{output},
	}
	remote := RemoteOutputs{
		OutputDirectoryContents: []string{"dataset_1.dat", "dataset_1_files/extra"},
		OutputExtras: map[string]map[string]string{
			output: {"/galaxy/files/dataset_1_files/extra": "dataset_1_files/extra"},
		},
	}

	fetcher := &fakeFetcher{}
	NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

	foundExtra := false
	for _, call := range fetcher.calls {
		if call.name == "dataset_1_files/extra" {
			foundExtra = true
		}
	}
	if !foundExtra {
		t.Errorf("Extra output was not fetched: %v", fetcher.calls)
	}
}

func TestCollectVersionFile(t *testing.T) {
	local := LocalOutputs{
		WorkingDirectory: "/galaxy/job/working",
		VersionFile:      "/galaxy/job/tool_version",
	}

	t.Run("present remotely", func(t *testing.T) {
		remote := RemoteOutputs{
			OutputDirectoryContents: []string{CommandVersionFilename},
		}
		fetcher := &fakeFetcher{}
		NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

		if len(fetcher.calls) != 1 {
			t.Fatalf("Expected one fetch, got %v", fetcher.calls)
		}
		if fetcher.calls[0].name != CommandVersionFilename {
			t.Errorf("Unexpected call %+v", fetcher.calls[0])
		}
	})

	t.Run("absent remotely", func(t *testing.T) {
		remote := RemoteOutputs{OutputDirectoryContents: []string{}}
		fetcher := &fakeFetcher{}
		NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

		if len(fetcher.calls) != 0 {
			t.Errorf("Version file should not be fetched: %v", fetcher.calls)
		}
	})
}

func TestCollectPatternMatchedWorkDirFiles(t *testing.T) {
	workDir := "/galaxy/job/working"
	local := LocalOutputs{WorkingDirectory: workDir}
	remote := RemoteOutputs{
		OutputDirectoryContents: []string{},
		WorkingDirectoryContents: []string{
			"galaxy.json",
			"primary_2_extra",
			"metadata_out",
			"dataset_5.dat",
			"tool_scratch.tmp", // does not match, must be skipped
		},
	}

	fetcher := &fakeFetcher{}
	NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

	if len(fetcher.calls) != 4 {
		t.Fatalf("Expected four pattern fetches, got %v", fetcher.calls)
	}
	for _, call := range fetcher.calls {
		if call.name == "tool_scratch.tmp" {
			t.Error("Non-matching file was fetched")
		}
		if call.kind != "workdir" {
			t.Errorf("Expected workdir fetch, got %+v", call)
		}
	}
}

func TestCollectSkipsAlreadyDownloadedWorkDirFiles(t *testing.T) {
	workDir := "/galaxy/job/working"
	output := "/galaxy/files/dataset_1.dat"
	local := LocalOutputs{
		WorkingDirectory: workDir,
		WorkDirOutputs: []WorkDirOutput{
			{Source: filepath.Join(workDir, "galaxy.json"), Output: output},
		},
		OutputFiles: []string{output},
	}
	remote := RemoteOutputs{
		OutputDirectoryContents:  []string{},
		WorkingDirectoryContents: []string{"galaxy.json"},
	}

	fetcher := &fakeFetcher{}
	NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

	count := 0
	for _, call := range fetcher.calls {
		if call.name == "galaxy.json" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("galaxy.json fetched %d times, want 1", count)
	}
}

func TestCollectRecordsFailuresAndContinues(t *testing.T) {
	failing := "/galaxy/files/dataset_1.dat"
	ok := "/galaxy/files/dataset_2.dat"
	local := LocalOutputs{
		WorkingDirectory: "/galaxy/job/working",
		OutputFiles:      []string{failing, ok},
	}
	remote := RemoteOutputs{
		OutputDirectoryContents: []string{"dataset_1.dat", "dataset_2.dat"},
	}

	fetcher := &fakeFetcher{failPath: failing}
	failures := NewResultsCollector(fetcher, nil, local, remote, testLogger()).Collect(context.Background())

	if len(failures) != 1 {
		t.Fatalf("Expected one recorded failure, got %v", failures)
	}
	// The sweep continued past the failure
	fetchedOK := false
	for _, call := range fetcher.calls {
		if call.path == ok {
			fetchedOK = true
		}
	}
	if !fetchedOK {
		t.Error("Collection stopped at the first failure")
	}
}

func TestFinishCleanupPolicy(t *testing.T) {
	local := LocalOutputs{WorkingDirectory: "/galaxy/job/working"}
	remote := RemoteOutputs{OutputDirectoryContents: []string{}}

	cases := []struct {
		name      string
		mode      CleanupMode
		failPath  string
		outputs   []string
		wantClean bool
		wantFail  bool
	}{
		{"default success cleans", CleanupDefault, "", nil, true, false},
		{"never leaves in place", CleanupNever, "", nil, false, false},
		{"default failure skips clean", CleanupDefault, "/out/a.dat", []string{"/out/a.dat"}, false, true},
		{"always cleans despite failure", CleanupAlways, "/out/a.dat", []string{"/out/a.dat"}, true, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			localCase := local
			localCase.OutputFiles = tc.outputs
			remoteCase := remote
			if len(tc.outputs) > 0 {
				remoteCase.OutputDirectoryContents = []string{"a.dat"}
			}

			fetcher := &fakeFetcher{failPath: tc.failPath}
			failed := Finish(context.Background(), fetcher, nil, tc.mode, true, localCase, remoteCase, testLogger())

			if failed != tc.wantFail {
				t.Errorf("failed = %v, want %v", failed, tc.wantFail)
			}
			if fetcher.cleaned != tc.wantClean {
				t.Errorf("cleaned = %v, want %v", fetcher.cleaned, tc.wantClean)
			}
		})
	}
}

func TestFinishAbnormalCompletionSkipsCollection(t *testing.T) {
	local := LocalOutputs{
		WorkingDirectory: "/galaxy/job/working",
		OutputFiles:      []string{"/out/a.dat"},
	}
	remote := RemoteOutputs{OutputDirectoryContents: []string{"a.dat"}}

	fetcher := &fakeFetcher{}
	failed := Finish(context.Background(), fetcher, nil, CleanupDefault, false, local, remote, testLogger())

	if failed {
		t.Error("No downloads attempted, so nothing can have failed")
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("No outputs should be collected for an abnormal completion: %v", fetcher.calls)
	}
	if !fetcher.cleaned {
		t.Error("Remote directory should still be cleaned")
	}
}

func TestPathHelperRoundTrip(t *testing.T) {
	helper := PathHelper{RemoteSeparator: "\\"}

	remote := helper.RemoteName("task_0/out.dat")
	if remote != "task_0\\out.dat" {
		t.Errorf("RemoteName = %q", remote)
	}
	local := helper.LocalName(remote)
	if local != filepath.FromSlash("task_0/out.dat") {
		t.Errorf("LocalName = %q", local)
	}
}
