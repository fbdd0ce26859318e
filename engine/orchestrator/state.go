package orchestrator

import (
	"context"
	"errors"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

// ProjectState is the per-project migration state machine. Transitions are
// strictly forward; Done, Failed and Cancelled are terminal.
type ProjectState string

const (
	StatePending          ProjectState = "Pending"
	StateExtracting       ProjectState = "Extracting"
	StatePreparing        ProjectState = "Preparing"
	StateLoadingResources ProjectState = "LoadingResources"
	StateLoadingTasks     ProjectState = "LoadingTasks"
	StateLoadingSummary   ProjectState = "LoadingSummary"
	StateConfiguring      ProjectState = "Configuring"
	StateDone             ProjectState = "Done"
	StateFailed           ProjectState = "Failed"
	StateCancelled        ProjectState = "Cancelled"
)

func (s ProjectState) String() string {
	return string(s)
}

// Terminal reports whether the state ends the project's run.
func (s ProjectState) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// ProjectResult is the outcome of one project's migration.
type ProjectResult struct {
	ProjectID     string
	ProjectName   string
	WorkspaceID   int64
	WorkspaceName string
	State         ProjectState
	TasksLoaded   int
	ResourcesRows int
	SummaryRows   int
	Warnings      []string
	Err           error
}

// Exit codes, worst outcome across the run wins.
const (
	ExitOK            = 0
	ExitValidation    = 1
	ExitAuth          = 2
	ExitConfiguration = 3
	ExitPartial       = 4
	ExitCancelled     = 5
)

// RunSummary aggregates all project results for one invocation.
type RunSummary struct {
	RunID      string
	Results    []ProjectResult
	ReportPath string
}

// Succeeded counts projects that reached Done.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.State == StateDone {
			n++
		}
	}
	return n
}

// Failed counts projects that ended Failed.
func (s *RunSummary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.State == StateFailed {
			n++
		}
	}
	return n
}

// Warnings counts warnings across all projects.
func (s *RunSummary) Warnings() int {
	n := 0
	for _, r := range s.Results {
		n += len(r.Warnings)
	}
	return n
}

// ExitCode folds the run outcome onto the process exit contract: worst
// failure kind wins, partial success ranks below full failure causes.
func (s *RunSummary) ExitCode() int {
	cancelled := false
	worst := ExitOK
	failed := 0
	for _, r := range s.Results {
		switch r.State {
		case StateCancelled:
			cancelled = true
		case StateFailed:
			failed++
			if code := failureCode(r.Err); code > worst {
				worst = code
			}
		}
	}
	if cancelled {
		return ExitCancelled
	}
	if failed == 0 {
		return ExitOK
	}
	// Some projects succeeded: partial, unless a config or auth failure
	// poisoned the whole run.
	if failed < len(s.Results) && worst != ExitConfiguration && worst != ExitAuth {
		return ExitPartial
	}
	return worst
}

func failureCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case core.IsKind(err, core.KindAuth):
		return ExitAuth
	case core.IsKind(err, core.KindConfiguration):
		return ExitConfiguration
	default:
		return ExitValidation
	}
}
