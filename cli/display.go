package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/orchestrator"
)

func actionableHint(err error) string {
	if e, ok := core.AsError(err); ok {
		return e.ActionableHint()
	}
	return ""
}

// deviceCodePrinter renders the device-code prompt on the terminal.
type deviceCodePrinter struct {
	out io.Writer
}

func (p *deviceCodePrinter) ShowDeviceCode(userCode, verificationURL string, expiresIn time.Duration) {
	fmt.Fprintf(p.out, "\nTo sign in, open %s and enter the code %s\n", verificationURL, userCode)
	fmt.Fprintf(p.out, "The code expires in %s.\n\n", expiresIn.Round(time.Second))
}

// progressPrinter renders orchestrator progress updates, one line per
// event. Updates arrive from parallel project workers.
type progressPrinter struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *progressPrinter) Publish(u orchestrator.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case u.Total > 0:
		fmt.Fprintf(p.out, "  %-30s %-18s %d/%d %s\n", u.ProjectName, u.State, u.Completed, u.Total, u.Message)
	default:
		fmt.Fprintf(p.out, "  %-30s %s\n", u.ProjectName, u.State)
	}
}

// printSummary writes the per-project outcome table and run totals.
func printSummary(out io.Writer, summary *orchestrator.RunSummary) {
	fmt.Fprintln(out)
	for _, r := range summary.Results {
		switch r.State {
		case orchestrator.StateDone:
			fmt.Fprintf(out, "  %-30s done  (tasks %d, resources %d, summary %d, warnings %d)\n",
				r.ProjectName, r.TasksLoaded, r.ResourcesRows, r.SummaryRows, len(r.Warnings))
		case orchestrator.StateCancelled:
			fmt.Fprintf(out, "  %-30s cancelled\n", r.ProjectName)
		default:
			fmt.Fprintf(out, "  %-30s failed: %v\n", r.ProjectName, r.Err)
			if hint := actionableHint(r.Err); hint != "" {
				fmt.Fprintf(out, "  %-30s what to do: %s\n", "", hint)
			}
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(out, "  %-30s warning: %s\n", "", w)
		}
	}
	fmt.Fprintf(out, "\n%d migrated, %d failed, %d warnings\n",
		summary.Succeeded(), summary.Failed(), summary.Warnings())
}
