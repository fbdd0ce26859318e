// Package report collects formula-backed custom fields encountered during
// a run and writes them out as the Formula Fields CSV. Source formulas are
// never translated; their materialized values load as static cells and the
// report tells sheet owners where to rebuild the formulas by hand.
package report

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

// csvHeader is the fixed column set of the report file.
var csvHeader = []string{
	"Workspace Name", "Workspace ID", "Sheet Name", "Sheet ID",
	"Column Name", "Column ID", "Internal Field Name", "Display Name",
	"Entity Type", "Sample Values",
}

// maxSamples caps how many distinct values one entry carries.
const maxSamples = 5

// Entry is one formula field landed in one sheet column.
type Entry struct {
	WorkspaceName string
	WorkspaceID   int64
	SheetName     string
	SheetID       int64
	ColumnName    string
	ColumnID      int64
	InternalName  string
	DisplayName   string
	EntityType    core.EntityKind
	SampleValues  []string
}

// Collector accumulates entries from concurrently migrating projects.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
}

func NewCollector() *Collector {
	return &Collector{}
}

// Add records one formula field, trimming its samples to a bounded,
// deduplicated set.
func (c *Collector) Add(entry Entry) {
	entry.SampleValues = dedupeSamples(entry.SampleValues)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

// Len reports how many entries were collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a stable-ordered copy, sorted by workspace, sheet and
// column so reruns produce identical files.
func (c *Collector) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WorkspaceName != out[j].WorkspaceName {
			return out[i].WorkspaceName < out[j].WorkspaceName
		}
		if out[i].SheetName != out[j].SheetName {
			return out[i].SheetName < out[j].SheetName
		}
		return out[i].ColumnName < out[j].ColumnName
	})
	return out
}

// WriteCSV writes the report to path, creating parent directories. An empty
// collector still writes the header so consumers can rely on the file.
func (c *Collector) WriteCSV(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return core.WrapError(core.KindConfiguration, fmt.Sprintf("cannot create report directory for %s", path), err)
	}
	f, err := fs.Create(path)
	if err != nil {
		return core.WrapError(core.KindConfiguration, fmt.Sprintf("cannot create report file %s", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range c.Entries() {
		record := []string{
			e.WorkspaceName,
			fmt.Sprintf("%d", e.WorkspaceID),
			e.SheetName,
			fmt.Sprintf("%d", e.SheetID),
			e.ColumnName,
			fmt.Sprintf("%d", e.ColumnID),
			e.InternalName,
			e.DisplayName,
			e.EntityType.String(),
			strings.Join(e.SampleValues, "; "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func dedupeSamples(samples []string) []string {
	seen := make(map[string]bool, len(samples))
	var out []string
	for _, s := range samples {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == maxSamples {
			break
		}
	}
	return out
}
