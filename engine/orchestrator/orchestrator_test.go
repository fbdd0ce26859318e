package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/standards"
	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/engine/transform"
)

// fakeAPI is an in-memory target.API. Rows and columns persist across runs
// so rerun behavior is observable.
type fakeAPI struct {
	workspaces []target.Workspace
	children   map[int64][]target.WorkspaceChild
	sheets     map[int64]*target.Sheet

	calls  map[string]int
	nextID int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		children: map[int64][]target.WorkspaceChild{},
		sheets:   map[int64]*target.Sheet{},
		calls:    map[string]int{},
		nextID:   100,
	}
}

func (f *fakeAPI) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeAPI) ListWorkspaces(context.Context) ([]target.Workspace, error) {
	f.calls["ListWorkspaces"]++
	return f.workspaces, nil
}

func (f *fakeAPI) CreateWorkspace(_ context.Context, name string) (target.Workspace, error) {
	f.calls["CreateWorkspace"]++
	ws := target.Workspace{ID: f.id(), Name: name}
	f.workspaces = append(f.workspaces, ws)
	return ws, nil
}

func (f *fakeAPI) GetWorkspaceChildren(_ context.Context, workspaceID int64) ([]target.WorkspaceChild, error) {
	f.calls["GetWorkspaceChildren"]++
	return f.children[workspaceID], nil
}

func (f *fakeAPI) GetSheet(_ context.Context, sheetID int64) (*target.Sheet, error) {
	f.calls["GetSheet"]++
	sheet := *f.sheets[sheetID]
	return &sheet, nil
}

func (f *fakeAPI) CreateSheetInWorkspace(_ context.Context, workspaceID int64, spec target.SheetSpec) (*target.Sheet, error) {
	f.calls["CreateSheetInWorkspace"]++
	sheet := &target.Sheet{ID: f.id(), Name: spec.Name}
	for _, c := range spec.Columns {
		c.ID = f.id()
		sheet.Columns = append(sheet.Columns, c)
	}
	f.sheets[sheet.ID] = sheet
	f.children[workspaceID] = append(f.children[workspaceID],
		target.WorkspaceChild{ID: sheet.ID, Name: sheet.Name, Kind: target.ChildSheet})
	return sheet, nil
}

func (f *fakeAPI) RenameSheet(_ context.Context, sheetID int64, newName string) error {
	f.calls["RenameSheet"]++
	f.sheets[sheetID].Name = newName
	return nil
}

func (f *fakeAPI) DeleteRows(_ context.Context, sheetID int64, rowIDs []int64) error {
	f.calls["DeleteRows"]++
	drop := map[int64]bool{}
	for _, id := range rowIDs {
		drop[id] = true
	}
	sheet := f.sheets[sheetID]
	kept := sheet.Rows[:0]
	for _, r := range sheet.Rows {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	sheet.Rows = kept
	return nil
}

func (f *fakeAPI) AddColumns(_ context.Context, sheetID int64, columns []target.Column) ([]target.Column, error) {
	f.calls["AddColumns"]++
	var added []target.Column
	for _, c := range columns {
		c.ID = f.id()
		f.sheets[sheetID].Columns = append(f.sheets[sheetID].Columns, c)
		added = append(added, c)
	}
	return added, nil
}

func (f *fakeAPI) UpdateColumn(_ context.Context, sheetID int64, column target.Column) (target.Column, error) {
	f.calls["UpdateColumn"]++
	cols := f.sheets[sheetID].Columns
	for i := range cols {
		if cols[i].ID == column.ID {
			cols[i] = column
		}
	}
	return column, nil
}

func (f *fakeAPI) AddRows(_ context.Context, sheetID int64, rows []target.Row) ([]target.Row, error) {
	f.calls["AddRows"]++
	sheet := f.sheets[sheetID]
	var added []target.Row
	for _, r := range rows {
		r.ID = f.id()
		r.RowNum = len(sheet.Rows) + 1
		sheet.Rows = append(sheet.Rows, r)
		added = append(added, r)
	}
	return added, nil
}

func (f *fakeAPI) UpdateRows(_ context.Context, sheetID int64, rows []target.Row) ([]target.Row, error) {
	f.calls["UpdateRows"]++
	sheet := f.sheets[sheetID]
	for _, update := range rows {
		for i := range sheet.Rows {
			if sheet.Rows[i].ID != update.ID {
				continue
			}
			for _, cell := range update.Cells {
				merged := false
				for j := range sheet.Rows[i].Cells {
					if sheet.Rows[i].Cells[j].ColumnID == cell.ColumnID {
						sheet.Rows[i].Cells[j] = cell
						merged = true
					}
				}
				if !merged {
					sheet.Rows[i].Cells = append(sheet.Rows[i].Cells, cell)
				}
			}
		}
	}
	return rows, nil
}

func (f *fakeAPI) CopySheetToWorkspace(_ context.Context, sheetID, workspaceID int64, newName string) (*target.Sheet, error) {
	f.calls["CopySheetToWorkspace"]++
	src := f.sheets[sheetID]
	sheet := &target.Sheet{ID: f.id(), Name: newName}
	sheet.Columns = append(sheet.Columns, src.Columns...)
	sheet.Rows = append(sheet.Rows, src.Rows...)
	f.sheets[sheet.ID] = sheet
	f.children[workspaceID] = append(f.children[workspaceID],
		target.WorkspaceChild{ID: sheet.ID, Name: sheet.Name, Kind: target.ChildSheet})
	return sheet, nil
}

var _ target.API = (*fakeAPI)(nil)

func (f *fakeAPI) sheetByName(t *testing.T, name string) *target.Sheet {
	t.Helper()
	for _, sheet := range f.sheets {
		if sheet.Name == name {
			return sheet
		}
	}
	t.Fatalf("sheet %q not found", name)
	return nil
}

func (f *fakeAPI) workspaceByName(t *testing.T, name string) target.Workspace {
	t.Helper()
	for _, ws := range f.workspaces {
		if ws.Name == name {
			return ws
		}
	}
	t.Fatalf("workspace %q not found", name)
	return target.Workspace{}
}

// fakeExtractor serves fixtures through the Extractor surface.
type fakeExtractor struct {
	projects    []source.Project
	tasks       map[string][]source.Task
	resources   map[string][]source.Resource
	assignments map[string][]source.Assignment
	fields      map[core.EntityKind][]source.CustomField
}

func (e *fakeExtractor) Projects(context.Context) ([]source.Project, error) {
	return e.projects, nil
}

func (e *fakeExtractor) Project(_ context.Context, projectID string) (*source.Project, error) {
	for i := range e.projects {
		if e.projects[i].ID == projectID {
			return &e.projects[i], nil
		}
	}
	return nil, core.NewDataError(fmt.Sprintf("project %s not found", projectID), nil)
}

func (e *fakeExtractor) Tasks(_ context.Context, projectID string) ([]source.Task, error) {
	return e.tasks[projectID], nil
}

func (e *fakeExtractor) Resources(_ context.Context, projectID string) ([]source.Resource, error) {
	return e.resources[projectID], nil
}

func (e *fakeExtractor) Assignments(_ context.Context, projectID string) ([]source.Assignment, error) {
	return e.assignments[projectID], nil
}

func (e *fakeExtractor) CustomFields(context.Context) (map[core.EntityKind][]source.CustomField, error) {
	return e.fields, nil
}

// sinkFunc adapts a function to the ProgressSink surface.
type sinkFunc func(Update)

func (f sinkFunc) Publish(u Update) { f(u) }

func intp(v int) *int { return &v }

// alphaExtractor builds a small two-task project with one work and one
// material resource assigned to the child task.
func alphaExtractor() *fakeExtractor {
	return &fakeExtractor{
		projects: []source.Project{{
			ID:         "p-alpha",
			Name:       "Alpha Rollout",
			Owner:      "Grace Hopper",
			OwnerEmail: "grace@example.com",
			Status:     "Active",
			Priority:   intp(900),
			Start:      "2026-01-05T00:00:00Z",
			Finish:     "2026-06-30T00:00:00Z",
		}},
		tasks: map[string][]source.Task{"p-alpha": {
			{
				ID:           "t-1",
				ProjectID:    "p-alpha",
				Name:         "Plan",
				OutlineLevel: 1,
				Index:        1,
				Duration:     "PT40H",
				Start:        "2026-01-05T00:00:00Z",
			},
			{
				ID:           "t-2",
				ProjectID:    "p-alpha",
				Name:         "Build",
				OutlineLevel: 2,
				Index:        2,
				Duration:     "P5D",
				Predecessors: "t-1:FS",
			},
		}},
		resources: map[string][]source.Resource{"p-alpha": {
			{ID: "r-ada", Name: "Ada Lovelace", Email: "ada@example.com", TypeCode: 1, IsActive: true},
			{ID: "r-exc", Name: "Excavator", TypeCode: 0},
		}},
		assignments: map[string][]source.Assignment{"p-alpha": {
			{ID: "a-1", TaskID: "t-2", ResourceID: "r-ada", ProjectID: "p-alpha"},
			{ID: "a-2", TaskID: "t-2", ResourceID: "r-exc", ProjectID: "p-alpha"},
		}},
		fields: map[core.EntityKind][]source.CustomField{},
	}
}

func newTestOrchestrator(api *fakeAPI, ext Extractor) *Orchestrator {
	return New(ext, api, nil, Options{
		BatchSize: 10,
		Fs:        afero.NewMemMapFs(),
	})
}

func cellValue(t *testing.T, sheet *target.Sheet, row target.Row, title string) any {
	t.Helper()
	col, ok := sheet.Column(title)
	require.True(t, ok, "column %q", title)
	cell, ok := row.Cell(col.ID)
	if !ok {
		return nil
	}
	return cell.Value
}

func rowByCell(t *testing.T, sheet *target.Sheet, title string, value any) target.Row {
	t.Helper()
	col, ok := sheet.Column(title)
	require.True(t, ok, "column %q", title)
	for _, row := range sheet.Rows {
		if cell, ok := row.Cell(col.ID); ok && cell.Value == value {
			return row
		}
	}
	t.Fatalf("no row with %s=%v", title, value)
	return target.Row{}
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Should migrate a project end to end", func(t *testing.T) {
		api := newFakeAPI()
		summary, err := newTestOrchestrator(api, alphaExtractor()).Run(ctx, nil)
		require.NoError(t, err)
		require.Len(t, summary.Results, 1)
		assert.NotEmpty(t, summary.RunID)

		result := summary.Results[0]
		require.NoError(t, result.Err)
		assert.Equal(t, StateDone, result.State)
		assert.Equal(t, "Alpha Rollout", result.WorkspaceName)
		assert.Equal(t, 2, result.TasksLoaded)
		assert.Equal(t, 2, result.ResourcesRows)
		assert.Equal(t, ExitOK, summary.ExitCode())

		api.workspaceByName(t, "Alpha Rollout")
		tasks := api.sheetByName(t, "Alpha Rollout - Tasks")
		require.Len(t, tasks.Rows, 2)

		plan := rowByCell(t, tasks, transform.ColumnProjectOnlineID, "t-1")
		build := rowByCell(t, tasks, transform.ColumnProjectOnlineID, "t-2")
		assert.Equal(t, "Plan", cellValue(t, tasks, plan, transform.ColumnTaskName))
		assert.Equal(t, plan.ID, build.ParentID, "child row should reference the parent row")

		resources := api.sheetByName(t, "Alpha Rollout - Resources")
		assert.Len(t, resources.Rows, 2)
	})

	t.Run("Should write predecessors against final row numbers", func(t *testing.T) {
		api := newFakeAPI()
		_, err := newTestOrchestrator(api, alphaExtractor()).Run(ctx, nil)
		require.NoError(t, err)

		tasks := api.sheetByName(t, "Alpha Rollout - Tasks")
		build := rowByCell(t, tasks, transform.ColumnProjectOnlineID, "t-2")
		assert.Equal(t, "1FS", cellValue(t, tasks, build, transform.ColumnPredecessors))
	})

	t.Run("Should add only the assignment columns the project uses", func(t *testing.T) {
		api := newFakeAPI()
		_, err := newTestOrchestrator(api, alphaExtractor()).Run(ctx, nil)
		require.NoError(t, err)

		tasks := api.sheetByName(t, "Alpha Rollout - Tasks")
		team, ok := tasks.Column(transform.ColumnTeamMembers)
		require.True(t, ok)
		assert.Equal(t, target.ColumnMultiContactList, team.Type)
		equipment, ok := tasks.Column(transform.ColumnEquipment)
		require.True(t, ok)
		assert.Equal(t, target.ColumnMultiPicklist, equipment.Type)
		assert.Equal(t, []string{"Excavator"}, equipment.Options)
		_, ok = tasks.Column(transform.ColumnCostCenters)
		assert.False(t, ok, "no cost resources assigned")
	})

	t.Run("Should load summary key-value rows", func(t *testing.T) {
		api := newFakeAPI()
		_, err := newTestOrchestrator(api, alphaExtractor()).Run(ctx, nil)
		require.NoError(t, err)

		summary := api.sheetByName(t, "Alpha Rollout - Summary")
		name := rowByCell(t, summary, transform.ColumnSummaryField, "Project Name")
		assert.Equal(t, "Alpha Rollout", cellValue(t, summary, name, transform.ColumnSummaryValue))
		priority := rowByCell(t, summary, transform.ColumnSummaryField, "Priority")
		assert.Equal(t, "Very High", cellValue(t, summary, priority, transform.ColumnSummaryValue))
	})

	t.Run("Should create the standards workspace and bind picklist columns", func(t *testing.T) {
		api := newFakeAPI()
		_, err := newTestOrchestrator(api, alphaExtractor()).Run(ctx, nil)
		require.NoError(t, err)

		api.workspaceByName(t, standards.DefaultWorkspaceName)
		taskStatus := api.sheetByName(t, standards.SheetTaskStatus)

		tasks := api.sheetByName(t, "Alpha Rollout - Tasks")
		status, ok := tasks.Column(transform.ColumnStatus)
		require.True(t, ok)
		require.NotNil(t, status.SourceRef)
		assert.Equal(t, taskStatus.ID, status.SourceRef.SheetID)
	})

	t.Run("Should add no rows on an unchanged rerun", func(t *testing.T) {
		api := newFakeAPI()
		ext := alphaExtractor()
		_, err := newTestOrchestrator(api, ext).Run(ctx, nil)
		require.NoError(t, err)

		taskRows := len(api.sheetByName(t, "Alpha Rollout - Tasks").Rows)
		resourceRows := len(api.sheetByName(t, "Alpha Rollout - Resources").Rows)
		summaryRows := len(api.sheetByName(t, "Alpha Rollout - Summary").Rows)
		workspaces := len(api.workspaces)

		summary, err := newTestOrchestrator(api, ext).Run(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, StateDone, summary.Results[0].State)
		assert.Len(t, api.sheetByName(t, "Alpha Rollout - Tasks").Rows, taskRows)
		assert.Len(t, api.sheetByName(t, "Alpha Rollout - Resources").Rows, resourceRows)
		assert.Len(t, api.sheetByName(t, "Alpha Rollout - Summary").Rows, summaryRows)
		assert.Len(t, api.workspaces, workspaces)
	})

	t.Run("Should fail the project when it has no usable name", func(t *testing.T) {
		api := newFakeAPI()
		ext := alphaExtractor()
		ext.projects[0].Name = ""
		summary, err := newTestOrchestrator(api, ext).Run(ctx, nil)
		require.NoError(t, err)

		result := summary.Results[0]
		assert.Equal(t, StateFailed, result.State)
		assert.True(t, core.IsKind(result.Err, core.KindValidation))
		assert.Equal(t, ExitValidation, summary.ExitCode())
	})

	t.Run("Should mark projects cancelled when the context is done", func(t *testing.T) {
		api := newFakeAPI()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		summary, err := newTestOrchestrator(api, alphaExtractor()).Run(cancelled, nil)
		require.NoError(t, err)

		assert.Equal(t, StateCancelled, summary.Results[0].State)
		assert.Equal(t, ExitCancelled, summary.ExitCode())
	})

	t.Run("Should migrate only the requested projects", func(t *testing.T) {
		api := newFakeAPI()
		ext := alphaExtractor()
		ext.projects = append(ext.projects, source.Project{ID: "p-beta", Name: "Beta"})
		summary, err := newTestOrchestrator(api, ext).Run(ctx, []string{"p-alpha"})
		require.NoError(t, err)

		require.Len(t, summary.Results, 1)
		assert.Equal(t, "p-alpha", summary.Results[0].ProjectID)
	})
}

func TestRunAssignmentBuckets(t *testing.T) {
	t.Run("Should create all three assignment columns in one run", func(t *testing.T) {
		ext := alphaExtractor()
		ext.resources["p-alpha"] = append(ext.resources["p-alpha"],
			source.Resource{ID: "r-travel", Name: "Travel", IsCostResource: true})
		ext.assignments["p-alpha"] = append(ext.assignments["p-alpha"],
			source.Assignment{ID: "a-3", TaskID: "t-1", ResourceID: "r-travel", ProjectID: "p-alpha"})

		api := newFakeAPI()
		_, err := newTestOrchestrator(api, ext).Run(context.Background(), nil)
		require.NoError(t, err)

		tasks := api.sheetByName(t, "Alpha Rollout - Tasks")
		for _, title := range []string{transform.ColumnTeamMembers, transform.ColumnEquipment, transform.ColumnCostCenters} {
			_, ok := tasks.Column(title)
			assert.True(t, ok, "column %q", title)
		}
		cost, _ := tasks.Column(transform.ColumnCostCenters)
		assert.Equal(t, []string{"Travel"}, cost.Options)
	})
}

func TestRunSummaryExitCode(t *testing.T) {
	done := ProjectResult{State: StateDone}
	failedWith := func(err error) ProjectResult {
		return ProjectResult{State: StateFailed, Err: err}
	}

	t.Run("Should return partial when only some projects fail", func(t *testing.T) {
		s := &RunSummary{Results: []ProjectResult{done, failedWith(core.NewDataError("boom", nil))}}
		assert.Equal(t, ExitPartial, s.ExitCode())
	})

	t.Run("Should let auth failures override partial", func(t *testing.T) {
		s := &RunSummary{Results: []ProjectResult{done, failedWith(core.NewAuthError(core.AuthExpired, "expired", nil))}}
		assert.Equal(t, ExitAuth, s.ExitCode())
	})

	t.Run("Should let configuration failures override partial", func(t *testing.T) {
		s := &RunSummary{Results: []ProjectResult{done, failedWith(core.NewConfigurationError("bad"))}}
		assert.Equal(t, ExitConfiguration, s.ExitCode())
	})

	t.Run("Should rank cancellation above everything", func(t *testing.T) {
		s := &RunSummary{Results: []ProjectResult{
			failedWith(core.NewAuthError(core.AuthExpired, "expired", nil)),
			{State: StateCancelled},
		}}
		assert.Equal(t, ExitCancelled, s.ExitCode())
	})

	t.Run("Should return validation when every project fails on data", func(t *testing.T) {
		s := &RunSummary{Results: []ProjectResult{failedWith(core.NewDataError("boom", nil))}}
		assert.Equal(t, ExitValidation, s.ExitCode())
	})
}

func TestProgressPublisher(t *testing.T) {
	type recordingSink struct {
		updates []Update
	}
	record := func() (*recordingSink, *progressPublisher, *time.Time) {
		sink := &recordingSink{}
		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		p := newProgressPublisher(sinkFunc(func(u Update) { sink.updates = append(sink.updates, u) }))
		p.now = func() time.Time { return now }
		return sink, p, &now
	}

	t.Run("Should throttle repeated updates within one second", func(t *testing.T) {
		sink, p, now := record()
		p.publish(Update{ProjectID: "p", State: StateLoadingTasks, Completed: 1, Total: 10})
		p.publish(Update{ProjectID: "p", State: StateLoadingTasks, Completed: 2, Total: 10})
		assert.Len(t, sink.updates, 1)

		*now = now.Add(time.Second)
		p.publish(Update{ProjectID: "p", State: StateLoadingTasks, Completed: 3, Total: 10})
		assert.Len(t, sink.updates, 2)
	})

	t.Run("Should always pass state transitions", func(t *testing.T) {
		sink, p, _ := record()
		p.publish(Update{ProjectID: "p", State: StateExtracting})
		p.publish(Update{ProjectID: "p", State: StatePreparing})
		assert.Len(t, sink.updates, 2)
	})

	t.Run("Should always pass completion", func(t *testing.T) {
		sink, p, _ := record()
		p.publish(Update{ProjectID: "p", State: StateLoadingTasks, Completed: 1, Total: 10})
		p.publish(Update{ProjectID: "p", State: StateLoadingTasks, Completed: 10, Total: 10})
		assert.Len(t, sink.updates, 2)
	})

	t.Run("Should throttle projects independently", func(t *testing.T) {
		sink, p, _ := record()
		p.publish(Update{ProjectID: "a", State: StateLoadingTasks, Completed: 1, Total: 10})
		p.publish(Update{ProjectID: "b", State: StateLoadingTasks, Completed: 1, Total: 10})
		assert.Len(t, sink.updates, 2)
	})
}
