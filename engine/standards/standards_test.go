package standards

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/target"
)

// fakeAPI is the minimal in-memory target.API the manager exercises.
type fakeAPI struct {
	workspaces  []target.Workspace
	children    map[int64][]target.WorkspaceChild
	sheets      map[int64]*target.Sheet
	childrenErr error
	calls       map[string]int
	nextID      int64
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		children: map[int64][]target.WorkspaceChild{},
		sheets:   map[int64]*target.Sheet{},
		calls:    map[string]int{},
		nextID:   500,
	}
}

func (f *fakeAPI) id() int64 { f.nextID++; return f.nextID }

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
	if f.childrenErr != nil {
		return nil, f.childrenErr
	}
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

func (f *fakeAPI) RenameSheet(context.Context, int64, string) error { return nil }
func (f *fakeAPI) DeleteRows(context.Context, int64, []int64) error { return nil }

func (f *fakeAPI) AddColumns(context.Context, int64, []target.Column) ([]target.Column, error) {
	return nil, nil
}

func (f *fakeAPI) UpdateColumn(_ context.Context, _ int64, c target.Column) (target.Column, error) {
	return c, nil
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

func (f *fakeAPI) UpdateRows(_ context.Context, _ int64, rows []target.Row) ([]target.Row, error) {
	return rows, nil
}

func (f *fakeAPI) CopySheetToWorkspace(context.Context, int64, int64, string) (*target.Sheet, error) {
	return nil, nil
}

var _ target.API = (*fakeAPI)(nil)

// sheetValues reads a reference sheet's value column in row order.
func sheetValues(f *fakeAPI, name string) []string {
	for _, sheet := range f.sheets {
		if sheet.Name != name {
			continue
		}
		col := sheet.Columns[0]
		var values []string
		for _, r := range sheet.Rows {
			if cell, ok := r.Cell(col.ID); ok {
				values = append(values, cell.Value.(string))
			}
		}
		return values
	}
	return nil
}

func TestManagerInit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create the workspace and every fixed sheet with seeds", func(t *testing.T) {
		api := newFakeAPI()
		m := NewManager(api)
		require.NoError(t, m.Init(ctx, 0))
		assert.NotZero(t, m.WorkspaceID())
		assert.Equal(t, 1, api.calls["CreateWorkspace"])
		assert.Equal(t, len(FixedSheetNames()), api.calls["CreateSheetInWorkspace"])

		values := sheetValues(api, SheetTaskStatus)
		sort.Strings(values)
		assert.Equal(t, []string{"Complete", "In Progress", "Not Started"}, values)
		assert.Len(t, sheetValues(api, SheetTaskConstraintType), 8)
		assert.Empty(t, sheetValues(api, SheetResourceDepartment))
	})

	t.Run("Should adopt a configured workspace without creating one", func(t *testing.T) {
		api := newFakeAPI()
		m := NewManager(api)
		require.NoError(t, m.Init(ctx, 42))
		assert.Equal(t, int64(42), m.WorkspaceID())
		assert.Zero(t, api.calls["CreateWorkspace"])
	})

	t.Run("Should surface a permission error for an inaccessible workspace", func(t *testing.T) {
		api := newFakeAPI()
		api.childrenErr = core.NewPermissionError("forbidden")
		m := NewManager(api)
		err := m.Init(ctx, 42)
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindPermission))
		assert.Contains(t, err.Error(), "42")
	})
}

func TestManagerUnionMerge(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fakeAPI, *Manager) {
		t.Helper()
		api := newFakeAPI()
		m := NewManager(api)
		require.NoError(t, m.Init(ctx, 0))
		return api, m
	}

	t.Run("Should append only the missing values sorted", func(t *testing.T) {
		api, m := setup(t)
		before := len(sheetValues(api, SheetProjectStatus))

		_, err := m.Ensure(ctx, SheetProjectStatus, []string{"Active", "Planning", "Archived", "Zombie"})
		require.NoError(t, err)

		values := sheetValues(api, SheetProjectStatus)
		require.Len(t, values, before+2)
		assert.Equal(t, []string{"Archived", "Zombie"}, values[before:])
	})

	t.Run("Should never touch existing rows", func(t *testing.T) {
		api, m := setup(t)
		before := sheetValues(api, SheetProjectPriority)
		_, err := m.Ensure(ctx, SheetProjectPriority, []string{"Medium", "Highest"})
		require.NoError(t, err)
		assert.Equal(t, before, sheetValues(api, SheetProjectPriority))
	})

	t.Run("Should skip the API entirely when nothing is missing", func(t *testing.T) {
		api, m := setup(t)
		addRows := api.calls["AddRows"]
		_, err := m.Ensure(ctx, SheetTaskStatus, []string{"Complete", "Not Started"})
		require.NoError(t, err)
		assert.Equal(t, addRows, api.calls["AddRows"])
	})

	t.Run("Should create discovered lookup sheets on demand", func(t *testing.T) {
		api, m := setup(t)
		ref, err := m.Ensure(ctx, "Task - Region", []string{"West", "East"})
		require.NoError(t, err)
		assert.NotZero(t, ref.SheetID)
		assert.NotZero(t, ref.ColumnID)
		assert.Equal(t, []string{"East", "West"}, sheetValues(api, "Task - Region"))
	})

	t.Run("Should return the binding for ensured sheets", func(t *testing.T) {
		_, m := setup(t)
		ref, ok := m.Ref(SheetTaskStatus)
		require.True(t, ok)
		assert.NotZero(t, ref.SheetID)

		_, ok = m.Ref("Task - Ghost")
		assert.False(t, ok)
	})
}
