// Package standards manages the shared PMO Standards workspace: the
// reference sheets that feed picklist columns across every migrated
// project. Value sets only ever grow; merges append missing values and
// never delete or reorder what other projects already rely on.
package standards

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/resiliency"
	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// DefaultWorkspaceName is used when no workspace ID is configured.
const DefaultWorkspaceName = "PMO Standards"

// valueColumn is the single user column every reference sheet carries.
const valueColumn = "Name"

// Fixed reference sheet names.
const (
	SheetProjectStatus      = "Project - Status"
	SheetProjectPriority    = "Project - Priority"
	SheetTaskStatus         = "Task - Status"
	SheetTaskPriority       = "Task - Priority"
	SheetTaskConstraintType = "Task - Constraint Type"
	SheetResourceType       = "Resource - Type"
	SheetResourceDepartment = "Resource - Department"
)

// seedValues are the baseline option sets for the fixed sheets. Discovered
// values union-merge on top of these.
var seedValues = map[string][]string{
	SheetProjectStatus:      {"Active", "Cancelled", "Completed", "On Hold", "Planning"},
	SheetProjectPriority:    {"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest"},
	SheetTaskStatus:         {"Not Started", "In Progress", "Complete"},
	SheetTaskPriority:       {"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest"},
	SheetTaskConstraintType: {"ASAP", "ALAP", "SNET", "SNLT", "FNET", "FNLT", "MSO", "MFO"},
	SheetResourceType:       {"Work", "Material", "Cost"},
	SheetResourceDepartment: nil,
}

// FixedSheetNames returns the fixed reference sheets in creation order.
func FixedSheetNames() []string {
	return []string{
		SheetProjectStatus, SheetProjectPriority,
		SheetTaskStatus, SheetTaskPriority, SheetTaskConstraintType,
		SheetResourceType, SheetResourceDepartment,
	}
}

// sheetState caches one reference sheet's identity and known value set.
type sheetState struct {
	sheetID  int64
	columnID int64
	rowCount int
	values   map[string]bool
}

// Manager owns the PMO Standards workspace for the lifetime of a run.
// All mutating calls serialize on an in-process lock: projects migrate
// concurrently but reference merges must not interleave.
type Manager struct {
	api target.API

	mu          sync.Mutex
	workspaceID int64
	sheets      map[string]*sheetState
}

func NewManager(api target.API) *Manager {
	return &Manager{api: api, sheets: make(map[string]*sheetState)}
}

// Init locates the standards workspace and ensures every fixed reference
// sheet exists with its seed values. A configured workspace ID is adopted
// as-is; zero means find-or-create by name.
func (m *Manager) Init(ctx context.Context, configuredWorkspaceID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log := logger.FromContext(ctx)

	if configuredWorkspaceID != 0 {
		if _, err := m.api.GetWorkspaceChildren(ctx, configuredWorkspaceID); err != nil {
			if core.IsKind(err, core.KindPermission) || core.StatusCode(err) == 403 {
				return core.WrapError(core.KindPermission,
					fmt.Sprintf("configured standards workspace %d is not accessible", configuredWorkspaceID), err)
			}
			return err
		}
		m.workspaceID = configuredWorkspaceID
		log.Debug("adopted standards workspace", "id", configuredWorkspaceID)
	} else {
		ws, _, err := resiliency.GetOrCreateWorkspace(ctx, m.api, DefaultWorkspaceName)
		if err != nil {
			return err
		}
		m.workspaceID = ws.ID
	}

	for _, name := range FixedSheetNames() {
		if _, err := m.ensureSheetLocked(ctx, name, seedValues[name]); err != nil {
			return err
		}
	}
	return nil
}

// WorkspaceID returns the resolved standards workspace, zero before Init.
func (m *Manager) WorkspaceID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workspaceID
}

// Ensure get-or-creates a reference sheet and union-merges the values into
// it, returning the binding picklist columns should point at.
func (m *Manager) Ensure(ctx context.Context, sheetName string, values []string) (target.SheetColumnRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureSheetLocked(ctx, sheetName, values)
}

// Ref returns the binding for an already ensured sheet.
func (m *Manager) Ref(sheetName string) (target.SheetColumnRef, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.sheets[sheetName]
	if !ok {
		return target.SheetColumnRef{}, false
	}
	return target.SheetColumnRef{SheetID: state.sheetID, ColumnID: state.columnID}, true
}

func (m *Manager) ensureSheetLocked(ctx context.Context, sheetName string, values []string) (target.SheetColumnRef, error) {
	if m.workspaceID == 0 {
		return target.SheetColumnRef{}, core.NewConfigurationError("standards manager not initialized")
	}
	state, err := m.loadSheetLocked(ctx, sheetName)
	if err != nil {
		return target.SheetColumnRef{}, err
	}
	if err := m.mergeLocked(ctx, sheetName, state, values); err != nil {
		return target.SheetColumnRef{}, err
	}
	return target.SheetColumnRef{SheetID: state.sheetID, ColumnID: state.columnID}, nil
}

// loadSheetLocked resolves the sheet and its current value set, creating
// the sheet when absent. The result is cached for the rest of the run.
func (m *Manager) loadSheetLocked(ctx context.Context, sheetName string) (*sheetState, error) {
	if state, ok := m.sheets[sheetName]; ok {
		return state, nil
	}
	sheet, _, err := resiliency.GetOrCreateSheet(ctx, m.api, m.workspaceID, target.SheetSpec{
		Name: sheetName,
		Columns: []target.Column{
			{Title: valueColumn, Type: target.ColumnTextNumber, Primary: true},
		},
	})
	if err != nil {
		return nil, err
	}
	col, ok := sheet.Column(valueColumn)
	if !ok {
		// Adopted sheets may predate this tool; fall back to the primary.
		col, ok = sheet.PrimaryColumn()
		if !ok {
			return nil, core.NewDataError(
				fmt.Sprintf("standards sheet %q has no usable value column", sheetName), nil)
		}
	}
	state := &sheetState{
		sheetID:  sheet.ID,
		columnID: col.ID,
		rowCount: len(sheet.Rows),
		values:   make(map[string]bool),
	}
	for _, row := range sheet.Rows {
		if cell, ok := row.Cell(col.ID); ok {
			if s, ok := cell.Value.(string); ok && s != "" {
				state.values[s] = true
			}
		}
	}
	m.sheets[sheetName] = state
	return state, nil
}

// mergeLocked appends the values the sheet does not yet carry, sorted, in
// one batch. Existing rows are never touched.
func (m *Manager) mergeLocked(ctx context.Context, sheetName string, state *sheetState, values []string) error {
	var missing []string
	for _, v := range values {
		if v != "" && !state.values[v] {
			state.values[v] = true
			missing = append(missing, v)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	rows := make([]target.Row, 0, len(missing))
	for _, v := range missing {
		rows = append(rows, target.Row{
			ToBottom: true,
			Cells:    []target.Cell{{ColumnID: state.columnID, Value: v}},
		})
	}
	if _, err := m.api.AddRows(ctx, state.sheetID, rows); err != nil {
		return err
	}
	state.rowCount += len(missing)
	logger.FromContext(ctx).Debug("merged standards values",
		"sheet", sheetName, "added", len(missing), "total", len(state.values))
	return nil
}
