// Package resiliency provides the idempotent get-or-create primitives the
// loader is built from. Every primitive reads before it writes, so reruns
// against a partially migrated workspace converge instead of duplicating.
package resiliency

import (
	"context"
	"strings"

	"github.com/sheetbridge/sheetbridge/engine/target"
	"github.com/sheetbridge/sheetbridge/pkg/logger"
)

// maxRowBatch caps the row IDs sent in one bulk delete.
const maxRowBatch = 300

// GetOrCreateWorkspace returns the workspace with the given name, creating
// it when absent. The boolean reports whether a create happened.
func GetOrCreateWorkspace(ctx context.Context, api target.API, name string) (target.Workspace, bool, error) {
	log := logger.FromContext(ctx)
	workspaces, err := api.ListWorkspaces(ctx)
	if err != nil {
		return target.Workspace{}, false, err
	}
	for _, ws := range workspaces {
		if ws.Name == name {
			log.Debug("workspace exists", "name", name, "id", ws.ID)
			return ws, false, nil
		}
	}
	ws, err := api.CreateWorkspace(ctx, name)
	if err != nil {
		return target.Workspace{}, false, err
	}
	log.Info("created workspace", "name", name, "id", ws.ID)
	return ws, true, nil
}

// FindSheet returns the sheet child with the exact name, if present.
func FindSheet(ctx context.Context, api target.API, workspaceID int64, name string) (target.WorkspaceChild, bool, error) {
	children, err := api.GetWorkspaceChildren(ctx, workspaceID)
	if err != nil {
		return target.WorkspaceChild{}, false, err
	}
	for _, c := range children {
		if c.Kind == target.ChildSheet && c.Name == name {
			return c, true, nil
		}
	}
	return target.WorkspaceChild{}, false, nil
}

// FindSheetByPartialName returns the first sheet child whose name contains
// the fragment. Used to locate template sheets whose names carry decoration.
func FindSheetByPartialName(ctx context.Context, api target.API, workspaceID int64, fragment string) (target.WorkspaceChild, bool, error) {
	children, err := api.GetWorkspaceChildren(ctx, workspaceID)
	if err != nil {
		return target.WorkspaceChild{}, false, err
	}
	for _, c := range children {
		if c.Kind == target.ChildSheet && fragment != "" && strings.Contains(c.Name, fragment) {
			return c, true, nil
		}
	}
	return target.WorkspaceChild{}, false, nil
}

// GetOrCreateSheet returns the named sheet in the workspace, fully fetched,
// creating it from the spec when absent.
func GetOrCreateSheet(ctx context.Context, api target.API, workspaceID int64, spec target.SheetSpec) (*target.Sheet, bool, error) {
	log := logger.FromContext(ctx)
	child, found, err := FindSheet(ctx, api, workspaceID, spec.Name)
	if err != nil {
		return nil, false, err
	}
	if found {
		sheet, err := api.GetSheet(ctx, child.ID)
		if err != nil {
			return nil, false, err
		}
		log.Debug("sheet exists", "name", spec.Name, "id", sheet.ID)
		return sheet, false, nil
	}
	sheet, err := api.CreateSheetInWorkspace(ctx, workspaceID, spec)
	if err != nil {
		return nil, false, err
	}
	log.Info("created sheet", "name", spec.Name, "id", sheet.ID)
	return sheet, true, nil
}

// GetOrAddColumn returns the sheet's column with the spec's title, adding
// it when absent. Columns added individually land at index 1 unless the
// spec pins one; index 0 is the primary column and never valid here.
func GetOrAddColumn(ctx context.Context, api target.API, sheet *target.Sheet, spec target.Column) (target.Column, bool, error) {
	if existing, ok := sheet.Column(spec.Title); ok {
		return existing, false, nil
	}
	if spec.Index == nil {
		spec = spec.IndexAt(1)
	}
	added, err := api.AddColumns(ctx, sheet.ID, []target.Column{spec})
	if err != nil {
		return target.Column{}, false, err
	}
	if len(added) == 0 {
		return target.Column{}, false, nil
	}
	sheet.Columns = append(sheet.Columns, added[0])
	return added[0], true, nil
}

// AddColumnsIfNotExist adds every spec column the sheet lacks in a single
// batch, all at the same insertion index (the current column count, so new
// columns append after the existing ones). The sheet's column list is
// updated in place; no per-column round trips happen.
func AddColumnsIfNotExist(ctx context.Context, api target.API, sheet *target.Sheet, specs []target.Column) ([]target.Column, error) {
	log := logger.FromContext(ctx)
	insertAt := len(sheet.Columns)
	var missing []target.Column
	for _, spec := range specs {
		if _, ok := sheet.Column(spec.Title); ok {
			continue
		}
		missing = append(missing, spec.IndexAt(insertAt))
	}
	if len(missing) == 0 {
		return nil, nil
	}
	added, err := api.AddColumns(ctx, sheet.ID, missing)
	if err != nil {
		return nil, err
	}
	sheet.Columns = append(sheet.Columns, added...)
	log.Debug("added columns", "sheet", sheet.Name, "count", len(added))
	return added, nil
}

// ConfigureColumnSource points an existing picklist column at a reference
// sheet column, skipping the update when the binding is already in place.
func ConfigureColumnSource(ctx context.Context, api target.API, sheet *target.Sheet, title string, ref target.SheetColumnRef) error {
	col, ok := sheet.Column(title)
	if !ok {
		return nil
	}
	if col.SourceRef != nil && *col.SourceRef == ref {
		return nil
	}
	col.SourceRef = &ref
	col.Options = nil
	_, err := api.UpdateColumn(ctx, sheet.ID, col)
	return err
}

// DeleteAllRows clears a sheet's rows in bulk batches. Reruns call this
// before reloading so stale rows never linger.
func DeleteAllRows(ctx context.Context, api target.API, sheetID int64) (int, error) {
	sheet, err := api.GetSheet(ctx, sheetID)
	if err != nil {
		return 0, err
	}
	ids := make([]int64, 0, len(sheet.Rows))
	for _, r := range sheet.Rows {
		ids = append(ids, r.ID)
	}
	for start := 0; start < len(ids); start += maxRowBatch {
		end := start + maxRowBatch
		if end > len(ids) {
			end = len(ids)
		}
		if err := api.DeleteRows(ctx, sheetID, ids[start:end]); err != nil {
			return start, err
		}
	}
	return len(ids), nil
}

// RenameSheetIfNeeded renames the sheet unless it already has the name.
func RenameSheetIfNeeded(ctx context.Context, api target.API, sheet *target.Sheet, name string) error {
	if sheet.Name == name {
		return nil
	}
	if err := api.RenameSheet(ctx, sheet.ID, name); err != nil {
		return err
	}
	sheet.Name = name
	return nil
}
