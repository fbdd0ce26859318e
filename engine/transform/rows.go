package transform

import (
	"fmt"

	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/target"
)

// ColumnMap resolves column titles to their IDs for one sheet.
type ColumnMap map[string]int64

// NewColumnMap indexes a fetched sheet's columns by title.
func NewColumnMap(sheet *target.Sheet) ColumnMap {
	m := make(ColumnMap, len(sheet.Columns))
	for _, c := range sheet.Columns {
		m[c.Title] = c.ID
	}
	return m
}

// rowBuilder accumulates cells for one row, skipping columns the sheet does
// not carry and collecting warnings instead of failing the row.
type rowBuilder struct {
	columns  ColumnMap
	cells    []target.Cell
	warnings []string
}

func (b *rowBuilder) warnf(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

func (b *rowBuilder) add(title string, cell target.Cell) {
	id, ok := b.columns[title]
	if !ok {
		return
	}
	cell.ColumnID = id
	b.cells = append(b.cells, cell)
}

func (b *rowBuilder) value(title string, v any) {
	if v == nil {
		return
	}
	if s, ok := v.(string); ok && s == "" {
		return
	}
	b.add(title, target.Cell{Value: v})
}

// lenient writes a picklist or contact cell with strict validation off, so
// loading tolerates option sets the target has not finished propagating.
func (b *rowBuilder) lenient(title string, v any) {
	if s, ok := v.(string); ok && s == "" {
		return
	}
	b.add(title, target.Cell{Value: v}.Lenient())
}

func (b *rowBuilder) object(title string, ov *target.ObjectValue) {
	if ov == nil {
		return
	}
	b.add(title, target.Cell{ObjectValue: ov}.Lenient())
}

func (b *rowBuilder) date(title, raw, what string) {
	formatted, err := FormatDate(raw)
	if err != nil {
		b.warnf("%s: %v, cell skipped", what, err)
		return
	}
	b.value(title, formatted)
}

func (b *rowBuilder) custom(fields []source.CustomField, values map[string]any) {
	for i := range fields {
		f := &fields[i]
		resolved := ResolveCustomValue(f, values[f.InternalName])
		b.warnings = append(b.warnings, resolved.Warnings...)
		title := CustomColumnTitle(f)
		switch {
		case resolved.ObjectValue != nil:
			b.object(title, resolved.ObjectValue)
		case f.HasLookup():
			b.lenient(title, resolved.Value)
		case resolved.Value != nil:
			b.value(title, resolved.Value)
		}
	}
}

// TaskRow maps one task onto its sheet row. Predecessors are deliberately
// absent: they need the final row numbers and are written in a second pass.
// Parent linkage is likewise resolved by the loader from the hierarchy.
func TaskRow(
	node *TaskNode,
	assignments *AssignmentCells,
	fields []source.CustomField,
	columns ColumnMap,
) (target.Row, []string) {
	task := &node.Task
	b := &rowBuilder{columns: columns}
	b.value(ColumnTaskName, task.Name)
	b.value(ColumnProjectOnlineID, task.ID)
	b.lenient(ColumnStatus, TaskStatus(task.PercentComplete))
	b.lenient(ColumnPriority, PriorityLabel(task.Priority))
	b.date(ColumnStartDate, task.Start, "task start date")
	b.date(ColumnFinishDate, task.Finish, "task finish date")
	if task.Duration != "" {
		if days, err := DurationDays(task.Duration); err != nil {
			b.warnf("task duration: %v, cell skipped", err)
		} else {
			b.value(ColumnDurationDays, days)
		}
	}
	b.workCell(ColumnWork, task.Work, "task work")
	b.workCell(ColumnActualWork, task.ActualWork, "task actual work")
	if task.PercentComplete != nil {
		b.value(ColumnPercentDone, *task.PercentComplete)
	}
	b.value(ColumnIsMilestone, task.IsMilestone)
	b.lenient(ColumnConstraintType, task.ConstraintName())
	b.date(ColumnConstraintDate, task.ConstraintDate, "task constraint date")
	b.date(ColumnDeadline, task.Deadline, "task deadline")
	b.value(ColumnNotes, task.Notes)
	b.date(ColumnProjectOnlineCreated, task.CreatedAt, "task created date")
	b.date(ColumnProjectOnlineModifed, task.ModifiedAt, "task modified date")
	if assignments != nil {
		b.object(ColumnTeamMembers, target.MultiContact(assignments.TeamMembers))
		b.object(ColumnEquipment, target.MultiPicklist(assignments.Equipment))
		b.object(ColumnCostCenters, target.MultiPicklist(assignments.CostCenters))
	}
	b.custom(fields, task.CustomValues)
	return target.Row{ToBottom: true, Cells: b.cells}, b.warnings
}

func (b *rowBuilder) workCell(title, raw, what string) {
	if raw == "" {
		return
	}
	text, err := DurationHoursText(raw)
	if err != nil {
		b.warnf("%s: %v, cell skipped", what, err)
		return
	}
	b.value(title, text)
}

// ResourceRow maps one resource onto its sheet row.
func ResourceRow(res *source.Resource, fields []source.CustomField, columns ColumnMap) (target.Row, []string) {
	b := &rowBuilder{columns: columns}
	b.value(ColumnResourceName, res.Name)
	b.value(ColumnProjectOnlineID, res.ID)
	b.value(ColumnEmail, res.Email)
	b.lenient(ColumnResourceType, res.Type().String())
	b.lenient(ColumnDepartment, res.Department)
	b.value(ColumnResourceCode, res.Code)
	if res.MaxUnits != nil {
		b.value(ColumnMaxUnits, MaxUnitsPercent(*res.MaxUnits))
	}
	if res.StandardRate != nil {
		b.value(ColumnStandardRate, CurrencyValue(*res.StandardRate))
	}
	if res.OvertimeRate != nil {
		b.value(ColumnOvertimeRate, CurrencyValue(*res.OvertimeRate))
	}
	if res.CostPerUse != nil {
		b.value(ColumnCostPerUse, CurrencyValue(*res.CostPerUse))
	}
	b.value(ColumnIsActive, res.IsActive)
	b.value(ColumnIsGeneric, res.IsGeneric)
	b.date(ColumnProjectOnlineCreated, res.CreatedAt, "resource created date")
	b.date(ColumnProjectOnlineModifed, res.ModifiedAt, "resource modified date")
	b.custom(fields, res.CustomValues)
	return target.Row{ToBottom: true, Cells: b.cells}, b.warnings
}

// SummaryRows maps the project's attributes onto the Summary sheet's
// key-value rows. The Status, Priority and Owner rows additionally fill
// their typed columns so reference bindings and contact objects apply; the
// source timestamps ride on the first row.
func SummaryRows(p *source.Project, fields []source.CustomField, columns ColumnMap) ([]target.Row, []string) {
	var rows []target.Row
	var warnings []string

	keyValue := func(field string, build func(b *rowBuilder)) {
		b := &rowBuilder{columns: columns}
		b.value(ColumnSummaryField, field)
		build(b)
		warnings = append(warnings, b.warnings...)
		rows = append(rows, target.Row{ToBottom: true, Cells: b.cells})
	}

	keyValue("Project Name", func(b *rowBuilder) {
		b.value(ColumnSummaryValue, p.Name)
		b.value(ColumnProjectOnlineID, p.ID)
		b.date(ColumnProjectOnlineCreated, p.CreatedAt, "project created date")
		b.date(ColumnProjectOnlineModifed, p.ModifiedAt, "project modified date")
	})
	keyValue("Description", func(b *rowBuilder) {
		b.value(ColumnSummaryValue, p.Description)
	})
	keyValue("Owner", func(b *rowBuilder) {
		owner := OwnerContact(p.Owner, p.OwnerEmail)
		if owner.IsZero() {
			return
		}
		b.value(ColumnSummaryValue, owner.Name)
		cell := target.Cell{Value: owner.Email}
		if owner.Email == "" {
			cell.Value = owner.Name
		}
		b.add(ColumnSummaryOwner, cell.Lenient())
	})
	keyValue("Start Date", func(b *rowBuilder) {
		b.date(ColumnSummaryValue, p.Start, "project start date")
	})
	keyValue("Finish Date", func(b *rowBuilder) {
		b.date(ColumnSummaryValue, p.Finish, "project finish date")
	})
	keyValue("Status", func(b *rowBuilder) {
		b.value(ColumnSummaryValue, p.Status)
		b.lenient(ColumnStatus, p.Status)
	})
	keyValue("Priority", func(b *rowBuilder) {
		label := PriorityLabel(p.Priority)
		b.value(ColumnSummaryValue, label)
		b.lenient(ColumnPriority, label)
	})
	keyValue("% Complete", func(b *rowBuilder) {
		if p.PercentComplete != nil {
			b.value(ColumnSummaryValue, *p.PercentComplete)
		}
	})
	keyValue("Project Type", func(b *rowBuilder) {
		b.value(ColumnSummaryValue, p.Type)
	})

	// Project-level custom fields ride as extra key-value rows, one per
	// populated field.
	for i := range fields {
		f := &fields[i]
		resolved := ResolveCustomValue(f, p.CustomValues[f.InternalName])
		warnings = append(warnings, resolved.Warnings...)
		if resolved.Value == nil && resolved.ObjectValue == nil {
			continue
		}
		keyValue(CustomFieldName(f), func(b *rowBuilder) {
			if resolved.ObjectValue != nil {
				b.object(ColumnSummaryValue, resolved.ObjectValue)
				return
			}
			b.value(ColumnSummaryValue, resolved.Value)
		})
	}
	return rows, warnings
}

// PredecessorCell builds the second-pass Predecessors cell for a task row,
// rendering relations against the final row numbers.
func PredecessorCell(task *source.Task, rowNumberByTaskID map[string]int, columns ColumnMap) (target.Cell, bool, []string) {
	id, ok := columns[ColumnPredecessors]
	if !ok {
		return target.Cell{}, false, nil
	}
	relations := ParsePredecessors(task.Predecessors)
	if len(relations) == 0 {
		return target.Cell{}, false, nil
	}
	text, warnings := FormatPredecessors(relations, rowNumberByTaskID)
	if text == "" {
		return target.Cell{}, false, warnings
	}
	return target.Cell{ColumnID: id, Value: text}, true, warnings
}
