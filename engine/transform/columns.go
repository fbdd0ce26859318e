package transform

import (
	"github.com/sheetbridge/sheetbridge/engine/target"
)

// Shared column titles.
const (
	ColumnProjectOnlineID      = "Project Online ID"
	ColumnProjectOnlineCreated = "Project Online Created Date"
	ColumnProjectOnlineModifed = "Project Online Modified Date"
	ColumnCreatedDate          = "Created Date"
	ColumnModifiedDate         = "Modified Date"
	ColumnCreatedBy            = "Created By"
	ColumnModifiedBy           = "Modified By"
)

// Task sheet column titles.
const (
	ColumnTaskName       = "Task Name"
	ColumnTaskID         = "Task ID"
	ColumnStatus         = "Status"
	ColumnPriority       = "Priority"
	ColumnStartDate      = "Start Date"
	ColumnFinishDate     = "Finish Date"
	ColumnDurationDays   = "Duration"
	ColumnWork           = "Work"
	ColumnActualWork     = "Actual Work"
	ColumnPercentDone    = "% Complete"
	ColumnIsMilestone    = "Is Milestone"
	ColumnConstraintType = "Constraint Type"
	ColumnConstraintDate = "Constraint Date"
	ColumnDeadline       = "Deadline"
	ColumnPredecessors   = "Predecessors"
	ColumnNotes          = "Notes"
)

// Resource sheet column titles.
const (
	ColumnResourceName = "Resource Name"
	ColumnResourceID   = "Resource ID"
	ColumnEmail        = "Email"
	ColumnResourceType = "Type"
	ColumnDepartment   = "Department"
	ColumnResourceCode = "Code"
	ColumnMaxUnits     = "Max Units"
	ColumnStandardRate = "Standard Rate"
	ColumnOvertimeRate = "Overtime Rate"
	ColumnCostPerUse   = "Cost Per Use"
	ColumnIsActive     = "Is Active"
	ColumnIsGeneric    = "Is Generic"
)

// Summary sheet column titles.
const (
	ColumnSummaryField = "Field"
	ColumnSummaryValue = "Value"
	ColumnSummaryOwner = "Owner"
	ColumnProjectID    = "Project ID"
)

// dualDateColumns are carried by every sheet representing source entities:
// user-settable DATE columns with the source timestamps plus the
// system-owned created/modified columns reflecting target authorship.
func dualDateColumns() []target.Column {
	return []target.Column{
		{Title: ColumnProjectOnlineCreated, Type: target.ColumnDate},
		{Title: ColumnProjectOnlineModifed, Type: target.ColumnDate},
		{Title: ColumnCreatedDate, Type: target.ColumnCreatedDate},
		{Title: ColumnModifiedDate, Type: target.ColumnModifiedDate},
		{Title: ColumnCreatedBy, Type: target.ColumnCreatedBy},
		{Title: ColumnModifiedBy, Type: target.ColumnModifiedBy},
	}
}

// autoNumber builds the readable half of the dual-ID pattern.
func autoNumber(title, prefix string) target.Column {
	return target.Column{
		Title:            title,
		Type:             target.ColumnAutoNumber,
		AutoNumberFormat: &target.AutoNumberFormat{Prefix: prefix + "-", Fill: "0000"},
	}
}

// hiddenSourceID builds the hidden half of the dual-ID pattern: the source
// GUID, canonical key for upsert matching on reruns.
func hiddenSourceID() target.Column {
	return target.Column{Title: ColumnProjectOnlineID, Type: target.ColumnTextNumber, Hidden: true}
}

// TaskSheetColumns is the static skeleton of a project's Tasks sheet.
// Assignment and custom-field columns are discovered per project and added
// separately.
func TaskSheetColumns(projectPrefix string) []target.Column {
	cols := []target.Column{
		{Title: ColumnTaskName, Type: target.ColumnTextNumber, Primary: true},
		autoNumber(ColumnTaskID, projectPrefix),
		hiddenSourceID(),
		{Title: ColumnStatus, Type: target.ColumnPicklist},
		{Title: ColumnPriority, Type: target.ColumnPicklist},
		{Title: ColumnStartDate, Type: target.ColumnDate},
		{Title: ColumnFinishDate, Type: target.ColumnDate},
		{Title: ColumnDurationDays, Type: target.ColumnTextNumber},
		{Title: ColumnWork, Type: target.ColumnTextNumber},
		{Title: ColumnActualWork, Type: target.ColumnTextNumber},
		{Title: ColumnPercentDone, Type: target.ColumnTextNumber},
		{Title: ColumnIsMilestone, Type: target.ColumnCheckbox},
		{Title: ColumnConstraintType, Type: target.ColumnPicklist},
		{Title: ColumnConstraintDate, Type: target.ColumnDate},
		{Title: ColumnDeadline, Type: target.ColumnDate},
		{Title: ColumnPredecessors, Type: target.ColumnTextNumber},
		{Title: ColumnNotes, Type: target.ColumnTextNumber},
	}
	return append(cols, dualDateColumns()...)
}

// ResourceSheetColumns is the static skeleton of a project's Resources
// sheet.
func ResourceSheetColumns(projectPrefix string) []target.Column {
	cols := []target.Column{
		{Title: ColumnResourceName, Type: target.ColumnTextNumber, Primary: true},
		autoNumber(ColumnResourceID, projectPrefix),
		hiddenSourceID(),
		{Title: ColumnEmail, Type: target.ColumnTextNumber},
		{Title: ColumnResourceType, Type: target.ColumnPicklist},
		{Title: ColumnDepartment, Type: target.ColumnPicklist},
		{Title: ColumnResourceCode, Type: target.ColumnTextNumber},
		{Title: ColumnMaxUnits, Type: target.ColumnTextNumber},
		{Title: ColumnStandardRate, Type: target.ColumnTextNumber, Format: target.FormatCurrency},
		{Title: ColumnOvertimeRate, Type: target.ColumnTextNumber, Format: target.FormatCurrency},
		{Title: ColumnCostPerUse, Type: target.ColumnTextNumber, Format: target.FormatCurrency},
		{Title: ColumnIsActive, Type: target.ColumnCheckbox},
		{Title: ColumnIsGeneric, Type: target.ColumnCheckbox},
	}
	return append(cols, dualDateColumns()...)
}

// SummarySheetColumns is the skeleton of a project's Summary sheet. The
// sheet holds key-value rows; Status, Priority and Owner additionally get
// typed columns so picklist references and contact objects apply. The
// project-summary ID column uses the literal "Project" prefix.
func SummarySheetColumns() []target.Column {
	cols := []target.Column{
		{Title: ColumnSummaryField, Type: target.ColumnTextNumber, Primary: true},
		{Title: ColumnSummaryValue, Type: target.ColumnTextNumber},
		{Title: ColumnStatus, Type: target.ColumnPicklist},
		{Title: ColumnPriority, Type: target.ColumnPicklist},
		{Title: ColumnSummaryOwner, Type: target.ColumnContactList},
		autoNumber(ColumnProjectID, "Project"),
	}
	return append(cols, dualDateColumns()...)
}
