// Package target is a thin typed wrapper over the Smartsheet REST surface:
// workspaces, sheets, columns and rows, with batching, rate limiting and
// retry built in.
package target

import (
	"github.com/sheetbridge/sheetbridge/engine/core"
)

// -----------------------------------------------------------------------------
// Column model
// -----------------------------------------------------------------------------

type ColumnType string

const (
	ColumnTextNumber       ColumnType = "TEXT_NUMBER"
	ColumnDate             ColumnType = "DATE"
	ColumnDateTime         ColumnType = "DATETIME"
	ColumnCheckbox         ColumnType = "CHECKBOX"
	ColumnContactList      ColumnType = "CONTACT_LIST"
	ColumnMultiContactList ColumnType = "MULTI_CONTACT_LIST"
	ColumnPicklist         ColumnType = "PICKLIST"
	ColumnMultiPicklist    ColumnType = "MULTI_PICKLIST"
	ColumnPredecessor      ColumnType = "PREDECESSOR"
	ColumnDuration         ColumnType = "DURATION"
	ColumnAutoNumber       ColumnType = "AUTO_NUMBER"
	ColumnCreatedDate      ColumnType = "CREATED_DATE"
	ColumnModifiedDate     ColumnType = "MODIFIED_DATE"
	ColumnCreatedBy        ColumnType = "CREATED_BY"
	ColumnModifiedBy       ColumnType = "MODIFIED_BY"
)

func (c ColumnType) String() string {
	return string(c)
}

// AutoNumberFormat defines the readable ID scheme for AUTO_NUMBER columns.
type AutoNumberFormat struct {
	Prefix string `json:"prefix,omitempty"`
	Fill   string `json:"fill,omitempty"`
}

// SheetColumnRef points a picklist column at the column of a reference sheet
// that supplies its options.
type SheetColumnRef struct {
	SheetID  int64 `json:"sheetId"`
	ColumnID int64 `json:"columnId"`
}

// Column is both the creation spec and the read-back shape for a sheet
// column. Index is a pointer so a deliberate 0 survives omitempty semantics.
type Column struct {
	ID               int64             `json:"id,omitempty"`
	Title            string            `json:"title"`
	Type             ColumnType        `json:"type"`
	Primary          bool              `json:"primary,omitempty"`
	Index            *int              `json:"index,omitempty"`
	Hidden           bool              `json:"hidden,omitempty"`
	Options          []string          `json:"options,omitempty"`
	Validation       bool              `json:"validation,omitempty"`
	Format           string            `json:"format,omitempty"`
	AutoNumberFormat *AutoNumberFormat `json:"autoNumberFormat,omitempty"`
	SourceRef        *SheetColumnRef   `json:"sourceRef,omitempty"`
}

// IndexAt returns a copy of the column with the given insertion index.
func (c Column) IndexAt(i int) Column {
	idx := i
	c.Index = &idx
	return c
}

// FormatCurrency is the column format applied to rate and cost columns.
const FormatCurrency = ",,,,,,,,,,,13,2,1,2,,"

// -----------------------------------------------------------------------------
// Cell and row model
// -----------------------------------------------------------------------------

const (
	ObjectTypeMultiContact  = "MULTI_CONTACT"
	ObjectTypeMultiPicklist = "MULTI_PICKLIST"
)

// ObjectValue carries contact objects or multi-value containers.
type ObjectValue struct {
	ObjectType string `json:"objectType"`
	Values     []any  `json:"values"`
}

// MultiContact builds the object value for a MULTI_CONTACT_LIST cell.
func MultiContact(contacts []core.Contact) *ObjectValue {
	values := make([]any, 0, len(contacts))
	for _, c := range contacts {
		if c.IsZero() {
			continue
		}
		values = append(values, c)
	}
	if len(values) == 0 {
		return nil
	}
	return &ObjectValue{ObjectType: ObjectTypeMultiContact, Values: values}
}

// MultiPicklist builds the object value for a MULTI_PICKLIST cell.
func MultiPicklist(values []string) *ObjectValue {
	if len(values) == 0 {
		return nil
	}
	anys := make([]any, len(values))
	for i, v := range values {
		anys[i] = v
	}
	return &ObjectValue{ObjectType: ObjectTypeMultiPicklist, Values: anys}
}

// Cell is a single sheet cell. Strict=false requests lenient validation so
// writes tolerate read-after-write lag on freshly populated picklists.
type Cell struct {
	ColumnID    int64        `json:"columnId"`
	Value       any          `json:"value,omitempty"`
	ObjectValue *ObjectValue `json:"objectValue,omitempty"`
	Strict      *bool        `json:"strict,omitempty"`
}

// Lenient marks the cell for lenient validation.
func (c Cell) Lenient() Cell {
	strict := false
	c.Strict = &strict
	return c
}

// Row is both the creation spec and read-back shape for a sheet row.
type Row struct {
	ID       int64  `json:"id,omitempty"`
	ParentID int64  `json:"parentId,omitempty"`
	RowNum   int    `json:"rowNumber,omitempty"`
	ToBottom bool   `json:"toBottom,omitempty"`
	Cells    []Cell `json:"cells,omitempty"`
}

// Cell returns the row cell for the given column, if any.
func (r Row) Cell(columnID int64) (Cell, bool) {
	for _, c := range r.Cells {
		if c.ColumnID == columnID {
			return c, true
		}
	}
	return Cell{}, false
}

// -----------------------------------------------------------------------------
// Sheet and workspace model
// -----------------------------------------------------------------------------

type Sheet struct {
	ID        int64    `json:"id,omitempty"`
	Name      string   `json:"name"`
	Permalink string   `json:"permalink,omitempty"`
	Columns   []Column `json:"columns,omitempty"`
	Rows      []Row    `json:"rows,omitempty"`
}

// Column returns the sheet column with the given title, if any.
func (s *Sheet) Column(title string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Title == title {
			return c, true
		}
	}
	return Column{}, false
}

// PrimaryColumn returns the sheet's primary column.
func (s *Sheet) PrimaryColumn() (Column, bool) {
	for _, c := range s.Columns {
		if c.Primary {
			return c, true
		}
	}
	return Column{}, false
}

// SheetSpec is the creation payload for a new sheet.
type SheetSpec struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

type Workspace struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink,omitempty"`
}

// ChildKind distinguishes workspace children.
type ChildKind string

const (
	ChildSheet  ChildKind = "sheet"
	ChildFolder ChildKind = "folder"
	ChildReport ChildKind = "report"
)

// WorkspaceChild is one entry of a workspace listing.
type WorkspaceChild struct {
	ID   int64     `json:"id"`
	Name string    `json:"name"`
	Kind ChildKind `json:"kind"`
}
