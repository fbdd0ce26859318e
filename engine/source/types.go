// Package source reads Projects, Tasks, Resources, Assignments and
// custom-field metadata from the Project Online OData surface.
package source

import (
	"github.com/sheetbridge/sheetbridge/engine/core"
)

// -----------------------------------------------------------------------------
// Resource type (sum type driving assignment-column selection)
// -----------------------------------------------------------------------------

// ResourceType is the tagged dispatch key for assignment-column
// polymorphism: Work resources become contacts, Material and Cost resources
// become picklist values.
type ResourceType string

const (
	ResourceWork     ResourceType = "Work"
	ResourceMaterial ResourceType = "Material"
	ResourceCost     ResourceType = "Cost"
)

func (r ResourceType) String() string {
	return string(r)
}

// IsPerson reports whether assignments of this type map to contact columns.
func (r ResourceType) IsPerson() bool {
	return r == ResourceWork
}

// -----------------------------------------------------------------------------
// Entities (snapshot-read, immutable for the duration of a run)
// -----------------------------------------------------------------------------

// Project is one ProjectData Projects entity. Date and duration fields stay
// as the raw ISO-8601 strings the feed carries; parsing happens in the
// transform layer.
type Project struct {
	ID              string   `json:"ProjectId"`
	Name            string   `json:"ProjectName"`
	Description     string   `json:"ProjectDescription"`
	Owner           string   `json:"ProjectOwnerName"`
	OwnerEmail      string   `json:"ProjectOwnerEmail"`
	Start           string   `json:"ProjectStartDate"`
	Finish          string   `json:"ProjectFinishDate"`
	Status          string   `json:"ProjectStatus"`
	Type            string   `json:"ProjectType"`
	Priority        *int     `json:"ProjectPriority"`
	PercentComplete *float64 `json:"ProjectPercentCompleted"`
	CreatedAt       string   `json:"ProjectCreatedDate"`
	ModifiedAt      string   `json:"ProjectModifiedDate"`

	// CustomValues holds the Custom_<guid> properties of the payload.
	CustomValues map[string]any `json:"-"`
}

func (p *Project) setCustomValues(values map[string]any) { p.CustomValues = values }

// Task is one ProjectData Tasks entity.
type Task struct {
	ID              string `json:"TaskId"`
	ProjectID       string `json:"ProjectId"`
	ParentID        string `json:"ParentTaskId"`
	Name            string `json:"TaskName"`
	OutlineLevel    int    `json:"TaskOutlineLevel"`
	Index           int    `json:"TaskIndex"`
	Start           string `json:"TaskStartDate"`
	Finish          string `json:"TaskFinishDate"`
	Duration        string `json:"TaskDuration"`
	Work            string `json:"TaskWork"`
	ActualWork      string `json:"TaskActualWork"`
	PercentComplete *int   `json:"TaskPercentCompleted"`
	Priority        *int   `json:"TaskPriority"`
	IsMilestone     bool   `json:"TaskIsMilestone"`
	Notes           string `json:"TaskNotes"`
	ConstraintType  *int   `json:"TaskConstraintType"`
	ConstraintDate  string `json:"TaskConstraintDate"`
	Deadline        string `json:"TaskDeadline"`
	Predecessors    string `json:"TaskPredecessors"`
	CreatedAt       string `json:"TaskCreatedDate"`
	ModifiedAt      string `json:"TaskModifiedDate"`

	CustomValues map[string]any `json:"-"`
}

func (t *Task) setCustomValues(values map[string]any) { t.CustomValues = values }

// constraintNames maps the eight source constraint codes to their
// abbreviations, index == source code.
var constraintNames = [...]string{"ASAP", "ALAP", "SNET", "SNLT", "FNET", "FNLT", "MSO", "MFO"}

// ConstraintName returns the abbreviation for the task's constraint code,
// or empty when unset or out of range.
func (t *Task) ConstraintName() string {
	if t.ConstraintType == nil {
		return ""
	}
	code := *t.ConstraintType
	if code < 0 || code >= len(constraintNames) {
		return ""
	}
	return constraintNames[code]
}

// Resource is one ProjectData Resources entity.
type Resource struct {
	ID             string   `json:"ResourceId"`
	Name           string   `json:"ResourceName"`
	Email          string   `json:"ResourceEmailAddress"`
	TypeCode       int      `json:"ResourceType"`
	IsCostResource bool     `json:"ResourceIsCostResource"`
	MaxUnits       *float64 `json:"ResourceMaxUnits"`
	StandardRate   *float64 `json:"ResourceStandardRate"`
	OvertimeRate   *float64 `json:"ResourceOvertimeRate"`
	CostPerUse     *float64 `json:"ResourceCostPerUse"`
	Department     string   `json:"ResourceDepartment"`
	Code           string   `json:"ResourceCode"`
	IsActive       bool     `json:"ResourceIsActive"`
	IsGeneric      bool     `json:"ResourceIsGeneric"`
	CreatedAt      string   `json:"ResourceCreatedDate"`
	ModifiedAt     string   `json:"ResourceModifiedDate"`

	CustomValues map[string]any `json:"-"`
}

func (r *Resource) setCustomValues(values map[string]any) { r.CustomValues = values }

// Type folds the feed's type code and cost flag into the ResourceType sum.
// Code 1 is a work resource; cost resources carry a separate flag because
// the feed reports them as material.
func (r *Resource) Type() ResourceType {
	if r.IsCostResource {
		return ResourceCost
	}
	if r.TypeCode == 1 {
		return ResourceWork
	}
	return ResourceMaterial
}

// Contact returns the resource as a contact object for contact-typed cells.
func (r *Resource) Contact() core.Contact {
	return core.Contact{Name: r.Name, Email: r.Email}
}

// Assignment is one ProjectData Assignments entity.
type Assignment struct {
	ID                  string   `json:"AssignmentId"`
	TaskID              string   `json:"TaskId"`
	ResourceID          string   `json:"ResourceId"`
	ProjectID           string   `json:"ProjectId"`
	Work                string   `json:"AssignmentWork"`
	ActualWork          string   `json:"AssignmentActualWork"`
	Units               *float64 `json:"AssignmentUnits"`
	Cost                *float64 `json:"AssignmentCost"`
	Start               string   `json:"AssignmentStartDate"`
	Finish              string   `json:"AssignmentFinishDate"`
	PercentWorkComplete *int     `json:"AssignmentPercentWorkCompleted"`
	Notes               string   `json:"AssignmentNotes"`
}

// -----------------------------------------------------------------------------
// Custom field metadata
// -----------------------------------------------------------------------------

// Custom field type codes as published by the source.
const (
	FieldTypeCost     = 9
	FieldTypeDate     = 4
	FieldTypeDuration = 6
	FieldTypeFlag     = 17
	FieldTypeNumber   = 15
	FieldTypeText     = 21
	FieldTypeStart    = 28
	FieldTypeFinish   = 27
)

// LookupEntry is one value of a custom field's lookup table.
type LookupEntry struct {
	ID    string `json:"LookupEntryId"`
	Value string `json:"LookupValue"`
}

// CustomField is one CustomFields metadata entity.
type CustomField struct {
	ID            string        `json:"CustomFieldId"`
	InternalName  string        `json:"InternalName"`
	DisplayName   string        `json:"Name"`
	FieldType     int           `json:"FieldType"`
	IsMultiSelect bool          `json:"IsMultiValueEnabled"`
	IsMultiline   bool          `json:"IsMultilineText"`
	Formula       string        `json:"Formula"`
	EntityKind    string        `json:"EntityTypeName"`
	LookupEntries []LookupEntry `json:"LookupEntries"`
}

// HasLookup reports whether the field resolves values through a lookup table.
func (f *CustomField) HasLookup() bool {
	return len(f.LookupEntries) > 0
}

// HasFormula reports whether the field is formula-backed; its values are
// materialized as static cells and reported, never translated.
func (f *CustomField) HasFormula() bool {
	return f.Formula != ""
}

// LookupMap returns entryID → display value.
func (f *CustomField) LookupMap() map[string]string {
	if len(f.LookupEntries) == 0 {
		return nil
	}
	m := make(map[string]string, len(f.LookupEntries))
	for _, e := range f.LookupEntries {
		m[e.ID] = e.Value
	}
	return m
}
