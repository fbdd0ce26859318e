package transform

import (
	"fmt"
	"sort"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/target"
)

// Per-task assignment columns, created on demand when the project has
// assignments of the corresponding resource type.
const (
	ColumnTeamMembers = "Team Members"
	ColumnEquipment   = "Equipment"
	ColumnCostCenters = "Cost Centers"
)

// AssignmentCells is the per-task collapse of that task's assignments,
// bucketed by the assigned resource's type.
type AssignmentCells struct {
	TeamMembers []core.Contact
	Equipment   []string
	CostCenters []string
}

// AssignmentGroups is the project-wide assignment discovery result: which
// of the three columns the task sheet needs, their option sets, and the
// per-task cell payloads.
type AssignmentGroups struct {
	CellsByTask map[string]*AssignmentCells

	hasWork      bool
	materialSet  map[string]bool
	costSet      map[string]bool
	Warnings     []string
}

// GroupAssignments buckets a project's assignments by resource type. Work
// resources become contacts, material and cost resources become picklist
// values; an assignment referencing an unknown resource degrades to a
// warning.
func GroupAssignments(assignments []source.Assignment, resources []source.Resource) *AssignmentGroups {
	byID := make(map[string]*source.Resource, len(resources))
	for i := range resources {
		byID[resources[i].ID] = &resources[i]
	}
	groups := &AssignmentGroups{
		CellsByTask: make(map[string]*AssignmentCells),
		materialSet: make(map[string]bool),
		costSet:     make(map[string]bool),
	}
	for _, a := range assignments {
		res, ok := byID[a.ResourceID]
		if !ok {
			groups.Warnings = append(groups.Warnings,
				fmt.Sprintf("assignment %s references unknown resource %s, skipped", a.ID, a.ResourceID))
			continue
		}
		cells := groups.CellsByTask[a.TaskID]
		if cells == nil {
			cells = &AssignmentCells{}
			groups.CellsByTask[a.TaskID] = cells
		}
		switch res.Type() {
		case source.ResourceWork:
			contact := res.Contact()
			if contact.IsZero() {
				groups.Warnings = append(groups.Warnings,
					fmt.Sprintf("work resource %s has neither name nor email, skipped", a.ResourceID))
				continue
			}
			groups.hasWork = true
			cells.TeamMembers = append(cells.TeamMembers, contact)
		case source.ResourceMaterial:
			if res.Name == "" {
				continue
			}
			groups.materialSet[res.Name] = true
			cells.Equipment = append(cells.Equipment, res.Name)
		case source.ResourceCost:
			if res.Name == "" {
				continue
			}
			groups.costSet[res.Name] = true
			cells.CostCenters = append(cells.CostCenters, res.Name)
		}
	}
	return groups
}

// EquipmentOptions returns the sorted material resource names discovered.
func (g *AssignmentGroups) EquipmentOptions() []string {
	return sortedKeys(g.materialSet)
}

// CostCenterOptions returns the sorted cost resource names discovered.
func (g *AssignmentGroups) CostCenterOptions() []string {
	return sortedKeys(g.costSet)
}

// ColumnSpecs returns the task-sheet columns this project's assignments
// demand. The type choice is the load-bearing rule: people are contact
// columns, everything else is a picklist.
func (g *AssignmentGroups) ColumnSpecs() []target.Column {
	var specs []target.Column
	if g.hasWork {
		specs = append(specs, target.Column{
			Title: ColumnTeamMembers,
			Type:  target.ColumnMultiContactList,
		})
	}
	if len(g.materialSet) > 0 {
		specs = append(specs, target.Column{
			Title:   ColumnEquipment,
			Type:    target.ColumnMultiPicklist,
			Options: g.EquipmentOptions(),
		})
	}
	if len(g.costSet) > 0 {
		specs = append(specs, target.Column{
			Title:   ColumnCostCenters,
			Type:    target.ColumnMultiPicklist,
			Options: g.CostCenterOptions(),
		})
	}
	return specs
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
