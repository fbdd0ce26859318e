package transform

import (
	"fmt"
	"strings"
)

// Relation is one predecessor relationship of a task.
type Relation struct {
	PredecessorID string
	Type          string // FS, SS, FF or SF
	Lag           string // e.g. "+2d", "-1d", empty when none
}

var relationTypes = map[string]bool{"FS": true, "SS": true, "FF": true, "SF": true}

// ParsePredecessors decodes the serialized relations the extractor carries:
// entries separated by ';' or ',', each "<guid>:<type>[:<lag>]". Entries
// that do not parse are dropped; the tenant's feed does not expose
// relations uniformly, so absence is tolerated.
func ParsePredecessors(serialized string) []Relation {
	if strings.TrimSpace(serialized) == "" {
		return nil
	}
	entries := strings.FieldsFunc(serialized, func(r rune) bool {
		return r == ';' || r == ','
	})
	var relations []Relation
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 {
			continue
		}
		relType := strings.ToUpper(strings.TrimSpace(parts[1]))
		if !relationTypes[relType] {
			continue
		}
		rel := Relation{PredecessorID: strings.TrimSpace(parts[0]), Type: relType}
		if len(parts) > 2 {
			rel.Lag = strings.TrimSpace(parts[2])
		}
		if rel.PredecessorID == "" {
			continue
		}
		relations = append(relations, rel)
	}
	return relations
}

// FormatPredecessors renders relations as the comma-separated
// "<row><type><lag>" string (e.g. "5FS", "3SS+2d") using the task→row
// number map built during loading. Unknown predecessor IDs are returned as
// warnings, not failures.
func FormatPredecessors(relations []Relation, rowNumberByTaskID map[string]int) (string, []string) {
	var parts []string
	var warnings []string
	for _, rel := range relations {
		rowNum, ok := rowNumberByTaskID[rel.PredecessorID]
		if !ok {
			warnings = append(warnings,
				fmt.Sprintf("predecessor %s not found among loaded tasks, dropped", rel.PredecessorID))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d%s%s", rowNum, rel.Type, rel.Lag))
	}
	return strings.Join(parts, ","), warnings
}
