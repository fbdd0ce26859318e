package transform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sheetbridge/sheetbridge/engine/core"
	"github.com/sheetbridge/sheetbridge/engine/source"
	"github.com/sheetbridge/sheetbridge/engine/target"
)

const (
	customColumnPrefix = "Custom - "
	maxColumnTitle     = 50
)

// CustomFieldName returns the human name for a field: the display name when
// present, otherwise the internal name expanded by camel- and digit-splitting.
func CustomFieldName(f *source.CustomField) string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return expandInternalName(f.InternalName)
}

// CustomColumnTitle builds the sanitized, length-capped "Custom - <name>"
// column title.
func CustomColumnTitle(f *source.CustomField) string {
	title := customColumnPrefix + SanitizeName(CustomFieldName(f))
	if len(title) > maxColumnTitle {
		title = strings.TrimRight(title[:maxColumnTitle], " -")
	}
	return title
}

// LookupSheetName names the PMO Standards reference sheet backing a lookup
// field, namespaced by the entity kind it applies to.
func LookupSheetName(kind core.EntityKind, f *source.CustomField) string {
	return fmt.Sprintf("%s - %s", kind, SanitizeName(CustomFieldName(f)))
}

// CustomFieldColumn maps a custom field's type code to the target column
// spec. Lookup-backed fields become picklists (multi when the field is
// multi-select); their options are wired to PMO Standards at configure
// time, not inlined here. Formula fields materialize as text.
func CustomFieldColumn(f *source.CustomField) target.Column {
	col := target.Column{Title: CustomColumnTitle(f)}
	switch {
	case f.HasLookup():
		if f.IsMultiSelect {
			col.Type = target.ColumnMultiPicklist
		} else {
			col.Type = target.ColumnPicklist
		}
	case f.HasFormula():
		col.Type = target.ColumnTextNumber
	default:
		switch f.FieldType {
		case source.FieldTypeDate, source.FieldTypeStart, source.FieldTypeFinish:
			col.Type = target.ColumnDate
		case source.FieldTypeFlag:
			col.Type = target.ColumnCheckbox
		case source.FieldTypeCost:
			col.Type = target.ColumnTextNumber
			col.Format = target.FormatCurrency
		case source.FieldTypeNumber, source.FieldTypeDuration:
			col.Type = target.ColumnTextNumber
		default:
			col.Type = target.ColumnTextNumber
		}
	}
	return col
}

// DiscoverCustomFields returns the schema fields that at least one entity
// in this project actually populates, deduplicated by field ID. Columns
// whose every value is empty are omitted entirely.
func DiscoverCustomFields(fields []source.CustomField, entityValues []map[string]any) []source.CustomField {
	seen := make(map[string]bool)
	var discovered []source.CustomField
	for _, f := range fields {
		if seen[f.ID] {
			continue
		}
		for _, values := range entityValues {
			if isPresent(values[f.InternalName]) {
				seen[f.ID] = true
				discovered = append(discovered, f)
				break
			}
		}
	}
	return discovered
}

func isPresent(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// ResolvedValue is the outcome of mapping one entity's custom-field value
// onto a cell.
type ResolvedValue struct {
	Value       any
	ObjectValue *target.ObjectValue
	Warnings    []string
}

// ResolveCustomValue maps a raw entity value onto its cell shape. Lookup
// entry IDs are replaced by display values; unresolved entries pass through
// unchanged with a warning. Multi-select lookups become MULTI_PICKLIST
// object values.
func ResolveCustomValue(f *source.CustomField, raw any) ResolvedValue {
	if !isPresent(raw) {
		return ResolvedValue{}
	}
	if f.HasLookup() {
		return resolveLookup(f, raw)
	}
	switch f.FieldType {
	case source.FieldTypeDate, source.FieldTypeStart, source.FieldTypeFinish:
		if s, ok := raw.(string); ok {
			if formatted, err := FormatDate(s); err == nil {
				return ResolvedValue{Value: formatted}
			}
			return ResolvedValue{Value: s, Warnings: []string{
				fmt.Sprintf("field %s: unparseable date %q kept verbatim", f.InternalName, s)}}
		}
	case source.FieldTypeFlag:
		switch t := raw.(type) {
		case bool:
			return ResolvedValue{Value: t}
		case string:
			return ResolvedValue{Value: strings.EqualFold(t, "true") || t == "1"}
		}
	case source.FieldTypeCost:
		if n, ok := raw.(float64); ok {
			return ResolvedValue{Value: CurrencyValue(n)}
		}
	case source.FieldTypeDuration:
		if s, ok := raw.(string); ok {
			if text, err := DurationHoursText(s); err == nil {
				return ResolvedValue{Value: text}
			}
		}
	}
	return ResolvedValue{Value: raw}
}

func resolveLookup(f *source.CustomField, raw any) ResolvedValue {
	lookup := f.LookupMap()
	resolveOne := func(id string) (string, bool) {
		if display, ok := lookup[id]; ok {
			return display, true
		}
		return id, false
	}

	// Multi-select values arrive as {"results": [entryId, ...]}.
	if m, ok := raw.(map[string]any); ok {
		results, _ := m["results"].([]any)
		var values []string
		var warnings []string
		for _, r := range results {
			id, _ := r.(string)
			if id == "" {
				continue
			}
			display, resolved := resolveOne(id)
			if !resolved {
				warnings = append(warnings,
					fmt.Sprintf("field %s: lookup entry %q has no display value, kept verbatim", f.InternalName, id))
			}
			values = append(values, display)
		}
		sort.Strings(values)
		if f.IsMultiSelect {
			return ResolvedValue{ObjectValue: target.MultiPicklist(values), Warnings: warnings}
		}
		return ResolvedValue{Value: strings.Join(values, ", "), Warnings: warnings}
	}

	if id, ok := raw.(string); ok {
		display, resolved := resolveOne(id)
		var warnings []string
		if !resolved {
			warnings = append(warnings,
				fmt.Sprintf("field %s: lookup entry %q has no display value, kept verbatim", f.InternalName, id))
		}
		if f.IsMultiSelect {
			return ResolvedValue{ObjectValue: target.MultiPicklist([]string{display}), Warnings: warnings}
		}
		return ResolvedValue{Value: display, Warnings: warnings}
	}
	return ResolvedValue{Value: raw}
}

// LookupDisplayValues returns the sorted display values of a lookup field,
// the value set union-merged into its PMO Standards reference sheet.
func LookupDisplayValues(f *source.CustomField) []string {
	values := make([]string, 0, len(f.LookupEntries))
	for _, e := range f.LookupEntries {
		if e.Value != "" {
			values = append(values, e.Value)
		}
	}
	sort.Strings(values)
	return values
}
