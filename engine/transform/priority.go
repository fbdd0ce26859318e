package transform

// Priority labels shared by tasks and projects, lowest to highest.
var PriorityLabels = []string{
	"Lowest", "Very Low", "Lower", "Medium", "Higher", "Very High", "Highest",
}

const defaultPriority = 500

// PriorityLabel maps the source's 0..1000 priority integer onto the seven
// picklist labels. The mapping is total: out-of-range values clamp to the
// boundary labels. Absent priorities default to 500 (Medium).
func PriorityLabel(priority *int) string {
	p := defaultPriority
	if priority != nil {
		p = *priority
	}
	switch {
	case p >= 1000:
		return "Highest"
	case p >= 800:
		return "Very High"
	case p >= 600:
		return "Higher"
	case p >= 500:
		return "Medium"
	case p >= 400:
		return "Lower"
	case p >= 200:
		return "Very Low"
	default:
		return "Lowest"
	}
}

// TaskStatus derives the status picklist value from percent complete:
// 0 is Not Started, 100 is Complete, anything between is In Progress.
// Absent percentages count as not started.
func TaskStatus(percentComplete *int) string {
	if percentComplete == nil || *percentComplete <= 0 {
		return "Not Started"
	}
	if *percentComplete >= 100 {
		return "Complete"
	}
	return "In Progress"
}
