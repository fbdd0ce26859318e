package core

// -----------------------------------------------------------------------------
// Entity kinds
// -----------------------------------------------------------------------------

// EntityKind names the source entity families. It namespaces reference
// sheets ("Task - Priority") and custom-field discovery.
type EntityKind string

const (
	EntityProject  EntityKind = "Project"
	EntityTask     EntityKind = "Task"
	EntityResource EntityKind = "Resource"
)

func (e EntityKind) String() string {
	return string(e)
}

// -----------------------------------------------------------------------------
// Contact
// -----------------------------------------------------------------------------

// Contact is a person reference written into contact-typed cells. A contact
// with neither name nor email is meaningless and must be dropped by callers.
type Contact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// IsZero reports whether the contact carries no information.
func (c Contact) IsZero() bool {
	return c.Name == "" && c.Email == ""
}
