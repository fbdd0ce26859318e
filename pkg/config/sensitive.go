package config

// SensitiveString holds a credential that must never appear in logs or
// formatted output. Use Value() at the single point of use.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString keeps %#v output redacted as well.
func (s SensitiveString) GoString() string {
	return s.String()
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}
