// Package transform holds the pure mapping layer: source entities in, row
// and column specifications out. Nothing here performs I/O.
package transform

import (
	"strings"
	"unicode"
)

const maxNameLength = 100

// forbidden are the characters the target rejects in workspace and sheet
// names.
const forbidden = `/\:*?"<>|`

// SanitizeName makes a source name safe for workspaces and sheets:
// forbidden characters become '-', runs of '-' collapse, surrounding space
// and '-' are stripped, and names over 100 characters truncate with "...".
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(forbidden, r) {
			b.WriteRune('-')
		} else {
			b.WriteRune(r)
		}
	}
	sanitized := collapseDashes(b.String())
	sanitized = strings.Trim(sanitized, " -")
	if len(sanitized) > maxNameLength {
		sanitized = strings.TrimRight(sanitized[:maxNameLength], " -") + "..."
	}
	return sanitized
}

func collapseDashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevDash := false
	for _, r := range s {
		if r == '-' {
			if prevDash {
				continue
			}
			prevDash = true
		} else {
			prevDash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ProjectPrefix derives the 3-4 uppercase letter auto-number prefix from a
// project name: one initial per word when at least three words exist,
// otherwise initials padded with letters from the first word. Empty input
// falls back to "PRJ".
func ProjectPrefix(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return "PRJ"
	}
	var initials []rune
	for _, w := range words {
		initials = append(initials, unicode.ToUpper(firstLetter(w)))
	}
	if len(initials) >= 3 {
		if len(initials) > 4 {
			initials = initials[:4]
		}
		return string(initials)
	}
	// Too few words: pad with further letters from the first word.
	prefix := initials
	for _, r := range []rune(words[0])[1:] {
		if len(prefix) >= 4 {
			break
		}
		if unicode.IsLetter(r) {
			prefix = append(prefix, unicode.ToUpper(r))
		}
	}
	if len(prefix) < 3 {
		return "PRJ"
	}
	return string(prefix)
}

func splitWords(name string) []string {
	fields := strings.Fields(name)
	words := fields[:0]
	for _, f := range fields {
		if firstLetter(f) != 0 {
			words = append(words, f)
		}
	}
	return words
}

func firstLetter(word string) rune {
	for _, r := range word {
		if unicode.IsLetter(r) {
			return r
		}
	}
	return 0
}

// expandInternalName turns an internal field name like
// "Custom_RiskLevel2Assessment" into "Risk Level 2 Assessment" by splitting
// on camel-case and digit boundaries.
func expandInternalName(internal string) string {
	s := strings.TrimPrefix(internal, "Custom_")
	s = strings.ReplaceAll(s, "_", " ")
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			upperBoundary := unicode.IsUpper(r) && !unicode.IsUpper(prev) && prev != ' '
			digitBoundary := (unicode.IsDigit(r) && unicode.IsLetter(prev)) ||
				(unicode.IsLetter(r) && unicode.IsDigit(prev))
			if upperBoundary || digitBoundary {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
