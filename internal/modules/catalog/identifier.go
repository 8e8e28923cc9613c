package catalog

import (
	"strings"
	"unicode"
)

// ResolveID picks the store key: gbid, then template, then the slugified name.
func ResolveID(gbid, template, name string) string {
	if id := strings.TrimSpace(gbid); id != "" {
		return id
	}
	if id := strings.TrimSpace(template); id != "" {
		return id
	}
	return Slugify(name)
}

// Slugify lowercases s and replaces each whitespace run with "_".
// "Rigid Coupling" -> "rigid_coupling".
func Slugify(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(s)), unicode.IsSpace)
	return strings.Join(fields, "_")
}
