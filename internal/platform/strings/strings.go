// Package strings provides small string helpers shared by the cleaning and
// aggregation paths
package strings

import std "strings"

// Trimmed returns s with surrounding whitespace removed
func Trimmed(s string) string { return std.TrimSpace(s) }

// IsBlank reports whether s is empty or whitespace-only
func IsBlank(s string) bool { return std.TrimSpace(s) == "" }

// MustString returns s if it has non whitespace content otherwise panics
// name is used in the panic message so you can tell what was missing
func MustString(s string, name string) string {
	if std.TrimSpace(s) == "" {
		panic(name + " is required")
	}
	return s
}

// EmptyToNil returns empty string if s is all whitespace, otherwise returns s
func EmptyToNil(s string) string {
	if std.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// IfEmpty returns def when vs has no elements, otherwise vs
func IfEmpty[T any](vs, def []T) []T {
	if len(vs) == 0 {
		return def
	}
	return vs
}
