package helpers

import "strings"

// NullIfEmpty returns nil for a blank string so optional text columns are
// stored as NULL rather than "".
func NullIfEmpty(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
