package fhir

import (
	"fmt"
	"strings"
)

// FormatReference builds a relative reference such as "Questionnaire/abc".
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// FormatCanonical builds a versioned canonical reference "Type/id|version".
// An empty version yields the plain reference.
func FormatCanonical(resourceType, id, version string) string {
	ref := FormatReference(resourceType, id)
	if version == "" {
		return ref
	}
	return ref + "|" + version
}

// ParseCanonical splits a canonical reference into the id (the segment after
// the last "/") and the optional "|version" suffix. Plain ids without a
// resource type prefix are returned as-is.
func ParseCanonical(ref string) (id, version string) {
	base := ref
	if i := strings.Index(ref, "|"); i >= 0 {
		base = ref[:i]
		version = ref[i+1:]
	}
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return base, version
}
