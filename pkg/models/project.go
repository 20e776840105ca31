package models

import (
	"fmt"
	"regexp"
	"strings"
)

// projectRefPattern accepts the project numbers eVIEW displays in its
// project list: alphanumeric with the usual separator characters.
var projectRefPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\- ]*$`)

// ProjectReference is a validated project identifier. Immutable once
// constructed; build one with NewProjectReference.
type ProjectReference string

// NewProjectReference validates and normalizes a raw project identifier.
func NewProjectReference(raw string) (ProjectReference, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("project reference is empty")
	}
	if !projectRefPattern.MatchString(trimmed) {
		return "", fmt.Errorf("project reference %q contains invalid characters", trimmed)
	}
	return ProjectReference(trimmed), nil
}

// String returns the identifier string.
func (p ProjectReference) String() string {
	return string(p)
}
