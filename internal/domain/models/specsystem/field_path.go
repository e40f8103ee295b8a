package specsystem

import (
	"fmt"
	"strconv"
	"strings"

	"specboard/internal/config"
)

// PathSegment is one step of a field path: an object key or a list index.
type PathSegment struct {
	Key   string
	Index int
	IsIdx bool
}

func (s PathSegment) String() string {
	if s.IsIdx {
		return strconv.Itoa(s.Index)
	}
	return s.Key
}

// FieldPath addresses a field inside a feature spec's content,
// e.g. "featureName" or "useCases.0.context".
type FieldPath struct {
	raw      string
	Segments []PathSegment
}

// String returns the dotted form the path was parsed from.
func (p FieldPath) String() string { return p.raw }

// Root returns the first segment's key.
func (p FieldPath) Root() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0].Key
}

// ParseFieldPath splits a dotted path into segments. Purely numeric segments
// are list indices. The first segment must be a key.
//
// Examples:
//   - "featureName" → [featureName]
//   - "userGoals.0.description" → [userGoals, #0, description]
func ParseFieldPath(path string) (FieldPath, error) {
	if path == "" {
		return FieldPath{}, fmt.Errorf("field path cannot be empty")
	}
	if len(path) > config.MaxFieldPathLength {
		return FieldPath{}, fmt.Errorf("field path exceeds maximum length of %d", config.MaxFieldPathLength)
	}
	if strings.HasPrefix(path, ".") || strings.HasSuffix(path, ".") {
		return FieldPath{}, fmt.Errorf("field path %q cannot start or end with '.'", path)
	}

	parts := strings.Split(path, ".")
	if len(parts) > config.MaxFieldPathDepth {
		return FieldPath{}, fmt.Errorf("field path %q exceeds maximum depth of %d", path, config.MaxFieldPathDepth)
	}

	segments := make([]PathSegment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return FieldPath{}, fmt.Errorf("field path %q contains empty segment at position %d", path, i)
		}
		if strings.TrimSpace(part) != part {
			return FieldPath{}, fmt.Errorf("field path segment %q has surrounding whitespace", part)
		}

		if isDigits(part) {
			if i == 0 {
				return FieldPath{}, fmt.Errorf("field path %q must start with a field name", path)
			}
			idx, err := strconv.Atoi(part)
			if err != nil || idx > config.MaxListIndex {
				return FieldPath{}, fmt.Errorf("field path index %q out of range (max %d)", part, config.MaxListIndex)
			}
			segments = append(segments, PathSegment{Index: idx, IsIdx: true})
			continue
		}

		segments = append(segments, PathSegment{Key: part})
	}

	return FieldPath{raw: path, Segments: segments}, nil
}

// MustParseFieldPath is ParseFieldPath for literals known to be valid.
func MustParseFieldPath(path string) FieldPath {
	p, err := ParseFieldPath(path)
	if err != nil {
		panic(err)
	}
	return p
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
