package specsystem

import (
	"fmt"

	"specboard/internal/domain/models"
	"specboard/internal/domain/models/specsystem"
)

// ApplyAtPath returns a copy of doc with value written at path.
//
// Missing intermediate containers are created: an object for a key segment,
// a list for an index segment. Lists are padded with nulls up to the index.
// An empty string, zero, false or null in a container position counts as
// missing and is replaced. An index segment on an existing object addresses
// the key of the same name. Any other scalar in the way is an error. The
// value is not checked against the document schema. doc itself is never
// modified, and applying the same path and value twice gives the same
// document as once.
func ApplyAtPath(doc models.JSONMap, path specsystem.FieldPath, value interface{}) (models.JSONMap, error) {
	if len(path.Segments) == 0 {
		return nil, fmt.Errorf("empty field path")
	}

	root, err := NormalizeValue(map[string]interface{}(doc))
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = map[string]interface{}{}
	}
	normalized, err := NormalizeValue(value)
	if err != nil {
		return nil, err
	}

	updated, err := setIn(root, path.Segments, normalized, path)
	if err != nil {
		return nil, err
	}
	return models.JSONMap(updated.(map[string]interface{})), nil
}

func setIn(node interface{}, segs []specsystem.PathSegment, value interface{}, path specsystem.FieldPath) (interface{}, error) {
	if len(segs) == 0 {
		return value, nil
	}
	seg := segs[0]

	if obj, ok := node.(map[string]interface{}); ok {
		key := seg.String()
		child, err := setIn(obj[key], segs[1:], value, path)
		if err != nil {
			return nil, err
		}
		obj[key] = child
		return obj, nil
	}

	if !isEmptyScalar(node) {
		if _, isList := node.([]interface{}); !isList || !seg.IsIdx {
			return nil, fmt.Errorf("field path %q: cannot set %q on %s", path, seg.String(), describe(node))
		}
	}

	if !seg.IsIdx {
		child, err := setIn(nil, segs[1:], value, path)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{seg.Key: child}, nil
	}

	list, _ := node.([]interface{})
	for len(list) <= seg.Index {
		list = append(list, nil)
	}
	child, err := setIn(list[seg.Index], segs[1:], value, path)
	if err != nil {
		return nil, err
	}
	list[seg.Index] = child
	return list, nil
}

// isEmptyScalar reports whether v is null or a scalar zero value.
func isEmptyScalar(v interface{}) bool {
	switch n := v.(type) {
	case nil:
		return true
	case string:
		return n == ""
	case float64:
		return n == 0
	case bool:
		return !n
	}
	return false
}

// GetAtPath returns the value at path and whether every segment resolved.
// On objects an index segment is looked up as a key.
func GetAtPath(doc models.JSONMap, path specsystem.FieldPath) (interface{}, bool) {
	var node interface{} = map[string]interface{}(doc)
	for _, seg := range path.Segments {
		if m, ok := node.(models.JSONMap); ok {
			node = map[string]interface{}(m)
		}
		switch n := node.(type) {
		case map[string]interface{}:
			v, ok := n[seg.String()]
			if !ok {
				return nil, false
			}
			node = v
		case []interface{}:
			if !seg.IsIdx || seg.Index >= len(n) {
				return nil, false
			}
			node = n[seg.Index]
		default:
			return nil, false
		}
	}
	return node, true
}

func describe(v interface{}) string {
	switch v.(type) {
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	case []interface{}:
		return "a list"
	case map[string]interface{}:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}
