package fieldschema

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"specboard/internal/domain/models/specsystem"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry resolves field paths against the declared feature spec schema.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	schema *DocumentSchema
	root   *Field
}

// NewRegistry loads the embedded feature spec schema.
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile("config/feature_spec.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read feature_spec.yaml: %w", err)
	}
	return NewRegistryFromYAML(data)
}

// NewRegistryFromYAML builds a registry from a schema document.
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var schema DocumentSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	if len(schema.Fields) == 0 {
		return nil, fmt.Errorf("schema %q declares no fields", schema.Document)
	}

	root := &Field{Kind: KindObject, Fields: schema.Fields}
	for name, f := range schema.Fields {
		if err := f.check(name); err != nil {
			return nil, err
		}
	}

	return &Registry{schema: &schema, root: root}, nil
}

// Schema returns the loaded schema.
func (r *Registry) Schema() *DocumentSchema {
	return r.schema
}

// RootFields returns the declared top-level field names, sorted.
func (r *Registry) RootFields() []string {
	names := make([]string, 0, len(r.schema.Fields))
	for name := range r.schema.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind returns the declared kind of the field a path addresses.
// A path that stops at a list index addresses one element: a record for
// lists, a scalar for string lists.
func (r *Registry) Kind(path specsystem.FieldPath) (Kind, error) {
	node, err := r.resolve(path)
	if err != nil {
		return "", err
	}
	return node.Kind, nil
}

// Validate returns an error if path does not name a declared field.
func (r *Registry) Validate(path specsystem.FieldPath) error {
	_, err := r.resolve(path)
	return err
}

func (r *Registry) resolve(path specsystem.FieldPath) (*Field, error) {
	if len(path.Segments) == 0 {
		return nil, fmt.Errorf("empty field path")
	}

	cursor := r.root
	for i, seg := range path.Segments {
		switch cursor.Kind {
		case KindObject:
			if seg.IsIdx {
				return nil, fmt.Errorf("field path %q: expected a field name at position %d, got index %d", path, i, seg.Index)
			}
			next, ok := cursor.Fields[seg.Key]
			if !ok {
				return nil, fmt.Errorf("field path %q: unknown field %q", path, seg.Key)
			}
			cursor = next

		case KindList:
			if !seg.IsIdx {
				return nil, fmt.Errorf("field path %q: expected a list index at position %d, got %q", path, i, seg.Key)
			}
			cursor = &Field{Kind: KindObject, Fields: cursor.Fields}

		case KindStringList:
			if !seg.IsIdx {
				return nil, fmt.Errorf("field path %q: expected a list index at position %d, got %q", path, i, seg.Key)
			}
			cursor = &Field{Kind: KindString}

		default:
			return nil, fmt.Errorf("field path %q: %q is a scalar and has no subfields", path, path.Segments[i-1])
		}
	}

	return cursor, nil
}
