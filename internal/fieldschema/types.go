package fieldschema

import "fmt"

// Kind is the declared shape of a field.
type Kind string

const (
	KindString     Kind = "string"
	KindObject     Kind = "object"
	KindList       Kind = "list"        // list of records
	KindStringList Kind = "string_list" // list of scalars
)

func (k Kind) valid() bool {
	switch k {
	case KindString, KindObject, KindList, KindStringList:
		return true
	}
	return false
}

// Field declares one field and, for objects and lists of records, its subfields.
type Field struct {
	Kind        Kind              `yaml:"kind" json:"kind"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      map[string]*Field `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// DocumentSchema is the root of a schema file.
type DocumentSchema struct {
	Document string            `yaml:"document" json:"document"`
	Version  int               `yaml:"version" json:"version"`
	Fields   map[string]*Field `yaml:"fields" json:"fields"`
}

// check validates kinds recursively so a bad schema fails at startup.
func (f *Field) check(path string) error {
	if f == nil {
		return fmt.Errorf("field %s has no definition", path)
	}
	if !f.Kind.valid() {
		return fmt.Errorf("field %s has unknown kind %q", path, f.Kind)
	}
	hasChildren := f.Kind == KindObject || f.Kind == KindList
	if hasChildren && len(f.Fields) == 0 {
		return fmt.Errorf("field %s of kind %s declares no fields", path, f.Kind)
	}
	if !hasChildren && len(f.Fields) > 0 {
		return fmt.Errorf("field %s of kind %s cannot declare fields", path, f.Kind)
	}
	for name, child := range f.Fields {
		if err := child.check(path + "." + name); err != nil {
			return err
		}
	}
	return nil
}
