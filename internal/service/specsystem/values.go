package specsystem

import (
	"encoding/json"
	"fmt"
	"reflect"

	"specboard/internal/domain/models/specsystem"
)

// NormalizeValue converts v to the shapes encoding/json produces
// (map[string]interface{}, []interface{}, float64, string, bool, nil),
// so values from handlers, storage and tests compare the same way.
func NormalizeValue(v interface{}) (interface{}, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON-representable: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("value is not JSON-representable: %w", err)
	}
	return out, nil
}

// ValuesEqual reports structural equality. Objects compare by key set and
// values, lists by length and element order.
func ValuesEqual(a, b interface{}) bool {
	na, errA := NormalizeValue(a)
	nb, errB := NormalizeValue(b)
	if errA != nil || errB != nil {
		return false
	}
	return reflect.DeepEqual(na, nb)
}

// ClassifyFieldType tags a change by the runtime shape of its new value.
// Lists are arrays, maps are objects, everything else (including null,
// numbers and booleans) is a string.
func ClassifyFieldType(v interface{}) specsystem.FieldType {
	if v == nil {
		return specsystem.FieldTypeString
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array:
		if _, ok := v.([]byte); ok {
			return specsystem.FieldTypeString
		}
		return specsystem.FieldTypeArray
	case reflect.Map, reflect.Struct:
		return specsystem.FieldTypeObject
	case reflect.Ptr:
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return specsystem.FieldTypeString
		}
		return ClassifyFieldType(rv.Elem().Interface())
	}
	return specsystem.FieldTypeString
}

// DisplayValue renders a value for a change description. Strings are used
// as-is, null renders as "null", everything else as compact JSON.
func DisplayValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// DefaultChangeDescription builds the description used when a proposer gives none.
func DefaultChangeDescription(fieldPath string, oldValue, newValue interface{}) string {
	return fmt.Sprintf(`Changed %s from "%s" to "%s"`, fieldPath, DisplayValue(oldValue), DisplayValue(newValue))
}
