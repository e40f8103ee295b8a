package httputil

import (
	"encoding/json"
)

// OptionalJSON tracks presence of an arbitrary JSON value, which a plain
// interface{} field cannot express:
//   - Present=false: field absent from the JSON object
//   - Present=true, Value=nil: field is JSON null
//   - Present=true, Value=v: field holds v (string, number, bool, list or object)
type OptionalJSON struct {
	Present bool
	Value   interface{}
}

// UnmarshalJSON implements json.Unmarshaler.
// When this method is called, the field was present in the JSON.
func (o *OptionalJSON) UnmarshalJSON(data []byte) error {
	o.Present = true
	o.Value = nil
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON writes the value, or null when absent.
func (o OptionalJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}
