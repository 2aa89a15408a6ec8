package schema

import "encoding/json"

// UnmarshalJSON applies the field defaults before decoding so that an omitted
// "nullable" key reads as true rather than Go's zero value.
func (f *Field) UnmarshalJSON(data []byte) error {
	type plain Field
	aux := plain{Nullable: true}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = Field(aux)
	return nil
}
