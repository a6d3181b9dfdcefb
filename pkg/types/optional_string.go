package types

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a string that may be absent. Absent is distinct from every
// concrete value, including the empty string, so two OptionalStrings compare
// equal with == only when both are absent or both hold the same value.
type OptionalString struct {
	value string
	set   bool
}

// Some wraps a concrete value.
func Some(value string) OptionalString {
	return OptionalString{value: value, set: true}
}

// None returns the absent value.
func None() OptionalString {
	return OptionalString{}
}

// OptionalFromPtr converts a nullable pointer.
func OptionalFromPtr(value *string) OptionalString {
	if value == nil {
		return None()
	}
	return Some(*value)
}

func (o OptionalString) IsSet() bool {
	return o.set
}

// Get returns the value and whether it is present.
func (o OptionalString) Get() (string, bool) {
	return o.value, o.set
}

// OrElse returns the value, or fallback when absent.
func (o OptionalString) OrElse(fallback string) string {
	if !o.set {
		return fallback
	}
	return o.value
}

// Ptr returns a copy of the value as a pointer, nil when absent.
func (o OptionalString) Ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

func (o OptionalString) Equal(other OptionalString) bool {
	return o == other
}

func (o OptionalString) String() string {
	if !o.set {
		return "<none>"
	}
	return o.value
}

// IsZero lets encoding/json's omitzero drop absent values.
func (o OptionalString) IsZero() bool {
	return !o.set
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*o = None()
		return nil
	}
	var parsed string
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	*o = Some(parsed)
	return nil
}
