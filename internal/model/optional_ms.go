package model

import (
	"encoding/json"
	"fmt"
)

// OptionalMS is a nullable millisecond duration: Disabled or Enabled(ms).
// The zero value is Disabled. It marshals to JSON null when disabled and a
// bare number when enabled, matching the backend's nullable integers.
type OptionalMS struct {
	set bool
	ms  int
}

func EnabledMS(ms int) OptionalMS { return OptionalMS{set: true, ms: ms} }

func DisabledMS() OptionalMS { return OptionalMS{} }

func (o OptionalMS) Enabled() bool { return o.set }

// Value returns the milliseconds and whether the field is enabled.
func (o OptionalMS) Value() (int, bool) { return o.ms, o.set }

func (o OptionalMS) String() string {
	if !o.set {
		return "disabled"
	}
	return fmt.Sprintf("%dms", o.ms)
}

func (o OptionalMS) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.ms)
}

func (o *OptionalMS) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptionalMS{}
		return nil
	}
	var ms int
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("optional ms: %w", err)
	}
	*o = OptionalMS{set: true, ms: ms}
	return nil
}
