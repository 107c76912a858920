package sqlutil

import (
	"encoding/json"
	"fmt"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// ToNullRawMessage marshals v into a JSONB-ready pqtype.NullRawMessage.
// A nil v produces SQL NULL.
func ToNullRawMessage(v any) (pqtype.NullRawMessage, error) {
	if v == nil {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}

// FromNullRawMessage unmarshals a JSONB column into dst. SQL NULL leaves dst untouched.
func FromNullRawMessage(val pqtype.NullRawMessage, dst any) error {
	if !val.Valid || len(val.RawMessage) == 0 {
		return nil
	}
	if err := json.Unmarshal(val.RawMessage, dst); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}

// IntPtr returns a pointer to a copy of v
func IntPtr(v int) *int {
	return &v
}
