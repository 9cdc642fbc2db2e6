package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StepResults stores per-step orchestration results as a JSONB column.
type StepResults []StepResult

// Value implements driver.Valuer for JSONB storage.
func (s StepResults) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner for JSONB storage.
func (s *StepResults) Scan(src any) error {
	return scanJSON(src, s, "step results")
}

// Value implements driver.Valuer for JSONB storage.
func (c ModeContext) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB storage.
func (c *ModeContext) Scan(src any) error {
	return scanJSON(src, c, "mode context")
}

func scanJSON(src, dst any, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("scan %s: unsupported type %T", what, src)
	}
}
