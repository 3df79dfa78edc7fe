package store

import (
	"encoding/json"
	"fmt"

	"github.com/sugarguard/SugarGuard/internal/models"
)

// unavailable wraps a driver error so callers can detect storage outages with
// errors.Is(err, models.ErrStorageUnavailable). The driver error is flattened
// into the message; no partial write is observable when this is returned.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, models.ErrStorageUnavailable, err)
}

// marshalReadings encodes the append-only reading log for a JSON column.
// An empty log is stored as an empty array, never NULL.
func marshalReadings(readings []models.Reading) (string, error) {
	if len(readings) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(readings)
	if err != nil {
		return "", fmt.Errorf("marshal readings: %w", err)
	}
	return string(b), nil
}

// unmarshalReadings decodes a readings JSON column, preserving log order.
func unmarshalReadings(raw string) ([]models.Reading, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var readings []models.Reading
	if err := json.Unmarshal([]byte(raw), &readings); err != nil {
		return nil, fmt.Errorf("unmarshal readings: %w", err)
	}
	return readings, nil
}
