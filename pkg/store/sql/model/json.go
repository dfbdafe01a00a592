// Package model holds the gorm table mappings plus the converters
// between rows and domain entities. Structured fields (configs, metric
// maps, analysis snapshots) are stored as JSON text columns so the same
// schema works on every supported dialect.
package model

import "encoding/json"

// marshalJSON renders v for a JSON text column; empty input stays an
// empty string so the column round-trips cleanly.
func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func unmarshalJSON[T any](raw string) T {
	var out T
	if raw == "" {
		return out
	}
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
