package engine

import "time"

// Value coercion at conversion boundaries. Parquet decoding hands back a
// mix of Go scalar types depending on the physical column type, so every
// rule converts through these helpers and treats a failed conversion as an
// explicit branch (usually "value absent") rather than an error.

// asFloat64 converts a value to float64 if possible.
func asFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}

// asString converts a value to string if possible.
func asString(v interface{}) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if b, ok := v.([]byte); ok {
		return string(b), true
	}
	return "", false
}

// asTime converts a value to time.Time if possible. Raw timestamp columns
// arrive either as decoded time.Time values, as epoch microseconds, or as
// date strings, depending on how the snapshot was written.
func asTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case int64:
		return time.UnixMicro(val).UTC(), true
	case int32:
		// DATE logical type: days since epoch.
		return time.Unix(int64(val)*86400, 0).UTC(), true
	case float64:
		return time.UnixMicro(int64(val)).UTC(), true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, val); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// fieldFloat reads a numeric column from a row; ok is false when the value
// is absent, null, or not numeric.
func fieldFloat(row map[string]interface{}, col string) (float64, bool) {
	v, exists := row[col]
	if !exists || v == nil {
		return 0, false
	}
	return asFloat64(v)
}

// fieldString reads a string column from a row.
func fieldString(row map[string]interface{}, col string) (string, bool) {
	v, exists := row[col]
	if !exists || v == nil {
		return "", false
	}
	return asString(v)
}

// fieldTime reads a timestamp column from a row.
func fieldTime(row map[string]interface{}, col string) (time.Time, bool) {
	v, exists := row[col]
	if !exists || v == nil {
		return time.Time{}, false
	}
	return asTime(v)
}
