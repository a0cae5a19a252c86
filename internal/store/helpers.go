package store

import (
	"database/sql"
	"encoding/json"
)

// marshalStrings converts []string to JSON text for storage.
func marshalStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(list)
	return string(b)
}

// unmarshalStrings converts JSON text back to []string.
func unmarshalStrings(s string) []string {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var list []string
	_ = json.Unmarshal([]byte(s), &list)
	return list
}

// nullString maps the empty string to SQL NULL so optional fields stay absent.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
