package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Placeholder substitutes for a required identity field a record lacks.
const Placeholder = "unknown"

// record is one loosely typed scanner record. Accessors never fail: a field
// that is absent or of the wrong JSON type reads as its zero value.
type record map[string]any

func decodeRecord(raw json.RawMessage) (record, bool) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil || r == nil {
		return record{}, false
	}
	return r, true
}

// decodeRecords decodes a JSON array of objects. Elements that are not
// objects come back as empty records so they surface as placeholders rather
// than disappearing. A null or absent section is an empty list.
func decodeRecords(raw json.RawMessage) ([]record, int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, 0, nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, 0, fmt.Errorf("expected array: %w", err)
	}
	out := make([]record, 0, len(elems))
	bad := 0
	for _, e := range elems {
		r, ok := decodeRecord(e)
		if !ok {
			bad++
		}
		out = append(out, r)
	}
	return out, bad, nil
}

func (r record) str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// first returns the first key among keys holding a non-empty string, and its
// value.
func (r record) first(keys ...string) (string, string) {
	for _, k := range keys {
		if v := r.str(k); v != "" {
			return k, v
		}
	}
	return "", ""
}

func (r record) strs(key string) []string {
	list, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (r record) boolean(key string) bool {
	b, _ := r[key].(bool)
	return b
}

func (r record) number(key string) *float64 {
	if f, ok := r[key].(float64); ok {
		return &f
	}
	return nil
}

func (r record) records(key string) []record {
	list, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]record, 0, len(list))
	for _, v := range list {
		m, _ := v.(map[string]any)
		out = append(out, record(m))
	}
	return out
}
