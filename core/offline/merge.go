package offline

import (
	"encoding/json"
	"reflect"
	"time"
)

// Changed returns the fields of local that differ from base.
// Nested objects and arrays are compared as a whole.
func Changed(base, local map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{}, len(local))
	for k, v := range local {
		if bv, ok := base[k]; ok && reflect.DeepEqual(bv, v) {
			continue
		}
		diff[k] = v
	}
	return diff
}

// MergeFields applies the fields changed locally (against base) over the server copy.
func MergeFields(base, local, server map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(server))
	for k, v := range server {
		merged[k] = v
	}
	for k, v := range Changed(base, local) {
		merged[k] = v
	}
	return merged
}

// Decode unmarshals a JSON object; empty input gives an empty map.
func Decode(data []byte) (map[string]interface{}, error) {
	obj := make(map[string]interface{})
	if len(data) == 0 || string(data) == "null" {
		return obj, nil
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

// UpdatedAt reads the "updated_at" timestamp of a JSON object.
func UpdatedAt(obj map[string]interface{}) (time.Time, bool) {
	s, ok := obj["updated_at"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ServerIsNewer reports whether the server copy changed since base was cached.
// Records without timestamps are compared field by field.
func ServerIsNewer(base, server map[string]interface{}) bool {
	bt, bok := UpdatedAt(base)
	st, sok := UpdatedAt(server)
	if bok && sok {
		return st.After(bt)
	}
	return !reflect.DeepEqual(base, server)
}
