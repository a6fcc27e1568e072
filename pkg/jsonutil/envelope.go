package jsonutil

import (
	"bytes"
	"encoding/json"
)

// AsObject decodes raw as a JSON object. Returns false for arrays, scalars and null.
func AsObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

// AsArray decodes raw as a JSON array. Returns false for anything else.
func AsArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(trimmed, &arr); err != nil {
		return nil, false
	}
	return arr, true
}

// UnwrapData strips the legacy {"data": ...} envelope ({success, data, message}).
// A missing or null data field leaves raw untouched.
func UnwrapData(raw json.RawMessage) json.RawMessage {
	obj, ok := AsObject(raw)
	if !ok {
		return raw
	}
	if data, ok := obj["data"]; ok && !IsNull(data) {
		return data
	}
	return raw
}

// ExtractList finds a list in any of the accepted shapes:
//   - a bare array
//   - an object with the named array field
//   - either of the above inside a {"data": ...} envelope
//
// The enclosing object (if any) is returned so callers can read paging fields.
// Unrecognised shapes give ok=false and never an error.
func ExtractList(raw json.RawMessage, field string) (items []json.RawMessage, envelope map[string]json.RawMessage, ok bool) {
	body := UnwrapData(raw)

	if arr, isArr := AsArray(body); isArr {
		return arr, nil, true
	}

	obj, isObj := AsObject(body)
	if !isObj {
		return nil, nil, false
	}
	if arr, isArr := AsArray(obj[field]); isArr {
		return arr, obj, true
	}
	return nil, obj, false
}

// ExtractObject unwraps a single entity from {"data": {...}}, {"<field>": {...}} or a bare object.
func ExtractObject(raw json.RawMessage, field string) (json.RawMessage, bool) {
	body := UnwrapData(raw)

	obj, ok := AsObject(body)
	if !ok {
		return nil, false
	}
	if inner, ok := obj[field]; ok {
		if _, isObj := AsObject(inner); isObj {
			return inner, true
		}
	}
	return body, true
}
