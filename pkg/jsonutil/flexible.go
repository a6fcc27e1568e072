package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IsNull reports whether raw is empty or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || string(trimmed) == "null"
}

// FlexibleStringValue converts a json.RawMessage to a string, handling backends that
// send identifiers as numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if IsNull(raw) {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// json.Number keeps large integer ids exact
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var numVal json.Number
	if err := dec.Decode(&numVal); err == nil {
		if i, err := numVal.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := numVal.Float64(); err == nil {
			return fmt.Sprintf("%g", f)
		}
		return numVal.String()
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleIntValue reads an integer that may be sent as a number or a numeric string.
// The second return value is false when raw holds no usable integer.
func FlexibleIntValue(raw json.RawMessage) (int, bool) {
	if IsNull(raw) {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int(f), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.Atoi(s); err == nil {
			return i, true
		}
	}
	return 0, false
}

// FlexibleBoolValue reads a flag sent as a boolean, 0/1 or a string such as
// "true", "1" or "yes". The second return value is false when raw holds no
// recognisable flag.
func FlexibleBoolValue(raw json.RawMessage) (bool, bool) {
	if IsNull(raw) {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f != 0, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes", "y", "on":
			return true, true
		case "false", "0", "no", "n", "off", "":
			return false, true
		}
	}
	return false, false
}

// FlexibleStringList reads a list of strings sent as a JSON array, a
// JSON-encoded array inside a string, or a comma-separated string.
// Blank entries are dropped; anything else yields nil.
func FlexibleStringList(raw json.RawMessage) []string {
	if IsNull(raw) {
		return nil
	}

	if arr, ok := AsArray(raw); ok {
		out := make([]string, 0, len(arr))
		for _, elem := range arr {
			if s := strings.TrimSpace(FlexibleStringValue(elem)); s != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		return FlexibleStringList(json.RawMessage(s))
	}

	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// FlexibleArray returns the elements of a JSON array, also accepting an array
// that was JSON-encoded into a string. Anything else yields ok=false.
func FlexibleArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	if arr, ok := AsArray(raw); ok {
		return arr, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false
	}
	return AsArray(json.RawMessage(strings.TrimSpace(s)))
}
