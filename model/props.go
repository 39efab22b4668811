package model

import (
	"fmt"
	"strconv"
)

// Props is the open property mapping of a node. Its keys are interpreted
// per node type; the accessors below do the loose conversions that values
// decoded from JSON need.
type Props map[string]any

// Clone returns a shallow copy of p. A nil receiver yields an empty map.
func (p Props) Clone() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Merge returns a copy of p with every key of patch applied on top.
func (p Props) Merge(patch map[string]any) Props {
	out := p.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present with a non-nil value.
func (p Props) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// String returns the value of key formatted as a string, or def when the key
// is absent, nil or an empty string.
func (p Props) String(key, def string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return def
	}
	s := FormatValue(v)
	if s == "" {
		return def
	}
	return s
}

// Int returns the value of key as an int. Numeric strings are parsed.
func (p Props) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int(f)
		}
	}
	return def
}

// Bool returns the value of key as a bool. "true"/"false" strings are parsed.
func (p Props) Bool(key string, def bool) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Strings returns the value of key as a list of strings, or nil when the
// value is not a list.
func (p Props) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, FormatValue(item))
		}
		return out
	}
	return nil
}

// FormatValue renders a value in its default string form. Integral floats
// print without a fractional part so that JSON numbers read naturally.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
