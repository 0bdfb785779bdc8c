package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

// FlexString accepts any JSON scalar (and joins arrays) so that loosely typed
// model output still renders as text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexString(flatten(v))
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// FlexList accepts either a JSON array or a comma separated string.
type FlexList []string

func (f *FlexList) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch t := v.(type) {
	case nil:
		*f = nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				out = append(out, s)
			}
		}
		*f = out
	default:
		var out []string
		for _, part := range strings.Split(flatten(t), ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*f = out
	}
	return nil
}

func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := flatten(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
