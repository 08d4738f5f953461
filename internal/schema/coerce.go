package schema

import (
	"strconv"
	"strings"
)

// currencyPrefixes are stripped from numeric strings before parsing
var currencyPrefixes = []string{"$", "€", "£", "¥", "USD", "EUR", "GBP"}

// coerceNumber normalizes a nullable number field in place.
// Absent and blank values become null, numeric strings become numbers and
// anything else is left for the validator to reject.
func coerceNumber(obj map[string]any, key string) {
	v, ok := obj[key]
	if !ok || v == nil {
		obj[key] = nil
		return
	}
	s, isString := v.(string)
	if !isString {
		return
	}
	if strings.TrimSpace(s) == "" {
		obj[key] = nil
		return
	}
	if f, ok := parseNumber(s); ok {
		obj[key] = f
	}
}

// coerceString trims a nullable string field in place; blank becomes null.
// When required is false an absent field stays absent.
func coerceString(obj map[string]any, key string, required bool) {
	v, ok := obj[key]
	if !ok {
		if required {
			obj[key] = nil
		}
		return
	}
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			obj[key] = nil
		} else {
			obj[key] = t
		}
	case float64:
		obj[key] = strconv.FormatFloat(t, 'f', -1, 64)
	}
}

// coerceInteger normalizes an integer id; numeric strings are parsed.
func coerceInteger(obj map[string]any, key string) {
	v, ok := obj[key]
	if !ok || v == nil {
		obj[key] = nil
		return
	}
	s, isString := v.(string)
	if !isString {
		return
	}
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if s == "" {
		obj[key] = nil
		return
	}
	if n, err := strconv.Atoi(s); err == nil {
		obj[key] = float64(n)
	}
}

// coerceEnum lower-cases and trims an enum string; blank becomes null.
func coerceEnum(obj map[string]any, key string) {
	v, ok := obj[key]
	if !ok || v == nil {
		obj[key] = nil
		return
	}
	if s, isString := v.(string); isString {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			obj[key] = nil
		} else {
			obj[key] = s
		}
	}
}

// coerceStringList accepts a comma separated string in place of an array
// and drops blank entries. null becomes absent.
func coerceStringList(obj map[string]any, key string) {
	v, ok := obj[key]
	if !ok {
		return
	}
	var items []any
	switch t := v.(type) {
	case nil:
		delete(obj, key)
		return
	case string:
		for _, part := range strings.Split(t, ",") {
			items = append(items, part)
		}
	case []any:
		items = t
	default:
		return
	}

	out := make([]any, 0, len(items))
	for _, it := range items {
		s, isString := it.(string)
		if !isString {
			out = append(out, it)
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	obj[key] = out
}

// parseNumber reads a human formatted number such as "$1,234.50", "42,137", "49,99" or " 71.25 ".
// A single comma followed by one or two digits is a decimal separator. Commas splitting
// three-digit groups are thousands separators. Any other comma use is left unconverted.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	for _, p := range currencyPrefixes {
		if strings.HasPrefix(s, p) {
			s = strings.TrimSpace(strings.TrimPrefix(s, p))
			break
		}
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ",") {
		intPart, frac, hasPoint := strings.Cut(s, ".")
		switch {
		case !hasPoint && strings.Count(s, ",") == 1 && decimalComma(s):
			s = strings.Replace(s, ",", ".", 1)
		case grouped(intPart):
			s = strings.ReplaceAll(intPart, ",", "")
			if hasPoint {
				s += "." + frac
			}
		default:
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// decimalComma reports whether the only comma in s is followed by one or two digits
func decimalComma(s string) bool {
	_, frac, _ := strings.Cut(s, ",")
	return (len(frac) == 1 || len(frac) == 2) && allDigits(frac)
}

// grouped reports whether s is a signed integer with commas between three-digit groups
func grouped(s string) bool {
	s = strings.TrimLeft(s, "+-")
	groups := strings.Split(s, ",")
	if len(groups[0]) == 0 || len(groups[0]) > 3 || !allDigits(groups[0]) {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 || !allDigits(g) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
