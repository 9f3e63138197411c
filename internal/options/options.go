// Package options normalizes the option lists attached to DDL statements and
// table-function calls. Both the `key = value` and `key => value` spellings
// parse into the same canonical Map, so every downstream consumer sees one
// representation.
package options

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fedscan/fedscan/internal/value"
)

// ErrInvalidOption covers missing required options, unknown keys, wrong
// types, and out-of-range values.
var ErrInvalidOption = errors.New("invalid option")

// Map is a canonical option map. Keys are lower-cased.
type Map map[string]value.Value

// New builds a Map from already typed values, lower-casing keys.
func New(pairs map[string]value.Value) Map {
	m := make(Map, len(pairs))
	for k, v := range pairs {
		m[normalizeKey(k)] = v
	}
	return m
}

func normalizeKey(k string) string {
	return strings.ToLower(strings.TrimSpace(k))
}

// Set stores a value under the normalized key.
func (m Map) Set(key string, v value.Value) {
	m[normalizeKey(key)] = v
}

// Has reports whether the key is present.
func (m Map) Has(key string) bool {
	_, ok := m[normalizeKey(key)]
	return ok
}

// Get returns the raw value for the key.
func (m Map) Get(key string) (value.Value, bool) {
	v, ok := m[normalizeKey(key)]
	return v, ok
}

// Keys returns the present keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy of the map.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Equal reports whether two maps hold the same keys and values.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// String returns the string value for the key. A non-string scalar is
// rendered to its textual form.
func (m Map) String(key string) (string, bool, error) {
	v, ok := m[normalizeKey(key)]
	if !ok {
		return "", false, nil
	}
	switch v.Type() {
	case value.TypeString:
		return v.StringValue(), true, nil
	case value.TypeNull, value.TypeList:
		return "", false, fmt.Errorf("%w: option %q must be a string, got %s", ErrInvalidOption, key, v.Type())
	default:
		return v.String(), true, nil
	}
}

// RequireString is String for options a connector cannot run without.
func (m Map) RequireString(key string) (string, error) {
	s, ok, err := m.String(key)
	if err != nil {
		return "", err
	}
	if !ok || s == "" {
		return "", fmt.Errorf("%w: missing required option %q", ErrInvalidOption, key)
	}
	return s, nil
}

// Bool returns the boolean value for the key, accepting the textual forms
// "true" and "false".
func (m Map) Bool(key string) (bool, bool, error) {
	v, ok := m[normalizeKey(key)]
	if !ok {
		return false, false, nil
	}
	b, valid := v.AsBool()
	if !valid {
		return false, false, fmt.Errorf("%w: option %q must be a boolean, got %v", ErrInvalidOption, key, v)
	}
	return b, true, nil
}

// Int returns the integer value for the key. Integral numerics such as 10.0
// are accepted and truncated; 10.5 is rejected.
func (m Map) Int(key string) (int64, bool, error) {
	v, ok := m[normalizeKey(key)]
	if !ok {
		return 0, false, nil
	}
	i, valid := v.AsInt()
	if !valid {
		return 0, false, fmt.Errorf("%w: option %q must be an integer, got %v", ErrInvalidOption, key, v)
	}
	return i, true, nil
}

// StringList returns the key as an ordered list of strings. A scalar string
// yields a single-element list.
func (m Map) StringList(key string) ([]string, bool, error) {
	v, ok := m[normalizeKey(key)]
	if !ok {
		return nil, false, nil
	}
	if v.Type() == value.TypeString {
		return []string{v.StringValue()}, true, nil
	}
	if v.Type() != value.TypeList {
		return nil, false, fmt.Errorf("%w: option %q must be a string or list of strings", ErrInvalidOption, key)
	}
	items := v.ListValue()
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type() != value.TypeString {
			return nil, false, fmt.Errorf("%w: option %q must contain only strings", ErrInvalidOption, key)
		}
		out = append(out, item.StringValue())
	}
	return out, true, nil
}

// Validate checks the map against the declared key sets: every required key
// must be present and no key outside required+optional may appear.
func (m Map) Validate(required, optional []string) error {
	allowed := make(map[string]struct{}, len(required)+len(optional))
	for _, k := range required {
		k = normalizeKey(k)
		allowed[k] = struct{}{}
		if !m.Has(k) {
			return fmt.Errorf("%w: missing required option %q", ErrInvalidOption, k)
		}
	}
	for _, k := range optional {
		allowed[normalizeKey(k)] = struct{}{}
	}
	for _, k := range m.Keys() {
		if _, ok := allowed[k]; !ok {
			return fmt.Errorf("%w: unknown option %q", ErrInvalidOption, k)
		}
	}
	return nil
}
