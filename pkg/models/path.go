package models

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"
)

var indexPattern = regexp.MustCompile(`\[(\d+)\]`)

// NormalizePath rewrites bracket indexes into dot segments: "items[0].name" -> "items.0.name".
func NormalizePath(path string) string {
	return indexPattern.ReplaceAllString(strings.TrimSpace(path), ".$1")
}

// Lookup walks maps and slices by a dotted path. It reports false when any segment is missing.
func Lookup(data any, path string) (any, bool) {
	path = NormalizePath(path)
	if path == "" {
		return data, data != nil
	}

	current := data

	for _, segment := range strings.Split(path, ".") {
		next, ok := step(current, segment)
		if !ok {
			return nil, false
		}

		current = next
	}

	return current, true
}

func step(current any, segment string) (any, bool) {
	switch value := current.(type) {
	case map[string]any:
		next, ok := value[segment]

		return next, ok
	case map[string]string:
		next, ok := value[segment]

		return next, ok
	case []any:
		return index(len(value), segment, func(i int) any { return value[i] })
	case []map[string]any:
		return index(len(value), segment, func(i int) any { return value[i] })
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(current)

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}

		next := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !next.IsValid() {
			return nil, false
		}

		return next.Interface(), true
	case reflect.Slice, reflect.Array:
		return index(rv.Len(), segment, func(i int) any { return rv.Index(i).Interface() })
	default:
		return nil, false
	}
}

func index(length int, segment string, at func(int) any) (any, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= length {
		return nil, false
	}

	return at(i), true
}
