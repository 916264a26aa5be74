package objbuilder

import (
	"fmt"
	"reflect"
	"strings"
)

// fieldAt resolves a dot separated path (e.g. "Address.City") on the given instance.
// Pointers and interfaces are dereferenced at every level, map keys must be strings.
func fieldAt(instance any, path string) (any, error) {
	if path == "" {
		return nil, fmt.Errorf("field path cannot be empty")
	}

	current := reflect.ValueOf(instance)
	for i, token := range strings.Split(path, ".") {
		if token == "" {
			return nil, fmt.Errorf("empty token at position %d in field path %s", i, path)
		}

		current = deref(current)
		if !current.IsValid() {
			return nil, fmt.Errorf("nil value at token %s (position %d) in field path %s", token, i, path)
		}

		switch current.Kind() {
		case reflect.Struct:
			field, found := current.Type().FieldByName(token)
			if !found {
				return nil, fmt.Errorf("field %s not found in %s (field path %s)", token, current.Type(), path)
			}
			if !field.IsExported() {
				return nil, fmt.Errorf("field %s of %s is not exported (field path %s)", token, current.Type(), path)
			}
			value, err := current.FieldByIndexErr(field.Index)
			if err != nil {
				return nil, fmt.Errorf("cannot reach field %s of %s (field path %s):\n\t%w", token, current.Type(), path, err)
			}
			current = value

		case reflect.Map:
			if current.Type().Key().Kind() != reflect.String {
				return nil, fmt.Errorf("map %s does not have string keys (field path %s)", current.Type(), path)
			}
			value := current.MapIndex(reflect.ValueOf(token).Convert(current.Type().Key()))
			if !value.IsValid() {
				return nil, fmt.Errorf("key %s not found (field path %s)", token, path)
			}
			current = value

		default:
			return nil, fmt.Errorf("cannot traverse %s: expected struct or map but got %s (field path %s)", token, current.Kind(), path)
		}
	}

	if !current.IsValid() {
		return nil, nil
	}
	if !current.CanInterface() {
		return nil, fmt.Errorf("field path %s reaches a value which cannot be exported", path)
	}
	return current.Interface(), nil
}

func deref(value reflect.Value) reflect.Value {
	for value.Kind() == reflect.Pointer || value.Kind() == reflect.Interface {
		if value.IsNil() {
			return reflect.Value{}
		}
		value = value.Elem()
	}
	return value
}
