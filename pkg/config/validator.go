package config

import (
	"fmt"
	"reflect"
	"strings"
)

// Validator checks one aspect of loaded settings.
type Validator interface {
	Validate(settings interface{}) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(settings interface{}) error

func (f ValidatorFunc) Validate(settings interface{}) error {
	return f(settings)
}

// Validate runs the validators in order and stops at the first failure.
func Validate(settings interface{}, validators ...Validator) error {
	for _, v := range validators {
		if err := v.Validate(settings); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	return nil
}

// RequiredFields validates that the named fields are set to non-zero values.
// Nested fields use dot notation, e.g. "Pool.Workers".
func RequiredFields(fields ...string) Validator {
	return ValidatorFunc(func(settings interface{}) error {
		val := reflect.ValueOf(settings)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}
		if val.Kind() != reflect.Struct {
			return fmt.Errorf("settings must be a struct")
		}

		var missing []string
		for _, name := range fields {
			fieldVal := fieldByPath(val, name)
			if !fieldVal.IsValid() {
				return fmt.Errorf("field %s not found in settings struct", name)
			}
			if isZero(fieldVal) {
				missing = append(missing, name)
			}
		}

		if len(missing) > 0 {
			return fmt.Errorf("required fields are missing: %s", strings.Join(missing, ", "))
		}
		return nil
	})
}

// RangeValidator validates that a numeric field lies within [min, max].
// Nested fields use dot notation.
func RangeValidator(fieldName string, min, max float64) Validator {
	return ValidatorFunc(func(settings interface{}) error {
		val := reflect.ValueOf(settings)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}

		fieldVal := fieldByPath(val, fieldName)
		if !fieldVal.IsValid() {
			return fmt.Errorf("field %s not found", fieldName)
		}

		var n float64
		switch fieldVal.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			n = float64(fieldVal.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n = float64(fieldVal.Uint())
		case reflect.Float32, reflect.Float64:
			n = fieldVal.Float()
		default:
			return fmt.Errorf("field %s is not numeric", fieldName)
		}

		if n < min || n > max {
			return fmt.Errorf("field %s value %v is out of range [%v, %v]", fieldName, n, min, max)
		}
		return nil
	})
}

// OneOf validates that a field holds one of the allowed values. Useful for
// enumerated settings like a transport backend name.
func OneOf(fieldName string, allowed ...interface{}) Validator {
	return ValidatorFunc(func(settings interface{}) error {
		val := reflect.ValueOf(settings)
		if val.Kind() == reflect.Ptr {
			val = val.Elem()
		}

		fieldVal := fieldByPath(val, fieldName)
		if !fieldVal.IsValid() {
			return fmt.Errorf("field %s not found", fieldName)
		}

		got := fieldVal.Interface()
		for _, want := range allowed {
			if reflect.DeepEqual(got, want) {
				return nil
			}
		}
		return fmt.Errorf("field %s value %v is not one of allowed values: %v", fieldName, got, allowed)
	})
}

// fieldByPath resolves a dot-separated field path on a struct value.
func fieldByPath(val reflect.Value, path string) reflect.Value {
	current := val
	for _, part := range strings.Split(path, ".") {
		if current.Kind() == reflect.Ptr {
			current = current.Elem()
		}
		if current.Kind() != reflect.Struct {
			return reflect.Value{}
		}
		current = current.FieldByName(part)
		if !current.IsValid() {
			return reflect.Value{}
		}
	}
	return current
}

func isZero(val reflect.Value) bool {
	switch val.Kind() {
	case reflect.String:
		return val.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return val.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return val.Float() == 0
	case reflect.Bool:
		return !val.Bool()
	case reflect.Slice, reflect.Map, reflect.Array:
		return val.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return val.IsNil()
	default:
		return false
	}
}
