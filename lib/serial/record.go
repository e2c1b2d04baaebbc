// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"fmt"
	"reflect"
	"strings"
)

// Record returns the structural auto-derivation serializer for plain
// attribute-record structs. Encode produces a mapping from exported
// field name to encoded field value (kind tag "record"); decode
// reconstructs by field-name matching, leaving fields absent from the
// data at their zero value. A json struct tag renames a field on the
// wire; `json:"-"` skips it.
func Record() Serializer {
	return recordSerializer{}
}

type recordSerializer struct{}

func (recordSerializer) Kind() Kind { return KindRecord }

func (recordSerializer) Encode(value any) (Packed, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Packed{}, fmt.Errorf("cannot auto-derive a record from a nil pointer")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Packed{}, fmt.Errorf("cannot auto-derive a record from %s", rv.Type())
	}

	typ := rv.Type()
	fields := make(map[string]any)
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := wireFieldName(field)
		if name == "-" {
			continue
		}
		fields[name] = rv.Field(i).Interface()
	}
	return Pack(fields), nil
}

func (recordSerializer) Decode(typ reflect.Type, data any) (any, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: record class is not registered on this side", ErrNoSerializer)
	}
	fields, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: record data is %T, want an object", ErrMalformed, data)
	}

	out := reflect.New(typ).Elem()
	if err := populateStruct(out, fields); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// wireFieldName is the wire key for a struct field: the json tag name
// when present, the Go field name otherwise.
func wireFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// populateStruct assigns decoded field values into dst by name.
// Unknown keys in fields are ignored for forward compatibility.
func populateStruct(dst reflect.Value, fields map[string]any) error {
	typ := dst.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := wireFieldName(field)
		if name == "-" {
			continue
		}
		raw, present := fields[name]
		if !present {
			continue
		}
		if err := assign(dst.Field(i), raw); err != nil {
			return fmt.Errorf("field %s.%s: %w", typ.Name(), field.Name, err)
		}
	}
	return nil
}

// assign stores a decoded wire value into dst, converting across the
// representations the wire formats produce: JSON numbers arrive as
// float64, CBOR integers as uint64/int64, objects as map[string]any,
// and arrays as []any.
func assign(dst reflect.Value, src any) error {
	if src == nil {
		// Leave the zero value.
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dst.Type()) {
		dst.Set(sv)
		return nil
	}

	switch dst.Kind() {
	case reflect.Pointer:
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), src); err != nil {
			return err
		}
		dst.Set(elem)
		return nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if isNumeric(sv.Kind()) {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}

	case reflect.String:
		if sv.Kind() == reflect.String {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}

	case reflect.Bool:
		if sv.Kind() == reflect.Bool {
			dst.Set(sv.Convert(dst.Type()))
			return nil
		}

	case reflect.Slice:
		if list, ok := src.([]any); ok {
			out := reflect.MakeSlice(dst.Type(), len(list), len(list))
			for i, element := range list {
				if err := assign(out.Index(i), element); err != nil {
					return fmt.Errorf("index %d: %w", i, err)
				}
			}
			dst.Set(out)
			return nil
		}

	case reflect.Map:
		if dst.Type().Key().Kind() == reflect.String {
			if object, ok := src.(map[string]any); ok {
				out := reflect.MakeMapWithSize(dst.Type(), len(object))
				for key, element := range object {
					value := reflect.New(dst.Type().Elem()).Elem()
					if err := assign(value, element); err != nil {
						return fmt.Errorf("key %q: %w", key, err)
					}
					out.SetMapIndex(reflect.ValueOf(key).Convert(dst.Type().Key()), value)
				}
				dst.Set(out)
				return nil
			}
		}

	case reflect.Struct:
		// A nested struct whose type was never registered encodes as
		// a plain mapping; rebuild it field by field.
		if object, ok := src.(map[string]any); ok {
			return populateStruct(dst, object)
		}

	case reflect.Interface:
		if dst.NumMethod() == 0 {
			dst.Set(sv)
			return nil
		}
		if sv.Type().Implements(dst.Type()) {
			dst.Set(sv)
			return nil
		}
	}

	return fmt.Errorf("%w: cannot assign %T to %s", ErrMalformed, src, dst.Type())
}

func isNumeric(kind reflect.Kind) bool {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
