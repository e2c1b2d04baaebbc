// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"encoding"
	"fmt"
	"reflect"
)

// stringSerializer round-trips a type through a caller-supplied pair
// of string functions. The compact string form is the envelope data,
// tagged KindObject.
type stringSerializer struct {
	to   func(value any) (string, error)
	from func(s string) (any, error)
}

func (*stringSerializer) Kind() Kind { return KindObject }

func (s *stringSerializer) Encode(value any) (Packed, error) {
	text, err := s.to(value)
	if err != nil {
		return Packed{}, fmt.Errorf("string-encoding %T: %w", value, err)
	}
	return Pack(text), nil
}

func (s *stringSerializer) Decode(_ reflect.Type, data any) (any, error) {
	text, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("%w: object data is %T, want a string", ErrMalformed, data)
	}
	value, err := s.from(text)
	if err != nil {
		return nil, fmt.Errorf("%w: constructing from %q: %v", ErrRoundTrip, text, err)
	}
	return value, nil
}

// textSerializer round-trips a type through its own
// encoding.TextMarshaler / encoding.TextUnmarshaler implementation.
type textSerializer struct{}

func (textSerializer) Kind() Kind { return KindObject }

func (textSerializer) Encode(value any) (Packed, error) {
	marshaler, ok := value.(encoding.TextMarshaler)
	if !ok {
		// MarshalText may be declared on the pointer receiver; take
		// an addressable copy.
		pointer := reflect.New(reflect.TypeOf(value))
		pointer.Elem().Set(reflect.ValueOf(value))
		marshaler, ok = pointer.Interface().(encoding.TextMarshaler)
		if !ok {
			return Packed{}, fmt.Errorf("%T does not implement encoding.TextMarshaler", value)
		}
	}
	text, err := marshaler.MarshalText()
	if err != nil {
		return Packed{}, fmt.Errorf("text-encoding %T: %w", value, err)
	}
	return Pack(string(text)), nil
}

func (textSerializer) Decode(typ reflect.Type, data any) (any, error) {
	if typ == nil {
		return nil, fmt.Errorf("%w: text class is not registered on this side", ErrNoSerializer)
	}
	text, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("%w: object data is %T, want a string", ErrMalformed, data)
	}

	pointer := reflect.New(typ)
	unmarshaler, ok := pointer.Interface().(encoding.TextUnmarshaler)
	if !ok {
		return nil, fmt.Errorf("%s does not implement encoding.TextUnmarshaler", typ)
	}
	if err := unmarshaler.UnmarshalText([]byte(text)); err != nil {
		return nil, fmt.Errorf("%w: constructing %s from %q: %v", ErrRoundTrip, typ, text, err)
	}
	return pointer.Elem().Interface(), nil
}
