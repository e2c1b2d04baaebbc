// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"reflect"
)

// Opaque returns the last-resort serializer: a generic Go-native
// object dump (gob) in reversible text encoding (base64), tagged
// "opaque". It preserves concrete type identity across the wire,
// which the structural and string capabilities cannot, at the cost of
// a wire form only Go peers can read.
//
// gob requires concrete types stored in interface values to be
// registered on both the encoding and decoding side; see
// RegisterOpaque.
func Opaque() Serializer {
	return opaqueSerializer{}
}

// RegisterOpaque registers a concrete type with the opaque encoder so
// values of that type can travel inside interface-typed data. Both
// peers must register the same types. Idempotent for repeated
// identical registrations.
func RegisterOpaque(prototype any) {
	gob.Register(prototype)
}

// opaqueValue wraps the dumped value so gob records its concrete type
// even for top-level interface data.
type opaqueValue struct {
	Value any
}

type opaqueSerializer struct{}

func (opaqueSerializer) Kind() Kind { return KindOpaque }

func (opaqueSerializer) Encode(value any) (Packed, error) {
	var buffer bytes.Buffer
	if err := gob.NewEncoder(&buffer).Encode(&opaqueValue{Value: value}); err != nil {
		return Packed{}, fmt.Errorf("opaque dump of %T: %w", value, err)
	}
	return Pack(base64.StdEncoding.EncodeToString(buffer.Bytes())), nil
}

func (opaqueSerializer) Decode(_ reflect.Type, data any) (any, error) {
	text, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("%w: opaque data is %T, want a string", ErrMalformed, data)
	}
	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: opaque data is not valid base64: %v", ErrMalformed, err)
	}

	var wrapper opaqueValue
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("%w: opaque dump does not decode: %v", ErrMalformed, err)
	}
	return wrapper.Value, nil
}
