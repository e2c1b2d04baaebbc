// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"reflect"

	"github.com/wirepack/wirepack/lib/blobstore"
)

// Array is a bulk numeric buffer: an element type tag, a shape, and
// the raw little-endian bytes. Arrays never travel inline — their
// serializer stores the bytes in a blob container and puts only the
// content key on the wire, marked as a reference so decoders do not
// fetch the payload until asked.
type Array struct {
	DType string
	Shape []int
	Data  []byte
}

// ArrayClass is the wire class name for Array envelopes.
const ArrayClass = "wirepack.Array"

// Int64Array builds a one-dimensional int64 array.
func Int64Array(values []int64) Array {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], uint64(v))
	}
	return Array{DType: "int64", Shape: []int{len(values)}, Data: data}
}

// Float64Array builds a one-dimensional float64 array.
func Float64Array(values []float64) Array {
	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return Array{DType: "float64", Shape: []int{len(values)}, Data: data}
}

// Float32Array builds a one-dimensional float32 array.
func Float32Array(values []float32) Array {
	data := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[4*i:], math.Float32bits(v))
	}
	return Array{DType: "float32", Shape: []int{len(values)}, Data: data}
}

// Len returns the element count: the product of the shape dimensions.
func (a Array) Len() int {
	n := 1
	for _, dim := range a.Shape {
		n *= dim
	}
	return n
}

// Equal reports whether two arrays have the same element type, shape,
// and bytes — the same equality the content key is computed over.
func (a Array) Equal(b Array) bool {
	if a.DType != b.DType || len(a.Shape) != len(b.Shape) {
		return false
	}
	for i := range a.Shape {
		if a.Shape[i] != b.Shape[i] {
			return false
		}
	}
	return bytes.Equal(a.Data, b.Data)
}

// Int64s decodes the buffer as int64 elements.
func (a Array) Int64s() ([]int64, error) {
	if a.DType != "int64" {
		return nil, fmt.Errorf("array dtype is %q, not int64", a.DType)
	}
	if len(a.Data)%8 != 0 {
		return nil, fmt.Errorf("int64 array data length %d is not a multiple of 8", len(a.Data))
	}
	values := make([]int64, len(a.Data)/8)
	for i := range values {
		values[i] = int64(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return values, nil
}

// Float64s decodes the buffer as float64 elements.
func (a Array) Float64s() ([]float64, error) {
	if a.DType != "float64" {
		return nil, fmt.Errorf("array dtype is %q, not float64", a.DType)
	}
	if len(a.Data)%8 != 0 {
		return nil, fmt.Errorf("float64 array data length %d is not a multiple of 8", len(a.Data))
	}
	values := make([]float64, len(a.Data)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(a.Data[8*i:]))
	}
	return values, nil
}

// Float32s decodes the buffer as float32 elements.
func (a Array) Float32s() ([]float32, error) {
	if a.DType != "float32" {
		return nil, fmt.Errorf("array dtype is %q, not float32", a.DType)
	}
	if len(a.Data)%4 != 0 {
		return nil, fmt.Errorf("float32 array data length %d is not a multiple of 4", len(a.Data))
	}
	values := make([]float32, len(a.Data)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(a.Data[4*i:]))
	}
	return values, nil
}

// Arrays returns a registry handling Array through the given blob
// store. Sum it with the rest of the capability set:
//
//	registry := serial.Merge(serial.Base(), serial.Arrays(store))
//
// Array envelopes carry only the content key as data, are marked as
// references, and record the container file as a dependency.
func Arrays(store *blobstore.Store) *Registry {
	r := NewRegistry()
	r.RegisterAs(Array{}, ArrayClass, &arraySerializer{store: store})
	return r
}

// arraySerializer stores array payloads in a blob container and wires
// the content key through the envelope. The blob store is a composed
// capability: the registry knows nothing about it.
type arraySerializer struct {
	store *blobstore.Store
}

func (*arraySerializer) Kind() Kind { return KindObject }

func (s *arraySerializer) Encode(value any) (Packed, error) {
	array, ok := value.(Array)
	if !ok {
		return Packed{}, fmt.Errorf("expected serial.Array, got %T", value)
	}

	key, err := s.store.Put(blobstore.Payload{
		DType: array.DType,
		Shape: array.Shape,
		Data:  array.Data,
	})
	if err != nil {
		return Packed{}, fmt.Errorf("storing array payload: %w", err)
	}

	return Pack(key.String(), WithRef(), WithFiles(s.store.ContainerPath())), nil
}

func (s *arraySerializer) Decode(_ reflect.Type, data any) (any, error) {
	text, ok := data.(string)
	if !ok {
		return nil, fmt.Errorf("%w: array data is %T, want a blob key string", ErrMalformed, data)
	}
	key, err := blobstore.ParseKey(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	payload, err := s.store.Get(key)
	if err != nil {
		return nil, err
	}
	return Array{
		DType: payload.DType,
		Shape: payload.Shape,
		Data:  payload.Data,
	}, nil
}
