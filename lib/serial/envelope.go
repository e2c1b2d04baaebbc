// Copyright 2026 The Wirepack Authors
// SPDX-License-Identifier: Apache-2.0

package serial

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Wire format constants.
const (
	// VersionKey is the envelope field whose presence distinguishes
	// an envelope from a plain JSON object. Its value is the format
	// version of the writer.
	VersionKey = "_wirepack"

	// Version is the wire format version this package writes.
	Version = "1.0.0"
)

// ToWire encodes value into its wire form: JSON text in which
// JSON-native data appears unchanged and everything else is wrapped in
// a self-describing envelope. host, when non-empty, annotates the
// top-level envelope with the origin of the value; it is informational
// only and ignored on decode.
//
// Aside from blob-store writes performed inside individual
// serializers, ToWire is a pure function of (value, registry).
func (r *Registry) ToWire(value any, host string) ([]byte, error) {
	tree, err := r.encodeValue(value)
	if err != nil {
		return nil, err
	}
	if host != "" {
		tree = annotateHost(tree, host)
	}
	return json.Marshal(tree)
}

// annotateHost attaches the origin host to a top-level envelope,
// leaving non-envelope trees alone. The envelope map is copied before
// the write: the tree may alias an envelope still owned by a *Ref
// placeholder, which must come through encoding untouched.
func annotateHost(tree any, host string) any {
	envelope, ok := tree.(map[string]any)
	if !ok {
		return tree
	}
	if _, isEnvelope := envelope[VersionKey]; !isEnvelope {
		return tree
	}
	annotated := make(map[string]any, len(envelope)+1)
	for key, value := range envelope {
		annotated[key] = value
	}
	annotated["host"] = host
	return annotated
}

// FromWire decodes wire text produced by ToWire. Envelopes marked
// "ref": true decode to a *Ref placeholder unless deref is true;
// everything else is reconstructed eagerly. Nested envelopes follow
// the same deref policy.
//
// Malformed input fails atomically: no partially-populated value is
// ever returned alongside an error.
func (r *Registry) FromWire(data []byte, deref bool) (any, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	return r.decodeValue(raw, deref)
}

// WireFiles returns every file dependency recorded in the wire text,
// across all nested envelopes. Callers ship these files (blob
// containers, typically) alongside the record.
func WireFiles(data []byte) ([]string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	var files []string
	collectFiles(raw, &files)
	return files, nil
}

func collectFiles(raw any, files *[]string) {
	switch x := raw.(type) {
	case map[string]any:
		if _, isEnvelope := x[VersionKey]; isEnvelope {
			if list, ok := x["files"].([]any); ok {
				for _, element := range list {
					if path, ok := element.(string); ok {
						*files = append(*files, path)
					}
				}
			}
		}
		for _, value := range x {
			collectFiles(value, files)
		}
	case []any:
		for _, element := range x {
			collectFiles(element, files)
		}
	}
}

// encodeValue converts a runtime value into the wire tree: JSON-native
// values pass through, containers recurse, and everything else
// resolves a serializer and becomes an envelope map.
func (r *Registry) encodeValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch value.(type) {
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return value, nil
	}

	// A placeholder re-encodes as the raw envelope it wraps, so a
	// scheduler can pass references along without materializing them.
	if ref, ok := value.(*Ref); ok {
		return ref.rec, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}

	// Exact-type lookup sees the pointer type itself, so a serializer
	// registered with a pointer prototype claims pointer values before
	// they are dereferenced.
	typ := rv.Type()
	if e, ok := r.byType[typ]; ok {
		return r.encodeEnvelope(e.ser, e.name, value)
	}

	if rv.Kind() == reflect.Pointer {
		return r.encodeValue(rv.Elem().Interface())
	}
	for _, ie := range r.ifaces {
		if typ.Implements(ie.typ) || reflect.PointerTo(typ).Implements(ie.typ) {
			return r.encodeEnvelope(ie.ser, className(typ), value)
		}
	}

	// Unclaimed containers are plain data: recurse per element.
	switch rv.Kind() {
	case reflect.Map:
		if typ.Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				encoded, err := r.encodeValue(iter.Value().Interface())
				if err != nil {
					return nil, err
				}
				out[iter.Key().String()] = encoded
			}
			return out, nil
		}

	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			encoded, err := r.encodeValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = encoded
		}
		return out, nil
	}

	if r.hook != nil {
		if ser := r.hook(value); ser != nil {
			return r.encodeEnvelope(ser, className(typ), value)
		}
	}
	if r.def != nil {
		return r.encodeEnvelope(r.def, className(typ), value)
	}

	return nil, fmt.Errorf("%w for type %s", ErrNoSerializer, typ)
}

// encodeEnvelope runs a serializer and wraps its output in an envelope
// map. The serializer's data payload is itself encoded recursively, so
// it may contain further envelopes.
func (r *Registry) encodeEnvelope(ser Serializer, class string, value any) (map[string]any, error) {
	packed, err := ser.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", class, err)
	}

	data, err := r.encodeValue(packed.data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s data: %w", class, err)
	}

	envelope := map[string]any{
		VersionKey: Version,
		"type":     string(ser.Kind()),
		"class":    class,
		"data":     data,
	}
	if packed.ref {
		envelope["ref"] = true
	}
	if len(packed.files) > 0 {
		envelope["files"] = packed.files
	}
	return envelope, nil
}

// decodeValue reverses encodeValue over a parsed wire tree.
func (r *Registry) decodeValue(raw any, deref bool) (any, error) {
	switch x := raw.(type) {
	case map[string]any:
		if _, isEnvelope := x[VersionKey]; isEnvelope {
			return r.decodeEnvelope(x, deref)
		}
		out := make(map[string]any, len(x))
		for key, value := range x {
			decoded, err := r.decodeValue(value, deref)
			if err != nil {
				return nil, err
			}
			out[key] = decoded
		}
		return out, nil

	case []any:
		out := make([]any, len(x))
		for i, element := range x {
			decoded, err := r.decodeValue(element, deref)
			if err != nil {
				return nil, err
			}
			out[i] = decoded
		}
		return out, nil

	default:
		return raw, nil
	}
}

// decodeEnvelope validates an envelope map and reconstructs its value,
// or returns a *Ref placeholder for deferred envelopes.
func (r *Registry) decodeEnvelope(envelope map[string]any, deref bool) (any, error) {
	class, ok := envelope["class"].(string)
	if !ok || class == "" {
		return nil, fmt.Errorf("%w: missing class field", ErrMalformed)
	}

	kindTag, ok := envelope["type"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: envelope for %q has no kind tag", ErrMalformed, class)
	}
	if !validKind(Kind(kindTag)) {
		return nil, fmt.Errorf("%w: unknown kind tag %q", ErrMalformed, kindTag)
	}

	data, present := envelope["data"]
	if !present {
		return nil, fmt.Errorf("%w: envelope for %q has no data field", ErrMalformed, class)
	}

	if isRef, _ := envelope["ref"].(bool); isRef && !deref {
		return &Ref{rec: envelope}, nil
	}

	typ, ser, err := r.resolveClass(class)
	if err != nil {
		return nil, err
	}

	decodedData, err := r.decodeValue(data, deref)
	if err != nil {
		return nil, err
	}

	value, err := ser.Decode(typ, decodedData)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", class, err)
	}
	return value, nil
}
